package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/function61/arkmon/pkg/asapi"
	"github.com/function61/arkmon/pkg/dashboard"
	"github.com/function61/gokit/assert"
)

func TestStart(t *testing.T) {
	ctx := context.Background()
	reg, deps := newTestRegistry(t, 0)

	deps.snapshots.records = []asapi.ServerRecord{
		{Name: "ASA-Official-2154", NumPlayers: 42, MaxPlayers: 70},
	}

	entry, err := reg.Start(ctx, "2154", "chan1", "", t0)
	assert.Ok(t, err)
	assert.EqualString(t, entry.Key, "2154")
	assert.EqualString(t, entry.MessageId, "msg-1")
	assert.Assert(t, len(deps.store.Monitors()) == 1)

	// no matching server
	_, err = reg.Start(ctx, "9999", "chan1", "", t0)
	assert.Assert(t, err == ErrServerNotFound)
	assert.Assert(t, len(deps.store.Monitors()) == 1)

	// duplicate key
	_, err = reg.Start(ctx, "2154", "chan1", "", t0)
	assert.Assert(t, err != nil)
	assert.EqualString(t, err.Error(), "already monitoring: 2154")
}

func TestStop(t *testing.T) {
	ctx := context.Background()
	reg, deps := newTestRegistry(t, 0)

	deps.snapshots.records = []asapi.ServerRecord{
		{Name: "ASA-Official-2154", NumPlayers: 42, MaxPlayers: 70},
	}

	_, err := reg.Start(ctx, "2154", "chan1", "voice1", t0)
	assert.Ok(t, err)

	assert.Assert(t, !reg.Stop(ctx, "9999"))

	// resolved by substring
	assert.Assert(t, reg.Stop(ctx, "21"))
	assert.Assert(t, len(deps.store.Monitors()) == 0)
	assert.Assert(t, len(deps.sink.deleted) == 1)
	assert.EqualString(t, deps.sink.deletedCompanions[0], "voice1")
}

func TestReconcileRecordsOneSamplePerCall(t *testing.T) {
	ctx := context.Background()
	reg, deps := newTestRegistry(t, 0)

	deps.snapshots.records = []asapi.ServerRecord{
		{Name: "ASA-Official-2154", NumPlayers: 42, MaxPlayers: 70},
	}

	_, err := reg.Start(ctx, "2154", "chan1", "", t0)
	assert.Ok(t, err)

	// samples accumulate linearly with calls, entry state stays intact
	reg.Reconcile(ctx, t0.Add(1*time.Minute))
	reg.Reconcile(ctx, t0.Add(2*time.Minute))

	assert.Assert(t, len(deps.samples.recorded) == 2)
	assert.EqualString(t, deps.samples.recorded[0], "2154: 42/70")
	assert.Assert(t, len(deps.store.Monitors()) == 1)
	assert.Assert(t, deps.sink.updates == 2)
}

func TestReconcileSkipsCycleOnEmptySnapshot(t *testing.T) {
	ctx := context.Background()
	reg, deps := newTestRegistry(t, 0)

	deps.snapshots.records = []asapi.ServerRecord{
		{Name: "ASA-Official-2154", NumPlayers: 42, MaxPlayers: 70},
	}

	_, err := reg.Start(ctx, "2154", "chan1", "", t0)
	assert.Ok(t, err)

	deps.snapshots.records = nil

	reg.Reconcile(ctx, t0.Add(1*time.Minute))

	assert.Assert(t, len(deps.samples.recorded) == 0)
	assert.Assert(t, len(deps.store.Monitors()) == 1)
}

func TestReconcilePrunesEntryWhenTargetGone(t *testing.T) {
	ctx := context.Background()
	reg, deps := newTestRegistry(t, 0)

	deps.snapshots.records = []asapi.ServerRecord{
		{Name: "ASA-Official-2154", NumPlayers: 42, MaxPlayers: 70},
	}

	_, err := reg.Start(ctx, "2154", "chan1", "", t0)
	assert.Ok(t, err)

	deps.sink.updateErr = dashboard.ErrTargetGone

	reg.Reconcile(ctx, t0.Add(1*time.Minute))

	assert.Assert(t, len(deps.store.Monitors()) == 0)
}

func TestReconcileKeepsEntryOnTransientSinkFailure(t *testing.T) {
	ctx := context.Background()
	reg, deps := newTestRegistry(t, 0)

	deps.snapshots.records = []asapi.ServerRecord{
		{Name: "ASA-Official-2154", NumPlayers: 42, MaxPlayers: 70},
	}

	_, err := reg.Start(ctx, "2154", "chan1", "", t0)
	assert.Ok(t, err)

	deps.sink.updateErr = errors.New("discord 500")

	reg.Reconcile(ctx, t0.Add(1*time.Minute))

	// skipped this cycle, retried (successfully) the next
	assert.Assert(t, len(deps.store.Monitors()) == 1)

	deps.sink.updateErr = nil

	reg.Reconcile(ctx, t0.Add(2*time.Minute))

	assert.Assert(t, deps.sink.updates == 1)
	assert.Assert(t, len(deps.samples.recorded) == 2)
}

func TestAlertLatchIsEdgeTriggered(t *testing.T) {
	ctx := context.Background()
	reg, deps := newTestRegistry(t, 8)

	deps.snapshots.records = []asapi.ServerRecord{
		{Name: "ASA-Official-2154", NumPlayers: 5, MaxPlayers: 70},
	}

	_, err := reg.Start(ctx, "2154", "chan1", "", t0)
	assert.Ok(t, err)

	// population 5, 9, 9, 4, 9 against threshold 8 => exactly two alerts
	for i, population := range []int{5, 9, 9, 4, 9} {
		deps.snapshots.records[0].NumPlayers = population
		reg.Reconcile(ctx, t0.Add(time.Duration(i)*time.Minute))
	}

	assert.Assert(t, len(deps.sink.notifications) == 2)
	assert.EqualString(t, deps.sink.notifications[0], "2154 is filling up: 9/70 players (threshold 8)")
}

func TestCompanionRenameCooldown(t *testing.T) {
	ctx := context.Background()
	reg, deps := newTestRegistry(t, 0)

	deps.snapshots.records = []asapi.ServerRecord{
		{Name: "ASA-Official-2154", NumPlayers: 42, MaxPlayers: 70},
	}

	_, err := reg.Start(ctx, "2154", "chan1", "voice1", t0)
	assert.Ok(t, err)

	// cool-down (6 min since registration) not yet elapsed
	reg.Reconcile(ctx, t0.Add(1*time.Minute))
	assert.Assert(t, len(deps.sink.renames) == 0)

	reg.Reconcile(ctx, t0.Add(6*time.Minute))
	assert.Assert(t, len(deps.sink.renames) == 1)
	assert.EqualString(t, deps.sink.renames[0], "voice1 -> 2154: 42/70")

	// population unchanged => redundant rename skipped even past cool-down
	reg.Reconcile(ctx, t0.Add(13*time.Minute))
	assert.Assert(t, len(deps.sink.renames) == 1)

	deps.snapshots.records[0].NumPlayers = 50

	reg.Reconcile(ctx, t0.Add(20*time.Minute))
	assert.Assert(t, len(deps.sink.renames) == 2)
	assert.EqualString(t, deps.sink.renames[1], "voice1 -> 2154: 50/70")
}

func TestSameCycleRenameAndAlertKeepsRenameBookkeeping(t *testing.T) {
	ctx := context.Background()
	reg, deps := newTestRegistry(t, 8)

	deps.snapshots.records = []asapi.ServerRecord{
		{Name: "ASA-Official-2154", NumPlayers: 5, MaxPlayers: 70},
	}

	_, err := reg.Start(ctx, "2154", "chan1", "voice1", t0)
	assert.Ok(t, err)

	// population crosses the threshold past the rename cool-down: the same
	// cycle renames the companion AND fires the alert
	deps.snapshots.records[0].NumPlayers = 9

	reg.Reconcile(ctx, t0.Add(7*time.Minute))
	assert.Assert(t, len(deps.sink.renames) == 1)
	assert.Assert(t, len(deps.sink.notifications) == 1)

	persisted := deps.store.FindMonitor("2154")
	assert.Assert(t, persisted.AlertActive)
	assert.EqualString(t, persisted.VoiceName, "2154: 9/70")
	assert.Assert(t, persisted.LastRenamed.Equal(t0.Add(7*time.Minute)))

	// identical state one minute later: within cool-down, name unchanged,
	// latch already set => nothing happens
	reg.Reconcile(ctx, t0.Add(8*time.Minute))
	assert.Assert(t, len(deps.sink.renames) == 1)
	assert.Assert(t, len(deps.sink.notifications) == 1)
}

// test doubles

type testDeps struct {
	snapshots *fakeSnapshots
	store     *Store
	samples   *fakeSampler
	sink      *fakeSink
}

func newTestRegistry(t *testing.T, alertThreshold int) (*Registry, *testDeps) {
	monitorsPath, favoritesPath := testStorePaths(t)

	store := NewStore(monitorsPath, favoritesPath, nil)
	store.Load()

	deps := &testDeps{
		snapshots: &fakeSnapshots{},
		store:     store,
		samples:   &fakeSampler{},
		sink:      &fakeSink{},
	}

	reg := New(deps.snapshots, staticRate("1.0"), store, deps.samples, deps.sink, alertThreshold, nil)

	return reg, deps
}

type fakeSnapshots struct {
	records []asapi.ServerRecord
}

func (f *fakeSnapshots) Current() []asapi.ServerRecord {
	return f.records
}

type staticRate string

func (s staticRate) Current() string {
	return string(s)
}

type fakeSampler struct {
	recorded []string
}

func (f *fakeSampler) RecordSample(ctx context.Context, serverName string, playerCount int, maxPlayers int, at time.Time) error {
	f.recorded = append(f.recorded, fmt.Sprintf("%s: %d/%d", serverName, playerCount, maxPlayers))
	return nil
}

type fakeSink struct {
	published         int
	updates           int
	updateErr         error
	notifications     []string
	renames           []string
	deleted           []dashboard.Location
	deletedCompanions []string
}

func (f *fakeSink) Publish(ctx context.Context, channelId string, artifact *dashboard.Artifact) (string, error) {
	f.published++
	return fmt.Sprintf("msg-%d", f.published), nil
}

func (f *fakeSink) Update(ctx context.Context, loc dashboard.Location, artifact *dashboard.Artifact) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	return nil
}

func (f *fakeSink) Delete(ctx context.Context, loc dashboard.Location) error {
	f.deleted = append(f.deleted, loc)
	return nil
}

func (f *fakeSink) RenameCompanion(ctx context.Context, channelId string, name string) error {
	f.renames = append(f.renames, channelId+" -> "+name)
	return nil
}

func (f *fakeSink) DeleteCompanion(ctx context.Context, channelId string) error {
	f.deletedCompanions = append(f.deletedCompanions, channelId)
	return nil
}

func (f *fakeSink) Notify(ctx context.Context, channelId string, message string) error {
	f.notifications = append(f.notifications, message)
	return nil
}
