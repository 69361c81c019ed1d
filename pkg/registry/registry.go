package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/function61/arkmon/pkg/asapi"
	"github.com/function61/arkmon/pkg/dashboard"
	"github.com/function61/gokit/logex"
)

var ErrServerNotFound = errors.New("no server matches the given identifier")

// renaming a channel too often gets rate limited hard, so population counter
// updates are spaced out
const companionRenameCooldown = 6 * time.Minute

type SnapshotSource interface {
	Current() []asapi.ServerRecord
}

type RateSource interface {
	Current() string
}

type SampleRecorder interface {
	RecordSample(ctx context.Context, serverName string, playerCount int, maxPlayers int, at time.Time) error
}

type Registry struct {
	snapshots      SnapshotSource
	rates          RateSource
	store          *Store
	samples        SampleRecorder
	sink           dashboard.Sink
	alertThreshold int // 0 = alerts disabled
	logl           *logex.Leveled
}

func New(
	snapshots SnapshotSource,
	rates RateSource,
	store *Store,
	samples SampleRecorder,
	sink dashboard.Sink,
	alertThreshold int,
	logger *log.Logger,
) *Registry {
	return &Registry{
		snapshots:      snapshots,
		rates:          rates,
		store:          store,
		samples:        samples,
		sink:           sink,
		alertThreshold: alertThreshold,
		logl:           logex.Levels(logger),
	}
}

// Start registers a monitor for the first server whose name contains key,
// publishes the initial dashboard and persists the registration.
func (r *Registry) Start(ctx context.Context, key string, channelId string, voiceChannelId string, now time.Time) (*MonitorEntry, error) {
	record := asapi.FindServer(key, r.snapshots.Current())
	if record == nil {
		return nil, ErrServerNotFound
	}

	if r.store.FindMonitor(key) != nil {
		return nil, fmt.Errorf("already monitoring: %s", key)
	}

	messageId, err := r.sink.Publish(ctx, channelId, dashboard.Render(record, r.rates.Current()))
	if err != nil {
		return nil, err
	}

	entry := MonitorEntry{
		Key:            key,
		ChannelId:      channelId,
		MessageId:      messageId,
		VoiceChannelId: voiceChannelId,
		LastRenamed:    now,
		Created:        now,
	}

	if err := r.store.AddMonitor(entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

// Stop removes the first monitor (in insertion order) whose key contains the
// identifier, cleaning up the dashboard and companion best-effort. Returns
// false if nothing matched.
func (r *Registry) Stop(ctx context.Context, identifier string) bool {
	entry := r.store.FindMonitorBySubstring(identifier)
	if entry == nil {
		return false
	}

	r.store.RemoveMonitor(entry.Key)

	if err := r.sink.Delete(ctx, entry.Location()); err != nil {
		r.logl.Error.Printf("Stop %s: delete dashboard: %v", entry.Key, err)
	}

	if entry.VoiceChannelId != "" {
		if err := r.sink.DeleteCompanion(ctx, entry.VoiceChannelId); err != nil {
			r.logl.Error.Printf("Stop %s: delete companion: %v", entry.Key, err)
		}
	}

	return true
}

// Reconcile updates every tracked dashboard against the current snapshot and
// records one population sample per matched entry. Runs on a fixed interval.
func (r *Registry) Reconcile(ctx context.Context, now time.Time) {
	records := r.snapshots.Current()
	if len(records) == 0 {
		// nothing fetched yet (or ever) - skip the whole cycle rather than
		// misinterpret "no data" as "every server is gone"
		return
	}

	for _, entry := range r.store.Monitors() {
		r.reconcileOne(ctx, entry, records, now)
	}
}

func (r *Registry) reconcileOne(ctx context.Context, entry MonitorEntry, records []asapi.ServerRecord, now time.Time) {
	record := asapi.FindServer(entry.Key, records)
	if record == nil {
		// dropped off the list (restart, delisting); keep the entry and try
		// again next cycle
		return
	}

	if err := r.samples.RecordSample(ctx, entry.Key, record.NumPlayers, record.MaxPlayers, now); err != nil {
		r.logl.Error.Printf("RecordSample %s: %v", entry.Key, err)
	}

	artifact := dashboard.Render(record, r.rates.Current())

	if err := r.sink.Update(ctx, entry.Location(), artifact); err != nil {
		if errors.Is(err, dashboard.ErrTargetGone) {
			r.logl.Info.Printf("pruning %s: dashboard message is gone", entry.Key)
			r.store.RemoveMonitor(entry.Key)
		} else {
			r.logl.Error.Printf("update %s (retrying next cycle): %v", entry.Key, err)
		}
		return
	}

	// threaded through so the latch update below persists the rename
	// bookkeeping instead of clobbering it with a pre-rename copy
	entry = r.maybeRenameCompanion(ctx, entry, record, now)
	r.updateAlertLatch(ctx, entry, record)
}

func (r *Registry) maybeRenameCompanion(ctx context.Context, entry MonitorEntry, record *asapi.ServerRecord, now time.Time) MonitorEntry {
	if entry.VoiceChannelId == "" {
		return entry
	}

	if now.Sub(entry.LastRenamed) < companionRenameCooldown {
		return entry
	}

	name := dashboard.CompanionName(entry.Key, record.NumPlayers, record.MaxPlayers)
	if name == entry.VoiceName {
		return entry // population unchanged - skip the redundant call
	}

	if err := r.sink.RenameCompanion(ctx, entry.VoiceChannelId, name); err != nil {
		r.logl.Error.Printf("rename companion %s: %v", entry.Key, err)
		return entry
	}

	entry.VoiceName = name
	entry.LastRenamed = now
	r.store.UpdateMonitor(entry)

	return entry
}

// edge-triggered: notifies once when population crosses above the threshold,
// re-arms when it drops back to/under it
func (r *Registry) updateAlertLatch(ctx context.Context, entry MonitorEntry, record *asapi.ServerRecord) {
	if r.alertThreshold <= 0 {
		return
	}

	over := record.NumPlayers > r.alertThreshold

	switch {
	case over && !entry.AlertActive:
		message := fmt.Sprintf(
			"%s is filling up: %d/%d players (threshold %d)",
			entry.Key, record.NumPlayers, record.MaxPlayers, r.alertThreshold)

		if err := r.sink.Notify(ctx, entry.ChannelId, message); err != nil {
			// latch left unset so the next cycle retries the notification
			r.logl.Error.Printf("alert %s: %v", entry.Key, err)
			return
		}

		entry.AlertActive = true
		r.store.UpdateMonitor(entry)
	case !over && entry.AlertActive:
		entry.AlertActive = false
		r.store.UpdateMonitor(entry)
	}
}
