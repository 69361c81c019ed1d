package asapi

import (
	"context"
	"log"
	"time"

	"github.com/function61/gokit/ezhttp"
	"github.com/function61/gokit/logex"
)

// Fetcher polls the official server list and replaces the snapshot on success.
// Any failure (timeout, non-200, malformed payload) leaves the previous
// snapshot untouched - the next scheduled refresh is the only retry mechanism.
type Fetcher struct {
	url       string
	snapshots *SnapshotCache
	logl      *logex.Leveled
}

func NewFetcher(url string, snapshots *SnapshotCache, logger *log.Logger) *Fetcher {
	return &Fetcher{
		url:       url,
		snapshots: snapshots,
		logl:      logex.Levels(logger),
	}
}

func (f *Fetcher) RefreshSnapshot(ctx context.Context) error {
	started := time.Now()

	wireRecords := []serverRecordWire{}

	if _, err := ezhttp.Get(
		ctx,
		f.url,
		ezhttp.RespondsJson(&wireRecords, true)); err != nil {
		f.logl.Error.Printf("RefreshSnapshot: %v", err)
		return err
	}

	records := make([]ServerRecord, len(wireRecords))
	for i, wire := range wireRecords {
		records[i] = wire.toRecord()
	}

	f.snapshots.Replace(records)

	f.logl.Debug.Printf("%d servers @ %d ms", len(records), time.Since(started).Milliseconds())

	return nil
}
