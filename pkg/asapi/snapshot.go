package asapi

import (
	"sync"
)

// SnapshotCache holds the latest full server list. The list is only ever
// replaced wholesale (never merged), so readers observe either the previous
// complete snapshot or the new one.
type SnapshotCache struct {
	mu      sync.RWMutex
	records []ServerRecord
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{}
}

// empty slice until the first successful fetch
func (s *SnapshotCache) Current() []ServerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]ServerRecord, len(s.records))
	copy(records, s.records)
	return records
}

func (s *SnapshotCache) Replace(records []ServerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = records
}
