package registry

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/function61/gokit/jsonfile"
	"github.com/function61/gokit/logex"
)

// Store owns the persisted monitor registrations and user favorites. Each
// mutation rewrites the whole document (tmp file + rename, last complete
// write wins). Write failures are logged; in-memory state stays authoritative
// until the next successful write.
type Store struct {
	monitorsPath  string
	favoritesPath string
	logl          *logex.Leveled

	mu        sync.Mutex
	monitors  []MonitorEntry
	favorites map[string][]string
}

func NewStore(monitorsPath string, favoritesPath string, logger *log.Logger) *Store {
	return &Store{
		monitorsPath:  monitorsPath,
		favoritesPath: favoritesPath,
		logl:          logex.Levels(logger),
		favorites:     map[string][]string{},
	}
}

// missing or malformed files mean empty state, never a startup failure
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitorsDoc := monitorsFileFormat{}
	if err := readDocument(s.monitorsPath, &monitorsDoc); err != nil {
		s.logl.Error.Printf("Load %s (treating as empty): %v", s.monitorsPath, err)
		monitorsDoc = monitorsFileFormat{}
	}
	s.monitors = monitorsDoc.Monitors

	favoritesDoc := favoritesFileFormat{}
	if err := readDocument(s.favoritesPath, &favoritesDoc); err != nil {
		s.logl.Error.Printf("Load %s (treating as empty): %v", s.favoritesPath, err)
		favoritesDoc = favoritesFileFormat{}
	}
	s.favorites = favoritesDoc.Favorites
	if s.favorites == nil {
		s.favorites = map[string][]string{}
	}
}

// in insertion order (= reconciliation order)
func (s *Store) Monitors() []MonitorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitors := make([]MonitorEntry, len(s.monitors))
	copy(monitors, s.monitors)
	return monitors
}

func (s *Store) FindMonitor(key string) *MonitorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.monitors {
		if entry.Key == key {
			return &entry
		}
	}

	return nil
}

// resolves a user-given identifier to a registered monitor: first key (in
// insertion order) containing the identifier
func (s *Store) FindMonitorBySubstring(identifier string) *MonitorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.monitors {
		if strings.Contains(entry.Key, identifier) {
			return &entry
		}
	}

	return nil
}

func (s *Store) AddMonitor(entry MonitorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.monitors {
		if existing.Key == entry.Key {
			return fmt.Errorf("already monitoring: %s", entry.Key)
		}
	}

	s.monitors = append(s.monitors, entry)

	s.saveMonitors()

	return nil
}

// exact key. returns false if no such monitor.
func (s *Store) RemoveMonitor(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.monitors {
		if entry.Key != key {
			continue
		}

		s.monitors = append(s.monitors[:i], s.monitors[i+1:]...)

		s.saveMonitors()

		return true
	}

	return false
}

// replaces the entry with the same key. unknown keys are a no-op (the entry
// was pruned concurrently).
func (s *Store) UpdateMonitor(entry MonitorEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.monitors {
		if existing.Key != entry.Key {
			continue
		}

		s.monitors[i] = entry

		s.saveMonitors()

		return
	}
}

func (s *Store) Favorites(userId string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, len(s.favorites[userId]))
	copy(keys, s.favorites[userId])
	return keys
}

// returns false if the key already was a favorite
func (s *Store) AddFavorite(userId string, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.favorites[userId] {
		if existing == key {
			return false
		}
	}

	s.favorites[userId] = append(s.favorites[userId], key)
	sort.Strings(s.favorites[userId])

	s.saveFavorites()

	return true
}

func (s *Store) RemoveFavorite(userId string, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.favorites[userId]

	for i, existing := range keys {
		if existing != key {
			continue
		}

		s.favorites[userId] = append(keys[:i], keys[i+1:]...)
		if len(s.favorites[userId]) == 0 {
			delete(s.favorites, userId)
		}

		s.saveFavorites()

		return true
	}

	return false
}

// callers hold s.mu
func (s *Store) saveMonitors() {
	if err := writeDocument(s.monitorsPath, &monitorsFileFormat{Monitors: s.monitors}); err != nil {
		s.logl.Error.Printf("saveMonitors: %v", err)
	}
}

// callers hold s.mu
func (s *Store) saveFavorites() {
	if err := writeDocument(s.favoritesPath, &favoritesFileFormat{Favorites: s.favorites}); err != nil {
		s.logl.Error.Printf("saveFavorites: %v", err)
	}
}

func readDocument(path string, doc interface{}) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // empty state
	}

	return jsonfile.Read(path, doc, false)
}

func writeDocument(path string, doc interface{}) error {
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := jsonfile.Marshal(file, doc); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
