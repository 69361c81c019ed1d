package asapi

import (
	"strings"
)

// FindServer is the one place implementing the monitor key matching policy:
// case-sensitive substring containment in the server name, first match wins
// over snapshot order. Upstream names are not guaranteed to have unique
// substrings, so a short key can match more than one server.
func FindServer(key string, records []ServerRecord) *ServerRecord {
	for _, record := range records {
		if strings.Contains(record.Name, key) {
			return &record
		}
	}

	return nil
}

const filterMaxResults = 25

// lookup/autocomplete surface: case-insensitive, capped
func FilterServers(query string, records []ServerRecord) []ServerRecord {
	queryLower := strings.ToLower(query)

	matches := []ServerRecord{}
	for _, record := range records {
		if !strings.Contains(strings.ToLower(record.Name), queryLower) {
			continue
		}

		matches = append(matches, record)

		if len(matches) == filterMaxResults {
			break
		}
	}

	return matches
}
