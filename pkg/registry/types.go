// Monitor registry: maps user-chosen server identifiers to live dashboards,
// and reconciles them against the latest snapshot.
package registry

import (
	"time"

	"github.com/function61/arkmon/pkg/dashboard"
)

// one tracked dashboard. Key is the user-supplied identifier substring and is
// unique within the registry.
type MonitorEntry struct {
	Key            string    `json:"key"`
	ChannelId      string    `json:"channel_id"`
	MessageId      string    `json:"message_id"`
	VoiceChannelId string    `json:"voice_channel_id,omitempty"`
	VoiceName      string    `json:"voice_name,omitempty"`
	LastRenamed    time.Time `json:"last_renamed"`
	AlertActive    bool      `json:"alert_active"`
	Created        time.Time `json:"created"`
}

func (e *MonitorEntry) Location() dashboard.Location {
	return dashboard.Location{
		ChannelId: e.ChannelId,
		MessageId: e.MessageId,
	}
}

// persisted documents. monitors are an ordered list so that reconciliation
// order (= insertion order) survives a restart.
type monitorsFileFormat struct {
	Monitors []MonitorEntry `json:"monitors"`
}

type favoritesFileFormat struct {
	Favorites map[string][]string `json:"favorites"`
}
