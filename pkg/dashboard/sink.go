// Renders server dashboards and pushes them to the chat platform.
package dashboard

import (
	"context"
	"errors"
)

// the sink target (message, channel) no longer exists. callers use this to
// decide between pruning a monitor and retrying on the next cycle.
var ErrTargetGone = errors.New("sink target gone")

// where a published dashboard lives
type Location struct {
	ChannelId string `json:"channel_id"`
	MessageId string `json:"message_id"`
}

type Sink interface {
	// creates the dashboard message, returns its id
	Publish(ctx context.Context, channelId string, artifact *Artifact) (string, error)
	// edits a previously published dashboard in place
	Update(ctx context.Context, loc Location, artifact *Artifact) error
	Delete(ctx context.Context, loc Location) error
	// companion resource (e.g. population counter voice channel)
	RenameCompanion(ctx context.Context, channelId string, name string) error
	DeleteCompanion(ctx context.Context, channelId string) error
	// plain text notification (threshold alerts, rate changes)
	Notify(ctx context.Context, channelId string, message string) error
}
