package messaging

import (
	"context"
)

// Broker carries change notifications between processes.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe delivers raw message bodies until ctx is cancelled, then
	// closes the channel.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
