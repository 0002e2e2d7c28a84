package bus

import (
	"context"

	"github.com/veldtops/fieldsuite-backend/internal/realtime"
)

// Bus fans SSE messages across instances. Publish pushes a message to every
// instance; StartForwarder feeds received messages into the local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
