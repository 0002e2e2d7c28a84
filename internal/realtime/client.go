package realtime

import (
	"github.com/google/uuid"
)

// SSEClient is one connected event stream. Outbound is buffered; the hub
// never blocks on it.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
}

// Done closes when the hub evicts the client.
func (c *SSEClient) Done() <-chan struct{} {
	return c.done
}
