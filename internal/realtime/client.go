package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

// SSEClient is one open event stream. Channels are analysis or profile ids.
type SSEClient struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}

// Send queues msg without blocking and reports whether it fit in the buffer.
// Callers must not Send after CloseClient.
func (c *SSEClient) Send(msg SSEMessage) bool {
	select {
	case c.Outbound <- msg:
		return true
	default:
		return false
	}
}
