// Package bus fans SSE messages out across processes so a client connected
// to the API sees progress published by a separate worker.
package bus

import (
	"context"

	"github.com/yungbote/paperlens-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
