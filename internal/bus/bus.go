// internal/bus/bus.go
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
)

// Request is the envelope for one call over the bus. The payload type is
// action-specific (see api/schemas/messages.go).
type Request struct {
	ID        string
	Timestamp time.Time
	Action    schemas.Action
	Payload   any
}

// Response is the envelope a handler returns.
type Response struct {
	Success bool
	Error   string
	Payload any
}

// Handler services one action. Handlers run on the caller's goroutine; the
// bus provides routing and serialization, not concurrency.
type Handler func(ctx context.Context, req Request) Response

// ErrUnreachable reports that no handler is registered for an action — the
// message's receiving context does not exist. Calls fail once; there is no
// retry.
type ErrUnreachable struct {
	Action schemas.Action
}

func (e *ErrUnreachable) Error() string {
	return fmt.Sprintf("receiving end for action %q is unreachable", e.Action)
}

// Bus routes typed request/response envelopes between the capture pipeline's
// contexts. At most one call is in flight at a time: the surfaces that
// trigger captures are serial, and the bus enforces the same discipline.
type Bus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[schemas.Action]Handler

	inflight chan struct{}
}

// New creates an empty bus.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger:   logger.Named("bus"),
		handlers: make(map[schemas.Action]Handler),
		inflight: make(chan struct{}, 1),
	}
}

// Register installs the handler for an action, replacing any previous one.
func (b *Bus) Register(action schemas.Action, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[action] = h
}

// Call performs a single request/response round trip. The envelope is
// enriched with an ID and timestamp if the caller left them empty.
func (b *Bus) Call(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	handler, ok := b.handlers[req.Action]
	b.mu.RUnlock()
	if !ok {
		return Response{}, &ErrUnreachable{Action: req.Action}
	}

	select {
	case b.inflight <- struct{}{}:
		defer func() { <-b.inflight }()
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	b.logger.Debug("Dispatching bus call.",
		zap.String("id", req.ID),
		zap.String("action", string(req.Action)))

	resp := handler(ctx, req)
	if !resp.Success && resp.Error != "" {
		b.logger.Debug("Bus call returned failure.",
			zap.String("id", req.ID),
			zap.String("action", string(req.Action)),
			zap.String("error", resp.Error))
	}
	return resp, nil
}
