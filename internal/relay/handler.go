// internal/relay/handler.go
package relay

import (
	"context"
	"fmt"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
	"github.com/pagesnap/pagesnap-cli/internal/bus"
)

// decodeRequest round-trips an envelope payload into its typed request form.
// Bus payloads are `any` on the wire; in-process callers usually pass the
// typed struct directly, remote-style callers a decoded map.
func decodeRequest[T any](payload any) (T, error) {
	if typed, ok := payload.(T); ok {
		return typed, nil
	}
	var out T
	raw, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("failed to encode request payload: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode request payload: %w", err)
	}
	return out, nil
}

// SendHandler adapts SendToAPI to its bus contract.
func SendHandler(r *Relay) bus.Handler {
	return func(ctx context.Context, req bus.Request) bus.Response {
		sendReq, err := decodeRequest[schemas.SendToAPIRequest](req.Payload)
		if err != nil {
			return bus.Response{Success: false, Error: err.Error(),
				Payload: schemas.SendToAPIResult{Success: false, Error: err.Error()}}
		}
		receipt, err := r.SendToAPI(ctx, sendReq.Endpoint, sendReq.Payload)
		if err != nil {
			return bus.Response{Success: false, Error: err.Error(),
				Payload: schemas.SendToAPIResult{Success: false, Error: err.Error()}}
		}
		return bus.Response{Success: true,
			Payload: schemas.SendToAPIResult{Success: true, Response: &receipt}}
	}
}

// StatusHandler adapts CheckAPIStatus to its bus contract.
func StatusHandler(r *Relay) bus.Handler {
	return func(ctx context.Context, req bus.Request) bus.Response {
		statusReq, err := decodeRequest[schemas.CheckAPIStatusRequest](req.Payload)
		if err != nil {
			return bus.Response{Success: false, Error: err.Error(),
				Payload: schemas.CheckAPIStatusResult{Success: false, Status: StatusFailed, Error: err.Error()}}
		}
		status, err := r.CheckAPIStatus(ctx, statusReq.Endpoint)
		if err != nil {
			return bus.Response{Success: false, Error: err.Error(),
				Payload: schemas.CheckAPIStatusResult{Success: false, Status: status, Error: err.Error()}}
		}
		return bus.Response{Success: true,
			Payload: schemas.CheckAPIStatusResult{Success: true, Status: status}}
	}
}
