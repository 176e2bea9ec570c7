// internal/capture/handler.go
package capture

import (
	"context"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
	"github.com/pagesnap/pagesnap-cli/internal/bus"
)

// BusHandler adapts the engine to its inbound message contract: an
// ActionCapture request yields a CaptureResult that either carries the whole
// bundle or the capture-level error text.
func BusHandler(e *Engine) bus.Handler {
	return func(ctx context.Context, req bus.Request) bus.Response {
		bundle, err := e.Capture(ctx)
		if err != nil {
			result := schemas.CaptureResult{Success: false, Error: err.Error()}
			return bus.Response{Success: false, Error: err.Error(), Payload: result}
		}
		result := schemas.CaptureResult{
			Success: true,
			URL:     bundle.URL,
			Domain:  bundle.Domain,
			Title:   bundle.Title,
			HTML:    bundle.HTMLSnapshot,
			Assets:  bundle.Assets,
		}
		return bus.Response{Success: true, Payload: result}
	}
}
