// api/schemas/messages.go
package schemas

// Action names the operations routed over the message bus. The three contexts
// of the capture pipeline (engine, relay, orchestrator) share no memory; they
// exchange exactly these request/response envelopes.
type Action string

const (
	ActionCapture        Action = "capture"
	ActionSendToAPI      Action = "sendToApi"
	ActionCheckAPIStatus Action = "checkApiStatus"
)

// CaptureResult is the engine's reply to an ActionCapture request.
type CaptureResult struct {
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	URL     string  `json:"url,omitempty"`
	Domain  string  `json:"domain,omitempty"`
	Title   string  `json:"title,omitempty"`
	HTML    string  `json:"htmlSnapshot,omitempty"`
	Assets  []Asset `json:"assets,omitempty"`
}

// Bundle reassembles the capture result into a bundle value.
func (r CaptureResult) Bundle() CaptureBundle {
	return CaptureBundle{
		URL:          r.URL,
		Domain:       r.Domain,
		Title:        r.Title,
		HTMLSnapshot: r.HTML,
		Assets:       r.Assets,
	}
}

// SendToAPIRequest asks the relay to upload a payload to the given endpoint.
type SendToAPIRequest struct {
	Endpoint string        `json:"endpoint"`
	Payload  IngestPayload `json:"payload"`
}

// SendToAPIResult carries the relay's upload outcome.
type SendToAPIResult struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Response *IngestReceipt `json:"response,omitempty"`
}

// CheckAPIStatusRequest asks the relay to probe endpoint reachability.
type CheckAPIStatusRequest struct {
	Endpoint string `json:"endpoint"`
}

// CheckAPIStatusResult carries the probe verdict.
type CheckAPIStatusResult struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}
