// internal/relay/relay.go

// Package relay is the privileged upload leg of the pipeline. It is the only
// component that talks to the ingestion API; the capture side never touches
// the network for anything but page assets.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
	"github.com/pagesnap/pagesnap-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Probe verdicts reported by CheckAPIStatus.
const (
	StatusConnected = "connected"
	StatusUnknown   = "unknown"
	StatusFailed    = "failed"
)

// Relay uploads capture payloads and probes endpoint reachability.
type Relay struct {
	client *http.Client
	cfg    config.RelayConfig
	logger *zap.Logger
}

// New wires a relay to an HTTP client. The client is expected to carry no
// cookie jar or ambient credentials.
func New(client *http.Client, cfg config.RelayConfig, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ErrorBodyLimit <= 0 {
		cfg.ErrorBodyLimit = 100
	}
	return &Relay{
		client: client,
		cfg:    cfg,
		logger: logger.Named("relay"),
	}
}

// SendToAPI posts the payload as JSON to the endpoint and decodes the
// receipt. A non-2xx status is an error carrying the status line and a
// bounded excerpt of the response body.
func (r *Relay) SendToAPI(ctx context.Context, endpoint string, payload schemas.IngestPayload) (schemas.IngestReceipt, error) {
	ctx, cancel := r.boundedCtx(ctx)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return schemas.IngestReceipt{}, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return schemas.IngestReceipt{}, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Upload request failed before reaching the API.", zap.Error(err))
		return schemas.IngestReceipt{}, fmt.Errorf(
			"could not reach the API (is the backend running, is the endpoint correct, is the network up?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return schemas.IngestReceipt{}, fmt.Errorf("api error, status: %s, response: %s",
			resp.Status, r.errorExcerpt(resp.Body))
	}

	var receipt schemas.IngestReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		// A 2xx with an undecodable body is still a successful upload.
		r.logger.Debug("Could not decode upload receipt.", zap.Error(err))
		return schemas.IngestReceipt{}, nil
	}

	r.logger.Info("Payload uploaded.",
		zap.String("endpoint", endpoint),
		zap.String("domain", payload.Domain),
		zap.Int("assets", len(payload.Assets)))
	return receipt, nil
}

// CheckAPIStatus probes the endpoint with a preflight-style OPTIONS request.
// Any response at all means the endpoint is alive; only a transport failure
// counts as unreachable.
func (r *Relay) CheckAPIStatus(ctx context.Context, endpoint string) (string, error) {
	ctx, cancel := r.boundedCtx(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, endpoint, nil)
	if err != nil {
		return StatusFailed, fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return StatusFailed, fmt.Errorf("endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if (resp.StatusCode >= 200 && resp.StatusCode <= 299) || resp.StatusCode == http.StatusMethodNotAllowed {
		return StatusConnected, nil
	}
	r.logger.Debug("Probe answered with an unexpected status.",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode))
	return StatusUnknown, nil
}

// boundedCtx applies the configured per-request deadline on top of whatever
// deadline the caller already carries.
func (r *Relay) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// errorExcerpt reads a bounded prefix of an error body for diagnostics. The
// limit counts characters, so a multibyte body is never clipped mid-rune.
func (r *Relay) errorExcerpt(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, int64(r.cfg.ErrorBodyLimit)*utf8.UTFMax))
	if err != nil || len(raw) == 0 {
		return "(unreadable response body)"
	}
	runes := []rune(string(raw))
	if len(runes) > r.cfg.ErrorBodyLimit {
		runes = runes[:r.cfg.ErrorBodyLimit]
	}
	return string(runes)
}
