// internal/orchestrator/orchestrator.go

// Package orchestrator drives the capture-then-upload sequence. It owns the
// persisted settings, validates them before any side effect, and reports
// progress through a single-slot status display.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
	"github.com/pagesnap/pagesnap-cli/internal/bus"
	"github.com/pagesnap/pagesnap-cli/internal/capture"
	"github.com/pagesnap/pagesnap-cli/internal/config"
)

// Ensurer makes the capture engine present in the target page before the
// capture request is dispatched.
type Ensurer interface {
	Ensure(ctx context.Context) error
}

// Orchestrator coordinates the engine and the relay over the bus.
type Orchestrator struct {
	bus    *bus.Bus
	store  config.Store
	engine Ensurer
	status StatusSink
	logger *zap.Logger
	clock  func() time.Time

	// OnPayload, when set, observes the assembled payload before upload.
	// Used by the CLI to dump the bundle locally.
	OnPayload func(schemas.IngestPayload)
}

// New wires an orchestrator. A nil status sink disables progress reporting.
func New(b *bus.Bus, store config.Store, engine Ensurer, status StatusSink, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if status == nil {
		status = nopStatus{}
	}
	return &Orchestrator{
		bus:    b,
		store:  store,
		engine: engine,
		status: status,
		logger: logger.Named("orchestrator"),
		clock:  time.Now,
	}
}

type nopStatus struct{}

func (nopStatus) Progress(string) {}
func (nopStatus) Error(string)    {}
func (nopStatus) Success(string)  {}

// CaptureAndSend runs the full pipeline: settings validation, capture,
// payload assembly, upload. Validation failures abort before any capture
// side effect.
func (o *Orchestrator) CaptureAndSend(ctx context.Context) (schemas.IngestReceipt, error) {
	rec, err := o.store.Load()
	if err != nil {
		return o.fail(fmt.Errorf("failed to load settings: %w", err))
	}
	if rec.UserID == "" {
		return o.fail(errors.New("user id is not configured; set one before capturing"))
	}
	if err := config.ValidateEndpoint(rec.APIEndpoint); err != nil {
		return o.fail(err)
	}

	o.status.Progress("Capturing page...")
	o.ensureEngine(ctx)

	resp, err := o.bus.Call(ctx, bus.Request{Action: schemas.ActionCapture})
	if err != nil {
		return o.fail(fmt.Errorf("capture failed: %w", err))
	}
	result, ok := resp.Payload.(schemas.CaptureResult)
	if !ok {
		return o.fail(errors.New("capture failed: malformed response from engine"))
	}
	if !result.Success {
		return o.fail(fmt.Errorf("capture failed: %s", result.Error))
	}
	if result.HTML == "" {
		return o.fail(errors.New("capture failed: engine returned an empty snapshot"))
	}

	payload := schemas.NewIngestPayload(result.Bundle(), rec.UserID, o.clock())
	if o.OnPayload != nil {
		o.OnPayload(payload)
	}

	o.status.Progress("Sending to API...")
	resp, err = o.bus.Call(ctx, bus.Request{
		Action: schemas.ActionSendToAPI,
		Payload: schemas.SendToAPIRequest{
			Endpoint: rec.APIEndpoint,
			Payload:  payload,
		},
	})
	if err != nil {
		return o.fail(fmt.Errorf("upload failed: %w", err))
	}
	sendResult, ok := resp.Payload.(schemas.SendToAPIResult)
	if !ok {
		return o.fail(errors.New("upload failed: malformed response from relay"))
	}
	if !sendResult.Success {
		return o.fail(fmt.Errorf("upload failed: %s", sendResult.Error))
	}

	o.status.Success("Sent!")
	o.logger.Info("Capture pipeline finished.",
		zap.String("user_id", rec.UserID),
		zap.String("endpoint", rec.APIEndpoint),
		zap.Int("assets", len(payload.Assets)))

	if sendResult.Response != nil {
		return *sendResult.Response, nil
	}
	return schemas.IngestReceipt{}, nil
}

// CheckStatus probes the configured endpoint and reports the verdict.
func (o *Orchestrator) CheckStatus(ctx context.Context) (string, error) {
	rec, err := o.store.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateEndpoint(rec.APIEndpoint); err != nil {
		return "", err
	}

	resp, err := o.bus.Call(ctx, bus.Request{
		Action:  schemas.ActionCheckAPIStatus,
		Payload: schemas.CheckAPIStatusRequest{Endpoint: rec.APIEndpoint},
	})
	if err != nil {
		return "", fmt.Errorf("status check failed: %w", err)
	}
	result, ok := resp.Payload.(schemas.CheckAPIStatusResult)
	if !ok {
		return "", errors.New("status check failed: malformed response from relay")
	}
	if result.Status == "" {
		return "", fmt.Errorf("status check failed: %s", result.Error)
	}
	return result.Status, nil
}

// SaveSettings validates and persists the whole settings record.
func (o *Orchestrator) SaveSettings(rec config.Record) error {
	if rec.UserID == "" {
		return errors.New("user id must not be empty")
	}
	if err := config.ValidateEndpoint(rec.APIEndpoint); err != nil {
		return err
	}
	if err := o.store.Save(rec); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}

// ensureEngine attaches the engine to the page. A repeat attach is the
// expected steady state; any other failure is deferred to the capture call,
// which reports it with full context.
func (o *Orchestrator) ensureEngine(ctx context.Context) {
	err := o.engine.Ensure(ctx)
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrAlreadyAttached):
		o.logger.Debug("Engine already attached.")
	default:
		o.logger.Warn("Engine attach reported an error; capture will surface the real state.", zap.Error(err))
	}
}

func (o *Orchestrator) fail(err error) (schemas.IngestReceipt, error) {
	o.status.Error(err.Error())
	return schemas.IngestReceipt{}, err
}
