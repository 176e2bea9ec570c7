// internal/capture/engine.go
package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
)

// Evaluator abstracts JavaScript evaluation inside the inspected page, so the
// harvest logic is testable without a live browser.
type Evaluator interface {
	// Evaluate runs an expression and unmarshals its JSON result into out.
	Evaluate(ctx context.Context, expr string, out any) error
	// AwaitFunction polls a predicate function until truthy or the timeout
	// elapses; the timeout cancels interest in the predicate.
	AwaitFunction(ctx context.Context, fn string, timeout time.Duration) error
}

// AssetFetcher inlines a remote image as a data URI.
type AssetFetcher interface {
	FetchAsDataURI(ctx context.Context, rawURL string) (string, error)
}

// Config tunes one engine instance.
type Config struct {
	ImageLoadTimeout  time.Duration
	MinImageDimension int
	FetchConcurrency  int
}

// Engine extracts a capture bundle from the current page state. Capture is
// idempotent: every call re-derives metadata, snapshot and assets from
// scratch; nothing is cached between calls.
type Engine struct {
	eval    Evaluator
	fetcher AssetFetcher
	cfg     Config
	logger  *zap.Logger
}

// NewEngine wires an engine to a page evaluator and an asset fetcher.
func NewEngine(eval Evaluator, fetcher AssetFetcher, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ImageLoadTimeout <= 0 {
		cfg.ImageLoadTimeout = 5 * time.Second
	}
	if cfg.MinImageDimension <= 0 {
		cfg.MinImageDimension = 300
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}
	return &Engine{
		eval:    eval,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.Named("capture"),
	}
}

// Capture produces the bundle for the current page. Metadata or snapshot
// failure fails the capture; asset harvesting failures only shrink the asset
// list.
func (e *Engine) Capture(ctx context.Context) (schemas.CaptureBundle, error) {
	var meta schemas.PageMetadata
	if err := e.eval.Evaluate(ctx, metadataJS, &meta); err != nil {
		return schemas.CaptureBundle{}, fmt.Errorf("failed to extract page metadata: %w", err)
	}

	var rawDoc string
	if err := e.eval.Evaluate(ctx, snapshotJS, &rawDoc); err != nil {
		return schemas.CaptureBundle{}, fmt.Errorf("failed to serialize document: %w", err)
	}
	snapshot := NormalizeSnapshot(rawDoc, meta.URL)

	assets := e.harvestCanvases(ctx)
	assets = append(assets, e.harvestImages(ctx)...)

	e.logger.Info("Capture complete.",
		zap.String("url", meta.URL),
		zap.Int("snapshot_bytes", len(snapshot)),
		zap.Int("assets", len(assets)))

	return schemas.CaptureBundle{
		URL:          meta.URL,
		Domain:       meta.Domain,
		Title:        meta.Title,
		HTMLSnapshot: snapshot,
		Assets:       assets,
	}, nil
}

// canvasProbe mirrors the in-page canvas enumeration result.
type canvasProbe struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	DataURL string `json:"dataUrl"`
	Error   string `json:"error"`
}

func (e *Engine) harvestCanvases(ctx context.Context) []schemas.Asset {
	var probes []canvasProbe
	if err := e.eval.Evaluate(ctx, canvasProbeJS, &probes); err != nil {
		e.logger.Warn("Canvas enumeration failed; continuing without canvas assets.", zap.Error(err))
		return nil
	}
	return buildCanvasAssets(probes, e.logger)
}

// buildCanvasAssets filters probes into assets: zero-dimension canvases are
// dropped silently, tainted ones with a warning, and nothing is emitted in
// their place.
func buildCanvasAssets(probes []canvasProbe, logger *zap.Logger) []schemas.Asset {
	assets := make([]schemas.Asset, 0, len(probes))
	for i, p := range probes {
		if p.Width <= 0 || p.Height <= 0 {
			continue
		}
		if p.Error != "" {
			logger.Warn("Skipping unserializable canvas.",
				zap.Int("index", i),
				zap.String("reason", p.Error))
			continue
		}
		if p.DataURL == "" {
			continue
		}
		assets = append(assets, schemas.Asset{
			Type:   schemas.AssetTypeCanvasChart,
			Base64: p.DataURL,
			Width:  p.Width,
			Height: p.Height,
		})
	}
	return assets
}

// imageProbe mirrors the in-page image enumeration result.
type imageProbe struct {
	Src           string `json:"src"`
	CurrentSrc    string `json:"currentSrc"`
	Complete      bool   `json:"complete"`
	NaturalWidth  int    `json:"naturalWidth"`
	NaturalHeight int    `json:"naturalHeight"`
}

// effectiveSrc prefers the resolved responsive source over the attribute.
func (p imageProbe) effectiveSrc() string {
	if p.CurrentSrc != "" {
		return p.CurrentSrc
	}
	return p.Src
}

func isDataURI(src string) bool {
	return strings.HasPrefix(strings.ToLower(src), "data:")
}

type imageAction int

const (
	imageSkip imageAction = iota
	imageInline
	imageFetch
)

// classifyImage applies the inclusion rule to a settled image: inline
// sources pass through untouched, remote sources qualify only when both
// natural dimensions reach minDim.
func classifyImage(p imageProbe, minDim int) imageAction {
	src := p.effectiveSrc()
	if src == "" {
		return imageSkip
	}
	if isDataURI(src) {
		return imageInline
	}
	// A completed load with zero natural size is the browser's way of
	// reporting a broken image.
	if p.NaturalWidth <= 0 || p.NaturalHeight <= 0 {
		return imageSkip
	}
	if p.NaturalWidth < minDim || p.NaturalHeight < minDim {
		return imageSkip
	}
	return imageFetch
}

func (e *Engine) harvestImages(ctx context.Context) []schemas.Asset {
	var probes []imageProbe
	if err := e.eval.Evaluate(ctx, imageProbeJS, &probes); err != nil {
		e.logger.Warn("Image enumeration failed; continuing without image assets.", zap.Error(err))
		return nil
	}

	// Settle loading images and classify each one. The slot slice keeps
	// document order stable regardless of fetch completion order.
	slots := make([]*schemas.Asset, len(probes))
	type fetchJob struct {
		slot int
		src  string
	}
	var jobs []fetchJob

	for i, p := range probes {
		p, ok := e.settleImage(ctx, i, p)
		if !ok {
			continue
		}
		switch classifyImage(p, e.cfg.MinImageDimension) {
		case imageInline:
			slots[i] = &schemas.Asset{
				Type:   schemas.AssetTypeImage,
				Base64: p.effectiveSrc(),
				Width:  p.NaturalWidth,
				Height: p.NaturalHeight,
			}
		case imageFetch:
			slots[i] = &schemas.Asset{
				Type:   schemas.AssetTypeImage,
				SrcURL: p.effectiveSrc(),
				Width:  p.NaturalWidth,
				Height: p.NaturalHeight,
			}
			jobs = append(jobs, fetchJob{slot: i, src: p.effectiveSrc()})
		}
	}

	// Inline remote images concurrently. A failed fetch is the degraded
	// URL-only path, never an error: the goroutines always return nil.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.FetchConcurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			dataURI, err := e.fetcher.FetchAsDataURI(gctx, job.src)
			if err != nil {
				e.logger.Debug("Could not inline remote image; keeping source URL only.",
					zap.String("src", job.src),
					zap.Error(err))
				return nil
			}
			slots[job.slot].Base64 = dataURI
			return nil
		})
	}
	_ = g.Wait()

	assets := make([]schemas.Asset, 0, len(slots))
	for _, a := range slots {
		if a != nil {
			assets = append(assets, *a)
		}
	}
	return assets
}

// settleImage waits out a still-loading image and re-probes it. Returns
// false when the image should be skipped (timeout, evaluation failure).
func (e *Engine) settleImage(ctx context.Context, index int, p imageProbe) (imageProbe, bool) {
	if p.Complete {
		return p, true
	}
	if err := e.eval.AwaitFunction(ctx, imageSettledFnJS(index), e.cfg.ImageLoadTimeout); err != nil {
		e.logger.Debug("Skipping image that did not settle in time.",
			zap.Int("index", index),
			zap.Error(err))
		return p, false
	}
	var settled imageProbe
	if err := e.eval.Evaluate(ctx, imageProbeAtJS(index), &settled); err != nil {
		e.logger.Debug("Skipping image that could not be re-probed.",
			zap.Int("index", index),
			zap.Error(err))
		return p, false
	}
	return settled, true
}
