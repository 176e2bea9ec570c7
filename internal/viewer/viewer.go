// internal/viewer/viewer.go

// Package viewer inspects bundles already collected by the ingestion server:
// listing, summarizing and exporting the stored snapshot for inspection in a
// browser.
package viewer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
	"github.com/pagesnap/pagesnap-cli/internal/ingest"
)

// maxAssetRows caps the asset detail listing per bundle.
const maxAssetRows = 10

// Viewer renders stored bundles to a terminal.
type Viewer struct {
	store  *ingest.Store
	out    io.Writer
	logger *zap.Logger
}

// New builds a viewer over the given store.
func New(store *ingest.Store, out io.Writer, logger *zap.Logger) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Viewer{store: store, out: out, logger: logger.Named("viewer")}
}

// Entry is one row of the capture listing.
type Entry struct {
	Path       string
	Domain     string
	Title      string
	UserID     string
	CapturedAt string
	Stats      schemas.IngestStats
}

// Entries loads the listing, newest first. Unreadable files are skipped with
// a warning rather than failing the whole listing.
func (v *Viewer) Entries() ([]Entry, error) {
	paths, err := v.store.List()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		payload, err := v.store.Load(path)
		if err != nil {
			v.logger.Warn("Skipping unreadable bundle.", zap.String("path", path), zap.Error(err))
			continue
		}
		entries = append(entries, Entry{
			Path:       path,
			Domain:     payload.Domain,
			Title:      payload.Title,
			UserID:     payload.UserID,
			CapturedAt: payload.CapturedAt,
			Stats:      payload.Stats(),
		})
	}
	return entries, nil
}

// RenderList prints the capture listing.
func (v *Viewer) RenderList() error {
	entries, err := v.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(v.out, "No captures found in %s\n", v.store.Dir())
		return nil
	}
	fmt.Fprintf(v.out, "%d capture(s) in %s (newest first)\n\n", len(entries), v.store.Dir())
	for i, e := range entries {
		fmt.Fprintf(v.out, "%3d  %-28s  %-40q  %d asset(s)  %s\n",
			i+1, e.Domain, truncate(e.Title, 38), e.Stats.TotalAssets, filepath.Base(e.Path))
	}
	return nil
}

// RenderSummary prints one bundle's metadata, statistics and, when asked,
// its leading asset details.
func (v *Viewer) RenderSummary(path string, withAssets bool) error {
	payload, err := v.store.Load(path)
	if err != nil {
		return err
	}
	stats := payload.Stats()

	fmt.Fprintf(v.out, "File:        %s\n", filepath.Base(path))
	fmt.Fprintf(v.out, "User:        %s\n", payload.UserID)
	fmt.Fprintf(v.out, "Captured:    %s\n", payload.CapturedAt)
	fmt.Fprintf(v.out, "URL:         %s\n", payload.SourceURL)
	fmt.Fprintf(v.out, "Title:       %s\n", payload.Title)
	fmt.Fprintf(v.out, "Snapshot:    %d bytes\n", stats.HTMLSize)
	fmt.Fprintf(v.out, "Assets:      %d total (%d canvas, %d image)\n",
		stats.TotalAssets, stats.CanvasCharts, stats.Images)

	if !withAssets || len(payload.Assets) == 0 {
		return nil
	}
	fmt.Fprintln(v.out)
	for i, a := range payload.Assets {
		if i == maxAssetRows {
			fmt.Fprintf(v.out, "  ... and %d more\n", len(payload.Assets)-maxAssetRows)
			break
		}
		fmt.Fprintf(v.out, "  [%d] %-12s %dx%d  %s\n", i+1, a.Type, a.Width, a.Height, describeAsset(a))
	}
	return nil
}

// ExportHTML writes the stored snapshot to dest so it can be opened in a
// browser; the embedded base directive keeps relative references working.
func (v *Viewer) ExportHTML(path, dest string) error {
	payload, err := v.store.Load(path)
	if err != nil {
		return err
	}
	if payload.HTMLSnapshot == "" {
		return fmt.Errorf("bundle %s has no snapshot", filepath.Base(path))
	}
	if err := os.WriteFile(dest, []byte(payload.HTMLSnapshot), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	fmt.Fprintf(v.out, "Snapshot written to %s (%d bytes)\n", dest, len(payload.HTMLSnapshot))
	return nil
}

func describeAsset(a schemas.Asset) string {
	switch {
	case a.Base64 != "" && a.SrcURL != "":
		return fmt.Sprintf("inlined from %s", a.SrcURL)
	case a.Base64 != "":
		return fmt.Sprintf("inline, %d bytes", len(a.Base64))
	case a.SrcURL != "":
		return fmt.Sprintf("reference only: %s", a.SrcURL)
	}
	return "empty"
}

// truncate shortens on rune boundaries so multibyte titles never render as
// mangled escapes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
