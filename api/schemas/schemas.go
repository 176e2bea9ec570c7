// api/schemas/schemas.go
package schemas

import "time"

// AssetType discriminates the two kinds of harvested visual assets.
type AssetType string

const (
	AssetTypeCanvasChart AssetType = "canvas_chart"
	AssetTypeImage       AssetType = "image"
)

// Asset is one harvested visual element. For canvas_chart assets Base64 is
// always set and Width/Height are positive. For image assets at least one of
// Base64/SrcURL is set; both co-occur when a remote image was inlined.
type Asset struct {
	Type   AssetType `json:"type"`
	Base64 string    `json:"base64,omitempty"`
	SrcURL string    `json:"src_url,omitempty"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
}

// PageMetadata is derived read-only from the live page at capture time.
type PageMetadata struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Title  string `json:"title"`
}

// CaptureBundle is the complete, immutable output of one capture pass.
// Assets are ordered canvases-then-images in document order.
type CaptureBundle struct {
	URL          string  `json:"url"`
	Domain       string  `json:"domain"`
	Title        string  `json:"title"`
	HTMLSnapshot string  `json:"htmlSnapshot"`
	Assets       []Asset `json:"assets"`
}

// IngestPayload is the wire format POSTed to the ingestion endpoint. It is a
// CaptureBundle augmented by the orchestrator with the configured user and a
// capture timestamp.
type IngestPayload struct {
	UserID       string  `json:"user_id"`
	SourceURL    string  `json:"source_url"`
	Domain       string  `json:"domain"`
	Title        string  `json:"title"`
	HTMLSnapshot string  `json:"html_snapshot"`
	CapturedAt   string  `json:"captured_at"`
	Assets       []Asset `json:"assets"`
}

// NewIngestPayload merges a capture bundle with the uploading user and the
// capture timestamp (serialized as RFC 3339 / ISO-8601).
func NewIngestPayload(bundle CaptureBundle, userID string, capturedAt time.Time) IngestPayload {
	return IngestPayload{
		UserID:       userID,
		SourceURL:    bundle.URL,
		Domain:       bundle.Domain,
		Title:        bundle.Title,
		HTMLSnapshot: bundle.HTMLSnapshot,
		CapturedAt:   capturedAt.UTC().Format(time.RFC3339),
		Assets:       bundle.Assets,
	}
}

// IngestStats summarizes a stored bundle in the ingestion server's response.
type IngestStats struct {
	TotalAssets  int `json:"total_assets"`
	CanvasCharts int `json:"canvas_charts"`
	Images       int `json:"images"`
	HTMLSize     int `json:"html_size"`
}

// IngestMetadata echoes back the identifying fields of the stored bundle.
type IngestMetadata struct {
	UserID     string `json:"user_id"`
	Domain     string `json:"domain"`
	Title      string `json:"title"`
	SourceURL  string `json:"source_url"`
	CapturedAt string `json:"captured_at"`
}

// IngestReceipt is the ingestion server's success response body.
type IngestReceipt struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Filepath string         `json:"filepath,omitempty"`
	Stats    IngestStats    `json:"stats"`
	Metadata IngestMetadata `json:"metadata"`
}

// Stats derives the receipt statistics from a payload.
func (p IngestPayload) Stats() IngestStats {
	s := IngestStats{TotalAssets: len(p.Assets), HTMLSize: len(p.HTMLSnapshot)}
	for _, a := range p.Assets {
		switch a.Type {
		case AssetTypeCanvasChart:
			s.CanvasCharts++
		case AssetTypeImage:
			s.Images++
		}
	}
	return s
}
