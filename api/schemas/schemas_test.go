// api/schemas/schemas_test.go
package schemas

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewIngestPayload_MergesBundleAndIdentity verifies the orchestrator-side
// augmentation: the bundle fields pass through untouched and the timestamp is
// serialized as RFC 3339 UTC.
func TestNewIngestPayload_MergesBundleAndIdentity(t *testing.T) {
	bundle := CaptureBundle{
		URL:          "https://example.com/charts?tab=1#top",
		Domain:       "example.com",
		Title:        "Charts",
		HTMLSnapshot: "<html></html>",
		Assets: []Asset{
			{Type: AssetTypeCanvasChart, Base64: "data:image/png;base64,AAAA", Width: 800, Height: 400},
		},
	}
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("CST", 8*3600))

	p := NewIngestPayload(bundle, "user-42", at)

	assert.Equal(t, "user-42", p.UserID)
	assert.Equal(t, bundle.URL, p.SourceURL)
	assert.Equal(t, bundle.Domain, p.Domain)
	assert.Equal(t, bundle.Title, p.Title)
	assert.Equal(t, bundle.HTMLSnapshot, p.HTMLSnapshot)
	assert.Equal(t, "2026-03-14T01:26:53Z", p.CapturedAt)
	assert.Equal(t, bundle.Assets, p.Assets)
}

// TestIngestPayload_WireFormat pins the JSON field names the ingestion API
// expects. A rename here is a wire protocol break, not a refactor.
func TestIngestPayload_WireFormat(t *testing.T) {
	p := IngestPayload{
		UserID:       "u1",
		SourceURL:    "https://example.com/",
		Domain:       "example.com",
		Title:        "t",
		HTMLSnapshot: "<html></html>",
		CapturedAt:   "2026-03-14T01:26:53Z",
		Assets: []Asset{
			{Type: AssetTypeImage, SrcURL: "https://example.com/a.png", Width: 320, Height: 320},
		},
	}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"user_id", "source_url", "domain", "title", "html_snapshot", "captured_at", "assets"} {
		assert.Contains(t, decoded, key)
	}

	assets := decoded["assets"].([]any)
	require.Len(t, assets, 1)
	asset := assets[0].(map[string]any)
	assert.Equal(t, "image", asset["type"])
	assert.Contains(t, asset, "src_url")
	// base64 is omitted for URL-only fallback assets.
	assert.NotContains(t, asset, "base64")
}

func TestIngestPayload_Stats(t *testing.T) {
	p := IngestPayload{
		HTMLSnapshot: "<html><body>hi</body></html>",
		Assets: []Asset{
			{Type: AssetTypeCanvasChart, Base64: "data:image/png;base64,AA", Width: 1, Height: 1},
			{Type: AssetTypeImage, SrcURL: "https://example.com/a.png", Width: 500, Height: 500},
			{Type: AssetTypeImage, Base64: "data:image/gif;base64,BB", Width: 400, Height: 400},
		},
	}

	s := p.Stats()
	assert.Equal(t, 3, s.TotalAssets)
	assert.Equal(t, 1, s.CanvasCharts)
	assert.Equal(t, 2, s.Images)
	assert.Equal(t, len(p.HTMLSnapshot), s.HTMLSize)
}
