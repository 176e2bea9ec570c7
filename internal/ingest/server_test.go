// internal/ingest/server_test.go
package ingest

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
	"github.com/pagesnap/pagesnap-cli/internal/config"
)

func testServer(t *testing.T) (*Server, *Store) {
	t.Helper()
	store := NewStore(t.TempDir())
	store.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	srv := NewServer(config.IngestConfig{Addr: ":0", DataDir: store.Dir()}, store, zap.NewNop())
	return srv, store
}

func payloadJSON(t *testing.T, p schemas.IngestPayload) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func samplePayload() schemas.IngestPayload {
	return schemas.IngestPayload{
		UserID:       "analyst-7",
		SourceURL:    "https://market.example.com/quotes",
		Domain:       "market.example.com",
		Title:        "Quotes",
		HTMLSnapshot: "<html><head></head><body></body></html>",
		CapturedAt:   "2026-03-14T09:29:58Z",
		Assets: []schemas.Asset{
			{Type: schemas.AssetTypeCanvasChart, Base64: "data:image/png;base64,x", Width: 800, Height: 400},
			{Type: schemas.AssetTypeImage, SrcURL: "https://cdn.example.com/a.png", Width: 400, Height: 400},
		},
	}
}

func TestIngest_StoresBundleAndReturnsReceipt(t *testing.T) {
	srv, store := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/extension", payloadJSON(t, samplePayload()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var receipt schemas.IngestReceipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.True(t, receipt.Success)
	assert.Equal(t, 2, receipt.Stats.TotalAssets)
	assert.Equal(t, 1, receipt.Stats.CanvasCharts)
	assert.Equal(t, 1, receipt.Stats.Images)
	assert.Equal(t, "analyst-7", receipt.Metadata.UserID)

	// File name encodes receive time, domain and user; dots are flattened.
	wantName := "20260314_093000_market_example_com_analyst-7.json"
	assert.Equal(t, wantName, filepath.Base(receipt.Filepath))

	raw, err := os.ReadFile(filepath.Join(store.Dir(), wantName))
	require.NoError(t, err)
	var stored schemas.IngestPayload
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, samplePayload(), stored)
}

func TestIngest_RejectsMissingFields(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name    string
		mutate  func(*schemas.IngestPayload)
		wantMsg string
	}{
		{"missing user", func(p *schemas.IngestPayload) { p.UserID = "" }, "user_id"},
		{"missing snapshot", func(p *schemas.IngestPayload) { p.HTMLSnapshot = "" }, "html_snapshot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePayload()
			tt.mutate(&p)

			req := httptest.NewRequest(http.MethodPost, "/api/ingest/extension", payloadJSON(t, p))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
		})
	}
}

func TestIngest_RejectsMalformedJSON(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/extension", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_PreflightProbe(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/ingest/extension", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := NewStore(t.TempDir())
	times := []time.Time{
		time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	i := 0
	store.now = func() time.Time { t := times[i]; i++; return t }

	for range times {
		_, err := store.Save(samplePayload())
		require.NoError(t, err)
	}

	paths, err := store.List()
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Contains(t, filepath.Base(paths[0]), "20260314_110000")
	assert.Contains(t, filepath.Base(paths[1]), "20260314_100000")
	assert.Contains(t, filepath.Base(paths[2]), "20260314_090000")
}

func TestStore_ListMissingDirIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))
	paths, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestStore_LoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	path, err := store.Save(samplePayload())
	require.NoError(t, err)

	got, err := store.Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(samplePayload(), got); diff != "" {
		t.Errorf("stored payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeComponent(t *testing.T) {
	assert.Equal(t, "market_example_com", sanitizeComponent("market.example.com"))
	assert.Equal(t, "a_b_c", sanitizeComponent("a/b c"))
	assert.Equal(t, "unknown", sanitizeComponent(""))
}
