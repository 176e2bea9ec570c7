// internal/netfetch/fetcher_test.go
package netfetch

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestFetchAsDataURI_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		// An anonymous fetch must not carry cookies.
		assert.Empty(t, r.Header.Get("Cookie"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), Config{}, zap.NewNop())
	uri, err := f.FetchAsDataURI(context.Background(), srv.URL+"/chart.png")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), "got %q", uri)
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, decoded)
}

func TestFetchAsDataURI_SniffsMissingContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), Config{}, zap.NewNop())
	uri, err := f.FetchAsDataURI(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestFetchAsDataURI_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), Config{}, zap.NewNop())
	_, err := f.FetchAsDataURI(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestFetchAsDataURI_RejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), Config{}, zap.NewNop())
	_, err := f.FetchAsDataURI(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
}

func TestFetchAsDataURI_SizeCap(t *testing.T) {
	big := append(append([]byte{}, pngHeader...), make([]byte, 1024)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(big)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), Config{MaxBodyBytes: 64}, zap.NewNop())
	_, err := f.FetchAsDataURI(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size cap")
}

func TestFetchAsDataURI_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Deliberately dead.

	f := NewFetcher(nil, Config{}, zap.NewNop())
	_, err := f.FetchAsDataURI(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset fetch failed")
}
