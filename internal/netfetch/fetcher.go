// internal/netfetch/fetcher.go
package netfetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fetcher retrieves remote images and converts them to embedded data URIs.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	maxBodyBytes int64
}

// Config tunes a Fetcher.
type Config struct {
	// MaxBodyBytes caps the downloaded size of a single asset.
	MaxBodyBytes int64
	// RequestsPerSecond throttles outbound fetches across all assets of a
	// capture. Zero disables throttling.
	RequestsPerSecond float64
}

// NewFetcher assembles a fetcher on top of the credential-less client.
func NewFetcher(client *http.Client, cfg Config, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = NewClient(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 20 * 1024 * 1024
	}
	return &Fetcher{
		client:       client,
		limiter:      limiter,
		logger:       logger.Named("netfetch"),
		maxBodyBytes: maxBody,
	}
}

// FetchAsDataURI downloads rawURL and returns its body as a data URI. The
// request is anonymous: no cookies, no stored credentials. Any non-2xx
// status, oversized body, or non-image payload is an error; callers treat
// those as the degraded URL-only path, not as capture failures.
func (f *Fetcher) FetchAsDataURI(ctx context.Context, rawURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("fetch throttled out: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid asset URL: %w", err)
	}
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("asset fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("asset fetch returned status %d", resp.StatusCode)
	}

	// Read one byte past the cap to distinguish "exactly at cap" from
	// "too large".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read asset body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return "", fmt.Errorf("asset exceeds size cap of %d bytes", f.maxBodyBytes)
	}

	mimeType := sniffImageMime(resp.Header.Get("Content-Type"), body)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("asset is not an image (content type %q)", mimeType)
	}

	f.logger.Debug("Inlined remote asset.",
		zap.String("url", rawURL),
		zap.String("mime", mimeType),
		zap.Int("bytes", len(body)))

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}

// sniffImageMime prefers the declared content type and falls back to
// content sniffing when the server lies or stays silent.
func sniffImageMime(declared string, body []byte) string {
	declared = strings.TrimSpace(strings.Split(declared, ";")[0])
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return http.DetectContentType(body)
}
