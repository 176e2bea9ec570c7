// internal/capture/snapshot_test.go
package capture

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://market.example.com/quotes/hs300?range=1d#chart"

func TestNormalizeSnapshot_InsertsBaseAfterHead(t *testing.T) {
	doc := `<!DOCTYPE html><html><head><title>Quotes</title></head><body></body></html>`

	got := NormalizeSnapshot(doc, pageURL)

	// Exactly one base directive, immediately after the head-opening tag,
	// query and fragment stripped from the href.
	assert.Equal(t, 1, strings.Count(strings.ToLower(got), "<base"))
	assert.Contains(t, got, `<head><base href="https://market.example.com/quotes/hs300">`)
}

func TestNormalizeSnapshot_HeadWithAttributes(t *testing.T) {
	doc := `<html><head lang="zh-CN" data-x="1"><meta charset="utf-8"></head><body></body></html>`

	got := NormalizeSnapshot(doc, "http://example.com/a/b")

	assert.Contains(t, got, `<head lang="zh-CN" data-x="1"><base href="http://example.com/a/b">`)
}

func TestNormalizeSnapshot_ExistingBaseUntouched(t *testing.T) {
	for _, doc := range []string{
		`<html><head><base href="https://cdn.example.com/"><title>t</title></head></html>`,
		`<html><head><BASE HREF="/x"></head></html>`, // case-insensitive detection
	} {
		got := NormalizeSnapshot(doc, pageURL)
		assert.Equal(t, doc, got, "document with an existing base directive must round-trip unchanged")
	}
}

func TestNormalizeSnapshot_NoHeadSynthesizesOne(t *testing.T) {
	doc := `<html lang="en"><body><p>headless</p></body></html>`

	got := NormalizeSnapshot(doc, "https://example.com/path")

	assert.Contains(t, got, `<html lang="en"><head><base href="https://example.com/path"></head><body>`)
	assert.Equal(t, 1, strings.Count(got, "<base"))
}

func TestNormalizeSnapshot_NoMarkersUnmodified(t *testing.T) {
	doc := `<div>just a fragment</div>`
	assert.Equal(t, doc, NormalizeSnapshot(doc, pageURL))
}

func TestNormalizeSnapshot_UpperCaseMarkers(t *testing.T) {
	doc := `<HTML><HEAD></HEAD><BODY></BODY></HTML>`

	got := NormalizeSnapshot(doc, "https://example.com/")

	assert.Contains(t, got, `<HEAD><base href="https://example.com/">`)
}

func TestNormalizeSnapshot_UnparseablePageURL(t *testing.T) {
	doc := `<html><head></head></html>`
	assert.Equal(t, doc, NormalizeSnapshot(doc, "::not a url::"))
	assert.Equal(t, doc, NormalizeSnapshot(doc, ""))
}

func TestBaseHrefFor(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/a/b?q=1#frag", "https://example.com/a/b"},
		{"http://example.com", "http://example.com"},
		{"https://example.com:8443/x%20y?z", "https://example.com:8443/x%20y"},
		{"relative/path", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, baseHrefFor(tt.in), "input %q", tt.in)
	}
}
