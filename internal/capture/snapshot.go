// internal/capture/snapshot.go
package capture

import (
	"net/url"
	"regexp"
	"strings"
)

// Tag detection is regex-on-string rather than a DOM parse: running the
// serialized document through an HTML parser would re-serialize and normalize
// markup the snapshot must carry verbatim.
var (
	baseTagPattern  = regexp.MustCompile(`(?i)<base\b`)
	headOpenPattern = regexp.MustCompile(`(?i)<head\b[^>]*>`)
	htmlOpenPattern = regexp.MustCompile(`(?i)<html\b[^>]*>`)
)

// NormalizeSnapshot anchors relative resource references in a serialized
// document by injecting a base directive. Resolution order:
//
//   - a base tag already present: the document is returned untouched;
//   - a head-opening tag exists: the directive is inserted immediately
//     after it;
//   - only a document-root tag exists: a synthetic head holding the
//     directive is inserted immediately after it;
//   - neither marker exists (malformed or fragment input): the document is
//     returned unmodified.
//
// The base href is scheme://host/path of pageURL with query and fragment
// stripped. An unparseable pageURL leaves the snapshot unmodified.
func NormalizeSnapshot(doc, pageURL string) string {
	if baseTagPattern.MatchString(doc) {
		return doc
	}

	href := baseHrefFor(pageURL)
	if href == "" {
		return doc
	}
	baseTag := `<base href="` + href + `">`

	if loc := headOpenPattern.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + baseTag + doc[loc[1]:]
	}
	if loc := htmlOpenPattern.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + "<head>" + baseTag + "</head>" + doc[loc[1]:]
	}
	return doc
}

// baseHrefFor computes scheme://host/path, dropping query and fragment.
// Returns "" when pageURL cannot anchor relative references.
func baseHrefFor(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())
	return b.String()
}
