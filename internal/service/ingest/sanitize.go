package ingest

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict drops every element and attribute; only text content survives.
var strict = bluemonday.StrictPolicy()

// sanitizeLine strips markup from a single-line field and collapses runs of
// whitespace. Entities left behind by the policy are unescaped so the stored
// value is plain text; escaping for display happens at render time.
func sanitizeLine(value string) string {
	cleaned := html.UnescapeString(strict.Sanitize(value))
	return strings.Join(strings.Fields(cleaned), " ")
}

// sanitizeBlock strips markup from a multi-line field while preserving line
// structure. Stack traces pass through here.
func sanitizeBlock(value string) string {
	normalized := strings.ReplaceAll(value, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(html.UnescapeString(strict.Sanitize(line)), " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
