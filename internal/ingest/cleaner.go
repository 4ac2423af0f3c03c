package ingest

import (
	"regexp"
	"strings"
)

var (
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	spacesRe     = regexp.MustCompile(` {3,}`)
	controlRe    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// Clean normalizes raw extracted text: CRLF -> LF, tabs -> space, collapses
// 3+ blank lines to 2 and 3+ spaces to 1, strips C0 control characters
// (preserving \n and \t), and trims outer whitespace. Ported from
// original_source's ingestion/processors/text_cleaner.py. Idempotent.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = spacesRe.ReplaceAllString(text, " ")
	text = controlRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
