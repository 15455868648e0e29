package schema

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML reduces markup-bearing text to plain text: tag contents are
// kept, tags themselves dropped, and whitespace collapsed to single
// spaces. The tokenizer is permissive, so malformed markup degrades to
// best-effort text rather than an error.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	tz := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(tz.Text())
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
