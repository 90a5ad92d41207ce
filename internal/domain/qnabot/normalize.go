package qnabot

import (
	"strings"
	"unicode"
)

const (
	hostScheme = "https://"
	hostSuffix = "/qnamaker"
)

// NormalizeHost makes sure the endpoint host carries the https scheme and the
// /qnamaker path. Applying it twice yields the same string.
func NormalizeHost(host string) string {
	if !strings.HasPrefix(host, hostScheme) {
		host = hostScheme + host
	}
	if !strings.HasSuffix(host, hostSuffix) {
		host += hostSuffix
	}
	return host
}

// normalizeQuery folds a question into a cache and trending key.
func normalizeQuery(q string) string {
	lowered := strings.ToLower(strings.TrimSpace(q))
	var builder strings.Builder
	builder.Grow(len(lowered))
	lastSpace := true
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
			lastSpace = false
			continue
		}
		// whitespace and punctuation collapse into one space
		if !lastSpace {
			builder.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}
