// Package normalize cleans raw extracted text before chunking.
//
// Text runs three ordered passes:
//
//  1. words split by a hyphen at a line wrap are rejoined ("hyphen-\nated" becomes "hyphenated")
//  2. a lone newline (no newline on either side) becomes a space
//  3. runs of two or more newlines collapse to a single newline
//
// De-hyphenation must run first: once pass 2 has turned the wrap into a
// space the split word can no longer be recognized.
package normalize

import (
	"regexp"
	"strings"
)

var (
	hyphenWrap     = regexp.MustCompile(`([\p{L}\p{N}_])-\n([\p{L}\p{N}_])`)
	paragraphBreak = regexp.MustCompile(`\n{2,}`)
)

// Text returns the normalized form of s. It is a pure function.
func Text(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = hyphenWrap.ReplaceAllString(s, "$1$2")
	s = joinLoneNewlines(s)
	return paragraphBreak.ReplaceAllString(s, "\n")
}

// joinLoneNewlines replaces every newline that has no newline immediately
// before or after it with a space. RE2 has no lookaround, so this is a scan.
func joinLoneNewlines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	b := []byte(s)
	out := make([]byte, len(b))
	copy(out, b)
	for i, c := range b {
		if c != '\n' {
			continue
		}
		if i > 0 && b[i-1] == '\n' {
			continue
		}
		if i+1 < len(b) && b[i+1] == '\n' {
			continue
		}
		out[i] = ' '
	}
	return string(out)
}
