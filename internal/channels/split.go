package channels

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split breaks text into pieces of at most maxBytes, preferring paragraph
// breaks, then line breaks, then sentence ends, then spaces. Pieces never
// split a UTF-8 sequence.
func Split(text string, maxBytes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []string{text}
	}

	var parts []string
	rest := text
	for len(rest) > maxBytes {
		cut := breakPoint(rest, maxBytes)
		if part := strings.TrimRightFunc(rest[:cut], unicode.IsSpace); part != "" {
			parts = append(parts, part)
		}
		rest = strings.TrimLeftFunc(rest[cut:], unicode.IsSpace)
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func breakPoint(text string, max int) int {
	window := text[:max]
	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return i + 1
	}
	if i := strings.LastIndexByte(window, '\n'); i > 0 {
		return i + 1
	}
	best := -1
	for _, end := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(window, end); i > best {
			best = i
		}
	}
	if best > 0 {
		return best + 1
	}
	if i := strings.LastIndexFunc(window, unicode.IsSpace); i > 0 {
		return i
	}
	// Hard break on a rune boundary.
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(text)
		return size
	}
	return cut
}
