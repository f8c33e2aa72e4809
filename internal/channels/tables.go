package channels

import (
	"regexp"
	"strings"
)

// TableMode selects how markdown tables in a reply are rewritten for a
// channel that shows plain text.
type TableMode string

const (
	// TableModeOff leaves tables untouched.
	TableModeOff TableMode = "off"
	// TableModeBullets turns each row into a "- Header: value; ..." line.
	TableModeBullets TableMode = "bullets"
)

var (
	tableRow       = regexp.MustCompile(`^\s*\|(.+)\|\s*$`)
	tableSeparator = regexp.MustCompile(`^\s*\|[\s\-:|]+\|\s*$`)
)

// FlattenTables rewrites every markdown table in text according to mode. A
// table is a header row, a separator row and at least one data row; any
// other run of pipe lines is left alone.
func FlattenTables(text string, mode TableMode) string {
	if mode != TableModeBullets || !strings.Contains(text, "|") {
		return text
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		end := tableEnd(lines, i)
		if end == i {
			out = append(out, lines[i])
			i++
			continue
		}
		headers := cells(lines[i])
		for _, row := range lines[i+2 : end] {
			if line := bulletRow(headers, cells(row)); line != "" {
				out = append(out, line)
			}
		}
		i = end
	}
	return strings.Join(out, "\n")
}

// tableEnd returns the line after the table starting at i, or i when no
// table starts there.
func tableEnd(lines []string, i int) int {
	if i+2 >= len(lines) || !tableRow.MatchString(lines[i]) || !tableSeparator.MatchString(lines[i+1]) {
		return i
	}
	end := i + 2
	for end < len(lines) && tableRow.MatchString(lines[end]) {
		end++
	}
	if end == i+2 {
		return i
	}
	return end
}

func cells(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimSuffix(strings.TrimPrefix(row, "|"), "|")
	parts := strings.Split(row, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func bulletRow(headers, row []string) string {
	var parts []string
	for i, cell := range row {
		if cell == "" {
			continue
		}
		if i < len(headers) && headers[i] != "" {
			cell = headers[i] + ": " + cell
		}
		parts = append(parts, cell)
	}
	if len(parts) == 0 {
		return ""
	}
	return "- " + strings.Join(parts, "; ")
}
