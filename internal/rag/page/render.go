package page

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Svg:      true,
}

var blocks = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Body: true, atom.Dd: true, atom.Details: true, atom.Div: true,
	atom.Dl: true, atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Summary: true, atom.Table: true, atom.Tr: true, atom.Ul: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true,
}

var headingLevel = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// textWriter accumulates rendered text. Blocks are separated by a single
// newline and inline whitespace is collapsed outside <pre>.
type textWriter struct {
	sb  strings.Builder
	pre int

	// space is set when whitespace separates the last word from the next.
	space bool
}

func (w *textWriter) String() string {
	lines := strings.Split(w.sb.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n ")
}

func (w *textWriter) atLineStart() bool {
	s := w.sb.String()
	return s == "" || strings.HasSuffix(s, "\n")
}

func (w *textWriter) newline() {
	if !w.atLineStart() {
		w.sb.WriteByte('\n')
	}
	w.space = false
}

func (w *textWriter) text(s string) {
	if s == "" {
		return
	}
	if w.pre > 0 {
		w.sb.WriteString(s)
		w.space = false
		return
	}
	r := []rune(s)
	if isSpace(r[0]) {
		w.space = true
	}
	for i, field := range strings.FieldsFunc(s, isSpace) {
		if (i > 0 || w.space) && !w.atLineStart() {
			w.sb.WriteByte(' ')
		}
		w.sb.WriteString(field)
		w.space = false
	}
	if isSpace(r[len(r)-1]) {
		w.space = true
	}
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c)
		}
		return
	}

	if skipped[n.DataAtom] {
		return
	}

	switch n.DataAtom {
	case atom.Br:
		w.sb.WriteByte('\n')
		w.space = false
		return
	case atom.Img:
		if alt := collapse(attr(n, "alt")); alt != "" {
			w.text(" " + alt + " ")
		}
		return
	}

	block := blocks[n.DataAtom]
	if block {
		w.newline()
	}
	if level, ok := headingLevel[n.DataAtom]; ok {
		w.sb.WriteString(strings.Repeat("#", level) + " ")
		w.space = false
	}
	if n.DataAtom == atom.Li {
		w.sb.WriteString("* ")
		w.space = false
	}
	if n.DataAtom == atom.Pre {
		w.pre++
	}
	if n.DataAtom == atom.Td || n.DataAtom == atom.Th {
		w.space = true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	if n.DataAtom == atom.Pre {
		w.pre--
	}
	if block {
		w.newline()
	}
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\u00a0':
		return true
	}
	return false
}
