package fakeide

import (
	"strings"
)

// document is an editor buffer with a cursor. Line and column are 0-based;
// the column counts runes.
type document struct {
	path    string
	lines   [][]rune
	line    int
	col     int
	version uint32
}

func newDocument(path, text string) *document {
	d := &document{path: path}
	d.setText(text)
	return d
}

func (d *document) setText(text string) {
	d.lines = d.lines[:0]
	for _, l := range strings.Split(text, "\n") {
		d.lines = append(d.lines, []rune(l))
	}
	d.line, d.col = 0, 0
	d.version++
}

func (d *document) text() string {
	return strings.Join(d.snapshot(), "\n")
}

func (d *document) snapshot() []string {
	out := make([]string, len(d.lines))
	for i, l := range d.lines {
		out[i] = string(l)
	}
	return out
}

// insert types text at the cursor. A newline carries the current line's
// indentation over, one tab deeper after a line ending in a colon.
func (d *document) insert(text string) {
	for _, r := range text {
		if r == '\n' {
			d.newline()
			continue
		}
		cur := d.lines[d.line]
		next := make([]rune, 0, len(cur)+1)
		next = append(next, cur[:d.col]...)
		next = append(next, r)
		next = append(next, cur[d.col:]...)
		d.lines[d.line] = next
		d.col++
	}
	d.version++
}

func (d *document) newline() {
	cur := d.lines[d.line]
	before := append([]rune(nil), cur[:d.col]...)
	after := cur[d.col:]

	indent := leadingSpace(before)
	if strings.HasSuffix(strings.TrimRight(string(before), " \t"), ":") {
		indent = append(indent, '\t')
	}

	next := append(append([]rune(nil), indent...), after...)
	d.lines[d.line] = before
	d.lines = append(d.lines[:d.line+1], append([][]rune{next}, d.lines[d.line+1:]...)...)
	d.line++
	d.col = len(indent)
}

func leadingSpace(line []rune) []rune {
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return append([]rune(nil), line[:n]...)
}

func (d *document) backspace() {
	switch {
	case d.col > 0:
		cur := d.lines[d.line]
		d.lines[d.line] = append(cur[:d.col-1:d.col-1], cur[d.col:]...)
		d.col--
	case d.line > 0:
		prev := d.lines[d.line-1]
		d.col = len(prev)
		d.lines[d.line-1] = append(prev[:len(prev):len(prev)], d.lines[d.line]...)
		d.lines = append(d.lines[:d.line], d.lines[d.line+1:]...)
		d.line--
	default:
		return
	}
	d.version++
}

func (d *document) deleteForward() {
	cur := d.lines[d.line]
	switch {
	case d.col < len(cur):
		d.lines[d.line] = append(cur[:d.col:d.col], cur[d.col+1:]...)
	case d.line < len(d.lines)-1:
		d.lines[d.line] = append(cur[:len(cur):len(cur)], d.lines[d.line+1]...)
		d.lines = append(d.lines[:d.line+1], d.lines[d.line+2:]...)
	default:
		return
	}
	d.version++
}

// moveTo places the cursor at a 0-based location, clamped to the buffer.
func (d *document) moveTo(line, col int) {
	d.line = max(0, min(line, len(d.lines)-1))
	d.col = max(0, min(col, len(d.lines[d.line])))
}

func (d *document) move(dLine, dCol int) {
	if dLine != 0 {
		d.moveTo(d.line+dLine, d.col)
		return
	}
	col := d.col + dCol
	switch {
	case col < 0 && d.line > 0:
		d.line--
		d.col = len(d.lines[d.line])
	case col > len(d.lines[d.line]) && d.line < len(d.lines)-1:
		d.line++
		d.col = 0
	default:
		d.moveTo(d.line, col)
	}
}

// wordBeforeCursor returns the identifier characters directly left of the
// cursor.
func (d *document) wordBeforeCursor() string {
	cur := d.lines[d.line]
	start := d.col
	for start > 0 && isIdentRune(cur[start-1]) {
		start--
	}
	return string(cur[start:d.col])
}

// wordAtCursor returns the identifier touching the cursor.
func (d *document) wordAtCursor() string {
	cur := d.lines[d.line]
	start, end := d.col, d.col
	for start > 0 && isIdentRune(cur[start-1]) {
		start--
	}
	for end < len(cur) && isIdentRune(cur[end]) {
		end++
	}
	return string(cur[start:end])
}
