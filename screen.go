package playbook

import (
	"strings"
)

// Screen is an immutable capture of terminal content.
type Screen struct {
	lines     []string
	raw       string
	width     int
	height    int
	cursorRow int
	cursorCol int
}

// NewScreen builds a Screen from captured text, for callers that capture
// content themselves.
func NewScreen(raw string, width, height int) *Screen {
	return newScreen(raw, width, height)
}

// newScreen normalizes line endings and trims the trailing newline emitted
// by capture-pane.
func newScreen(raw string, width, height int) *Screen {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimSuffix(raw, "\n")

	return &Screen{
		lines:     strings.Split(raw, "\n"),
		raw:       raw,
		width:     width,
		height:    height,
		cursorRow: -1,
		cursorCol: -1,
	}
}

// String returns the full screen content as a string.
func (s *Screen) String() string {
	return s.raw
}

// Lines returns a copy of the screen content, one string per row.
func (s *Screen) Lines() []string {
	cp := make([]string, len(s.lines))
	copy(cp, s.lines)
	return cp
}

// Line returns the content of a single row (0-indexed).
// Panics if n is out of range.
func (s *Screen) Line(n int) string {
	return s.lines[n]
}

// Contains reports whether the screen contains the substring.
func (s *Screen) Contains(substr string) bool {
	return strings.Contains(s.raw, substr)
}

// Size returns the width and height.
func (s *Screen) Size() (width, height int) {
	return s.width, s.height
}

// Cursor returns the 0-indexed cursor row and column, or -1, -1 when the
// cursor was not captured.
func (s *Screen) Cursor() (row, col int) {
	return s.cursorRow, s.cursorCol
}
