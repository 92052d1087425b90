package playbook

import (
	"fmt"
	"sort"
	"strings"

	"go.lsp.dev/protocol"
)

// Position is a 1-based editor location.
//
// A Column of 0 stands for "anywhere on the line" when used in MarkerAt;
// IDE gutters usually annotate whole lines.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// At returns the position at line and column.
func At(line, column int) Position {
	return Position{Line: line, Column: column}
}

// OnLine returns a position that matches any column on line.
func OnLine(line int) Position {
	return Position{Line: line}
}

func (p Position) String() string {
	if p.Column == 0 {
		return fmt.Sprintf("%d:*", p.Line)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func (p Position) covers(other Position) bool {
	if p.Line != other.Line {
		return false
	}
	return p.Column == 0 || p.Column == other.Column
}

// MarkerKind is the severity of an editor marker.
type MarkerKind int

const (
	MarkerError MarkerKind = iota + 1
	MarkerWarning
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerError:
		return "error"
	case MarkerWarning:
		return "warning"
	default:
		return fmt.Sprintf("MarkerKind(%d)", int(k))
	}
}

// ParseMarkerKind accepts "error" or "warning", in any case.
func ParseMarkerKind(s string) (MarkerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return MarkerError, nil
	case "warning":
		return MarkerWarning, nil
	default:
		return 0, fmt.Errorf("unknown marker kind %q", s)
	}
}

func (k MarkerKind) MarshalText() ([]byte, error) {
	if k != MarkerError && k != MarkerWarning {
		return nil, fmt.Errorf("unknown marker kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *MarkerKind) UnmarshalText(b []byte) error {
	parsed, err := ParseMarkerKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Severity returns the LSP severity the kind corresponds to.
func (k MarkerKind) Severity() protocol.DiagnosticSeverity {
	if k == MarkerWarning {
		return protocol.DiagnosticSeverityWarning
	}
	return protocol.DiagnosticSeverityError
}

// Marker is one diagnostic annotation shown in the editor.
type Marker struct {
	Kind     MarkerKind `json:"kind"`
	Position Position   `json:"position"`
	Code     string     `json:"code,omitempty"`
	Message  string     `json:"message,omitempty"`
}

func (m Marker) String() string {
	return m.Kind.String() + "@" + m.Position.String()
}

// MarkerState is an immutable snapshot of the markers visible at one
// moment. It is owned by the remote UI; the harness only reads it.
type MarkerState struct {
	markers []Marker
}

// NewMarkerState returns a snapshot of markers ordered by position.
func NewMarkerState(markers ...Marker) MarkerState {
	cp := make([]Marker, len(markers))
	copy(cp, markers)
	sort.SliceStable(cp, func(i, j int) bool {
		a, b := cp[i].Position, cp[j].Position
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return cp[i].Kind < cp[j].Kind
	})
	return MarkerState{markers: cp}
}

// MarkersFromDiagnostics converts language-server diagnostics into editor
// markers. LSP ranges are 0-based; markers are 1-based. Information and
// hint diagnostics have no marker and are dropped.
func MarkersFromDiagnostics(diags []protocol.Diagnostic) MarkerState {
	markers := make([]Marker, 0, len(diags))
	for _, d := range diags {
		var kind MarkerKind
		switch d.Severity {
		case protocol.DiagnosticSeverityError, 0:
			kind = MarkerError
		case protocol.DiagnosticSeverityWarning:
			kind = MarkerWarning
		default:
			continue
		}

		code := ""
		if d.Code != nil {
			code = fmt.Sprint(d.Code)
		}

		markers = append(markers, Marker{
			Kind: kind,
			Position: Position{
				Line:   int(d.Range.Start.Line) + 1,
				Column: int(d.Range.Start.Character) + 1,
			},
			Code:    code,
			Message: d.Message,
		})
	}
	return NewMarkerState(markers...)
}

// All returns a copy of every marker in the snapshot.
func (s MarkerState) All() []Marker {
	cp := make([]Marker, len(s.markers))
	copy(cp, s.markers)
	return cp
}

// Len returns the number of markers.
func (s MarkerState) Len() int {
	return len(s.markers)
}

// Has reports whether a marker of kind sits at pos.
func (s MarkerState) Has(kind MarkerKind, pos Position) bool {
	for _, m := range s.markers {
		if m.Kind == kind && pos.covers(m.Position) {
			return true
		}
	}
	return false
}

// Count returns the number of markers of kind.
func (s MarkerState) Count(kind MarkerKind) int {
	n := 0
	for _, m := range s.markers {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

// OfKind returns the markers of kind, in position order.
func (s MarkerState) OfKind(kind MarkerKind) []Marker {
	var out []Marker
	for _, m := range s.markers {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (s MarkerState) String() string {
	if len(s.markers) == 0 {
		return "no markers"
	}
	parts := make([]string, len(s.markers))
	for i, m := range s.markers {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}
