package fakeide

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string // code@line:char, 0-based
	}{
		{name: "clean", lines: []string{"import math", "", "x = math.add(1, 2)", "print(x)"}},
		{name: "whitespace line", lines: []string{"def f():", "\t", "\treturn 1"}, want: []string{"W293@1:0"}},
		{name: "unknown statement", lines: []string{"cclass MyClass:"}, want: []string{"E999@0:0"}},
		{name: "indented statement", lines: []string{"if x:", "  foo bar"}, want: []string{"E999@1:2"}},
		{name: "comment", lines: []string{"# not code at all"}},
		{name: "attribute call", lines: []string{"obj.method()"}},
		{name: "bare name", lines: []string{"x"}},
		{name: "comparison", lines: []string{"x == 1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, d := range diagnose(tt.lines) {
				got = append(got, fmt.Sprintf("%v@%d:%d", d.Code, d.Range.Start.Line, d.Range.Start.Character))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiagnoseSeverity(t *testing.T) {
	diags := diagnose([]string{"  ", "bad stmt"})
	require.Len(t, diags, 2)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, diags[0].Severity)
	assert.Equal(t, "W293 blank line contains whitespace", diags[0].Message)
	assert.Equal(t, protocol.DiagnosticSeverityError, diags[1].Severity)
}

func TestCompletions(t *testing.T) {
	lines := []string{
		"class MyClass:",
		"\tvar = 1",
		"variable = \"variable\"",
		"def function(self):",
		"\tprint(\"hi\")",
		"var = 2",
	}

	items := completions(lines, "")
	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Equal(t, []string{"MyClass", "function()", "var", "variable"}, labels)
	assert.Equal(t, "function", items[1].InsertText)
	assert.Equal(t, protocol.CompletionItemKindFunction, items[1].Kind)

	items = completions(lines, "va")
	require.Len(t, items, 2)
	assert.Equal(t, "var", items[0].Label)
}

func TestDefinitionLine(t *testing.T) {
	lines := []string{"import math", "", "var2 = math.add(100, 200)", "def add(a, b):"}
	assert.Equal(t, 3, definitionLine(lines, "add"))
	assert.Equal(t, 2, definitionLine(lines, "var2"))
	assert.Equal(t, -1, definitionLine(lines, "math"))
}

func TestPrintedLiterals(t *testing.T) {
	lines := []string{`print("a")`, `x = 1`, `print("b"); print("c")`, `print(x)`}
	assert.Equal(t, []string{"a", "b", "c"}, printedLiterals(lines))
}

func TestDocumentAutoIndent(t *testing.T) {
	d := newDocument("main.py", "")
	d.insert("class A:\n\tx = 1\n")
	assert.Equal(t, "class A:\n\t\tx = 1\n\t\t", d.text())
	assert.Equal(t, 2, d.line)
	assert.Equal(t, 2, d.col)

	d = newDocument("math.py", "")
	d.insert("def add(a, b):\n return a + b")
	assert.Equal(t, "def add(a, b):\n\t return a + b", d.text())
}

func TestDocumentEditing(t *testing.T) {
	d := newDocument("main.py", "ab\ncd")
	d.moveTo(1, 0)
	d.backspace()
	assert.Equal(t, "abcd", d.text())
	assert.Equal(t, 0, d.line)
	assert.Equal(t, 2, d.col)

	d.moveTo(0, 0)
	d.deleteForward()
	assert.Equal(t, "bcd", d.text())

	d.moveTo(0, 3)
	d.deleteForward()
	assert.Equal(t, "bcd", d.text(), "delete at end of buffer is a no-op")

	d.moveTo(9, 9)
	assert.Equal(t, 0, d.line)
	assert.Equal(t, 3, d.col)
}

func TestDocumentWords(t *testing.T) {
	d := newDocument("main.py", "var2 = math.add(100, 200)")
	d.moveTo(0, 14)
	assert.Equal(t, "add", d.wordAtCursor())
	assert.Equal(t, "ad", d.wordBeforeCursor())

	d.moveTo(0, 12)
	assert.Equal(t, "", d.wordBeforeCursor())
}
