package fakeide

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"go.lsp.dev/protocol"
)

// Diagnostic codes reported by the language service.
const (
	CodeWhitespaceLine = "W293"
	CodeSyntaxError    = "E999"
)

var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

var (
	defPattern    = regexp.MustCompile(`^\s*def\s+([A-Za-z_]\w*)`)
	classPattern  = regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`)
	assignPattern = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*=($|[^=])`)
	printPattern  = regexp.MustCompile(`print\("([^"]*)"\)`)
)

// diagnose lints a Python document the way a pycodestyle-backed language
// server would, for the two rules the workbench shows: whitespace-only
// lines and statements that cannot parse.
func diagnose(lines []string) []protocol.Diagnostic {
	var diags []protocol.Diagnostic
	for i, line := range lines {
		body := strings.TrimLeft(line, " \t")
		indent := len([]rune(line)) - len([]rune(body))

		if line != "" && body == "" {
			diags = append(diags, diagnostic(i, 0, protocol.DiagnosticSeverityWarning,
				CodeWhitespaceLine, "blank line contains whitespace"))
			continue
		}
		if body == "" || strings.HasPrefix(body, "#") {
			continue
		}
		if !parses(body) {
			diags = append(diags, diagnostic(i, indent, protocol.DiagnosticSeverityError,
				CodeSyntaxError, "SyntaxError: invalid syntax"))
		}
	}
	return diags
}

func diagnostic(line, char int, sev protocol.DiagnosticSeverity, code, msg string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(line), Character: uint32(char)},
			End:   protocol.Position{Line: uint32(line), Character: uint32(char + 1)},
		},
		Severity: sev,
		Code:     code,
		Source:   "pycodestyle",
		Message:  fmt.Sprintf("%s %s", code, msg),
	}
}

// parses reports whether a statement plausibly parses: it starts with a
// keyword, or its leading name is followed by an operator, a call, an
// attribute or nothing.
func parses(stmt string) bool {
	name := leadingIdent(stmt)
	if name == "" || keywords[name] {
		return true
	}
	rest := strings.TrimLeft(stmt[len(name):], " \t")
	return rest == "" || strings.ContainsRune("=([.:,+-*/%&|^<>!@", rune(rest[0]))
}

func leadingIdent(s string) string {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return s[:i]
	}
	return s
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// completions returns the names defined in lines that start with prefix,
// ordered by label. Functions are labelled "name()" and insert the bare
// name.
func completions(lines []string, prefix string) []protocol.CompletionItem {
	seen := make(map[string]bool)
	var items []protocol.CompletionItem
	add := func(name string, kind protocol.CompletionItemKind, label string) {
		if seen[name] || !strings.HasPrefix(name, prefix) {
			return
		}
		seen[name] = true
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       kind,
			InsertText: name,
		})
	}
	for _, line := range lines {
		if m := defPattern.FindStringSubmatch(line); m != nil {
			add(m[1], protocol.CompletionItemKindFunction, m[1]+"()")
		} else if m := classPattern.FindStringSubmatch(line); m != nil {
			add(m[1], protocol.CompletionItemKindClass, m[1])
		} else if m := assignPattern.FindStringSubmatch(line); m != nil {
			add(m[1], protocol.CompletionItemKindVariable, m[1])
		}
	}
	slices.SortFunc(items, func(a, b protocol.CompletionItem) int {
		return strings.Compare(a.Label, b.Label)
	})
	return items
}

// definitionLine returns the 0-based line defining name, or -1.
func definitionLine(lines []string, name string) int {
	for i, line := range lines {
		for _, p := range []*regexp.Regexp{defPattern, classPattern, assignPattern} {
			if m := p.FindStringSubmatch(line); m != nil && m[1] == name {
				return i
			}
		}
	}
	return -1
}

// printedLiterals returns the string literals passed to print, in order.
func printedLiterals(lines []string) []string {
	var out []string
	for _, line := range lines {
		for _, m := range printPattern.FindAllStringSubmatch(line, -1) {
			out = append(out, m[1])
		}
	}
	return out
}
