// Package ide describes an IDE workbench as page objects and provides a
// Chrome DevTools binding for browser-based IDEs.
package ide

import (
	"context"
	"strings"

	"github.com/cboone/playbook"
)

// Menu paths used by the bundled scenarios. Path elements are separated by
// " > ".
const (
	MenuCreateProject  = "Workspace > Create Project"
	MenuNewFile        = "Project > New > File"
	MenuFindDefinition = "Assistant > Find Definition"
)

// MenuPath joins menu items into a path.
func MenuPath(items ...string) string {
	return strings.Join(items, " > ")
}

// SplitMenuPath splits a path into its items.
func SplitMenuPath(path string) []string {
	parts := strings.Split(path, ">")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Editor is the code editor area: its tabs, the active document, its
// diagnostic markers and the autocomplete popup.
type Editor interface {
	playbook.TextSource
	playbook.MarkerSource
	playbook.TabSource
	playbook.Typer
	playbook.KeyPresser
	playbook.TabSelector

	// OpenFile opens a project file by path, the way the project explorer
	// does, and activates its tab.
	OpenFile(ctx context.Context, path string) error
	CloseTab(ctx context.Context, name string) error
	GoTo(ctx context.Context, pos playbook.Position) error
	CursorPosition(ctx context.Context) (playbook.Position, error)
	DeleteAll(ctx context.Context) error

	OpenAutocomplete(ctx context.Context) error
	// Proposals exposes the autocomplete popup, one proposal per line. It
	// reads empty while the popup is closed.
	Proposals() playbook.TextSource
	AcceptProposal(ctx context.Context, label string) error
}

// Console is the process console: one tab per process, showing the output
// of the selected one.
type Console interface {
	playbook.TextSource
	playbook.TabSource
	playbook.TabSelector
}

// Menu is the main menu bar. Click takes a path such as
// "Project > New > File".
type Menu interface {
	playbook.Clicker
}

// Dialog is the modal dialog, if any. Visible takes the dialog title, or ""
// for any dialog; Click takes a button label.
type Dialog interface {
	playbook.VisibilitySource
	playbook.Typer
	playbook.Clicker
}

// Palette is the command palette.
type Palette interface {
	Open(ctx context.Context) error
	Start(ctx context.Context, command string) error
}

// Workbench is a running IDE.
type Workbench interface {
	playbook.Session

	Editor() Editor
	Console() Console
	Menu() Menu
	Dialog() Dialog
	Palette() Palette
}

// RunCommand clicks the menu item at the end of path.
func RunCommand(ctx context.Context, m Menu, path ...string) error {
	return m.Click(ctx, MenuPath(path...))
}

// MarkerAtCursor matches when a marker of kind is shown on the line the
// cursor is on at evaluation time.
func MarkerAtCursor(ed Editor, kind playbook.MarkerKind) playbook.Matcher {
	desc := kind.String() + " marker on the cursor line"
	return func(ctx context.Context) (playbook.Match, error) {
		pos, err := ed.CursorPosition(ctx)
		if err != nil {
			return playbook.Match{Description: desc}, err
		}
		m, err := playbook.MarkerAt(ed, kind, playbook.OnLine(pos.Line))(ctx)
		m.Description = desc + " (" + pos.String() + ")"
		return m, err
	}
}

// DialogOpen matches while a dialog titled title (or any dialog, for "")
// is shown.
func DialogOpen(d Dialog, title string) playbook.Matcher {
	target := title
	if target == "" {
		target = "dialog"
	}
	return playbook.Visible(titledDialog{d, title}, target)
}

// titledDialog asks for a fixed title whatever target the matcher names.
type titledDialog struct {
	src   playbook.VisibilitySource
	title string
}

func (n titledDialog) Visible(ctx context.Context, _ string) (bool, error) {
	return n.src.Visible(ctx, n.title)
}
