package fakeide

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/cboone/playbook"
)

type editor struct{ w *Workspace }

// edit runs fn against the active document and schedules a new analysis
// when the document changed.
func (e editor) edit(op string, fn func(doc *document) error) error {
	w := e.w
	if err := w.lock(op); err != nil {
		return err
	}
	defer w.mu.Unlock()

	doc, err := w.activeDoc(op)
	if err != nil {
		return err
	}
	before := doc.version
	if err := fn(doc); err != nil {
		return err
	}
	if doc.version != before {
		w.proposals = nil
		w.analyze(doc)
	}
	return nil
}

func (e editor) CurrentText(ctx context.Context) (string, error) {
	w := e.w
	if err := w.lock("editor text"); err != nil {
		return "", err
	}
	defer w.mu.Unlock()
	if w.active == "" {
		return "", nil
	}
	return w.files[w.active].text(), nil
}

func (e editor) CurrentMarkers(ctx context.Context) (playbook.MarkerState, error) {
	w := e.w
	if err := w.lock("editor markers"); err != nil {
		return playbook.MarkerState{}, err
	}
	defer w.mu.Unlock()
	if w.active == "" {
		return playbook.NewMarkerState(), nil
	}
	return playbook.MarkersFromDiagnostics(w.published[w.fileURI(w.active)].Diagnostics), nil
}

func (e editor) OpenTabs(ctx context.Context) ([]string, error) {
	w := e.w
	if err := w.lock("editor tabs"); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	return slices.Clone(w.tabs), nil
}

func (e editor) Type(ctx context.Context, text string) error {
	return e.edit("editor type", func(doc *document) error {
		doc.insert(text)
		return nil
	})
}

func (e editor) Press(ctx context.Context, keys ...playbook.Key) error {
	for _, k := range keys {
		switch k {
		case playbook.F4:
			if err := e.goToDefinition(); err != nil {
				return err
			}
			continue
		case playbook.Escape:
			if err := e.closeProposals(); err != nil {
				return err
			}
			continue
		}
		err := e.edit("editor press "+string(k), func(doc *document) error {
			switch k {
			case playbook.Enter:
				doc.insert("\n")
			case playbook.Tab:
				doc.insert("\t")
			case playbook.Space:
				doc.insert(" ")
			case playbook.Backspace:
				doc.backspace()
			case playbook.Delete:
				doc.deleteForward()
			case playbook.Left:
				doc.move(0, -1)
			case playbook.Right:
				doc.move(0, 1)
			case playbook.Up:
				doc.move(-1, 0)
			case playbook.Down:
				doc.move(1, 0)
			case playbook.Home:
				doc.moveTo(doc.line, 0)
			case playbook.End:
				doc.moveTo(doc.line, len(doc.lines[doc.line]))
			default:
				return fmt.Errorf("fakeide: editor press: unsupported key %q", string(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e editor) goToDefinition() error {
	w := e.w
	if err := w.lock("find definition"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	return w.findDefinition("find definition")
}

func (e editor) closeProposals() error {
	w := e.w
	if err := w.lock("close autocomplete"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	w.proposals = nil
	return nil
}

func (e editor) SelectTab(ctx context.Context, name string) error {
	w := e.w
	if err := w.lock("editor select tab"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	if !slices.Contains(w.tabs, name) {
		return fmt.Errorf("fakeide: editor tab %q not found", name)
	}
	w.active = name
	return nil
}

func (e editor) OpenFile(ctx context.Context, p string) error {
	w := e.w
	if err := w.lock("open file"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	if w.project == "" {
		return fmt.Errorf("fakeide: open file %s: %w", p, errNoProject)
	}
	name, ok := w.resolveFile(p)
	if !ok {
		return fmt.Errorf("fakeide: open file: %s not found in %s", p, w.project)
	}
	w.openTab(name)
	return nil
}

func (e editor) CloseTab(ctx context.Context, name string) error {
	w := e.w
	if err := w.lock("close tab"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	i := slices.Index(w.tabs, name)
	if i < 0 {
		return fmt.Errorf("fakeide: close tab: %q not found", name)
	}
	w.tabs = slices.Delete(w.tabs, i, i+1)
	if w.active == name {
		w.active = ""
		if len(w.tabs) > 0 {
			w.active = w.tabs[len(w.tabs)-1]
		}
	}
	return nil
}

func (e editor) GoTo(ctx context.Context, pos playbook.Position) error {
	w := e.w
	op := "go to " + pos.String()
	if err := w.lock(op); err != nil {
		return err
	}
	defer w.mu.Unlock()
	doc, err := w.activeDoc(op)
	if err != nil {
		return err
	}
	if pos.Line < 1 || pos.Line > len(doc.lines) {
		return fmt.Errorf("fakeide: %s: line out of range 1-%d", op, len(doc.lines))
	}
	doc.moveTo(pos.Line-1, max(pos.Column-1, 0))
	w.proposals = nil
	return nil
}

func (e editor) CursorPosition(ctx context.Context) (playbook.Position, error) {
	w := e.w
	if err := w.lock("cursor position"); err != nil {
		return playbook.Position{}, err
	}
	defer w.mu.Unlock()
	doc, err := w.activeDoc("cursor position")
	if err != nil {
		return playbook.Position{}, err
	}
	return playbook.At(doc.line+1, doc.col+1), nil
}

func (e editor) DeleteAll(ctx context.Context) error {
	return e.edit("delete all", func(doc *document) error {
		doc.setText("")
		return nil
	})
}

// OpenAutocomplete asks the language server for completions of the word
// left of the cursor. The popup fills in once the server answers.
func (e editor) OpenAutocomplete(ctx context.Context) error {
	w := e.w
	if err := w.lock("open autocomplete"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	doc, err := w.activeDoc("open autocomplete")
	if err != nil {
		return err
	}
	items := completions(doc.snapshot(), doc.wordBeforeCursor())
	version := doc.version
	w.later(w.opts.latency, func() {
		if doc.version == version {
			w.proposals = items
		}
	})
	return nil
}

func (e editor) Proposals() playbook.TextSource {
	return proposals{e.w}
}

// AcceptProposal inserts the proposal whose label, or inserted name,
// matches label once trimmed.
func (e editor) AcceptProposal(ctx context.Context, label string) error {
	w := e.w
	if err := w.lock("accept proposal"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	doc, err := w.activeDoc("accept proposal")
	if err != nil {
		return err
	}

	want := strings.TrimSpace(label)
	i := slices.IndexFunc(w.proposals, func(it protocol.CompletionItem) bool {
		return it.Label == want || it.InsertText == want
	})
	if i < 0 {
		return fmt.Errorf("fakeide: accept proposal: %q not offered", want)
	}
	insert := w.proposals[i].InsertText
	for range []rune(doc.wordBeforeCursor()) {
		doc.backspace()
	}
	doc.insert(insert)
	w.proposals = nil
	w.analyze(doc)
	return nil
}

type proposals struct{ w *Workspace }

func (p proposals) CurrentText(ctx context.Context) (string, error) {
	w := p.w
	if err := w.lock("proposals"); err != nil {
		return "", err
	}
	defer w.mu.Unlock()
	labels := make([]string, len(w.proposals))
	for i, it := range w.proposals {
		labels[i] = it.Label
	}
	return strings.Join(labels, "\n"), nil
}
