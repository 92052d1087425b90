// Package fakeide is an in-memory IDE workbench with a simulated Python
// language server. It reacts to commands asynchronously, the way a browser
// IDE does, so scenarios run against it exercise the same waiting paths as
// a real one.
package fakeide

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/cboone/playbook"
	"github.com/cboone/playbook/ide"
)

// Names used by the sample project.
const (
	SampleProject = "console-python3-simple"
	DevMachine    = "dev-machine"
	ProjectsRoot  = "/projects"
)

// Dialog titles and their submit buttons.
const (
	DialogCreateProject = "Create Project"
	DialogNewFile       = "New File"
	ButtonCreate        = "Create"
	ButtonOK            = "OK"
	ButtonCancel        = "Cancel"
)

const sampleMain = `print("Hello, world!")`

// RunCommand returns the palette command that runs project's main.py.
func RunCommand(project string) string {
	return project + ": run"
}

// Option configures a Workspace.
type Option func(*options)

type options struct {
	latency  time.Duration
	runDelay time.Duration
	logger   *slog.Logger
	project  string
}

// WithLatency sets how long the language server takes to publish
// diagnostics and completions after an edit. The default is 100ms.
func WithLatency(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.latency = d
		}
	}
}

// WithRunDelay sets how long a started command takes to print its output.
// The default is 100ms.
func WithRunDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.runDelay = d
		}
	}
}

// WithLogger sets the logger for language server and process events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProject starts the workspace with an existing project.
func WithProject(name string) Option {
	return func(o *options) {
		o.project = name
	}
}

type dialogState struct {
	title  string
	submit string
	input  string
	onOK   func(input string) error
}

type process struct {
	name   string
	output strings.Builder
}

// Workspace is a simulated IDE. It implements ide.Workbench; all methods
// are safe for concurrent use.
type Workspace struct {
	opts options

	mu          sync.Mutex
	closed      bool
	timers      []*time.Timer
	project     string
	files       map[string]*document
	tabs        []string
	active      string
	dialog      *dialogState
	paletteOpen bool
	proposals   []protocol.CompletionItem
	published   map[protocol.DocumentURI]protocol.PublishDiagnosticsParams
	processes   []*process
	selected    string
}

var _ ide.Workbench = (*Workspace)(nil)

// New returns a workspace with a running dev-machine console.
func New(opts ...Option) *Workspace {
	o := options{
		latency:  100 * time.Millisecond,
		runDelay: 100 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	w := &Workspace{
		opts:      o,
		files:     make(map[string]*document),
		published: make(map[protocol.DocumentURI]protocol.PublishDiagnosticsParams),
		processes: []*process{{name: DevMachine}},
		selected:  DevMachine,
	}
	if o.project != "" {
		w.mu.Lock()
		w.createProject(o.project)
		w.mu.Unlock()
	}
	return w
}

// Close stops the workspace. Every later call reports a session error.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = nil
	return nil
}

func (w *Workspace) Editor() ide.Editor   { return editor{w} }
func (w *Workspace) Console() ide.Console { return console{w} }
func (w *Workspace) Menu() ide.Menu       { return menu{w} }
func (w *Workspace) Dialog() ide.Dialog   { return dialog{w} }
func (w *Workspace) Palette() ide.Palette { return palette{w} }

// lock acquires the workspace for op, failing once it is closed. The
// caller must unlock when err is nil.
func (w *Workspace) lock(op string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return playbook.SessionFailure(op, playbook.ErrSessionClosed)
	}
	return nil
}

// later runs fn under the lock after d, unless the workspace closes first.
// Called with w.mu held.
func (w *Workspace) later(d time.Duration, fn func()) {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.timers = slices.DeleteFunc(w.timers, func(x *time.Timer) bool { return x == t })
		if w.closed {
			return
		}
		fn()
	})
	w.timers = append(w.timers, t)
}

func (w *Workspace) fileURI(name string) protocol.DocumentURI {
	return uri.File(path.Join(ProjectsRoot, w.project, name))
}

// fileName maps a document URI back to its project-relative name.
func (w *Workspace) fileName(u protocol.DocumentURI) string {
	return strings.TrimPrefix(u.Filename(), path.Join(ProjectsRoot, w.project)+"/")
}

func (w *Workspace) createProject(name string) {
	w.project = name
	w.files["main.py"] = newDocument("main.py", sampleMain)
	w.analyze(w.files["main.py"])
	w.later(w.opts.latency, func() {
		w.appendOutput(DevMachine, fmt.Sprintf(
			"Initialized Language Server org.eclipse.che.plugin.python.languageserver on project file://%s\n",
			path.Join(ProjectsRoot, name)))
	})
	w.opts.logger.Debug("project created", "project", name)
}

// analyze schedules a diagnostics publication for the document's current
// version. Called with w.mu held.
func (w *Workspace) analyze(doc *document) {
	params := protocol.PublishDiagnosticsParams{
		URI:         w.fileURI(doc.path),
		Version:     doc.version,
		Diagnostics: diagnose(doc.snapshot()),
	}
	w.later(w.opts.latency, func() {
		if prev, ok := w.published[params.URI]; ok && prev.Version > params.Version {
			return
		}
		w.published[params.URI] = params
		w.opts.logger.Debug("diagnostics published",
			"uri", string(params.URI), "version", params.Version, "count", len(params.Diagnostics))
	})
}

func (w *Workspace) openTab(name string) {
	if !slices.Contains(w.tabs, name) {
		w.tabs = append(w.tabs, name)
	}
	w.active = name
}

func (w *Workspace) activeDoc(op string) (*document, error) {
	if w.active == "" {
		return nil, fmt.Errorf("fakeide: %s: no editor is open", op)
	}
	return w.files[w.active], nil
}

// resolveFile accepts "main.py" or "<project>/main.py".
func (w *Workspace) resolveFile(p string) (string, bool) {
	p = strings.TrimPrefix(strings.TrimPrefix(p, "/"), w.project+"/")
	_, ok := w.files[p]
	return p, ok
}

// findDefinition locates the definition of the name at the cursor of the
// active document, searching it first and then the other project files.
func (w *Workspace) findDefinition(op string) error {
	doc, err := w.activeDoc(op)
	if err != nil {
		return err
	}
	name := doc.wordAtCursor()
	if name == "" {
		return nil
	}

	var others []string
	for n := range w.files {
		if n != doc.path {
			others = append(others, n)
		}
	}
	slices.Sort(others)
	for _, n := range append([]string{doc.path}, others...) {
		line := definitionLine(w.files[n].snapshot(), name)
		if line < 0 {
			continue
		}
		loc := protocol.Location{
			URI: w.fileURI(n),
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(line)},
				End:   protocol.Position{Line: uint32(line)},
			},
		}
		w.showLocation(loc)
		return nil
	}
	w.opts.logger.Debug("no definition found", "name", name)
	return nil
}

func (w *Workspace) showLocation(loc protocol.Location) {
	name := w.fileName(loc.URI)
	w.openTab(name)
	w.files[name].moveTo(int(loc.Range.Start.Line), int(loc.Range.Start.Character))
}

func (w *Workspace) process(name string) *process {
	for _, p := range w.processes {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (w *Workspace) appendOutput(name, text string) {
	if p := w.process(name); p != nil {
		p.output.WriteString(text)
	}
}

// run starts the project's main.py as a new console process.
func (w *Workspace) run(command string) {
	w.processes = slices.DeleteFunc(w.processes, func(p *process) bool { return p.name == command })
	w.processes = append(w.processes, &process{name: command})
	w.selected = command

	var lines []string
	if doc, ok := w.files["main.py"]; ok {
		lines = doc.snapshot()
	}
	w.later(w.opts.runDelay, func() {
		for _, s := range printedLiterals(lines) {
			w.appendOutput(command, s+"\n")
		}
		w.opts.logger.Debug("process finished", "command", command)
	})
}

var errNoProject = errors.New("no project is open")

type menu struct{ w *Workspace }

func (m menu) Click(ctx context.Context, p string) error {
	w := m.w
	op := "menu " + p
	if err := w.lock(op); err != nil {
		return err
	}
	defer w.mu.Unlock()

	switch ide.MenuPath(ide.SplitMenuPath(p)...) {
	case ide.MenuCreateProject:
		w.dialog = &dialogState{title: DialogCreateProject, submit: ButtonCreate, onOK: func(name string) error {
			if name == "" {
				return errors.New("project name is empty")
			}
			w.createProject(name)
			return nil
		}}
	case ide.MenuNewFile:
		if w.project == "" {
			return fmt.Errorf("fakeide: %s: %w", op, errNoProject)
		}
		w.dialog = &dialogState{title: DialogNewFile, submit: ButtonOK, onOK: func(name string) error {
			if name == "" {
				return errors.New("file name is empty")
			}
			if _, ok := w.files[name]; ok {
				return fmt.Errorf("file %s already exists", name)
			}
			w.files[name] = newDocument(name, "")
			w.openTab(name)
			return nil
		}}
	case ide.MenuFindDefinition:
		return w.findDefinition(op)
	default:
		return fmt.Errorf("fakeide: menu item %q not found", p)
	}
	return nil
}

type dialog struct{ w *Workspace }

func (d dialog) Visible(ctx context.Context, title string) (bool, error) {
	w := d.w
	if err := w.lock("dialog visible"); err != nil {
		return false, err
	}
	defer w.mu.Unlock()
	return w.dialog != nil && (title == "" || w.dialog.title == title), nil
}

func (d dialog) Type(ctx context.Context, text string) error {
	w := d.w
	if err := w.lock("dialog type"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	if w.dialog == nil {
		return errors.New("fakeide: dialog type: no dialog is open")
	}
	w.dialog.input += text
	return nil
}

func (d dialog) Click(ctx context.Context, button string) error {
	w := d.w
	if err := w.lock("dialog click"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	if w.dialog == nil {
		return errors.New("fakeide: dialog click: no dialog is open")
	}
	switch button {
	case w.dialog.submit:
		if err := w.dialog.onOK(strings.TrimSpace(w.dialog.input)); err != nil {
			return fmt.Errorf("fakeide: %s: %w", w.dialog.title, err)
		}
		w.dialog = nil
	case ButtonCancel:
		w.dialog = nil
	default:
		return fmt.Errorf("fakeide: dialog %q has no button %q", w.dialog.title, button)
	}
	return nil
}

type palette struct{ w *Workspace }

func (p palette) Open(ctx context.Context) error {
	w := p.w
	if err := w.lock("open palette"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	w.paletteOpen = true
	return nil
}

func (p palette) Start(ctx context.Context, command string) error {
	w := p.w
	if err := w.lock("start command"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	if !w.paletteOpen {
		return errors.New("fakeide: start command: palette is closed")
	}
	if w.project == "" || command != RunCommand(w.project) {
		return fmt.Errorf("fakeide: start command: %q not found", command)
	}
	w.paletteOpen = false
	w.run(command)
	return nil
}

type console struct{ w *Workspace }

func (c console) CurrentText(ctx context.Context) (string, error) {
	w := c.w
	if err := w.lock("console text"); err != nil {
		return "", err
	}
	defer w.mu.Unlock()
	if p := w.process(w.selected); p != nil {
		return p.output.String(), nil
	}
	return "", nil
}

func (c console) OpenTabs(ctx context.Context) ([]string, error) {
	w := c.w
	if err := w.lock("console tabs"); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	names := make([]string, len(w.processes))
	for i, p := range w.processes {
		names[i] = p.name
	}
	return names, nil
}

func (c console) SelectTab(ctx context.Context, name string) error {
	w := c.w
	if err := w.lock("console select tab"); err != nil {
		return err
	}
	defer w.mu.Unlock()
	if w.process(name) == nil {
		return fmt.Errorf("fakeide: console tab %q not found", name)
	}
	w.selected = name
	return nil
}
