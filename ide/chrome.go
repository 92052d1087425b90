package ide

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/cboone/playbook"
)

// ChromeOption configures OpenChrome.
type ChromeOption func(*chromeOptions)

type chromeOptions struct {
	headless  bool
	execPath  string
	width     int
	height    int
	selectors Selectors
	flags     map[string]any
	logger    *slog.Logger
}

// WithHeadless controls whether the browser runs without a window. The
// default is true.
func WithHeadless(on bool) ChromeOption {
	return func(o *chromeOptions) {
		o.headless = on
	}
}

// WithExecPath sets the browser binary. By default chromedp searches the
// usual Chrome and Chromium locations.
func WithExecPath(path string) ChromeOption {
	return func(o *chromeOptions) {
		o.execPath = path
	}
}

// WithWindowSize sets the browser window size. Non-positive values keep the
// default of 1600x1000.
func WithWindowSize(width, height int) ChromeOption {
	return func(o *chromeOptions) {
		if width > 0 {
			o.width = width
		}
		if height > 0 {
			o.height = height
		}
	}
}

// WithSelectors overrides workbench selectors. Empty fields keep their
// defaults.
func WithSelectors(s Selectors) ChromeOption {
	return func(o *chromeOptions) {
		o.selectors = s.merge(o.selectors)
	}
}

// WithChromeFlag passes a command-line flag to the browser.
func WithChromeFlag(name string, value any) ChromeOption {
	return func(o *chromeOptions) {
		o.flags[name] = value
	}
}

// WithBrowserLogger routes DevTools protocol errors to logger.
func WithBrowserLogger(logger *slog.Logger) ChromeOption {
	return func(o *chromeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Chrome is a Workbench backed by a browser tab driven over the DevTools
// protocol. Queries evaluate JavaScript against the DOM described by
// Selectors; commands dispatch input events and return without waiting for
// the IDE to react.
type Chrome struct {
	browser       context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	sel           Selectors

	closeOnce sync.Once
	closeErr  error
	mu        sync.Mutex
	closed    bool
}

var _ Workbench = (*Chrome)(nil)

// OpenChrome starts a browser, loads url and waits until the workbench
// element is ready. The browser lives until Close or until ctx is
// cancelled.
func OpenChrome(ctx context.Context, url string, opts ...ChromeOption) (*Chrome, error) {
	o := chromeOptions{
		headless:  true,
		width:     1600,
		height:    1000,
		selectors: DefaultSelectors(),
		flags:     make(map[string]any),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(o.width, o.height),
	)
	if o.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(o.execPath))
	}
	for name, value := range o.flags {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			o.logger.Warn("devtools error", "detail", fmt.Sprintf(format, args...))
		}),
	)

	c := &Chrome{
		browser:       browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		sel:           o.selectors,
	}

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(o.selectors.Workbench, chromedp.ByQuery),
	); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("ide: open %s: %w", url, err)
	}
	return c, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		if err := chromedp.Cancel(c.browser); err != nil && !errors.Is(err, context.Canceled) {
			c.closeErr = fmt.Errorf("ide: close browser: %w", err)
		}
		c.cancelBrowser()
		c.cancelAlloc()
	})
	return c.closeErr
}

func (c *Chrome) Editor() Editor   { return chromeEditor{c} }
func (c *Chrome) Console() Console { return chromeConsole{c} }
func (c *Chrome) Menu() Menu       { return chromeMenu{c} }
func (c *Chrome) Dialog() Dialog   { return chromeDialog{c} }
func (c *Chrome) Palette() Palette { return chromePalette{c} }

// run executes actions in the browser tab, bounded by ctx.
func (c *Chrome) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return playbook.SessionFailure(op, playbook.ErrSessionClosed)
	}

	runCtx, cancel := context.WithCancelCause(c.browser)
	defer cancel(nil)
	stop := context.AfterFunc(ctx, func() {
		cancel(context.Cause(ctx))
	})
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("ide: %s: %w", op, context.Cause(ctx))
	}
	if c.browser.Err() != nil || errors.Is(err, chromedp.ErrInvalidContext) || errors.Is(err, chromedp.ErrChannelClosed) {
		return playbook.SessionFailure(op, err)
	}
	return fmt.Errorf("ide: %s: %w", op, err)
}

func (c *Chrome) eval(ctx context.Context, op, expr string, res any) error {
	return c.run(ctx, op, chromedp.Evaluate(expr, res))
}

func (c *Chrome) keys(ctx context.Context, op string, keys ...playbook.Key) error {
	actions, err := keyActions(keys...)
	if err != nil {
		return fmt.Errorf("ide: %s: %w", op, err)
	}
	return c.run(ctx, op, actions...)
}

func (c *Chrome) text(ctx context.Context, op, sel string) (string, error) {
	var s string
	err := c.eval(ctx, op, fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el ? el.innerText : "";
	})()`, js(sel)), &s)
	return s, err
}

func (c *Chrome) names(ctx context.Context, op, sel string) ([]string, error) {
	var names []string
	err := c.eval(ctx, op, fmt.Sprintf(`Array.from(document.querySelectorAll(%s))
		.map(el => el.dataset.name || el.textContent.trim())`, js(sel)), &names)
	return names, err
}

// dispatch fires a mouse event on the first element under sel whose name
// is name, or on the first element at all when name is empty.
func (c *Chrome) dispatch(ctx context.Context, op, sel, name, event string) error {
	var found bool
	err := c.eval(ctx, op, fmt.Sprintf(`(() => {
		const name = %s;
		const el = Array.from(document.querySelectorAll(%s))
			.find(el => name === "" || (el.dataset.name || el.dataset.path || el.textContent.trim()) === name);
		if (!el) return false;
		el.dispatchEvent(new MouseEvent(%s, {bubbles: true, cancelable: true, view: window}));
		return true;
	})()`, js(name), js(sel), js(event)), &found)
	if err != nil {
		return err
	}
	if !found {
		if name == "" {
			return fmt.Errorf("ide: %s: no element matches %s", op, sel)
		}
		return fmt.Errorf("ide: %s: %q not found", op, name)
	}
	return nil
}

func (c *Chrome) focus(ctx context.Context, op, sel string) error {
	var found bool
	if err := c.eval(ctx, op, fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.focus();
		return true;
	})()`, js(sel)), &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("ide: %s: no element matches %s", op, sel)
	}
	return nil
}

// js renders s as a JavaScript string literal.
func js(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(b)
}

type chromeEditor struct{ c *Chrome }

func (e chromeEditor) CurrentText(ctx context.Context) (string, error) {
	return e.c.text(ctx, "editor text", e.c.sel.EditorText)
}

type domMarker struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e chromeEditor) CurrentMarkers(ctx context.Context) (playbook.MarkerState, error) {
	var raw []domMarker
	err := e.c.eval(ctx, "editor markers", fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(el => ({
		line: Number(el.dataset.line || 0),
		column: Number(el.dataset.column || 0),
		kind: el.dataset.kind || "",
		code: el.dataset.code || "",
		message: el.title || "",
	}))`, js(e.c.sel.Marker)), &raw)
	if err != nil {
		return playbook.MarkerState{}, err
	}

	markers := make([]playbook.Marker, 0, len(raw))
	for _, m := range raw {
		kind, err := playbook.ParseMarkerKind(m.Kind)
		if err != nil {
			return playbook.MarkerState{}, fmt.Errorf("ide: editor markers: line %d: %w", m.Line, err)
		}
		markers = append(markers, playbook.Marker{
			Kind:     kind,
			Position: playbook.At(m.Line, m.Column),
			Code:     m.Code,
			Message:  m.Message,
		})
	}
	return playbook.NewMarkerState(markers...), nil
}

func (e chromeEditor) OpenTabs(ctx context.Context) ([]string, error) {
	return e.c.names(ctx, "editor tabs", e.c.sel.EditorTab)
}

func (e chromeEditor) Type(ctx context.Context, text string) error {
	return e.c.run(ctx, "editor type", chromedp.KeyEvent(text))
}

func (e chromeEditor) Press(ctx context.Context, keys ...playbook.Key) error {
	return e.c.keys(ctx, "editor press", keys...)
}

func (e chromeEditor) SelectTab(ctx context.Context, name string) error {
	if err := e.c.dispatch(ctx, "editor select tab", e.c.sel.EditorTab, name, "click"); err != nil {
		return err
	}
	return e.c.focus(ctx, "editor select tab", e.c.sel.EditorText)
}

func (e chromeEditor) OpenFile(ctx context.Context, path string) error {
	if err := e.c.dispatch(ctx, "open file", e.c.sel.ExplorerItem, path, "dblclick"); err != nil {
		return err
	}
	return e.c.focus(ctx, "open file", e.c.sel.EditorText)
}

func (e chromeEditor) CloseTab(ctx context.Context, name string) error {
	var found bool
	if err := e.c.eval(ctx, "close tab", fmt.Sprintf(`(() => {
		const tab = Array.from(document.querySelectorAll(%s))
			.find(el => (el.dataset.name || el.textContent.trim()) === %s);
		const btn = tab && tab.querySelector(%s);
		if (!btn) return false;
		btn.click();
		return true;
	})()`, js(e.c.sel.EditorTab), js(name), js(e.c.sel.EditorTabClose)), &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("ide: close tab: %q not found", name)
	}
	return nil
}

// GoTo opens the go-to-line box with Ctrl+L and submits "line:column".
func (e chromeEditor) GoTo(ctx context.Context, pos playbook.Position) error {
	target := strconv.Itoa(pos.Line)
	if pos.Column > 0 {
		target += ":" + strconv.Itoa(pos.Column)
	}
	return e.c.run(ctx, "go to "+pos.String(),
		chromedp.KeyEvent("l", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.WaitVisible(e.c.sel.GoToInput, chromedp.ByQuery),
		chromedp.SendKeys(e.c.sel.GoToInput, target+kb.Enter, chromedp.ByQuery),
	)
}

func (e chromeEditor) CursorPosition(ctx context.Context) (playbook.Position, error) {
	var pos *playbook.Position
	err := e.c.eval(ctx, "cursor position", fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return null;
		return {line: Number(el.dataset.line), column: Number(el.dataset.column)};
	})()`, js(e.c.sel.Cursor)), &pos)
	if err != nil {
		return playbook.Position{}, err
	}
	if pos == nil {
		return playbook.Position{}, errors.New("ide: cursor position: no cursor shown")
	}
	return *pos, nil
}

func (e chromeEditor) DeleteAll(ctx context.Context) error {
	return e.c.run(ctx, "delete all",
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent(kb.Delete),
	)
}

func (e chromeEditor) OpenAutocomplete(ctx context.Context) error {
	return e.c.run(ctx, "open autocomplete",
		chromedp.KeyEvent(" ", chromedp.KeyModifiers(input.ModifierCtrl)))
}

func (e chromeEditor) Proposals() playbook.TextSource {
	return chromeProposals{e.c}
}

func (e chromeEditor) AcceptProposal(ctx context.Context, label string) error {
	var found bool
	if err := e.c.eval(ctx, "accept proposal", fmt.Sprintf(`(() => {
		const label = %s.trim();
		const el = Array.from(document.querySelectorAll(%s))
			.find(el => el.offsetParent !== null && el.textContent.trim().startsWith(label));
		if (!el) return false;
		el.dispatchEvent(new MouseEvent("dblclick", {bubbles: true, cancelable: true, view: window}));
		return true;
	})()`, js(label), js(e.c.sel.AutocompleteItem)), &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("ide: accept proposal: %q not offered", label)
	}
	return nil
}

type chromeProposals struct{ c *Chrome }

func (p chromeProposals) CurrentText(ctx context.Context) (string, error) {
	var s string
	err := p.c.eval(ctx, "proposals", fmt.Sprintf(`Array.from(document.querySelectorAll(%s))
		.filter(el => el.offsetParent !== null)
		.map(el => el.textContent.trim())
		.join("\n")`, js(p.c.sel.AutocompleteItem)), &s)
	return s, err
}

type chromeConsole struct{ c *Chrome }

func (k chromeConsole) CurrentText(ctx context.Context) (string, error) {
	return k.c.text(ctx, "console text", k.c.sel.ConsoleOutput)
}

func (k chromeConsole) OpenTabs(ctx context.Context) ([]string, error) {
	return k.c.names(ctx, "console tabs", k.c.sel.ConsoleTab)
}

func (k chromeConsole) SelectTab(ctx context.Context, name string) error {
	return k.c.dispatch(ctx, "console select tab", k.c.sel.ConsoleTab, name, "click")
}

type chromeMenu struct{ c *Chrome }

// Click clicks each item of the path in turn.
func (m chromeMenu) Click(ctx context.Context, path string) error {
	items := SplitMenuPath(path)
	if len(items) == 0 {
		return errors.New("ide: menu: empty path")
	}
	for _, item := range items {
		if err := m.c.dispatch(ctx, "menu "+path, m.c.sel.MenuItem, item, "click"); err != nil {
			return err
		}
	}
	return nil
}

type chromeDialog struct{ c *Chrome }

func (d chromeDialog) Visible(ctx context.Context, title string) (bool, error) {
	var visible bool
	err := d.c.eval(ctx, "dialog visible", fmt.Sprintf(`(() => {
		const title = %s;
		return Array.from(document.querySelectorAll(%s)).some(d => {
			if (d.offsetParent === null) return false;
			if (title === "") return true;
			const t = d.querySelector(%s);
			return !!t && t.textContent.trim() === title;
		});
	})()`, js(title), js(d.c.sel.Dialog), js(d.c.sel.DialogTitle)), &visible)
	return visible, err
}

func (d chromeDialog) Type(ctx context.Context, text string) error {
	if err := d.c.focus(ctx, "dialog type", d.c.sel.DialogInput); err != nil {
		return err
	}
	return d.c.run(ctx, "dialog type", chromedp.KeyEvent(text))
}

func (d chromeDialog) Click(ctx context.Context, button string) error {
	return d.c.dispatch(ctx, "dialog click", d.c.sel.DialogButton, button, "click")
}

type chromePalette struct{ c *Chrome }

func (p chromePalette) Open(ctx context.Context) error {
	return p.c.dispatch(ctx, "open palette", p.c.sel.PaletteToggle, "", "click")
}

// Start double-clicks the palette entry named command.
func (p chromePalette) Start(ctx context.Context, command string) error {
	return p.c.dispatch(ctx, "start command", p.c.sel.PaletteItem, command, "dblclick")
}
