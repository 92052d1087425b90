package script

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cboone/playbook"
	"github.com/cboone/playbook/ide"
)

// Defaults fill in wait settings a script step leaves unset. Zero values
// leave the driver's settings in charge.
type Defaults struct {
	Timeout time.Duration
	Poll    time.Duration
}

type args map[string]string

func (a args) int(name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(a[name]))
	if err != nil {
		return 0, fmt.Errorf("arg %s: %q is not a number", name, a[name])
	}
	if n < 1 {
		return 0, fmt.Errorf("arg %s: must be at least 1, got %d", name, n)
	}
	return n, nil
}

// optionalInt returns def when the arg is absent.
func (a args) optionalInt(name string, def int) (int, error) {
	if _, ok := a[name]; !ok {
		return def, nil
	}
	return a.int(name)
}

func (a args) markerKind() (playbook.MarkerKind, error) {
	k, err := playbook.ParseMarkerKind(a["kind"])
	if err != nil {
		return 0, fmt.Errorf("arg kind: %w", err)
	}
	return k, nil
}

type binder struct {
	kind     playbook.StepKind
	required []string
	optional []string
	action   func(ide.Workbench, args) (playbook.Effect, error)
	assert   func(ide.Workbench, args) (playbook.Matcher, error)
}

func action(required []string, fn func(ide.Workbench, args) (playbook.Effect, error), optional ...string) binder {
	return binder{kind: playbook.KindAction, required: required, optional: optional, action: fn}
}

func assertion(required []string, fn func(ide.Workbench, args) (playbook.Matcher, error), optional ...string) binder {
	return binder{kind: playbook.KindAssertion, required: required, optional: optional, assert: fn}
}

func none() []string { return nil }

func names(n ...string) []string { return n }

var vocabulary = map[string]binder{
	"type": action(names("text"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		text := a["text"]
		return func(ctx context.Context) error { return wb.Editor().Type(ctx, text) }, nil
	}),
	"press": action(names("keys"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		keys, err := playbook.ParseKeys(a["keys"])
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return wb.Editor().Press(ctx, keys...) }, nil
	}),
	"open_file": action(names("path"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		path := a["path"]
		return func(ctx context.Context) error { return wb.Editor().OpenFile(ctx, path) }, nil
	}),
	"select_tab": action(names("name"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		name := a["name"]
		return func(ctx context.Context) error { return wb.Editor().SelectTab(ctx, name) }, nil
	}),
	"close_tab": action(names("name"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		name := a["name"]
		return func(ctx context.Context) error { return wb.Editor().CloseTab(ctx, name) }, nil
	}),
	"go_to": action(names("line"), bindGoTo, "column"),
	"go_to_line_end": action(none(), func(wb ide.Workbench, _ args) (playbook.Effect, error) {
		return func(ctx context.Context) error { return wb.Editor().Press(ctx, playbook.End) }, nil
	}),
	"delete_all": action(none(), func(wb ide.Workbench, _ args) (playbook.Effect, error) {
		return func(ctx context.Context) error { return wb.Editor().DeleteAll(ctx) }, nil
	}),
	"autocomplete": action(none(), func(wb ide.Workbench, _ args) (playbook.Effect, error) {
		return func(ctx context.Context) error { return wb.Editor().OpenAutocomplete(ctx) }, nil
	}),
	"accept": action(names("label"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		label := a["label"]
		return func(ctx context.Context) error { return wb.Editor().AcceptProposal(ctx, label) }, nil
	}),
	"menu": action(names("path"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		items := ide.SplitMenuPath(a["path"])
		if len(items) == 0 {
			return nil, errors.New("arg path: empty menu path")
		}
		return func(ctx context.Context) error { return ide.RunCommand(ctx, wb.Menu(), items...) }, nil
	}),
	"dialog_type": action(names("text"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		text := a["text"]
		return func(ctx context.Context) error { return wb.Dialog().Type(ctx, text) }, nil
	}),
	"dialog_click": action(names("target"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		target := a["target"]
		return func(ctx context.Context) error { return wb.Dialog().Click(ctx, target) }, nil
	}),
	"palette": action(names("command"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		command := a["command"]
		return func(ctx context.Context) error {
			if err := wb.Palette().Open(ctx); err != nil {
				return err
			}
			return wb.Palette().Start(ctx, command)
		}, nil
	}),
	"select_process": action(names("name"), func(wb ide.Workbench, a args) (playbook.Effect, error) {
		name := a["name"]
		return func(ctx context.Context) error { return wb.Console().SelectTab(ctx, name) }, nil
	}),

	"text": assertion(names("contains"), func(wb ide.Workbench, a args) (playbook.Matcher, error) {
		src, err := textSource(wb, a["source"])
		if err != nil {
			return nil, err
		}
		return playbook.TextVisible(src, a["contains"]), nil
	}, "source"),
	"marker": assertion(names("kind", "line"), func(wb ide.Workbench, a args) (playbook.Matcher, error) {
		kind, err := a.markerKind()
		if err != nil {
			return nil, err
		}
		line, err := a.int("line")
		if err != nil {
			return nil, err
		}
		col, err := a.optionalInt("column", 0)
		if err != nil {
			return nil, err
		}
		return playbook.MarkerAt(wb.Editor(), kind, playbook.At(line, col)), nil
	}, "column"),
	"marker_at_cursor": assertion(names("kind"), func(wb ide.Workbench, a args) (playbook.Matcher, error) {
		kind, err := a.markerKind()
		if err != nil {
			return nil, err
		}
		return ide.MarkerAtCursor(wb.Editor(), kind), nil
	}),
	"no_markers": assertion(names("kind"), func(wb ide.Workbench, a args) (playbook.Matcher, error) {
		kind, err := a.markerKind()
		if err != nil {
			return nil, err
		}
		return playbook.NoMarkers(wb.Editor(), kind), nil
	}),
	"tab": assertion(names("name"), func(wb ide.Workbench, a args) (playbook.Matcher, error) {
		return playbook.TabPresent(wb.Editor(), a["name"]), nil
	}),
	"no_tab": assertion(names("name"), func(wb ide.Workbench, a args) (playbook.Matcher, error) {
		return playbook.Not(playbook.TabPresent(wb.Editor(), a["name"])), nil
	}),
	"process": assertion(names("name"), func(wb ide.Workbench, a args) (playbook.Matcher, error) {
		return playbook.TabPresent(wb.Console(), a["name"]), nil
	}),
	"dialog_open": assertion(none(), func(wb ide.Workbench, a args) (playbook.Matcher, error) {
		return ide.DialogOpen(wb.Dialog(), a["title"]), nil
	}, "title"),
	"dialog_closed": assertion(none(), func(wb ide.Workbench, _ args) (playbook.Matcher, error) {
		return playbook.Not(ide.DialogOpen(wb.Dialog(), "")), nil
	}),
}

// bindGoTo accepts a line number or "current" for the line the cursor is on
// when the step runs. The column defaults to 1.
func bindGoTo(wb ide.Workbench, a args) (playbook.Effect, error) {
	col, err := a.optionalInt("column", 1)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(a["line"]) == "current" {
		return func(ctx context.Context) error {
			pos, err := wb.Editor().CursorPosition(ctx)
			if err != nil {
				return err
			}
			return wb.Editor().GoTo(ctx, playbook.At(pos.Line, col))
		}, nil
	}
	line, err := a.int("line")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return wb.Editor().GoTo(ctx, playbook.At(line, col))
	}, nil
}

func textSource(wb ide.Workbench, source string) (playbook.TextSource, error) {
	switch source {
	case "", "editor":
		return wb.Editor(), nil
	case "console":
		return wb.Console(), nil
	case "autocomplete":
		return wb.Editor().Proposals(), nil
	default:
		return nil, fmt.Errorf("arg source: unknown source %q (want editor, console or autocomplete)", source)
	}
}

// Vocabulary returns the step names Bind understands, by kind.
func Vocabulary() map[playbook.StepKind][]string {
	out := make(map[playbook.StepKind][]string)
	for name, b := range vocabulary {
		out[b.kind] = append(out[b.kind], name)
	}
	for _, v := range out {
		slices.Sort(v)
	}
	return out
}

// Bind turns an outline into a scenario that drives wb.
//
// Actions: type{text}, press{keys}, open_file{path}, select_tab{name},
// close_tab{name}, go_to{line[,column]}, go_to_line_end, delete_all,
// autocomplete, accept{label}, menu{path}, dialog_type{text},
// dialog_click{target}, palette{command}, select_process{name}.
//
// Assertions: text{contains[,source]}, marker{kind,line[,column]},
// marker_at_cursor{kind}, no_markers{kind}, tab{name}, no_tab{name},
// process{name}, dialog_open[{title}], dialog_closed.
//
// Errors name the offending step by index and name.
func Bind(o playbook.Outline, wb ide.Workbench, defaults Defaults) (*playbook.Scenario, error) {
	steps := make([]playbook.Step, 0, len(o.Steps))
	for i, so := range o.Steps {
		s, err := bindStep(so, wb, defaults)
		if err != nil {
			return nil, &playbook.StepError{Scenario: o.Name, Index: i, Name: so.Name, Err: err}
		}
		steps = append(steps, s)
	}

	sc := playbook.NewScenario(o.Name, steps...).WithDescription(o.Description)
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func bindStep(so playbook.StepOutline, wb ide.Workbench, defaults Defaults) (playbook.Step, error) {
	b, ok := vocabulary[so.Name]
	if !ok {
		return playbook.Step{}, fmt.Errorf("unknown step %q", so.Name)
	}
	if so.Kind != 0 && so.Kind != b.kind {
		return playbook.Step{}, fmt.Errorf("%s is an %s, not an %s", so.Name, b.kind, so.Kind)
	}

	a := args(so.Args)
	for _, r := range b.required {
		if _, ok := a[r]; !ok {
			return playbook.Step{}, fmt.Errorf("missing arg %s", r)
		}
	}
	for k := range a {
		if !slices.Contains(b.required, k) && !slices.Contains(b.optional, k) {
			return playbook.Step{}, fmt.Errorf("unexpected arg %s", k)
		}
	}

	opts := []playbook.StepOption{playbook.WithArgs(so.Args)}
	if b.kind == playbook.KindAction {
		if so.Timeout != 0 || so.Poll != 0 {
			return playbook.Step{}, errors.New("actions do not wait; remove timeout and poll")
		}
		effect, err := b.action(wb, a)
		if err != nil {
			return playbook.Step{}, err
		}
		return playbook.Action(so.Name, effect, opts...), nil
	}

	m, err := b.assert(wb, a)
	if err != nil {
		return playbook.Step{}, err
	}
	timeout, poll := so.Timeout, so.Poll
	if timeout == 0 {
		timeout = defaults.Timeout
	}
	if poll == 0 {
		poll = defaults.Poll
	}
	if poll > 0 {
		opts = append(opts, playbook.WithWaitPollInterval(poll))
	}
	return playbook.Assertion(so.Name, m, timeout, opts...), nil
}
