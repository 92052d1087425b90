package playbook_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cboone/playbook"
)

// fakePage is an in-memory page whose state tests change directly.
type fakePage struct {
	mu      sync.Mutex
	text    string
	markers playbook.MarkerState
	tabs    []string
	visible map[string]bool
	err     error

	queries atomic.Int32
}

func newFakePage(text string) *fakePage {
	return &fakePage{text: text, visible: make(map[string]bool)}
}

func (p *fakePage) setText(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = s
}

func (p *fakePage) setMarkers(ms ...playbook.Marker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markers = playbook.NewMarkerState(ms...)
}

func (p *fakePage) setTabs(tabs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tabs = tabs
}

func (p *fakePage) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakePage) CurrentText(context.Context) (string, error) {
	p.queries.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, p.err
}

func (p *fakePage) CurrentMarkers(context.Context) (playbook.MarkerState, error) {
	p.queries.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markers, p.err
}

func (p *fakePage) OpenTabs(context.Context) ([]string, error) {
	p.queries.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.tabs...), p.err
}

func (p *fakePage) Visible(_ context.Context, target string) (bool, error) {
	p.queries.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[target], p.err
}

func (p *fakePage) Type(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.text += text
	return nil
}

// sequence returns a matcher that reports the given outcomes in order and
// repeats the last one.
func sequence(outcomes ...bool) (playbook.Matcher, *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (playbook.Match, error) {
		n := int(calls.Add(1)) - 1
		ok := outcomes[min(n, len(outcomes)-1)]
		return playbook.Match{OK: ok, Description: "sequence", Observed: "call"}, nil
	}, &calls
}
