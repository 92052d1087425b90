package ide

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/cboone/playbook"
)

var chromeKeys = map[playbook.Key]string{
	playbook.Enter:     kb.Enter,
	playbook.Escape:    kb.Escape,
	playbook.Tab:       kb.Tab,
	playbook.Backspace: kb.Backspace,
	playbook.Up:        kb.ArrowUp,
	playbook.Down:      kb.ArrowDown,
	playbook.Left:      kb.ArrowLeft,
	playbook.Right:     kb.ArrowRight,
	playbook.Home:      kb.Home,
	playbook.End:       kb.End,
	playbook.PageUp:    kb.PageUp,
	playbook.PageDown:  kb.PageDown,
	playbook.Space:     " ",
	playbook.Delete:    kb.Delete,
	playbook.F1:        kb.F1,
	playbook.F2:        kb.F2,
	playbook.F3:        kb.F3,
	playbook.F4:        kb.F4,
	playbook.F5:        kb.F5,
	playbook.F6:        kb.F6,
	playbook.F7:        kb.F7,
	playbook.F8:        kb.F8,
	playbook.F9:        kb.F9,
	playbook.F10:       kb.F10,
	playbook.F11:       kb.F11,
	playbook.F12:       kb.F12,
}

// keyActions translates keys into DevTools key events.
func keyActions(keys ...playbook.Key) ([]chromedp.Action, error) {
	actions := make([]chromedp.Action, 0, len(keys))
	for _, k := range keys {
		if s, ok := chromeKeys[k]; ok {
			actions = append(actions, chromedp.KeyEvent(s))
			continue
		}
		if rest, ok := strings.CutPrefix(string(k), "C-"); ok && len(rest) == 1 {
			actions = append(actions, chromedp.KeyEvent(rest, chromedp.KeyModifiers(input.ModifierCtrl)))
			continue
		}
		if rest, ok := strings.CutPrefix(string(k), "M-"); ok && len(rest) == 1 {
			actions = append(actions, chromedp.KeyEvent(rest, chromedp.KeyModifiers(input.ModifierAlt)))
			continue
		}
		return nil, fmt.Errorf("key %q has no browser equivalent", string(k))
	}
	return actions, nil
}
