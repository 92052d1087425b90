package playbook

import (
	"fmt"
	"strings"
)

// Key is a special key, spelled the way tmux names it. Page objects that
// are not terminals translate keys into their own representation.
type Key string

// Special key constants for use with Press.
const (
	Enter     Key = "Enter"
	Escape    Key = "Escape"
	Tab       Key = "Tab"
	Backspace Key = "BSpace"
	Up        Key = "Up"
	Down      Key = "Down"
	Left      Key = "Left"
	Right     Key = "Right"
	Home      Key = "Home"
	End       Key = "End"
	PageUp    Key = "PageUp"
	PageDown  Key = "PageDown"
	Space     Key = "Space"
	Delete    Key = "DC"

	F1  Key = "F1"
	F2  Key = "F2"
	F3  Key = "F3"
	F4  Key = "F4"
	F5  Key = "F5"
	F6  Key = "F6"
	F7  Key = "F7"
	F8  Key = "F8"
	F9  Key = "F9"
	F10 Key = "F10"
	F11 Key = "F11"
	F12 Key = "F12"
)

// Ctrl returns the key sequence for Ctrl+<char>.
func Ctrl(c byte) Key {
	return Key(fmt.Sprintf("C-%c", c))
}

// Alt returns the key sequence for Alt+<char>.
func Alt(c byte) Key {
	return Key(fmt.Sprintf("M-%c", c))
}

var namedKeys = map[string]Key{
	"enter":     Enter,
	"return":    Enter,
	"escape":    Escape,
	"esc":       Escape,
	"tab":       Tab,
	"backspace": Backspace,
	"bspace":    Backspace,
	"up":        Up,
	"down":      Down,
	"left":      Left,
	"right":     Right,
	"home":      Home,
	"end":       End,
	"pageup":    PageUp,
	"pagedown":  PageDown,
	"space":     Space,
	"delete":    Delete,
	"dc":        Delete,
	"f1":        F1,
	"f2":        F2,
	"f3":        F3,
	"f4":        F4,
	"f5":        F5,
	"f6":        F6,
	"f7":        F7,
	"f8":        F8,
	"f9":        F9,
	"f10":       F10,
	"f11":       F11,
	"f12":       F12,
}

// ParseKey converts a key name as written in scenario scripts ("Enter",
// "delete", "F4", "ctrl+c", "C-c", "alt+x") into a Key.
func ParseKey(name string) (Key, error) {
	s := strings.TrimSpace(name)
	if k, ok := namedKeys[strings.ToLower(s)]; ok {
		return k, nil
	}

	lower := strings.ToLower(s)
	for _, mod := range []struct {
		prefix string
		fn     func(byte) Key
	}{
		{"ctrl+", Ctrl},
		{"c-", Ctrl},
		{"alt+", Alt},
		{"m-", Alt},
	} {
		if rest, ok := strings.CutPrefix(lower, mod.prefix); ok && len(rest) == 1 {
			return mod.fn(rest[0]), nil
		}
	}
	return "", fmt.Errorf("unknown key %q", name)
}

// ParseKeys parses a comma- or space-separated list of key names.
func ParseKeys(list string) ([]Key, error) {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no keys in %q", list)
	}
	keys := make([]Key, 0, len(fields))
	for _, f := range fields {
		k, err := ParseKey(f)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
