package playbook

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// MatchSnapshot captures the current screen and compares it against a
// golden file. See Screen.MatchSnapshot.
func (term *Terminal) MatchSnapshot(t *testing.T, name string) {
	t.Helper()
	scr, err := term.Screen(t.Context())
	if err != nil {
		t.Fatalf("playbook: snapshot: %v", err)
	}
	scr.MatchSnapshot(t, name)
}

// MatchSnapshot compares the screen against the golden file
// testdata/snapshots/<test name>/<name>.golden.
//
// Run the tests with -update to create or update golden files.
func (s *Screen) MatchSnapshot(t *testing.T, name string) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/snapshots"),
		goldie.WithNameSuffix(".golden"),
		goldie.WithTestNameForDir(true),
	)
	g.Assert(t, sanitizeName(name), []byte(normalizeForSnapshot(s.String())))
}

// normalizeForSnapshot trims trailing spaces on each line and trailing blank
// lines, and ends the content with a single newline.
func normalizeForSnapshot(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}
