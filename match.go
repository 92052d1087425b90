package playbook

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Match is the outcome of one matcher evaluation. Description says what the
// matcher waits for; Observed is what the page showed at evaluation time.
type Match struct {
	OK          bool
	Description string
	Observed    string
}

// A Matcher evaluates a condition against the live page. Matchers must not
// change the page, and they re-query it on every call.
type Matcher func(ctx context.Context) (Match, error)

// TextVisible matches when the source's text contains expected.
func TextVisible(src TextSource, expected string) Matcher {
	desc := fmt.Sprintf("text to contain %q", expected)
	return func(ctx context.Context) (Match, error) {
		text, err := src.CurrentText(ctx)
		if err != nil {
			return Match{Description: desc}, err
		}
		return Match{OK: strings.Contains(text, expected), Description: desc, Observed: text}, nil
	}
}

// TextMatches matches when the source's text matches the regular
// expression. The pattern is compiled once; an invalid pattern panics.
func TextMatches(src TextSource, pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	desc := fmt.Sprintf("text to match regexp %q", pattern)
	return func(ctx context.Context) (Match, error) {
		text, err := src.CurrentText(ctx)
		if err != nil {
			return Match{Description: desc}, err
		}
		return Match{OK: re.MatchString(text), Description: desc, Observed: text}, nil
	}
}

// LineContains matches when the given 1-based line of the source's text
// contains substr.
func LineContains(src TextSource, line int, substr string) Matcher {
	desc := fmt.Sprintf("line %d to contain %q", line, substr)
	return func(ctx context.Context) (Match, error) {
		text, err := src.CurrentText(ctx)
		if err != nil {
			return Match{Description: desc}, err
		}
		lines := strings.Split(text, "\n")
		if line < 1 || line > len(lines) {
			return Match{Description: desc, Observed: text}, nil
		}
		return Match{OK: strings.Contains(lines[line-1], substr), Description: desc, Observed: text}, nil
	}
}

// Empty matches when the source shows no visible text.
func Empty(src TextSource) Matcher {
	return func(ctx context.Context) (Match, error) {
		text, err := src.CurrentText(ctx)
		if err != nil {
			return Match{Description: "text to be empty"}, err
		}
		return Match{OK: strings.TrimSpace(text) == "", Description: "text to be empty", Observed: text}, nil
	}
}

// MarkerAt matches when a marker of kind is shown at pos.
func MarkerAt(src MarkerSource, kind MarkerKind, pos Position) Matcher {
	desc := fmt.Sprintf("%s marker at %s", kind, pos)
	return func(ctx context.Context) (Match, error) {
		state, err := src.CurrentMarkers(ctx)
		if err != nil {
			return Match{Description: desc}, err
		}
		return Match{OK: state.Has(kind, pos), Description: desc, Observed: state.String()}, nil
	}
}

// NoMarkers matches when no marker of kind is shown.
func NoMarkers(src MarkerSource, kind MarkerKind) Matcher {
	desc := fmt.Sprintf("no %s markers", kind)
	return func(ctx context.Context) (Match, error) {
		state, err := src.CurrentMarkers(ctx)
		if err != nil {
			return Match{Description: desc}, err
		}
		return Match{OK: state.Count(kind) == 0, Description: desc, Observed: state.String()}, nil
	}
}

// TabPresent matches when a tab called name is open.
func TabPresent(src TabSource, name string) Matcher {
	desc := fmt.Sprintf("tab %q to be open", name)
	return func(ctx context.Context) (Match, error) {
		tabs, err := src.OpenTabs(ctx)
		if err != nil {
			return Match{Description: desc}, err
		}
		return Match{OK: slices.Contains(tabs, name), Description: desc, Observed: formatTabs(tabs)}, nil
	}
}

// Visible matches when the target element is visible.
func Visible(src VisibilitySource, target string) Matcher {
	desc := fmt.Sprintf("%s to be visible", target)
	return func(ctx context.Context) (Match, error) {
		ok, err := src.Visible(ctx, target)
		if err != nil {
			return Match{Description: desc}, err
		}
		observed := target + " hidden"
		if ok {
			observed = target + " visible"
		}
		return Match{OK: ok, Description: desc, Observed: observed}, nil
	}
}

// Not inverts a matcher. Evaluation errors pass through.
func Not(m Matcher) Matcher {
	return func(ctx context.Context) (Match, error) {
		res, err := m(ctx)
		res.Description = "NOT(" + res.Description + ")"
		if err != nil {
			return res, err
		}
		res.OK = !res.OK
		return res, nil
	}
}

// All matches when every matcher matches. Evaluation stops at the first
// miss or error.
func All(matchers ...Matcher) Matcher {
	return func(ctx context.Context) (Match, error) {
		descs := make([]string, 0, len(matchers))
		for _, m := range matchers {
			res, err := m(ctx)
			descs = append(descs, res.Description)
			if err != nil || !res.OK {
				return Match{Description: "all of: " + strings.Join(descs, ", "), Observed: res.Observed}, err
			}
		}
		return Match{OK: true, Description: "all of: " + strings.Join(descs, ", ")}, nil
	}
}

// Any matches when at least one matcher matches. Evaluation stops at the
// first hit or error.
func Any(matchers ...Matcher) Matcher {
	return func(ctx context.Context) (Match, error) {
		descs := make([]string, 0, len(matchers))
		observed := make([]string, 0, len(matchers))
		for _, m := range matchers {
			res, err := m(ctx)
			descs = append(descs, res.Description)
			if err != nil {
				return Match{Description: "any of: " + strings.Join(descs, ", ")}, err
			}
			if res.OK {
				return Match{OK: true, Description: "any of: " + strings.Join(descs, ", "), Observed: res.Observed}, nil
			}
			observed = append(observed, res.Observed)
		}
		return Match{Description: "any of: " + strings.Join(descs, ", "), Observed: strings.Join(observed, "\n")}, nil
	}
}

func formatTabs(tabs []string) string {
	if len(tabs) == 0 {
		return "no tabs"
	}
	return "tabs: " + strings.Join(tabs, ", ")
}
