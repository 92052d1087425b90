// Package report renders suite results and run history for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/cboone/playbook"
	"github.com/cboone/playbook/internal/history"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options controls rendering.
type Options struct {
	Format string
	// Color allows ANSI styling when the writer supports it. Off forces
	// plain text.
	Color bool
	// Verbose lists every step, not just the failing one.
	Verbose bool
}

var (
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

type styles struct {
	pass    lipgloss.Style
	fail    lipgloss.Style
	skip    lipgloss.Style
	muted   lipgloss.Style
	bold    lipgloss.Style
	border  lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	oddCell lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	cell := r.NewStyle().Padding(0, 1)
	return styles{
		pass:    r.NewStyle().Foreground(green).Bold(true),
		fail:    r.NewStyle().Foreground(red).Bold(true),
		skip:    r.NewStyle().Foreground(yellow).Bold(true),
		muted:   r.NewStyle().Foreground(dim),
		bold:    r.NewStyle().Bold(true),
		border:  r.NewStyle().Foreground(faint),
		header:  cell.Bold(true),
		cell:    cell,
		oddCell: cell.Foreground(dim),
	}
}

func (s styles) status(st playbook.Status) string {
	switch st {
	case playbook.StatusPassed:
		return s.pass.Render("PASS")
	case playbook.StatusFailed:
		return s.fail.Render("FAIL")
	default:
		return s.skip.Render("SKIP")
	}
}

// Write renders a suite result in the requested format.
func Write(w io.Writer, suite playbook.SuiteResult, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, suite)
	case FormatText, "":
		return writeText(w, suite, opts)
	default:
		return fmt.Errorf("report: unknown format %q", opts.Format)
	}
}

func writeText(w io.Writer, suite playbook.SuiteResult, opts Options) error {
	s := newStyles(w, opts.Color)
	var b strings.Builder
	for _, r := range suite.Results {
		fmt.Fprintf(&b, "%s  %s", s.status(r.Status), s.bold.Render(r.Scenario))
		if r.Status != playbook.StatusSkipped {
			fmt.Fprintf(&b, "  %s", s.muted.Render(duration(r.Elapsed)))
		}
		b.WriteString("\n")

		if opts.Verbose {
			for _, step := range r.Steps {
				fmt.Fprintf(&b, "      %s %d %s %s", stepMark(step.Status), step.Index, step.Kind, step.Name)
				if step.Attempts > 1 {
					fmt.Fprintf(&b, " (%d attempts)", step.Attempts)
				}
				if step.Status != playbook.StatusSkipped {
					fmt.Fprintf(&b, "  %s", s.muted.Render(duration(step.Elapsed)))
				}
				b.WriteString("\n")
			}
		}

		switch r.Status {
		case playbook.StatusFailed:
			if r.FailedStep >= 0 && r.FailedStep < len(r.Steps) {
				step := r.Steps[r.FailedStep]
				fmt.Fprintf(&b, "      step %d (%s): %s\n", step.Index, step.Name, firstLine(r.Cause))
			} else {
				fmt.Fprintf(&b, "      %s\n", firstLine(r.Cause))
			}
			if r.Observed != "" {
				b.WriteString("      observed:\n")
				for _, line := range strings.Split(strings.TrimRight(r.Observed, "\n"), "\n") {
					fmt.Fprintf(&b, "        %s\n", line)
				}
			}
		case playbook.StatusSkipped:
			fmt.Fprintf(&b, "      %s\n", s.muted.Render(firstLine(r.Cause)))
		}
	}

	total := len(suite.Results)
	fmt.Fprintf(&b, "\n%d %s: %s, %s, %s\n",
		total, plural(total, "scenario"),
		s.pass.Render(strconv.Itoa(suite.Passed)+" passed"),
		s.fail.Render(strconv.Itoa(suite.Failed)+" failed"),
		s.skip.Render(strconv.Itoa(suite.Skipped)+" skipped"),
	)
	_, err := io.WriteString(w, b.String())
	return err
}

func stepMark(st playbook.Status) string {
	switch st {
	case playbook.StatusPassed:
		return "ok  "
	case playbook.StatusFailed:
		return "FAIL"
	default:
		return "--  "
	}
}

type jsonSuite struct {
	OK      bool         `json:"ok"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Skipped int          `json:"skipped"`
	Results []jsonResult `json:"results"`
}

type jsonResult struct {
	RunID      string     `json:"run_id"`
	Scenario   string     `json:"scenario"`
	Status     string     `json:"status"`
	FailedStep int        `json:"failed_step"`
	Error      string     `json:"error,omitempty"`
	Observed   string     `json:"observed,omitempty"`
	Started    time.Time  `json:"started"`
	ElapsedMS  int64      `json:"elapsed_ms"`
	Steps      []jsonStep `json:"steps"`
}

type jsonStep struct {
	Index     int    `json:"index"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Observed  string `json:"observed,omitempty"`
}

func writeJSON(w io.Writer, suite playbook.SuiteResult) error {
	out := jsonSuite{
		OK:      suite.OK(),
		Passed:  suite.Passed,
		Failed:  suite.Failed,
		Skipped: suite.Skipped,
		Results: make([]jsonResult, 0, len(suite.Results)),
	}
	for _, r := range suite.Results {
		jr := jsonResult{
			RunID:      r.RunID,
			Scenario:   r.Scenario,
			Status:     r.Status.String(),
			FailedStep: r.FailedStep,
			Observed:   r.Observed,
			Started:    r.Started,
			ElapsedMS:  r.Elapsed.Milliseconds(),
			Steps:      make([]jsonStep, 0, len(r.Steps)),
		}
		if err := r.Err(); err != nil {
			jr.Error = err.Error()
		}
		for _, s := range r.Steps {
			jr.Steps = append(jr.Steps, jsonStep{
				Index:     s.Index,
				Kind:      s.Kind.String(),
				Name:      s.Name,
				Status:    s.Status.String(),
				Attempts:  s.Attempts,
				ElapsedMS: s.Elapsed.Milliseconds(),
				Observed:  s.Observed,
			})
		}
		out.Results = append(out.Results, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteHistory renders recorded runs, newest first, as a table or JSON.
func WriteHistory(w io.Writer, runs []history.Run, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		type jsonRun struct {
			RunID      string    `json:"run_id"`
			Scenario   string    `json:"scenario"`
			Status     string    `json:"status"`
			FailedStep int       `json:"failed_step"`
			StepName   string    `json:"step_name,omitempty"`
			Error      string    `json:"error,omitempty"`
			Started    time.Time `json:"started"`
			ElapsedMS  int64     `json:"elapsed_ms"`
		}
		out := make([]jsonRun, 0, len(runs))
		for _, r := range runs {
			out = append(out, jsonRun{
				RunID:      r.RunID,
				Scenario:   r.Scenario,
				Status:     r.Status.String(),
				FailedStep: r.FailedStep,
				StepName:   r.StepName,
				Error:      r.Error,
				Started:    r.Started.UTC(),
				ElapsedMS:  r.Elapsed.Milliseconds(),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case FormatText, "":
	default:
		return fmt.Errorf("report: unknown format %q", opts.Format)
	}

	s := newStyles(w, opts.Color)
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, s.muted.Render("no recorded runs"))
		return err
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		failure := ""
		if r.Status == playbook.StatusFailed && r.StepName != "" {
			failure = fmt.Sprintf("step %d (%s)", r.FailedStep, r.StepName)
		}
		rows = append(rows, []string{
			r.Started.Local().Format(time.DateTime),
			r.Scenario,
			s.status(r.Status),
			duration(r.Elapsed),
			failure,
			shortID(r.RunID),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return s.header
			case row%2 == 0:
				return s.cell
			default:
				return s.oddCell
			}
		}).
		Headers("STARTED", "SCENARIO", "STATUS", "ELAPSED", "FAILED AT", "RUN").
		Rows(rows...)

	_, err := fmt.Fprintln(w, t.String())
	return err
}

func duration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

func firstLine(err error) string {
	if err == nil {
		return ""
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// shortID trims a UUID to its first group.
func shortID(id string) string {
	if head, _, ok := strings.Cut(id, "-"); ok {
		return head
	}
	return id
}
