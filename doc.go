// Package playbook drives UI scenarios against page objects and asserts on
// asynchronous UI state.
//
// A scenario is an ordered list of steps. Actions send commands to the page
// (type text, press keys, click a menu) and return immediately; the UI
// reacts later. Assertions poll the page until a condition holds or a
// timeout expires. The [Driver] runs the steps in order and stops at the
// first failure.
//
// # Quick Start
//
//	func TestConsole(t *testing.T) {
//		term := playbook.MustOpenTerminal(t, "./my-repl")
//		d := playbook.NewDriver()
//		d.Test(t, playbook.NewScenario("echo",
//			playbook.Assertion("prompt", playbook.TextVisible(term, ">>>"), 0),
//			playbook.Action("type", func(ctx context.Context) error {
//				return term.Type(ctx, "print(\"hi\")")
//			}),
//			playbook.Action("enter", func(ctx context.Context) error {
//				return term.Press(ctx, playbook.Enter)
//			}),
//			playbook.Assertion("output", playbook.LineContains(term, 2, "hi"), 0),
//		))
//	}
//
// # Page Objects
//
// The page-object contract is a set of small interfaces: [TextSource],
// [MarkerSource], [TabSource] and [VisibilitySource] for queries, [Typer],
// [KeyPresser], [Clicker] and [TabSelector] for commands, and [Session] for
// the releasable handle. The ide package composes them into an IDE
// workbench; [Terminal] implements them for console programs.
//
// # Waiting and Matchers
//
// [WaitUntil] evaluates a [Matcher] immediately and then every poll
// interval until it holds or the timeout expires. It never sleeps when the
// condition already holds.
//
// Wait behavior in the driver:
//
//   - Defaults: 5s timeout, 50ms poll interval
//   - Per-driver overrides: [WithTimeout], [WithPollInterval]
//   - Per-step overrides: the Assertion timeout, [WithWaitPollInterval]
//   - Poll intervals under 10ms are clamped to 10ms
//   - A cancelled context ends the wait promptly
//
// Built-in matchers include [TextVisible], [TextMatches], [LineContains],
// [Empty], [MarkerAt], [NoMarkers], [TabPresent], [Visible],
// [ProcessExited], [Not], [All] and [Any].
//
// # Errors
//
// A condition that never holds is a [*TimeoutError] carrying the last few
// observations. A matcher that cannot evaluate is a [*PredicateError]. A
// lost page-object session is a [*SessionError]: it fails the running
// scenario, and [Driver.RunAll] skips every later scenario sharing the
// session. [Result.Err] locates a failure as a [*StepError].
//
// # Terminals
//
// [OpenTerminal] runs a program inside a dedicated tmux server with a unique
// socket under os.TempDir. The server is started with remain-on-exit on,
// status off and a deterministic history-limit, and is killed by
// [Terminal.Close].
//
// tmux is resolved in this order:
//
//   - [WithTmuxPath]
//   - PLAYBOOK_TMUX
//   - PATH lookup for tmux
//
// [Screen.MatchSnapshot] compares a screen against golden files under
// testdata/snapshots. Run the tests with -update to write them.
//
// # Scripts
//
// Scenarios can also be written as YAML [Outline] documents. The script
// package loads and binds them to an IDE workbench, and the playbook
// command (cmd/playbook) runs them as a suite:
//
//	playbook run testdata/scenarios
//	playbook validate testdata/scenarios
//	playbook history --limit 10
package playbook
