package playbook_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cboone/playbook"
)

func ExampleWaitUntil() {
	page := newFakePage("Hello World")

	res, err := playbook.WaitUntil(context.Background(), playbook.TextVisible(page, "Hello"), time.Second, 50*time.Millisecond)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(res.Satisfied, res.Attempts)
	// Output: true 1
}

func ExampleDriver_Run() {
	page := newFakePage("")
	page.setMarkers(playbook.Marker{Kind: playbook.MarkerError, Position: playbook.At(1, 1)})

	d := playbook.NewDriver(playbook.WithTimeout(100 * time.Millisecond))
	res := d.Run(context.Background(), playbook.NewScenario("markers",
		playbook.Assertion("error on line 1", playbook.MarkerAt(page, playbook.MarkerError, playbook.OnLine(1)), 0),
		playbook.Assertion("no warnings", playbook.NoMarkers(page, playbook.MarkerWarning), 0),
	))
	fmt.Println(res.Status)
	// Output: passed
}

func ExampleMustOpenTerminal() {
	_ = func(t *testing.T) {
		term := playbook.MustOpenTerminal(t, "./my-app",
			playbook.WithCommandArgs("--verbose"),
			playbook.WithSize(120, 40),
		)
		d := playbook.NewDriver(playbook.WithTimeout(10 * time.Second))
		d.Test(t, playbook.NewScenario("welcome",
			playbook.Assertion("banner", playbook.All(
				playbook.TextVisible(term, "Welcome"),
				playbook.Not(playbook.TextVisible(term, "Error")),
			), 0),
		))
	}
}

func ExampleScreen_MatchSnapshot() {
	_ = func(t *testing.T) {
		term := playbook.MustOpenTerminal(t, "./my-app")
		if err := playbook.Require(t.Context(), playbook.TextVisible(term, "Dashboard"), 5*time.Second, 50*time.Millisecond); err != nil {
			t.Fatal(err)
		}
		term.MatchSnapshot(t, "dashboard")
	}
}
