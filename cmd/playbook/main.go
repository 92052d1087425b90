// Command playbook runs scripted UI scenarios against an IDE workbench.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cboone/playbook/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
