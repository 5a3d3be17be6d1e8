// Command crunch runs a tick-driven team of simulated workers.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/crunch/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
