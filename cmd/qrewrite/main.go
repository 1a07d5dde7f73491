// Command qrewrite expands, rewrites and evaluates boolean query trees.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/qrewrite/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
