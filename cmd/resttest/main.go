// Command resttest runs declarative HTTP scenario suites.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/resttest/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
