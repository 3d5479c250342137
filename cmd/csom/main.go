// Command csom manages SharePoint taxonomy through ProcessQuery batches.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/csom/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "csom:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
