// Package main is the entry point for the tipjar CLI.
package main

import (
	"os"

	"github.com/mrz1836/tipjar/internal/cli"
)

// Set by -ldflags at release time.
var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	if err := cli.Execute(cli.BuildInfo{Version: version, Commit: commit, Date: date}); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
