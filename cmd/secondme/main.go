// ABOUTME: Main entry point for the SecondMe CLI
// ABOUTME: Wires version info and delegates to the commands package
package main

import (
	"os"

	"github.com/harper/secondme/cmd/secondme/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
