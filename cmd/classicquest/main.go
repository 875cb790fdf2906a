// cmd/classicquest/main.go
//
// This is the entry point for the classicquest CLI.
// Running `classicquest` with no arguments opens the recipe cart TUI in the
// current directory; the subcommands answer one-off questions from the shell.

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
