// Package main is the entry point for the anchord CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/anchorhq/anchor/internal/cli"
)

// usageError reports whether err came from argument parsing rather than a
// failed operation, for the exit-code convention (1 = error, 2 = usage).
func usageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"invalid argument",
		"flag needs an argument",
		"accepts at most",
		"requires at least",
	} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if usageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
