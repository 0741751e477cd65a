// Package main is the entry point for the recall CLI.
package main

import (
	"fmt"
	"os"

	"github.com/runger/recall/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
