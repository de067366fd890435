// Package main provides the CLI for the Fieldline formula engine.
package main

import (
	"os"

	"github.com/fieldline-labs/fieldline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
