// Package main provides the entry point for the gelanalyzer CLI.
package main

import (
	"fmt"
	"os"

	"gel-analyzer/internal/cli"
	"gel-analyzer/internal/image/cvimage"
)

func main() {
	cli.RegisterLoader("opencv", cvimage.Load)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
