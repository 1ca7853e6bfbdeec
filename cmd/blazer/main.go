// Package main provides the blazer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/omarriaga/blazer/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
