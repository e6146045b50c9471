// Package main provides the entry point for the jarfang CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/jarfang/cmd/jarfang/commands"
	"github.com/Sumatoshi-tech/jarfang/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
