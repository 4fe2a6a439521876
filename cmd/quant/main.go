package main

import (
	"os"

	"github.com/vvnuui/cerisier/cmd/quant/commands"
)

// Unified CLI entry point: go run ./cmd/quant [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
