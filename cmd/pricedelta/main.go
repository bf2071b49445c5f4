package main

import (
	"os"

	"github.com/wonny/pricedelta/cmd/pricedelta/commands"
)

// main is the entry point for the pricedelta CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/pricedelta [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
