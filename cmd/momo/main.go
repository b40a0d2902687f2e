package main

import (
	"os"

	"github.com/mhan/momo/cmd/momo/commands"
)

// main is the entry point for the momo CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
