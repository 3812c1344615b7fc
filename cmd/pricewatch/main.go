package main

import (
	"os"

	"github.com/openpantry/priceintel/cmd/pricewatch/commands"
)

// main is the entry point for the pricewatch CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
