// Package main is the entry point for the einvoice-tracker.
package main

import (
	"os"

	"github.com/donaldgifford/einvoice-tracker/cmd/einvoice-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
