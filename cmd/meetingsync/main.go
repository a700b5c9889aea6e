// Package main provides the entry point for the meetingsync CLI.
package main

import (
	"fmt"
	"os"

	"github.com/MichalPlaza/meeting-synthesis-sub001/cmd/meetingsync/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
