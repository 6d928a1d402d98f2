// Package main provides the entry point for the findex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/findex/cmd/findex/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
