// Package main is the entry point for the walletcore CLI.
package main

import (
	"os"

	"github.com/algointent/walletcore/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
