// Package main provides the citelink CLI entry point.
package main

import (
	"errors"
	"os"

	"github.com/ppiankov/citelink/internal/cli"
	"github.com/ppiankov/citelink/internal/logger"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !errors.Is(err, cli.ErrNoReferences) {
			logger.Error("%s", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
