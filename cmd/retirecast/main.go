package main

import (
	"errors"
	"fmt"
	"os"

	"retirecast/internal/cli"
	"retirecast/internal/core"
)

// Exit codes: 0 success, 2 invalid inputs, 3 configuration or tax data
// problem, 4 numeric overflow during projection.
const (
	exitOK         = 0
	exitError      = 1
	exitValidation = 2
	exitConfig     = 3
	exitNumeric    = 4
)

func main() {
	cli.LoadEnvFile()
	cli.SetupLogger()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return exitValidation
	case errors.Is(err, core.ErrConfig):
		return exitConfig
	case errors.Is(err, core.ErrNumeric):
		return exitNumeric
	}
	return exitError
}
