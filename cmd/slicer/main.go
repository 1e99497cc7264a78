// Package main implements the slicer CLI.
// It builds program dependence graphs for C, C++ and Go functions and
// computes backward or forward slices over them.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sunxfancy/cpp-slicer/cmd/slicer/commands"
	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

var version = "dev"

func main() {
	commands.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps an error to the process status: 2 for input the front-ends
// reject, 3 for a broken graph invariant and 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, frontend.ErrParse), errors.Is(err, frontend.ErrUnsupportedLanguage):
		return 2
	case errors.Is(err, pdg.ErrInvariant):
		return 3
	default:
		return 1
	}
}
