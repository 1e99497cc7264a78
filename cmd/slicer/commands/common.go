package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sunxfancy/cpp-slicer/internal/config"
	"github.com/sunxfancy/cpp-slicer/pkg/dfg"
	"github.com/sunxfancy/cpp-slicer/pkg/render"
	"github.com/sunxfancy/cpp-slicer/pkg/slicer"
)

// engineOptions maps configuration onto engine options.
func engineOptions(cfg *config.Config) slicer.Options {
	return slicer.Options{
		Analysis: dfg.Options{
			KillInBranches:    cfg.KillInBranches,
			MaxLoopIterations: cfg.MaxLoopIterations,
			MaxLoopDepth:      cfg.MaxLoopDepth,
		},
		CacheSize:   cfg.CacheSize,
		Parallelism: cfg.Parallelism,
	}
}

// checkFile ensures path names a regular file.
func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, expected a file: %s", path)
	}
	return nil
}

// functionName returns --function when given, the configured default
// otherwise.
func functionName(cmd *cobra.Command) string {
	if cmd.Flags().Changed("function") {
		name, _ := cmd.Flags().GetString("function")
		return name
	}
	return settings.Function
}

// outputFormat returns --format when given, the configured default
// otherwise.
func outputFormat(cmd *cobra.Command) (render.Format, error) {
	if cmd.Flags().Changed("format") {
		f, _ := cmd.Flags().GetString("format")
		return render.ParseFormat(f)
	}
	return render.ParseFormat(settings.Format)
}

// openOutput returns the writer selected by --output, stdout by default.
// The returned close function must be called.
func openOutput(cmd *cobra.Command) (io.Writer, func() error, error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// parseAt parses a LINE:COLUMN position.
func parseAt(s string) (int, int, error) {
	lineStr, colStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid position %q (want LINE:COLUMN)", s)
	}
	line, err := strconv.Atoi(lineStr)
	if err != nil || line <= 0 {
		return 0, 0, fmt.Errorf("invalid line in %q", s)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil || col <= 0 {
		return 0, 0, fmt.Errorf("invalid column in %q", s)
	}
	return line, col, nil
}
