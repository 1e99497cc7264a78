package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
	"github.com/sunxfancy/cpp-slicer/pkg/render"
	"github.com/sunxfancy/cpp-slicer/pkg/slicer"
)

var sliceCmd = &cobra.Command{
	Use:   "slice <file> [--function NAME] (--line N --column N | --at N:N ...) [--forward] [--format FORMAT]",
	Short: "Slice a function from one or more statements",
	Long: `Builds the program dependence graph of one function and slices it from the
statement at each requested position.

Backward slice: every statement that may influence the target.
Forward slice: every statement the target may influence.

A position that matches no statement prints a notice and yields an empty
slice; the command still succeeds. Several --at targets are sliced
concurrently, each on its own graph.

Supports C, C++ and Go.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := checkFile(path); err != nil {
			return err
		}

		targets, err := sliceTargets(cmd)
		if err != nil {
			return err
		}
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		out, closeOut, err := openOutput(cmd)
		if err != nil {
			return err
		}
		defer closeOut()

		engine := slicer.New(engineOptions(settings))
		return runSlice(cmd.Context(), engine, out, cmd.ErrOrStderr(), path, functionName(cmd), targets, format)
	},
}

func init() {
	sliceCmd.Flags().StringP("function", "f", "main", "Function to analyze")
	sliceCmd.Flags().IntP("line", "l", 0, "Target line (1-based)")
	sliceCmd.Flags().IntP("column", "c", 0, "Target column (1-based)")
	sliceCmd.Flags().StringArray("at", nil, "Target as LINE:COLUMN (repeatable)")
	sliceCmd.Flags().Bool("forward", false, "Compute a forward slice instead of a backward one")
	sliceCmd.Flags().String("format", "dump", "Output format: dump, dot, json or msgpack")
	sliceCmd.Flags().StringP("output", "o", "", "Write the result to a file instead of stdout")
	RootCmd.AddCommand(sliceCmd)
}

// sliceTargets collects targets from --line/--column and every --at.
func sliceTargets(cmd *cobra.Command) ([]slicer.Target, error) {
	dir, err := pdg.ParseDirection(settings.Direction)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("forward") {
		forward, _ := cmd.Flags().GetBool("forward")
		dir = pdg.Backward
		if forward {
			dir = pdg.Forward
		}
	}

	var targets []slicer.Target
	line, _ := cmd.Flags().GetInt("line")
	column, _ := cmd.Flags().GetInt("column")
	if line != 0 || column != 0 {
		if line <= 0 || column <= 0 {
			return nil, fmt.Errorf("--line and --column must both be positive (got %d:%d)", line, column)
		}
		targets = append(targets, slicer.Target{Line: line, Column: column, Direction: dir})
	}

	ats, _ := cmd.Flags().GetStringArray("at")
	for _, at := range ats {
		l, c, err := parseAt(at)
		if err != nil {
			return nil, err
		}
		targets = append(targets, slicer.Target{Line: l, Column: c, Direction: dir})
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("a target is required: --line and --column, or --at LINE:COLUMN")
	}
	return targets, nil
}

// runSlice slices function once per target and writes every result. A
// missed target prints a notice to errOut and is not an error.
func runSlice(ctx context.Context, engine *slicer.Engine, out, errOut io.Writer, path, function string, targets []slicer.Target, format render.Format) error {
	var results []*slicer.Result
	if len(targets) == 1 {
		res, err := engine.SliceAt(ctx, path, function, targets[0])
		if err != nil {
			return err
		}
		results = []*slicer.Result{res}
	} else {
		var err error
		if results, err = engine.SliceMany(ctx, path, function, targets); err != nil {
			return err
		}
	}

	for _, res := range results {
		t := res.Target
		if !res.Found {
			fmt.Fprintf(errOut, "No statement at %d:%d in %s; slice is empty\n", t.Line, t.Column, function)
			logger.Warn("target not found", "function", function, "line", t.Line, "column", t.Column)
			continue
		}
		if format == render.FormatDump {
			fmt.Fprintf(out, "Slicing %s at %d:%d\n", function, t.Line, t.Column)
		}
		if err := render.Write(out, res.Graph, format); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
		logger.Debug("sliced", "function", function, "target", t, "nodes", len(res.Nodes))
	}
	return nil
}
