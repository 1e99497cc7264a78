package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sunxfancy/cpp-slicer/internal/scanner"
	"github.com/sunxfancy/cpp-slicer/pkg/slicer"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir] [--hidden]",
	Short: "List the functions available to slice in a source tree",
	Long: `Walks a directory (default: current) for C, C++ and Go files, parses them
concurrently and prints each file with the functions it defines.

Build output, VCS metadata and vendored code are skipped, as is anything
matched by a .slicerignore file (gitignore syntax). Files that fail to parse
are reported and do not stop the scan.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		hidden, _ := cmd.Flags().GetBool("hidden")

		opts := scanner.DefaultOptions()
		opts.SkipHidden = !hidden
		files, err := scanner.New(opts).Scan(root)
		if err != nil {
			return err
		}

		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.FullPath
		}
		inventory, err := slicer.New(engineOptions(settings)).Inventory(cmd.Context(), paths)
		if err != nil {
			return err
		}

		failed := printInventory(cmd.OutOrStdout(), files, inventory)
		logger.Info("scan complete", "root", root, "files", len(files), "failed", failed)
		return nil
	},
}

// printInventory writes one line per file and returns how many failed.
func printInventory(w io.Writer, files []scanner.FileInfo, inventory []slicer.FileFunctions) int {
	failed := 0
	for i, entry := range inventory {
		f := files[i]
		if entry.Err != nil {
			failed++
			fmt.Fprintf(w, "%s [%s] error: %v\n", f.Path, f.Language, entry.Err)
			continue
		}
		fmt.Fprintf(w, "%s [%s]: %s\n", f.Path, f.Language, strings.Join(entry.Functions, ", "))
	}
	return failed
}

func init() {
	scanCmd.Flags().Bool("hidden", false, "Include hidden files and directories")
	RootCmd.AddCommand(scanCmd)
}
