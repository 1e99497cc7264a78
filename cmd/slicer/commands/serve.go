package commands

import (
	"github.com/spf13/cobra"

	"github.com/sunxfancy/cpp-slicer/internal/server"
	"github.com/sunxfancy/cpp-slicer/pkg/slicer"
)

var serveCmd = &cobra.Command{
	Use:   "serve <file> [--format FORMAT]",
	Short: "Answer slice commands read line by line from stdin",
	Long: `Reads one command per line from stdin and answers each against <file>,
which is re-read per request so edits are picked up. Parsed files are cached
and reused while their content is unchanged.

Commands:
  slice <function> <line> <column> [backward|forward]
  dump <function>
  deps <function> <line> <column>
  vars <function>
  help
  exit | quit

An unknown or failing command prints a diagnostic and the session continues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := checkFile(path); err != nil {
			return err
		}
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		srv := server.New(slicer.New(engineOptions(settings)), server.Options{
			Path:   path,
			Format: format,
			Logger: logger,
		})
		return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	serveCmd.Flags().String("format", "dump", "Output format: dump, dot, json or msgpack")
	RootCmd.AddCommand(serveCmd)
}
