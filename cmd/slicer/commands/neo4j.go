package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunxfancy/cpp-slicer/pkg/neo4jexport"
	"github.com/sunxfancy/cpp-slicer/pkg/render"
	"github.com/sunxfancy/cpp-slicer/pkg/slicer"
)

var neo4jCmd = &cobra.Command{
	Use:   "neo4j <file> [--function NAME] [--at LINE:COLUMN [--forward]]",
	Short: "Load a dependence graph into Neo4j",
	Long: `Builds the program dependence graph of one function and loads it into Neo4j
as PDGNode vertices joined by CONTROL and DATA relationships. With --at, the
slice from that statement is computed first and stored in the in_slice
property. Previously loaded nodes of the same function are replaced.

Connection settings come from the neo4j section of the configuration and
can be overridden with flags.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := checkFile(path); err != nil {
			return err
		}
		ctx := cmd.Context()

		engine := slicer.New(engineOptions(settings))
		a, err := engine.Analyze(ctx, path, functionName(cmd))
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("at") {
			targets, err := sliceTargets(cmd)
			if err != nil {
				return err
			}
			res := a.Slice(ctx, targets[0])
			if !res.Found {
				fmt.Fprintf(cmd.ErrOrStderr(), "No statement at %d:%d in %s; slice is empty\n",
					targets[0].Line, targets[0].Column, a.Function.Name)
			}
		}

		cfg := neo4jexport.Config{
			URI:      settings.Neo4j.URI,
			User:     settings.Neo4j.User,
			Password: settings.Neo4j.Password,
			Database: settings.Neo4j.Database,
		}
		flags := cmd.Flags()
		if flags.Changed("uri") {
			cfg.URI, _ = flags.GetString("uri")
		}
		if flags.Changed("user") {
			cfg.User, _ = flags.GetString("user")
		}
		if flags.Changed("password") {
			cfg.Password, _ = flags.GetString("password")
		}
		if flags.Changed("database") {
			cfg.Database, _ = flags.GetString("database")
		}
		cfg.BatchSize, _ = flags.GetInt("batch-size")

		loader, err := neo4jexport.NewLoader(ctx, cfg)
		if err != nil {
			return err
		}
		defer loader.Close(ctx)

		if err := loader.CreateIndexes(ctx); err != nil {
			return err
		}
		desc := render.Describe(a.Graph)
		if err := loader.Load(ctx, path, desc); err != nil {
			return err
		}
		logger.Info("graph loaded", "uri", cfg.URI, "function", desc.Function,
			"nodes", len(desc.Nodes), "edges", len(desc.Edges), "sliced", len(desc.Sliced()))
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d nodes and %d edges of %s into %s\n",
			len(desc.Nodes), len(desc.Edges), desc.Function, cfg.URI)
		return nil
	},
}

func init() {
	neo4jCmd.Flags().StringP("function", "f", "main", "Function to analyze")
	neo4jCmd.Flags().StringArray("at", nil, "Slice from LINE:COLUMN before loading")
	neo4jCmd.Flags().Bool("forward", false, "Compute a forward slice instead of a backward one")
	neo4jCmd.Flags().String("uri", "", "Neo4j URI (default from config)")
	neo4jCmd.Flags().String("user", "", "Neo4j user (default from config)")
	neo4jCmd.Flags().String("password", "", "Neo4j password (default from config)")
	neo4jCmd.Flags().String("database", "", "Neo4j database (default from config)")
	neo4jCmd.Flags().Int("batch-size", neo4jexport.DefaultBatchSize, "Rows per UNWIND query")
	RootCmd.AddCommand(neo4jCmd)
}
