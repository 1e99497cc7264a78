// Package commands provides the CLI commands for the slicer tool.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunxfancy/cpp-slicer/internal/config"
	"github.com/sunxfancy/cpp-slicer/internal/log"
	"github.com/sunxfancy/cpp-slicer/internal/telemetry"
)

// Version is set by main from build flags.
var Version = "dev"

// skipConfig marks commands that run with defaults when the configuration
// cannot be loaded.
const skipConfig = "skip-config"

var (
	settings          = config.DefaultConfig()
	logger            log.Logger = log.Default()
	shutdownTelemetry func(context.Context) error
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "slicer",
	Short: "slicer - program slicing for C, C++ and Go",
	Long: `slicer builds the program dependence graph of one function and computes
backward or forward slices over it.

Commands:
  slice       Slice a function from one or more statements
  serve       Answer slice commands read line by line from stdin
  graph       Export the whole dependence graph of a function
  neo4j       Load a dependence graph into Neo4j
  scan        List the functions available to slice in a source tree
  doctor      Check configuration, front-ends and Neo4j
  init        Write a configuration file interactively
  version     Print version information

Use "slicer [command] --help" for more information about a command.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTelemetry == nil {
			return nil
		}
		err := shutdownTelemetry(cmd.Context())
		shutdownTelemetry = nil
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file path (.yaml or .toml)")
	RootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	RootCmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON lines")
	RootCmd.PersistentFlags().Bool("telemetry", false, "Write OpenTelemetry spans and metrics to stderr")
}

// setup loads the configuration, applies global flag overrides and installs
// the logger and telemetry.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		if cmd.Annotations[skipConfig] == "" {
			return err
		}
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("json-logs") {
		cfg.JSONLogs, _ = flags.GetBool("json-logs")
	}
	if flags.Changed("telemetry") {
		cfg.Telemetry, _ = flags.GetBool("telemetry")
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	settings = cfg
	logger = log.New(log.LoggerConfig{Level: level, JSONOutput: cfg.JSONLogs, Output: cmd.ErrOrStderr()})

	if cfg.Telemetry {
		shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
			ServiceName:    "slicer",
			ServiceVersion: Version,
			Output:         cmd.ErrOrStderr(),
		})
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		shutdownTelemetry = shutdown
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
