package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sunxfancy/cpp-slicer/internal/config"
	"github.com/sunxfancy/cpp-slicer/internal/healthcheck"
	"github.com/sunxfancy/cpp-slicer/internal/log"
)

// interactive reports whether prompts can be shown.
var interactive = log.IsTTY

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [--global] [--toml]",
	Short: "Initialize slicer configuration interactively",
	Long: `Guides you through setting up slicer defaults step by step: the function to
analyze, the output format, the slice direction and how assignments inside
branches are treated. Writes ./.slicer/config.yaml, or ~/.slicer/config.yaml
with --global.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		global, _ := cmd.Flags().GetBool("global")
		asTOML, _ := cmd.Flags().GetBool("toml")
		return runInit(cmd, global, asTOML)
	},
}

func runInit(cmd *cobra.Command, global, asTOML bool) error {
	if !interactive() {
		return fmt.Errorf("init needs an interactive terminal; write %s by hand instead", config.ProjectConfigFilePath())
	}

	cfg := config.DefaultConfig()
	maxIterations := fmt.Sprint(cfg.MaxLoopIterations)

	// === SECTION 1: Slicing defaults ===
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Default function").
				Description("Function analyzed when --function is not given").
				Placeholder(cfg.Function).
				Value(&cfg.Function),
			huh.NewSelect[string]().
				Title("Slice direction").
				Options(
					huh.NewOption("Backward (what influences the target)", "backward"),
					huh.NewOption("Forward (what the target influences)", "forward"),
				).
				Value(&cfg.Direction),
			huh.NewSelect[string]().
				Title("Output format").
				Options(
					huh.NewOption("Indented dump", "dump"),
					huh.NewOption("Graphviz DOT", "dot"),
					huh.NewOption("JSON", "json"),
					huh.NewOption("MessagePack", "msgpack"),
				).
				Value(&cfg.Format),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Kill definitions inside branches?").
				Description("Assignments in an if/else arm hide earlier ones within that arm").
				Affirmative("Yes").
				Negative("No").
				Value(&cfg.KillInBranches),
			huh.NewInput().
				Title("Maximum loop iterations").
				Description("Bound on the fixed point per loop").
				Placeholder(maxIterations).
				Value(&maxIterations).
				Validate(func(s string) error {
					if config.ParseInt(s) <= 0 {
						return fmt.Errorf("must be a positive number")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.MaxLoopIterations = config.ParseInt(maxIterations)

	// === SECTION 2: Neo4j ===
	var useNeo4j bool
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Configure a Neo4j export target?").
				Value(&useNeo4j),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	if useNeo4j {
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Neo4j URI").
					Placeholder(cfg.Neo4j.URI).
					Value(&cfg.Neo4j.URI),
				huh.NewInput().
					Title("Neo4j user").
					Placeholder(cfg.Neo4j.User).
					Value(&cfg.Neo4j.User),
				huh.NewInput().
					Title("Neo4j password").
					EchoMode(huh.EchoModePassword).
					Value(&cfg.Neo4j.Password),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
	}

	// === SECTION 3: Config Location ===
	configPath := config.ProjectConfigFilePath()
	if global {
		configPath = config.GlobalConfigFilePath()
	}
	if asTOML {
		configPath = configPath[:len(configPath)-len(".yaml")] + ".toml"
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	// Validate config before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n\n", configPath)

	result, err := healthcheck.Check(cmd.Context(), cfg, configPath, healthcheck.Options{CheckNeo4j: useNeo4j})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	displayDoctorResult(cmd.OutOrStdout(), result)
	return nil
}

func init() {
	initCmd.Flags().Bool("global", false, "Write the global configuration instead of the project one")
	initCmd.Flags().Bool("toml", false, "Write TOML instead of YAML")
	RootCmd.AddCommand(initCmd)
}
