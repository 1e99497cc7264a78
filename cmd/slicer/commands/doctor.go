package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sunxfancy/cpp-slicer/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [--neo4j]",
	Short: "Run health checks on configuration and front-ends",
	Long: `Shows which configuration is in effect and slices a small probe program per
language to verify every front-end works. With --neo4j, also checks that the
configured Neo4j server is reachable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		checkNeo4j, _ := cmd.Flags().GetBool("neo4j")

		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = healthcheck.DefaultEffectivePath()
		}

		result, err := healthcheck.Check(cmd.Context(), settings, path, healthcheck.Options{CheckNeo4j: checkNeo4j})
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(cmd.OutOrStdout(), result)

		if result.Failed() {
			return fmt.Errorf("health check failed: one or more components are not working")
		}
		return nil
	},
}

func displayDoctorResult(w io.Writer, result *healthcheck.HealthCheckResult) {
	if result.EffectivePath == "" {
		fmt.Fprintf(w, "Using config: built-in defaults\n\n")
	} else {
		fmt.Fprintf(w, "Using config: %s (%s)\n\n", result.EffectivePath, result.EffectiveScope)
	}

	fmt.Fprintln(w, "Front-ends:")
	for _, f := range result.Frontends {
		printComponentStatus(w, f)
	}

	fmt.Fprintln(w, "\nNeo4j:")
	printComponentStatus(w, result.Neo4j)
}

func printComponentStatus(w io.Writer, s healthcheck.ComponentStatus) {
	detail := ""
	if s.Detail != "" {
		detail = " (" + s.Detail + ")"
	}
	fmt.Fprintf(w, "  %s %s%s: %s\n", formatStatusIcon(s.Status), s.Name, detail, s.Status)
	if s.Error != "" && s.Status == healthcheck.StatusError {
		fmt.Fprintf(w, "    Error: %s\n", s.Error)
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case healthcheck.StatusReady:
		return "✓"
	case healthcheck.StatusSkipped:
		return "-"
	case healthcheck.StatusError:
		return "✗"
	default:
		return "?"
	}
}

func init() {
	doctorCmd.Flags().Bool("neo4j", false, "Also check the Neo4j connection")
	RootCmd.AddCommand(doctorCmd)
}
