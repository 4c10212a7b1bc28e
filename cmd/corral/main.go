// Command corral runs the commensal recording coordinator: a single
// control-plane process that allocates processing nodes to subarrays,
// drives their recording lifecycle off MeerKAT's event channels, and
// fetches the telescope sensor values the coordinator itself never
// queries directly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meerkat-commensal/corral/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "corral",
	Short: "corral - commensal recording coordinator for MeerKAT",
	Long:  `corral allocates processing nodes to subarrays and drives their recording lifecycle from the telescope's control-and-monitoring event streams.`,
	RunE:  runE,
}

// addRunFlags registers the flags shared by the bare root command and
// "corral run", so either invocation accepts the same -p/-c/-t options.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 6379, "Local event bus port; overrides the configured URL when set")
	cmd.Flags().StringP("config", "c", "", "Path to YAML config file")
	cmd.Flags().StringP("triggermode", "t", "idle", "Startup default trigger mode: idle, auto, armed, or nshot:<k>")
	cmd.Flags().String("metrics-addr", "", "Metrics HTTP listen address (overrides config)")
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	addRunFlags(rootCmd)

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level: logLevel,
		JSON:  logJSON,
	})
}

// runCmd mirrors the bare root command for operators who prefer an
// explicit subcommand.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the coordinator (default when no subcommand is given)",
	RunE:  runE,
}

func init() {
	addRunFlags(runCmd)
}
