// Package commands implements the CLI commands for the safedrive client.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/safedrive/safedrive-engine/cmd/safedrive/cmdutil"
	"github.com/safedrive/safedrive-engine/internal/logger"
	"github.com/safedrive/safedrive-engine/pkg/metrics"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "safedrive",
	Short: "SafeDrive - client-side encrypted, deduplicating backup engine",
	Long: `safedrive drives the client-side backup engine: it encrypts, chunks,
deduplicates, and uploads a local folder to a remote block store, and
restores it back, without the remote store ever seeing plaintext.

Use "safedrive [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.ConfigPath, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")

		// init/version/completion run before any account configuration
		// exists; every other command needs it, but a missing config file
		// is that command's own error to report, not this hook's.
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return
		}

		level := cfg.Logging.Level
		if cmdutil.Flags.Verbose {
			level = "DEBUG"
		}
		_ = logger.Init(logger.Config{
			Level:        level,
			Format:       cfg.Logging.Format,
			Output:       cfg.Logging.Output,
			MaxSizeBytes: cfg.Logging.MaxSizeBytes.Int64(),
		})

		if cfg.Metrics.Enabled {
			metrics.InitRegistry()
			go func() {
				_ = metrics.Serve(context.Background(), fmt.Sprintf(":%d", cfg.Metrics.Port))
			}()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: $XDG_CONFIG_HOME/safedrive/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(retentionCmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
