// Package cmd provides the CLI commands for bkmr.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bkmr/bkmr/internal/config"
	"github.com/bkmr/bkmr/internal/logging"
	"github.com/bkmr/bkmr/pkg/version"
)

var (
	generateConfig bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the bkmr CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bkmr",
		Short: "A terminal-resident knowledge manager for URLs, snippets and scripts",
		Long: `bkmr stores URLs, code snippets, shell scripts, markdown notes, and
environment-variable bundles in one tagged, searchable, executable store.

Run 'bkmr search' to look something up, or 'bkmr add' to save something new.`,
		Version:      version.Version,
		SilenceUsage: true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if generateConfig {
				out, err := config.GenerateDefault()
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			}
			return cmd.Help()
		},
	}

	cmd.SetVersionTemplate("bkmr version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to an explicit TOML config file")
	cmd.PersistentFlags().StringVar(&dbOverride, "db", "", "override db_url from configuration")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.config/bkmr/logs/")
	cmd.Flags().BoolVar(&generateConfig, "generate-config", false, "emit the default configuration as TOML and exit")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSemSearchCmd())
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newTagsCmd())
	cmd.AddCommand(newCreateDBCmd())
	cmd.AddCommand(newImportFilesCmd())
	cmd.AddCommand(newBackfillCmd())
	cmd.AddCommand(newSetEmbeddableCmd())
	cmd.AddCommand(newInfoCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to set up debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command against ctx, returning any error from the
// command that ran. main maps the error to a process exit code.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
