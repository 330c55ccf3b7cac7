package main

import (
	"fmt"

	"github.com/sghaida/decor/internal/config"
	"github.com/sghaida/decor/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// app is the state shared by the subcommands once the root pre-run loaded it.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "decor",
		Short: "decor - annotations, interceptors and lifecycle for Go",
		Long: `decor attaches metadata, interceptors, parameter rules and lifecycle
behavior to Go types and members.

This command runs the bundled scenarios against a fresh registry each.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./decor.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (console|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{logging.FormatConsole, logging.FormatJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// load reads the configuration, applies flag overrides and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(".", a.cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "decor v%s (%s)\n", Version, GitCommit)
		},
	}
}
