// Package cmd implements the scout command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/okian/callscout/internal/config"
	"github.com/okian/callscout/pkg/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile  string
	logLevel string
	jsonLogs bool
}

// Execute runs the root command.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "scout",
		Short: "Match an organization against funding calls",
		Long: `scout reads an organization profile, searches a catalog of funding
calls, scores every call against the profile and prints a ranked,
explained shortlist.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.initLogging(cmd)
		},
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: $CALLSCOUT_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "emit logs as JSON")

	root.AddCommand(newRunCmd(opts), newValidateCmd(), newLoadtestCmd())
	return root
}

// Logs go to stderr so stdout carries only the report.
func (o *rootOptions) initLogging(cmd *cobra.Command) error {
	format := "text"
	if o.jsonLogs {
		format = "json"
	}
	if err := logger.InitWith(logger.Options{Format: format, Output: cmd.ErrOrStderr()}); err != nil {
		return err
	}
	if err := logger.SetLevelString(o.logLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	return nil
}

// loadConfig layers --config over the environment's config file.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if o.cfgFile != "" {
		if err := os.Setenv("CALLSCOUT_CONFIG", o.cfgFile); err != nil {
			return nil, err
		}
	}
	return config.Load(cmd.Context())
}
