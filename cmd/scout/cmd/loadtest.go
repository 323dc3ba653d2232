package cmd

import (
	"fmt"
	"time"

	"github.com/okian/callscout/internal/loadtest"
	"github.com/spf13/cobra"
)

func newLoadtestCmd() *cobra.Command {
	cfg := loadtest.Config{}
	cmd := &cobra.Command{
		Use:     "loadtest",
		Short:   "Start many runs against a server and verify their rankings",
		Example: `  scout loadtest --url http://localhost:9080 --runs 100 --workers 8`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := loadtest.Run(cmd.Context(), cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "completed %d/%d runs in %s (%d results, %d inconsistent)\n",
					stats.RunsCompleted, stats.RunsAccepted, stats.Duration.Round(time.Millisecond),
					stats.ResultsRetrieved, stats.Inconsistent)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&cfg.NumRuns, "runs", 20, "number of runs to start")
	f.IntVar(&cfg.Workers, "workers", 4, "number of concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	f.DurationVar(&cfg.PollInterval, "poll", 250*time.Millisecond, "status poll interval")
	f.DurationVar(&cfg.WaitTimeout, "wait", 5*time.Minute, "maximum time one run may take")
	f.StringVar(&cfg.OutputFile, "output", "", "write generated profiles to this JSON file")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every verified run")
	return cmd
}
