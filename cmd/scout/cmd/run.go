package cmd

import (
	"encoding/json"
	"fmt"

	service "github.com/okian/callscout/internal/app"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/workflow"
	"github.com/okian/callscout/pkg/logger"
	"github.com/spf13/cobra"
)

type runOptions struct {
	profile   string
	catalog   string
	reasoning string
	asJSON    bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one analysis and print the report",
		Example: `  scout run --profile org.yaml --catalog calls.yaml
  scout run --profile org.yaml --catalog calls.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalysis(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "organization profile (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.catalog, "catalog", "c", "", "funding call catalog (YAML); overrides retriever config")
	cmd.Flags().StringVar(&opts.reasoning, "reasoning", "", "reasoning backend: rules or ollama; overrides config")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the run result as JSON")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func runAnalysis(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	cfg, err := root.loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.catalog != "" {
		cfg.Retriever.Kind = "file"
		cfg.Retriever.CatalogPath = opts.catalog
	}
	if opts.reasoning != "" {
		cfg.Reasoning.Kind = opts.reasoning
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := model.LoadProfile(opts.profile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc := service.New(service.WithConfig(cfg), service.WithLogger(logger.Named("scout")))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = svc.Stop(ctx) }()

	res, rep, err := svc.Execute(ctx, p)
	if err != nil {
		if fields := model.MissingFields(err); len(fields) > 0 {
			printMissing(cmd, fields)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if _, err := fmt.Fprint(out, rep.Text); err != nil {
		return err
	}
	fmt.Fprintln(out, workflow.Summary(res))
	return nil
}
