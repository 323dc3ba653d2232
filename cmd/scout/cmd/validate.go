package cmd

import (
	"fmt"

	"github.com/okian/callscout/internal/domain/intake"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a profile is complete enough to run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := model.LoadProfile(profile)
			if err != nil {
				return err
			}
			a, err := intake.Validate(&p)
			if err != nil {
				printMissing(cmd, model.MissingFields(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile %q is valid (completeness %.1f/10)\n", p.Name, a.Score)
			return nil
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "organization profile (YAML or JSON)")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func printMissing(cmd *cobra.Command, fields []string) {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "missing or invalid fields:")
	for _, f := range fields {
		fmt.Fprintf(w, "  - %s\n", f)
	}
}
