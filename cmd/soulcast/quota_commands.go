package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	quotaCmd := &cobra.Command{
		Use:   "quota",
		Short: "Show the monthly character quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc service) error {
				quota, err := svc.Quota(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, quota)
				}
				describeQuota(cmd.OutOrStdout(), quota)
				return nil
			})
		},
	}
	quotaCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Start a new quota period now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc service) error {
				quota, err := svc.ResetQuota(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Quota reset")
				describeQuota(out, quota)
				return nil
			})
		},
	}
	quotaCmd.AddCommand(resetCmd)
	return quotaCmd
}
