package cmd

import (
	"github.com/spf13/cobra"
)

func newBackfillCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Refresh every stale embedding among embeddable items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := app.Refresher.Backfill(ctx, dryRun)
			if err != nil {
				return err
			}

			cmd.Printf("scanned %d, stale %d, refreshed %d, failed %d\n",
				result.Scanned, result.Stale, result.Refreshed, len(result.Failed))
			for _, f := range result.Failed {
				cmd.PrintErrf("item %d: %v\n", f.ItemID, f.Err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be refreshed without calling the embedder")
	return cmd
}
