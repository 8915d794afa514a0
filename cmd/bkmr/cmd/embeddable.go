package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newSetEmbeddableCmd() *cobra.Command {
	var enable, disable bool

	cmd := &cobra.Command{
		Use:   "set-embeddable <id>",
		Short: "Flip an item's embeddable flag and sync its embedding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return badQuery("not a valid item id: " + args[0])
			}
			if !enable && !disable {
				return badQuery("set-embeddable requires --enable or --disable")
			}

			ctx := cmd.Context()
			app, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			it, err := app.Store.Get(ctx, id)
			if err != nil {
				return err
			}
			it.Embeddable = enable
			if err := app.Store.Update(ctx, it); err != nil {
				return err
			}
			if err := app.Refresher.SyncOnWrite(ctx, it); err != nil {
				return err
			}
			cmd.Printf("item %d embeddable=%v\n", it.ID, it.Embeddable)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enable, "enable", false, "mark the item embeddable")
	cmd.Flags().BoolVar(&disable, "disable", false, "mark the item not embeddable")
	cmd.MarkFlagsMutuallyExclusive("enable", "disable")

	return cmd
}
