package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bkmr/bkmr/internal/store"
	"github.com/bkmr/bkmr/pkg/version"
)

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print version, configuration, and store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			items, err := app.Store.List(ctx, store.Filter{})
			if err != nil {
				return err
			}
			tags, err := app.Store.AllTags(ctx)
			if err != nil {
				return err
			}

			embeddable := 0
			for _, it := range items {
				if it.Embeddable {
					embeddable++
				}
			}

			cmd.Printf("%s\n", version.String())
			cmd.Printf("db:          %s\n", app.Config.DBURL)
			cmd.Printf("items:       %d\n", len(items))
			cmd.Printf("tags:        %d\n", len(tags))
			cmd.Printf("embeddable:  %d\n", embeddable)
			return nil
		},
	}
	return cmd
}
