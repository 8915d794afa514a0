package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkmr/bkmr/internal/importer"
	"github.com/bkmr/bkmr/internal/model"
)

func newShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one item's full fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return badQuery("not a valid item id: " + args[0])
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
			if jsonOutput {
				return printItemsJSON(cmd, []*model.Item{it})
			}
			printItemDetail(cmd, it)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the item as JSON")
	return cmd
}

func printItemDetail(cmd *cobra.Command, it *model.Item) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "id:          %d\n", it.ID)
	fmt.Fprintf(w, "title:       %s\n", it.Metadata)
	fmt.Fprintf(w, "url:         %s\n", it.URL)
	fmt.Fprintf(w, "description: %s\n", it.Description)
	fmt.Fprintf(w, "tags:        %s\n", strings.Join(it.NonSystemTags(), ", "))
	fmt.Fprintf(w, "embeddable:  %v\n", it.Embeddable)
	fmt.Fprintf(w, "access_count: %d\n", it.AccessCount)
	if it.FilePath != nil {
		fmt.Fprintf(w, "file_path:   %s\n", *it.FilePath)
	}
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id[,id...]>",
		Short: "Delete one or more items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids, err := parseIDList(args[0])
			if err != nil {
				return err
			}
			app, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, id := range ids {
				if err := app.Store.Delete(ctx, id); err != nil {
					return err
				}
				cmd.Printf("deleted item %d\n", id)
			}
			return nil
		},
	}
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var url, title, description string
	var addTags, removeTags []string
	var enableEmbed, disableEmbed bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an item's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return badQuery("not a valid item id: " + args[0])
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

			if url != "" {
				it.URL = url
			}
			if title != "" {
				it.Metadata = title
			}
			if description != "" {
				it.Description = description
			}
			if len(addTags) > 0 || len(removeTags) > 0 {
				tags := it.TagSet()
				tags = applyTagEdits(tags, addTags, removeTags)
				canonical, err := model.CanonicalizeTags(tags)
				if err != nil {
					return err
				}
				it.Tags = canonical
			}
			if enableEmbed {
				it.Embeddable = true
			}
			if disableEmbed {
				it.Embeddable = false
			}

			if err := app.Store.Update(ctx, it); err != nil {
				return err
			}
			if err := app.Refresher.SyncOnWrite(ctx, it); err != nil {
				return err
			}
			cmd.Printf("updated item %d\n", it.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "replace the url field")
	cmd.Flags().StringVar(&title, "title", "", "replace the title (metadata)")
	cmd.Flags().StringVar(&description, "description", "", "replace the description")
	cmd.Flags().StringSliceVar(&addTags, "add-tags", nil, "tags to add")
	cmd.Flags().StringSliceVar(&removeTags, "remove-tags", nil, "tags to remove")
	cmd.Flags().BoolVar(&enableEmbed, "enable-embeddable", false, "mark the item embeddable")
	cmd.Flags().BoolVar(&disableEmbed, "disable-embeddable", false, "mark the item not embeddable")
	cmd.MarkFlagsMutuallyExclusive("enable-embeddable", "disable-embeddable")

	return cmd
}

func applyTagEdits(current, add, remove []string) []string {
	present := make(map[string]bool, len(current))
	for _, t := range current {
		present[t] = true
	}
	for _, t := range remove {
		delete(present, strings.ToLower(strings.TrimSpace(t)))
	}
	for _, t := range add {
		present[strings.ToLower(strings.TrimSpace(t))] = true
	}
	out := make([]string, 0, len(present))
	for t := range present {
		out = append(out, t)
	}
	return out
}

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an item through $EDITOR",
		Long: `edit spawns $EDITOR on the item's backing file when it has one, or on a
scratch buffer seeded from its fields otherwise, and reconciles the result
back into the store on save (see import-files reconciliation).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return badQuery("not a valid item id: " + args[0])
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
			if err := importer.SmartEdit(ctx, app.Store, app.Config, it, importer.NewOSEditor()); err != nil {
				return err
			}
			return app.Refresher.SyncOnWrite(ctx, it)
		},
	}
	return cmd
}
