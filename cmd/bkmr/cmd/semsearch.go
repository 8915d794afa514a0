package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkmr/bkmr/internal/query"
)

func newSemSearchCmd() *cobra.Command {
	var limit int
	var tags, tagsPrefix, anyTags, anyTagsPrefix []string

	cmd := &cobra.Command{
		Use:   "sem-search <query>",
		Short: "Semantic (vector) search over embeddable items",
		Long: `sem-search embeds the free-form query and returns the top-k items by
cosine similarity among those with a current embedding. The tag-set
predicate still applies as a pre-filter; the text DSL does not.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSemSearch(cmd, strings.Join(args, " "), limit, query.TagArgs{
				All: tags, AllPrefix: tagsPrefix,
				Any: anyTags, AnyPrefix: anyTagsPrefix,
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "pre-filter: require all of these tags")
	cmd.Flags().StringSliceVar(&tagsPrefix, "tags-prefix", nil, "default tags unioned into --tags")
	cmd.Flags().StringSliceVarP(&anyTags, "Tags", "T", nil, "pre-filter: require at least one of these tags")
	cmd.Flags().StringSliceVar(&anyTagsPrefix, "Tags-prefix", nil, "default tags unioned into --Tags")

	return cmd
}

func runSemSearch(cmd *cobra.Command, text string, limit int, tags query.TagArgs) error {
	ctx := cmd.Context()

	app, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	items, err := query.Semantic(ctx, app.Store, app.Index, app.Embedder, text, tags, limit)
	if err != nil {
		return err
	}
	printItemsText(cmd, items)
	return nil
}
