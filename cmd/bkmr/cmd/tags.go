package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags [token]",
		Short: "List tag frequencies, or tags co-occurring with one token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var freq map[string]int
			if len(args) == 1 {
				freq, err = app.Store.RelatedTags(ctx, args[0])
			} else {
				freq, err = app.Store.AllTags(ctx)
			}
			if err != nil {
				return err
			}
			printTagFrequency(cmd, freq)
			return nil
		},
	}
	return cmd
}

func printTagFrequency(cmd *cobra.Command, freq map[string]int) {
	type pair struct {
		tag   string
		count int
	}
	pairs := make([]pair, 0, len(freq))
	for tag, count := range freq {
		pairs = append(pairs, pair{tag, count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].tag < pairs[j].tag
	})
	w := cmd.OutOrStdout()
	for _, p := range pairs {
		fmt.Fprintf(w, "%6d  %s\n", p.count, p.tag)
	}
}
