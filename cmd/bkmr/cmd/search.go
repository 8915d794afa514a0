package cmd

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkmr/bkmr/internal/model"
	"github.com/bkmr/bkmr/internal/query"
	"github.com/bkmr/bkmr/internal/store"
)

// searchOptions holds every search flag, named after the tag-set
// quantifiers they feed: tags_all (-t), tags_any (-T), tags_not_all (-n),
// tags_not_any (-N), each unioned with its "-prefix" default set.
type searchOptions struct {
	tags         []string
	tagsPrefix   []string
	anyTags      []string
	anyTagsPrefix []string
	notAllTags   []string
	notAllPrefix []string
	notAnyTags   []string
	notAnyPrefix []string
	exact        []string

	order       string
	descending  bool
	ascending   bool
	limit       int

	fzf         string
	jsonOutput  bool
	interpolate bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Query the store by text and tags",
		Long: `search combines an optional full-text query against url, metadata,
tags and description with tag-set quantifiers.

Column-qualified terms are supported: metadata:foo*, url:bar, tags:baz.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.tags, "tags", "t", nil, "require all of these tags")
	f.StringSliceVar(&opts.tagsPrefix, "tags-prefix", nil, "default tags unioned into --tags")
	f.StringSliceVarP(&opts.anyTags, "Tags", "T", nil, "require at least one of these tags")
	f.StringSliceVar(&opts.anyTagsPrefix, "Tags-prefix", nil, "default tags unioned into --Tags")
	f.StringSliceVarP(&opts.notAllTags, "ntags", "n", nil, "exclude items having all of these tags")
	f.StringSliceVar(&opts.notAllPrefix, "ntags-prefix", nil, "default tags unioned into --ntags")
	f.StringSliceVarP(&opts.notAnyTags, "Ntags", "N", nil, "exclude items having any of these tags")
	f.StringSliceVar(&opts.notAnyPrefix, "Ntags-prefix", nil, "default tags unioned into --Ntags")
	f.StringSliceVar(&opts.exact, "exact-tags", nil, "require the item's tag set to equal exactly this set")

	f.StringVar(&opts.order, "order", "relevance", "ordering: relevance, created, updated, random")
	f.BoolVar(&opts.descending, "descending", false, "force descending order")
	f.BoolVar(&opts.ascending, "ascending", false, "force ascending order")
	f.IntVar(&opts.limit, "limit", -1, "maximum number of results (-1 = unlimited)")

	f.StringVar(&opts.fzf, "fzf", "", "pick a result interactively with fzf")
	f.Lookup("fzf").NoOptDefVal = "default"
	f.BoolVar(&opts.jsonOutput, "json", false, "emit results as a JSON array")
	f.BoolVar(&opts.interpolate, "interpolate", false, "render each item's url through the template engine before printing")

	return cmd
}

func resolveOrder(opts searchOptions) (store.Ordering, error) {
	var base store.Ordering
	switch opts.order {
	case "relevance", "":
		base = store.OrderRelevance
	case "created":
		base = store.OrderCreatedDesc
		if opts.ascending {
			base = store.OrderCreatedAsc
		}
	case "updated":
		base = store.OrderUpdatedDesc
		if opts.ascending {
			base = store.OrderUpdatedAsc
		}
	case "random":
		base = store.OrderRandom
	default:
		return "", badQuery("unknown --order value: " + opts.order)
	}
	if opts.descending {
		switch base {
		case store.OrderCreatedAsc:
			base = store.OrderCreatedDesc
		case store.OrderUpdatedAsc:
			base = store.OrderUpdatedDesc
		}
	}
	return base, nil
}

func runSearch(cmd *cobra.Command, text string, opts searchOptions) error {
	ctx := cmd.Context()

	app, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	order, err := resolveOrder(opts)
	if err != nil {
		return err
	}

	req := query.Request{
		Text: text,
		Tags: query.TagArgs{
			All: opts.tags, AllPrefix: opts.tagsPrefix,
			Any: opts.anyTags, AnyPrefix: opts.anyTagsPrefix,
			NotAll: opts.notAllTags, NotAllPrefix: opts.notAllPrefix,
			NotAny: opts.notAnyTags, NotAnyPrefix: opts.notAnyPrefix,
			Exact: opts.exact,
		},
		Order: order,
	}
	if opts.limit >= 0 {
		req.HasLimit = true
		req.Limit = opts.limit
	}

	filter, err := query.Compile(req)
	if err != nil {
		return err
	}

	items, err := app.Store.List(ctx, filter)
	if err != nil {
		return err
	}

	if opts.fzf != "" {
		picked, err := pickWithFzf(app, items, opts.fzf)
		if err != nil {
			return err
		}
		if picked == nil {
			return nil
		}
		items = []*model.Item{picked}
	}

	if opts.interpolate {
		interpolateItems(app, items)
	}

	if opts.jsonOutput {
		return printItemsJSON(cmd, items)
	}
	printItemsText(cmd, items)
	return nil
}

func interpolateItems(app *appContext, items []*model.Item) {
	for _, it := range items {
		if it.ResolvedSystemTag() == model.SystemTagMarkdown {
			continue // markdown never interpolates
		}
		if rendered, err := app.Dispatcher.Engine.RenderIfNeeded(it.URL, it); err == nil {
			it.URL = rendered
		}
	}
}

// pickWithFzf shells out to the user's fzf binary, one line per item, and
// returns the item the user selected. A cancelled picker (fzf exit status
// 130) yields a user-cancellation error; an empty selection yields nil.
func pickWithFzf(app *appContext, items []*model.Item, style string) (*model.Item, error) {
	byID := make(map[int64]*model.Item, len(items))
	var lines strings.Builder
	for _, it := range items {
		byID[it.ID] = it
		fmt.Fprintf(&lines, "%d\t%s\t%s\n", it.ID, it.Metadata, it.URL)
	}

	args := strings.Fields(app.Config.FzfOpts)
	if style != "" && style != "default" {
		args = append(args, "--preview", style)
	}
	fzfCmd := exec.Command("fzf", args...)
	fzfCmd.Stdin = strings.NewReader(lines.String())
	out, err := fzfCmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 130 {
			return nil, userCancelled("fzf selection cancelled")
		}
		return nil, actionErr("while running fzf", err)
	}

	selected := strings.SplitN(strings.TrimSpace(string(out)), "\t", 2)
	if len(selected) == 0 || selected[0] == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(selected[0], 10, 64)
	if err != nil {
		return nil, badQuery("could not parse id from fzf selection")
	}
	return byID[id], nil
}

type searchResultJSON struct {
	ID          int64    `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	AccessCount int64    `json:"access_count"`
}

func toSearchResultJSON(it *model.Item) searchResultJSON {
	var created string
	if it.CreatedTS != nil {
		created = it.CreatedTS.Format(timeLayout)
	}
	return searchResultJSON{
		ID:          it.ID,
		URL:         it.URL,
		Title:       it.Metadata,
		Description: it.Description,
		Tags:        it.NonSystemTags(),
		CreatedAt:   created,
		UpdatedAt:   it.LastUpdateTS.Format(timeLayout),
		AccessCount: it.AccessCount,
	}
}

func printItemsJSON(cmd *cobra.Command, items []*model.Item) error {
	out := make([]searchResultJSON, len(items))
	for i, it := range items {
		out[i] = toSearchResultJSON(it)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printItemsText(cmd *cobra.Command, items []*model.Item) {
	w := cmd.OutOrStdout()
	for _, it := range items {
		tags := strings.Join(it.NonSystemTags(), ", ")
		fmt.Fprintf(w, "%d. %s\n    %s\n", it.ID, it.Metadata, it.URL)
		if it.Description != "" {
			fmt.Fprintf(w, "    %s\n", it.Description)
		}
		if tags != "" {
			fmt.Fprintf(w, "    [%s]\n", tags)
		}
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
