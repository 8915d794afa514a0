package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkmr/bkmr/internal/model"
)

func newOpenCmd() *cobra.Command {
	var noEdit bool

	cmd := &cobra.Command{
		Use:   "open <id[,id...]> [-- args...]",
		Short: "Resolve each item's action and execute it",
		Long: `open resolves each id's system tag under the fixed precedence
(_snip_ > _shell_ > _md_ > _env_ > _imported_ > default URI) and runs the matching
action. Multiple ids run in the order given; a failure on one does not
stop the rest. Arguments after -- are passed through to the shell action.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idArgs, extra := splitPassthrough(cmd, args)
			return runOpen(cmd, strings.Join(idArgs, ","), extra, noEdit)
		},
	}

	cmd.Flags().BoolVar(&noEdit, "no-edit", false, "run the shell action non-interactively")
	return cmd
}

// splitPassthrough separates the id arguments from anything given after a
// literal "--", which cobra tracks via ArgsLenAtDash.
func splitPassthrough(cmd *cobra.Command, args []string) (ids []string, extra []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

func runOpen(cmd *cobra.Command, idList string, extraArgv []string, noEdit bool) error {
	ctx := cmd.Context()

	app, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ids, err := parseIDList(idList)
	if err != nil {
		return err
	}

	items := make([]*model.Item, 0, len(ids))
	for _, id := range ids {
		it, err := app.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		items = append(items, it)
	}

	if noEdit {
		nonInteractive := *app.Config
		nonInteractive.ShellOpts.Interactive = false
		app.Dispatcher.Config = &nonInteractive
	}

	var firstErr error
	for _, res := range app.Dispatcher.DispatchBatch(ctx, items, extraArgv) {
		if res.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "item %d: %v\n", res.Item.ID, res.Err)
			if firstErr == nil {
				firstErr = res.Err
			}
		}
	}
	return firstErr
}
