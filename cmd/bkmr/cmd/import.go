package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/importer"
)

func newImportFilesCmd() *cobra.Command {
	var update, deleteMissing, dryRun bool

	cmd := &cobra.Command{
		Use:   "import-files <root...>",
		Short: "Walk directories, reconciling front-matter files into the store",
		Long: `import-files parses each eligible file's front matter and inserts or
updates the matching item. A file whose declared name collides with an
existing item is reported as a duplicate unless --update is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := importer.Import(ctx, app.Store, app.Config, importer.Options{
				Roots:         args,
				Update:        update,
				DeleteMissing: deleteMissing,
				DryRun:        dryRun,
			})
			if err != nil {
				return err
			}

			cmd.Printf("inserted %d, updated %d, unchanged %d, deleted %d\n",
				result.Inserted, result.Updated, result.Unchanged, result.Deleted)
			if result.HadDuplicate() {
				for _, name := range result.Duplicates {
					cmd.PrintErrf("duplicate name, skipped: %s\n", name)
				}
				if !update {
					return apperr.New(apperr.CodeDuplicateName, "one or more files had a duplicate name; rerun with --update", nil)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "update existing items instead of reporting duplicates")
	cmd.Flags().BoolVar(&deleteMissing, "delete-missing", false, "delete items whose backing file no longer exists under the walked roots")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")

	return cmd
}
