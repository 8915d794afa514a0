package cmd

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkmr/bkmr/internal/importer"
	"github.com/bkmr/bkmr/internal/model"
)

// systemTagForType maps the --type flag's short names to the reserved
// system tags the action resolver understands.
var systemTagForType = map[string]model.SystemTag{
	"snip":     model.SystemTagSnippet,
	"shell":    model.SystemTagShell,
	"md":       model.SystemTagMarkdown,
	"env":      model.SystemTagEnv,
	"imported": model.SystemTagImported,
	"":         "",
}

func newAddCmd() *cobra.Command {
	var typ string
	var useEditor bool
	var fromStdin bool
	var embeddable bool
	var tags []string
	var title, description string

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Create a new item",
		Long: `add stores its content argument as the new item's url field.
Content comes from the positional argument by default, from $EDITOR with
-e, or from stdin with --stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, args, typ, useEditor, fromStdin, embeddable, tags, title, description)
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "content type: snip, shell, md, env, imported (default: plain URI)")
	cmd.Flags().BoolVarP(&useEditor, "editor", "e", false, "compose the content in $EDITOR")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the content from stdin")
	cmd.Flags().BoolVar(&embeddable, "embeddable", false, "compute and keep an embedding for this item")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags to attach (comma-separated)")
	cmd.Flags().StringVar(&title, "title", "", "the item's title (metadata)")
	cmd.Flags().StringVar(&description, "description", "", "the item's description")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string, typ string, useEditor, fromStdin, embeddable bool, tags []string, title, description string) error {
	ctx := cmd.Context()

	systemTag, ok := systemTagForType[typ]
	if !ok {
		return badQuery("unknown --type: " + typ)
	}

	content, err := resolveAddContent(cmd, args, useEditor, fromStdin)
	if err != nil {
		return err
	}

	merged := tags
	if systemTag != "" {
		merged = append(append([]string{}, tags...), string(systemTag))
	}
	canonical, err := model.CanonicalizeTags(merged)
	if err != nil {
		return err
	}

	app, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	it := &model.Item{
		URL:         content,
		Metadata:    title,
		Description: description,
		Tags:        canonical,
		Embeddable:  embeddable,
	}
	inserted, err := app.Store.Insert(ctx, it)
	if err != nil {
		return err
	}
	if embeddable {
		if err := app.Refresher.SyncOnWrite(ctx, inserted); err != nil {
			return err
		}
	}

	cmd.Printf("added item %d\n", inserted.ID)
	return nil
}

func resolveAddContent(cmd *cobra.Command, args []string, useEditor, fromStdin bool) (string, error) {
	switch {
	case fromStdin:
		data, err := io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
		if err != nil {
			return "", actionErr("while reading stdin", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	case useEditor:
		tmp, err := os.CreateTemp("", "bkmr-add-*.txt")
		if err != nil {
			return "", actionErr("while creating editor buffer", err)
		}
		path := tmp.Name()
		tmp.Close()
		defer os.Remove(path)

		if err := importer.NewOSEditor().Run(path); err != nil {
			return "", actionErr("while running editor", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", actionErr("while reading editor buffer", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", badQuery("add requires content: pass an argument, --stdin, or -e")
	}
}
