package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bkmr/bkmr/internal/model"
	"github.com/bkmr/bkmr/internal/store"
)

func newCreateDBCmd() *cobra.Command {
	var preFill bool

	cmd := &cobra.Command{
		Use:   "create-db <path>",
		Short: "Create (and migrate) a new store file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			s, err := store.Open(path)
			if err != nil {
				return err
			}
			defer s.Close()

			if preFill {
				tags, err := model.CanonicalizeTags([]string{"bkmr"})
				if err != nil {
					return err
				}
				if _, err := s.Insert(cmd.Context(), &model.Item{
					URL:         "https://github.com/sysid/bkmr",
					Metadata:    "bkmr project page",
					Description: "a sample bookmark to get started",
					Tags:        tags,
				}); err != nil {
					return err
				}
			}

			cmd.Printf("created store at %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&preFill, "pre-fill", false, "insert a sample item into the new store")
	return cmd
}
