package main

import (
	"context"

	"github.com/spf13/cobra"

	"tracker/internal/storage/sqlite"
)

func newLoadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "load <snapshot.yaml>",
		Short: "Load a YAML snapshot of tracker records into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := sqlite.ReadSnapshot(args[0])
			if err != nil {
				return err
			}
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return store.Load(ctx, snap)
		},
	}
}
