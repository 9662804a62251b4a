package main

import (
	"os"

	"github.com/spf13/cobra"

	"tracker/internal/auth"
	"tracker/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the seed data into the store",
		Long: `seed loads statuses, workflows, users, projects, sprints and tasks,
matching existing records by email, name or title. Running it twice is safe.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(os.Stderr)
			if err != nil {
				return err
			}

			data, err := seed.Default()
			if file != "" {
				data, err = seed.ReadFile(file)
			}
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			return seed.NewLoader(store, auth.NewBcryptHasher(0), logger, nil).Run(ctx, data)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Seed JSON file (defaults to the built-in seed)")
	return cmd
}
