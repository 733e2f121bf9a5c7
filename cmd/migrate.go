package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and create missing search indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info().Msg("Running database migrations...")
		d, err := initDeps(cfg)
		if err != nil {
			return err
		}
		defer d.close()

		log.Info().Msg("Creating missing search indices...")
		if err := d.registry.EnsureIndices(context.Background()); err != nil {
			return err
		}

		log.Info().Msg("Migrations completed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
