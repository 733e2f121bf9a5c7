package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/backstage/services/doctor/internal/registry"
)

var (
	reindexBatch int
	drainOnly    bool
)

var reindexCmd = &cobra.Command{
	Use:   "reindex [entity...]",
	Short: "Rebuild search indices from the database",
	Long: `Rebuild the search index of the given entities (` + registry.ReplyName + `, ` +
		registry.ReviewName + `, ` + registry.PaymentSettingsName + `) from the database,
or of every entity when none is given. With --drain only failed index writes are replayed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		d, err := initDeps(cfg)
		if err != nil {
			return err
		}
		defer d.close()

		batch := reindexBatch
		if batch <= 0 {
			batch = cfg.Mirror.ReconcileBatch
		}
		reconciler := d.registry.Reconciler(batch)

		if drainOnly {
			log.Info().Msg("Replaying failed index writes")
			return reconciler.DrainFailures(ctx)
		}

		if err := d.registry.EnsureIndices(ctx); err != nil {
			return err
		}

		log.Info().Strs("entities", args).Int("batch", batch).Msg("Reindexing")
		if err := reconciler.Reindex(ctx, args...); err != nil {
			return err
		}

		log.Info().Msg("Reindex completed successfully")
		return nil
	},
}

func init() {
	reindexCmd.Flags().IntVar(&reindexBatch, "batch", 0, "records per batch (default mirror.reconcile_batch)")
	reindexCmd.Flags().BoolVar(&drainOnly, "drain", false, "only replay failed index writes")
	rootCmd.AddCommand(reindexCmd)
}
