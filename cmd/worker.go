package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Start the background worker that periodically replays failed index
writes so the search index converges with the database`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	d, err := initDeps(cfg)
	if err != nil {
		return err
	}
	defer d.close()

	reconciler := d.registry.Reconciler(cfg.Mirror.ReconcileBatch)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Dur("interval", cfg.Mirror.ReconcileInterval).
			Msg("Starting index reconciliation job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Mirror.ReconcileInterval),
			gocron.NewTask(func() {
				log.Debug().Msg("Replaying failed index writes")
				if err := reconciler.DrainFailures(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to drain index failures")
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
