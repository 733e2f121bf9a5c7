package mirror

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/doctor/internal/metrics"
	"example.com/backstage/services/doctor/internal/repository"
	"example.com/backstage/services/doctor/internal/tracing"
)

// Target is one entity type the Reconciler can converge
type Target interface {
	Name() string
	DrainFailures(ctx context.Context, limit int) (int, error)
	Reindex(ctx context.Context, batchSize int) (int, error)
}

// Name returns the entity name used for the index and dead letters
func (c *Coordinator[D, E]) Name() string {
	return c.desc.Name
}

// DrainFailures replays up to limit unresolved dead letters. Each replay
// re-reads the store and upserts or deletes the document to match it, so
// replaying twice is harmless. It returns the number resolved.
func (c *Coordinator[D, E]) DrainFailures(ctx context.Context, limit int) (int, error) {
	if c.failures == nil {
		return 0, nil
	}

	pending, err := c.failures.FindUnresolved(ctx, c.desc.Name, limit)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to load index failures for %s", c.desc.Name)
	}

	resolved := 0
	for _, f := range pending {
		if err := c.replay(ctx, f.RecordID); err != nil {
			log.Warn().
				Err(err).
				Str("entity", c.desc.Name).
				Int64("id", f.RecordID).
				Int("attempts", f.Attempts+1).
				Msg("index failure replay failed")
			if err := c.failures.IncrementAttempts(ctx, f.ID, err.Error()); err != nil {
				return resolved, errors.Wrap(err, "failed to update index failure")
			}
			continue
		}

		if err := c.failures.MarkResolved(ctx, f.ID); err != nil {
			return resolved, errors.Wrap(err, "failed to resolve index failure")
		}
		resolved++
	}

	if resolved > 0 {
		c.metrics.IncrementCounterBy(metrics.CounterIndexFailuresDrain, int64(resolved))
		log.Info().Str("entity", c.desc.Name).Int("resolved", resolved).Msg("index failures replayed")
	}
	return resolved, nil
}

func (c *Coordinator[D, E]) replay(ctx context.Context, id int64) error {
	entity, err := c.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.index.Delete(ctx, id)
	}
	if err != nil {
		return err
	}
	return c.index.Upsert(ctx, id, entity)
}

// Reindex rebuilds the whole index from the store in id order. Searches
// may see partial results while it runs. It returns the number of records
// indexed.
func (c *Coordinator[D, E]) Reindex(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	expected, err := c.store.Count(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count %s records", c.desc.Name)
	}
	log.Info().Str("entity", c.desc.Name).Int64("records", expected).Msg("reindex started")

	if err := c.index.DeleteAll(ctx); err != nil {
		return 0, errors.Wrapf(err, "failed to clear %s index", c.desc.Name)
	}

	var (
		afterID int64
		total   int
	)
	for {
		batch, err := c.store.FindBatch(ctx, afterID, batchSize)
		if err != nil {
			return total, errors.Wrapf(err, "failed to read %s batch after %d", c.desc.Name, afterID)
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			id := c.desc.ID(&batch[i])
			if _, err := retryWithBackoff(ctx, c.opts, nil, func(ctx context.Context) error {
				return c.index.Upsert(ctx, id, &batch[i])
			}); err != nil {
				return total, errors.Wrapf(err, "failed to index %s %d", c.desc.Name, id)
			}
			afterID = id
			total++
		}
		c.metrics.IncrementCounterBy(metrics.CounterReindexedRecords, int64(len(batch)))

		log.Debug().Str("entity", c.desc.Name).Int("indexed", total).Msg("reindex batch done")

		if len(batch) < batchSize {
			break
		}
	}

	if int64(total) != expected {
		log.Warn().
			Str("entity", c.desc.Name).
			Int64("expected", expected).
			Int("indexed", total).
			Msg("records changed during reindex")
	}
	log.Info().Str("entity", c.desc.Name).Int("indexed", total).Msg("reindex complete")
	return total, nil
}

// UnresolvedCounter reports how many dead letters are outstanding
type UnresolvedCounter interface {
	CountUnresolved(ctx context.Context) (int64, error)
}

// Reconciler converges every target's index with its store
type Reconciler struct {
	targets []Target
	counter UnresolvedCounter
	metrics *metrics.Metrics
	tracer  *tracing.Tracer
	batch   int
}

// NewReconciler creates a reconciler over targets
func NewReconciler(targets []Target, counter UnresolvedCounter, m *metrics.Metrics, tracer *tracing.Tracer, batch int) *Reconciler {
	if m == nil {
		m = metrics.NewMetrics()
	}
	if batch <= 0 {
		batch = 100
	}
	return &Reconciler{
		targets: targets,
		counter: counter,
		metrics: m,
		tracer:  tracer,
		batch:   batch,
	}
}

// DrainFailures replays dead letters for every target. A failing target
// does not stop the others; the first error is returned.
func (r *Reconciler) DrainFailures(ctx context.Context) (err error) {
	ctx, end := r.tracer.StartTransaction(ctx, "drain-index-failures")
	defer func() { end(err) }()

	var firstErr error
	for _, t := range r.targets {
		if _, err := t.DrainFailures(ctx, r.batch); err != nil {
			log.Error().Err(err).Str("entity", t.Name()).Msg("Failed to drain index failures")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if r.counter != nil {
		if n, err := r.counter.CountUnresolved(ctx); err == nil {
			r.metrics.SetGauge(metrics.GaugeUnresolvedIndexErrors, n)
		} else {
			log.Warn().Err(err).Msg("Failed to count unresolved index failures")
		}
	}
	return firstErr
}

// Reindex rebuilds the index of the named targets, or of all targets when
// no name is given
func (r *Reconciler) Reindex(ctx context.Context, names ...string) (err error) {
	ctx, end := r.tracer.StartTransaction(ctx, "reindex")
	defer func() { end(err) }()

	selected, err := r.targetsNamed(names)
	if err != nil {
		return err
	}

	for _, t := range selected {
		n, err := t.Reindex(ctx, r.batch)
		if err != nil {
			return errors.Wrapf(err, "reindex of %s failed after %d records", t.Name(), n)
		}
		log.Info().Str("entity", t.Name()).Int("records", n).Msg("Reindexed")
	}
	return nil
}

func (r *Reconciler) targetsNamed(names []string) ([]Target, error) {
	if len(names) == 0 {
		return r.targets, nil
	}

	byName := make(map[string]Target, len(r.targets))
	for _, t := range r.targets {
		byName[t.Name()] = t
	}

	selected := make([]Target, 0, len(names))
	for _, name := range names {
		t, ok := byName[name]
		if !ok {
			return nil, errors.Errorf("unknown entity %q", name)
		}
		selected = append(selected, t)
	}
	return selected, nil
}
