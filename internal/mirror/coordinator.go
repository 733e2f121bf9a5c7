// Package mirror keeps a search index in step with a record store. The
// record store is written first and is the source of truth; the index is
// written only after the store write committed and is never rolled back
// into the store.
package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/doctor/internal/cache"
	"example.com/backstage/services/doctor/internal/metrics"
	"example.com/backstage/services/doctor/internal/models"
	"example.com/backstage/services/doctor/internal/paging"
	"example.com/backstage/services/doctor/internal/repository"
	"example.com/backstage/services/doctor/internal/tracing"
)

// Coordinator is the only writer of the search index for one entity type
type Coordinator[D any, E any] struct {
	desc     Descriptor[D, E]
	store    RecordStore[E]
	index    SearchIndex[E]
	failures FailureLog
	cache    Cache
	metrics  *metrics.Metrics
	tracer   *tracing.Tracer
	opts     Options
}

// NewCoordinator creates a coordinator. failures and readCache may be nil.
func NewCoordinator[D any, E any](
	desc Descriptor[D, E],
	store RecordStore[E],
	index SearchIndex[E],
	failures FailureLog,
	readCache Cache,
	m *metrics.Metrics,
	tracer *tracing.Tracer,
	opts Options,
) *Coordinator[D, E] {
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &Coordinator[D, E]{
		desc:     desc,
		store:    store,
		index:    index,
		failures: failures,
		cache:    readCache,
		metrics:  m,
		tracer:   tracer,
		opts:     opts.withDefaults(),
	}
}

// Descriptor returns the entity descriptor
func (c *Coordinator[D, E]) Descriptor() Descriptor[D, E] {
	return c.desc
}

// Create persists a new record and mirrors it into the index
func (c *Coordinator[D, E]) Create(ctx context.Context, dto *D) (*D, error) {
	defer c.tracer.StartSegment(ctx, c.desc.Name+".create")()

	if dto == nil {
		return nil, InvalidArgument(c.desc.EntityName, "Invalid body", "bodynull")
	}
	if c.desc.DTOID(dto) != nil {
		return nil, InvalidArgument(c.desc.EntityName,
			fmt.Sprintf("A new %s cannot already have an ID", c.desc.Label), KeyIDExists)
	}

	entity := c.desc.Mapper.ToEntity(dto)
	if err := c.store.Create(ctx, entity); err != nil {
		return nil, Unhandled(c.desc.EntityName, KeyInternal, err)
	}
	id := c.desc.ID(entity)

	log.Debug().Str("entity", c.desc.Name).Int64("id", id).Msg("record created")

	err := c.mirror(ctx, models.IndexActionUpsert, id, func(ctx context.Context) error {
		return c.index.Upsert(ctx, id, entity)
	})
	return c.desc.Mapper.ToDTO(entity), err
}

// Update replaces an existing record and mirrors it into the index
func (c *Coordinator[D, E]) Update(ctx context.Context, dto *D) (*D, error) {
	defer c.tracer.StartSegment(ctx, c.desc.Name+".update")()

	if dto == nil {
		return nil, InvalidArgument(c.desc.EntityName, "Invalid body", "bodynull")
	}
	idPtr := c.desc.DTOID(dto)
	if idPtr == nil {
		return nil, InvalidArgument(c.desc.EntityName, "Invalid id", KeyIDNull)
	}
	id := *idPtr

	entity := c.desc.Mapper.ToEntity(dto)
	if err := c.store.Update(ctx, id, entity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(c.desc.EntityName)
		}
		return nil, Unhandled(c.desc.EntityName, KeyInternal, err)
	}
	c.evict(ctx, id)

	log.Debug().Str("entity", c.desc.Name).Int64("id", id).Msg("record updated")

	err := c.mirror(ctx, models.IndexActionUpsert, id, func(ctx context.Context) error {
		return c.index.Upsert(ctx, id, entity)
	})
	return c.desc.Mapper.ToDTO(entity), err
}

// GetByID reads one record from the store, through the read cache
func (c *Coordinator[D, E]) GetByID(ctx context.Context, id int64) (*D, error) {
	defer c.tracer.StartSegment(ctx, c.desc.Name+".get")()

	key := cache.RecordKey(c.desc.Name, id)
	if c.cache != nil {
		var cached E
		err := c.cache.Get(ctx, key, &cached)
		if err == nil {
			c.metrics.IncrementCounter(metrics.CounterCacheHits)
			return c.desc.Mapper.ToDTO(&cached), nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		c.metrics.IncrementCounter(metrics.CounterCacheMisses)
	}

	entity, err := c.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(c.desc.EntityName)
		}
		return nil, Unhandled(c.desc.EntityName, KeyInternal, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, entity); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return c.desc.Mapper.ToDTO(entity), nil
}

// ListPaged returns one page of records from the store
func (c *Coordinator[D, E]) ListPaged(ctx context.Context, req paging.PageRequest) (paging.Page[D], error) {
	defer c.tracer.StartSegment(ctx, c.desc.Name+".list")()

	storeReq := req
	storeReq.Sort = make([]paging.SortOrder, 0, len(req.Sort))
	for _, s := range req.Sort {
		col, ok := c.desc.column(s.Field)
		if !ok {
			return paging.Page[D]{}, c.unknownSort(s.Field)
		}
		storeReq.Sort = append(storeReq.Sort, paging.SortOrder{Field: col, Direction: s.Direction})
	}

	records, total, err := c.store.FindPage(ctx, storeReq)
	if err != nil {
		return paging.Page[D]{}, Unhandled(c.desc.EntityName, KeyInternal, err)
	}

	return paging.Page[D]{
		Content: c.desc.Mapper.ToDTOs(records),
		Total:   total,
		Number:  req.Page,
		Size:    req.Size,
	}, nil
}

// Delete removes a record from the store, then from the index. Deleting an
// absent id succeeds.
func (c *Coordinator[D, E]) Delete(ctx context.Context, id int64) error {
	defer c.tracer.StartSegment(ctx, c.desc.Name+".delete")()

	if err := c.store.Delete(ctx, id); err != nil {
		return Unhandled(c.desc.EntityName, KeyInternal, err)
	}
	c.evict(ctx, id)

	log.Debug().Str("entity", c.desc.Name).Int64("id", id).Msg("record deleted")

	return c.mirror(ctx, models.IndexActionDelete, id, func(ctx context.Context) error {
		return c.index.Delete(ctx, id)
	})
}

// Search queries the index. Results may briefly lag the store.
func (c *Coordinator[D, E]) Search(ctx context.Context, query string, req paging.PageRequest) (paging.Page[D], error) {
	defer c.tracer.StartSegment(ctx, c.desc.Name+".search")()

	var sort []paging.SortOrder
	for _, s := range req.Sort {
		field, ok := c.desc.searchField(s.Field)
		if !ok {
			return paging.Page[D]{}, c.unknownSort(s.Field)
		}
		sort = append(sort, paging.SortOrder{Field: field, Direction: s.Direction})
	}
	indexReq := req
	indexReq.Sort = sort

	start := time.Now()
	docs, total, err := c.index.Search(ctx, query, indexReq)
	c.metrics.RecordTimer("index.search", time.Since(start))
	c.metrics.RecordOutcome("index.search", err)
	if err != nil {
		return paging.Page[D]{}, Unhandled(c.desc.EntityName, KeyInternal, err)
	}

	return paging.Page[D]{
		Content: c.desc.Mapper.ToDTOs(docs),
		Total:   total,
		Number:  req.Page,
		Size:    req.Size,
	}, nil
}

func (c *Coordinator[D, E]) unknownSort(field string) *Error {
	return InvalidArgument(c.desc.EntityName, fmt.Sprintf("Unknown sort property %q", field), KeySortInvalid)
}

func (c *Coordinator[D, E]) evict(ctx context.Context, id int64) {
	if c.cache == nil {
		return
	}
	key := cache.RecordKey(c.desc.Name, id)
	if err := c.cache.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache eviction failed")
	}
}

// mirror applies an index write after a committed store write. It retries,
// then records a dead letter. The error is returned to the caller only in
// propagate mode; the store write stays committed either way.
func (c *Coordinator[D, E]) mirror(ctx context.Context, action string, id int64, write func(context.Context) error) error {
	// The store write is committed; finish the index write even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	defer c.tracer.StartSegment(ctx, c.desc.Name+".index."+action)()

	start := time.Now()
	attempts, err := retryWithBackoff(ctx, c.opts,
		func(attempt int, err error) {
			c.metrics.IncrementCounter(metrics.CounterIndexRetries)
			log.Warn().
				Err(err).
				Str("entity", c.desc.Name).
				Int64("id", id).
				Str("action", action).
				Int("attempt", attempt).
				Msg("index write failed, retrying")
		},
		write,
	)
	c.metrics.RecordTimer("index."+action, time.Since(start))
	c.metrics.RecordOutcome("index."+action, err)

	if err == nil {
		c.metrics.IncrementCounter(metrics.CounterIndexWrites)
		return nil
	}

	c.metrics.IncrementCounter(metrics.CounterIndexFailures)
	c.tracer.NoticeError(ctx, err)
	c.tracer.AddAttribute(ctx, "indexFailure.entity", c.desc.Name)
	c.tracer.AddAttribute(ctx, "indexFailure.recordId", id)
	log.Error().
		Err(err).
		Str("entity", c.desc.Name).
		Int64("id", id).
		Str("action", action).
		Int("attempts", attempts).
		Msg("index write failed, record store and index diverge")

	c.recordFailure(ctx, action, id, attempts, err)

	if c.opts.PropagateErrors {
		return Unhandled(c.desc.EntityName, KeyIndexSync, errors.Wrap(ErrIndexSync, err.Error()))
	}
	return nil
}

func (c *Coordinator[D, E]) recordFailure(ctx context.Context, action string, id int64, attempts int, cause error) {
	if c.failures == nil {
		return
	}
	failure := &models.IndexFailure{
		Entity:   c.desc.Name,
		RecordID: id,
		Action:   action,
		Error:    cause.Error(),
		Attempts: attempts,
	}
	if err := c.failures.Record(ctx, failure); err != nil {
		log.Error().
			Err(err).
			Str("entity", c.desc.Name).
			Int64("id", id).
			Msg("failed to record index failure")
	}
}
