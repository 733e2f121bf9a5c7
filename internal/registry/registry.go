// Package registry wires one mirror coordinator per entity type.
package registry

import (
	"context"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/doctor/config"
	"example.com/backstage/services/doctor/internal/metrics"
	"example.com/backstage/services/doctor/internal/mirror"
	"example.com/backstage/services/doctor/internal/models"
	"example.com/backstage/services/doctor/internal/repository"
	"example.com/backstage/services/doctor/internal/search"
	"example.com/backstage/services/doctor/internal/tracing"
)

// Indexes holds the search index of every entity type
type Indexes struct {
	Replies         mirror.SearchIndex[models.Reply]
	Reviews         mirror.SearchIndex[models.Review]
	PaymentSettings mirror.SearchIndex[models.PaymentSettings]

	ensure []func(context.Context) error
}

// ElasticIndexes builds Elasticsearch backed indexes named after cfg's prefix
func ElasticIndexes(client *elasticsearch.Client, cfg config.ElasticConfig) Indexes {
	replies := search.NewElasticIndex[models.Reply](client, config.FormatIndex(cfg, ReplyName))
	reviews := search.NewElasticIndex[models.Review](client, config.FormatIndex(cfg, ReviewName))
	settings := search.NewElasticIndex[models.PaymentSettings](client, config.FormatIndex(cfg, PaymentSettingsName))

	return Indexes{
		Replies:         replies,
		Reviews:         reviews,
		PaymentSettings: settings,
		ensure:          []func(context.Context) error{replies.Ensure, reviews.Ensure, settings.Ensure},
	}
}

// Registry holds the coordinators of every entity type
type Registry struct {
	Replies         *mirror.Coordinator[models.ReplyDTO, models.Reply]
	Reviews         *mirror.Coordinator[models.ReviewDTO, models.Review]
	PaymentSettings *mirror.Coordinator[models.PaymentSettingsDTO, models.PaymentSettings]
	Failures        *repository.IndexFailureRepository

	indexes Indexes
	metrics *metrics.Metrics
	tracer  *tracing.Tracer
}

// New creates a registry over db and indexes. readCache may be nil.
func New(db *gorm.DB, indexes Indexes, readCache mirror.Cache, m *metrics.Metrics, tracer *tracing.Tracer, opts mirror.Options) *Registry {
	failures := repository.NewIndexFailureRepository(db)

	return &Registry{
		Replies: mirror.NewCoordinator[models.ReplyDTO, models.Reply](ReplyDescriptor(),
			repository.NewGormStore[models.Reply](db), indexes.Replies, failures, readCache, m, tracer, opts),
		Reviews: mirror.NewCoordinator[models.ReviewDTO, models.Review](ReviewDescriptor(),
			repository.NewGormStore[models.Review](db), indexes.Reviews, failures, readCache, m, tracer, opts),
		PaymentSettings: mirror.NewCoordinator[models.PaymentSettingsDTO, models.PaymentSettings](PaymentSettingsDescriptor(),
			repository.NewGormStore[models.PaymentSettings](db), indexes.PaymentSettings, failures, readCache, m, tracer, opts),
		Failures: failures,
		indexes:  indexes,
		metrics:  m,
		tracer:   tracer,
	}
}

// Targets lists every coordinator for reconciliation
func (r *Registry) Targets() []mirror.Target {
	return []mirror.Target{r.Replies, r.Reviews, r.PaymentSettings}
}

// Reconciler returns a reconciler over every entity type
func (r *Registry) Reconciler(batch int) *mirror.Reconciler {
	return mirror.NewReconciler(r.Targets(), r.Failures, r.metrics, r.tracer, batch)
}

// EnsureIndices creates missing search indices
func (r *Registry) EnsureIndices(ctx context.Context) error {
	for _, ensure := range r.indexes.ensure {
		if err := ensure(ctx); err != nil {
			return errors.Wrap(err, "failed to ensure search index")
		}
	}
	return nil
}
