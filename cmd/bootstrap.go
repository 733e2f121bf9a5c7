package cmd

import (
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/doctor/config"
	"example.com/backstage/services/doctor/internal/api"
	"example.com/backstage/services/doctor/internal/cache"
	"example.com/backstage/services/doctor/internal/database"
	"example.com/backstage/services/doctor/internal/metrics"
	"example.com/backstage/services/doctor/internal/mirror"
	"example.com/backstage/services/doctor/internal/registry"
	"example.com/backstage/services/doctor/internal/search"
	"example.com/backstage/services/doctor/internal/tracing"
)

// deps holds the connections shared by every command
type deps struct {
	db       *gorm.DB
	elastic  *elasticsearch.Client
	cache    *cache.RedisCache
	tracer   *tracing.Tracer
	metrics  *metrics.Metrics
	registry *registry.Registry
}

// initDeps connects the record store and the search index and builds the
// registry. The cache and the tracer are optional.
func initDeps(cfg config.Config) (*deps, error) {
	d := &deps{metrics: metrics.Default()}

	db, err := database.Connect(cfg.DB, d.metrics)
	if err != nil {
		return nil, err
	}
	d.db = db

	if err := database.Migrate(db); err != nil {
		d.close()
		return nil, err
	}

	d.elastic, err = search.NewElasticClient(cfg.Elastic)
	if err != nil {
		d.close()
		return nil, errors.Wrap(err, "failed to initialize Elasticsearch client")
	}

	d.cache, err = cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		d.cache = nil
	}

	d.tracer, err = tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		d.tracer = nil
	}

	var readCache mirror.Cache
	if d.cache != nil && d.cache.Enabled() {
		readCache = d.cache
	}

	d.registry = registry.New(
		db,
		registry.ElasticIndexes(d.elastic, cfg.Elastic),
		readCache,
		d.metrics,
		d.tracer,
		mirror.OptionsFromConfig(cfg.Mirror),
	)

	return d, nil
}

// healthChecks probes the store, the index and, when enabled, the cache
func (d *deps) healthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		metrics.HealthDatabase: func(*gin.Context) error {
			return database.Ping(d.db)
		},
		metrics.HealthSearch: func(c *gin.Context) error {
			return search.Ping(c.Request.Context(), d.elastic)
		},
	}
	if d.cache != nil && d.cache.Enabled() {
		checks[metrics.HealthCache] = func(c *gin.Context) error {
			return d.cache.Ping(c.Request.Context())
		}
	}
	return checks
}

func (d *deps) close() {
	d.tracer.Close()
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis cache")
		}
	}
	if d.db != nil {
		if err := database.Close(d.db); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
