package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/doctor/internal/metrics"
)

const startTimeKey = "doctor:start_time"

// RegisterMetricsHooks times every create, query, update and delete and
// reports them to m
func RegisterMetricsHooks(db *gorm.DB, m *metrics.Metrics) error {
	cb := db.Callback()

	regs := []struct {
		name string
		err  error
	}{
		{"create", cb.Create().Before("gorm:create").Register("metrics:start_create", markStart)},
		{"query", cb.Query().Before("gorm:query").Register("metrics:start_query", markStart)},
		{"update", cb.Update().Before("gorm:update").Register("metrics:start_update", markStart)},
		{"delete", cb.Delete().Before("gorm:delete").Register("metrics:start_delete", markStart)},
		{"create", cb.Create().After("gorm:create").Register("metrics:create", recordQuery(m, "create"))},
		{"query", cb.Query().After("gorm:query").Register("metrics:query", recordQuery(m, "query"))},
		{"update", cb.Update().After("gorm:update").Register("metrics:update", recordQuery(m, "update"))},
		{"delete", cb.Delete().After("gorm:delete").Register("metrics:delete", recordQuery(m, "delete"))},
	}

	for _, r := range regs {
		if r.err != nil {
			return errors.Wrapf(r.err, "failed to register %s metrics hook", r.name)
		}
	}
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func recordQuery(m *metrics.Metrics, kind string) func(*gorm.DB) {
	name := "db." + kind
	return func(db *gorm.DB) {
		m.IncrementCounter(metrics.CounterDBQueries)

		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			m.IncrementCounter(metrics.CounterDBErrors)
			m.RecordError(name)
		} else {
			m.RecordSuccess(name)
		}

		if start, ok := db.InstanceGet(startTimeKey); ok {
			m.RecordTimer(name, time.Since(start.(time.Time)))
		}
	}
}
