package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Counter names
const (
	CounterHTTPRequests       = "http_requests_total"
	CounterDBQueries          = "db_queries_total"
	CounterDBErrors           = "db_errors_total"
	CounterIndexWrites        = "index_writes_total"
	CounterIndexRetries       = "index_retries_total"
	CounterIndexFailures      = "index_failures_total"
	CounterIndexFailuresDrain = "index_failures_resolved_total"
	CounterCacheHits          = "cache_hits_total"
	CounterCacheMisses        = "cache_misses_total"
	CounterReindexedRecords   = "reindexed_records_total"
)

// Gauge names
const (
	GaugeGoroutines            = "goroutines"
	GaugeUnresolvedIndexErrors = "unresolved_index_failures"
)

// Health components
const (
	HealthDatabase = "database"
	HealthSearch   = "search"
	HealthCache    = "cache"
)

// TimerMetric summarises a timer
type TimerMetric struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// ErrorRateMetric summarises successes versus errors, rate in percent
type ErrorRateMetric struct {
	Total     int64   `json:"total"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
}

type timerSlot struct {
	count   int64
	totalMs int64
	minMs   int64
	maxMs   int64
}

type rateSlot struct {
	total  int64
	errors int64
}

// Metrics is a lock-light in-process collector. Values live behind pointers
// so that hot paths only take the read lock.
type Metrics struct {
	mu         sync.RWMutex
	counters   map[string]*int64
	gauges     map[string]*int64
	timers     map[string]*timerSlot
	errorRates map[string]*rateSlot
	health     map[string]*int64
	startTime  time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*int64),
		timers:     make(map[string]*timerSlot),
		errorRates: make(map[string]*rateSlot),
		health:     make(map[string]*int64),
		startTime:  time.Now(),
	}
}

// slot returns the entry for name, creating it with fresh() on first use
func slot[T any](m *Metrics, table map[string]*T, name string, fresh func() *T) *T {
	m.mu.RLock()
	s, ok := table[name]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = table[name]; !ok {
		s = fresh()
		table[name] = s
	}
	return s
}

func newInt64() *int64 { return new(int64) }

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	atomic.AddInt64(slot(m, m.counters, name, newInt64), value)
}

// SetGauge sets a gauge to value
func (m *Metrics) SetGauge(name string, value int64) {
	atomic.StoreInt64(slot(m, m.gauges, name, newInt64), value)
}

// RecordTimer records a duration under name
func (m *Metrics) RecordTimer(name string, d time.Duration) {
	ms := d.Milliseconds()
	t := slot(m, m.timers, name, func() *timerSlot {
		return &timerSlot{minMs: math.MaxInt64}
	})

	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalMs, ms)

	for {
		cur := atomic.LoadInt64(&t.minMs)
		if ms >= cur || atomic.CompareAndSwapInt64(&t.minMs, cur, ms) {
			break
		}
	}
	for {
		cur := atomic.LoadInt64(&t.maxMs)
		if ms <= cur || atomic.CompareAndSwapInt64(&t.maxMs, cur, ms) {
			break
		}
	}
}

// RecordSuccess counts a successful call of name
func (m *Metrics) RecordSuccess(name string) {
	m.recordOutcome(name, false)
}

// RecordError counts a failed call of name
func (m *Metrics) RecordError(name string) {
	m.recordOutcome(name, true)
}

// RecordOutcome counts a call of name, failed when err is non-nil
func (m *Metrics) RecordOutcome(name string, err error) {
	m.recordOutcome(name, err != nil)
}

func (m *Metrics) recordOutcome(name string, failed bool) {
	r := slot(m, m.errorRates, name, func() *rateSlot { return &rateSlot{} })
	atomic.AddInt64(&r.total, 1)
	if failed {
		atomic.AddInt64(&r.errors, 1)
	}
}

// SetHealth marks a component healthy or not
func (m *Metrics) SetHealth(component string, healthy bool) {
	var v int64
	if healthy {
		v = 1
	}
	atomic.StoreInt64(slot(m, m.health, component, newInt64), v)
}

// Counter returns the current value of a counter
func (m *Metrics) Counter(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.counters[name]; ok {
		return atomic.LoadInt64(c)
	}
	return 0
}

// GetCounters returns all counters
func (m *Metrics) GetCounters() map[string]int64 {
	return loadAll(m, m.counters)
}

// GetGauges returns all gauges
func (m *Metrics) GetGauges() map[string]int64 {
	return loadAll(m, m.gauges)
}

func loadAll(m *Metrics, table map[string]*int64) map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(table))
	for name, v := range table {
		out[name] = atomic.LoadInt64(v)
	}
	return out
}

// GetTimers returns all timers
func (m *Metrics) GetTimers() map[string]TimerMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]TimerMetric, len(m.timers))
	for name, t := range m.timers {
		count := atomic.LoadInt64(&t.count)
		total := atomic.LoadInt64(&t.totalMs)

		var avg float64
		if count > 0 {
			avg = float64(total) / float64(count)
		}
		out[name] = TimerMetric{
			Count:         count,
			TotalTimeMs:   total,
			AverageTimeMs: avg,
			MinTimeMs:     atomic.LoadInt64(&t.minMs),
			MaxTimeMs:     atomic.LoadInt64(&t.maxMs),
		}
	}
	return out
}

// GetErrorRates returns all error rates
func (m *Metrics) GetErrorRates() map[string]ErrorRateMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]ErrorRateMetric, len(m.errorRates))
	for name, r := range m.errorRates {
		total := atomic.LoadInt64(&r.total)
		errs := atomic.LoadInt64(&r.errors)

		var rate float64
		if total > 0 {
			rate = float64(errs) / float64(total) * 100.0
		}
		out[name] = ErrorRateMetric{Total: total, Errors: errs, ErrorRate: rate}
	}
	return out
}

// GetHealthChecks returns the health of every registered component
func (m *Metrics) GetHealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]bool, len(m.health))
	for name, h := range m.health {
		out[name] = atomic.LoadInt64(h) > 0
	}
	return out
}

// Healthy reports whether every registered component is healthy
func (m *Metrics) Healthy() bool {
	for _, ok := range m.GetHealthChecks() {
		if !ok {
			return false
		}
	}
	return true
}

// GetUptimeSeconds returns the service uptime in seconds
func (m *Metrics) GetUptimeSeconds() int64 {
	return int64(time.Since(m.startTime).Seconds())
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": m.GetUptimeSeconds(),
		"counters":       m.GetCounters(),
		"gauges":         m.GetGauges(),
		"timers":         m.GetTimers(),
		"error_rates":    m.GetErrorRates(),
		"health_checks":  m.GetHealthChecks(),
	}
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Default returns the process-wide collector
func Default() *Metrics {
	globalOnce.Do(func() {
		global = NewMetrics()
	})
	return global
}
