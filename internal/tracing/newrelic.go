package tracing

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/doctor/config"
)

// Tracer wraps a New Relic application. A nil or disabled Tracer is valid
// and records nothing.
type Tracer struct {
	app *newrelic.Application
}

// NewTracer creates a new tracer, disabled when no license key is set
func NewTracer(cfg config.TracingConfig) (*Tracer, error) {
	if cfg.LicenseKey == "" {
		log.Warn().Msg("New Relic license key not provided, tracing will be disabled")
		return &Tracer{}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(cfg.DistribTracing),
		newrelic.ConfigAppLogForwardingEnabled(cfg.LogEnabled),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize New Relic")
	}

	return &Tracer{app: app}, nil
}

// Enabled reports whether traces are sent
func (t *Tracer) Enabled() bool {
	return t != nil && t.app != nil
}

// Application returns the New Relic application, nil when disabled
func (t *Tracer) Application() *newrelic.Application {
	if !t.Enabled() {
		return nil
	}
	return t.app
}

// StartTransaction starts a background transaction and returns a context
// carrying it. The returned func ends it, noticing err when non-nil.
func (t *Tracer) StartTransaction(ctx context.Context, name string) (context.Context, func(err error)) {
	if !t.Enabled() {
		return ctx, func(error) {}
	}

	txn := t.app.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), func(err error) {
		if err != nil {
			txn.NoticeError(err)
		}
		txn.End()
	}
}

// StartSegment starts a segment in the transaction carried by ctx. It is a
// no-op when ctx carries none.
func (t *Tracer) StartSegment(ctx context.Context, name string) func() {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return func() {}
	}
	seg := txn.StartSegment(name)
	return seg.End
}

// NoticeError records err on the transaction carried by ctx
func (t *Tracer) NoticeError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if txn := newrelic.FromContext(ctx); txn != nil {
		txn.NoticeError(err)
	}
}

// AddAttribute adds an attribute to the transaction carried by ctx
func (t *Tracer) AddAttribute(ctx context.Context, key string, value interface{}) {
	if txn := newrelic.FromContext(ctx); txn != nil {
		txn.AddAttribute(key, value)
	}
}

// Close flushes pending data
func (t *Tracer) Close() {
	if !t.Enabled() {
		return
	}
	t.app.Shutdown(10 * time.Second)
	log.Info().Msg("New Relic tracer shutdown")
}
