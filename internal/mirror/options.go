package mirror

import (
	"time"

	"example.com/backstage/services/doctor/config"
)

// Options tune how index writes are retried and reported
type Options struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	PropagateErrors bool
}

// OptionsFromConfig reads Options from the mirror config section
func OptionsFromConfig(cfg config.MirrorConfig) Options {
	return Options{
		MaxAttempts:     cfg.MaxAttempts,
		InitialBackoff:  cfg.InitialBackoff,
		MaxBackoff:      cfg.MaxBackoff,
		PropagateErrors: cfg.PropagateErrors,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 200 * time.Millisecond
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = o.InitialBackoff
	}
	return o
}
