package workflow

import (
	"time"

	"github.com/okian/callscout/pkg/logger"
)

const (
	defaultMaxIterations    = 3
	defaultTargetQuantity   = 30
	defaultPlannerTimeout   = 30 * time.Second
	defaultRetrieverTimeout = 60 * time.Second
	defaultReporterTimeout  = 10 * time.Second
)

// Timeouts bound each collaborator call. Zero keeps the default.
type Timeouts struct {
	Planner   time.Duration
	Retriever time.Duration
	Reporter  time.Duration
}

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithMaxIterations bounds the number of Planning entries per run.
func WithMaxIterations(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithTargetQuantity sets how many results a run aims for.
func WithTargetQuantity(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.targetQuantity = n
		}
	}
}

// WithTargetSources sets the sources reflection measures coverage against.
func WithTargetSources(sources ...string) Option {
	return func(c *Controller) {
		c.targetSources = append([]string(nil), sources...)
	}
}

// WithFailurePolicy sets the retrieval failure policy. Unknown values are
// ignored.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(c *Controller) {
		if p == PolicyDegrade || p == PolicyFail {
			c.policy = p
		}
	}
}

// WithTimeouts sets collaborator timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(c *Controller) {
		if t.Planner > 0 {
			c.timeouts.Planner = t.Planner
		}
		if t.Retriever > 0 {
			c.timeouts.Retriever = t.Retriever
		}
		if t.Reporter > 0 {
			c.timeouts.Reporter = t.Reporter
		}
	}
}

// WithObserver registers a callback for status snapshots.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}
