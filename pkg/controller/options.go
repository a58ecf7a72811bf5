package controller

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often Submit checks whether async validation has
// settled.
const DefaultPollInterval = 200 * time.Millisecond

type settings struct {
	logger       *zap.Logger
	pollInterval time.Duration
	scheduler    Scheduler
	ctx          context.Context
}

// Option configures ambient behaviour of a Controller. Options are carried
// forward to the successor built by ResetForm.
type Option func(*settings)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPollInterval overrides DefaultPollInterval. Zero keeps the default.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		s.pollInterval = d
	}
}

// WithScheduler sets how async validation resolutions are delivered. The
// change batch is shared by the whole controller: a resolution running while
// another goroutine is inside a setter joins that batch, and the deferred
// effects then run on whichever goroutine finishes last. Callers that mutate
// the form from one goroutine should supply a scheduler that hands fn back to
// that goroutine.
func WithScheduler(scheduler Scheduler) Option {
	return func(s *settings) {
		if scheduler != nil {
			s.scheduler = scheduler
		}
	}
}

// WithContext sets the context handed to async validation promises.
func WithContext(ctx context.Context) Option {
	return func(s *settings) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

func defaultSettings() settings {
	return settings{
		logger:       zap.NewNop(),
		pollInterval: DefaultPollInterval,
		scheduler:    func(fn func()) { fn() },
		ctx:          context.Background(),
	}
}
