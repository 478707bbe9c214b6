package region

import (
	"log/slog"
	"math/rand"
	"time"
)

// DefaultAttemptsPerPoint bounds rejection sampling at count*DefaultAttemptsPerPoint draws.
// It is a heuristic, thin shapes may need more.
const DefaultAttemptsPerPoint = 50

type options struct {
	rnd              *rand.Rand
	attemptsPerPoint int
	logger           *slog.Logger
}

type Option interface {
	apply(*options)
}

func loadOptions(opts ...Option) options {
	o := options{
		attemptsPerPoint: DefaultAttemptsPerPoint,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.rnd == nil {
		o.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

type randOption struct{ rnd *rand.Rand }

func (r randOption) apply(o *options) {
	o.rnd = r.rnd
}

// WithRand sets the random source. The sampler takes ownership of it, *rand.Rand is not safe for concurrent use.
func WithRand(rnd *rand.Rand) Option {
	return randOption{rnd: rnd}
}

// WithSeed makes sampling deterministic.
func WithSeed(seed int64) Option {
	return randOption{rnd: rand.New(rand.NewSource(seed))}
}

type attemptsPerPoint int

func (a attemptsPerPoint) apply(o *options) {
	if a > 0 {
		o.attemptsPerPoint = int(a)
	}
}

// Default: 50. Values below 1 are ignored.
func WithAttemptsPerPoint(n int) Option {
	return attemptsPerPoint(n)
}

type loggerOption struct{ logger *slog.Logger }

func (l loggerOption) apply(o *options) {
	if l.logger != nil {
		o.logger = l.logger
	}
}

func WithLogger(logger *slog.Logger) Option {
	return loggerOption{logger: logger}
}
