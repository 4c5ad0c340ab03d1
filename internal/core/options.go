package core

import "time"

// Logger is the structured logging surface used by the core. Key/value pairs
// follow the slog convention (alternating keys and values).
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// Option customises a Service.
type Option func(*options)

type options struct {
	logger     Logger
	clock      Clock
	metrics    *Metrics
	idStrategy IDStrategy
	lowStock   int64
	seed       *SeedData
}

func defaultOptions() options {
	return options{
		logger:     NopLogger{},
		clock:      systemClock{},
		idStrategy: IDSequence,
		lowStock:   5,
	}
}

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetrics records store operations on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithIDStrategy selects how new records get their ids.
func WithIDStrategy(s IDStrategy) Option {
	return func(o *options) { o.idStrategy = s }
}

// WithLowStockThreshold sets the stock level at or below which a product is
// reported as low on the dashboard.
func WithLowStockThreshold(n int64) Option {
	return func(o *options) { o.lowStock = n }
}

// WithSeed loads sample records into every collection whose backend comes
// back empty.
func WithSeed(data SeedData) Option {
	return func(o *options) { o.seed = &data }
}
