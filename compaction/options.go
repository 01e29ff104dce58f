package compaction

import (
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/youssefsiam38/contextgc/brainstore"
	"github.com/youssefsiam38/contextgc/cache"
)

// Option is a functional option for configuring a Collector.
type Option func(*collectorOptions) error

type collectorOptions struct {
	logger       Logger
	hooks        Hooks
	brains       brainstore.Store
	externalizer Externalizer
	counter      Counter
	client       *anthropic.Client
	cache        *cache.Store
	now          func() time.Time
}

// WithLogger sets the logger. *slog.Logger satisfies Logger.
func WithLogger(logger Logger) Option {
	return func(o *collectorOptions) error {
		if logger == nil {
			return NewError("WithLogger", ErrInvalidConfig).WithContext("reason", "nil logger")
		}
		o.logger = logger
		return nil
	}
}

// WithHooks sets the hooks observing each cycle.
func WithHooks(hooks Hooks) Option {
	return func(o *collectorOptions) error {
		if hooks == nil {
			return NewError("WithHooks", ErrInvalidConfig).WithContext("reason", "nil hooks")
		}
		o.hooks = hooks
		return nil
	}
}

// WithBrainStore sets where brain ids are recorded and looked up.
// Default: an in-memory store.
func WithBrainStore(store brainstore.Store) Option {
	return func(o *collectorOptions) error {
		if store == nil {
			return NewError("WithBrainStore", ErrInvalidConfig).WithContext("reason", "nil brain store")
		}
		o.brains = store
		return nil
	}
}

// WithExternalizer sets the long-term memory that write-through hands large
// tool outputs to. Write-through also needs BrainWriteThrough in the config.
func WithExternalizer(ext Externalizer) Option {
	return func(o *collectorOptions) error {
		if ext == nil {
			return NewError("WithExternalizer", ErrInvalidConfig).WithContext("reason", "nil externalizer")
		}
		o.externalizer = ext
		return nil
	}
}

// WithTokenCounter sets the token counter used for the usage ratio.
// It takes precedence over WithClient.
func WithTokenCounter(counter Counter) Option {
	return func(o *collectorOptions) error {
		if counter == nil {
			return NewError("WithTokenCounter", ErrInvalidConfig).WithContext("reason", "nil counter")
		}
		o.counter = counter
		return nil
	}
}

// WithClient counts tokens with the Claude token counting API, subject to
// UseTokenCountingAPI and TokenCountingModel.
func WithClient(client *anthropic.Client) Option {
	return func(o *collectorOptions) error {
		if client == nil {
			return NewError("WithClient", ErrInvalidConfig).WithContext("reason", "nil client")
		}
		o.client = client
		return nil
	}
}

// WithCache shares a compression cache between collectors.
func WithCache(store *cache.Store) Option {
	return func(o *collectorOptions) error {
		if store == nil {
			return NewError("WithCache", ErrInvalidConfig).WithContext("reason", "nil cache")
		}
		o.cache = store
		return nil
	}
}

// WithClock replaces time.Now for cooldown bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *collectorOptions) error {
		if now == nil {
			return NewError("WithClock", ErrInvalidConfig).WithContext("reason", "nil clock")
		}
		o.now = now
		return nil
	}
}
