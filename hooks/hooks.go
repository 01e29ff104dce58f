// Package hooks observes garbage-collection cycles. A Registry collects hook
// functions and implements compaction.Hooks, so it can be passed straight to
// compaction.WithHooks.
package hooks

import (
	"context"
	"sync"

	"github.com/youssefsiam38/contextgc/compaction"
)

// BeforeCollectHook is called before a cycle compresses anything.
// Returning an error aborts the cycle.
type BeforeCollectHook func(ctx context.Context, sessionID string, usage *compaction.Usage) error

// AfterCollectHook is called after a cycle completes.
type AfterCollectHook func(ctx context.Context, result *compaction.Result) error

// ExternalizeHook is called after each write-through attempt.
// Parameters: ctx, sessionID, messageID, brainID, error
type ExternalizeHook func(ctx context.Context, sessionID, messageID string, brainID int, err error) error

// Registry holds all registered hooks
type Registry struct {
	mu            sync.RWMutex
	beforeCollect []BeforeCollectHook
	afterCollect  []AfterCollectHook
	externalize   []ExternalizeHook
}

var _ compaction.Hooks = (*Registry)(nil)

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		beforeCollect: []BeforeCollectHook{},
		afterCollect:  []AfterCollectHook{},
		externalize:   []ExternalizeHook{},
	}
}

// OnBeforeCollect registers a hook to be called before a cycle
func (r *Registry) OnBeforeCollect(hook BeforeCollectHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeCollect = append(r.beforeCollect, hook)
}

// OnAfterCollect registers a hook to be called after a cycle
func (r *Registry) OnAfterCollect(hook AfterCollectHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterCollect = append(r.afterCollect, hook)
}

// OnExternalize registers a hook to be called after each write-through attempt
func (r *Registry) OnExternalize(hook ExternalizeHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.externalize = append(r.externalize, hook)
}

// TriggerBeforeCollect calls all registered before-collect hooks, stopping at
// the first error.
func (r *Registry) TriggerBeforeCollect(ctx context.Context, sessionID string, usage *compaction.Usage) error {
	r.mu.RLock()
	hooks := make([]BeforeCollectHook, len(r.beforeCollect))
	copy(hooks, r.beforeCollect)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, usage); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterCollect calls all registered after-collect hooks
func (r *Registry) TriggerAfterCollect(ctx context.Context, result *compaction.Result) error {
	r.mu.RLock()
	hooks := make([]AfterCollectHook, len(r.afterCollect))
	copy(hooks, r.afterCollect)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// TriggerExternalize calls all registered externalize hooks
func (r *Registry) TriggerExternalize(ctx context.Context, sessionID, messageID string, brainID int, err error) error {
	r.mu.RLock()
	hooks := make([]ExternalizeHook, len(r.externalize))
	copy(hooks, r.externalize)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if hookErr := hook(ctx, sessionID, messageID, brainID, err); hookErr != nil {
			return hookErr
		}
	}
	return nil
}
