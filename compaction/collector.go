package compaction

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/contextgc/brainstore"
	"github.com/youssefsiam38/contextgc/cache"
	"github.com/youssefsiam38/contextgc/recall"
	"github.com/youssefsiam38/contextgc/tokens"
	"github.com/youssefsiam38/contextgc/types"
)

// Externalizer moves content into long-term memory and returns the id it
// can be recalled by.
type Externalizer interface {
	Externalize(ctx context.Context, sessionID, messageID, content string) (int, error)
}

// Collector drives GC cycles for many sessions: it measures context usage,
// picks a budget for the current pressure, and runs the Engine over the
// conversation. At most one cycle per session runs at a time.
type Collector struct {
	config       *Config
	engine       *Engine
	cache        *cache.Store
	brains       brainstore.Store
	externalizer Externalizer
	counter      Counter
	hints        *recall.Injector
	hooks        Hooks
	logger       Logger
	now          func() time.Time

	mu          sync.Mutex
	lastCollect map[string]time.Time
	sessionMu   map[string]*sync.Mutex
}

// NewCollector creates a Collector. A nil config takes defaults; the config
// is copied, defaulted and validated.
func NewCollector(config *Config, opts ...Option) (*Collector, error) {
	cfg := DefaultConfig()
	if config != nil {
		c := *config
		cfg = &c
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &collectorOptions{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.logger == nil {
		o.logger = noopLogger{}
	}
	if o.brains == nil {
		o.brains = brainstore.NewMemory()
	}
	if o.cache == nil {
		o.cache = cache.New()
	}
	if o.counter == nil {
		if o.client != nil {
			o.counter = NewTokenCounter(o.client, cfg.TokenCountingModel, cfg.UseTokenCountingAPI)
		} else {
			o.counter = EstimateCounter{}
		}
	}
	if o.now == nil {
		o.now = time.Now
	}

	return &Collector{
		config:       cfg,
		engine:       NewEngine(cfg, o.cache, o.brains, o.logger),
		cache:        o.cache,
		brains:       o.brains,
		externalizer: o.externalizer,
		counter:      o.counter,
		hints:        recall.NewInjector(cfg.RecallCommand),
		hooks:        o.hooks,
		logger:       o.logger,
		now:          o.now,
		lastCollect:  make(map[string]time.Time),
		sessionMu:    make(map[string]*sync.Mutex),
	}, nil
}

// Config returns the effective configuration.
func (c *Collector) Config() *Config {
	return c.config
}

// Engine returns the engine cycles run on.
func (c *Collector) Engine() *Engine {
	return c.engine
}

// Usage measures how full the context window is.
func (c *Collector) Usage(ctx context.Context, messages []*types.Message) (*Usage, error) {
	count, err := c.counter.CountTokens(ctx, messages)
	if err != nil {
		return nil, WrapError("Usage", err)
	}

	ratio := clampRatio(float64(count.TotalTokens) / float64(c.config.MaxTokensForModel))
	return &Usage{
		TotalTokens:     count.TotalTokens,
		UsedAPI:         count.UsedAPI,
		Ratio:           ratio,
		Zone:            PressureZoneFor(ratio),
		NeedsCollection: ratio >= c.config.GCTriggerPct,
	}, nil
}

// Collect runs one cycle regardless of usage and cooldown. Parts are edited
// in place; the returned slice replaces messages.
func (c *Collector) Collect(ctx context.Context, sessionID string, messages []*types.Message) ([]*types.Message, *Result, error) {
	if len(messages) == 0 {
		return messages, nil, NewError("Collect", ErrNoMessages).WithSession(sessionID)
	}

	unlock := c.lockSession(sessionID)
	defer unlock()

	usage, err := c.Usage(ctx, messages)
	if err != nil {
		return messages, nil, WrapErrorWithSession("Collect", sessionID, err)
	}
	return c.collect(ctx, sessionID, messages, usage)
}

// CollectIfNeeded runs a cycle only when preemptive compaction is enabled,
// the session is out of its cooldown window and usage reached the trigger.
// Otherwise it returns messages unchanged and a nil Result.
func (c *Collector) CollectIfNeeded(ctx context.Context, sessionID string, messages []*types.Message) ([]*types.Message, *Result, error) {
	if c.config.DisablePreemptiveCompaction || len(messages) == 0 {
		return messages, nil, nil
	}

	unlock := c.lockSession(sessionID)
	defer unlock()

	if c.inCooldown(sessionID) {
		return messages, nil, nil
	}

	usage, err := c.Usage(ctx, messages)
	if err != nil {
		return messages, nil, WrapErrorWithSession("CollectIfNeeded", sessionID, err)
	}
	if !usage.NeedsCollection {
		return messages, nil, nil
	}

	return c.collect(ctx, sessionID, messages, usage)
}

func (c *Collector) collect(ctx context.Context, sessionID string, messages []*types.Message, usage *Usage) ([]*types.Message, *Result, error) {
	start := c.now()
	cycleID := uuid.New()

	if c.hooks != nil {
		if err := c.hooks.TriggerBeforeCollect(ctx, sessionID, usage); err != nil {
			return messages, nil, WrapErrorWithSession("Collect", sessionID, err)
		}
	}

	c.logger.Info("starting gc cycle",
		"cycle_id", cycleID,
		"session_id", sessionID,
		"tokens", usage.TotalTokens,
		"ratio", usage.Ratio,
		"zone", string(usage.Zone),
	)

	adoptSession(sessionID, messages)
	externalized := c.writeThrough(ctx, sessionID, messages)

	budget := ComputeDynamicBudget(c.config, usage.Ratio)
	classifications, err := c.engine.Classify(ctx, messages, budget)
	if err != nil {
		return messages, nil, WrapErrorWithSession("Collect", sessionID, err)
	}

	tokensToFree := max(0, usage.TotalTokens-c.config.TargetTokens())
	estimatedBefore := tokens.EstimateMessages(messages)

	compacted, stats, err := c.engine.Compress(ctx, messages, classifications, tokensToFree)
	if err != nil {
		return compacted, nil, WrapErrorWithSession("Collect", sessionID, err)
	}

	result := &Result{
		CycleID:        cycleID,
		SessionID:      sessionID,
		Zone:           usage.Zone,
		Budget:         budget,
		OriginalTokens: usage.TotalTokens,
		TokensToFree:   tokensToFree,
		Tiers:          CountTiers(classifications),
		Stats:          *stats,
		Externalized:   externalized,
	}

	if c.config.InjectRecallHint {
		result.RecallHintInjected = c.hints.Inject(compacted, sessionID)
	}
	if c.config.InjectPrefetchHint {
		result.PrefetchHintInjected = c.hints.InjectPrefetch(compacted)
	}

	freed := estimatedBefore - tokens.EstimateMessages(compacted)
	result.CompactedTokens = max(0, usage.TotalTokens-freed)
	result.Duration = c.now().Sub(start)

	c.mu.Lock()
	c.lastCollect[sessionID] = c.now()
	c.mu.Unlock()

	if c.hooks != nil {
		if err := c.hooks.TriggerAfterCollect(ctx, result); err != nil {
			c.logger.Warn("after-collect hook failed",
				"cycle_id", cycleID,
				"session_id", sessionID,
				"error", err,
			)
		}
	}

	c.logger.Info("gc cycle complete",
		"cycle_id", cycleID,
		"session_id", sessionID,
		"original_tokens", result.OriginalTokens,
		"compacted_tokens", result.CompactedTokens,
		"messages_removed", stats.MessagesRemoved,
		"duration", result.Duration,
	)

	return compacted, result, nil
}

// writeThrough externalizes every unprocessed message of sessionID whose tool
// outputs reach ToolOutputTokenThreshold. Failures are logged and retried next cycle.
func (c *Collector) writeThrough(ctx context.Context, sessionID string, messages []*types.Message) int {
	if !c.config.BrainWriteThrough || c.externalizer == nil {
		return 0
	}

	count := 0
	for _, msg := range messages {
		if !msg.HasIdentity() || msg.SessionID != sessionID || c.cache.IsProcessed(sessionID, msg.ID) {
			continue
		}

		content := toolOutputContent(msg)
		if content == "" || tokens.Estimate(content) < c.config.ToolOutputTokenThreshold {
			continue
		}

		brainID, err := c.externalize(ctx, sessionID, msg.ID, content)
		if c.hooks != nil {
			if hookErr := c.hooks.TriggerExternalize(ctx, sessionID, msg.ID, brainID, err); hookErr != nil {
				c.logger.Warn("externalize hook failed", "session_id", sessionID, "message_id", msg.ID, "error", hookErr)
			}
		}
		if err != nil {
			c.logger.Warn("write-through failed", "session_id", sessionID, "message_id", msg.ID, "error", err)
			continue
		}

		c.cache.MarkProcessed(sessionID, msg.ID)
		count++
	}
	return count
}

// adoptSession stamps messages that carry no session with sessionID, so
// brain ids and tier records are keyed the same way the engine looks them up.
func adoptSession(sessionID string, messages []*types.Message) {
	for _, msg := range messages {
		if msg.SessionID == "" {
			msg.SessionID = sessionID
		}
	}
}

func (c *Collector) externalize(ctx context.Context, sessionID, messageID, content string) (int, error) {
	brainID, err := c.externalizer.Externalize(ctx, sessionID, messageID, content)
	if err != nil {
		return 0, NewError("Externalize", ErrExternalizeFailed).
			WithSession(sessionID).
			WithContext("message_id", messageID).
			WithCause(err)
	}
	if err := c.brains.SetBrainID(ctx, sessionID, messageID, brainID); err != nil {
		return brainID, WrapErrorWithSession("Externalize", sessionID, err)
	}
	return brainID, nil
}

func toolOutputContent(msg *types.Message) string {
	var outputs []string
	for i := range msg.Parts {
		part := &msg.Parts[i]
		if part.IsTool() && part.Output() != "" {
			outputs = append(outputs, part.Output())
		}
	}
	return strings.Join(outputs, "\n\n")
}

// EndSession forgets everything held for sessionID, including its brain ids.
// It waits for a running cycle of the session to finish. The session lock
// itself is kept so later cycles still serialize on it.
func (c *Collector) EndSession(ctx context.Context, sessionID string) error {
	unlock := c.lockSession(sessionID)
	defer unlock()

	c.cache.ClearSession(sessionID)
	c.hints.ClearSession(sessionID)

	c.mu.Lock()
	delete(c.lastCollect, sessionID)
	c.mu.Unlock()

	if err := c.brains.ClearSession(ctx, sessionID); err != nil {
		return WrapErrorWithSession("EndSession", sessionID, err)
	}
	return nil
}

// LastCollected returns when sessionID last completed a cycle.
func (c *Collector) LastCollected(sessionID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.lastCollect[sessionID]
	return t, ok
}

func (c *Collector) inCooldown(sessionID string) bool {
	last, ok := c.LastCollected(sessionID)
	return ok && c.now().Sub(last) < c.config.Cooldown()
}

func (c *Collector) lockSession(sessionID string) func() {
	c.mu.Lock()
	m, ok := c.sessionMu[sessionID]
	if !ok {
		m = &sync.Mutex{}
		c.sessionMu[sessionID] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}
