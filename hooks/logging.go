package hooks

import (
	"context"
	"log"

	"github.com/youssefsiam38/contextgc/compaction"
	"github.com/youssefsiam38/contextgc/types"
)

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger.
// A nil logger means log.Default().
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// Register adds the logging hooks to r.
func (h *LoggingHooks) Register(r *Registry) {
	r.OnBeforeCollect(h.BeforeCollect)
	r.OnAfterCollect(h.AfterCollect)
	r.OnExternalize(h.Externalize)
}

// BeforeCollect logs the usage a cycle starts from
func (h *LoggingHooks) BeforeCollect(ctx context.Context, sessionID string, usage *compaction.Usage) error {
	h.logger.Printf("[ContextGC] Starting GC for session %s: %d tokens (%.0f%% of window, %s pressure)",
		sessionID, usage.TotalTokens, usage.Ratio*100, usage.Zone)
	return nil
}

// AfterCollect logs the outcome of a cycle
func (h *LoggingHooks) AfterCollect(ctx context.Context, result *compaction.Result) error {
	h.logger.Printf("[ContextGC] GC complete: %d → %d tokens (%.1f%% reduction, %d messages removed, %d tool outputs compressed)",
		result.OriginalTokens, result.CompactedTokens, reductionPct(result),
		result.Stats.MessagesRemoved, result.Stats.ToolOutputsCompressed)
	return nil
}

// Externalize logs write-through attempts
func (h *LoggingHooks) Externalize(ctx context.Context, sessionID, messageID string, brainID int, err error) error {
	if err != nil {
		h.logger.Printf("[ContextGC] Write-through of message %s failed: %v", messageID, err)
	} else {
		h.logger.Printf("[ContextGC] Message %s externalized as brain#%d", messageID, brainID)
	}
	return nil
}

// VerboseLoggingHooks provides detailed logging for debugging
type VerboseLoggingHooks struct {
	logger *log.Logger
}

// NewVerboseLoggingHooks creates verbose logging hooks.
// A nil logger means log.Default().
func NewVerboseLoggingHooks(logger *log.Logger) *VerboseLoggingHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &VerboseLoggingHooks{logger: logger}
}

// Register adds the verbose hooks to r.
func (h *VerboseLoggingHooks) Register(r *Registry) {
	r.OnBeforeCollect(h.BeforeCollect)
	r.OnAfterCollect(h.AfterCollect)
}

// BeforeCollect logs detailed usage information
func (h *VerboseLoggingHooks) BeforeCollect(ctx context.Context, sessionID string, usage *compaction.Usage) error {
	h.logger.Printf("[ContextGC][VERBOSE] === Starting GC ===")
	h.logger.Printf("[ContextGC][VERBOSE] Session: %s", sessionID)
	h.logger.Printf("[ContextGC][VERBOSE] Tokens: %d (api=%t)", usage.TotalTokens, usage.UsedAPI)
	h.logger.Printf("[ContextGC][VERBOSE] Ratio: %.3f, zone: %s", usage.Ratio, usage.Zone)
	return nil
}

// AfterCollect logs detailed cycle results
func (h *VerboseLoggingHooks) AfterCollect(ctx context.Context, result *compaction.Result) error {
	h.logger.Printf("[ContextGC][VERBOSE] === GC Complete (cycle %s) ===", result.CycleID)
	h.logger.Printf("[ContextGC][VERBOSE] Budget: hot=%d warm=%d cold=%d gone=%d",
		result.Budget.HotTurns, result.Budget.WarmTurns, result.Budget.ColdTurns, result.Budget.GoneTurns)
	h.logger.Printf("[ContextGC][VERBOSE] Tiers: hot=%d warm=%d cold=%d gone=%d",
		result.Tiers[types.TierHot], result.Tiers[types.TierWarm], result.Tiers[types.TierCold], result.Tiers[types.TierGone])
	h.logger.Printf("[ContextGC][VERBOSE] Tokens: %d → %d (target free %d)",
		result.OriginalTokens, result.CompactedTokens, result.TokensToFree)
	h.logger.Printf("[ContextGC][VERBOSE] Stats: %+v", result.Stats)
	h.logger.Printf("[ContextGC][VERBOSE] Duration: %v", result.Duration)
	return nil
}

// MetricsHooks collects metrics for monitoring
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// Register adds the metrics hooks to r.
func (h *MetricsHooks) Register(r *Registry) {
	r.OnAfterCollect(h.AfterCollect)
	r.OnExternalize(h.Externalize)
}

// AfterCollect records cycle metrics
func (h *MetricsHooks) AfterCollect(ctx context.Context, result *compaction.Result) error {
	tags := map[string]string{"zone": string(result.Zone)}

	h.OnMetric("contextgc.tokens.original", float64(result.OriginalTokens), tags)
	h.OnMetric("contextgc.tokens.compacted", float64(result.CompactedTokens), tags)
	h.OnMetric("contextgc.messages.removed", float64(result.Stats.MessagesRemoved), tags)
	h.OnMetric("contextgc.tool_outputs.compressed", float64(result.Stats.ToolOutputsCompressed), tags)
	h.OnMetric("contextgc.duration_ms", float64(result.Duration.Milliseconds()), tags)

	if result.OriginalTokens > 0 {
		h.OnMetric("contextgc.reduction_pct", reductionPct(result), tags)
	}

	return nil
}

// Externalize records write-through outcomes
func (h *MetricsHooks) Externalize(ctx context.Context, sessionID, messageID string, brainID int, err error) error {
	if err != nil {
		h.OnMetric("contextgc.externalize.error", 1, nil)
	} else {
		h.OnMetric("contextgc.externalize.success", 1, nil)
	}
	return nil
}

func reductionPct(result *compaction.Result) float64 {
	if result.OriginalTokens <= 0 {
		return 0
	}
	return float64(result.OriginalTokens-result.CompactedTokens) / float64(result.OriginalTokens) * 100
}
