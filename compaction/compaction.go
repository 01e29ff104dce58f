package compaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/contextgc/types"
)

// Logger interface for compaction logging.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a no-op implementation of Logger.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// TierClassification is the tier assigned to one message for one cycle.
type TierClassification struct {
	Tier            types.Tier `json:"tier"`
	MessageIndex    int        `json:"message_index"`
	TurnAge         int        `json:"turn_age"`
	EstimatedTokens int        `json:"estimated_tokens"`
}

// Stats counts the edits of one Compress call.
type Stats struct {
	ToolOutputsCompressed int `json:"tool_outputs_compressed"`
	ThinkingBlocksRemoved int `json:"thinking_blocks_removed"`
	TextPartsCompressed   int `json:"text_parts_compressed"`
	SystemPartsRemoved    int `json:"system_parts_removed"`
	MessagesRemoved       int `json:"messages_removed"`
}

// Changed reports whether any edit was made.
func (s *Stats) Changed() bool {
	return *s != Stats{}
}

// Usage describes how full the context window is.
type Usage struct {
	// TotalTokens is the token count of the conversation.
	TotalTokens int

	// UsedAPI indicates whether the count came from the token counting API.
	UsedAPI bool

	// Ratio is TotalTokens over the model's context window, clamped to [0,1].
	Ratio float64

	// Zone is the pressure zone of Ratio.
	Zone PressureZone

	// NeedsCollection reports whether Ratio reached the trigger.
	NeedsCollection bool
}

// Result contains the outcome of one Collector cycle.
type Result struct {
	// CycleID identifies the cycle in logs and hooks.
	CycleID uuid.UUID

	// SessionID is the session that was collected.
	SessionID string

	// Zone is the pressure zone the budget was computed for.
	Zone PressureZone

	// Budget is the turn-age budget used for classification.
	Budget Budget

	// OriginalTokens is the token count before the cycle.
	OriginalTokens int

	// CompactedTokens is the estimated token count after the cycle.
	CompactedTokens int

	// TokensToFree is what the cycle set out to free.
	TokensToFree int

	// Tiers counts the messages classified into each tier.
	Tiers map[types.Tier]int

	// Stats counts the edits made.
	Stats Stats

	// Externalized is the number of messages written through to long-term memory.
	Externalized int

	// RecallHintInjected reports whether a recall hint was added.
	RecallHintInjected bool

	// PrefetchHintInjected reports whether a prefetch hint was added.
	PrefetchHintInjected bool

	// Duration is how long the cycle took.
	Duration time.Duration
}

// Hooks observes Collector cycles. A BeforeCollect error aborts the cycle.
type Hooks interface {
	TriggerBeforeCollect(ctx context.Context, sessionID string, usage *Usage) error
	TriggerAfterCollect(ctx context.Context, result *Result) error
	TriggerExternalize(ctx context.Context, sessionID, messageID string, brainID int, err error) error
}
