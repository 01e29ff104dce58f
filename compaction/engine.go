package compaction

import (
	"context"
	"math"
	"sort"

	"github.com/youssefsiam38/contextgc/brainstore"
	"github.com/youssefsiam38/contextgc/cache"
	"github.com/youssefsiam38/contextgc/compressor"
	"github.com/youssefsiam38/contextgc/tokens"
	"github.com/youssefsiam38/contextgc/types"
)

// Unlimited is the token budget that compresses every eligible message.
const Unlimited = math.MaxInt

// TierCache records the deepest tier each message was compressed at.
// *cache.Store implements it.
type TierCache interface {
	IsCompressedAt(sessionID, messageID string, tier types.Tier) bool
	SetTier(sessionID, messageID string, tier types.Tier)
}

// Engine classifies and compresses conversations. It is stateless apart
// from its tier cache and safe for concurrent use.
type Engine struct {
	config *Config
	cache  TierCache
	lookup brainstore.Lookup
	logger Logger
}

// NewEngine creates an Engine. A nil config takes defaults, a nil cache
// gets a fresh in-memory one, and a nil lookup resolves no brain ids.
func NewEngine(config *Config, tierCache TierCache, lookup brainstore.Lookup, logger Logger) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if tierCache == nil {
		tierCache = cache.New()
	}
	if lookup == nil {
		lookup = noLookup{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		config: config,
		cache:  tierCache,
		lookup: lookup,
		logger: logger,
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Compress edits the parts of warm and cold messages in place and removes
// gone messages, stopping part edits once tokensToFree estimated tokens have
// been freed. Gone removals are not limited by the budget. The returned
// slice replaces messages; message pointers are shared with the input.
//
// Hot messages and messages already compressed at their tier are left
// alone, so a second call with the same classifications is a no-op.
//
// At most MaxGonePerCycle messages are removed. A tool-call pair that the
// cap would split is kept whole and left for a later cycle; a pair larger
// than the cap is never removed.
func (e *Engine) Compress(ctx context.Context, messages []*types.Message, classifications []TierClassification, tokensToFree int) ([]*types.Message, *Stats, error) {
	stats := &Stats{}
	budget := tokensToFree
	var gone []int

	for _, c := range classifications {
		if c.MessageIndex < 0 || c.MessageIndex >= len(messages) {
			continue
		}
		if c.Tier == types.TierHot {
			continue
		}
		if budget <= 0 && c.Tier != types.TierGone {
			continue
		}
		if c.Tier == types.TierGone {
			gone = append(gone, c.MessageIndex)
			continue
		}

		msg := messages[c.MessageIndex]
		if msg.HasIdentity() && e.cache.IsCompressedAt(msg.SessionID, msg.ID, c.Tier) {
			continue
		}

		brain, err := e.brainFor(ctx, msg)
		if err != nil {
			return messages, stats, err
		}

		before := tokens.EstimateParts(msg.Parts)
		switch msg.Role {
		case types.RoleAssistant:
			compressAssistant(msg, c.Tier, brain, stats)
		case types.RoleUser:
			compressUser(msg, c.Tier, brain, stats)
		}
		freed := before - tokens.EstimateParts(msg.Parts)

		if budget != Unlimited {
			budget -= freed
		}
		if freed > 0 && msg.HasIdentity() {
			e.cache.SetTier(msg.SessionID, msg.ID, c.Tier)
		}
		if freed != 0 {
			e.logger.Debug("compressed message",
				"message_index", c.MessageIndex,
				"tier", c.Tier.String(),
				"freed_tokens", freed,
			)
		}
	}

	if len(gone) == 0 {
		return messages, stats, nil
	}

	removals := e.safeRemovals(messages, gone)
	if len(removals) == 0 {
		return messages, stats, nil
	}

	stats.MessagesRemoved = len(removals)
	e.logger.Debug("removing gone messages",
		"requested", len(gone),
		"removed", len(removals),
	)
	return removeIndices(messages, removals), stats, nil
}

func compressAssistant(msg *types.Message, tier types.Tier, brain types.BrainRef, stats *Stats) {
	toolMods := compressor.ToolOutputModifications(msg.Parts, tier, brain)
	msg.Parts = compressor.Apply(msg.Parts, toolMods)
	stats.ToolOutputsCompressed += len(toolMods)

	mods := compressor.AssistantModifications(msg.Parts, tier, brain)
	msg.Parts = compressor.Apply(msg.Parts, mods)
	stats.ThinkingBlocksRemoved += compressor.Count(mods, compressor.ActionRemove)
	stats.TextPartsCompressed += compressor.Count(mods, compressor.ActionReplace)
}

func compressUser(msg *types.Message, tier types.Tier, brain types.BrainRef, stats *Stats) {
	toolMods := compressor.ToolOutputModifications(msg.Parts, tier, brain)
	msg.Parts = compressor.Apply(msg.Parts, toolMods)
	stats.ToolOutputsCompressed += len(toolMods)

	mods := compressor.SystemModifications(msg.Parts, tier)
	msg.Parts = compressor.Apply(msg.Parts, mods)
	stats.SystemPartsRemoved += compressor.Count(mods, compressor.ActionRemove)
}

func (e *Engine) brainFor(ctx context.Context, msg *types.Message) (types.BrainRef, error) {
	if !msg.HasIdentity() {
		return types.NoBrain, nil
	}
	id, ok, err := e.lookup.BrainID(ctx, msg.SessionID, msg.ID)
	if err != nil {
		return types.NoBrain, NewError("Compress", ErrBrainLookupFailed).
			WithSession(msg.SessionID).
			WithContext("message_id", msg.ID).
			WithCause(err)
	}
	if !ok {
		return types.NoBrain, nil
	}
	return types.Brain(id), nil
}

// safeRemovals turns the gone candidates into the ascending list of indices
// that may actually be removed. Tool-call pairs are removed whole or not at
// all, at most MaxGonePerCycle messages go, and when the conversation ends
// on a non-assistant message it must not end on an assistant one afterwards.
func (e *Engine) safeRemovals(messages []*types.Message, gone []int) []int {
	callMap := BuildToolCallMap(messages)

	set := make(map[int]struct{}, len(gone))
	for _, idx := range gone {
		set[idx] = struct{}{}
	}
	candidates := sortedIndices(callMap.ExpandAtomic(set))

	limit := e.config.MaxGonePerCycle
	if limit <= 0 {
		limit = DefaultMaxGonePerCycle
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	lastIsAssistant := len(messages) > 0 && messages[len(messages)-1].Role == types.RoleAssistant
	for {
		candidates = dropSplitPairs(callMap, candidates)
		if len(candidates) == 0 || lastIsAssistant {
			return candidates
		}
		if role, ok := lastSurvivingRole(messages, candidates); !ok || role != types.RoleAssistant {
			return candidates
		}
		candidates = candidates[:len(candidates)-1]
	}
}

// dropSplitPairs removes from candidates every message whose tool-call pair
// would only be partly removed.
func dropSplitPairs(callMap ToolCallMap, candidates []int) []int {
	set := make(map[int]struct{}, len(candidates))
	for _, idx := range candidates {
		set[idx] = struct{}{}
	}

	for changed := true; changed; {
		changed = false
		for _, locations := range callMap {
			if !anyIn(locations, set) || allIn(locations, set) {
				continue
			}
			for _, loc := range locations {
				if _, ok := set[loc.MessageIndex]; ok {
					delete(set, loc.MessageIndex)
					changed = true
				}
			}
		}
	}

	if len(set) == len(candidates) {
		return candidates
	}
	return sortedIndices(set)
}

func allIn(locations []PartLocation, set map[int]struct{}) bool {
	for _, loc := range locations {
		if _, ok := set[loc.MessageIndex]; !ok {
			return false
		}
	}
	return true
}

func lastSurvivingRole(messages []*types.Message, removals []int) (types.Role, bool) {
	removed := make(map[int]struct{}, len(removals))
	for _, idx := range removals {
		removed[idx] = struct{}{}
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if _, ok := removed[i]; !ok {
			return messages[i].Role, true
		}
	}
	return "", false
}

func sortedIndices(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// removeIndices returns messages without the given ascending indices.
func removeIndices(messages []*types.Message, removals []int) []*types.Message {
	out := make([]*types.Message, 0, len(messages)-len(removals))
	next := 0
	for i, msg := range messages {
		if next < len(removals) && removals[next] == i {
			next++
			continue
		}
		out = append(out, msg)
	}
	return out
}

type noLookup struct{}

func (noLookup) BrainID(context.Context, string, string) (int, bool, error) {
	return 0, false, nil
}
