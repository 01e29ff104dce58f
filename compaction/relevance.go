package compaction

import (
	"context"

	"github.com/youssefsiam38/contextgc/brainstore"
	"github.com/youssefsiam38/contextgc/marker"
	"github.com/youssefsiam38/contextgc/types"
)

// PromoteRelevant rewrites to warm every cold or gone classification whose
// message a hot message still references, either through a brain marker
// resolving to that message or through a shared tool call ID. It never
// promotes to hot and never demotes. It returns the number of promotions.
func (e *Engine) PromoteRelevant(ctx context.Context, messages []*types.Message, classifications []TierClassification) (int, error) {
	hot := make(map[int]struct{})
	for _, c := range classifications {
		if c.Tier == types.TierHot && c.MessageIndex >= 0 && c.MessageIndex < len(messages) {
			hot[c.MessageIndex] = struct{}{}
		}
	}
	if len(hot) == 0 {
		return 0, nil
	}

	referenced := make(map[int]struct{})
	if err := e.collectBrainReferences(ctx, messages, hot, referenced); err != nil {
		return 0, err
	}
	collectToolCallReferences(messages, hot, referenced)

	promoted := 0
	for i := range classifications {
		c := &classifications[i]
		if _, ok := referenced[c.MessageIndex]; !ok || c.Tier < types.TierCold {
			continue
		}
		e.logger.Debug("promoting referenced message",
			"message_index", c.MessageIndex,
			"from", c.Tier.String(),
			"to", types.TierWarm.String(),
		)
		c.Tier = types.TierWarm
		promoted++
	}

	return promoted, nil
}

// collectBrainReferences marks the non-hot messages whose brain id appears
// in a marker inside a hot message.
func (e *Engine) collectBrainReferences(ctx context.Context, messages []*types.Message, hot, referenced map[int]struct{}) error {
	var wanted []int
	for idx := range hot {
		for pi := range messages[idx].Parts {
			part := &messages[idx].Parts[pi]
			text := part.Text
			if text == "" {
				text = part.Output()
			}
			for _, m := range marker.Parse(text) {
				wanted = append(wanted, m.BrainID)
			}
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	brainToIndex, err := e.brainIndex(ctx, messages)
	if err != nil {
		return err
	}

	for _, id := range wanted {
		target, ok := brainToIndex[id]
		if !ok {
			continue
		}
		if _, isHot := hot[target]; !isHot {
			referenced[target] = struct{}{}
		}
	}
	return nil
}

// brainIndex maps each recorded brain id to the index of the message that
// produced it. When two messages share an id the later one wins.
func (e *Engine) brainIndex(ctx context.Context, messages []*types.Message) (map[int]int, error) {
	bySession := make(map[string][]string)
	for _, msg := range messages {
		if msg.HasIdentity() {
			bySession[msg.SessionID] = append(bySession[msg.SessionID], msg.ID)
		}
	}

	ids := make(map[string]map[string]int, len(bySession))
	for sessionID, messageIDs := range bySession {
		found, err := brainstore.LookupMany(ctx, e.lookup, sessionID, messageIDs)
		if err != nil {
			return nil, NewError("PromoteRelevant", ErrBrainLookupFailed).
				WithSession(sessionID).
				WithCause(err)
		}
		ids[sessionID] = found
	}

	index := make(map[int]int)
	for i, msg := range messages {
		if !msg.HasIdentity() {
			continue
		}
		if id, ok := ids[msg.SessionID][msg.ID]; ok {
			index[id] = i
		}
	}
	return index, nil
}

// collectToolCallReferences marks the non-hot messages sharing a tool call
// ID with a hot message.
func collectToolCallReferences(messages []*types.Message, hot, referenced map[int]struct{}) {
	hotCallIDs := make(map[string]struct{})
	for idx := range hot {
		for pi := range messages[idx].Parts {
			part := &messages[idx].Parts[pi]
			if part.IsTool() && part.CallID != "" {
				hotCallIDs[part.CallID] = struct{}{}
			}
		}
	}
	if len(hotCallIDs) == 0 {
		return
	}

	for i, msg := range messages {
		if _, isHot := hot[i]; isHot {
			continue
		}
		for pi := range msg.Parts {
			part := &msg.Parts[pi]
			if !part.IsTool() || part.CallID == "" {
				continue
			}
			if _, ok := hotCallIDs[part.CallID]; ok {
				referenced[i] = struct{}{}
			}
		}
	}
}
