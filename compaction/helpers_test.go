package compaction

import (
	"fmt"

	"github.com/youssefsiam38/contextgc/types"
)

const testSession = "s1"

func newMessage(id string, role types.Role, parts ...types.Part) *types.Message {
	return &types.Message{ID: id, SessionID: testSession, Role: role, Parts: parts}
}

func textPart(text string) types.Part {
	return types.Part{Type: types.PartTypeText, Text: text}
}

func thinkingPart(text string) types.Part {
	return types.Part{Type: types.PartTypeThinking, Text: text}
}

func toolPart(tool, callID, output string) types.Part {
	return types.Part{
		Type:   types.PartTypeTool,
		Tool:   tool,
		CallID: callID,
		State:  &types.ToolState{Status: types.ToolStatusCompleted, Output: output},
	}
}

// assistantTurns returns n assistant messages with ids msg_1..msg_n.
func assistantTurns(n int, parts func(i int) []types.Part) []*types.Message {
	messages := make([]*types.Message, n)
	for i := range messages {
		var p []types.Part
		if parts != nil {
			p = parts(i)
		} else {
			p = []types.Part{textPart(fmt.Sprintf("turn %d", i))}
		}
		messages[i] = newMessage(fmt.Sprintf("msg_%d", i+1), types.RoleAssistant, p...)
	}
	return messages
}

func classifications(tiers ...types.Tier) []TierClassification {
	out := make([]TierClassification, len(tiers))
	for i, tier := range tiers {
		out[i] = TierClassification{Tier: tier, MessageIndex: i}
	}
	return out
}
