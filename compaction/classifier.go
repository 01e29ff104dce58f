package compaction

import (
	"context"

	"github.com/youssefsiam38/contextgc/tokens"
	"github.com/youssefsiam38/contextgc/types"
)

// Classify assigns every message a tier and turn age under budget, then
// promotes cold and gone messages that hot messages still reference.
// The result is in message order. An error is returned only when the
// brain-id lookup fails.
//
// Turn age is read off a scan from the last message toward the first that
// counts assistant messages: an assistant message's age is the number of
// assistant messages minus the count so far, including itself. Any other
// message takes the age of the nearest assistant message after it, or the
// assistant total when none follows.
func (e *Engine) Classify(ctx context.Context, messages []*types.Message, budget Budget) ([]TierClassification, error) {
	results := make([]TierClassification, len(messages))
	if len(messages) == 0 {
		return results, nil
	}

	totalAssistantTurns := 0
	for _, msg := range messages {
		if msg.Role == types.RoleAssistant {
			totalAssistantTurns++
		}
	}

	assistantTurnsSeen := 0
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role == types.RoleAssistant {
			assistantTurnsSeen++
		}

		turnAge := totalAssistantTurns
		if assistantTurnsSeen > 0 {
			turnAge = totalAssistantTurns - assistantTurnsSeen
		}

		results[i] = TierClassification{
			Tier:            tierFor(turnAge, budget),
			MessageIndex:    i,
			TurnAge:         turnAge,
			EstimatedTokens: tokens.EstimateParts(msg.Parts),
		}
	}

	if _, err := e.PromoteRelevant(ctx, messages, results); err != nil {
		return nil, err
	}
	return results, nil
}

// tierFor buckets a turn age. Ages in [WarmTurns, GoneTurns) are all cold.
func tierFor(turnAge int, budget Budget) types.Tier {
	switch {
	case turnAge < budget.HotTurns:
		return types.TierHot
	case turnAge < budget.WarmTurns:
		return types.TierWarm
	case turnAge < budget.GoneTurns:
		return types.TierCold
	default:
		return types.TierGone
	}
}

// CountTiers returns how many classifications fall into each tier.
func CountTiers(classifications []TierClassification) map[types.Tier]int {
	counts := make(map[types.Tier]int, 4)
	for _, c := range classifications {
		counts[c.Tier]++
	}
	return counts
}
