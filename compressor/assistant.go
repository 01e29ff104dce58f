package compressor

import (
	"github.com/youssefsiam38/contextgc/marker"
	"github.com/youssefsiam38/contextgc/tokens"
	"github.com/youssefsiam38/contextgc/types"
)

const (
	// ColdTextMaxChars is how much of a long assistant text survives cold tier.
	ColdTextMaxChars = 200

	// ColdTextMinTokens is the size at which assistant text becomes eligible for truncation.
	ColdTextMinTokens = 100
)

// AssistantModifications drops hidden reasoning at warm tier and deeper, and
// at cold tier truncates every text part of ColdTextMinTokens or more.
func AssistantModifications(parts []types.Part, tier types.Tier, brain types.BrainRef) []Modification {
	if tier == types.TierHot {
		return nil
	}

	var mods []Modification
	for i := range parts {
		part := &parts[i]

		if part.Type.IsThinking() {
			mods = append(mods, Modification{PartIndex: i, Action: ActionRemove})
			continue
		}

		if part.Type != types.PartTypeText || tier != types.TierCold {
			continue
		}

		text := part.Text
		if text == "" {
			text = part.Thinking
		}
		if tokens.Estimate(text) < ColdTextMinTokens {
			continue
		}

		mods = append(mods, Modification{
			PartIndex: i,
			Action:    ActionReplace,
			NewText:   truncateText(text, ColdTextMaxChars, brain),
		})
	}
	return mods
}

func truncateText(text string, maxChars int, brain types.BrainRef) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	out := string(runes[:maxChars]) + "..."
	if brain.Valid {
		out += " " + marker.Create(brain.ID, "full response")
	}
	return out
}
