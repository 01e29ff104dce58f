// Package tokens provides the deterministic size heuristic used to decide
// what is small enough to keep.
package tokens

import (
	"unicode/utf8"

	"github.com/youssefsiam38/contextgc/types"
)

// CharsPerToken is the number of characters counted as one token.
const CharsPerToken = 4

// Estimate approximates the token count of text as ceil(chars / 4).
// Characters are counted as runes so multi-byte text is not overcounted.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// EstimateParts sums, for each part, the estimate of its text, or else its
// tool output, or else its thinking. Classification and compaction use this
// measure to compute the tokens freed by a rewrite.
func EstimateParts(parts []types.Part) int {
	total := 0
	for i := range parts {
		p := &parts[i]
		switch {
		case p.Text != "":
			total += Estimate(p.Text)
		case p.Output() != "":
			total += Estimate(p.Output())
		case p.Thinking != "":
			total += Estimate(p.Thinking)
		}
	}
	return total
}

// EstimateMessage sums, for each part, the estimate of the first non-empty of
// text, thinking, tool output, tool input and tool name. It is the broader
// measure used when approximating context-window usage.
func EstimateMessage(parts []types.Part) int {
	total := 0
	for i := range parts {
		total += Estimate(partText(&parts[i]))
	}
	return total
}

func partText(p *types.Part) string {
	if p.Text != "" {
		return p.Text
	}
	if p.Thinking != "" {
		return p.Thinking
	}
	if p.State != nil {
		if p.State.Output != "" {
			return p.State.Output
		}
		if len(p.State.Input) > 0 {
			return string(p.State.Input)
		}
	}
	return p.Tool
}

// EstimateMessages sums EstimateMessage over a conversation.
func EstimateMessages(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += EstimateMessage(msg.Parts)
	}
	return total
}
