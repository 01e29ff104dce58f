package compressor

import (
	"regexp"

	"github.com/youssefsiam38/contextgc/tokens"
	"github.com/youssefsiam38/contextgc/types"
)

// KeepPatterns protect system text from removal regardless of size.
var KeepPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)constraint`),
	regexp.MustCompile(`NEVER\b`),
	regexp.MustCompile(`MUST\b`),
	regexp.MustCompile(`(?i)CRITICAL`),
	regexp.MustCompile(`(?i)bootstrap`),
	regexp.MustCompile(`(?i)identity`),
}

// SyntheticMaxTokens is the size above which synthetic text is removable at cold tier.
const SyntheticMaxTokens = 200

// IsProtectedText reports whether text matches a keep pattern.
func IsProtectedText(text string) bool {
	for _, p := range KeepPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// SystemModifications removes, from cold tier on, synthetic text parts larger
// than SyntheticMaxTokens that match no keep pattern.
func SystemModifications(parts []types.Part, tier types.Tier) []Modification {
	if tier < types.TierCold {
		return nil
	}

	var mods []Modification
	for i := range parts {
		part := &parts[i]
		if part.Type != types.PartTypeText {
			continue
		}
		if IsProtectedText(part.Text) {
			continue
		}
		if part.Synthetic && tokens.Estimate(part.Text) > SyntheticMaxTokens {
			mods = append(mods, Modification{PartIndex: i, Action: ActionRemove})
		}
	}
	return mods
}
