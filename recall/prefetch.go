package recall

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/youssefsiam38/contextgc/marker"
	"github.com/youssefsiam38/contextgc/types"
)

const (
	// MinKeywordLength is the shortest word kept as a keyword.
	MinKeywordLength = 3

	// MinScore is the fraction of query keywords a description must match.
	MinScore = 0.4

	// MaxCandidates caps the entries listed in a prefetch hint.
	MaxCandidates = 5

	prefetchHeader = HintTag + " Relevant brain entries for your current question:"
	prefetchTag    = "Relevant brain entries for your current question"
)

var nonKeywordChars = regexp.MustCompile(`[^a-z0-9\s_-]`)

var stopWords = toSet(
	"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "shall",
	"should", "can", "could", "may", "might", "must", "and", "or", "but",
	"not", "no", "for", "from", "with", "this", "that", "these", "those",
	"it", "its", "of", "in", "on", "at", "to", "by", "as", "if", "so",
	"than", "too", "very", "just", "here", "there", "how", "what", "when",
	"where", "who", "which", "why", "all", "each", "every", "some", "any",
	"few", "more", "most", "other", "into", "through", "about", "me", "my",
	"you", "your", "we", "our", "they", "them", "their", "i", "he", "she",
	"his", "her", "up", "out", "also", "then", "now", "get", "got", "let",
	"use", "used", "using", "see", "look", "tell", "show",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Candidate is a marker whose description matches the current question.
type Candidate struct {
	BrainID     int
	Description string
	Score       float64
}

// ExtractKeywords lowercases text, drops punctuation other than '_' and '-',
// and returns the distinct words of MinKeywordLength or more that are not
// stop words, in order of first appearance.
func ExtractKeywords(text string) []string {
	cleaned := nonKeywordChars.ReplaceAllString(strings.ToLower(text), " ")

	seen := make(map[string]struct{})
	var keywords []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) < MinKeywordLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}

// score is the fraction of query keywords contained in, or containing, some
// description keyword.
func score(description, query []string) float64 {
	if len(query) == 0 || len(description) == 0 {
		return 0
	}

	matches := 0
	for _, q := range query {
		for _, d := range description {
			if strings.Contains(d, q) || strings.Contains(q, d) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(query))
}

// FindRelevant scores every distinct marker in messages against the text of
// the last user message and returns up to MaxCandidates scoring at least
// MinScore, best first. Ties keep marker order.
func FindRelevant(messages []*types.Message) []Candidate {
	last := lastUserMessage(messages)
	if last == nil {
		return nil
	}

	query := ExtractKeywords(userText(last))
	if len(query) == 0 {
		return nil
	}

	var candidates []Candidate
	for _, m := range collectMarkers(messages) {
		s := score(ExtractKeywords(m.Description), query)
		if s >= MinScore {
			candidates = append(candidates, Candidate{BrainID: m.BrainID, Description: m.Description, Score: s})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	return candidates
}

// BuildPrefetchHint renders candidates, or "" when there are none.
func BuildPrefetchHint(candidates []Candidate, command string) string {
	if len(candidates) == 0 {
		return ""
	}
	if command == "" {
		command = DefaultCommand
	}

	lines := make([]string, 0, len(candidates)+2)
	lines = append(lines, prefetchHeader)
	for _, c := range candidates {
		lines = append(lines, fmt.Sprintf("  - brain#%d: %s", c.BrainID, c.Description))
	}
	lines = append(lines, fmt.Sprintf("Recall with: %s <ID>", command))
	return strings.Join(lines, "\n")
}

// InjectPrefetchHint appends a prefetch hint naming DefaultCommand to the
// last user message. See (*Injector).InjectPrefetch.
func InjectPrefetchHint(messages []*types.Message) bool {
	return injectPrefetch(messages, DefaultCommand)
}

// InjectPrefetch appends a prefetch hint to the last user message when some
// marker is relevant to it and the message has no prefetch hint yet.
func (in *Injector) InjectPrefetch(messages []*types.Message) bool {
	return injectPrefetch(messages, in.command)
}

func injectPrefetch(messages []*types.Message, command string) bool {
	candidates := FindRelevant(messages)
	if len(candidates) == 0 {
		return false
	}

	last := lastUserMessage(messages)
	if last == nil || hasTextContaining(last, prefetchTag) {
		return false
	}

	last.Parts = append(last.Parts, types.Part{
		Type: types.PartTypeText,
		Text: BuildPrefetchHint(candidates, command),
	})
	return true
}

func collectMarkers(messages []*types.Message) []marker.Marker {
	seen := make(map[int]struct{})
	var out []marker.Marker

	for _, msg := range messages {
		for i := range msg.Parts {
			part := &msg.Parts[i]
			for _, text := range []string{part.Text, part.Output()} {
				if text == "" {
					continue
				}
				for _, m := range marker.Parse(text) {
					if _, ok := seen[m.BrainID]; ok {
						continue
					}
					seen[m.BrainID] = struct{}{}
					out = append(out, m)
				}
			}
		}
	}
	return out
}

func userText(msg *types.Message) string {
	var texts []string
	for i := range msg.Parts {
		part := &msg.Parts[i]
		if part.Type == types.PartTypeText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, " ")
}
