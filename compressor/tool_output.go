package compressor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/youssefsiam38/contextgc/marker"
	"github.com/youssefsiam38/contextgc/types"
)

// Key-line patterns. A line matching any of them survives warm compression.
var (
	ErrorLinePattern         = regexp.MustCompile(`(?:error|Error|ERROR|ERR!|FAIL|panic|exception|Exception|TypeError|ReferenceError|SyntaxError)`)
	PathLinePattern          = regexp.MustCompile(`(?:/[\w.-]+){2,}`)
	FunctionSignaturePattern = regexp.MustCompile(`(?:function\s+\w+|(?:export\s+)?(?:const|let|var)\s+\w+\s*=\s*(?:async\s+)?(?:\(|function)|(?:async\s+)?(?:def|class)\s+\w+)`)
	StatusLinePattern        = regexp.MustCompile(`(?:✓|✗|PASS|FAIL|warn|WARN|deprecated|TODO|FIXME|BREAKING)`)

	KeyLinePatterns = []*regexp.Regexp{
		ErrorLinePattern,
		PathLinePattern,
		FunctionSignaturePattern,
		StatusLinePattern,
	}
)

const (
	// MaxWarmLines caps the key lines kept at warm tier.
	MaxWarmLines = 5

	// FallbackLines is how many leading non-blank lines are kept when no key line matches.
	FallbackLines = 3

	// MaxInlineSummaryChars is the output length under which a cold summary inlines the output.
	MaxInlineSummaryChars = 120

	// DefaultToolName names tool parts that carry no tool name.
	DefaultToolName = "unknown-tool"
)

// ToolOutputResult is a compressed tool output.
type ToolOutputResult struct {
	Compressed     string
	OriginalLength int
	ExtractedLines int
}

// IsKeyLine reports whether line matches any key-line pattern.
func IsKeyLine(line string) bool {
	for _, p := range KeyLinePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// ExtractKeyLines returns up to maxLines trimmed key lines of output,
// skipping blank lines. When none match it falls back to the first
// FallbackLines non-blank lines.
func ExtractKeyLines(output string, maxLines int) []string {
	lines := strings.Split(output, "\n")
	keyLines := make([]string, 0, maxLines)

	for _, line := range lines {
		if len(keyLines) >= maxLines {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if IsKeyLine(trimmed) {
			keyLines = append(keyLines, trimmed)
		}
	}

	if len(keyLines) > 0 {
		return keyLines
	}

	for _, line := range lines {
		if len(keyLines) >= FallbackLines {
			break
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			keyLines = append(keyLines, trimmed)
		}
	}
	return keyLines
}

// Summarize returns the one-line cold summary of a tool output.
func Summarize(toolName, output string) string {
	chars := utf8.RuneCountInString(output)
	if chars < MaxInlineSummaryChars {
		return fmt.Sprintf("%s: %s", toolName, strings.TrimSpace(output))
	}
	lineCount := strings.Count(output, "\n") + 1
	return fmt.Sprintf("%s (%d lines, %d chars)", toolName, lineCount, chars)
}

// CompressToolOutput rewrites one tool output for tier. It returns false at
// hot tier, where nothing changes.
func CompressToolOutput(output, toolName string, tier types.Tier, brain types.BrainRef) (ToolOutputResult, bool) {
	if tier == types.TierHot {
		return ToolOutputResult{}, false
	}
	if toolName == "" {
		toolName = DefaultToolName
	}

	originalLength := utf8.RuneCountInString(output)

	if tier == types.TierWarm {
		keyLines := ExtractKeyLines(output, MaxWarmLines)
		totalLines := strings.Count(output, "\n") + 1
		remaining := totalLines - len(keyLines)

		brainRef := ""
		if brain.Valid {
			brainRef = " " + marker.Create(brain.ID, toolName)
		}

		var suffix string
		switch {
		case remaining > 0:
			suffix = fmt.Sprintf("\n... [%d more lines%s]", remaining, brainRef)
		case brainRef != "":
			suffix = "\n" + brainRef
		}

		return ToolOutputResult{
			Compressed:     strings.Join(keyLines, "\n") + suffix,
			OriginalLength: originalLength,
			ExtractedLines: len(keyLines),
		}, true
	}

	summary := Summarize(toolName, output)
	compressed := fmt.Sprintf("[compressed: %s]", summary)
	if brain.Valid {
		compressed = marker.Create(brain.ID, summary)
	}

	return ToolOutputResult{
		Compressed:     compressed,
		OriginalLength: originalLength,
	}, true
}

// ToolOutputModifications returns a replace instruction for every tool part
// with a non-empty output.
func ToolOutputModifications(parts []types.Part, tier types.Tier, brain types.BrainRef) []Modification {
	if tier == types.TierHot {
		return nil
	}

	var mods []Modification
	for i := range parts {
		part := &parts[i]
		if !part.IsTool() || part.Output() == "" {
			continue
		}
		result, ok := CompressToolOutput(part.Output(), part.Tool, tier, brain)
		if !ok {
			continue
		}
		mods = append(mods, Modification{
			PartIndex: i,
			Action:    ActionReplace,
			NewText:   result.Compressed,
		})
	}
	return mods
}
