// Package marker encodes and parses the textual references that compressed
// output leaves behind for content externalized to long-term memory:
//
//	[brain#<id>: <description>]
//
// Everything that references memory must use this grammar so that relevance
// promotion and the recall hints can find it again.
package marker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Pattern matches one marker; group 1 is the id, group 2 the description.
var Pattern = regexp.MustCompile(`\[brain#(\d+):\s*([^\]]+)\]`)

var prefixPattern = regexp.MustCompile(`\[brain#\d+:`)

// Marker is a parsed brain reference.
type Marker struct {
	BrainID     int
	Description string
}

// Create renders a marker for id and description.
func Create(brainID int, description string) string {
	return fmt.Sprintf("[brain#%d: %s]", brainID, description)
}

// Parse returns every well-formed marker in text, in order of appearance.
// Ids that do not fit an int are skipped.
func Parse(text string) []Marker {
	matches := Pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	markers := make([]Marker, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		markers = append(markers, Marker{
			BrainID:     id,
			Description: strings.TrimSpace(m[2]),
		})
	}
	return markers
}

// Has reports whether text contains something that looks like a marker.
func Has(text string) bool {
	return prefixPattern.MatchString(text)
}
