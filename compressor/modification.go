// Package compressor holds the per-role, per-tier rewrite policies.
//
// Each compressor is a pure function of the parts, the tier and an optional
// brain reference. It returns part-level edit instructions and never mutates
// its input; Apply performs the edits.
package compressor

import (
	"sort"

	"github.com/youssefsiam38/contextgc/types"
)

// Action is a part-level edit.
type Action string

const (
	// ActionRemove deletes the part.
	ActionRemove Action = "remove"

	// ActionReplace rewrites the part's content with NewText.
	// Tool parts have their output replaced, every other part its text.
	ActionReplace Action = "replace"
)

// Modification is one edit instruction against a part index.
type Modification struct {
	PartIndex int
	Action    Action
	NewText   string
}

// Apply performs mods against parts in descending part-index order, so that
// removals never shift the index of an edit still to be applied. It returns
// the resulting parts; the backing array of the input is reused.
// Modifications pointing outside parts are ignored.
func Apply(parts []types.Part, mods []Modification) []types.Part {
	if len(mods) == 0 {
		return parts
	}

	ordered := make([]Modification, len(mods))
	copy(ordered, mods)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PartIndex > ordered[j].PartIndex
	})

	for _, mod := range ordered {
		if mod.PartIndex < 0 || mod.PartIndex >= len(parts) {
			continue
		}
		switch mod.Action {
		case ActionRemove:
			parts = append(parts[:mod.PartIndex], parts[mod.PartIndex+1:]...)
		case ActionReplace:
			part := &parts[mod.PartIndex]
			if part.IsTool() && part.State != nil {
				part.State.Output = mod.NewText
			} else {
				part.Text = mod.NewText
			}
		}
	}
	return parts
}

// Count returns the number of mods with the given action.
func Count(mods []Modification, action Action) int {
	n := 0
	for _, mod := range mods {
		if mod.Action == action {
			n++
		}
	}
	return n
}
