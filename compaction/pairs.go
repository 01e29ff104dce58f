package compaction

import (
	"sort"

	"github.com/youssefsiam38/contextgc/types"
)

// PartLocation addresses one part of one message.
type PartLocation struct {
	MessageIndex int
	PartIndex    int
}

// ToolCallMap maps a tool call ID to every part location it appears in.
// A call ID with two or more locations is a tool pair and must be
// compressed or removed atomically.
type ToolCallMap map[string][]PartLocation

// BuildToolCallMap scans every tool part of messages. Parts without a call ID
// are not indexed.
func BuildToolCallMap(messages []*types.Message) ToolCallMap {
	callMap := make(ToolCallMap)

	for mi, msg := range messages {
		for pi := range msg.Parts {
			part := &msg.Parts[pi]
			if !part.IsTool() || part.CallID == "" {
				continue
			}
			callMap[part.CallID] = append(callMap[part.CallID], PartLocation{MessageIndex: mi, PartIndex: pi})
		}
	}

	return callMap
}

// Pairs returns the call IDs that appear in two or more locations, sorted.
func (m ToolCallMap) Pairs() []string {
	var ids []string
	for id, locations := range m {
		if len(locations) >= 2 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ExpandAtomic adds to set every message that shares a tool pair with a
// message already in it. Expansion repeats until nothing changes, so groups
// chained through a shared message end up together. The input set is not
// modified.
func (m ToolCallMap) ExpandAtomic(set map[int]struct{}) map[int]struct{} {
	expanded := make(map[int]struct{}, len(set))
	for idx := range set {
		expanded[idx] = struct{}{}
	}

	for changed := true; changed; {
		changed = false
		for _, locations := range m {
			if len(locations) < 2 || !anyIn(locations, expanded) {
				continue
			}
			for _, loc := range locations {
				if _, ok := expanded[loc.MessageIndex]; !ok {
					expanded[loc.MessageIndex] = struct{}{}
					changed = true
				}
			}
		}
	}

	return expanded
}

func anyIn(locations []PartLocation, set map[int]struct{}) bool {
	for _, loc := range locations {
		if _, ok := set[loc.MessageIndex]; ok {
			return true
		}
	}
	return false
}
