// Package recall tells the model how to get compressed content back.
//
// Once markers of the form [brain#ID: description] appear in a
// conversation, the Injector appends a one-time hint to the last user
// message naming the command that recalls a marker. The prefetch matcher
// goes further and lists the markers whose descriptions match what the user
// is currently asking about.
package recall

import (
	"fmt"
	"strings"
	"sync"

	"github.com/youssefsiam38/contextgc/marker"
	"github.com/youssefsiam38/contextgc/types"
)

// DefaultCommand is the recall command named in hints.
const DefaultCommand = "nous-memory get"

// HintTag prefixes every hint this package writes.
const HintTag = "[context-gc]"

// HintText returns the recall hint for command.
func HintText(command string) string {
	if command == "" {
		command = DefaultCommand
	}
	return strings.Join([]string{
		HintTag + " Some earlier messages were compressed. Data replaced with [brain#ID: description] markers.",
		fmt.Sprintf("To recall the full content of any marker, run: %s <ID>", command),
		fmt.Sprintf("Example: %s 42", command),
	}, "\n")
}

// Injector adds recall hints at most once per session.
type Injector struct {
	command string

	mu       sync.Mutex
	injected map[string]struct{}
}

// NewInjector creates an Injector whose hints name command. An empty command
// means DefaultCommand.
func NewInjector(command string) *Injector {
	if command == "" {
		command = DefaultCommand
	}
	return &Injector{
		command:  command,
		injected: make(map[string]struct{}),
	}
}

// Command returns the recall command named in hints.
func (in *Injector) Command() string {
	return in.command
}

// Inject appends the recall hint as a new text part of the last user message
// when the conversation carries at least one marker. It returns false when
// there is no marker, no user message, the session already got its hint, or
// the last user message already holds a hint. An empty sessionID disables
// the once-per-session check.
func (in *Injector) Inject(messages []*types.Message, sessionID string) bool {
	if len(CollectBrainIDs(messages)) == 0 {
		return false
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if sessionID != "" {
		if _, ok := in.injected[sessionID]; ok {
			return false
		}
	}

	last := lastUserMessage(messages)
	if last == nil {
		return false
	}

	if sessionID != "" {
		in.injected[sessionID] = struct{}{}
	}
	if hasTextContaining(last, HintTag) {
		return false
	}

	last.Parts = append(last.Parts, types.Part{Type: types.PartTypeText, Text: HintText(in.command)})
	return true
}

// Injected reports whether sessionID already got its hint.
func (in *Injector) Injected(sessionID string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	_, ok := in.injected[sessionID]
	return ok
}

// ClearSession forgets that sessionID got its hint.
func (in *Injector) ClearSession(sessionID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.injected, sessionID)
}

// CollectBrainIDs returns the distinct brain ids referenced by text parts
// and tool outputs, in order of first appearance.
func CollectBrainIDs(messages []*types.Message) []int {
	seen := make(map[int]struct{})
	var ids []int

	add := func(text string) {
		for _, m := range marker.Parse(text) {
			if _, ok := seen[m.BrainID]; ok {
				continue
			}
			seen[m.BrainID] = struct{}{}
			ids = append(ids, m.BrainID)
		}
	}

	for _, msg := range messages {
		for i := range msg.Parts {
			part := &msg.Parts[i]
			switch {
			case part.IsTool():
				add(part.Output())
			case part.Type == types.PartTypeText:
				add(part.Text)
			}
		}
	}
	return ids
}

func lastUserMessage(messages []*types.Message) *types.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i]
		}
	}
	return nil
}

func hasTextContaining(msg *types.Message, substr string) bool {
	for i := range msg.Parts {
		part := &msg.Parts[i]
		if part.Type == types.PartTypeText && strings.Contains(part.Text, substr) {
			return true
		}
	}
	return false
}
