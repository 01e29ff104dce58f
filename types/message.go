package types

import (
	"encoding/json"
)

// Role represents the message role
type Role string

const (
	// RoleUser represents a user message
	RoleUser Role = "user"

	// RoleAssistant represents an assistant message
	RoleAssistant Role = "assistant"

	// RoleSystem represents a system message
	RoleSystem Role = "system"
)

// Message is one entry of a conversation buffer.
// The buffer is owned by the caller; compaction edits Parts in place and
// may drop whole messages from the list.
type Message struct {
	ID        string `json:"id,omitempty"`
	SessionID string `json:"sessionID,omitempty"`
	Role      Role   `json:"role,omitempty"`
	Parts     []Part `json:"parts"`
}

// HasIdentity reports whether the message carries both a session and a message ID.
// Messages without identity never touch the compression cache or the brain store.
func (m *Message) HasIdentity() bool {
	return m.SessionID != "" && m.ID != ""
}

// PartType represents the type of a message part
type PartType string

const (
	// PartTypeText represents visible text
	PartTypeText PartType = "text"

	// PartTypeThinking represents hidden model reasoning
	PartTypeThinking PartType = "thinking"

	// PartTypeRedactedThinking represents encrypted model reasoning
	PartTypeRedactedThinking PartType = "redacted_thinking"

	// PartTypeReasoning represents hidden reasoning from non-Anthropic providers
	PartTypeReasoning PartType = "reasoning"

	// PartTypeTool represents a tool invocation and/or its result
	PartTypeTool PartType = "tool"
)

// IsThinking reports whether parts of this type carry hidden reasoning.
func (t PartType) IsThinking() bool {
	switch t {
	case PartTypeThinking, PartTypeRedactedThinking, PartTypeReasoning:
		return true
	}
	return false
}

// Part is a tagged piece of message content.
// Parts have no identity beyond their position within Message.Parts.
type Part struct {
	Type PartType `json:"type"`

	// Text content (text parts, and thinking parts that store their body as text)
	Text string `json:"text,omitempty"`

	// Thinking content
	Thinking string `json:"thinking,omitempty"`

	// Tool content
	Tool   string     `json:"tool,omitempty"`
	CallID string     `json:"callID,omitempty"`
	State  *ToolState `json:"state,omitempty"`

	// Synthetic marks text injected by the host rather than typed by a person.
	Synthetic bool `json:"synthetic,omitempty"`
}

// IsTool reports whether the part is a tool part.
func (p *Part) IsTool() bool {
	return p.Type == PartTypeTool
}

// Output returns the tool output, or "" when the part has no tool state.
func (p *Part) Output() string {
	if p.State == nil {
		return ""
	}
	return p.State.Output
}

// ToolState holds the lifecycle of a tool invocation
type ToolState struct {
	Status string          `json:"status,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output string          `json:"output,omitempty"`
}

// Tool call statuses
const (
	ToolStatusPending   = "pending"
	ToolStatusRunning   = "running"
	ToolStatusCompleted = "completed"
	ToolStatusError     = "error"
)

// BrainRef is an optional reference to an entry in long-term memory.
type BrainRef struct {
	ID    int
	Valid bool
}

// NoBrain is the zero BrainRef.
var NoBrain = BrainRef{}

// Brain returns a valid BrainRef for id.
func Brain(id int) BrainRef {
	return BrainRef{ID: id, Valid: true}
}
