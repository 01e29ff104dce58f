// Package convert translates between Anthropic SDK message params and the
// engine's message model.
//
// A tool_use block becomes a tool part of the assistant message and its
// tool_result becomes a tool part of the following user message. Both carry
// the tool_use ID as CallID, so the two halves form an atomic tool pair.
package convert

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/youssefsiam38/contextgc/types"
)

// FromAnthropic converts API message params into messages of sessionID.
// Every message gets a fresh ID; keep the returned messages across cycles
// rather than converting again, or compression state will not carry over.
func FromAnthropic(sessionID string, params []anthropic.MessageParam) []*types.Message {
	messages := make([]*types.Message, 0, len(params))
	toolNames := make(map[string]string)

	for _, param := range params {
		msg := &types.Message{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Role:      types.Role(param.Role),
			Parts:     make([]types.Part, 0, len(param.Content)),
		}

		for _, block := range param.Content {
			part, ok := fromContentBlock(block, toolNames)
			if ok {
				msg.Parts = append(msg.Parts, part)
			}
		}

		messages = append(messages, msg)
	}

	return messages
}

// fromContentBlock converts a single content block
func fromContentBlock(block anthropic.ContentBlockParamUnion, toolNames map[string]string) (types.Part, bool) {
	switch {
	case block.OfText != nil:
		return types.Part{Type: types.PartTypeText, Text: block.OfText.Text}, true

	case block.OfThinking != nil:
		return types.Part{Type: types.PartTypeThinking, Thinking: block.OfThinking.Thinking}, true

	case block.OfRedactedThinking != nil:
		return types.Part{Type: types.PartTypeRedactedThinking}, true

	case block.OfToolUse != nil:
		use := block.OfToolUse
		toolNames[use.ID] = use.Name

		var input json.RawMessage
		if use.Input != nil {
			if raw, err := json.Marshal(use.Input); err == nil {
				input = raw
			}
		}
		return types.Part{
			Type:   types.PartTypeTool,
			Tool:   use.Name,
			CallID: use.ID,
			State: &types.ToolState{
				Status: types.ToolStatusPending,
				Input:  input,
			},
		}, true

	case block.OfToolResult != nil:
		result := block.OfToolResult

		status := types.ToolStatusCompleted
		if result.IsError.Value {
			status = types.ToolStatusError
		}
		return types.Part{
			Type:   types.PartTypeTool,
			Tool:   toolNames[result.ToolUseID],
			CallID: result.ToolUseID,
			State: &types.ToolState{
				Status: status,
				Output: toolResultText(result.Content),
			},
		}, true
	}

	// Images, documents and server tool blocks carry nothing the engine compresses
	return types.Part{}, false
}

func toolResultText(content []anthropic.ToolResultBlockParamContentUnion) string {
	texts := make([]string, 0, len(content))
	for _, c := range content {
		if c.OfText != nil {
			texts = append(texts, c.OfText.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ToAnthropic converts messages to API message params.
//
// System messages are skipped (the API takes them separately). Tool parts of
// assistant messages become tool_use blocks and tool parts of user messages
// become tool_result blocks. When an assistant tool part carries its own
// output, the matching tool_result is emitted at the start of the next user
// message, or in a user message of its own when none follows.
// Reasoning parts are emitted as text, since their signatures are not kept.
func ToAnthropic(messages []*types.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	var pending []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pending) > 0 {
			params = append(params, anthropic.NewUserMessage(pending...))
			pending = nil
		}
	}

	for _, msg := range messages {
		// Skip system messages (handled separately)
		if msg.Role == types.RoleSystem {
			continue
		}

		content := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts)+len(pending))

		if msg.Role == types.RoleAssistant {
			flush()
		} else {
			content = append(content, pending...)
			pending = nil
		}

		for i := range msg.Parts {
			part := &msg.Parts[i]

			switch {
			case part.IsTool() && msg.Role == types.RoleAssistant:
				content = append(content, anthropic.NewToolUseBlock(part.CallID, toolInput(part), part.Tool))
				if out := part.Output(); out != "" {
					pending = append(pending, anthropic.NewToolResultBlock(part.CallID, out, isToolError(part)))
				}

			case part.IsTool():
				content = append(content, anthropic.NewToolResultBlock(part.CallID, part.Output(), isToolError(part)))

			case part.Type == types.PartTypeRedactedThinking:
				// Nothing to send without the encrypted payload

			default:
				text := part.Text
				if text == "" {
					text = part.Thinking
				}
				if text != "" {
					content = append(content, anthropic.NewTextBlock(text))
				}
			}
		}

		if len(content) == 0 {
			continue
		}

		params = append(params, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: content,
		})
	}
	flush()

	return params
}

// toolInput decodes the stored input. The API requires an object, never null.
func toolInput(part *types.Part) any {
	var input any
	if part.State != nil && len(part.State.Input) > 0 {
		_ = json.Unmarshal(part.State.Input, &input)
	}
	if input == nil {
		input = map[string]any{}
	}
	return input
}

func isToolError(part *types.Part) bool {
	return part.State != nil && part.State.Status == types.ToolStatusError
}
