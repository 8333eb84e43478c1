// Package model defines the normalized request/response contract between the
// session layer and the language model providers, plus a MockModel for tests.
package model

import (
	"context"
	"fmt"

	"github.com/magalia-labs/voicemesh/core"
)

// Tool choice values accepted by Request.ToolChoice.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by the session layer.
// Instructions carry the active role's system prompt; Items is the role's
// chat history in chronological order. ToolChoice "none" suppresses tool
// invocation for the turn (used for the first reply after a handoff).
type Request struct {
	Instructions string           `json:"instructions"`
	Items        []core.Item      `json:"items"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	ToolChoice   string           `json:"tool_choice,omitempty"` // "", "auto" or "none"
	Stream       bool             `json:"stream,omitempty"`
}

// ToolsEnabled reports whether the request permits tool invocation.
func (r Request) ToolsEnabled() bool {
	return len(r.Tools) > 0 && r.ToolChoice != ToolChoiceNone
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. Partial chunks
// carry text deltas; the final chunk carries the accumulated text plus any
// tool calls the model requested.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"`
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by sessions to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Canned responses are matched against the text of the newest message item;
// tool call scripts are matched the same way and consumed once in order.
type MockModel struct {
	info      Info
	responses map[string]string
	toolCalls map[string][]ToolCall
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
		toolCalls: make(map[string][]ToolCall),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// AddToolCall registers a scripted tool call emitted when the newest message
// matches the prompt and the request permits tools. Each registration is
// consumed once so a follow-up turn for the same prompt falls through to the
// canned text response.
func (m *MockModel) AddToolCall(prompt string, call ToolCall) {
	m.toolCalls[prompt] = append(m.toolCalls[prompt], call)
}

// Generate implements Model; emits optional streaming char chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		inputText := lastMessageText(req.Items)

		if req.ToolsEnabled() {
			if calls, ok := m.toolCalls[inputText]; ok && len(calls) > 0 {
				call := calls[0]
				m.toolCalls[inputText] = calls[1:]
				respCh <- Response{
					Partial:      false,
					ToolCalls:    []ToolCall{call},
					FinishReason: "tool_calls",
				}
				return
			}
		}

		full := m.responses[inputText]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		respCh <- Response{
			Partial:      false,
			Text:         full,
			FinishReason: "stop",
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

// lastMessageText returns the text of the newest non-system message item,
// skipping trailing function call records.
func lastMessageText(items []core.Item) string {
	for i := len(items) - 1; i >= 0; i-- {
		if msg, ok := items[i].(core.Message); ok && msg.Role != core.RoleSystem {
			return msg.Text
		}
	}
	return ""
}
