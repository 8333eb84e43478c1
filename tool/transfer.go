package tool

import (
	"fmt"

	"github.com/magalia-labs/voicemesh/core"
)

// TransferResult is the user-facing confirmation produced by a successful
// handoff tool. The model relays it to the caller while the session switches
// the active role.
func TransferResult(roleName string) string {
	return fmt.Sprintf("Transferring to %s.", roleName)
}

// transferTool signals an unconditional handoff to a fixed target role.
type transferTool struct {
	name        string
	description string
	target      string
}

// NewTransferTool constructs a tool that hands the conversation off to the
// named target role whenever the model invokes it. Conditional handoffs
// (guarded transitions) should wrap TransferTo in a FunctionTool instead.
func NewTransferTool(name, description, target string) Tool {
	return &transferTool{name: name, description: description, target: target}
}

func (t *transferTool) Name() string { return t.name }

func (t *transferTool) Description() string { return t.description }

func (t *transferTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *transferTool) Call(tc *core.ToolContext, _ map[string]any) (any, error) {
	tc.TransferTo(t.target)
	return TransferResult(t.target), nil
}
