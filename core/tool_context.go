package core

import (
	"context"
	"fmt"

	"github.com/magalia-labs/voicemesh/logging"
)

// ToolContext provides a constrained, auditable surface for tool / function
// implementations invoked by a role. It accumulates a pending handoff signal
// without directly switching roles: the hosting session reads the signal
// after the tool returns and drives the router.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string
	transferTo     string
	valid          bool

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext and
// unique functionCallID.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		valid:          true,
		loggerAdapter:  newLoggerAdapter(runCtx.Logger()),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// RoleName returns the name of the role that invoked the tool.
func (tc *ToolContext) RoleName() string { return tc.runCtx.RoleName }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the function call ID associated with the tool
// invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// UserData returns the session's shared user-data record. Tool
// implementations type-assert it to the application's concrete type.
func (tc *ToolContext) UserData() any { return tc.runCtx.Data }

// TransferTo signals the hosting session to hand the conversation off to
// another role once the current tool batch completes. A later call within
// the same batch overrides an earlier one.
func (tc *ToolContext) TransferTo(roleName string) {
	tc.transferTo = roleName
	tc.LogInfo("tool.transfer.request", "from_role", tc.RoleName(), "to_role", roleName, "function_call_id", tc.functionCallID)
}

// TransferTarget returns the requested handoff target, if any.
func (tc *ToolContext) TransferTarget() (string, bool) {
	return tc.transferTo, tc.transferTo != ""
}

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if !tc.valid || tc.runCtx == nil || tc.runCtx.SessionID == "" || tc.functionCallID == "" {
		return fmt.Errorf("invalid ToolContext")
	}
	return nil
}

// IsValid reports whether Validate would succeed (fast path).
func (tc *ToolContext) IsValid() bool {
	return tc.valid && tc.runCtx != nil && tc.runCtx.SessionID != "" && tc.functionCallID != ""
}

// InternalRunContext returns the internal run context.
func (tc *ToolContext) InternalRunContext() *RunContext { return tc.runCtx }
