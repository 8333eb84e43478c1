package core

import (
	"context"

	"github.com/magalia-labs/voicemesh/logging"
)

// Summarizer is implemented by shared user-data records that can render a
// compact textual snapshot of their state. The snapshot is injected as a
// system message when a role takes over the conversation, so the new role
// knows everything collected so far without replaying the full history.
type Summarizer interface {
	Summary() string
}

// RunContext carries the execution scope of a single conversational turn.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (SessionID, the active role's name)
//   - The session's shared user-data record (one instance per session,
//     mutated only by the tools of the active role)
//
// The record is exposed as `any` so the core stays independent of the
// application's data shape; tool implementations type-assert it back.
type RunContext struct {
	Context   context.Context
	SessionID string
	RoleName  string
	Data      any

	*loggerAdapter
}

// NewRunContext constructs a RunContext bound to a session and active role.
func NewRunContext(ctx context.Context, sessionID, roleName string, data any, logger logging.Logger) *RunContext {
	return &RunContext{
		Context:       ctx,
		SessionID:     sessionID,
		RoleName:      roleName,
		Data:          data,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// WithRole returns a copy of the context scoped to another active role. The
// shared data record and logger are carried over unchanged.
func (rc *RunContext) WithRole(roleName string) *RunContext {
	c := *rc
	c.RoleName = roleName
	return &c
}
