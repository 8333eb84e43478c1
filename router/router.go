// Package router implements multi-role conversation routing: a fixed
// registry of named roles, explicit tool-triggered handoffs between them,
// and the history carry-over applied when a role takes the floor. Roles
// share one user-data record per session; the router only moves the
// conversation, it never touches the record itself.
package router

import (
	"errors"
	"fmt"
	"sync"

	"github.com/magalia-labs/voicemesh/core"
	"github.com/magalia-labs/voicemesh/logging"
	"github.com/magalia-labs/voicemesh/model"
	"github.com/magalia-labs/voicemesh/tool"
	"github.com/magalia-labs/voicemesh/voice"
)

// ErrUnknownRole is returned when a handoff names a role outside the
// registry. Registry construction fails with it too, so a misconfigured
// transition surfaces at startup instead of mid-conversation.
var ErrUnknownRole = errors.New("unknown role")

// RoleOptions configure a Role instance.
//
// Use functional options with NewRole to override defaults.
type RoleOptions struct {
	// Model overrides the session default for this role.
	Model model.Model

	// Voice selects the synthesis profile used while this role speaks.
	Voice *voice.Profile

	// Tools exposed to the model while this role is active.
	Tools []tool.Tool

	// Handoffs declares the role names this role's tools may transfer to.
	// The registry validates every declared target at construction time.
	Handoffs []string
}

// Role is one named participant of the routed conversation. Each role keeps
// its own chat context; state shared between roles travels through the
// session's user-data record and the history splice applied on handoff.
type Role struct {
	name         string
	instructions string
	tools        []tool.Tool
	toolIndex    map[string]tool.Tool
	model        model.Model
	voice        *voice.Profile
	handoffs     []string
	chat         *core.ChatContext
}

// NewRole creates a role with the given name and system instructions.
func NewRole(name, instructions string, optFns ...func(o *RoleOptions)) *Role {
	opts := RoleOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	idx := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		idx[t.Name()] = t
	}

	return &Role{
		name:         name,
		instructions: instructions,
		tools:        opts.Tools,
		toolIndex:    idx,
		model:        opts.Model,
		voice:        opts.Voice,
		handoffs:     opts.Handoffs,
		chat:         core.NewChatContext(),
	}
}

// Name returns the role's registry name.
func (r *Role) Name() string { return r.name }

// Instructions returns the role's system prompt.
func (r *Role) Instructions() string { return r.instructions }

// Tools returns the role's tool set.
func (r *Role) Tools() []tool.Tool { return r.tools }

// Tool looks up one of the role's tools by name.
func (r *Role) Tool(name string) (tool.Tool, bool) {
	t, ok := r.toolIndex[name]
	return t, ok
}

// Model returns the role's model override, or nil when the role uses the
// session default.
func (r *Role) Model() model.Model { return r.model }

// Voice returns the role's synthesis profile, or nil for the provider default.
func (r *Role) Voice() *voice.Profile { return r.voice }

// Handoffs returns the declared transfer targets.
func (r *Role) Handoffs() []string { return r.handoffs }

// Chat returns the role's chat context.
func (r *Role) Chat() *core.ChatContext { return r.chat }

// ToolDefinitions renders the role's tools as model-facing declarations.
func (r *Role) ToolDefinitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Registry is the fixed, validated set of roles a session can route
// between. It is immutable after construction.
type Registry struct {
	roles map[string]*Role
	order []string
}

// NewRegistry builds a registry from the given roles. It fails when a role
// name is empty or duplicated, or when any declared handoff names a role
// not present in the set. A failed construction leaves nothing half-built:
// callers must treat the error as fatal configuration.
func NewRegistry(roles ...*Role) (*Registry, error) {
	reg := &Registry{
		roles: make(map[string]*Role, len(roles)),
		order: make([]string, 0, len(roles)),
	}

	for _, role := range roles {
		if role.name == "" {
			return nil, fmt.Errorf("role with empty name")
		}
		if _, exists := reg.roles[role.name]; exists {
			return nil, fmt.Errorf("duplicate role %q", role.name)
		}
		reg.roles[role.name] = role
		reg.order = append(reg.order, role.name)
	}

	for _, role := range roles {
		for _, target := range role.handoffs {
			if _, ok := reg.roles[target]; !ok {
				return nil, fmt.Errorf("role %q declares handoff to %w %q", role.name, ErrUnknownRole, target)
			}
		}
	}

	return reg, nil
}

// Get returns the named role or ErrUnknownRole.
func (r *Registry) Get(name string) (*Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return role, nil
}

// Names returns the role names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered roles.
func (r *Registry) Len() int { return len(r.roles) }

// Options configure a Router instance.
type Options struct {
	// KeepLastN bounds the history spliced into a role on handoff.
	KeepLastN int

	// KeepSystemMessages carries per-role system messages across handoffs.
	// Off by default: each role gets a fresh state summary instead.
	KeepSystemMessages bool

	// KeepFunctionCalls carries function call/output pairs across handoffs
	// so the next role sees which tools already ran.
	KeepFunctionCalls bool

	Logger logging.Logger
}

// Router tracks the active role of one session and performs validated
// handoffs between registry roles. It is safe for concurrent use.
type Router struct {
	registry *Registry
	opts     Options
	logger   logging.Logger

	mu      sync.Mutex
	current *Role
	prev    *Role
}

// NewRouter creates a router over a validated registry.
func NewRouter(registry *Registry, optFns ...func(o *Options)) *Router {
	opts := Options{
		KeepLastN: 6,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		registry: registry,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Registry returns the router's role registry.
func (r *Router) Registry() *Registry { return r.registry }

// Current returns the active role, nil before Start.
func (r *Router) Current() *Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Previous returns the role that held the floor before the last handoff,
// nil before the first one.
func (r *Router) Previous() *Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prev
}

// Start activates the initial role. No history is spliced and no previous
// role is recorded.
func (r *Router) Start(name string) (*Role, error) {
	role, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = role
	r.prev = nil

	r.logger.Info("router.start", "role", name)
	return role, nil
}

// Transfer hands the conversation off to the named role. The target is
// validated against the registry before any state changes: an unknown name
// returns ErrUnknownRole and leaves the current/previous roles untouched.
// On success it records the outgoing role as previous, activates the target
// and returns it together with the user-facing confirmation message.
func (r *Router) Transfer(target string) (*Role, string, error) {
	role, err := r.registry.Get(target)
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	from := ""
	if r.current != nil {
		from = r.current.name
	}
	r.prev = r.current
	r.current = role

	r.logger.Info("router.handoff", "from_role", from, "to_role", target)
	return role, fmt.Sprintf("Transferring to %s.", target), nil
}

// Enter prepares the target role's chat context after a handoff:
//
//  1. The previous role's history, truncated per the router options, is
//     spliced into the target's context. Items already present (by ID) are
//     skipped, so repeated visits to the same role never duplicate history.
//  2. When the shared record implements core.Summarizer, a fresh system
//     message naming the entering role and carrying the state snapshot is
//     appended.
//
// It returns the number of items actually spliced.
func (r *Router) Enter(role *Role, data any) int {
	r.mu.Lock()
	prev := r.prev
	r.mu.Unlock()

	spliced := 0
	if prev != nil && prev != role {
		carried := Truncate(prev.chat.Items(), r.opts.KeepLastN, r.opts.KeepSystemMessages, r.opts.KeepFunctionCalls)
		spliced = role.chat.Append(carried)
	}

	if s, ok := data.(core.Summarizer); ok {
		role.chat.AddMessage(core.RoleSystem, fmt.Sprintf("Eres el agente %s. %s", role.name, s.Summary()))
	}

	r.logger.Debug("router.enter", "role", role.name, "spliced", spliced, "history_len", role.chat.Len())
	return spliced
}
