// Package session hosts the conversational turn loop: it feeds user input
// to the active role's model, executes requested tool calls, applies
// handoffs signaled by tools and speaks replies through the configured TTS
// provider. One AgentSession serves one caller; the Manager tracks the live
// set.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magalia-labs/voicemesh/core"
	"github.com/magalia-labs/voicemesh/logging"
	"github.com/magalia-labs/voicemesh/model"
	"github.com/magalia-labs/voicemesh/router"
	"github.com/magalia-labs/voicemesh/voice"
)

// ErrMaxToolSteps is returned when a single turn chains more tool rounds
// than the configured limit, which usually means the model is stuck in a
// call loop.
var ErrMaxToolSteps = errors.New("max tool steps exceeded")

// Options configure an AgentSession.
type Options struct {
	// Model is the default model, used by roles without an override.
	Model model.Model

	// TTS speaks assistant replies when set; text-only sessions leave it nil.
	TTS voice.TextToSpeech

	// AudioSink receives synthesized PCM. Required when TTS is set.
	AudioSink voice.AudioCallback

	// MaxToolSteps bounds chained tool rounds within one turn.
	MaxToolSteps int

	// Stream requests token streaming from providers that support it.
	Stream bool

	Logger logging.Logger
}

// AgentSession drives one caller's conversation across the routed roles.
// Methods are not safe for concurrent use; callers serialize turns.
type AgentSession struct {
	id     string
	router *router.Router
	data   any
	opts   Options
	logger logging.Logger
	usage  *UsageCollector
}

// New creates a session over a router and the shared user-data record. The
// record is handed to every tool invocation and summarized into the chat
// context on each handoff (when it implements core.Summarizer).
func New(id string, rt *router.Router, data any, optFns ...func(o *Options)) (*AgentSession, error) {
	opts := Options{
		MaxToolSteps: 5,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == nil {
		return nil, fmt.Errorf("session %q: no model configured", id)
	}
	if opts.TTS != nil && opts.AudioSink == nil {
		return nil, fmt.Errorf("session %q: TTS configured without an audio sink", id)
	}

	return &AgentSession{
		id:     id,
		router: rt,
		data:   data,
		opts:   opts,
		logger: opts.Logger,
		usage:  NewUsageCollector(),
	}, nil
}

// ID returns the session identifier.
func (s *AgentSession) ID() string { return s.id }

// Router returns the session's role router.
func (s *AgentSession) Router() *router.Router { return s.router }

// UserData returns the shared record.
func (s *AgentSession) UserData() any { return s.data }

// Usage returns the session's token usage collector.
func (s *AgentSession) Usage() *UsageCollector { return s.usage }

// Start activates the initial role and optionally speaks a fixed greeting.
// The greeting goes out verbatim, without a model round trip, so the caller
// hears it immediately.
func (s *AgentSession) Start(ctx context.Context, roleName, greeting string) error {
	role, err := s.router.Start(roleName)
	if err != nil {
		return fmt.Errorf("session %q: %w", s.id, err)
	}

	s.logger.Info("session.start", "session_id", s.id, "role", roleName)

	if greeting != "" {
		return s.say(ctx, role, greeting)
	}
	return nil
}

// Say appends a scripted assistant message to the active role's history and
// speaks it when TTS is configured.
func (s *AgentSession) Say(ctx context.Context, text string) error {
	role := s.router.Current()
	if role == nil {
		return fmt.Errorf("session %q: no active role", s.id)
	}
	return s.say(ctx, role, text)
}

func (s *AgentSession) say(ctx context.Context, role *router.Role, text string) error {
	role.Chat().AddMessage(core.RoleAssistant, text)

	if s.opts.TTS == nil {
		return nil
	}
	pcm, err := s.opts.TTS.Synthesize(ctx, text, role.Voice())
	if err != nil {
		return fmt.Errorf("session %q: synthesize: %w", s.id, err)
	}
	s.opts.AudioSink(pcm)
	return nil
}

// ProcessTurn handles one user utterance: it records the input on the
// active role, lets the model respond, executes tool calls (at most
// MaxToolSteps rounds) and applies a handoff if one was signaled. The
// returned text is the assistant reply that was spoken/recorded.
func (s *AgentSession) ProcessTurn(ctx context.Context, userText string) (string, error) {
	role := s.router.Current()
	if role == nil {
		return "", fmt.Errorf("session %q: no active role", s.id)
	}

	role.Chat().AddMessage(core.RoleUser, userText)
	runCtx := core.NewRunContext(ctx, s.id, role.Name(), s.data, s.logger)

	for step := 0; step < s.opts.MaxToolSteps; step++ {
		resp, err := s.generate(ctx, role, "")
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			if err := s.say(ctx, role, resp.Text); err != nil {
				return "", err
			}
			return resp.Text, nil
		}

		target, err := s.executeToolBatch(runCtx.WithRole(role.Name()), role, resp.ToolCalls)
		if err != nil {
			return "", err
		}

		if target != "" {
			return s.handoff(ctx, target)
		}
	}

	s.logger.Warn("session.tool_loop", "session_id", s.id, "role", role.Name(), "max_steps", s.opts.MaxToolSteps)
	return "", fmt.Errorf("session %q: %w", s.id, ErrMaxToolSteps)
}

// GenerateReply asks the active role to speak next without new user input,
// tools disabled. Used for the first utterance after a handoff.
func (s *AgentSession) GenerateReply(ctx context.Context) (string, error) {
	role := s.router.Current()
	if role == nil {
		return "", fmt.Errorf("session %q: no active role", s.id)
	}

	resp, err := s.generate(ctx, role, model.ToolChoiceNone)
	if err != nil {
		return "", err
	}
	if err := s.say(ctx, role, resp.Text); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// handoff switches the active role and produces its opening reply.
func (s *AgentSession) handoff(ctx context.Context, target string) (string, error) {
	role, _, err := s.router.Transfer(target)
	if err != nil {
		// Registry validation at startup makes this unreachable for
		// declared handoffs; a tool transferring to an undeclared name
		// still fails closed here.
		return "", fmt.Errorf("session %q: %w", s.id, err)
	}

	s.router.Enter(role, s.data)
	return s.GenerateReply(ctx)
}

// executeToolBatch runs every requested call in order, records the
// call/output item pairs on the role's history and returns the handoff
// target if any tool signaled one (the last signal wins).
func (s *AgentSession) executeToolBatch(runCtx *core.RunContext, role *router.Role, calls []model.ToolCall) (string, error) {
	target := ""
	for _, call := range calls {
		role.Chat().AddItem(core.NewFunctionCall(call.ID, call.Name, call.Arguments))

		result, callTarget, err := s.executeTool(runCtx, role, call)
		role.Chat().AddItem(core.NewFunctionOutput(call.ID, call.Name, result, err))

		if err != nil {
			// Tool errors are surfaced to the model through the output
			// item; the turn continues so the model can recover.
			s.logger.Warn("session.tool_failed", "session_id", s.id, "tool", call.Name, "error", err.Error())
			continue
		}

		if callTarget != "" {
			target = callTarget
		}
	}
	return target, nil
}

func (s *AgentSession) executeTool(runCtx *core.RunContext, role *router.Role, call model.ToolCall) (any, string, error) {
	t, ok := role.Tool(call.Name)
	if !ok {
		return nil, "", fmt.Errorf("tool %q not registered on role %q", call.Name, role.Name())
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, "", fmt.Errorf("tool %q: invalid arguments: %w", call.Name, err)
		}
	}

	tc := core.NewToolContext(runCtx, call.ID)
	result, err := t.Call(tc, args)
	if err != nil {
		return nil, "", err
	}
	target, _ := tc.TransferTarget()
	return result, target, nil
}

// generate performs one model round for the role and returns the final
// response. Token usage is accumulated on the session collector.
func (s *AgentSession) generate(ctx context.Context, role *router.Role, toolChoice string) (model.Response, error) {
	mdl := role.Model()
	if mdl == nil {
		mdl = s.opts.Model
	}

	req := model.Request{
		Instructions: role.Instructions(),
		Items:        role.Chat().Items(),
		Tools:        role.ToolDefinitions(),
		ToolChoice:   toolChoice,
		Stream:       s.opts.Stream,
	}

	respCh, errCh := mdl.Generate(ctx, req)

	var final model.Response
	got := false
	for resp := range respCh {
		if resp.Usage != nil {
			s.usage.Add(resp.Usage)
		}
		if !resp.Partial {
			final = resp
			got = true
		}
	}
	if err := <-errCh; err != nil {
		return model.Response{}, fmt.Errorf("session %q: model: %w", s.id, err)
	}
	if !got {
		return model.Response{}, fmt.Errorf("session %q: model emitted no final response", s.id)
	}

	s.logger.Debug("session.model_reply",
		"session_id", s.id,
		"role", role.Name(),
		"tool_calls", len(final.ToolCalls),
		"finish_reason", final.FinishReason,
	)
	return final, nil
}
