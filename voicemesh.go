// Package voicemesh provides a high-level façade over the role router and
// session layer for building voice agents that hand a conversation between
// named roles. Most applications interact with this package by:
//  1. Creating a VoiceMesh via New() with a validated role registry
//  2. Opening one session per caller (OpenSession), optionally wiring
//     TTS output
//  3. Feeding user turns through the returned AgentSession (directly, or via
//     a room.Pipeline when audio transport is involved)
//
// The façade delegates turn handling to session.AgentSession and role
// switching to router.Router while keeping setup concise. Defaults are safe
// for local development; production deployments supply a structured logger
// and real speech providers.
package voicemesh

import (
	"context"
	"fmt"

	"github.com/magalia-labs/voicemesh/logging"
	"github.com/magalia-labs/voicemesh/model"
	"github.com/magalia-labs/voicemesh/router"
	"github.com/magalia-labs/voicemesh/session"
	"github.com/magalia-labs/voicemesh/voice"
)

// Options configures the VoiceMesh instance. Session-scoped collaborators
// (model, TTS) set here become the defaults for every opened session.
type Options struct {
	// Model is the default model for sessions and roles without overrides.
	Model model.Model

	// TTS speaks assistant replies when set.
	TTS voice.TextToSpeech

	// MaxToolSteps bounds chained tool rounds within one turn. Default 5.
	MaxToolSteps int

	// KeepLastN bounds how much history a role carries across a handoff.
	// Default 6.
	KeepLastN int

	// KeepSystemMessages preserves system items when history is spliced on
	// handoff.
	KeepSystemMessages bool

	// KeepFunctionCalls preserves function call/output pairs when history is
	// spliced on handoff.
	KeepFunctionCalls bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// SessionOptions carry the per-caller pieces of an OpenSession call.
type SessionOptions struct {
	// Data is the session's shared user-data record, handed to every tool.
	Data any

	// Greeting is spoken verbatim when the initial role activates.
	Greeting string

	// AudioSink receives synthesized PCM. Required when the mesh has TTS.
	AudioSink voice.AudioCallback
}

// VoiceMesh is the high-level façade aggregating the role registry and the
// live session set.
type VoiceMesh struct {
	registry *router.Registry
	sessions *session.Manager
	opts     Options
}

// New creates a VoiceMesh over a validated role registry.
func New(registry *router.Registry, optFns ...func(o *Options)) (*VoiceMesh, error) {
	opts := Options{
		MaxToolSteps: 5,
		KeepLastN:    6,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if registry == nil {
		return nil, fmt.Errorf("voicemesh: registry is required")
	}
	if opts.Model == nil {
		return nil, fmt.Errorf("voicemesh: model is required")
	}

	return &VoiceMesh{
		registry: registry,
		sessions: session.NewManager(),
		opts:     opts,
	}, nil
}

// OpenSession creates a session for one caller, activates the initial role
// and registers it with the manager. Opening an ID that is already live is
// an error; close the old session first.
func (m *VoiceMesh) OpenSession(ctx context.Context, id, roleName string, optFns ...func(o *SessionOptions)) (*session.AgentSession, error) {
	var so SessionOptions
	for _, fn := range optFns {
		fn(&so)
	}

	if _, ok := m.sessions.Get(id); ok {
		return nil, fmt.Errorf("voicemesh: session %q already open", id)
	}

	rt := router.NewRouter(m.registry, func(o *router.Options) {
		o.KeepLastN = m.opts.KeepLastN
		o.KeepSystemMessages = m.opts.KeepSystemMessages
		o.KeepFunctionCalls = m.opts.KeepFunctionCalls
		o.Logger = m.opts.Logger
	})

	sess, err := session.New(id, rt, so.Data, func(o *session.Options) {
		o.Model = m.opts.Model
		o.TTS = m.opts.TTS
		o.AudioSink = so.AudioSink
		o.MaxToolSteps = m.opts.MaxToolSteps
		o.Logger = m.opts.Logger
	})
	if err != nil {
		return nil, err
	}

	if err := sess.Start(ctx, roleName, so.Greeting); err != nil {
		return nil, err
	}

	m.sessions.Put(sess)
	return sess, nil
}

// Session returns the live session with the given ID, if any.
func (m *VoiceMesh) Session(id string) (*session.AgentSession, bool) {
	return m.sessions.Get(id)
}

// CloseSession removes a session from the live set and logs its accumulated
// token usage. Closing an unknown ID is a no-op.
func (m *VoiceMesh) CloseSession(id string) {
	sess, ok := m.sessions.Delete(id)
	if !ok {
		return
	}
	sess.Usage().LogSummary(m.opts.Logger, id)
}

// Len reports the number of live sessions.
func (m *VoiceMesh) Len() int { return m.sessions.Len() }
