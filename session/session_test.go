package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magalia-labs/voicemesh/core"
	"github.com/magalia-labs/voicemesh/model"
	"github.com/magalia-labs/voicemesh/router"
	"github.com/magalia-labs/voicemesh/tool"
	"github.com/magalia-labs/voicemesh/voice"
)

type fakeRecord struct {
	name string
}

func (r *fakeRecord) Summary() string { return "customer: " + r.name }

func nameTool(t *testing.T) tool.Tool {
	t.Helper()
	return tool.NewFunctionTool("update_name", "Record the customer's name",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
			"required": []any{"name"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			rec := tc.UserData().(*fakeRecord)
			rec.name = args["name"].(string)
			return fmt.Sprintf("The name is updated to %s", rec.name), nil
		})
}

func newTestSession(t *testing.T, mock *model.MockModel, rec *fakeRecord) *AgentSession {
	t.Helper()

	reg, err := router.NewRegistry(
		router.NewRole("greeter", "You greet callers.", func(o *router.RoleOptions) {
			o.Tools = []tool.Tool{
				nameTool(t),
				tool.NewTransferTool("to_reservation", "Hand off to reservations.", "reservation"),
			}
			o.Handoffs = []string{"reservation"}
		}),
		router.NewRole("reservation", "You take reservations.", func(o *router.RoleOptions) {
			o.Handoffs = []string{"greeter"}
		}),
	)
	require.NoError(t, err)

	sess, err := New("sess-1", router.NewRouter(reg), rec, func(o *Options) {
		o.Model = mock
	})
	require.NoError(t, err)
	require.NoError(t, sess.Start(context.Background(), "greeter", ""))
	return sess
}

func TestNew_RequiresModel(t *testing.T) {
	reg, err := router.NewRegistry(router.NewRole("greeter", ""))
	require.NoError(t, err)

	_, err = New("s", router.NewRouter(reg), nil)
	assert.Error(t, err)
}

func TestAgentSession_PlainReply(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse("hello", "Restaurante Magalia, ¿Dígame?")
	sess := newTestSession(t, mock, &fakeRecord{})

	reply, err := sess.ProcessTurn(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Restaurante Magalia, ¿Dígame?", reply)

	items := sess.Router().Current().Chat().Items()
	require.Len(t, items, 2)
	assert.Equal(t, "hello", items[0].(core.Message).Text)
	assert.Equal(t, reply, items[1].(core.Message).Text)
}

func TestAgentSession_ToolCallThenReply(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddToolCall("my name is Ana", model.ToolCall{
		ID: "call_1", Name: "update_name", Arguments: `{"name":"Ana"}`,
	})
	mock.AddResponse("my name is Ana", "Thanks Ana, how can I help?")

	rec := &fakeRecord{}
	sess := newTestSession(t, mock, rec)

	reply, err := sess.ProcessTurn(context.Background(), "my name is Ana")
	require.NoError(t, err)
	assert.Equal(t, "Thanks Ana, how can I help?", reply)
	assert.Equal(t, "Ana", rec.name)

	// History carries the call/output pair between user and assistant messages.
	items := sess.Router().Current().Chat().Items()
	require.Len(t, items, 4)
	assert.Equal(t, core.ItemTypeFunctionCall, items[1].Type())
	assert.Equal(t, core.ItemTypeFunctionOutput, items[2].Type())
}

func TestAgentSession_HandoffSwitchesRoleAndReplies(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddToolCall("book a table", model.ToolCall{
		ID: "call_1", Name: "to_reservation", Arguments: `{}`,
	})
	mock.AddResponse("book a table", "I can take your reservation. For what time?")

	rec := &fakeRecord{name: "Ana"}
	sess := newTestSession(t, mock, rec)

	reply, err := sess.ProcessTurn(context.Background(), "book a table")
	require.NoError(t, err)
	assert.Equal(t, "I can take your reservation. For what time?", reply)

	current := sess.Router().Current()
	assert.Equal(t, "reservation", current.Name())
	assert.Equal(t, "greeter", sess.Router().Previous().Name())

	// The entered role got the spliced history plus a state summary.
	items := current.Chat().Items()
	var summary *core.Message
	for _, it := range items {
		if msg, ok := it.(core.Message); ok && msg.Role == core.RoleSystem {
			summary = &msg
		}
	}
	require.NotNil(t, summary)
	assert.Contains(t, summary.Text, "Ana")
}

func TestAgentSession_MaxToolStepsAborts(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	for i := 0; i < 6; i++ {
		mock.AddToolCall("loop", model.ToolCall{
			ID: fmt.Sprintf("call_%d", i), Name: "update_name", Arguments: `{"name":"x"}`,
		})
	}
	sess := newTestSession(t, mock, &fakeRecord{})

	_, err := sess.ProcessTurn(context.Background(), "loop")
	assert.ErrorIs(t, err, ErrMaxToolSteps)
}

func TestAgentSession_StartGreetingSkipsModel(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	rec := &fakeRecord{}

	reg, err := router.NewRegistry(router.NewRole("greeter", "You greet callers."))
	require.NoError(t, err)
	sess, err := New("sess-greet", router.NewRouter(reg), rec, func(o *Options) {
		o.Model = mock
	})
	require.NoError(t, err)

	require.NoError(t, sess.Start(context.Background(), "greeter", "Restaurante Magalia, ¿Dígame?"))

	items := sess.Router().Current().Chat().Items()
	require.Len(t, items, 1)
	msg := items[0].(core.Message)
	assert.Equal(t, core.RoleAssistant, msg.Role)
	assert.Equal(t, "Restaurante Magalia, ¿Dígame?", msg.Text)
}

type fakeTTS struct {
	lastProfile *voice.Profile
	calls       int
}

func (f *fakeTTS) Synthesize(_ context.Context, text string, profile *voice.Profile) ([]byte, error) {
	f.lastProfile = profile
	f.calls++
	return []byte(text), nil
}

func (f *fakeTTS) SynthesizeStream(context.Context, string, *voice.Profile, voice.AudioCallback) error {
	return nil
}

func TestAgentSession_SaySpeaksWithRoleVoice(t *testing.T) {
	profile := &voice.Profile{VoiceID: "voice-greeter", Stability: 0.4}
	reg, err := router.NewRegistry(
		router.NewRole("greeter", "", func(o *router.RoleOptions) { o.Voice = profile }),
	)
	require.NoError(t, err)

	tts := &fakeTTS{}
	var sink [][]byte
	sess, err := New("sess-say", router.NewRouter(reg), nil, func(o *Options) {
		o.Model = model.NewMockModel("test", "mock")
		o.TTS = tts
		o.AudioSink = func(pcm []byte) { sink = append(sink, pcm) }
	})
	require.NoError(t, err)
	require.NoError(t, sess.Start(context.Background(), "greeter", ""))

	require.NoError(t, sess.Say(context.Background(), "Welcome!"))
	assert.Equal(t, 1, tts.calls)
	assert.Equal(t, profile, tts.lastProfile)
	require.Len(t, sink, 1)
	assert.Equal(t, []byte("Welcome!"), sink[0])
}

func TestUsageCollector(t *testing.T) {
	u := NewUsageCollector()
	u.Add(&model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	u.Add(&model.TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	u.Add(nil)

	snapshot := u.Snapshot()
	assert.Equal(t, 11, snapshot.PromptTokens)
	assert.Equal(t, 7, snapshot.CompletionTokens)
	assert.Equal(t, 18, snapshot.TotalTokens)
	assert.Equal(t, 2, u.Requests())
}

func TestManager(t *testing.T) {
	m := NewManager()
	assert.Equal(t, 0, m.Len())

	reg, err := router.NewRegistry(router.NewRole("greeter", ""))
	require.NoError(t, err)

	factory := func(id string) (*AgentSession, error) {
		return New(id, router.NewRouter(reg), nil, func(o *Options) {
			o.Model = model.NewMockModel("test", "mock")
		})
	}

	s1, err := m.GetOrCreate("a", factory)
	require.NoError(t, err)
	s2, err := m.GetOrCreate("a", factory)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, m.Len())

	got, ok := m.Get("a")
	assert.True(t, ok)
	assert.Same(t, s1, got)

	deleted, ok := m.Delete("a")
	assert.True(t, ok)
	assert.Same(t, s1, deleted)
	assert.Equal(t, 0, m.Len())

	_, ok = m.Get("a")
	assert.False(t, ok)
}
