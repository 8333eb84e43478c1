package room

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magalia-labs/voicemesh/model"
	"github.com/magalia-labs/voicemesh/router"
	"github.com/magalia-labs/voicemesh/session"
	"github.com/magalia-labs/voicemesh/voice"
)

type fakeSTT struct {
	onTranscript   voice.TranscriptCallback
	onUtteranceEnd voice.UtteranceEndCallback
	frames         [][]byte
	connected      bool
}

func (f *fakeSTT) OnTranscript(cb voice.TranscriptCallback)     { f.onTranscript = cb }
func (f *fakeSTT) OnUtteranceEnd(cb voice.UtteranceEndCallback) { f.onUtteranceEnd = cb }
func (f *fakeSTT) Connect(context.Context) error                { f.connected = true; return nil }
func (f *fakeSTT) SendAudio(pcm []byte) error                   { f.frames = append(f.frames, pcm); return nil }
func (f *fakeSTT) Close() error                                 { f.connected = false; return nil }
func (f *fakeSTT) IsConnected() bool                            { return f.connected }

type fakeTransport struct {
	onAudio func(pcm []byte)
	onEvent func(ev Event)
	events  []Event
	audio   [][]byte
}

func (f *fakeTransport) Join(context.Context, string) error { return nil }
func (f *fakeTransport) SendAudio(pcm []byte) error         { f.audio = append(f.audio, pcm); return nil }
func (f *fakeTransport) SendEvent(ev Event) error           { f.events = append(f.events, ev); return nil }
func (f *fakeTransport) OnAudio(cb func(pcm []byte))        { f.onAudio = cb }
func (f *fakeTransport) OnEvent(cb func(ev Event))          { f.onEvent = cb }
func (f *fakeTransport) Close() error                       { return nil }

func newPipelineSession(t *testing.T, mock *model.MockModel) *session.AgentSession {
	t.Helper()
	reg, err := router.NewRegistry(router.NewRole("greeter", "You greet callers."))
	require.NoError(t, err)
	sess, err := session.New("sess-room", router.NewRouter(reg), nil, func(o *session.Options) {
		o.Model = mock
	})
	require.NoError(t, err)
	require.NoError(t, sess.Start(context.Background(), "greeter", ""))
	return sess
}

func TestPipeline_TurnOnUtteranceEnd(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse("hola buenas", "¡Hola! ¿En qué puedo ayudarte?")
	sess := newPipelineSession(t, mock)

	stt := &fakeSTT{}
	transport := &fakeTransport{}
	p := NewPipeline(sess, stt, transport, func(o *PipelineOptions) {
		o.Output.TranscriptionEnabled = true
	})
	require.NoError(t, p.Start(context.Background()))
	assert.True(t, stt.connected)

	// Interim results are ignored; finals accumulate across the utterance.
	stt.onTranscript("hola", false)
	stt.onTranscript("hola", true)
	stt.onTranscript("buenas", true)
	stt.onUtteranceEnd()

	require.Len(t, transport.events, 2)
	assert.Equal(t, EventTranscript, transport.events[0].Type)
	assert.Equal(t, "user", transport.events[0].Role)
	assert.Equal(t, "hola buenas", transport.events[0].Text)
	assert.Equal(t, "greeter", transport.events[1].Role)
	assert.Equal(t, "¡Hola! ¿En qué puedo ayudarte?", transport.events[1].Text)

	// Silence-only utterance ends are dropped.
	stt.onUtteranceEnd()
	assert.Len(t, transport.events, 2)
}

func TestPipeline_ForwardsFilteredAudio(t *testing.T) {
	sess := newPipelineSession(t, model.NewMockModel("test", "mock"))

	stt := &fakeSTT{}
	transport := &fakeTransport{}

	inverted := 0
	p := NewPipeline(sess, stt, transport, func(o *PipelineOptions) {
		o.Input.NoiseCanceller = cancellerFunc(func(pcm []byte) []byte {
			inverted++
			return pcm
		})
	})
	require.NoError(t, p.Start(context.Background()))

	transport.onAudio([]byte{1, 2, 3, 4})
	transport.onAudio([]byte{5, 6, 7, 8})

	assert.Equal(t, 2, inverted)
	assert.Len(t, stt.frames, 2)
}

type cancellerFunc func(pcm []byte) []byte

func (f cancellerFunc) Process(pcm []byte) []byte { return f(pcm) }

type vadFunc func(pcm []byte) bool

func (f vadFunc) ProcessChunk(pcm []byte) bool { return f(pcm) }

func TestPipeline_LocalTurnDetectionFallback(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse("pedido", "Claro, dime tu pedido.")
	sess := newPipelineSession(t, mock)

	stt := &fakeSTT{}
	transport := &fakeTransport{}

	// VAD alternates speech then silence; the detector ends the turn on the
	// second silent frame.
	speech := []bool{true, false, false}
	i := 0
	p := NewPipeline(sess, stt, transport, func(o *PipelineOptions) {
		o.Input.VAD = vadFunc(func([]byte) bool { v := speech[i]; i++; return v })
		o.Input.TurnDetector = &immediateTurnDetector{}
		o.Output.TranscriptionEnabled = true
	})
	require.NoError(t, p.Start(context.Background()))

	stt.onTranscript("pedido", true)

	transport.onAudio([]byte{0, 0}) // speech
	transport.onAudio([]byte{0, 0}) // silence, arms
	transport.onAudio([]byte{0, 0}) // silence, fires

	require.Len(t, transport.events, 2)
	assert.Equal(t, "Claro, dime tu pedido.", transport.events[1].Text)
}

// immediateTurnDetector fires on the second consecutive silent observation
// after speech.
type immediateTurnDetector struct {
	spoke   bool
	silence int
}

func (d *immediateTurnDetector) Observe(speech bool) bool {
	if speech {
		d.spoke = true
		d.silence = 0
		return false
	}
	if !d.spoke {
		return false
	}
	d.silence++
	if d.silence == 2 {
		d.spoke = false
		return true
	}
	return false
}

func (d *immediateTurnDetector) Reset() { d.spoke = false; d.silence = 0 }
