package room

import (
	"context"
	"strings"
	"sync"

	"github.com/magalia-labs/voicemesh/logging"
	"github.com/magalia-labs/voicemesh/session"
	"github.com/magalia-labs/voicemesh/voice"
)

// PipelineOptions configure the room input pipeline.
type PipelineOptions struct {
	Input  InputOptions
	Output OutputOptions
	Logger logging.Logger
}

// Pipeline glues one caller's room audio to an AgentSession: inbound frames
// pass the noise canceller and feed the STT provider, final transcripts
// accumulate until end of turn, and the completed utterance runs a
// conversation turn. Turn boundaries come from the provider's utterance
// events, or from the local VAD + turn detector when both are configured.
type Pipeline struct {
	sess      *session.AgentSession
	stt       voice.SpeechToText
	transport Transport
	opts      PipelineOptions
	logger    logging.Logger

	mu      sync.Mutex
	pending []string
	turnMu  sync.Mutex // serializes ProcessTurn
}

// NewPipeline builds a pipeline over a started session.
func NewPipeline(sess *session.AgentSession, stt voice.SpeechToText, transport Transport, optFns ...func(o *PipelineOptions)) *Pipeline {
	opts := PipelineOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pipeline{
		sess:      sess,
		stt:       stt,
		transport: transport,
		opts:      opts,
		logger:    opts.Logger,
	}
}

// Start wires the callbacks and connects the STT provider. The transport
// must already be joined to a room.
func (p *Pipeline) Start(ctx context.Context) error {
	p.stt.OnTranscript(func(transcript string, isFinal bool) {
		if !isFinal {
			return
		}
		p.mu.Lock()
		p.pending = append(p.pending, transcript)
		p.mu.Unlock()
	})

	p.stt.OnUtteranceEnd(func() {
		p.endOfTurn(ctx)
	})

	p.transport.OnAudio(func(pcm []byte) {
		p.handleFrame(ctx, pcm)
	})

	if err := p.stt.Connect(ctx); err != nil {
		return err
	}

	p.logger.Info("pipeline.started", "session_id", p.sess.ID())
	return nil
}

func (p *Pipeline) handleFrame(ctx context.Context, pcm []byte) {
	if nc := p.opts.Input.NoiseCanceller; nc != nil {
		pcm = nc.Process(pcm)
	}

	if vad, det := p.opts.Input.VAD, p.opts.Input.TurnDetector; vad != nil && det != nil {
		if det.Observe(vad.ProcessChunk(pcm)) {
			p.endOfTurn(ctx)
		}
	}

	if err := p.stt.SendAudio(pcm); err != nil {
		p.logger.Warn("pipeline.stt_send_failed", "error", err.Error())
	}
}

// endOfTurn drains the accumulated transcript and runs one conversation
// turn. Empty turns (silence without a transcript) are ignored.
func (p *Pipeline) endOfTurn(ctx context.Context) {
	p.mu.Lock()
	text := strings.TrimSpace(strings.Join(p.pending, " "))
	p.pending = nil
	p.mu.Unlock()

	if text == "" {
		return
	}

	if det := p.opts.Input.TurnDetector; det != nil {
		det.Reset()
	}

	p.turnMu.Lock()
	defer p.turnMu.Unlock()

	if p.opts.Output.TranscriptionEnabled {
		p.sendTranscript("user", text)
	}

	reply, err := p.sess.ProcessTurn(ctx, text)
	if err != nil {
		p.logger.Error("pipeline.turn_failed", "session_id", p.sess.ID(), "error", err.Error())
		return
	}

	if p.opts.Output.TranscriptionEnabled {
		role := ""
		if current := p.sess.Router().Current(); current != nil {
			role = current.Name()
		}
		p.sendTranscript(role, reply)
	}
}

func (p *Pipeline) sendTranscript(role, text string) {
	err := p.transport.SendEvent(Event{
		Type:  EventTranscript,
		Role:  role,
		Text:  text,
		Final: true,
	})
	if err != nil {
		p.logger.Warn("pipeline.transcript_send_failed", "error", err.Error())
	}
}

// Close disconnects the STT provider.
func (p *Pipeline) Close() error {
	return p.stt.Close()
}
