// Package deepgram implements voice.SpeechToText over the Deepgram realtime
// websocket API (linear16 PCM in, interim + final transcripts out).
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/magalia-labs/voicemesh/logging"
	"github.com/magalia-labs/voicemesh/voice"
)

const wsURL = "wss://api.deepgram.com/v1/listen"

// Options configure the Deepgram client.
type Options struct {
	SampleRate     int    // e.g. 48000
	Channels       int    // 1 or 2
	UtteranceEndMs int    // Milliseconds of silence before utterance end
	Language       string // BCP-47 tag, empty for auto
	Logger         logging.Logger
}

// Client is a Deepgram realtime STT client.
type Client struct {
	apiKey         string
	opts           Options
	logger         logging.Logger
	conn           *websocket.Conn
	callback       voice.TranscriptCallback
	utteranceEndCb voice.UtteranceEndCallback
	mu             sync.Mutex
	connected      bool
	done           chan struct{}
}

var _ voice.SpeechToText = (*Client)(nil)

// messageType is used to determine the type of a Deepgram message.
type messageType struct {
	Type string `json:"type"`
}

// transcriptResponse represents Deepgram's transcript response.
type transcriptResponse struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	IsFinal bool `json:"is_final"`
}

// NewClient creates a new Deepgram client.
func NewClient(apiKey string, optFns ...func(o *Options)) *Client {
	opts := Options{
		SampleRate:     48000,
		Channels:       1,
		UtteranceEndMs: 1000,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		apiKey: apiKey,
		opts:   opts,
		logger: opts.Logger,
		done:   make(chan struct{}),
	}
}

// OnTranscript sets the callback for transcriptions.
func (c *Client) OnTranscript(callback voice.TranscriptCallback) {
	c.callback = callback
}

// OnUtteranceEnd sets the callback for when the user finishes speaking.
func (c *Client) OnUtteranceEnd(callback voice.UtteranceEndCallback) {
	c.utteranceEndCb = callback
}

// Connect establishes the websocket connection to Deepgram.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	url := fmt.Sprintf("%s?encoding=linear16&sample_rate=%d&channels=%d&punctuate=true&interim_results=true&utterance_end_ms=%d",
		wsURL, c.opts.SampleRate, c.opts.Channels, c.opts.UtteranceEndMs)
	if c.opts.Language != "" {
		url += "&language=" + c.opts.Language
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+c.apiKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("deepgram connection failed: %w", err)
	}

	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})

	go c.readResponses()

	c.logger.Info("stt.connected", "provider", "deepgram", "sample_rate", c.opts.SampleRate)
	return nil
}

func (c *Client) readResponses() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			c.logger.Warn("stt.read_error", "provider", "deepgram", "error", err.Error())
			return
		}

		var mt messageType
		if err := json.Unmarshal(message, &mt); err != nil {
			continue
		}

		// Utterance end - user finished speaking
		if mt.Type == "UtteranceEnd" {
			c.logger.Debug("stt.utterance_end", "provider", "deepgram")
			if c.utteranceEndCb != nil {
				c.utteranceEndCb()
			}
			continue
		}

		if mt.Type == "Results" {
			var resp transcriptResponse
			if err := json.Unmarshal(message, &resp); err != nil {
				continue
			}
			if len(resp.Channel.Alternatives) > 0 {
				transcript := resp.Channel.Alternatives[0].Transcript
				if transcript != "" && c.callback != nil {
					c.logger.Debug("stt.transcript", "provider", "deepgram", "chars", len(transcript), "final", resp.IsFinal)
					c.callback(transcript, resp.IsFinal)
				}
			}
		}
	}
}

// SendAudio sends PCM audio data to Deepgram.
func (c *Client) SendAudio(pcmData []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteMessage(websocket.BinaryMessage, pcmData)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	close(c.done)

	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "CloseStream"}`))
		_ = c.conn.Close()
	}

	c.connected = false
	c.logger.Info("stt.disconnected", "provider", "deepgram")
	return nil
}

// IsConnected returns connection status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
