package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/magalia-labs/voicemesh/logging"
)

// ClientOptions configure the websocket room client.
type ClientOptions struct {
	HandshakeTimeout time.Duration
	Logger           logging.Logger
}

// Client is the websocket implementation of Transport. Binary messages are
// PCM frames, text messages are JSON Events.
type Client struct {
	id        string
	serverURL string
	opts      ClientOptions
	logger    logging.Logger

	conn      *websocket.Conn
	onAudio   func(pcm []byte)
	onEvent   func(ev Event)
	mu        sync.Mutex
	writeMu   sync.Mutex // websocket writers must not interleave
	connected bool
	done      chan struct{}
}

var _ Transport = (*Client)(nil)

// NewClient creates a room client identified by id against a room server URL
// (ws:// or wss://).
func NewClient(id, serverURL string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		HandshakeTimeout: 10 * time.Second,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		id:        id,
		serverURL: serverURL,
		opts:      opts,
		logger:    opts.Logger,
		done:      make(chan struct{}),
	}
}

// OnAudio sets the callback for inbound PCM frames.
func (c *Client) OnAudio(callback func(pcm []byte)) { c.onAudio = callback }

// OnEvent sets the callback for inbound control events.
func (c *Client) OnEvent(callback func(ev Event)) { c.onEvent = callback }

// Join implements Transport.
func (c *Client) Join(ctx context.Context, room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return fmt.Errorf("already connected")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return fmt.Errorf("room connection failed: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})

	if err := c.writeEvent(Event{Type: EventJoin, Room: room, ClientID: c.id}); err != nil {
		_ = conn.Close()
		c.connected = false
		return fmt.Errorf("join room %q: %w", room, err)
	}

	go c.readLoop()

	c.logger.Info("room.joined", "room", room, "client_id", c.id)
	return nil
}

func (c *Client) readLoop() {
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

		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			c.logger.Warn("room.read_error", "error", err.Error())
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if c.onAudio != nil {
				c.onAudio(message)
			}
		case websocket.TextMessage:
			var ev Event
			if err := json.Unmarshal(message, &ev); err != nil {
				continue
			}
			if c.onEvent != nil {
				c.onEvent(ev)
			}
		}
	}
}

// SendAudio implements Transport.
func (c *Client) SendAudio(pcm []byte) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

// SendEvent implements Transport.
func (c *Client) SendEvent(ev Event) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return fmt.Errorf("not connected")
	}
	return c.writeEvent(ev)
}

func (c *Client) writeEvent(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close implements Transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	close(c.done)
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.conn.Close()
	}
	c.connected = false
	c.logger.Info("room.left", "client_id", c.id)
	return nil
}
