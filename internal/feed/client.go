// Package feed follows a live game on a clockchess server as a spectator,
// reconnecting when the connection drops.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/justinabrahms/clockchess/internal/match"
)

const (
	DefaultURL = "ws://localhost:3000/ws"

	initialReconnectDelay  = 1 * time.Second
	maxReconnectDelay      = 1 * time.Minute
	reconnectBackoffFactor = 2

	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	dialTimeout  = 30 * time.Second
)

// invalidGameID is the server's reply when the game is unknown or already
// over.
const invalidGameID = "Invalid game ID."

var errFinished = errors.New("game finished")

type EventType string

const (
	EventState     EventType = match.TypeGameState
	EventMove      EventType = match.TypeMove
	EventEnd       EventType = match.TypeEnd
	EventDrawOffer EventType = match.TypeDrawOffer
	EventError     EventType = "error"
)

// Event is one message received for the followed game. Exactly one of the
// payload fields is set, matching Type.
type Event struct {
	Type     EventType
	GameID   string
	Received time.Time

	State     *match.GameState
	Move      *match.MoveMessage
	End       *match.EndMessage
	DrawOffer *match.DrawOfferMessage
	Error     string
}

// EventHandler is called for each event, in order, from the client's
// goroutine.
type EventHandler func(event Event) error

// Client spectates one game over a WebSocket.
type Client struct {
	url            string
	gameID         string
	handler        EventHandler
	logger         zerolog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	done           chan struct{}
	started        atomic.Bool

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	finished  bool
}

// Option configures the client
type Option func(*Client)

// WithURL sets the server's WebSocket URL
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDialer replaces the default WebSocket dialer
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithInitialReconnectDelay sets the initial reconnect delay
func WithInitialReconnectDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.reconnectDelay = delay
	}
}

func NewClient(gameID string, handler EventHandler, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		url:            DefaultURL,
		gameID:         gameID,
		handler:        handler,
		logger:         zerolog.Nop(),
		ctx:            ctx,
		cancel:         cancel,
		reconnectDelay: initialReconnectDelay,
		dialer:         websocket.DefaultDialer,
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(client)
	}
	client.logger = client.logger.With().Str("gameID", gameID).Logger()

	return client
}

// Start begins following the game in the background.
func (c *Client) Start() error {
	if c.gameID == "" {
		return errors.New("feed: empty game id")
	}
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("feed: already started")
	}
	go c.run()
	return nil
}

// Stop shuts the client down and waits for it to exit.
func (c *Client) Stop() error {
	c.cancel()

	c.mu.Lock()
	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
		c.connected = false
	}
	c.mu.Unlock()

	if c.started.Load() {
		<-c.done
	}
	return err
}

// Done is closed once the client stops, either because the game ended or
// because Stop was called.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Finished reports whether the server said the game is over.
func (c *Client) Finished() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.finished
}

func (c *Client) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, err := c.connect()
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to connect to server")
			c.handleReconnect()
			continue
		}

		err = c.listen(conn)
		if errors.Is(err, errFinished) {
			c.mu.Lock()
			c.finished = true
			c.mu.Unlock()
			c.disconnect()
			c.logger.Info().Msg("Game over, feed closed")
			return
		}
		if err != nil && c.ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("Error reading game feed")
		}
		c.handleReconnect()
	}
}

func (c *Client) connect() (*websocket.Conn, error) {
	c.logger.Info().Str("url", c.url).Msg("Connecting to server")

	headers := http.Header{}
	headers.Set("User-Agent", "clockchess-feed/1.0")

	ctx, cancel := context.WithTimeout(c.ctx, dialTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(ctx, c.url, headers)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	subscribe := map[string]string{"type": "spectate-game", "gameID": c.gameID}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.reconnectDelay = initialReconnectDelay
	c.mu.Unlock()

	c.logger.Info().Msg("Following game")
	return conn, nil
}

func (c *Client) listen(conn *websocket.Conn) error {
	go c.pingLoop(conn)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("websocket read error: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, ok, err := decodeEvent(data)
		if err != nil {
			c.logger.Error().Err(err).Msg("Error decoding message")
			continue
		}
		if !ok {
			continue
		}
		event.Received = time.Now()

		if err := c.handler(event); err != nil {
			c.logger.Error().Err(err).Str("type", string(event.Type)).Msg("Event handler error")
		}

		switch {
		case event.Type == EventEnd:
			return errFinished
		case event.Type == EventError && event.Error == invalidGameID:
			return errFinished
		}
	}
}

// decodeEvent parses one server message. Messages that are not about a game
// report ok as false.
func decodeEvent(data []byte) (Event, bool, error) {
	var head struct {
		Type   string `json:"type"`
		GameID string `json:"gameID"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Event{}, false, fmt.Errorf("failed to parse message: %w", err)
	}

	event := Event{Type: EventType(head.Type), GameID: head.GameID}
	var target any
	switch event.Type {
	case EventState:
		event.State = &match.GameState{}
		target = event.State
	case EventMove:
		event.Move = &match.MoveMessage{}
		target = event.Move
	case EventEnd:
		event.End = &match.EndMessage{}
		target = event.End
	case EventDrawOffer:
		event.DrawOffer = &match.DrawOfferMessage{}
		target = event.DrawOffer
	case EventError:
		event.Error = head.Error
		return event, true, nil
	default:
		return Event{}, false, nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return Event{}, false, fmt.Errorf("failed to parse %s message: %w", head.Type, err)
	}
	return event, true, nil
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) handleReconnect() {
	c.disconnect()

	c.mu.Lock()
	delay := c.reconnectDelay
	c.reconnectDelay = time.Duration(float64(c.reconnectDelay) * reconnectBackoffFactor)
	if c.reconnectDelay > maxReconnectDelay {
		c.reconnectDelay = maxReconnectDelay
	}
	c.mu.Unlock()

	if c.ctx.Err() != nil {
		return
	}
	c.logger.Info().Str("delay", delay.String()).Msg("Waiting before reconnect")

	select {
	case <-time.After(delay):
	case <-c.ctx.Done():
	}
}
