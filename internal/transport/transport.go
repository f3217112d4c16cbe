// Package transport owns the single logical websocket connection to the
// bot backend. It re-establishes the connection when it drops, keeps a
// heartbeat running while open, and classifies inbound frames into typed
// events for the session machine. It never touches session state;
// everything crosses over as messages.
package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aussiebot/console/internal/wire"
	"github.com/aussiebot/console/pkg/logger"
	"github.com/aussiebot/console/pkg/metrics"
)

// EventKind discriminates transport events.
type EventKind int

const (
	// EventConnected is raised after a successful dial.
	EventConnected EventKind = iota
	// EventDisconnected is raised when the connection drops.
	EventDisconnected
	// EventFrame carries one classified inbound frame.
	EventFrame
)

// Event is one item on the transport's outbound event stream.
type Event struct {
	Kind    EventKind
	Inbound wire.Inbound
}

// Config controls dialing and keepalive behaviour.
type Config struct {
	// URL is the backend websocket endpoint.
	URL string

	// HeartbeatInterval is how often a ping sentinel is sent while open.
	HeartbeatInterval time.Duration

	// ReconnectDelay is the fixed pause between reconnect attempts.
	ReconnectDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 3 * time.Second
	}
	return c
}

// Channel is the websocket actor. Create with New, start with Run, consume
// Events and call Send from any goroutine.
type Channel struct {
	cfg     Config
	log     logger.Logger
	metrics *metrics.Metrics

	events chan Event

	mu   sync.Mutex
	conn *websocket.Conn
}

// New creates a channel. Run must be called before events flow.
func New(cfg Config, log logger.Logger, m *metrics.Metrics) *Channel {
	return &Channel{
		cfg:     cfg.withDefaults(),
		log:     log,
		metrics: m,
		events:  make(chan Event, 64),
	}
}

// Events returns the stream of lifecycle and frame events, in arrival order.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Send marshals v and transmits it. Sends attempted while the connection
// is closed are dropped, not queued; the session machine re-issues its
// requests when it re-enters auth after a reconnect.
func (c *Channel) Send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("failed to encode outbound frame", logger.ErrorField(err))
		return
	}
	c.sendRaw(data)
}

func (c *Channel) sendRaw(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		c.metrics.IncrementTransportCounter(metrics.TransportSendsWhileClosed)
		c.log.Debug("dropping send, connection closed")
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Warn("failed to write frame", logger.ErrorField(err))
		return
	}
	c.metrics.IncrementTransportCounter(metrics.TransportFramesSent)
}

// Run dials and pumps until ctx is cancelled. Each established connection
// gets its own heartbeat; on drop the heartbeat stops, a Disconnected
// event is raised and a reconnect is attempted after a fixed delay.
func (c *Channel) Run(ctx context.Context) {
	first := true
	for {
		if ctx.Err() != nil {
			return
		}
		if !first {
			c.metrics.IncrementTransportCounter(metrics.TransportReconnects)
			select {
			case <-time.After(c.cfg.ReconnectDelay):
			case <-ctx.Done():
				return
			}
		}
		first = false

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			c.log.Warn("dial failed", logger.StringField("url", c.cfg.URL), logger.ErrorField(err))
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.log.Info("connected", logger.StringField("url", c.cfg.URL))
		c.emit(ctx, Event{Kind: EventConnected})

		stopHeartbeat := make(chan struct{})
		go c.heartbeat(stopHeartbeat)

		// the read pump blocks in ReadMessage, so cancellation has to
		// close the connection out from under it
		watchDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-watchDone:
			}
		}()

		c.readPump(ctx, conn)

		close(watchDone)
		close(stopHeartbeat)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()

		c.log.Info("disconnected")
		c.emit(ctx, Event{Kind: EventDisconnected})
	}
}

func (c *Channel) heartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sendRaw([]byte(wire.HeartbeatPing))
			c.metrics.IncrementTransportCounter(metrics.TransportHeartbeats)
		case <-stop:
			return
		}
	}
}

func (c *Channel) readPump(ctx context.Context, conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Debug("read failed", logger.ErrorField(err))
			}
			return
		}
		c.metrics.IncrementTransportCounter(metrics.TransportFramesReceived)

		if string(frame) == wire.HeartbeatPong {
			continue
		}

		inbound, err := wire.Classify(frame)
		if err != nil {
			// the server is trusted but its protocol may drift, so
			// unrecognized frames are dropped without alerting anyone
			c.metrics.IncrementTransportCounter(metrics.TransportFramesDropped)
			c.log.Debug("dropping unrecognized frame", logger.ErrorField(err))
			continue
		}
		c.emit(ctx, Event{Kind: EventFrame, Inbound: inbound})
	}
}

func (c *Channel) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}
