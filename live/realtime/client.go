// Package realtime speaks the Gemini Live BidiGenerateContent protocol
// directly over a websocket.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"go.aimuz.me/nexus/live"
)

// DefaultURL is the Gemini Live websocket endpoint.
const DefaultURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// ErrAPIKeyRequired is returned by NewConnector without a key.
var ErrAPIKeyRequired = errors.New("realtime: API key required")

// ConnectorConfig holds configuration for the websocket transport.
type ConnectorConfig struct {
	APIKey      string
	URL         string
	DialTimeout time.Duration
}

// Connector dials the Live endpoint.
type Connector struct {
	cfg    ConnectorConfig
	dialer *websocket.Dialer
}

// NewConnector creates a Connector.
func NewConnector(cfg ConnectorConfig) (*Connector, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 15 * time.Second
	}
	return &Connector{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
		},
	}, nil
}

func (c *Connector) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials, sends the setup message and starts the read loop. The
// handler's OnOpen fires when the endpoint acknowledges setup.
func (c *Connector) Connect(ctx context.Context, cfg live.Config, h live.Handler) (live.Conn, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	ws, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	client := &Client{conn: ws, handler: h}
	if err := client.send(NewSetup(cfg)); err != nil {
		ws.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}

	go client.readLoop()
	return client, nil
}

// Client is one open Live websocket.
type Client struct {
	conn    *websocket.Conn
	handler live.Handler

	writeMu sync.Mutex
	closed  atomic.Bool
}

// SendAudio streams one realtime audio chunk.
func (c *Client) SendAudio(ctx context.Context, blob live.Blob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(NewAudioInput(blob))
}

func (c *Client) send(msg any) error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal closure and closes the socket. It does not wait for
// the read loop.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		slog.Debug("write close frame", "error", err)
	}
	return c.conn.Close()
}

func (c *Client) readLoop() {
	opened := false
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) && (ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway) {
				c.handler.OnClose(ce.Text)
				return
			}
			c.handler.OnError(fmt.Errorf("websocket read: %w", err))
			return
		}

		ev, err := ParseEvent(data)
		if err != nil {
			slog.Error("failed to parse live event", "error", err, "bytes", len(data))
			continue
		}
		if ev.SetupComplete != nil && !opened {
			opened = true
			c.handler.OnOpen()
		}
		if ev.GoAway != nil {
			slog.Warn("live endpoint going away", "time_left", ev.GoAway.TimeLeft)
		}
		if ev.UsageMetadata != nil {
			slog.Debug("live usage", "total_tokens", ev.UsageMetadata.TotalTokenCount)
		}
		sm, skipped, ok := ev.ServerMessage()
		if skipped > 0 {
			slog.Warn("dropped undecodable audio parts", "count", skipped)
		}
		if ok {
			c.handler.OnMessage(sm)
		}
	}
}
