// Package gemini connects live sessions through the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"go.aimuz.me/nexus/live"
)

// ErrAPIKeyRequired is returned by New without a key.
var ErrAPIKeyRequired = errors.New("gemini: API key required")

// Connector opens live sessions with a genai client.
type Connector struct {
	client *genai.Client
}

// New creates a Connector for the Gemini Developer API.
func New(ctx context.Context, apiKey string) (*Connector, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Connector{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *genai.Client) *Connector {
	return &Connector{client: client}
}

// Connect opens a session and starts its receive loop.
func (c *Connector) Connect(ctx context.Context, cfg live.Config, h live.Handler) (live.Conn, error) {
	session, err := c.client.Live.Connect(ctx, cfg.Model, ConnectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("live connect: %w", err)
	}

	conn := &conn{session: session, handler: h}
	go conn.receive()
	return conn, nil
}

// ConnectConfig maps a session config onto the SDK's connect options: audio
// responses in the configured voice, with output transcription.
func ConnectConfig(cfg live.Config) *genai.LiveConnectConfig {
	lc := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
			LanguageCode: cfg.LanguageCode,
		},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if cfg.SystemInstruction != "" {
		lc.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	return lc
}

type conn struct {
	session *genai.Session
	handler live.Handler

	sendMu sync.Mutex
	closed atomic.Bool
	opened bool
}

func (c *conn) SendAudio(ctx context.Context, blob live.Blob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return net.ErrClosed
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: blob.MIMEType, Data: blob.Data},
	})
}

func (c *conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.session.Close()
}

func (c *conn) receive() {
	for {
		msg, err := c.session.Receive()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.handler.OnClose(err.Error())
				return
			}
			c.handler.OnError(fmt.Errorf("live receive: %w", err))
			return
		}

		if msg.SetupComplete != nil && !c.opened {
			c.opened = true
			c.handler.OnOpen()
		}
		if msg.GoAway != nil {
			slog.Warn("live endpoint going away", "time_left", msg.GoAway.TimeLeft)
		}
		if sm, ok := ServerMessage(msg); ok {
			c.handler.OnMessage(sm)
		}
	}
}

// ServerMessage extracts the parts of msg a session acts on. ok is false when
// msg carries no server content.
func ServerMessage(msg *genai.LiveServerMessage) (sm live.ServerMessage, ok bool) {
	if msg == nil || msg.ServerContent == nil {
		return live.ServerMessage{}, false
	}
	sc := msg.ServerContent

	sm.SetupComplete = msg.SetupComplete != nil
	sm.Interrupted = sc.Interrupted
	sm.TurnComplete = sc.TurnComplete
	if sc.OutputTranscription != nil {
		sm.OutputTranscription = sc.OutputTranscription.Text
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			sm.Audio = append(sm.Audio, part.InlineData.Data)
		}
	}
	return sm, true
}
