package live

import "context"

// Blob is an outbound media payload. Data holds raw PCM16; the transport
// applies the wire encoding.
type Blob struct {
	MIMEType string
	Data     []byte
}

// ServerMessage is one inbound message, normalized across transports.
type ServerMessage struct {
	SetupComplete bool
	// Audio holds synthesized PCM16 fragments in arrival order, already
	// decoded from the wire encoding.
	Audio               [][]byte
	OutputTranscription string
	Interrupted         bool
	TurnComplete        bool
}

// Handler receives the four remote session events. A transport calls them
// from its receive goroutine, in order, and calls OnError or OnClose at most
// once in total.
type Handler interface {
	// OnOpen reports that the endpoint is ready for audio.
	OnOpen()
	OnMessage(msg ServerMessage)
	OnError(err error)
	OnClose(reason string)
}

// Conn is an open remote session.
type Conn interface {
	SendAudio(ctx context.Context, blob Blob) error
	// Close releases the connection. It does not invoke Handler.OnClose.
	Close() error
}

// Connector opens remote sessions.
type Connector interface {
	Connect(ctx context.Context, cfg Config, h Handler) (Conn, error)
}
