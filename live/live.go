// Package live manages real-time voice sessions with the Gemini Live API.
//
// A Session captures the microphone, streams fixed-size PCM frames to a
// remote endpoint, and schedules the synthesized speech it receives for
// gapless playback. All inbound events are handled on a single goroutine per
// session, which owns the playback scheduler and the transcript log.
package live

import (
	"errors"

	"go.aimuz.me/nexus/audiocapture"
	"go.aimuz.me/nexus/pcm"
)

// State is the connection state of a Session.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateClosing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateClosing:
		return "closing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status lines shown to the user.
const (
	StatusIdle          = "Idle"
	StatusInitializing  = "Initializing..."
	StatusListening     = "Listening..."
	StatusError         = "Error occurred"
	StatusClosed        = "Closed"
	StatusConnectFailed = "Failed to connect"
)

var (
	// ErrSessionUsed is returned by Start on a Session that was already started.
	ErrSessionUsed = errors.New("live: session already started")
	// ErrNoConnector is returned by NewSession without a Connector.
	ErrNoConnector = errors.New("live: connector required")
	// ErrStopped is returned by Manager.Start when the session was stopped
	// before it finished starting.
	ErrStopped = errors.New("live: session stopped while starting")
	// ErrRemoteClosed is reported when the endpoint closes the session.
	ErrRemoteClosed = errors.New("live: remote closed session")
)

// Defaults for Config.
const (
	DefaultModel              = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultVoice              = "Zephyr"
	DefaultTranscriptCapacity = 11
	DefaultSendQueue          = 16
	DefaultDevice             = "default"
)

// Config describes one live session.
type Config struct {
	Model             string
	Voice             string
	LanguageCode      string // BCP 47, optional
	SystemInstruction string

	Device             string // capture device key; one session per device
	InputFormat        pcm.Format
	OutputFormat       pcm.Format
	FrameSamples       int
	TranscriptCapacity int
	SendQueue          int // frames buffered between capture and transport
}

// DefaultConfig returns the settings used by the live view.
func DefaultConfig() Config {
	return Config{
		Model:              DefaultModel,
		Voice:              DefaultVoice,
		Device:             DefaultDevice,
		InputFormat:        pcm.Input,
		OutputFormat:       pcm.Output,
		FrameSamples:       audiocapture.DefaultFrameSamples,
		TranscriptCapacity: DefaultTranscriptCapacity,
		SendQueue:          DefaultSendQueue,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Voice == "" {
		c.Voice = d.Voice
	}
	if c.Device == "" {
		c.Device = d.Device
	}
	if c.InputFormat.SampleRate <= 0 {
		c.InputFormat = d.InputFormat
	}
	if c.OutputFormat.SampleRate <= 0 {
		c.OutputFormat = d.OutputFormat
	}
	if c.FrameSamples <= 0 {
		c.FrameSamples = d.FrameSamples
	}
	if c.TranscriptCapacity <= 0 {
		c.TranscriptCapacity = d.TranscriptCapacity
	}
	if c.SendQueue <= 0 {
		c.SendQueue = d.SendQueue
	}
	return c
}
