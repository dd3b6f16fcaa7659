// Package types provides shared type definitions for the application.
package types

import "time"

// Usage represents token usage statistics from LLM API calls.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// DefaultMaxTokens is the default max tokens if not specified.
const DefaultMaxTokens = 2048

// DefaultTemperature is the default temperature if not specified.
const DefaultTemperature = 0.7

// ─────────────────────────────────────────────────────────────────────────────
// Chat & Image Types
// ─────────────────────────────────────────────────────────────────────────────

// ChatRequest is a single user prompt. Prompts are independent; no history
// is carried between requests.
type ChatRequest struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// Source is a web page cited by a grounded answer.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// ChatResult is the model's answer and its grounding sources.
type ChatResult struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
	Usage   Usage    `json:"usage"`
}

// ImageRequest asks for one generated image.
type ImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
}

// ImageResult holds one generated image.
type ImageResult struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
	Text     string `json:"text,omitempty"` // accompanying model text, if any
}

// ─────────────────────────────────────────────────────────────────────────────
// Live Session Types
// ─────────────────────────────────────────────────────────────────────────────

// SpeakerAI tags transcript fragments spoken by the model.
const SpeakerAI = "AI"

// TranscriptEntry is one transcript fragment. Entries are never edited.
type TranscriptEntry struct {
	Seq       int    `json:"seq"`       // position within the session
	Speaker   string `json:"speaker"`   // always SpeakerAI today
	Text      string `json:"text"`      // fragment as received
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// LiveStatus is a snapshot of a live session.
type LiveStatus struct {
	SessionID       string        `json:"sessionId"`
	State           string        `json:"state"`
	Status          string        `json:"status"` // user-facing status line
	Active          bool          `json:"active"`
	StartedAt       time.Time     `json:"startedAt"`
	Duration        time.Duration `json:"duration"`
	TranscriptCount int           `json:"transcriptCount"`
	UserSpeaking    bool          `json:"userSpeaking"`
	ActiveChunks    int           `json:"activeChunks"`
	FramesSent      int64         `json:"framesSent"`
	FramesDropped   int64         `json:"framesDropped"`
}

// VoiceActivity reports a change in local speech detected on the microphone.
type VoiceActivity struct {
	Speaking  bool    `json:"speaking"`
	Level     float64 `json:"level"`     // frame RMS in [0, 1]
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
}
