package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.aimuz.me/nexus/live"
	"go.aimuz.me/nexus/pcm"
)

// ─────────────────────────────────────────────────────────────────────────────
// Client messages
// ─────────────────────────────────────────────────────────────────────────────

// SetupMessage is the first message on a BidiGenerateContent stream.
type SetupMessage struct {
	Setup Setup `json:"setup"`
}

// Setup configures the session.
type Setup struct {
	Model                    string            `json:"model"`
	GenerationConfig         *GenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *Content          `json:"systemInstruction,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

// GenerationConfig selects the response modality and voice.
type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

type SpeechConfig struct {
	VoiceConfig  *VoiceConfig `json:"voiceConfig,omitempty"`
	LanguageCode string       `json:"languageCode,omitempty"`
}

type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// RealtimeInputMessage streams one media chunk.
type RealtimeInputMessage struct {
	RealtimeInput RealtimeInput `json:"realtimeInput"`
}

type RealtimeInput struct {
	Audio *InlineData `json:"audio,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Server messages
// ─────────────────────────────────────────────────────────────────────────────

// ServerEvent is any message received from the endpoint. Exactly one field is
// normally set.
type ServerEvent struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

type ServerContent struct {
	ModelTurn           *Content       `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
}

type Transcription struct {
	Text string `json:"text"`
}

type GoAway struct {
	TimeLeft string `json:"timeLeft"`
}

type UsageMetadata struct {
	PromptTokenCount   int `json:"promptTokenCount"`
	ResponseTokenCount int `json:"responseTokenCount"`
	TotalTokenCount    int `json:"totalTokenCount"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64-encoded media.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Builders
// ─────────────────────────────────────────────────────────────────────────────

// NewSetup builds the setup message for cfg.
func NewSetup(cfg live.Config) SetupMessage {
	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	s := Setup{
		Model: model,
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &SpeechConfig{
				VoiceConfig: &VoiceConfig{
					PrebuiltVoiceConfig: &PrebuiltVoiceConfig{VoiceName: cfg.Voice},
				},
				LanguageCode: cfg.LanguageCode,
			},
		},
		OutputAudioTranscription: &struct{}{},
	}
	if cfg.SystemInstruction != "" {
		s.SystemInstruction = &Content{Parts: []Part{{Text: cfg.SystemInstruction}}}
	}
	return SetupMessage{Setup: s}
}

// NewAudioInput wraps a raw PCM16 blob, base64-encoding the samples.
func NewAudioInput(blob live.Blob) RealtimeInputMessage {
	return RealtimeInputMessage{RealtimeInput: RealtimeInput{
		Audio: &InlineData{MIMEType: blob.MIMEType, Data: pcm.EncodeWire(blob.Data)},
	}}
}

// ParseEvent decodes one server frame.
func ParseEvent(data []byte) (ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ServerEvent{}, fmt.Errorf("unmarshal server event: %w", err)
	}
	return ev, nil
}

// ServerMessage converts server content, decoding inline audio. Audio parts
// that fail to decode are skipped and reported in skipped.
func (ev ServerEvent) ServerMessage() (sm live.ServerMessage, skipped int, ok bool) {
	sc := ev.ServerContent
	if sc == nil {
		return live.ServerMessage{}, 0, false
	}
	sm.SetupComplete = ev.SetupComplete != nil
	sm.Interrupted = sc.Interrupted
	sm.TurnComplete = sc.TurnComplete
	if sc.OutputTranscription != nil {
		sm.OutputTranscription = sc.OutputTranscription.Text
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
				continue
			}
			data, err := pcm.DecodeWire(part.InlineData.Data)
			if err != nil {
				skipped++
				continue
			}
			sm.Audio = append(sm.Audio, data)
		}
	}
	return sm, skipped, true
}
