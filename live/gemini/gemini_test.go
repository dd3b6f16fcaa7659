package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"go.aimuz.me/nexus/live"
)

func TestConnectConfig(t *testing.T) {
	cfg := live.DefaultConfig()
	cfg.LanguageCode = "en-US"
	cfg.SystemInstruction = "Be brief."

	lc := ConnectConfig(cfg)

	if len(lc.ResponseModalities) != 1 || lc.ResponseModalities[0] != genai.ModalityAudio {
		t.Errorf("ResponseModalities = %v, want [AUDIO]", lc.ResponseModalities)
	}
	if got := lc.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; got != "Zephyr" {
		t.Errorf("voice = %q, want Zephyr", got)
	}
	if lc.SpeechConfig.LanguageCode != "en-US" {
		t.Errorf("LanguageCode = %q", lc.SpeechConfig.LanguageCode)
	}
	if lc.OutputAudioTranscription == nil {
		t.Error("output transcription not requested")
	}
	if lc.SystemInstruction == nil || lc.SystemInstruction.Parts[0].Text != "Be brief." {
		t.Errorf("SystemInstruction = %+v", lc.SystemInstruction)
	}
}

func TestConnectConfigNoInstruction(t *testing.T) {
	if lc := ConnectConfig(live.DefaultConfig()); lc.SystemInstruction != nil {
		t.Error("empty instruction should be omitted")
	}
}

func TestServerMessage(t *testing.T) {
	tests := []struct {
		name       string
		msg        *genai.LiveServerMessage
		wantOK     bool
		wantAudio  int
		wantText   string
		wantInterr bool
	}{
		{
			name:   "nil",
			msg:    nil,
			wantOK: false,
		},
		{
			name:   "setup only",
			msg:    &genai.LiveServerMessage{SetupComplete: &genai.LiveServerSetupComplete{}},
			wantOK: false,
		},
		{
			name: "audio and transcript",
			msg: &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
				ModelTurn: &genai.Content{Parts: []*genai.Part{
					{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{1, 0, 2, 0}}},
					{Text: "ignored"},
					{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{3, 0}}},
				}},
				OutputTranscription: &genai.Transcription{Text: "Hi there"},
			}},
			wantOK:    true,
			wantAudio: 2,
			wantText:  "Hi there",
		},
		{
			name: "interrupted",
			msg: &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
				Interrupted: true,
			}},
			wantOK:     true,
			wantInterr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, ok := ServerMessage(tt.msg)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if len(sm.Audio) != tt.wantAudio {
				t.Errorf("audio parts = %d, want %d", len(sm.Audio), tt.wantAudio)
			}
			if sm.OutputTranscription != tt.wantText {
				t.Errorf("transcription = %q, want %q", sm.OutputTranscription, tt.wantText)
			}
			if sm.Interrupted != tt.wantInterr {
				t.Errorf("interrupted = %v, want %v", sm.Interrupted, tt.wantInterr)
			}
		})
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), ""); !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}
}
