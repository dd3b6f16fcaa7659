package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/nexus/audiocapture"
	"go.aimuz.me/nexus/config"
	"go.aimuz.me/nexus/internal/types"
	"go.aimuz.me/nexus/live"
	"go.aimuz.me/nexus/llm"
	"go.aimuz.me/nexus/pcm"
	"go.aimuz.me/nexus/playback"
)

// mockCompleter implements llm.Completer for testing.
type mockCompleter struct {
	result types.ChatResult
	err    error
	got    []llm.Message
}

func (m *mockCompleter) Complete(_ context.Context, msgs []llm.Message) (types.ChatResult, error) {
	m.got = msgs
	return m.result, m.err
}

// mockImageGenerator implements llm.ImageGenerator for testing.
type mockImageGenerator struct {
	got types.ImageRequest
	err error
}

func (m *mockImageGenerator) Generate(_ context.Context, req types.ImageRequest) (types.ImageResult, error) {
	m.got = req
	if m.err != nil {
		return types.ImageResult{}, m.err
	}
	return types.ImageResult{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}, nil
}

func TestBuildChatMessages(t *testing.T) {
	tests := []struct {
		name         string
		req          types.ChatRequest
		wantMsgCount int
		wantFirst    string
		wantUser     string
	}{
		{
			name:         "prompt only",
			req:          types.ChatRequest{Prompt: "What happened today?"},
			wantMsgCount: 1,
			wantFirst:    "user",
			wantUser:     "What happened today?",
		},
		{
			name:         "with system prompt",
			req:          types.ChatRequest{Prompt: "hi", SystemPrompt: "Be brief."},
			wantMsgCount: 2,
			wantFirst:    "system",
			wantUser:     "hi",
		},
		{
			name:         "prompt trimmed",
			req:          types.ChatRequest{Prompt: "  spaced \n"},
			wantMsgCount: 1,
			wantFirst:    "user",
			wantUser:     "spaced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := buildChatMessages(tt.req)
			if len(msgs) != tt.wantMsgCount {
				t.Fatalf("got %d messages, want %d", len(msgs), tt.wantMsgCount)
			}
			if msgs[0].Role != tt.wantFirst {
				t.Errorf("first role = %q, want %q", msgs[0].Role, tt.wantFirst)
			}
			last := msgs[len(msgs)-1]
			if last.Role != "user" || last.Content != tt.wantUser {
				t.Errorf("last message = %+v, want user %q", last, tt.wantUser)
			}
		})
	}
}

func TestChatterAsk(t *testing.T) {
	mock := &mockCompleter{result: types.ChatResult{
		Text:    "Sunny.",
		Sources: []types.Source{{Title: "Weather", URI: "https://example.com"}},
	}}
	c := NewChatter(mock)

	res, err := c.Ask(context.Background(), types.ChatRequest{Prompt: "weather?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Text != "Sunny." || len(res.Sources) != 1 {
		t.Errorf("Ask() = %+v", res)
	}
	if len(mock.got) != 1 {
		t.Errorf("completer got %d messages, want 1", len(mock.got))
	}
}

func TestChatterAskErrors(t *testing.T) {
	netErr := errors.New("dial tcp: timeout")
	c := NewChatter(&mockCompleter{err: netErr})

	if _, err := c.Ask(context.Background(), types.ChatRequest{Prompt: "   "}); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("blank prompt error = %v, want ErrEmptyPrompt", err)
	}
	_, err := c.Ask(context.Background(), types.ChatRequest{Prompt: "hi"})
	if !errors.Is(err, netErr) {
		t.Errorf("error = %v, want wrapped %v", err, netErr)
	}
}

func TestImagerGenerate(t *testing.T) {
	tests := []struct {
		name       string
		req        types.ImageRequest
		wantAspect string
		wantErr    bool
	}{
		{"default aspect", types.ImageRequest{Prompt: "a fox"}, "16:9", false},
		{"explicit aspect", types.ImageRequest{Prompt: "a fox", AspectRatio: "9:16"}, "9:16", false},
		{"bad aspect", types.ImageRequest{Prompt: "a fox", AspectRatio: "5:4"}, "", true},
		{"empty prompt", types.ImageRequest{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockImageGenerator{}
			im := NewImager(gen, "16:9")
			res, err := im.Generate(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if gen.got.AspectRatio != tt.wantAspect {
				t.Errorf("aspect = %q, want %q", gen.got.AspectRatio, tt.wantAspect)
			}
			if !strings.HasPrefix(llm.DataURL(res), "data:image/png;base64,") {
				t.Errorf("DataURL = %q", llm.DataURL(res))
			}
		})
	}
}

func TestServiceRequiresAPIKey(t *testing.T) {
	s := New(config.Default(), nil, "test")
	if _, err := s.Ask(context.Background(), "hi"); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("Ask error = %v, want ErrAPIKeyMissing", err)
	}
	if _, err := s.GenerateImage(context.Background(), types.ImageRequest{Prompt: "x"}); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("GenerateImage error = %v, want ErrAPIKeyMissing", err)
	}
	if _, err := s.ToggleLive(context.Background()); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("ToggleLive error = %v, want ErrAPIKeyMissing", err)
	}
	if st := s.GetLiveStatus(); st.State != "Idle" {
		t.Errorf("live state = %q, want Idle", st.State)
	}
	if s.GetVersion() != "test" {
		t.Errorf("GetVersion() = %q", s.GetVersion())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Live
// ─────────────────────────────────────────────────────────────────────────────

type stubConn struct{}

func (stubConn) SendAudio(context.Context, live.Blob) error { return nil }
func (stubConn) Close() error                               { return nil }

type stubConnector struct {
	mu      sync.Mutex
	handler live.Handler
}

func (c *stubConnector) Connect(_ context.Context, _ live.Config, h live.Handler) (live.Conn, error) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
	return stubConn{}, nil
}

func (c *stubConnector) remote() live.Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler
}

type stubCapture struct{}

func (stubCapture) Start(audiocapture.FrameHandler) error { return nil }
func (stubCapture) Stop() error                           { return nil }

func newTestAdapter(connector *stubConnector) *LiveAdapter {
	return NewLiveAdapter(live.DefaultConfig(), func(context.Context) (live.Connector, error) {
		return connector, nil
	}, live.Options{
		NewCapture: func(audiocapture.Config) (audiocapture.Capturer, error) { return stubCapture{}, nil },
		NewOutput:  live.MutedOutput,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestLiveAdapterToggle(t *testing.T) {
	la := newTestAdapter(&stubConnector{})
	t.Cleanup(la.StopAll)

	s, err := la.Toggle(context.Background())
	if err != nil || s == nil {
		t.Fatalf("Toggle on = %v, %v", s, err)
	}
	if st := la.Status(); st.SessionID != s.ID() {
		t.Errorf("Status().SessionID = %q, want %q", st.SessionID, s.ID())
	}

	again, err := la.Toggle(context.Background())
	if err != nil || again != nil {
		t.Fatalf("Toggle off = %v, %v; want nil session", again, err)
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("session still running after toggle off")
	}
}

func TestLiveAdapterForwardEvents(t *testing.T) {
	connector := &stubConnector{}
	la := newTestAdapter(connector)
	t.Cleanup(la.StopAll)

	s, err := la.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var (
		mu     sync.Mutex
		events = map[string]int{}
		texts  []string
	)
	forwarded := make(chan struct{})
	go func() {
		la.ForwardEvents(s, func(name string, data any) {
			mu.Lock()
			defer mu.Unlock()
			events[name]++
			if e, ok := data.(types.TranscriptEntry); ok {
				texts = append(texts, e.Text)
			}
		})
		close(forwarded)
	}()

	connector.remote().OnOpen()
	connector.remote().OnMessage(live.ServerMessage{OutputTranscription: "hello"})
	connector.remote().OnError(errors.New("boom"))

	select {
	case <-forwarded:
	case <-time.After(2 * time.Second):
		t.Fatal("ForwardEvents did not return after the session ended")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(texts) != 1 || texts[0] != "hello" {
		t.Errorf("transcripts = %v, want [hello]", texts)
	}
	if events[EventLiveStatus] == 0 {
		t.Error("no status events forwarded")
	}
	if events[EventLiveError] != 1 {
		t.Errorf("error events = %d, want 1", events[EventLiveError])
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Audio probes
// ─────────────────────────────────────────────────────────────────────────────

type toneCapture struct {
	frames [][]int16
	stop   int
}

func (c *toneCapture) Start(h audiocapture.FrameHandler) error {
	for _, f := range c.frames {
		h(f)
	}
	return nil
}

func (c *toneCapture) Stop() error {
	c.stop++
	return nil
}

func TestProbeMicrophone(t *testing.T) {
	loud := make([]int16, 4)
	for i := range loud {
		loud[i] = 16384
	}
	capture := &toneCapture{frames: [][]int16{make([]int16, 4), loud}}

	probe, err := ProbeMicrophone(context.Background(), 10*time.Millisecond, func(audiocapture.Config) (audiocapture.Capturer, error) {
		return capture, nil
	})
	if err != nil {
		t.Fatalf("ProbeMicrophone: %v", err)
	}
	if probe.Frames != 2 {
		t.Errorf("Frames = %d, want 2", probe.Frames)
	}
	if probe.PeakRMS != 0.5 {
		t.Errorf("PeakRMS = %v, want 0.5", probe.PeakRMS)
	}
	if probe.MeanRMS != 0.25 {
		t.Errorf("MeanRMS = %v, want 0.25", probe.MeanRMS)
	}
	if capture.stop != 1 {
		t.Errorf("capture stopped %d times, want 1", capture.stop)
	}
}

func TestProbeMicrophoneUnsupported(t *testing.T) {
	_, err := ProbeMicrophone(context.Background(), time.Millisecond, func(audiocapture.Config) (audiocapture.Capturer, error) {
		return nil, audiocapture.ErrUnsupported
	})
	if !errors.Is(err, audiocapture.ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestProbeSpeakerVirtual(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := ProbeSpeaker(ctx, 50*time.Millisecond, func(f pcm.Format) (playback.Output, error) {
		return playback.NewVirtualOutput(f, time.Millisecond), nil
	})
	if err != nil {
		t.Fatalf("ProbeSpeaker: %v", err)
	}
}

func TestSineTone(t *testing.T) {
	tone := sineTone(pcm.Output, 440, 100*time.Millisecond)
	if len(tone) != 2400 {
		t.Fatalf("len = %d, want 2400", len(tone))
	}
	if level := pcm.RMS(tone); level < 0.3 || level > 0.4 {
		t.Errorf("RMS = %v, want about 0.354", level)
	}
}
