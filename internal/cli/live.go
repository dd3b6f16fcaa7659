package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go.aimuz.me/nexus/hotkey"
	"go.aimuz.me/nexus/internal/app"
	"go.aimuz.me/nexus/internal/metrics"
	"go.aimuz.me/nexus/internal/types"
)

var liveFlags struct {
	transport   string
	voice       string
	model       string
	language    string
	mute        bool
	hotkey      string
	metricsAddr string
	noAutostart bool
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Real-time voice conversation",
	Long: `Start a bidirectional voice session with the Gemini Live API.

Speak into the default microphone; the model answers through the speaker
and its spoken words are printed as a transcript. Talking over the model
interrupts its playback.

Controls:
  Enter   start or stop the session
  s       print session status
  q       quit (also Ctrl-C)

Examples:
  nexus live
  nexus live --voice Puck --transport websocket
  nexus live --hotkey ctrl+shift+l --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	f := liveCmd.Flags()
	f.StringVar(&liveFlags.transport, "transport", "", "live transport: sdk or websocket")
	f.StringVar(&liveFlags.voice, "voice", "", "prebuilt voice name")
	f.StringVar(&liveFlags.model, "model", "", "live model")
	f.StringVar(&liveFlags.language, "language", "", "BCP 47 language code for speech output")
	f.BoolVar(&liveFlags.mute, "mute", false, "discard model audio, print transcript only")
	f.StringVar(&liveFlags.hotkey, "hotkey", "", "global toggle hotkey, e.g. ctrl+shift+l")
	f.StringVar(&liveFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&liveFlags.noAutostart, "no-autostart", false, "wait for Enter before starting")
}

func applyLiveFlags() error {
	if liveFlags.transport != "" {
		cfg.Live.Transport = liveFlags.transport
	}
	if liveFlags.voice != "" {
		cfg.Live.Voice = liveFlags.voice
	}
	if liveFlags.model != "" {
		cfg.Live.Model = liveFlags.model
	}
	if liveFlags.language != "" {
		cfg.Live.Language = liveFlags.language
	}
	if liveFlags.mute {
		cfg.Live.Muted = true
	}
	if liveFlags.hotkey != "" {
		cfg.Live.Hotkey = liveFlags.hotkey
	}
	return cfg.Validate()
}

func runLive(cmd *cobra.Command, _ []string) error {
	if err := applyLiveFlags(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewLive("nexus")
	if liveFlags.metricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, liveFlags.metricsAddr); err != nil {
				slog.Error("metrics server", "addr", liveFlags.metricsAddr, "error", err)
			}
		}()
	}

	svc := app.New(cfg, m, build.Version)
	defer svc.Shutdown()

	out := cmd.OutOrStdout()
	r := &liveRenderer{w: out}
	svc.SetEmitter(r.emit)

	toggles := make(chan struct{}, 1)
	requestToggle := func() {
		select {
		case toggles <- struct{}{}:
		default:
		}
	}

	if cfg.Live.Hotkey != "" {
		hk, err := hotkey.NewManager(cfg.Live.Hotkey, requestToggle)
		if err != nil {
			return fmt.Errorf("hotkey: %w", err)
		}
		if err := hk.Start(); err != nil {
			return fmt.Errorf("hotkey: %w", err)
		}
		defer hk.Stop()
	}

	fmt.Fprintln(out, titleStyle.Render("nexus live")+helpStyle.Render(fmt.Sprintf("%s · voice %s · %s", cfg.Live.Model, cfg.Live.Voice, cfg.Live.Transport)))
	help := "Enter: start/stop · s: status · q: quit"
	if cfg.Live.Hotkey != "" {
		help += " · " + cfg.Live.Hotkey + ": start/stop"
	}
	fmt.Fprintln(out, helpStyle.Render(help))

	if !liveFlags.noAutostart {
		requestToggle()
	}

	lines := readLines(ctx, cmd.InOrStdin())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-toggles:
			if _, err := svc.ToggleLive(ctx); err != nil {
				r.printError(err)
				if errors.Is(err, app.ErrAPIKeyMissing) {
					return err
				}
			}
		case line, ok := <-lines:
			if !ok {
				// stdin closed: keep running until interrupted
				lines = nil
				continue
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
				requestToggle()
			case "s", "status":
				r.printStatus(svc.GetLiveStatus())
			case "q", "quit", "exit":
				return nil
			default:
				fmt.Fprintln(out, helpStyle.Render(help))
			}
		}
	}
}

// readLines delivers stdin lines until ctx is done or input ends.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// liveRenderer prints session events. Events arrive from several goroutines.
type liveRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

func (r *liveRenderer) emit(name string, data any) {
	switch name {
	case app.EventLiveTranscript:
		if e, ok := data.(types.TranscriptEntry); ok {
			r.println(speakerStyle.Render(e.Speaker+":") + " " + e.Text)
		}
	case app.EventLiveStatus:
		if st, ok := data.(types.LiveStatus); ok {
			r.println(statusStyle.Render("· " + st.Status))
		}
	case app.EventLiveVAD:
		if a, ok := data.(types.VoiceActivity); ok && a.Speaking {
			r.println(statusStyle.Render("· you are speaking"))
		}
	case app.EventLiveError:
		if err, ok := data.(error); ok {
			r.printError(err)
		}
	}
}

func (r *liveRenderer) printStatus(st types.LiveStatus) {
	if st.SessionID == "" {
		r.println(statusStyle.Render("no session · " + st.Status))
		return
	}
	r.println(statusStyle.Render(fmt.Sprintf(
		"session %s · %s (%s) · %s · transcript %d · playing %d · frames sent %d dropped %d · speaking %t",
		st.SessionID[:8], st.Status, st.State, st.Duration.Round(time.Second), st.TranscriptCount,
		st.ActiveChunks, st.FramesSent, st.FramesDropped, st.UserSpeaking,
	)))
}

func (r *liveRenderer) printError(err error) {
	r.println(errorStyle.Render("error: ") + err.Error())
}

func (r *liveRenderer) println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, s)
}
