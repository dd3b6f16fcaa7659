package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go.aimuz.me/nexus/internal/app"
)

var doctorFlags struct {
	listen    time.Duration
	noSpeaker bool
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, microphone and speaker",
	Long: `Run local checks before a live session: configuration, API key,
microphone input level and speaker output. Speak during the microphone
check to see the level meter move.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().DurationVar(&doctorFlags.listen, "listen", 2*time.Second, "microphone check duration")
	doctorCmd.Flags().BoolVar(&doctorFlags.noSpeaker, "no-speaker", false, "skip the speaker tone")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	failed := 0

	check := func(name string, err error, detail string) {
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %-12s %v\n", errorStyle.Render("✗"), name, err)
			return
		}
		fmt.Fprintf(out, "%s %-12s %s\n", okStyle.Render("✓"), name, detail)
	}

	path := cfg.FilePath()
	if _, err := os.Stat(path); err != nil {
		check("config", nil, path+helpStyle.Render(" (not found, using defaults)"))
	} else {
		check("config", nil, path)
	}

	if cfg.APIKey == "" {
		check("api key", app.ErrAPIKeyMissing, "")
	} else {
		check("api key", nil, mask(cfg.APIKey))
	}
	check("live", nil, fmt.Sprintf("%s · voice %s · %s", cfg.Live.Model, cfg.Live.Voice, cfg.Live.Transport))

	fmt.Fprintln(out, helpStyle.Render(fmt.Sprintf("listening for %s...", doctorFlags.listen)))
	probe, err := app.ProbeMicrophone(ctx, doctorFlags.listen, nil)
	if err != nil {
		check("microphone", err, "")
	} else {
		check("microphone", nil, fmt.Sprintf("%s %.3f peak · %d frames", levelBar(probe.PeakRMS, 20), probe.PeakRMS, probe.Frames))
		if probe.Frames == 0 {
			warn(out, "no audio frames arrived; check input permissions")
		}
	}

	if !doctorFlags.noSpeaker {
		speakerCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := app.ProbeSpeaker(speakerCtx, 400*time.Millisecond, nil)
		cancel()
		check("speaker", err, "played 440 Hz tone")
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func warn(out io.Writer, msg string) {
	fmt.Fprintln(out, "  "+statusStyle.Render(msg))
}
