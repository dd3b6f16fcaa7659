package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go.aimuz.me/nexus/internal/app"
	"go.aimuz.me/nexus/internal/types"
	"go.aimuz.me/nexus/llm"
)

var imageFlags struct {
	aspect string
	model  string
	raw    bool
}

var imageCmd = &cobra.Command{
	Use:   "image prompt...",
	Short: "Generate an image",
	Long: `Generate one image from a prompt.

The image is printed as a data URL. With --raw the image bytes are written
to stdout instead, for redirection into a file or an image viewer.

Examples:
  nexus image "a lighthouse at dusk, watercolor"
  nexus image --aspect 16:9 --raw "city skyline at night" > skyline.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImage,
}

func init() {
	f := imageCmd.Flags()
	f.StringVar(&imageFlags.aspect, "aspect", "", "aspect ratio: "+strings.Join(llm.AspectRatios, ", "))
	f.StringVar(&imageFlags.model, "model", "", "image model")
	f.BoolVar(&imageFlags.raw, "raw", false, "write image bytes to stdout")
}

func runImage(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if imageFlags.raw && writerIsTerminal(out) {
		return fmt.Errorf("refusing to write image bytes to a terminal; redirect stdout or drop --raw")
	}
	if imageFlags.model != "" {
		cfg.Image.Model = imageFlags.model
	}

	svc := app.New(cfg, nil, build.Version)
	defer svc.Shutdown()

	img, err := svc.GenerateImage(cmd.Context(), types.ImageRequest{
		Prompt:      strings.Join(args, " "),
		AspectRatio: imageFlags.aspect,
	})
	if err != nil {
		return err
	}

	if img.Text != "" {
		fmt.Fprintln(os.Stderr, helpStyle.Render(img.Text))
	}
	if imageFlags.raw {
		_, err := out.Write(img.Data)
		return err
	}
	fmt.Fprintln(out, llm.DataURL(img))
	return nil
}
