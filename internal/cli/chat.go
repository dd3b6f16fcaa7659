package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"go.aimuz.me/nexus/internal/app"
	"go.aimuz.me/nexus/internal/types"
)

var chatFlags struct {
	model     string
	provider  string
	noSources bool
	noSearch  bool
}

var chatCmd = &cobra.Command{
	Use:   "chat [prompt...]",
	Short: "Ask the grounded chat model",
	Long: `Send a prompt to the chat model. With the Gemini provider answers are
grounded with Google Search and the cited web pages are listed below the
answer. Every prompt is independent; no conversation history is kept.

Without arguments an interactive prompt is started.

Examples:
  nexus chat "what launched at the keynote today?"
  nexus chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatFlags.model, "model", "", "chat model")
	chatCmd.Flags().StringVar(&chatFlags.provider, "provider", "", "gemini, openai or openai-compatible")
	chatCmd.Flags().BoolVar(&chatFlags.noSources, "no-sources", false, "do not print grounding sources")
	chatCmd.Flags().BoolVar(&chatFlags.noSearch, "no-search", false, "disable Google Search grounding")
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatFlags.provider != "" {
		cfg.Chat.Provider = chatFlags.provider
	}
	if chatFlags.model != "" {
		cfg.Chat.Model = chatFlags.model
	}
	if chatFlags.noSearch {
		cfg.Chat.Grounding = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc := app.New(cfg, nil, build.Version)
	defer svc.Shutdown()
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		return ask(cmd, svc, out, strings.Join(args, " "))
	}

	interactive := stdinIsTerminal()
	if interactive {
		fmt.Fprintln(out, titleStyle.Render("nexus chat")+helpStyle.Render("empty line or Ctrl-D to quit"))
	}
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		if interactive {
			fmt.Fprint(out, speakerStyle.Render("> "))
		}
		if !sc.Scan() {
			return sc.Err()
		}
		prompt := strings.TrimSpace(sc.Text())
		if prompt == "" {
			if interactive {
				return nil
			}
			continue
		}
		if err := ask(cmd, svc, out, prompt); err != nil && (!interactive || errors.Is(err, app.ErrAPIKeyMissing)) {
			return err
		}
	}
}

func ask(cmd *cobra.Command, svc *app.Service, out io.Writer, prompt string) error {
	res, err := svc.Ask(cmd.Context(), prompt)
	if err != nil {
		slog.Debug("chat request failed", "error", err)
		if errors.Is(err, app.ErrAPIKeyMissing) {
			return err
		}
		fmt.Fprintln(out, errorStyle.Render(app.ChatErrorMessage))
		return err
	}
	printChatResult(out, res)
	return nil
}

func printChatResult(out io.Writer, res types.ChatResult) {
	fmt.Fprintln(out, strings.TrimSpace(res.Text))
	if !chatFlags.noSources && len(res.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, helpStyle.Render("Sources:"))
		for i, s := range res.Sources {
			fmt.Fprintf(out, "  %d. %s\n     %s\n", i+1, s.Title, linkStyle.Render(s.URI))
		}
	}
	if res.Usage.TotalTokens > 0 {
		slog.Debug("chat usage", "prompt_tokens", res.Usage.PromptTokens, "completion_tokens", res.Usage.CompletionTokens)
	}
}
