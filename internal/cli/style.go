package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	primary = lipgloss.Color("#00ff9f")
	dim     = lipgloss.Color("#6e7681")
	danger  = lipgloss.Color("#ff5f5f")

	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	statusStyle  = lipgloss.NewStyle().Foreground(dim).Italic(true)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(danger)
	okStyle      = lipgloss.NewStyle().Foreground(primary)
	helpStyle    = lipgloss.NewStyle().Foreground(dim)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1)
	linkStyle    = lipgloss.NewStyle().Underline(true)
)

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func stdinIsTerminal() bool { return isTerminal(os.Stdin) }

func writerIsTerminal(w io.Writer) bool { return isTerminal(w) }

// levelBar renders a [0, 1] level as a fixed-width meter.
func levelBar(level float64, width int) string {
	n := int(level * float64(width) * 4) // 0.25 RMS fills the meter
	n = min(max(n, 0), width)
	bar := make([]rune, width)
	for i := range bar {
		if i < n {
			bar[i] = '█'
		} else {
			bar[i] = '·'
		}
	}
	return string(bar)
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
