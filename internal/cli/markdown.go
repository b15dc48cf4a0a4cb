package cli

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

func compactStyle() ansi.StyleConfig {
	var style ansi.StyleConfig
	if termenv.HasDarkBackground() {
		style = glamourstyles.DarkStyleConfig
	} else {
		style = glamourstyles.LightStyleConfig
	}

	zero := uint(0)
	style.Document.Margin = &zero
	style.Document.BlockPrefix = ""
	style.Document.BlockSuffix = ""
	return style
}

// newMarkdownRenderer returns nil when the renderer cannot be built; callers
// then print replies verbatim.
func newMarkdownRenderer() *glamour.TermRenderer {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(compactStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
