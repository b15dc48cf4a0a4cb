package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// terminalView prints session output to a terminal or a plain stream.
type terminalView struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newTerminalView(out io.Writer, renderer *glamour.TermRenderer) *terminalView {
	return &terminalView{out: out, renderer: renderer}
}

func (v *terminalView) Greeting(restored int) {
	fmt.Fprintln(v.out, styleSpeakerAssistant.Render("Chatbot:")+" Hello! How can I help you? "+
		styleDim.Render("(type 'quit' or 'exit' to leave)"))
	if restored > 0 {
		fmt.Fprintln(v.out, styleRestored.Render(fmt.Sprintf("restored %d earlier turns", restored)))
	}
	fmt.Fprintln(v.out)
}

func (v *terminalView) Prompt() {
	fmt.Fprint(v.out, styleSpeakerUser.Render("You:")+" ")
}

func (v *terminalView) TokenStatus(total, limit int) {
	count := budgetStyle(total, limit).Render(fmt.Sprintf("%d/%d", total, limit))
	fmt.Fprintln(v.out, styleDim.Render("[tokens")+" "+count+styleDim.Render("]"))
}

func (v *terminalView) BeginReply() {
	fmt.Fprint(v.out, "\n"+styleSpeakerAssistant.Render("Chatbot:")+" ")
}

func (v *terminalView) Fragment(text string) {
	fmt.Fprint(v.out, text)
}

func (v *terminalView) EndReply() {
	fmt.Fprint(v.out, "\n\n")
}

func (v *terminalView) Reply(text string) {
	fmt.Fprintln(v.out, "\n"+styleSpeakerAssistant.Render("Chatbot:"))

	if v.renderer != nil {
		if rendered, err := v.renderer.Render(text); err == nil {
			fmt.Fprint(v.out, strings.TrimRight(rendered, "\n")+"\n\n")
			return
		}
	}

	fmt.Fprint(v.out, text+"\n\n")
}

func (v *terminalView) Warn(op string, err error) {
	fmt.Fprintln(v.out, styledError(op+" failed", err.Error()))
}
