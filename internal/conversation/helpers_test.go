package conversation

import (
	"strings"
	"testing"

	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/tokens"
)

// wordCounter charges one token per whitespace-separated word.
var wordCounter = tokens.CounterFunc(func(text string) int {
	return len(strings.Fields(text))
})

// words returns a string costing n tokens under wordCounter.
func words(n int, tag string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = tag
	}
	return strings.Join(parts, " ")
}

func contents(t *testing.T, tr *Transcript) []string {
	t.Helper()

	msgs := tr.Messages()
	out := make([]string, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Content
	}
	return out
}

func newTestTranscript(anchorTokens int, turns ...core.Message) *Transcript {
	tr := NewTranscript(words(anchorTokens, "sys"))
	for _, turn := range turns {
		tr.Append(turn)
	}
	return tr
}
