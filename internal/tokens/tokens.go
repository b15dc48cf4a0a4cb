// Package tokens counts the token cost of message content.
package tokens

import (
	"fmt"
	"log/slog"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding matches the encoding used by most chat models this client talks to.
const DefaultEncoding = "cl100k_base"

// HeuristicEncoding selects the byte-length estimate without loading any BPE ranks.
const HeuristicEncoding = "heuristic"

// Counter returns the token count of text. Implementations must be deterministic
// and never return a negative number.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a plain function to Counter.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int {
	if n := f(text); n > 0 {
		return n
	}
	return 0
}

// Tiktoken counts tokens with a BPE encoding.
type Tiktoken struct {
	encoding string
	enc      *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding. The first call may fetch the BPE ranks.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}

	return &Tiktoken{encoding: encoding, enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

func (t *Tiktoken) Encoding() string {
	return t.encoding
}

// Heuristic estimates one token per four bytes, rounding up.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	return (len(text) + 3) / 4
}

// New returns a tiktoken counter for encoding, or the heuristic when the
// encoding cannot be loaded.
func New(encoding string, logger *slog.Logger) Counter {
	if encoding == HeuristicEncoding {
		return Heuristic{}
	}

	counter, err := NewTiktoken(encoding)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("token encoding unavailable, using estimate", "encoding", encoding, "error", err)
		return Heuristic{}
	}

	if logger != nil {
		logger.Debug("token counter ready", "encoding", counter.Encoding())
	}
	return counter
}

// Sum returns the summed count of every text.
func Sum(counter Counter, texts ...string) int {
	total := 0
	for _, text := range texts {
		total += counter.Count(text)
	}
	return total
}
