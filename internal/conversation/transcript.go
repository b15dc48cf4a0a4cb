// Package conversation holds the session transcript and the policy that keeps it under a token budget.
package conversation

import "github.com/erg0nix/parley/internal/core"

// Transcript is the ordered history of one session. Index 0 is the anchor and
// is never evicted.
type Transcript struct {
	messages []core.Message
}

// NewTranscript starts a fresh transcript seeded with a single system anchor.
func NewTranscript(systemContent string) *Transcript {
	return &Transcript{messages: []core.Message{core.SystemMessage(systemContent)}}
}

// Restore wraps messages loaded from storage as-is. Roles and alternation are
// not checked; whatever sits at index 0 is treated as the anchor.
func Restore(messages []core.Message) *Transcript {
	restored := make([]core.Message, len(messages))
	copy(restored, messages)
	return &Transcript{messages: restored}
}

func (t *Transcript) Append(msg core.Message) {
	t.messages = append(t.messages, msg)
}

// EvictOldest removes the oldest non-anchor message and reports whether one was removed.
func (t *Transcript) EvictOldest() (core.Message, bool) {
	if len(t.messages) < 2 {
		return core.Message{}, false
	}

	evicted := t.messages[1]
	t.messages = append(t.messages[:1], t.messages[2:]...)

	return evicted, true
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the transcript in conversational order.
func (t *Transcript) Messages() []core.Message {
	out := make([]core.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Anchor() (core.Message, bool) {
	if len(t.messages) == 0 {
		return core.Message{}, false
	}
	return t.messages[0], true
}

func (t *Transcript) Clone() *Transcript {
	return Restore(t.messages)
}
