package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/provider"
	"github.com/erg0nix/parley/internal/tokens"
)

// wordCounter charges one token per whitespace-separated word.
var wordCounter = tokens.CounterFunc(func(text string) int {
	return len(strings.Fields(text))
})

func words(n int, tag string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = tag
	}
	return strings.Join(parts, " ")
}

type fakeStore struct {
	loaded  []core.Message
	loadErr error
	saveErr error
	saves   [][]core.Message
}

func (f *fakeStore) Load() ([]core.Message, error) {
	return f.loaded, f.loadErr
}

func (f *fakeStore) Save(messages []core.Message) error {
	f.saves = append(f.saves, messages)
	return f.saveErr
}

func (f *fakeStore) lastSave() []core.Message {
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

// fakeClient replies with the next entry of replies, or fails when err is set.
type fakeClient struct {
	replies   []string
	fragments [][]string
	err       error
	requests  [][]core.Message
	opts      []provider.Options
}

func (f *fakeClient) Complete(ctx context.Context, messages []core.Message, opts provider.Options) (provider.Response, error) {
	f.requests = append(f.requests, messages)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return provider.Response{}, f.err
	}
	return provider.Response{Content: f.next()}, nil
}

func (f *fakeClient) Stream(ctx context.Context, messages []core.Message, opts provider.Options) (*provider.Stream, error) {
	f.requests = append(f.requests, messages)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.fragments) > 0 {
		fragments := f.fragments[0]
		f.fragments = f.fragments[1:]
		return provider.FragmentStream(fragments...), nil
	}
	return provider.FragmentStream(f.next()), nil
}

func (f *fakeClient) next() string {
	if len(f.replies) == 0 {
		return fmt.Sprintf("reply %d", len(f.requests))
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply
}

type recordingView struct {
	greeted   []int
	prompts   int
	statuses  [][2]int
	fragments []string
	replies   []string
	warnings  []string
	begun     int
	ended     int
}

func (v *recordingView) Greeting(restored int)        { v.greeted = append(v.greeted, restored) }
func (v *recordingView) Prompt()                      { v.prompts++ }
func (v *recordingView) TokenStatus(total, limit int) { v.statuses = append(v.statuses, [2]int{total, limit}) }
func (v *recordingView) BeginReply()                  { v.begun++ }
func (v *recordingView) Fragment(text string)         { v.fragments = append(v.fragments, text) }
func (v *recordingView) EndReply()                    { v.ended++ }
func (v *recordingView) Reply(text string)            { v.replies = append(v.replies, text) }

func (v *recordingView) Warn(op string, err error) {
	v.warnings = append(v.warnings, op+": "+err.Error())
}

var errUnavailable = errors.New("service unavailable")

func newTestSession(st *fakeStore, client *fakeClient, view *recordingView, input string, limit int, stream bool) *Session {
	session, err := New(Options{
		Store:         st,
		Client:        client,
		Limiter:       conversation.Limiter{Counter: wordCounter, Limit: limit},
		SystemMessage: "be helpful",
		Stream:        stream,
		In:            strings.NewReader(input),
		View:          view,
	})
	if err != nil {
		panic(err)
	}
	return session
}

func limiterFor(limit int) conversation.Limiter {
	return conversation.Limiter{Counter: wordCounter, Limit: limit}
}

func providerOptions(model string, temperature *float64) provider.Options {
	return provider.Options{Model: model, Temperature: temperature}
}
