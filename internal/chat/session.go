// Package chat runs the interactive turn loop: read a line, fit the transcript
// to the token budget, generate a reply and persist the result.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/provider"
	"github.com/erg0nix/parley/internal/store"
)

var exitKeywords = []string{"quit", "exit"}

// View renders session output. Implementations decide styling; the session
// only decides what is shown and when.
type View interface {
	Greeting(restored int)
	Prompt()
	TokenStatus(total, limit int)
	BeginReply()
	Fragment(text string)
	EndReply()
	Reply(text string)
	Warn(op string, err error)
}

type Options struct {
	Store         store.Store
	Client        provider.Client
	Limiter       conversation.Limiter
	SystemMessage string
	Generation    provider.Options
	Stream        bool
	In            io.Reader
	View          View
	Logger        *slog.Logger
}

// Session owns one transcript for the lifetime of the process. It is not safe
// for concurrent use.
type Session struct {
	store         store.Store
	client        provider.Client
	limiter       conversation.Limiter
	systemMessage string
	generation    provider.Options
	stream        bool
	input         *bufio.Reader
	view          View
	logger        *slog.Logger

	transcript *conversation.Transcript
}

func New(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("chat: store is required")
	}
	if opts.Client == nil {
		return nil, errors.New("chat: client is required")
	}
	if opts.Limiter.Counter == nil {
		return nil, errors.New("chat: token counter is required")
	}
	if opts.In == nil {
		return nil, errors.New("chat: input reader is required")
	}
	if opts.View == nil {
		return nil, errors.New("chat: view is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		store:         opts.Store,
		client:        opts.Client,
		limiter:       opts.Limiter,
		systemMessage: opts.SystemMessage,
		generation:    opts.Generation,
		stream:        opts.Stream,
		input:         bufio.NewReader(opts.In),
		view:          opts.View,
		logger:        logger,
	}, nil
}

// Run loads the stored transcript and serves turns until an exit keyword, end
// of input or cancellation of ctx. Only cancellation is reported as an error.
func (s *Session) Run(ctx context.Context) error {
	s.init()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.view.Prompt()
		line, ok, err := s.readLine(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read input: %w", err)
		}
		if !ok {
			s.logger.Debug("input closed")
			return nil
		}

		text := strings.TrimSpace(line)
		if isExitKeyword(text) {
			s.logger.Debug("exit requested", "keyword", text)
			return nil
		}
		if text == "" {
			continue
		}

		if err := s.turn(ctx, line); err != nil {
			return err
		}
	}
}

// Transcript returns a copy of the current transcript.
func (s *Session) Transcript() []core.Message {
	if s.transcript == nil {
		return nil
	}
	return s.transcript.Messages()
}

func (s *Session) init() {
	messages, err := s.store.Load()
	if err != nil {
		s.logger.Warn("load transcript failed, starting fresh", "error", err)
		s.view.Warn("load transcript", err)
	}

	if err != nil || len(messages) == 0 {
		s.transcript = conversation.NewTranscript(s.systemMessage)
		s.view.Greeting(0)
		return
	}

	s.transcript = conversation.Restore(messages)
	s.logger.Debug("transcript restored", "messages", s.transcript.Len())
	s.view.Greeting(s.transcript.Len() - 1)
}

// turn runs one exchange. A failed generation rolls the transcript back to its
// state before the user line was appended and nothing is saved.
func (s *Session) turn(ctx context.Context, line string) error {
	checkpoint := s.transcript.Clone()

	s.transcript.Append(core.UserMessage(line))

	s.view.TokenStatus(s.limiter.Total(s.transcript), s.limiter.Limit)

	result := s.limiter.Enforce(s.transcript)
	if result.Evicted > 0 {
		s.logger.Debug("evicted turns",
			"evicted", result.Evicted,
			"before", result.Before,
			"after", result.After,
			"limit", result.Limit)
	}
	if result.OverBudget {
		s.logger.Debug("transcript over budget after eviction",
			"tokens", result.After,
			"limit", result.Limit)
	}
	s.logSnapshot()

	reply, err := s.generate(ctx)
	if err != nil {
		s.transcript = checkpoint
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fmt.Errorf("generate reply: %w", err)
		s.logger.Error("turn aborted", "error", err)
		s.view.Warn("generate reply", err)
		return nil
	}

	s.transcript.Append(core.AssistantMessage(reply))

	if err := s.store.Save(s.transcript.Messages()); err != nil {
		s.logger.Warn("save transcript failed", "error", err)
		s.view.Warn("save transcript", err)
	}

	return nil
}

func (s *Session) generate(ctx context.Context) (string, error) {
	messages := s.transcript.Messages()

	if !s.stream {
		resp, err := s.client.Complete(ctx, messages, s.generation)
		if err != nil {
			return "", err
		}
		s.logUsage(resp.Usage)
		s.view.Reply(resp.Content)
		return resp.Content, nil
	}

	stream, err := s.client.Stream(ctx, messages, s.generation)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	s.view.BeginReply()
	defer s.view.EndReply()

	for {
		fragment, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		s.view.Fragment(fragment)
	}

	s.logUsage(stream.Usage())
	return stream.Text(), nil
}

// logSnapshot records the per-turn token breakdown of the request about to be sent.
func (s *Session) logSnapshot() {
	ctx := context.Background()
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	snap := s.limiter.Snapshot(s.transcript)
	s.logger.Debug("context snapshot",
		"messages", snap.TotalMessages,
		"anchor_tokens", snap.AnchorTokens,
		"history_tokens", snap.HistoryTokens,
		"total_tokens", snap.TotalTokens,
		"remaining_tokens", snap.RemainingTokens,
		"limit", snap.TokenLimit)
}

func (s *Session) logUsage(usage *provider.Usage) {
	if usage == nil {
		return
	}
	s.logger.Debug("completion usage",
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens)
}

type inputLine struct {
	text string
	ok   bool
	err  error
}

// readLine waits for the next input line or for ctx to be cancelled. ok is
// false once input is exhausted. On cancellation the reading goroutine stays
// blocked on the input and may consume the next line, so a cancelled Session
// must not be run again; the process is expected to exit.
func (s *Session) readLine(ctx context.Context) (string, bool, error) {
	result := make(chan inputLine, 1)
	go func() {
		text, ok, err := s.scanLine()
		result <- inputLine{text: text, ok: ok, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line := <-result:
		return line.text, line.ok, line.err
	}
}

func (s *Session) scanLine() (string, bool, error) {
	line, err := s.input.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", false, nil
			}
			return strings.TrimRight(line, "\r"), true, nil
		}
		return "", false, err
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

func isExitKeyword(text string) bool {
	for _, keyword := range exitKeywords {
		if strings.EqualFold(text, keyword) {
			return true
		}
	}
	return false
}
