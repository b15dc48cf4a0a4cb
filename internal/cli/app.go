package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/erg0nix/parley/internal/chat"
	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/provider"
	"github.com/erg0nix/parley/internal/store"
	"github.com/erg0nix/parley/internal/tokens"
)

type App struct {
	Config config.Config
	Logger *slog.Logger
}

func newApp(stderr io.Writer) (*App, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Debug.Level()}))

	return &App{Config: cfg, Logger: logger}, nil
}

// generationOptions maps the configured sampling settings onto a request.
func (a *App) generationOptions() provider.Options {
	temperature := a.Config.Temperature
	opts := provider.Options{
		Model:       a.Config.Model,
		Temperature: &temperature,
		Extra:       a.Config.Options,
	}

	if a.Config.MaxTokens > 0 {
		maxTokens := a.Config.MaxTokens
		opts.MaxTokens = &maxTokens
	}

	return opts
}

func (a *App) newSession(in io.Reader, view chat.View) (*chat.Session, error) {
	client := provider.NewOpenAIProvider(provider.OpenAIConfig{
		Endpoint:    a.Config.Endpoint,
		APIKey:      a.Config.APIKey,
		HTTPTimeout: a.Config.HTTPTimeout(),
	}, a.Config.Debug, a.Logger)

	return chat.New(chat.Options{
		Store:  store.NewFileStore(a.Config.TranscriptPath),
		Client: client,
		Limiter: conversation.Limiter{
			Counter: tokens.New(a.Config.Encoding, a.Logger),
			Limit:   a.Config.TokenLimit,
		},
		SystemMessage: a.Config.SystemMessage,
		Generation:    a.generationOptions(),
		Stream:        a.Config.Stream,
		In:            in,
		View:          view,
		Logger:        a.Logger,
	})
}
