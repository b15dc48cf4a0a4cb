// Package config resolves client settings from defaults, a TOML file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ErrConfiguration marks errors that must stop the client before the chat loop starts.
var ErrConfiguration = errors.New("configuration error")

// MissingEnvError reports a required environment variable that is unset or blank.
type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variable %s", e.Name)
}

func (e *MissingEnvError) Unwrap() error {
	return ErrConfiguration
}

const (
	EnvAPIKey        = "API_KEY"
	EnvSystemMessage = "SYSTEM_MESSAGE"
	EnvConfigPath    = "PARLEY_CONFIG"
)

type DebugConfig struct {
	LogRequests   bool   `toml:"log_requests"`
	LogResponses  bool   `toml:"log_responses"`
	LogDirectory  string `toml:"log_directory"`
	ValidateRoles bool   `toml:"validate_roles"`
	LogLevel      string `toml:"log_level"`
}

type Config struct {
	Endpoint           string         `toml:"endpoint"`
	Model              string         `toml:"model"`
	Temperature        float64        `toml:"temperature"`
	MaxTokens          int            `toml:"max_tokens,omitempty"`
	TokenLimit         int            `toml:"token_limit"`
	Encoding           string         `toml:"encoding"`
	TranscriptPath     string         `toml:"transcript_path"`
	Stream             bool           `toml:"stream"`
	HTTPTimeoutSeconds int            `toml:"http_timeout_seconds"`
	DataDir            string         `toml:"data_dir"`
	Options            map[string]any `toml:"options,omitempty"`
	Debug              DebugConfig    `toml:"debug"`

	APIKey        string `toml:"-"`
	SystemMessage string `toml:"-"`
}

func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Endpoint:           "https://api.together.xyz",
		Model:              "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo",
		Temperature:        0.1,
		TokenLimit:         2048,
		Encoding:           "cl100k_base",
		TranscriptPath:     "message_history.json",
		Stream:             true,
		HTTPTimeoutSeconds: 300,
		DataDir:            dataDir,
		Debug: DebugConfig{
			LogDirectory: filepath.Join(dataDir, "debug"),
			LogLevel:     "warn",
		},
	}
}

// HTTPTimeout returns the configured request timeout, zero meaning the provider default.
func (c Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// DefaultPath returns $PARLEY_CONFIG or config.toml under the default data dir.
func DefaultPath() string {
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		return expandPath(path)
	}
	return filepath.Join(defaultDataDir(), "config.toml")
}

// LoadOrCreate reads the TOML file at path, writing the defaults there first if it does not exist.
func LoadOrCreate(path string) (Config, error) {
	config := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return config, fmt.Errorf("create config dir: %w", err)
			}

			configData, err := toml.Marshal(config)
			if err != nil {
				return config, fmt.Errorf("marshal default config: %w", err)
			}

			if err := os.WriteFile(path, configData, 0o644); err != nil {
				return config, fmt.Errorf("write default config: %w", err)
			}

			return config, nil
		}

		return config, err
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(configData, &config); err != nil {
		return config, fmt.Errorf("%w: parse %s: %v", ErrConfiguration, path, err)
	}

	return normalize(config)
}

// Load resolves the full configuration: .env, the TOML file at path, environment
// overrides and the required credentials. Every returned error wraps ErrConfiguration.
func Load(path string) (Config, error) {
	if _, err := LoadDotenv(""); err != nil {
		return Config{}, fmt.Errorf("%w: load .env: %v", ErrConfiguration, err)
	}

	if path == "" {
		path = DefaultPath()
	}

	cfg, err := LoadOrCreate(path)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			return cfg, err
		}
		return cfg, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	cfg, err = ApplyEnv(cfg, os.Getenv)
	if err != nil {
		return cfg, err
	}

	cfg.Debug = LoadDebugConfigFromEnv(cfg.Debug)

	return RequireCredentials(cfg, os.Getenv)
}

// RequireCredentials fills the API key and system message from the environment.
func RequireCredentials(cfg Config, getenv func(string) string) (Config, error) {
	apiKey := strings.TrimSpace(getenv(EnvAPIKey))
	if apiKey == "" {
		return cfg, &MissingEnvError{Name: EnvAPIKey}
	}

	systemMessage := getenv(EnvSystemMessage)
	if strings.TrimSpace(systemMessage) == "" {
		return cfg, &MissingEnvError{Name: EnvSystemMessage}
	}

	cfg.APIKey = apiKey
	cfg.SystemMessage = systemMessage

	return cfg, nil
}

func normalize(config Config) (Config, error) {
	config.DataDir = expandPath(config.DataDir)
	config.TranscriptPath = expandPath(strings.TrimSpace(config.TranscriptPath))
	config.Debug.LogDirectory = expandPath(config.Debug.LogDirectory)
	config.Endpoint = strings.TrimRight(strings.TrimSpace(config.Endpoint), "/")

	if config.Endpoint == "" {
		return config, fmt.Errorf("%w: endpoint is required", ErrConfiguration)
	}

	if config.TranscriptPath == "" {
		return config, fmt.Errorf("%w: transcript_path is required", ErrConfiguration)
	}

	if config.TokenLimit <= 0 {
		return config, fmt.Errorf("%w: token_limit must be positive, got %d", ErrConfiguration, config.TokenLimit)
	}

	return config, nil
}

func defaultDataDir() string {
	homeDir, _ := os.UserHomeDir()

	if homeDir == "" {
		return ".parley"
	}

	return filepath.Join(homeDir, ".parley")
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()

		if homeDir != "" {
			trimmed := strings.TrimPrefix(path, "~")
			trimmed = strings.TrimPrefix(trimmed, string(os.PathSeparator))

			return filepath.Join(homeDir, trimmed)
		}
	}

	return path
}
