package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotenv loads the nearest .env file found in dir or its ancestors into the
// process environment without overriding variables that are already set.
// An empty dir means the working directory. It returns the loaded path, or ""
// when no file was found.
func LoadDotenv(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	path := findDotenv(dir)
	if path == "" {
		return "", nil
	}

	if err := godotenv.Load(path); err != nil {
		return path, err
	}

	return path, nil
}

func findDotenv(dir string) string {
	for {
		candidate := filepath.Join(dir, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overrides file settings with PARLEY_* environment variables.
func ApplyEnv(cfg Config, getenv func(string) string) (Config, error) {
	var errs []error

	if v := strings.TrimSpace(getenv("PARLEY_ENDPOINT")); v != "" {
		cfg.Endpoint = strings.TrimRight(v, "/")
	}

	if v := strings.TrimSpace(getenv("PARLEY_MODEL")); v != "" {
		cfg.Model = v
	}

	if v := strings.TrimSpace(getenv("PARLEY_ENCODING")); v != "" {
		cfg.Encoding = v
	}

	if v := strings.TrimSpace(getenv("PARLEY_TRANSCRIPT")); v != "" {
		cfg.TranscriptPath = expandPath(v)
	}

	if v := strings.TrimSpace(getenv("PARLEY_TOKEN_LIMIT")); v != "" {
		limit, err := strconv.Atoi(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("invalid PARLEY_TOKEN_LIMIT %q: %w", v, err))
		case limit <= 0:
			errs = append(errs, fmt.Errorf("invalid PARLEY_TOKEN_LIMIT %q: must be positive", v))
		default:
			cfg.TokenLimit = limit
		}
	}

	if v := strings.TrimSpace(getenv("PARLEY_STREAM")); v != "" {
		stream, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid PARLEY_STREAM %q: %w", v, err))
		} else {
			cfg.Stream = stream
		}
	}

	if v := strings.TrimSpace(getenv("PARLEY_LOG_LEVEL")); v != "" {
		cfg.Debug.LogLevel = v
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}

	return cfg, nil
}

func LoadDebugConfigFromEnv(cfg DebugConfig) DebugConfig {
	if os.Getenv("PARLEY_DEBUG_LOG_REQUESTS") == "1" {
		cfg.LogRequests = true
	}
	if os.Getenv("PARLEY_DEBUG_LOG_RESPONSES") == "1" {
		cfg.LogResponses = true
	}
	if os.Getenv("PARLEY_DEBUG_VALIDATE_ROLES") == "1" {
		cfg.ValidateRoles = true
	}
	return cfg
}
