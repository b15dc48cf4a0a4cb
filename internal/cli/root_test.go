package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/core"
)

func setupEnv(t *testing.T, endpoint string) string {
	t.Helper()

	dir := t.TempDir()
	chdir(t, dir)

	transcript := filepath.Join(dir, "history.json")
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.toml"))
	t.Setenv(config.EnvAPIKey, "test-key")
	t.Setenv(config.EnvSystemMessage, "You are terse.")
	t.Setenv("PARLEY_ENDPOINT", endpoint)
	t.Setenv("PARLEY_TRANSCRIPT", transcript)
	t.Setenv("PARLEY_ENCODING", "heuristic")
	t.Setenv("PARLEY_STREAM", "false")
	t.Setenv("PARLEY_TOKEN_LIMIT", "")
	t.Setenv("PARLEY_MODEL", "")
	t.Setenv("PARLEY_LOG_LEVEL", "")

	return transcript
}

func runRoot(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandChatTurn(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`)
	}))
	defer server.Close()

	transcript := setupEnv(t, server.URL)

	out, err := runRoot(t, "hi\nexit\n")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if !strings.Contains(out, "hello there") {
		t.Errorf("expected reply in output, got:\n%s", out)
	}
	if auth != "Bearer test-key" {
		t.Errorf("unexpected authorization header %q", auth)
	}

	data, err := os.ReadFile(transcript)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}

	var saved []core.Message
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}

	want := []core.Message{
		core.SystemMessage("You are terse."),
		core.UserMessage("hi"),
		core.AssistantMessage("hello there"),
	}
	if len(saved) != len(want) {
		t.Fatalf("expected %d saved messages, got %+v", len(want), saved)
	}
	for i := range want {
		if saved[i] != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], saved[i])
		}
	}
}

func TestRootCommandExitWithoutTurn(t *testing.T) {
	transcript := setupEnv(t, "http://127.0.0.1:1")

	if _, err := runRoot(t, "quit\n"); err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if _, err := os.Stat(transcript); !os.IsNotExist(err) {
		t.Errorf("expected no transcript to be written, stat err: %v", err)
	}
}

func TestRootCommandMissingCredentials(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")
	t.Setenv(config.EnvAPIKey, "")

	_, err := runRoot(t, "")
	if !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	var missing *config.MissingEnvError
	if !errors.As(err, &missing) || missing.Name != config.EnvAPIKey {
		t.Errorf("expected missing %s, got %v", config.EnvAPIKey, err)
	}
}

func TestRootCommandRejectsArgs(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")

	if _, err := runRoot(t, "", "unexpected"); err == nil {
		t.Fatal("expected error for positional argument")
	}
}

func TestGenerationOptions(t *testing.T) {
	app := &App{Config: config.Default()}
	app.Config.Options = map[string]any{"top_p": 0.5}

	opts := app.generationOptions()
	if opts.Model != app.Config.Model || opts.Temperature == nil || *opts.Temperature != 0.1 {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.MaxTokens != nil {
		t.Errorf("max tokens should be unset by default")
	}
	if opts.Extra["top_p"] != 0.5 {
		t.Errorf("expected extra options to be passed through, got %v", opts.Extra)
	}

	app.Config.MaxTokens = 256
	if opts := app.generationOptions(); opts.MaxTokens == nil || *opts.MaxTokens != 256 {
		t.Errorf("expected max tokens 256, got %+v", opts.MaxTokens)
	}
}

func TestNewAppReadsConfigPathFromDotenv(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")

	dir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	customPath := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(customPath, []byte("model = \"from-custom\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(config.EnvConfigPath+"="+customPath+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(config.EnvConfigPath, "")
	os.Unsetenv(config.EnvConfigPath)

	app, err := newApp(io.Discard)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}

	if app.Config.Model != "from-custom" {
		t.Errorf("expected config from %s, got model %q", customPath, app.Config.Model)
	}
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
