package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/core"
)

// OpenAIConfig holds connection settings for an OpenAI-compatible API endpoint.
type OpenAIConfig struct {
	Endpoint    string
	APIKey      string
	HTTPTimeout time.Duration
	HTTPClient  *http.Client
}

// OpenAIProvider implements Client over the /v1/chat/completions endpoint.
type OpenAIProvider struct {
	endpoint      string
	apiKey        string
	client        *http.Client
	requestLogger *RequestLogger
	validateRoles bool
}

var reservedPayloadKeys = map[string]bool{
	"model":    true,
	"messages": true,
	"stream":   true,
}

// NewOpenAIProvider creates an OpenAIProvider with the given endpoint config and optional debug logging.
func NewOpenAIProvider(cfg OpenAIConfig, debugCfg config.DebugConfig, logger *slog.Logger) *OpenAIProvider {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.HTTPTimeout
		if timeout == 0 {
			timeout = 300 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	if logger == nil {
		logger = slog.Default()
	}

	provider := &OpenAIProvider{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   client,
	}

	if debugCfg.LogRequests || debugCfg.LogResponses {
		provider.requestLogger = NewRequestLogger(
			debugCfg.LogDirectory,
			debugCfg.LogRequests,
			debugCfg.LogResponses,
			logger,
		)
	}

	provider.validateRoles = debugCfg.ValidateRoles

	return provider
}

// Complete sends a non-streaming chat completion request and returns the parsed reply.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []core.Message, opts Options) (Response, error) {
	requestID := core.NewRequestID()

	payload, messages, err := p.buildPayload(requestID, messages, opts, false)
	if err != nil {
		return Response{}, err
	}

	startTime := time.Now()
	httpResp, err := p.post(ctx, requestID, messages, payload)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response (request_id=%s): %w", requestID, err)
	}

	response, err := parseCompletion(body)
	if err != nil {
		p.logError(requestID, httpResp.StatusCode, body, messages, payload)
		return Response{}, fmt.Errorf("provider response parse failed (request_id=%s): %w", requestID, err)
	}

	if p.requestLogger != nil {
		p.requestLogger.LogResponse(requestID, response, time.Since(startTime))
	}

	return response, nil
}

// Stream sends a streaming chat completion request. Fragments are read from the
// server-sent event stream as the caller calls Next.
func (p *OpenAIProvider) Stream(ctx context.Context, messages []core.Message, opts Options) (*Stream, error) {
	requestID := core.NewRequestID()

	payload, messages, err := p.buildPayload(requestID, messages, opts, true)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	httpResp, err := p.post(ctx, requestID, messages, payload)
	if err != nil {
		return nil, err
	}

	scanner := newSSEScanner(httpResp.Body)
	var stream *Stream

	stream = NewStream(func() (string, *Usage, error) {
		data, err := scanner.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.logStreamDone(requestID, stream, startTime)
				return "", nil, io.EOF
			}
			return "", nil, fmt.Errorf("read stream (request_id=%s): %w", requestID, err)
		}

		if strings.TrimSpace(data) == "[DONE]" {
			p.logStreamDone(requestID, stream, startTime)
			return "", nil, io.EOF
		}

		fragment, usage, err := parseStreamChunk(data)
		if err != nil {
			p.logError(requestID, httpResp.StatusCode, []byte(data), messages, payload)
			return "", nil, fmt.Errorf("provider stream parse failed (request_id=%s): %w", requestID, err)
		}

		return fragment, usage, nil
	}, httpResp.Body)

	return stream, nil
}

func (p *OpenAIProvider) buildPayload(requestID core.RequestID, messages []core.Message, opts Options, stream bool) (map[string]any, []core.Message, error) {
	messages = normalizeMessages(messages)

	if p.validateRoles {
		if err := validateRoleAlternation(messages); err != nil {
			p.logError(requestID, 0, []byte(err.Error()), messages, nil)
			return nil, nil, fmt.Errorf("role validation failed (request_id=%s): %w", requestID, err)
		}
	}

	msgJSON := make([]map[string]any, 0, len(messages))
	for _, message := range messages {
		msgJSON = append(msgJSON, map[string]any{"role": string(message.Role), "content": message.Content})
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = "default"
	}

	payload := map[string]any{
		"model":    modelName,
		"messages": msgJSON,
		"stream":   stream,
	}

	if opts.Temperature != nil {
		payload["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		payload["max_tokens"] = *opts.MaxTokens
	}

	for key, value := range opts.Extra {
		if reservedPayloadKeys[key] {
			continue
		}
		payload[key] = value
	}

	return payload, messages, nil
}

func (p *OpenAIProvider) post(ctx context.Context, requestID core.RequestID, messages []core.Message, payload map[string]any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if p.requestLogger != nil {
		p.requestLogger.LogRequest(requestID, messages, payload)
	}

	endpointURL := p.endpoint + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if stream, _ := payload["stream"].(bool); stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	httpResp, err := p.client.Do(req)
	if err != nil {
		p.logError(requestID, 0, []byte(err.Error()), messages, payload)
		return nil, fmt.Errorf("provider request failed (request_id=%s): %w", requestID, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		bodyBytes, _ := io.ReadAll(httpResp.Body)

		p.logError(requestID, httpResp.StatusCode, bodyBytes, messages, payload)

		if len(bodyBytes) > 0 {
			return nil, fmt.Errorf("provider error (request_id=%s): %s: %s",
				requestID, httpResp.Status, strings.TrimSpace(string(bodyBytes)))
		}

		return nil, fmt.Errorf("provider error (request_id=%s): %s", requestID, httpResp.Status)
	}

	return httpResp, nil
}

func (p *OpenAIProvider) logError(requestID core.RequestID, statusCode int, body []byte, messages []core.Message, payload map[string]any) {
	if p.requestLogger != nil {
		p.requestLogger.LogError(requestID, statusCode, body, messages, payload)
	}
}

func (p *OpenAIProvider) logStreamDone(requestID core.RequestID, stream *Stream, startTime time.Time) {
	if p.requestLogger == nil || stream == nil {
		return
	}
	p.requestLogger.LogResponse(requestID, Response{Content: stream.Text(), Usage: stream.Usage()}, time.Since(startTime))
}

func parseCompletion(body []byte) (Response, error) {
	if !gjson.ValidBytes(body) {
		return Response{}, errors.New("response is not valid JSON")
	}

	parsed := gjson.ParseBytes(body)

	if msg := parsed.Get("error.message"); msg.Exists() {
		return Response{}, fmt.Errorf("provider returned error: %s", msg.String())
	}

	choices := parsed.Get("choices")
	if !choices.IsArray() || len(choices.Array()) == 0 {
		return Response{}, errors.New("no choices in response")
	}

	message := choices.Get("0.message")
	if !message.IsObject() {
		return Response{}, errors.New("malformed message in response")
	}

	return Response{
		Content: message.Get("content").String(),
		Usage:   parseUsage(parsed),
	}, nil
}

func parseStreamChunk(data string) (string, *Usage, error) {
	if !gjson.Valid(data) {
		return "", nil, errors.New("stream chunk is not valid JSON")
	}

	parsed := gjson.Parse(data)

	if msg := parsed.Get("error.message"); msg.Exists() {
		return "", nil, fmt.Errorf("provider returned error: %s", msg.String())
	}

	return parsed.Get("choices.0.delta.content").String(), parseUsage(parsed), nil
}

func parseUsage(parsed gjson.Result) *Usage {
	usage := parsed.Get("usage")
	if !usage.IsObject() {
		return nil
	}

	return &Usage{
		PromptTokens:     int(usage.Get("prompt_tokens").Int()),
		CompletionTokens: int(usage.Get("completion_tokens").Int()),
		TotalTokens:      int(usage.Get("total_tokens").Int()),
	}
}
