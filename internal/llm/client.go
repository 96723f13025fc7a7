// Package llm is the adapter to the external text-generation API.
// It speaks the OpenAI-compatible chat completions protocol exposed by
// DashScope (Qwen models) and classifies upstream failures into three
// sentinel errors so callers never have to inspect HTTP details.
package llm

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

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the DashScope OpenAI-compatible endpoint.
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = "qwen-plus"
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 60 * time.Second

	// maxResponseBytes caps how much of an upstream body is read.
	maxResponseBytes = 4 << 20
)

var (
	// ErrUpstreamAuth means the credential is missing or was rejected.
	ErrUpstreamAuth = errors.New("llm: upstream authentication failed")
	// ErrUpstreamRequest means the upstream rejected the request as malformed
	// or missing required input.
	ErrUpstreamRequest = errors.New("llm: upstream rejected request")
	// ErrUpstreamUnavailable covers transport failures, timeouts, throttling,
	// server errors and unusable responses.
	ErrUpstreamUnavailable = errors.New("llm: upstream unavailable")
)

// Observer receives one callback per completion attempt.
// outcome is one of "ok", "auth_error", "request_error", "unavailable".
type Observer interface {
	ObserveCompletion(model, outcome string, elapsed time.Duration)
}

// Options configures the Client. Only APIKey is required for real calls.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Observer   Observer
}

// Client performs chat completion calls against the configured endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
}

// NewClient constructs a Client, filling defaults for every unset option.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
		observer:   opts.Observer,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// errorResponse matches both the OpenAI-style {"error":{...}} envelope and
// DashScope's native {"code","message"} body.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e errorResponse) message() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}

// Complete sends one system message and one user message and returns the
// first choice's content exactly as received.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	text, err := c.complete(ctx, systemPrompt, userPrompt)
	if c.observer != nil {
		c.observer.ObserveCompletion(c.model, outcome(err), time.Since(start))
	}
	return text, err
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: api key is not configured", ErrUpstreamAuth)
	}
	if strings.TrimSpace(userPrompt) == "" {
		return "", fmt.Errorf("%w: user prompt is required", ErrUpstreamRequest)
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrUpstreamRequest, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrUpstreamRequest, err)
	}
	requestID := chimiddleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "llm request failed",
			"model", c.model, "request_id", requestID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUpstreamUnavailable, err)
	}

	c.logger.DebugContext(ctx, "llm response",
		"model", c.model,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 300 {
		var detail errorResponse
		msg := ""
		if json.Unmarshal(raw, &detail) == nil {
			msg = detail.message()
		}
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = resp.Status
		}
		c.logger.WarnContext(ctx, "llm upstream error",
			"model", c.model, "request_id", requestID, "status", resp.StatusCode, "message", msg)
		return "", fmt.Errorf("%w: status %d: %s", classifyStatus(resp.StatusCode), resp.StatusCode, msg)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstreamUnavailable, err)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUpstreamUnavailable)
	}
	return decoded.Choices[0].Message.Content, nil
}

// classifyStatus maps an upstream HTTP status to one of the sentinel errors.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUpstreamAuth
	case status == http.StatusTooManyRequests:
		return ErrUpstreamUnavailable
	case status >= 400 && status < 500:
		return ErrUpstreamRequest
	default:
		return ErrUpstreamUnavailable
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUpstreamAuth):
		return "auth_error"
	case errors.Is(err, ErrUpstreamRequest):
		return "request_error"
	default:
		return "unavailable"
	}
}
