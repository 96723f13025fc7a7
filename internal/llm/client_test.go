package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-planner/backend/internal/llm"
)

// capturedRequest records what the fake upstream received.
type capturedRequest struct {
	path      string
	auth      string
	requestID string
	body      map[string]any
}

// newUpstream starts a fake completions endpoint that replies with status and
// payload, recording the last request it saw.
func newUpstream(t *testing.T, status int, payload any) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		got.requestID = r.Header.Get("X-Request-Id")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func completion(content string) map[string]any {
	return map[string]any{
		"id": "chatcmpl-1",
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveCompletion(_, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func TestComplete_SendsSystemAndUserMessages(t *testing.T) {
	const plan = `{"days":[{"day":1,"activities":[]}]}`
	srv, got := newUpstream(t, http.StatusOK, completion(plan))
	obs := &recordingObserver{}
	c := llm.NewClient(llm.Options{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "qwen-max", Observer: obs})

	text, err := c.Complete(context.Background(), "be helpful", "plan Shanghai")

	require.NoError(t, err)
	assert.Equal(t, plan, text)
	assert.Equal(t, "/chat/completions", got.path)
	assert.Equal(t, "Bearer sk-test", got.auth)
	assert.NotEmpty(t, got.requestID, "a request id is generated when none is in context")
	assert.Equal(t, "qwen-max", got.body["model"])

	messages, ok := got.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": "be helpful"}, messages[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "plan Shanghai"}, messages[1])
	assert.Equal(t, []string{"ok"}, obs.outcomes)
}

func TestComplete_ForwardsInboundRequestID(t *testing.T) {
	srv, got := newUpstream(t, http.StatusOK, completion(`{}`))
	c := llm.NewClient(llm.Options{APIKey: "sk-test", BaseURL: srv.URL})

	ctx := context.WithValue(context.Background(), chimiddleware.RequestIDKey, "req-42")
	_, err := c.Complete(ctx, "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, "req-42", got.requestID)
}

func TestComplete_ReturnsContentUnmodified(t *testing.T) {
	const plan = "  {\n  \"days\": []\n}\n"
	srv, _ := newUpstream(t, http.StatusOK, completion(plan))
	c := llm.NewClient(llm.Options{APIKey: "sk-test", BaseURL: srv.URL})

	text, err := c.Complete(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, plan, text)
}

func TestComplete_MissingAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { called = true }))
	defer srv.Close()
	c := llm.NewClient(llm.Options{BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), "sys", "user")

	assert.ErrorIs(t, err, llm.ErrUpstreamAuth)
	assert.False(t, called, "no request should be sent without a key")
}

func TestComplete_BlankUserPrompt(t *testing.T) {
	c := llm.NewClient(llm.Options{APIKey: "sk-test", BaseURL: "http://127.0.0.1:0"})

	_, err := c.Complete(context.Background(), "sys", "   ")

	assert.ErrorIs(t, err, llm.ErrUpstreamRequest)
}

func TestComplete_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, llm.ErrUpstreamAuth},
		{"forbidden", http.StatusForbidden, llm.ErrUpstreamAuth},
		{"bad request", http.StatusBadRequest, llm.ErrUpstreamRequest},
		{"not found", http.StatusNotFound, llm.ErrUpstreamRequest},
		{"throttled", http.StatusTooManyRequests, llm.ErrUpstreamUnavailable},
		{"server error", http.StatusInternalServerError, llm.ErrUpstreamUnavailable},
		{"bad gateway", http.StatusBadGateway, llm.ErrUpstreamUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newUpstream(t, tc.status, map[string]any{
				"error": map[string]any{"message": "upstream said no", "code": "X"},
			})
			c := llm.NewClient(llm.Options{APIKey: "sk-test", BaseURL: srv.URL})

			_, err := c.Complete(context.Background(), "sys", "user")

			require.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), "upstream said no")
			assert.NotContains(t, err.Error(), "sk-test", "api key must never leak into errors")
		})
	}
}

func TestComplete_NativeErrorBody(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusBadRequest, map[string]any{
		"code": "InvalidParameter", "message": "input is required",
	})
	c := llm.NewClient(llm.Options{APIKey: "sk-test", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), "sys", "user")

	require.ErrorIs(t, err, llm.ErrUpstreamRequest)
	assert.Contains(t, err.Error(), "input is required")
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, map[string]any{"choices": []any{}})
	c := llm.NewClient(llm.Options{APIKey: "sk-test", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), "sys", "user")

	assert.ErrorIs(t, err, llm.ErrUpstreamUnavailable)
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	obs := &recordingObserver{}
	c := llm.NewClient(llm.Options{APIKey: "sk-test", BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Observer: obs})

	_, err := c.Complete(context.Background(), "sys", "user")

	assert.ErrorIs(t, err, llm.ErrUpstreamUnavailable)
	assert.Equal(t, []string{"unavailable"}, obs.outcomes)
}

func TestNewClient_Defaults(t *testing.T) {
	c := llm.NewClient(llm.Options{})

	assert.Equal(t, llm.DefaultModel, c.Model())
}
