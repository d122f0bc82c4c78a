package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/diag/status"
	"github.com/sneezeparty/soupy/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	conf := &config.ChatConfig{
		BaseUrl:   srv.URL + "/v1",
		Model:     "test-model",
		MaxTokens: 800,
	}
	return NewClient(conf, status.NewNullReporter(), nil, log.NewNullLogger())
}

func completionResponse(content string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"model":   "test-model",
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return body
}

func TestClient_Complete(t *testing.T) {
	var received struct {
		Model       string `json:"model"`
		MaxTokens   int    `json:"max_tokens"`
		Temperature float32
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionResponse(`"hello there"`))
	})

	res, err := client.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "You're a helpful bot."},
			{Role: RoleUser, Content: "someone: hi"},
		},
		Temperature: 0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", res)
	assert.Equal(t, "test-model", received.Model)
	assert.Equal(t, 800, received.MaxTokens)
	assert.Equal(t, 2, len(received.Messages))
	assert.Equal(t, "system", received.Messages[0].Role)
}

func TestClient_Complete_MaxTokensOverride(t *testing.T) {
	var received struct {
		MaxTokens int `json:"max_tokens"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionResponse("ok"))
	})

	_, err := client.Complete(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "hi"}},
		MaxTokens: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, 150, received.MaxTokens)
}

func TestClient_Complete_Error(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	assert.Error(t, err)
}

func TestClient_Complete_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","model":"test-model","choices":[]}`))
	})

	res, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	assert.Error(t, err)
	assert.Empty(t, res)
}

func TestClient_Check(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionResponse("Yes, I am operational."))
	})

	assert.NoError(t, client.Check(context.Background()))
}
