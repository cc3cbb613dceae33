package assistant_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bdobrica/Hisho/internal/hisho/assistant"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, handler http.HandlerFunc) *assistant.Relay {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return assistant.New(assistant.Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "test-model"})
}

func TestConverse_SendsHistoryAndReturnsReply(t *testing.T) {
	var got chatRequest
	relay := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization: got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Привет!  "}, "finish_reason": "stop"}]
		}`))
	})

	reply, err := relay.Converse(context.Background(), []assistant.Message{
		{Role: assistant.RoleSystem, Content: "be brief"},
		{Role: assistant.RoleUser, Content: "привет"},
	})
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if reply != "Привет!" {
		t.Errorf("reply: got %q, want trimmed %q", reply, "Привет!")
	}

	if got.Model != "test-model" {
		t.Errorf("model: got %q", got.Model)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages: got %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" {
		t.Errorf("first role: got %q", got.Messages[0].Role)
	}
	if got.Messages[1].Content != "привет" {
		t.Errorf("second content: got %q", got.Messages[1].Content)
	}
}

func TestConverse_NonSuccessIsRemoteError(t *testing.T) {
	relay := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded", "type": "rate_limit"}}`))
	})

	_, err := relay.Converse(context.Background(), []assistant.Message{{Role: assistant.RoleUser, Content: "hi"}})
	var remote *assistant.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("want *RemoteError, got %T: %v", err, err)
	}
	if remote.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status: got %d", remote.StatusCode)
	}
	if !strings.Contains(remote.Message, "quota exceeded") {
		t.Errorf("message: got %q", remote.Message)
	}
}

func TestConverse_EmptyChoices(t *testing.T) {
	relay := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := relay.Converse(context.Background(), []assistant.Message{{Role: assistant.RoleUser, Content: "hi"}})
	if !errors.Is(err, assistant.ErrEmptyReply) {
		t.Errorf("got %v, want %v", err, assistant.ErrEmptyReply)
	}
}

func TestNew_Defaults(t *testing.T) {
	relay := assistant.New(assistant.Config{APIKey: "k"})
	if got := relay.Model(); got != "gpt-4o-mini" {
		t.Errorf("Model: got %q", got)
	}
}
