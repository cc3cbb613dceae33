// Package assistant relays a chat history to an OpenAI-compatible chat
// completion endpoint.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	// DefaultSystemPrompt seeds every new AI conversation.
	DefaultSystemPrompt = "Ты полезный ассистент. Отвечай кратко и по делу на языке пользователя."
)

// ErrEmptyReply is returned when the endpoint answers without any choice.
var ErrEmptyReply = errors.New("assistant: empty reply")

// RemoteError reports a non-success answer from the chat endpoint.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return "assistant: remote error: " + e.Message
	}
	return fmt.Sprintf("assistant: remote error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Role of a history entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation history.
type Message struct {
	Role    Role
	Content string
}

// Config configures the relay.
type Config struct {
	// APIKey authenticates against the endpoint.
	APIKey string
	// BaseURL overrides the endpoint, e.g. for Ollama or OpenRouter.
	// Defaults to https://api.openai.com/v1.
	BaseURL string
	// Model defaults to gpt-4o-mini.
	Model string
	// MaxTokens caps the reply length. 0 leaves it to the server.
	MaxTokens int
	// Timeout bounds one completion request. Defaults to 60s.
	Timeout time.Duration
}

// Relay sends histories to the chat endpoint. It is safe for concurrent use.
type Relay struct {
	client *openai.Client
	cfg    Config
}

// New returns a Relay for cfg.
func New(cfg Config) *Relay {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Relay{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

// Model returns the configured chat model.
func (r *Relay) Model() string { return r.cfg.Model }

// Converse sends history and returns the assistant's reply. Non-success
// answers are reported as *RemoteError.
func (r *Relay) Converse(ctx context.Context, history []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, len(history))
	for i, m := range history {
		msgs[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.cfg.Model,
		Messages:  msgs,
		MaxTokens: r.cfg.MaxTokens,
	})
	if err != nil {
		return "", remoteError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

func remoteError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &RemoteError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &RemoteError{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return fmt.Errorf("assistant: chat completion: %w", err)
}
