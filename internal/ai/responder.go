package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"chatwire.app/server/internal/model"
)

const systemPrompt = "You are a helpful AI assistant in a chat application. " +
	"Be friendly, concise, and helpful. Keep responses under 200 words unless " +
	"specifically asked for longer responses."

// Responder generates an assistant reply for a prompt plus bounded history.
type Responder interface {
	Reply(ctx context.Context, prompt string, history []model.Message) (string, error)
	Model() string
}

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type responder struct {
	openai    openai.Client
	model     string
	maxTokens int
}

func New(cfg Config) (Responder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	return &responder{
		openai:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Reply builds the chat transcript from the history (which arrives most
// recent first and is replayed oldest first) and asks the model for a reply.
func (r *responder) Reply(ctx context.Context, prompt string, history []model.Message) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))

	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Kind == model.KindAI {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	start := time.Now()
	resp, err := r.openai.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   openai.Int(int64(r.maxTokens)),
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}

	slog.DebugContext(ctx, "assistant reply generated",
		"model", r.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}

func (r *responder) Model() string {
	return r.model
}

// ErrNotConfigured is returned by the disabled responder when no API key
// was provided.
var ErrNotConfigured = errors.New("ai responder not configured")

type disabled struct{}

// Disabled returns a Responder whose replies always fail, so the router
// falls back to the not-configured apology. Used when no API key is set.
func Disabled() Responder {
	return disabled{}
}

func (disabled) Reply(context.Context, string, []model.Message) (string, error) {
	return "", ErrNotConfigured
}

func (disabled) Model() string { return "" }

// Degraded replies. Generation failure never fails the exchange; the user
// always receives some reply.
const (
	fallbackQuota = "I apologize, but the AI service is currently unavailable due to quota limits. Please try again later."
	fallbackAuth  = "AI service is not properly configured. Please contact the administrator."
	fallbackError = "I apologize, but I encountered an error while processing your request. Please try again."
)

// FallbackText maps a generation error to the user-facing apology persisted
// in place of a real reply.
func FallbackText(err error) string {
	if errors.Is(err, ErrNotConfigured) {
		return fallbackAuth
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return fallbackQuota
		case 401:
			return fallbackAuth
		}
	}
	return fallbackError
}
