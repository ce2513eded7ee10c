package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	OpenAI_API_URL_v1 = "https://api.openai.com/v1"
)

// ErrNoChoices is returned when the service answers without any choice.
var ErrNoChoices = errors.New("completion returned no choices")

// OpenAILLM implements the LLM interface against the public OpenAI API
// or any compatible endpoint.
type OpenAILLM struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// OpenAIOption configures an OpenAILLM.
type OpenAIOption func(*OpenAILLM)

// WithOpenAIMaxTokens caps the length of each completion.
func WithOpenAIMaxTokens(maxTokens int) OpenAIOption {
	return func(o *OpenAILLM) {
		o.maxTokens = maxTokens
	}
}

// WithOpenAILogger sets the logger.
func WithOpenAILogger(logger *slog.Logger) OpenAIOption {
	return func(o *OpenAILLM) {
		o.logger = logger
	}
}

// NewOpenAILLM creates a new OpenAI client. Empty arguments fall back to
// OPENAI_URL, OPENAI_API_KEY and gpt-3.5-turbo.
func NewOpenAILLM(baseURL, model, apiKey string, opts ...OpenAIOption) *OpenAILLM {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_URL")
		if baseURL == "" {
			baseURL = OpenAI_API_URL_v1
		}
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	o := &OpenAILLM{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Complete generates a completion for a given prompt.
func (o *OpenAILLM) Complete(ctx context.Context, prompt string) (string, error) {
	o.logger.Info("Complete called", "model", o.model, "prompt_len", len(prompt))

	text, err := createChatCompletion(ctx, o.client, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		o.logger.Error("Complete failed", "error", err)
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	return text, nil
}

// Chat generates a response for a list of chat messages.
func (o *OpenAILLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	o.logger.Info("Chat called", "model", o.model, "message_count", len(messages))

	text, err := createChatCompletion(ctx, o.client, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages:  convertToOpenAIMessages(messages),
	})
	if err != nil {
		o.logger.Error("Chat failed", "error", err)
		return "", fmt.Errorf("openai chat failed: %w", err)
	}
	return text, nil
}

func createChatCompletion(ctx context.Context, client *openai.Client, req openai.ChatCompletionRequest) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return out
}

var _ LLM = (*OpenAILLM)(nil)
