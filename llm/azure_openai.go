package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultAzureAPIVersion is the API version used when none is configured.
const DefaultAzureAPIVersion = "2024-02-15-preview"

// AzureOpenAILLM implements the LLM interface for an Azure OpenAI deployment.
type AzureOpenAILLM struct {
	client      *openai.Client
	endpoint    string
	apiKey      string
	deployment  string
	apiVersion  string
	maxTokens   int
	temperature float32
	logger      *slog.Logger
}

// AzureOpenAIOption configures an AzureOpenAILLM.
type AzureOpenAIOption func(*AzureOpenAILLM)

// WithAzureEndpoint sets the resource endpoint, e.g. https://name.openai.azure.com.
func WithAzureEndpoint(endpoint string) AzureOpenAIOption {
	return func(a *AzureOpenAILLM) {
		a.endpoint = endpoint
	}
}

// WithAzureAPIKey sets the API key.
func WithAzureAPIKey(apiKey string) AzureOpenAIOption {
	return func(a *AzureOpenAILLM) {
		a.apiKey = apiKey
	}
}

// WithAzureDeployment sets the deployment name.
func WithAzureDeployment(deployment string) AzureOpenAIOption {
	return func(a *AzureOpenAILLM) {
		a.deployment = deployment
	}
}

// WithAzureAPIVersion sets the API version.
func WithAzureAPIVersion(version string) AzureOpenAIOption {
	return func(a *AzureOpenAILLM) {
		a.apiVersion = version
	}
}

// WithAzureMaxTokens caps the length of each completion.
func WithAzureMaxTokens(maxTokens int) AzureOpenAIOption {
	return func(a *AzureOpenAILLM) {
		a.maxTokens = maxTokens
	}
}

// WithAzureTemperature sets the sampling temperature.
func WithAzureTemperature(temperature float32) AzureOpenAIOption {
	return func(a *AzureOpenAILLM) {
		a.temperature = temperature
	}
}

// WithAzureLogger sets the logger.
func WithAzureLogger(logger *slog.Logger) AzureOpenAIOption {
	return func(a *AzureOpenAILLM) {
		a.logger = logger
	}
}

// NewAzureOpenAILLM creates a new Azure OpenAI LLM client.
// Endpoint, key and deployment fall back to AZURE_OPENAI_ENDPOINT,
// AZURE_OPENAI_API_KEY and AZURE_OPENAI_DEPLOYMENT.
func NewAzureOpenAILLM(opts ...AzureOpenAIOption) *AzureOpenAILLM {
	a := &AzureOpenAILLM{
		endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		apiKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
		deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
		apiVersion: DefaultAzureAPIVersion,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(a)
	}

	config := openai.DefaultAzureConfig(a.apiKey, a.endpoint)
	config.APIVersion = a.apiVersion
	a.client = openai.NewClientWithConfig(config)

	return a
}

// Deployment returns the deployment name.
func (a *AzureOpenAILLM) Deployment() string {
	return a.deployment
}

// Complete generates a completion for a given prompt.
func (a *AzureOpenAILLM) Complete(ctx context.Context, prompt string) (string, error) {
	a.logger.Info("Complete called", "deployment", a.deployment, "prompt_len", len(prompt))

	text, err := createChatCompletion(ctx, a.client, a.request([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}))
	if err != nil {
		a.logger.Error("Complete failed", "error", err)
		return "", fmt.Errorf("azure openai completion failed: %w", err)
	}
	return text, nil
}

// Chat generates a response for a list of chat messages.
func (a *AzureOpenAILLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	a.logger.Info("Chat called", "deployment", a.deployment, "message_count", len(messages))

	text, err := createChatCompletion(ctx, a.client, a.request(convertToOpenAIMessages(messages)))
	if err != nil {
		a.logger.Error("Chat failed", "error", err)
		return "", fmt.Errorf("azure openai chat failed: %w", err)
	}
	return text, nil
}

func (a *AzureOpenAILLM) request(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       a.deployment,
		Messages:    messages,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}
}

// Ensure AzureOpenAILLM implements the interfaces.
var _ LLM = (*AzureOpenAILLM)(nil)
