package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	// DefaultBedrockModel is the default model to use.
	DefaultBedrockModel = "anthropic.claude-3-5-haiku-20241022-v1:0"
	// DefaultBedrockMaxTokens is the default max tokens.
	DefaultBedrockMaxTokens = 1024
	// DefaultAWSRegion is used when neither an option nor AWS_REGION sets one.
	DefaultAWSRegion = "us-east-1"
)

// BedrockConverser is the part of the Bedrock runtime client used here.
type BedrockConverser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockLLM implements the LLM interface for AWS Bedrock using the Converse API.
type BedrockLLM struct {
	client      BedrockConverser
	model       string
	maxTokens   int
	temperature float32
	region      string
	logger      *slog.Logger
}

// BedrockOption configures a BedrockLLM.
type BedrockOption func(*BedrockLLM)

// WithBedrockModel sets the model.
func WithBedrockModel(model string) BedrockOption {
	return func(b *BedrockLLM) {
		if model != "" {
			b.model = model
		}
	}
}

// WithBedrockMaxTokens sets the max tokens.
func WithBedrockMaxTokens(maxTokens int) BedrockOption {
	return func(b *BedrockLLM) {
		if maxTokens > 0 {
			b.maxTokens = maxTokens
		}
	}
}

// WithBedrockTemperature sets the temperature.
func WithBedrockTemperature(temperature float32) BedrockOption {
	return func(b *BedrockLLM) {
		b.temperature = temperature
	}
}

// WithBedrockRegion sets the AWS region.
func WithBedrockRegion(region string) BedrockOption {
	return func(b *BedrockLLM) {
		if region != "" {
			b.region = region
		}
	}
}

// WithBedrockClient sets the runtime client, e.g. a fake in tests.
func WithBedrockClient(client BedrockConverser) BedrockOption {
	return func(b *BedrockLLM) {
		b.client = client
	}
}

// WithBedrockLogger sets the logger.
func WithBedrockLogger(logger *slog.Logger) BedrockOption {
	return func(b *BedrockLLM) {
		b.logger = logger
	}
}

// NewBedrockLLM creates a Bedrock client. Credentials come from the default
// AWS chain; the region falls back to AWS_REGION, then AWS_DEFAULT_REGION.
func NewBedrockLLM(ctx context.Context, opts ...BedrockOption) (*BedrockLLM, error) {
	b := &BedrockLLM{
		model:     DefaultBedrockModel,
		maxTokens: DefaultBedrockMaxTokens,
		region:    AWSRegion(),
		logger:    slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.client == nil {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(b.region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		b.client = bedrockruntime.NewFromConfig(cfg)
	}
	return b, nil
}

// AWSRegion returns the region from the environment or DefaultAWSRegion.
func AWSRegion() string {
	for _, key := range []string{"AWS_REGION", "AWS_DEFAULT_REGION"} {
		if region := os.Getenv(key); region != "" {
			return region
		}
	}
	return DefaultAWSRegion
}

// Complete generates a completion for a given prompt.
func (b *BedrockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	b.logger.Info("Complete called", "model", b.model, "prompt_len", len(prompt))
	return b.converse(ctx, []ChatMessage{NewUserMessage(prompt)})
}

// Chat generates a response for a list of chat messages.
func (b *BedrockLLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	b.logger.Info("Chat called", "model", b.model, "message_count", len(messages))
	return b.converse(ctx, messages)
}

func (b *BedrockLLM) converse(ctx context.Context, messages []ChatMessage) (string, error) {
	converseMessages, system := convertToBedrockMessages(messages)
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(b.model),
		Messages: converseMessages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(b.maxTokens)),
			Temperature: aws.Float32(b.temperature),
		},
	}
	if len(system) > 0 {
		input.System = system
	}

	resp, err := b.client.Converse(ctx, input)
	if err != nil {
		b.logger.Error("Converse failed", "error", err)
		return "", fmt.Errorf("bedrock converse failed: %w", err)
	}

	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", ErrNoChoices
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	return sb.String(), nil
}

// convertToBedrockMessages splits system messages out, as Converse takes
// them separately.
func convertToBedrockMessages(messages []ChatMessage) ([]types.Message, []types.SystemContentBlock) {
	var out []types.Message
	var system []types.SystemContentBlock
	for _, msg := range messages {
		text := &types.ContentBlockMemberText{Value: msg.Content}
		switch msg.Role {
		case MessageRoleSystem:
			system = append(system, &types.SystemContentBlockMemberText{Value: msg.Content})
		case MessageRoleAssistant:
			out = append(out, types.Message{Role: types.ConversationRoleAssistant, Content: []types.ContentBlock{text}})
		default:
			out = append(out, types.Message{Role: types.ConversationRoleUser, Content: []types.ContentBlock{text}})
		}
	}
	return out, system
}

var _ LLM = (*BedrockLLM)(nil)
