package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// DefaultBedrockEmbeddingModel is Amazon Titan text embeddings v2.
const DefaultBedrockEmbeddingModel = "amazon.titan-embed-text-v2:0"

// BedrockInvoker is the part of the Bedrock runtime client used here.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbedding embeds text with an Amazon Titan model on Bedrock.
type BedrockEmbedding struct {
	client     BedrockInvoker
	model      string
	region     string
	dimensions int
	logger     *slog.Logger
}

// BedrockEmbeddingOption configures a BedrockEmbedding.
type BedrockEmbeddingOption func(*BedrockEmbedding)

// WithBedrockEmbeddingModel sets the model.
func WithBedrockEmbeddingModel(model string) BedrockEmbeddingOption {
	return func(b *BedrockEmbedding) {
		if model != "" {
			b.model = model
		}
	}
}

// WithBedrockEmbeddingRegion sets the AWS region.
func WithBedrockEmbeddingRegion(region string) BedrockEmbeddingOption {
	return func(b *BedrockEmbedding) {
		if region != "" {
			b.region = region
		}
	}
}

// WithBedrockEmbeddingDimensions sets the vector size: 256, 512 or 1024.
func WithBedrockEmbeddingDimensions(dims int) BedrockEmbeddingOption {
	return func(b *BedrockEmbedding) {
		b.dimensions = dims
	}
}

// WithBedrockEmbeddingClient sets the runtime client, e.g. a fake in tests.
func WithBedrockEmbeddingClient(client BedrockInvoker) BedrockEmbeddingOption {
	return func(b *BedrockEmbedding) {
		b.client = client
	}
}

// WithBedrockEmbeddingLogger sets the logger.
func WithBedrockEmbeddingLogger(logger *slog.Logger) BedrockEmbeddingOption {
	return func(b *BedrockEmbedding) {
		b.logger = logger
	}
}

// NewBedrockEmbedding creates a Titan embedding client using the default
// AWS credential chain.
func NewBedrockEmbedding(ctx context.Context, opts ...BedrockEmbeddingOption) (*BedrockEmbedding, error) {
	b := &BedrockEmbedding{
		model:      DefaultBedrockEmbeddingModel,
		region:     "us-east-1",
		dimensions: 1024,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		b.region = region
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

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (b *BedrockEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return b.embed(ctx, text)
}

func (b *BedrockEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return b.embed(ctx, query)
}

func (b *BedrockEmbedding) embed(ctx context.Context, text string) ([]float64, error) {
	b.logger.Debug("Embedding text", "model", b.model, "text_len", len(text))

	body, err := json.Marshal(titanRequest{InputText: text, Dimensions: b.dimensions, Normalize: true})
	if err != nil {
		return nil, err
	}
	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.model),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		b.logger.Error("InvokeModel failed", "error", err)
		return nil, fmt.Errorf("bedrock invoke model failed: %w", err)
	}

	var out titanResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, ErrNoEmbeddings
	}
	return out.Embedding, nil
}

var _ EmbeddingModel = (*BedrockEmbedding)(nil)
