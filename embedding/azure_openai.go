package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultAzureAPIVersion is the API version used when none is configured.
const DefaultAzureAPIVersion = "2024-02-15-preview"

// ErrNoEmbeddings is returned when the service answers with fewer vectors
// than inputs.
var ErrNoEmbeddings = errors.New("embedding service returned no embeddings")

// AzureOpenAIEmbedding implements the EmbeddingModel interface for an Azure
// OpenAI embedding deployment.
type AzureOpenAIEmbedding struct {
	client     *openai.Client
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	batchSize  int
	logger     *slog.Logger
}

// AzureOpenAIEmbeddingOption configures an AzureOpenAIEmbedding.
type AzureOpenAIEmbeddingOption func(*AzureOpenAIEmbedding)

// WithAzureEmbeddingEndpoint sets the resource endpoint.
func WithAzureEmbeddingEndpoint(endpoint string) AzureOpenAIEmbeddingOption {
	return func(a *AzureOpenAIEmbedding) {
		a.endpoint = endpoint
	}
}

// WithAzureEmbeddingAPIKey sets the API key.
func WithAzureEmbeddingAPIKey(apiKey string) AzureOpenAIEmbeddingOption {
	return func(a *AzureOpenAIEmbedding) {
		a.apiKey = apiKey
	}
}

// WithAzureEmbeddingDeployment sets the deployment name.
func WithAzureEmbeddingDeployment(deployment string) AzureOpenAIEmbeddingOption {
	return func(a *AzureOpenAIEmbedding) {
		a.deployment = deployment
	}
}

// WithAzureEmbeddingAPIVersion sets the API version.
func WithAzureEmbeddingAPIVersion(version string) AzureOpenAIEmbeddingOption {
	return func(a *AzureOpenAIEmbedding) {
		a.apiVersion = version
	}
}

// WithAzureEmbeddingBatchSize sets how many texts go into one request.
// Values below 1 are treated as 1.
func WithAzureEmbeddingBatchSize(size int) AzureOpenAIEmbeddingOption {
	return func(a *AzureOpenAIEmbedding) {
		if size < 1 {
			size = 1
		}
		a.batchSize = size
	}
}

// WithAzureEmbeddingLogger sets the logger.
func WithAzureEmbeddingLogger(logger *slog.Logger) AzureOpenAIEmbeddingOption {
	return func(a *AzureOpenAIEmbedding) {
		a.logger = logger
	}
}

// NewAzureOpenAIEmbedding creates a new Azure OpenAI embedding client.
// Endpoint and key fall back to AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY.
func NewAzureOpenAIEmbedding(opts ...AzureOpenAIEmbeddingOption) *AzureOpenAIEmbedding {
	a := &AzureOpenAIEmbedding{
		endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		apiKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
		deployment: os.Getenv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT"),
		apiVersion: DefaultAzureAPIVersion,
		batchSize:  1,
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

// GetTextEmbedding generates an embedding for a given text.
func (a *AzureOpenAIEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return a.getEmbedding(ctx, text)
}

// GetQueryEmbedding generates an embedding for a given query.
func (a *AzureOpenAIEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return a.getEmbedding(ctx, query)
}

func (a *AzureOpenAIEmbedding) getEmbedding(ctx context.Context, text string) ([]float64, error) {
	out, err := a.embed(ctx, []string{text})
	if err != nil {
		a.logger.Error("GetEmbedding failed", "error", err)
		return nil, fmt.Errorf("azure openai embedding failed: %w", err)
	}
	return out[0], nil
}

// GetTextEmbeddingsBatch embeds texts in requests of at most batchSize inputs.
func (a *AzureOpenAIEmbedding) GetTextEmbeddingsBatch(ctx context.Context, texts []string, callback ProgressCallback) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	a.logger.Info("GetTextEmbeddingsBatch called", "deployment", a.deployment, "count", len(texts), "batch_size", a.batchSize)

	results := make([][]float64, 0, len(texts))
	for i := 0; i < len(texts); i += a.batchSize {
		end := i + a.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := a.embed(ctx, texts[i:end])
		if err != nil {
			a.logger.Error("GetTextEmbeddingsBatch failed", "error", err)
			return nil, fmt.Errorf("azure openai batch embedding failed: %w", err)
		}
		results = append(results, batch...)

		if callback != nil {
			callback(len(results), len(texts))
		}
	}

	return results, nil
}

func (a *AzureOpenAIEmbedding) embed(ctx context.Context, inputs []string) ([][]float64, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(a.deployment),
	})
	if err != nil {
		return nil, err
	}
	return toFloat64(resp.Data, len(inputs))
}

// toFloat64 orders the response by index and widens each vector.
func toFloat64(data []openai.Embedding, want int) ([][]float64, error) {
	if len(data) < want {
		return nil, ErrNoEmbeddings
	}

	out := make([][]float64, want)
	for i, d := range data {
		idx := d.Index
		if idx < 0 || idx >= want {
			idx = i
		}
		vec := make([]float64, len(d.Embedding))
		for k, v := range d.Embedding {
			vec[k] = float64(v)
		}
		out[idx] = vec
	}
	for _, vec := range out {
		if vec == nil {
			return nil, ErrNoEmbeddings
		}
	}
	return out, nil
}

var _ EmbeddingModelWithBatch = (*AzureOpenAIEmbedding)(nil)
