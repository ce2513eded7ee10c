package synthesizer

import (
	"context"

	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
)

// Synthesizer is the interface for response synthesizers.
type Synthesizer interface {
	// Synthesize generates a response from the query and source nodes.
	Synthesize(ctx context.Context, query string, nodes []schema.NodeWithScore) (*Response, error)

	// GetResponse generates a response from query and text chunks.
	GetResponse(ctx context.Context, query string, textChunks []string) (string, error)
}

// BaseSynthesizer holds what every synthesizer needs.
type BaseSynthesizer struct {
	// LLM is the language model for generating responses.
	LLM llm.LLM
	// PromptHelper sizes chunks to the prompt.
	PromptHelper *settings.PromptHelper
}

// NewBaseSynthesizer creates a new BaseSynthesizer. A nil helper gets the
// default sizes with word counting.
func NewBaseSynthesizer(llmModel llm.LLM, helper *settings.PromptHelper) *BaseSynthesizer {
	if helper == nil {
		helper = wordCountingHelper()
	}
	return &BaseSynthesizer{LLM: llmModel, PromptHelper: helper}
}

func wordCountingHelper() *settings.PromptHelper {
	h, err := settings.NewPromptHelper(settings.DefaultMaxInputSize, settings.DefaultNumOutput,
		settings.DefaultMaxChunkOverlap, settings.DefaultChunkSizeLimit, nil)
	if err != nil {
		// the defaults are valid
		panic(err)
	}
	return h
}

// PrepareResponseOutput creates a Response from response string and source nodes.
func (bs *BaseSynthesizer) PrepareResponseOutput(responseStr string, sourceNodes []schema.NodeWithScore) *Response {
	resp := NewResponse(responseStr, sourceNodes)
	for _, n := range sourceNodes {
		resp.Metadata[n.Node.ID] = n.Node.Metadata
	}
	return resp
}

// GetTextChunksFromNodes extracts text content from nodes.
func GetTextChunksFromNodes(nodes []schema.NodeWithScore, mode schema.MetadataMode) []string {
	chunks := make([]string, len(nodes))
	for i, node := range nodes {
		chunks[i] = node.Node.GetContent(mode)
	}
	return chunks
}

// synthesize is the shared Synthesize body.
func synthesize(ctx context.Context, s Synthesizer, bs *BaseSynthesizer, query string, nodes []schema.NodeWithScore) (*Response, error) {
	if len(nodes) == 0 {
		return NewResponse(EmptyResponse, nil), nil
	}

	responseStr, err := s.GetResponse(ctx, query, GetTextChunksFromNodes(nodes, schema.MetadataModeLLM))
	if err != nil {
		return nil, err
	}
	return bs.PrepareResponseOutput(responseStr, nodes), nil
}
