package synthesizer

import (
	"context"
	"fmt"

	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/prompts"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
)

// SimpleSynthesizer makes one LLM call with all chunks merged. Context that
// does not fit the prompt is dropped.
type SimpleSynthesizer struct {
	*BaseSynthesizer
	// TextQATemplate is the prompt template for QA.
	TextQATemplate *prompts.PromptTemplate
}

// NewSimpleSynthesizer creates a new SimpleSynthesizer.
func NewSimpleSynthesizer(llmModel llm.LLM, helper *settings.PromptHelper) *SimpleSynthesizer {
	return &SimpleSynthesizer{
		BaseSynthesizer: NewBaseSynthesizer(llmModel, helper),
		TextQATemplate:  prompts.DefaultTextQAPrompt,
	}
}

// Synthesize generates a response from the query and source nodes.
func (ss *SimpleSynthesizer) Synthesize(ctx context.Context, query string, nodes []schema.NodeWithScore) (*Response, error) {
	return synthesize(ctx, ss, ss.BaseSynthesizer, query, nodes)
}

// GetResponse generates a response from query and text chunks.
func (ss *SimpleSynthesizer) GetResponse(ctx context.Context, query string, textChunks []string) (string, error) {
	qa := ss.TextQATemplate.PartialFormat(map[string]string{"query_str": query})
	packed, err := ss.PromptHelper.Repack(qa, textChunks)
	if err != nil {
		return "", err
	}

	var contextStr string
	if len(packed) > 0 {
		contextStr = packed[0]
	}

	response, err := ss.LLM.Complete(ctx, qa.Format(map[string]string{"context_str": contextStr}))
	if err != nil {
		return "", fmt.Errorf("failed to answer from context: %w", err)
	}
	return response, nil
}

var _ Synthesizer = (*SimpleSynthesizer)(nil)
