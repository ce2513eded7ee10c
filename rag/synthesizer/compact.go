package synthesizer

import (
	"context"

	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
)

// CompactAndRefineSynthesizer packs text chunks before refining, so it
// makes as few LLM calls as the prompt size allows.
type CompactAndRefineSynthesizer struct {
	*RefineSynthesizer
}

// NewCompactAndRefineSynthesizer creates a new CompactAndRefineSynthesizer.
func NewCompactAndRefineSynthesizer(llmModel llm.LLM, helper *settings.PromptHelper, opts ...RefineSynthesizerOption) *CompactAndRefineSynthesizer {
	return &CompactAndRefineSynthesizer{RefineSynthesizer: NewRefineSynthesizer(llmModel, helper, opts...)}
}

// Synthesize generates a response from the query and source nodes.
func (cs *CompactAndRefineSynthesizer) Synthesize(ctx context.Context, query string, nodes []schema.NodeWithScore) (*Response, error) {
	return synthesize(ctx, cs, cs.BaseSynthesizer, query, nodes)
}

// GetResponse repacks the chunks to fit the larger of the two prompts, then refines.
func (cs *CompactAndRefineSynthesizer) GetResponse(ctx context.Context, query string, textChunks []string) (string, error) {
	// the refine prompt carries the existing answer, so it is the tighter fit
	refine := cs.RefineTemplate.PartialFormat(map[string]string{"query_str": query})
	packed, err := cs.PromptHelper.Repack(refine, textChunks)
	if err != nil {
		return "", err
	}
	return cs.RefineSynthesizer.GetResponse(ctx, query, packed)
}

var _ Synthesizer = (*CompactAndRefineSynthesizer)(nil)
