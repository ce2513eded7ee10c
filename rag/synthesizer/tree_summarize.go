package synthesizer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/prompts"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
)

// DefaultTreeConcurrency bounds the LLM calls made per tree level.
const DefaultTreeConcurrency = 4

// TreeSummarizeSynthesizer summarizes packed chunks level by level until a
// single answer remains.
type TreeSummarizeSynthesizer struct {
	*BaseSynthesizer
	// SummaryTemplate is the prompt template for summarization.
	SummaryTemplate *prompts.PromptTemplate
	// Concurrency bounds parallel calls within a level.
	Concurrency int
}

// TreeSummarizeSynthesizerOption is a functional option.
type TreeSummarizeSynthesizerOption func(*TreeSummarizeSynthesizer)

// WithSummaryTemplate sets the summary template.
func WithSummaryTemplate(template *prompts.PromptTemplate) TreeSummarizeSynthesizerOption {
	return func(ts *TreeSummarizeSynthesizer) {
		ts.SummaryTemplate = template
	}
}

// WithConcurrency sets how many summaries of one level run at once.
func WithConcurrency(n int) TreeSummarizeSynthesizerOption {
	return func(ts *TreeSummarizeSynthesizer) {
		ts.Concurrency = n
	}
}

// NewTreeSummarizeSynthesizer creates a new TreeSummarizeSynthesizer.
func NewTreeSummarizeSynthesizer(llmModel llm.LLM, helper *settings.PromptHelper, opts ...TreeSummarizeSynthesizerOption) *TreeSummarizeSynthesizer {
	ts := &TreeSummarizeSynthesizer{
		BaseSynthesizer: NewBaseSynthesizer(llmModel, helper),
		SummaryTemplate: prompts.DefaultTreeSummarizePrompt,
		Concurrency:     DefaultTreeConcurrency,
	}
	for _, opt := range opts {
		opt(ts)
	}
	if ts.Concurrency < 1 {
		ts.Concurrency = 1
	}
	return ts
}

// Synthesize generates a response from the query and source nodes.
func (ts *TreeSummarizeSynthesizer) Synthesize(ctx context.Context, query string, nodes []schema.NodeWithScore) (*Response, error) {
	return synthesize(ctx, ts, ts.BaseSynthesizer, query, nodes)
}

// GetResponse generates a response using tree summarization.
func (ts *TreeSummarizeSynthesizer) GetResponse(ctx context.Context, query string, textChunks []string) (string, error) {
	summary := ts.SummaryTemplate.PartialFormat(map[string]string{"query_str": query})
	return ts.summarizeLevel(ctx, query, summary, textChunks, 0)
}

// summarizeLevel packs chunks, summarizes each pack and recurses on the
// summaries. prevPacks is the pack count of the level below, 0 at the leaves.
// A level that does not shrink is finished by refining across its packs.
func (ts *TreeSummarizeSynthesizer) summarizeLevel(ctx context.Context, query string, summary *prompts.PromptTemplate, chunks []string, prevPacks int) (string, error) {
	packed, err := ts.PromptHelper.Repack(summary, chunks)
	if err != nil {
		return "", err
	}
	switch len(packed) {
	case 0:
		return EmptyResponse, nil
	case 1:
		return ts.summarizeChunk(ctx, summary, packed[0])
	}
	if prevPacks > 0 && len(packed) >= prevPacks {
		return NewRefineSynthesizer(ts.LLM, ts.PromptHelper).GetResponse(ctx, query, packed)
	}

	summaries := make([]string, len(packed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ts.Concurrency)
	for i, chunk := range packed {
		g.Go(func() error {
			s, err := ts.summarizeChunk(gctx, summary, chunk)
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return ts.summarizeLevel(ctx, query, summary, summaries, len(packed))
}

func (ts *TreeSummarizeSynthesizer) summarizeChunk(ctx context.Context, summary *prompts.PromptTemplate, chunk string) (string, error) {
	out, err := ts.LLM.Complete(ctx, summary.Format(map[string]string{"context_str": chunk}))
	if err != nil {
		return "", fmt.Errorf("failed to summarize chunk: %w", err)
	}
	return out, nil
}

var _ Synthesizer = (*TreeSummarizeSynthesizer)(nil)
