package synthesizer

import (
	"context"
	"fmt"

	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/prompts"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
)

// RefineSynthesizer iteratively refines the response across text chunks.
type RefineSynthesizer struct {
	*BaseSynthesizer
	// TextQATemplate is the prompt template for the first answer.
	TextQATemplate *prompts.PromptTemplate
	// RefineTemplate is the prompt template for refining answers.
	RefineTemplate *prompts.PromptTemplate
}

// RefineSynthesizerOption is a functional option for RefineSynthesizer.
type RefineSynthesizerOption func(*RefineSynthesizer)

// WithTextQATemplate sets the QA template.
func WithTextQATemplate(template *prompts.PromptTemplate) RefineSynthesizerOption {
	return func(rs *RefineSynthesizer) {
		rs.TextQATemplate = template
	}
}

// WithRefineTemplate sets the refine template.
func WithRefineTemplate(template *prompts.PromptTemplate) RefineSynthesizerOption {
	return func(rs *RefineSynthesizer) {
		rs.RefineTemplate = template
	}
}

// NewRefineSynthesizer creates a new RefineSynthesizer.
func NewRefineSynthesizer(llmModel llm.LLM, helper *settings.PromptHelper, opts ...RefineSynthesizerOption) *RefineSynthesizer {
	rs := &RefineSynthesizer{
		BaseSynthesizer: NewBaseSynthesizer(llmModel, helper),
		TextQATemplate:  prompts.DefaultTextQAPrompt,
		RefineTemplate:  prompts.DefaultRefinePrompt,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Synthesize generates a response from the query and source nodes.
func (rs *RefineSynthesizer) Synthesize(ctx context.Context, query string, nodes []schema.NodeWithScore) (*Response, error) {
	return synthesize(ctx, rs, rs.BaseSynthesizer, query, nodes)
}

// GetResponse answers from the first chunk and refines with the rest.
// Chunks larger than the prompt allows are split first.
func (rs *RefineSynthesizer) GetResponse(ctx context.Context, query string, textChunks []string) (string, error) {
	var (
		response string
		answered bool
		err      error
	)

	for _, chunk := range textChunks {
		if !answered {
			response, err = rs.giveResponseSingle(ctx, query, chunk)
			answered = true
		} else {
			response, err = rs.refineResponseSingle(ctx, response, query, chunk)
		}
		if err != nil {
			return "", err
		}
	}

	if response == "" {
		response = EmptyResponse
	}
	return response, nil
}

func (rs *RefineSynthesizer) giveResponseSingle(ctx context.Context, query, textChunk string) (string, error) {
	qa := rs.TextQATemplate.PartialFormat(map[string]string{"query_str": query})
	splitter, err := rs.PromptHelper.SplitterForPrompt(qa, 1)
	if err != nil {
		return "", err
	}

	var response string
	for i, piece := range splitter.SplitText(textChunk) {
		if i == 0 {
			response, err = rs.LLM.Complete(ctx, qa.Format(map[string]string{"context_str": piece}))
			if err != nil {
				return "", fmt.Errorf("failed to answer from context: %w", err)
			}
			continue
		}
		response, err = rs.refineResponseSingle(ctx, response, query, piece)
		if err != nil {
			return "", err
		}
	}
	return response, nil
}

func (rs *RefineSynthesizer) refineResponseSingle(ctx context.Context, existingAnswer, query, textChunk string) (string, error) {
	refine := rs.RefineTemplate.PartialFormat(map[string]string{
		"query_str":       query,
		"existing_answer": existingAnswer,
	})
	splitter, err := rs.PromptHelper.SplitterForPrompt(refine, 1)
	if err != nil {
		return "", err
	}

	response := existingAnswer
	for _, piece := range splitter.SplitText(textChunk) {
		refine = rs.RefineTemplate.PartialFormat(map[string]string{
			"query_str":       query,
			"existing_answer": response,
		})
		response, err = rs.LLM.Complete(ctx, refine.Format(map[string]string{"context_msg": piece}))
		if err != nil {
			return "", fmt.Errorf("failed to refine answer: %w", err)
		}
	}
	return response, nil
}

var _ Synthesizer = (*RefineSynthesizer)(nil)
