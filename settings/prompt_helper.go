package settings

import (
	"fmt"
	"strings"

	"github.com/aqua777/indexquery/prompts"
	"github.com/aqua777/indexquery/textsplitter"
)

const (
	DefaultMaxInputSize    = 3000
	DefaultNumOutput       = 256
	DefaultChunkSizeLimit  = 512
	DefaultMaxChunkOverlap = 20

	// chunkPadding leaves room for the separators added between packed chunks.
	chunkPadding = 5
)

// PromptHelper sizes text so that prompt, context and answer fit in the
// model's context window.
type PromptHelper struct {
	MaxInputSize    int
	NumOutput       int
	ChunkSizeLimit  int
	MaxChunkOverlap int
	Separator       string

	tokenizer textsplitter.Tokenizer
}

// NewPromptHelper creates a PromptHelper. A nil tokenizer counts words.
func NewPromptHelper(maxInputSize, numOutput, maxChunkOverlap, chunkSizeLimit int, tokenizer textsplitter.Tokenizer) (*PromptHelper, error) {
	if maxInputSize <= 0 || numOutput < 0 || maxChunkOverlap < 0 || chunkSizeLimit < 0 {
		return nil, fmt.Errorf("invalid prompt helper sizes: max_input=%d num_output=%d overlap=%d chunk_limit=%d",
			maxInputSize, numOutput, maxChunkOverlap, chunkSizeLimit)
	}
	if numOutput >= maxInputSize {
		return nil, fmt.Errorf("num_output (%d) must be smaller than max_input_size (%d)", numOutput, maxInputSize)
	}
	if tokenizer == nil {
		tokenizer = textsplitter.NewSimpleTokenizer()
	}
	return &PromptHelper{
		MaxInputSize:    maxInputSize,
		NumOutput:       numOutput,
		ChunkSizeLimit:  chunkSizeLimit,
		MaxChunkOverlap: maxChunkOverlap,
		Separator:       "\n\n",
		tokenizer:       tokenizer,
	}, nil
}

// DefaultPromptHelper returns the 3000/256/20/512 helper backed by tiktoken.
func DefaultPromptHelper() (*PromptHelper, error) {
	tok, err := textsplitter.DefaultTokenizer()
	if err != nil {
		return nil, err
	}
	return NewPromptHelper(DefaultMaxInputSize, DefaultNumOutput, DefaultMaxChunkOverlap, DefaultChunkSizeLimit, tok)
}

// Tokenizer returns the tokenizer used for counting.
func (p *PromptHelper) Tokenizer() textsplitter.Tokenizer {
	return p.tokenizer
}

// AvailableChunkSize returns how many tokens each of numChunks chunks may
// use alongside the prompt, capped by ChunkSizeLimit.
func (p *PromptHelper) AvailableChunkSize(prompt *prompts.PromptTemplate, numChunks int) (int, error) {
	if numChunks < 1 {
		numChunks = 1
	}
	promptTokens := textsplitter.CountTokens(p.tokenizer, prompt.EmptyText())
	available := p.MaxInputSize - promptTokens - p.NumOutput
	if available <= 0 {
		return 0, fmt.Errorf("prompt uses %d tokens, leaving no room for context (max_input=%d, num_output=%d)",
			promptTokens, p.MaxInputSize, p.NumOutput)
	}

	size := available/numChunks - chunkPadding
	if p.ChunkSizeLimit > 0 && size > p.ChunkSizeLimit {
		size = p.ChunkSizeLimit
	}
	if size <= 0 {
		return 0, fmt.Errorf("no room for %d chunks in the prompt", numChunks)
	}
	return size, nil
}

// SplitterForPrompt returns a splitter whose chunks fit in prompt.
func (p *PromptHelper) SplitterForPrompt(prompt *prompts.PromptTemplate, numChunks int) (*textsplitter.SentenceSplitter, error) {
	size, err := p.AvailableChunkSize(prompt, numChunks)
	if err != nil {
		return nil, err
	}
	overlap := p.MaxChunkOverlap
	if overlap > size {
		overlap = size / 2
	}
	return textsplitter.NewSentenceSplitter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithTokenizer(p.tokenizer),
	)
}

// Repack joins texts and re-splits them into as few chunks as fit in prompt.
func (p *PromptHelper) Repack(prompt *prompts.PromptTemplate, texts []string) ([]string, error) {
	splitter, err := p.SplitterForPrompt(prompt, 1)
	if err != nil {
		return nil, err
	}

	var nonEmpty []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(t))
		}
	}
	if len(nonEmpty) == 0 {
		return nil, nil
	}
	return splitter.SplitText(strings.Join(nonEmpty, p.Separator)), nil
}
