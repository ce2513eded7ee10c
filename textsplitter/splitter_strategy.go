package textsplitter

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Sentence strategy names.
const (
	StrategyPunkt = "punkt"
	StrategyRegex = "regex"
)

// NewSplitterStrategy returns the named sentence strategy. Empty selects punkt.
func NewSplitterStrategy(name string) (SentenceSplitterStrategy, error) {
	switch name {
	case StrategyPunkt, "":
		s, err := NewNeurosnapSplitterStrategy()
		if err != nil {
			return nil, err
		}
		return s, nil
	case StrategyRegex:
		return NewRegexSplitterStrategy(""), nil
	default:
		return nil, fmt.Errorf("unknown sentence splitter %q, want %s or %s", name, StrategyPunkt, StrategyRegex)
	}
}

// RegexSplitterStrategy uses regex for sentence splitting.
type RegexSplitterStrategy struct {
	split func(string) []string
}

func NewRegexSplitterStrategy(regexStr string) *RegexSplitterStrategy {
	if regexStr == "" {
		regexStr = DefaultChunkingRegex
	}
	return &RegexSplitterStrategy{split: SplitByRegex(regexStr)}
}

func (s *RegexSplitterStrategy) Split(text string) []string {
	return s.split(text)
}

// NeurosnapSplitterStrategy uses the punkt English model from
// neurosnap/sentences for sentence boundaries.
type NeurosnapSplitterStrategy struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewNeurosnapSplitterStrategy loads the bundled English training data.
func NewNeurosnapSplitterStrategy() (*NeurosnapSplitterStrategy, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load english sentence model: %w", err)
	}
	return &NeurosnapSplitterStrategy{tokenizer: tokenizer}, nil
}

// Split returns contiguous pieces of text, one per sentence, so that joining
// them gives back the input.
func (s *NeurosnapSplitterStrategy) Split(text string) []string {
	var result []string
	start := 0
	for _, sent := range s.tokenizer.Tokenize(text) {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed == "" {
			continue
		}
		i := strings.Index(text[start:], trimmed)
		if i < 0 {
			continue
		}
		end := start + i + len(trimmed)
		result = append(result, text[start:end])
		start = end
	}
	if len(result) == 0 {
		return []string{text}
	}
	result[len(result)-1] += text[start:]
	return result
}
