package textsplitter

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize     = 512
	DefaultChunkOverlap  = 20
	DefaultParagraphSep  = "\n\n\n"
	DefaultSeparator     = " "
	DefaultChunkingRegex = `[^,.;。？！]+[,.;。？！]?|[,.;。？！]`

	// minContentTokens is the smallest window left for text after metadata.
	minContentTokens = 50
)

// textSplit holds intermediate split information.
type textSplit struct {
	text       string
	isSentence bool
	tokenSize  int
}

// SentenceSplitter splits text with a preference for complete sentences.
// Paragraphs are tried first, then sentences, then sub-sentence pieces,
// words and finally characters.
type SentenceSplitter struct {
	chunkSize          int
	chunkOverlap       int
	separator          string
	paragraphSeparator string
	secondaryRegex     string
	tokenizer          Tokenizer
	strategy           SentenceSplitterStrategy

	splitFns            []func(string) []string
	subSentenceSplitFns []func(string) []string
}

// SentenceSplitterOption configures a SentenceSplitter.
type SentenceSplitterOption func(*SentenceSplitter)

// WithChunkSize sets the maximum tokens per chunk.
func WithChunkSize(size int) SentenceSplitterOption {
	return func(s *SentenceSplitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithChunkOverlap sets how many trailing tokens of a chunk are repeated at
// the start of the next one.
func WithChunkOverlap(overlap int) SentenceSplitterOption {
	return func(s *SentenceSplitter) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// WithTokenizer sets the tokenizer used to measure splits.
func WithTokenizer(tok Tokenizer) SentenceSplitterOption {
	return func(s *SentenceSplitter) {
		if tok != nil {
			s.tokenizer = tok
		}
	}
}

// WithSplitterStrategy sets the primary sentence splitter.
func WithSplitterStrategy(strategy SentenceSplitterStrategy) SentenceSplitterOption {
	return func(s *SentenceSplitter) {
		if strategy != nil {
			s.strategy = strategy
		}
	}
}

// WithParagraphSeparator sets the paragraph separator.
func WithParagraphSeparator(sep string) SentenceSplitterOption {
	return func(s *SentenceSplitter) {
		s.paragraphSeparator = sep
	}
}

// NewSentenceSplitter creates a new SentenceSplitter. It defaults to
// whitespace token counting and the regex sentence strategy.
func NewSentenceSplitter(opts ...SentenceSplitterOption) (*SentenceSplitter, error) {
	s := &SentenceSplitter{
		chunkSize:          DefaultChunkSize,
		chunkOverlap:       DefaultChunkOverlap,
		separator:          DefaultSeparator,
		paragraphSeparator: DefaultParagraphSep,
		secondaryRegex:     DefaultChunkingRegex,
		tokenizer:          NewSimpleTokenizer(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkOverlap > s.chunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) is larger than chunk size (%d)", s.chunkOverlap, s.chunkSize)
	}
	if s.strategy == nil {
		s.strategy = NewRegexSplitterStrategy(DefaultChunkingRegex)
	}

	s.splitFns = []func(string) []string{
		SplitBySep(s.paragraphSeparator),
		s.strategy.Split,
	}
	s.subSentenceSplitFns = []func(string) []string{
		SplitByRegex(s.secondaryRegex),
		SplitBySep(s.separator),
		SplitByChar(),
	}
	return s, nil
}

// Strategy returns the sentence strategy in use.
func (s *SentenceSplitter) Strategy() SentenceSplitterStrategy {
	return s.strategy
}

// ChunkSize returns the configured chunk size.
func (s *SentenceSplitter) ChunkSize() int {
	return s.chunkSize
}

// SplitText splits the text into chunks.
func (s *SentenceSplitter) SplitText(text string) []string {
	return s.splitText(text, s.chunkSize)
}

// SplitTextMetadataAware splits text so that every chunk still fits the chunk
// size once metadata is prepended to it.
func (s *SentenceSplitter) SplitTextMetadataAware(text string, metadata string) ([]string, error) {
	metadataLength := s.tokenSize(metadata)
	effective := s.chunkSize - metadataLength
	if effective < minContentTokens {
		return nil, fmt.Errorf("metadata length (%d) is too large for chunk size (%d), leaving fewer than %d tokens for content", metadataLength, s.chunkSize, minContentTokens)
	}
	return s.splitText(text, effective), nil
}

func (s *SentenceSplitter) splitText(text string, chunkSize int) []string {
	if text == "" {
		return []string{text}
	}
	return postprocessChunks(s.merge(s.split(text, chunkSize), chunkSize))
}

func (s *SentenceSplitter) split(text string, chunkSize int) []textSplit {
	size := s.tokenSize(text)
	if size <= chunkSize {
		return []textSplit{{text: text, isSentence: true, tokenSize: size}}
	}

	pieces, isSentence := s.splitsByFns(text)
	var out []textSplit
	for _, piece := range pieces {
		size := s.tokenSize(piece)
		if size <= chunkSize {
			out = append(out, textSplit{text: piece, isSentence: isSentence, tokenSize: size})
			continue
		}
		out = append(out, s.split(piece, chunkSize)...)
	}
	return out
}

func (s *SentenceSplitter) merge(splits []textSplit, chunkSize int) []string {
	var chunks []string
	var cur []textSplit
	curLen := 0
	newChunk := true

	closeChunk := func() {
		chunks = append(chunks, joinSplits(cur))
		last := cur
		cur = nil
		curLen = 0
		newChunk = true

		// carry the tail of the closed chunk forward as overlap
		for i := len(last) - 1; i >= 0; i-- {
			if curLen+last[i].tokenSize > s.chunkOverlap {
				break
			}
			curLen += last[i].tokenSize
			cur = append([]textSplit{last[i]}, cur...)
		}
	}

	for i := 0; i < len(splits); {
		sp := splits[i]
		if curLen+sp.tokenSize > chunkSize && !newChunk {
			closeChunk()
			continue
		}
		if sp.isSentence || curLen+sp.tokenSize <= chunkSize || newChunk {
			curLen += sp.tokenSize
			cur = append(cur, sp)
			newChunk = false
			i++
		} else {
			closeChunk()
		}
	}

	if !newChunk {
		chunks = append(chunks, joinSplits(cur))
	}
	return chunks
}

func joinSplits(splits []textSplit) string {
	var sb strings.Builder
	for _, sp := range splits {
		sb.WriteString(sp.text)
	}
	return sb.String()
}

func postprocessChunks(chunks []string) []string {
	var out []string
	for _, chunk := range chunks {
		if stripped := strings.TrimSpace(chunk); stripped != "" {
			out = append(out, stripped)
		}
	}
	return out
}

func (s *SentenceSplitter) tokenSize(text string) int {
	return CountTokens(s.tokenizer, text)
}

func (s *SentenceSplitter) splitsByFns(text string) ([]string, bool) {
	for _, fn := range s.splitFns {
		if splits := fn(text); len(splits) > 1 {
			return splits, true
		}
	}

	var splits []string
	for _, fn := range s.subSentenceSplitFns {
		splits = fn(text)
		if len(splits) > 1 {
			break
		}
	}
	return splits, false
}

var _ MetadataAwareSplitter = (*SentenceSplitter)(nil)
