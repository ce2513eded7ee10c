package textsplitter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// EncodingCL100kBase is the encoding shared by the gpt-3.5/gpt-4 chat models
// and text-embedding-ada-002.
const EncodingCL100kBase = "cl100k_base"

// SimpleTokenizer tokenizes text by splitting on whitespace.
type SimpleTokenizer struct{}

func NewSimpleTokenizer() *SimpleTokenizer {
	return &SimpleTokenizer{}
}

func (t *SimpleTokenizer) Encode(text string) []string {
	return strings.Fields(text)
}

func (t *SimpleTokenizer) CountTokens(text string) int {
	return len(strings.Fields(text))
}

// TikTokenTokenizer tokenizes text using OpenAI's tiktoken encodings.
type TikTokenTokenizer struct {
	encoding     *tiktoken.Tiktoken
	encodingName string
}

// NewTikTokenTokenizer creates a tokenizer for the named encoding.
// An empty name selects cl100k_base.
func NewTikTokenTokenizer(encodingName string) (*TikTokenTokenizer, error) {
	if encodingName == "" {
		encodingName = EncodingCL100kBase
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
	}
	return &TikTokenTokenizer{encoding: enc, encodingName: encodingName}, nil
}

// Encode returns the token IDs as strings. Callers only rely on the count.
func (t *TikTokenTokenizer) Encode(text string) []string {
	ids := t.encoding.Encode(text, nil, nil)
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tokens[i] = strconv.Itoa(id)
	}
	return tokens
}

// CountTokens returns the number of tokens in the text.
func (t *TikTokenTokenizer) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// EncodingName returns the encoding name.
func (t *TikTokenTokenizer) EncodingName() string {
	return t.encodingName
}

var (
	defaultTokenizer     *TikTokenTokenizer
	defaultTokenizerOnce sync.Once
	defaultTokenizerErr  error
)

// DefaultTokenizer returns a shared cl100k_base tokenizer.
// This is safe for concurrent use.
func DefaultTokenizer() (*TikTokenTokenizer, error) {
	defaultTokenizerOnce.Do(func() {
		defaultTokenizer, defaultTokenizerErr = NewTikTokenTokenizer(EncodingCL100kBase)
	})
	return defaultTokenizer, defaultTokenizerErr
}

// CountTokens counts tokens with the tokenizer's fast path when it has one.
func CountTokens(tok Tokenizer, text string) int {
	if c, ok := tok.(TokenCounter); ok {
		return c.CountTokens(text)
	}
	return len(tok.Encode(text))
}

var (
	_ TokenCounter = (*SimpleTokenizer)(nil)
	_ TokenCounter = (*TikTokenTokenizer)(nil)
)
