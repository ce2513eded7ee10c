// Package textsplitter chunks document text into token-bounded pieces.
package textsplitter

// TextSplitter is the interface for splitting text.
type TextSplitter interface {
	SplitText(text string) []string
}

// MetadataAwareSplitter splits text while reserving room for a metadata
// string that will be prepended to every chunk.
type MetadataAwareSplitter interface {
	TextSplitter
	SplitTextMetadataAware(text, metadata string) ([]string, error)
}

// Tokenizer is the interface for tokenizing text.
// It encodes text into a list of string tokens.
type Tokenizer interface {
	Encode(text string) []string
}

// TokenCounter counts tokens without materializing them.
type TokenCounter interface {
	CountTokens(text string) int
}

// SentenceSplitterStrategy is the interface for primary sentence splitting.
type SentenceSplitterStrategy interface {
	Split(text string) []string
}
