package textsplitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type SentenceSplitterTestSuite struct {
	suite.Suite
}

func TestSentenceSplitterTestSuite(t *testing.T) {
	suite.Run(t, new(SentenceSplitterTestSuite))
}

func (s *SentenceSplitterTestSuite) newSplitter(size, overlap int, opts ...SentenceSplitterOption) *SentenceSplitter {
	splitter, err := NewSentenceSplitter(append([]SentenceSplitterOption{
		WithChunkSize(size),
		WithChunkOverlap(overlap),
	}, opts...)...)
	s.Require().NoError(err)
	return splitter
}

func (s *SentenceSplitterTestSuite) TestSplitText_Basic() {
	chunks := s.newSplitter(100, 0).SplitText("Hello world. This is a test.")
	s.Equal([]string{"Hello world. This is a test."}, chunks)
}

func (s *SentenceSplitterTestSuite) TestSplitText_Empty() {
	chunks := s.newSplitter(100, 0).SplitText("")
	s.Equal([]string{""}, chunks)
}

func (s *SentenceSplitterTestSuite) TestSplitText_SplitBySentence() {
	// "This is a test." is 4 words, so it falls back to word splits.
	chunks := s.newSplitter(3, 0).SplitText("Hello world. This is a test.")
	s.Equal([]string{"Hello world. This", "is a test."}, chunks)
}

func (s *SentenceSplitterTestSuite) TestSplitText_Overlap() {
	chunks := s.newSplitter(3, 1).SplitText("A B C D E")
	s.Equal([]string{"A B C", "C D E"}, chunks)
}

func (s *SentenceSplitterTestSuite) TestSplitText_Paragraphs() {
	chunks := s.newSplitter(3, 0).SplitText("P1 S1. P1 S2.\n\n\nP2 S1. P2 S2.")
	s.Equal([]string{"P1 S1.", "P1 S2.", "P2 S1.", "P2 S2."}, chunks)
}

func (s *SentenceSplitterTestSuite) TestSplitText_RegexFallback() {
	chunks := s.newSplitter(1, 0).SplitText("a,b c,d")
	s.Equal([]string{"a,", "b", "c,", "d"}, chunks)
}

func (s *SentenceSplitterTestSuite) TestOverlapLargerThanChunk() {
	_, err := NewSentenceSplitter(WithChunkSize(10), WithChunkOverlap(20))
	s.Error(err)
}

func (s *SentenceSplitterTestSuite) TestSplitTextMetadataAware() {
	splitter := s.newSplitter(60, 0)
	text := strings.Repeat("word ", 100)

	chunks, err := splitter.SplitTextMetadataAware(text, "year: 2021")
	s.Require().NoError(err)
	for _, c := range chunks {
		s.LessOrEqual(len(strings.Fields(c)), 58)
	}

	_, err = splitter.SplitTextMetadataAware(text, strings.Repeat("meta ", 20))
	s.Error(err)
}

func (s *SentenceSplitterTestSuite) TestTikTokenIntegration() {
	tokenizer, err := DefaultTokenizer()
	if err != nil {
		s.T().Skip("tiktoken encoding unavailable: ", err)
		return
	}

	splitter := s.newSplitter(10, 0, WithTokenizer(tokenizer))
	chunks := splitter.SplitText("Hello world with tiktoken")
	s.Equal([]string{"Hello world with tiktoken"}, chunks)
	s.Positive(tokenizer.CountTokens("Uber Technologies annual report"))
	s.Equal(EncodingCL100kBase, tokenizer.EncodingName())
}

func (s *SentenceSplitterTestSuite) TestTikTokenTokenizer_Error() {
	_, err := NewTikTokenTokenizer("no-such-encoding")
	s.Error(err)
}

func (s *SentenceSplitterTestSuite) TestNeurosnapStrategy() {
	strategy, err := NewNeurosnapSplitterStrategy()
	s.Require().NoError(err)

	text := "Mr. Smith went to Washington.  He arrived on Monday.\n"
	sents := strategy.Split(text)
	s.Len(sents, 2)
	s.Equal(text, strings.Join(sents, ""))

	splitter := s.newSplitter(8, 0, WithSplitterStrategy(strategy))
	chunks := splitter.SplitText("Mr. Smith went to Washington. He arrived on Monday.")
	s.Equal([]string{"Mr. Smith went to Washington.", "He arrived on Monday."}, chunks)
}

func (s *SentenceSplitterTestSuite) TestSplitTextKeepSeparator_EdgeCases() {
	s.Empty(SplitTextKeepSeparator("", " "))
	s.Equal([]string{"hello"}, SplitTextKeepSeparator("hello", " "))
	s.Equal([]string{"hello"}, SplitTextKeepSeparator("hello", ""))
	s.Empty(SplitTextKeepSeparator("", ""))
	s.Equal([]string{"a", " b"}, SplitTextKeepSeparator("a b", " "))
}

func (s *SentenceSplitterTestSuite) TestCountTokens() {
	s.Equal(3, CountTokens(NewSimpleTokenizer(), "one two three"))
}
