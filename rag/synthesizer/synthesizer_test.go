package synthesizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
)

func createTestNodes() []schema.NodeWithScore {
	node1 := schema.NewTextNode("Uber reported revenue of $17.5 billion in 2021.")
	node1.ID = "node1"
	node1.Metadata["year"] = 2021
	node2 := schema.NewTextNode("Mobility gross bookings recovered in the second half.")
	node2.ID = "node2"

	return []schema.NodeWithScore{
		{Node: *node1, Score: 0.9},
		{Node: *node2, Score: 0.8},
	}
}

func smallHelper(t *testing.T, chunkLimit int) *settings.PromptHelper {
	t.Helper()
	h, err := settings.NewPromptHelper(3000, 256, 0, chunkLimit, nil)
	require.NoError(t, err)
	return h
}

func TestParseResponseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ResponseMode
		wantErr bool
	}{
		{"", ResponseModeCompact, false},
		{"compact", ResponseModeCompact, false},
		{"refine", ResponseModeRefine, false},
		{"tree_summarize", ResponseModeTreeSummarize, false},
		{"simple", ResponseModeSimpleSummarize, false},
		{"simple_summarize", ResponseModeSimpleSummarize, false},
		{"accumulate", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResponseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponse(t *testing.T) {
	nodes := createTestNodes()
	resp := NewResponse("Test response", nodes)

	assert.Equal(t, "Test response", resp.String())
	formatted := resp.GetFormattedSources(20)
	assert.Contains(t, formatted, "node1")
	assert.Contains(t, formatted, "...")

	assert.Equal(t, "None", NewResponse("", nil).String())
}

func TestEmptyNodes(t *testing.T) {
	for _, mode := range []ResponseMode{ResponseModeCompact, ResponseModeRefine, ResponseModeSimpleSummarize, ResponseModeTreeSummarize} {
		t.Run(string(mode), func(t *testing.T) {
			mock := llm.NewMockLLM("unused")
			s, err := GetSynthesizer(mode, mock, nil)
			require.NoError(t, err)

			resp, err := s.Synthesize(context.Background(), "q", nil)
			require.NoError(t, err)
			assert.Equal(t, EmptyResponse, resp.Response)
			assert.Empty(t, mock.Prompts())
		})
	}
}

func TestSimpleSynthesizer(t *testing.T) {
	mock := llm.NewMockLLM("Paris")
	s := NewSimpleSynthesizer(mock, nil)

	resp, err := s.Synthesize(context.Background(), "What was revenue?", createTestNodes())
	require.NoError(t, err)
	assert.Equal(t, "Paris", resp.Response)
	assert.Len(t, resp.SourceNodes, 2)
	assert.Contains(t, resp.Metadata, "node1")

	prompts := mock.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Query: What was revenue?")
	assert.Contains(t, prompts[0], "year: 2021")
	assert.Contains(t, prompts[0], "Mobility gross bookings")
}

func TestRefineSynthesizer(t *testing.T) {
	mock := llm.NewMockLLM("refined")
	s := NewRefineSynthesizer(mock, nil)

	resp, err := s.Synthesize(context.Background(), "What happened?", createTestNodes())
	require.NoError(t, err)
	assert.Equal(t, "refined", resp.Response)

	prompts := mock.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "Context information is below.")
	assert.Contains(t, prompts[1], "We have provided an existing answer: refined")
	assert.Contains(t, prompts[1], "Mobility gross bookings")
}

func TestRefineEmptyAnswer(t *testing.T) {
	s := NewRefineSynthesizer(llm.NewMockLLM(""), nil)
	out, err := s.GetResponse(context.Background(), "q", []string{"some context"})
	require.NoError(t, err)
	assert.Equal(t, EmptyResponse, out)
}

func TestCompactAndRefineSynthesizer(t *testing.T) {
	mock := llm.NewMockLLM("compacted")
	s := NewCompactAndRefineSynthesizer(mock, nil)

	resp, err := s.Synthesize(context.Background(), "What happened?", createTestNodes())
	require.NoError(t, err)
	assert.Equal(t, "compacted", resp.Response)

	prompts := mock.Prompts()
	require.Len(t, prompts, 1, "both small nodes fit one prompt")
	assert.Contains(t, prompts[0], "$17.5 billion")
	assert.Contains(t, prompts[0], "Mobility gross bookings")
}

func TestTreeSummarizeSynthesizer(t *testing.T) {
	t.Run("single pack", func(t *testing.T) {
		mock := llm.NewMockLLM("root")
		s := NewTreeSummarizeSynthesizer(mock, nil)

		out, err := s.GetResponse(context.Background(), "q", []string{"a.", "b."})
		require.NoError(t, err)
		assert.Equal(t, "root", out)
		assert.Len(t, mock.Prompts(), 1)
	})

	t.Run("summarizes summaries", func(t *testing.T) {
		mock := llm.NewMockLLM("short summary.")
		s := NewTreeSummarizeSynthesizer(mock, smallHelper(t, 20))

		chunks := []string{
			strings.Repeat("alpha ", 11) + "end.",
			strings.Repeat("beta ", 11) + "end.",
			strings.Repeat("gamma ", 11) + "end.",
		}
		out, err := s.GetResponse(context.Background(), "q", chunks)
		require.NoError(t, err)
		assert.Equal(t, "short summary.", out)

		prompts := mock.Prompts()
		require.GreaterOrEqual(t, len(prompts), 3)
		assert.Contains(t, prompts[len(prompts)-1], "short summary.")
	})

	t.Run("refines when summaries stop shrinking", func(t *testing.T) {
		verbose := strings.Repeat("Revenue grew on strong mobility demand. ", 50)
		mock := llm.NewMockLLM(verbose)
		s := NewTreeSummarizeSynthesizer(mock, smallHelper(t, 512))

		chunks := []string{verbose, verbose, verbose, verbose}
		out, err := s.GetResponse(context.Background(), "how did revenue change?", chunks)
		require.NoError(t, err)
		assert.Equal(t, verbose, out)

		prompts := mock.Prompts()
		require.NotEmpty(t, prompts)
		assert.Contains(t, prompts[len(prompts)-1], "existing answer")
	})

	t.Run("error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		s := NewTreeSummarizeSynthesizer(llm.NewMockLLMWithError(boom), smallHelper(t, 20))
		_, err := s.GetResponse(context.Background(), "q", []string{
			strings.Repeat("alpha ", 15) + "end.",
			strings.Repeat("beta ", 15) + "end.",
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestGetSynthesizer(t *testing.T) {
	mock := llm.NewMockLLM("x")

	s, err := GetSynthesizer(ResponseModeCompact, mock, nil)
	require.NoError(t, err)
	assert.IsType(t, &CompactAndRefineSynthesizer{}, s)

	s, err = GetSynthesizer(ResponseModeTreeSummarize, mock, nil)
	require.NoError(t, err)
	assert.IsType(t, &TreeSummarizeSynthesizer{}, s)

	_, err = GetSynthesizer(ResponseMode("generation"), mock, nil)
	assert.Error(t, err)
}

func TestSynthesizeErrorPropagates(t *testing.T) {
	boom := errors.New("service unavailable")
	s := NewCompactAndRefineSynthesizer(llm.NewMockLLMWithError(boom), nil)

	_, err := s.Synthesize(context.Background(), "q", createTestNodes())
	assert.ErrorIs(t, err, boom)
}
