// Package synthesizer turns retrieved nodes into an answer with an LLM.
package synthesizer

import "fmt"

// ResponseMode represents the mode of response synthesis.
type ResponseMode string

const (
	// ResponseModeRefine answers from the first chunk, then refines the
	// answer with each following chunk.
	ResponseModeRefine ResponseMode = "refine"

	// ResponseModeCompact packs chunks into as few prompt-sized chunks as
	// possible, then refines across them.
	ResponseModeCompact ResponseMode = "compact"

	// ResponseModeSimpleSummarize makes one call with all chunks, truncated
	// to fit the prompt.
	ResponseModeSimpleSummarize ResponseMode = "simple_summarize"

	// ResponseModeTreeSummarize summarizes packed chunks and then the
	// summaries until one answer remains.
	ResponseModeTreeSummarize ResponseMode = "tree_summarize"
)

// String returns the string representation of the response mode.
func (rm ResponseMode) String() string {
	return string(rm)
}

// IsValid checks if the response mode is valid.
func (rm ResponseMode) IsValid() bool {
	switch rm {
	case ResponseModeRefine, ResponseModeCompact, ResponseModeSimpleSummarize, ResponseModeTreeSummarize:
		return true
	default:
		return false
	}
}

// ParseResponseMode parses a configured mode. "simple" is accepted for
// simple_summarize and "" yields compact.
func ParseResponseMode(s string) (ResponseMode, error) {
	switch s {
	case "":
		return ResponseModeCompact, nil
	case "simple":
		return ResponseModeSimpleSummarize, nil
	}
	rm := ResponseMode(s)
	if !rm.IsValid() {
		return "", fmt.Errorf("unsupported response mode: %s", s)
	}
	return rm, nil
}
