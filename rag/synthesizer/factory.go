package synthesizer

import (
	"fmt"

	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/settings"
)

// GetSynthesizer returns a synthesizer for the given response mode.
func GetSynthesizer(mode ResponseMode, llmModel llm.LLM, helper *settings.PromptHelper) (Synthesizer, error) {
	switch mode {
	case ResponseModeSimpleSummarize:
		return NewSimpleSynthesizer(llmModel, helper), nil
	case ResponseModeRefine:
		return NewRefineSynthesizer(llmModel, helper), nil
	case ResponseModeCompact, "":
		return NewCompactAndRefineSynthesizer(llmModel, helper), nil
	case ResponseModeTreeSummarize:
		return NewTreeSummarizeSynthesizer(llmModel, helper), nil
	default:
		return nil, fmt.Errorf("unsupported response mode: %s", mode)
	}
}

// FromServiceContext returns a synthesizer for mode using the service
// context's LLM and prompt helper.
func FromServiceContext(mode ResponseMode, sc *settings.ServiceContext) (Synthesizer, error) {
	return GetSynthesizer(mode, sc.LLM, sc.PromptHelper)
}
