// Package prompts provides the prompt templates used to synthesize answers.
package prompts

// PromptType represents the type/category of a prompt.
type PromptType string

const (
	PromptTypeSummary        PromptType = "summary"
	PromptTypeTreeSummarize  PromptType = "tree_summarize"
	PromptTypeQuestionAnswer PromptType = "text_qa"
	PromptTypeRefine         PromptType = "refine"
	PromptTypeSimpleInput    PromptType = "simple_input"
	PromptTypeCustom         PromptType = "custom"
)

// String returns the string representation of the prompt type.
func (pt PromptType) String() string {
	return string(pt)
}
