package prompts

const (
	DefaultSummaryPromptTmpl = `Write a summary of the following. Try to use only the information provided. Try to include as many key details as possible.

{context_str}

SUMMARY:`

	DefaultTreeSummarizeTmpl = `Context information from multiple sources is below.
---------------------
{context_str}
---------------------
Given the information from multiple sources and not prior knowledge, answer the query.
Query: {query_str}
Answer: `
)

const (
	DefaultTextQAPromptTmpl = `Context information is below.
---------------------
{context_str}
---------------------
Given the context information and not prior knowledge, answer the query.
Query: {query_str}
Answer: `

	DefaultRefinePromptTmpl = `The original query is as follows: {query_str}
We have provided an existing answer: {existing_answer}
We have the opportunity to refine the existing answer (only if needed) with some more context below.
------------
{context_msg}
------------
Given the new context, refine the original answer to better answer the query. If the context isn't useful, return the original answer.
Refined Answer: `

	DefaultSimpleInputTmpl = `{query_str}`
)

var (
	DefaultSummaryPrompt       = NewPromptTemplate(DefaultSummaryPromptTmpl, PromptTypeSummary)
	DefaultTreeSummarizePrompt = NewPromptTemplate(DefaultTreeSummarizeTmpl, PromptTypeTreeSummarize)
	DefaultTextQAPrompt        = NewPromptTemplate(DefaultTextQAPromptTmpl, PromptTypeQuestionAnswer)
	DefaultRefinePrompt        = NewPromptTemplate(DefaultRefinePromptTmpl, PromptTypeRefine)
	DefaultSimpleInputPrompt   = NewPromptTemplate(DefaultSimpleInputTmpl, PromptTypeSimpleInput)
)

// GetDefaultPrompt returns a default prompt by type, or nil.
func GetDefaultPrompt(promptType PromptType) *PromptTemplate {
	switch promptType {
	case PromptTypeSummary:
		return DefaultSummaryPrompt
	case PromptTypeTreeSummarize:
		return DefaultTreeSummarizePrompt
	case PromptTypeQuestionAnswer:
		return DefaultTextQAPrompt
	case PromptTypeRefine:
		return DefaultRefinePrompt
	case PromptTypeSimpleInput:
		return DefaultSimpleInputPrompt
	default:
		return nil
	}
}
