package prompts

import (
	"regexp"
	"strings"
)

// templateVarRegex matches {variable} placeholders in templates.
var templateVarRegex = regexp.MustCompile(`\{(\w+)\}`)

// GetTemplateVars extracts variable names from a template string.
func GetTemplateVars(template string) []string {
	matches := templateVarRegex.FindAllStringSubmatch(template, -1)
	vars := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for _, match := range matches {
		if len(match) > 1 && !seen[match[1]] {
			vars = append(vars, match[1])
			seen[match[1]] = true
		}
	}
	return vars
}

// FormatString formats a template string with the given variables.
// Placeholders without a value are left in place.
func FormatString(template string, vars map[string]string) string {
	return templateVarRegex.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// PromptTemplate is a string prompt with {variable} placeholders.
type PromptTemplate struct {
	Template     string
	TemplateVars []string
	PromptType   PromptType
	// PartialVars are pre-filled variables.
	PartialVars map[string]string
}

// NewPromptTemplate creates a new PromptTemplate.
func NewPromptTemplate(template string, promptType PromptType) *PromptTemplate {
	return &PromptTemplate{
		Template:     template,
		TemplateVars: GetTemplateVars(template),
		PromptType:   promptType,
		PartialVars:  make(map[string]string),
	}
}

// Format formats the prompt into a string. Provided vars win over partial vars.
func (pt *PromptTemplate) Format(vars map[string]string) string {
	allVars := make(map[string]string, len(pt.PartialVars)+len(vars))
	for k, v := range pt.PartialVars {
		allVars[k] = v
	}
	for k, v := range vars {
		allVars[k] = v
	}
	return FormatString(pt.Template, allVars)
}

// EmptyText formats the template with every unfilled variable blanked out.
// It is the fixed overhead a prompt adds around its inserted content.
func (pt *PromptTemplate) EmptyText() string {
	blank := make(map[string]string, len(pt.TemplateVars))
	for _, v := range pt.TemplateVars {
		if _, ok := pt.PartialVars[v]; !ok {
			blank[v] = ""
		}
	}
	return pt.Format(blank)
}

// PartialFormat returns a copy of the template with some variables pre-filled.
func (pt *PromptTemplate) PartialFormat(vars map[string]string) *PromptTemplate {
	out := &PromptTemplate{
		Template:     pt.Template,
		TemplateVars: pt.TemplateVars,
		PromptType:   pt.PromptType,
		PartialVars:  make(map[string]string, len(pt.PartialVars)+len(vars)),
	}
	for k, v := range pt.PartialVars {
		out.PartialVars[k] = v
	}
	for k, v := range vars {
		out.PartialVars[k] = v
	}
	return out
}

// String returns the raw template.
func (pt *PromptTemplate) String() string {
	return strings.TrimSpace(pt.Template)
}
