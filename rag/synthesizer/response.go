package synthesizer

import (
	"strings"

	"github.com/aqua777/indexquery/schema"
)

// EmptyResponse is the answer given when there is nothing to synthesize from.
const EmptyResponse = "Empty Response"

// Response represents a synthesized answer with its sources.
type Response struct {
	// Response is the response text.
	Response string
	// SourceNodes are the nodes the response was generated from.
	SourceNodes []schema.NodeWithScore
	// Metadata maps source node IDs to their metadata.
	Metadata map[string]interface{}
}

// NewResponse creates a new Response.
func NewResponse(response string, sourceNodes []schema.NodeWithScore) *Response {
	return &Response{
		Response:    response,
		SourceNodes: sourceNodes,
		Metadata:    make(map[string]interface{}),
	}
}

// String returns the response text.
func (r *Response) String() string {
	if r.Response == "" {
		return "None"
	}
	return r.Response
}

// GetFormattedSources returns each source truncated to length characters.
func (r *Response) GetFormattedSources(length int) string {
	var texts []string
	for _, sourceNode := range r.SourceNodes {
		content := sourceNode.Node.GetContent(schema.MetadataModeLLM)
		if len(content) > length {
			content = content[:length] + "..."
		}
		docID := sourceNode.Node.ID
		if docID == "" {
			docID = "None"
		}
		texts = append(texts, "> Source (Doc id: "+docID+"): "+content)
	}
	return strings.Join(texts, "\n\n")
}
