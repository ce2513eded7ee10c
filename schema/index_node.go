package schema

import (
	"github.com/google/uuid"
)

// NewIndexNode creates a node that stands in for another index.
// The summary becomes the node text so a parent index can reason about the child.
func NewIndexNode(indexID, summary string) Node {
	node := Node{
		ID:       uuid.New().String(),
		Text:     summary,
		Type:     ObjectTypeIndex,
		IndexID:  indexID,
		Metadata: make(map[string]interface{}),
	}
	node.Hash = node.GenerateHash()
	return node
}
