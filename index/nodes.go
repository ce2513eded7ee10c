package index

import (
	"fmt"
	"maps"
	"strings"

	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/textsplitter"
)

// NodesFromDocuments splits each document into text nodes. Every node keeps
// the document metadata and points back at it through RefDocID; the chunk
// size leaves room for the metadata that will be embedded with it.
func NodesFromDocuments(documents []schema.Document, splitter textsplitter.MetadataAwareSplitter) ([]schema.Node, error) {
	var nodes []schema.Node
	for _, doc := range documents {
		docNode := doc.AsNode()
		chunks, err := splitter.SplitTextMetadataAware(doc.Text, docNode.GetMetadataStr(schema.MetadataModeEmbed))
		if err != nil {
			return nil, fmt.Errorf("failed to split document %s: %w", doc.ID, err)
		}

		for _, chunk := range chunks {
			if strings.TrimSpace(chunk) == "" {
				continue
			}
			node := schema.NewTextNode(chunk)
			node.Metadata = maps.Clone(doc.Metadata)
			if node.Metadata == nil {
				node.Metadata = make(map[string]interface{})
			}
			node.RefDocID = doc.ID
			node.ExcludedEmbedMetadataKeys = doc.ExcludedEmbedMetadataKeys
			node.ExcludedLLMMetadataKeys = doc.ExcludedLLMMetadataKeys
			node.Hash = node.GenerateHash()
			nodes = append(nodes, *node)
		}
	}
	return nodes, nil
}
