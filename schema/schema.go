// Package schema defines the nodes, documents and query types shared by the
// readers, stores, indexes and query engines.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Default templates for text formatting.
const (
	DefaultTextNodeTemplate  = "{metadata_str}\n\n{content}"
	DefaultMetadataTemplate  = "{key}: {value}"
	DefaultMetadataSeparator = "\n"
)

// NodeType represents the type of the node.
type NodeType string

const (
	// ObjectTypeText is a chunk of document text.
	ObjectTypeText NodeType = "TEXT"
	// ObjectTypeDocument is a whole source document before splitting.
	ObjectTypeDocument NodeType = "DOCUMENT"
	// ObjectTypeIndex is a node that points at another index.
	ObjectTypeIndex NodeType = "INDEX"
)

// Node represents a chunk of data.
type Node struct {
	ID                        string                 `json:"id"`
	Text                      string                 `json:"text"`
	Type                      NodeType               `json:"type"`
	Metadata                  map[string]interface{} `json:"metadata,omitempty"`
	Embedding                 []float64              `json:"embedding,omitempty"`
	Hash                      string                 `json:"hash,omitempty"`
	RefDocID                  string                 `json:"ref_doc_id,omitempty"`
	IndexID                   string                 `json:"index_id,omitempty"`
	ExcludedEmbedMetadataKeys []string               `json:"excluded_embed_metadata_keys,omitempty"`
	ExcludedLLMMetadataKeys   []string               `json:"excluded_llm_metadata_keys,omitempty"`
}

// NewTextNode creates a new text node with a random ID.
func NewTextNode(text string) *Node {
	node := &Node{
		ID:       uuid.New().String(),
		Text:     text,
		Type:     ObjectTypeText,
		Metadata: make(map[string]interface{}),
	}
	node.Hash = node.GenerateHash()
	return node
}

// GetContent returns the content with metadata based on mode.
func (n *Node) GetContent(mode MetadataMode) string {
	metadataStr := strings.TrimSpace(n.GetMetadataStr(mode))
	if mode == MetadataModeNone || metadataStr == "" {
		return n.Text
	}
	result := strings.ReplaceAll(DefaultTextNodeTemplate, "{metadata_str}", metadataStr)
	result = strings.ReplaceAll(result, "{content}", n.Text)
	return strings.TrimSpace(result)
}

// GetMetadataStr returns metadata as a formatted string based on mode.
// Keys are sorted so the output is stable across runs.
func (n *Node) GetMetadataStr(mode MetadataMode) string {
	if mode == MetadataModeNone {
		return ""
	}

	excluded := make(map[string]bool)
	switch mode {
	case MetadataModeLLM:
		for _, key := range n.ExcludedLLMMetadataKeys {
			excluded[key] = true
		}
	case MetadataModeEmbed:
		for _, key := range n.ExcludedEmbedMetadataKeys {
			excluded[key] = true
		}
	}

	keys := make([]string, 0, len(n.Metadata))
	for key := range n.Metadata {
		if !excluded[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		formatted := strings.ReplaceAll(DefaultMetadataTemplate, "{key}", key)
		formatted = strings.ReplaceAll(formatted, "{value}", formatValue(n.Metadata[key]))
		parts = append(parts, formatted)
	}
	return strings.Join(parts, DefaultMetadataSeparator)
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

// GetHash returns the stored hash, generating it on first use.
func (n *Node) GetHash() string {
	if n.Hash == "" {
		n.Hash = n.GenerateHash()
	}
	return n.Hash
}

// GenerateHash generates a SHA256 hash of the node type and full content.
func (n *Node) GenerateHash() string {
	h := sha256.New()
	h.Write([]byte("type=" + string(n.Type)))
	h.Write([]byte(n.GetContent(MetadataModeAll)))
	return hex.EncodeToString(h.Sum(nil))
}

// IsIndexNode reports whether the node references another index.
func (n *Node) IsIndexNode() bool {
	return n.Type == ObjectTypeIndex && n.IndexID != ""
}

// Document is a whole source document as produced by a reader.
type Document struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// ExcludedEmbedMetadataKeys lists metadata keys left out of the embedded text.
	ExcludedEmbedMetadataKeys []string `json:"excluded_embed_metadata_keys,omitempty"`
	// ExcludedLLMMetadataKeys lists metadata keys left out of the prompt text.
	ExcludedLLMMetadataKeys []string `json:"excluded_llm_metadata_keys,omitempty"`
}

// NewDocument creates a document with a random ID and empty metadata.
func NewDocument(text string) Document {
	return Document{
		ID:       uuid.New().String(),
		Text:     text,
		Metadata: make(map[string]interface{}),
	}
}

// GetHash hashes the document text and metadata.
func (d Document) GetHash() string {
	node := d.AsNode()
	return node.GenerateHash()
}

// AsNode converts the document into a single document node.
func (d Document) AsNode() Node {
	return Node{
		ID:                        d.ID,
		Text:                      d.Text,
		Type:                      ObjectTypeDocument,
		Metadata:                  d.Metadata,
		ExcludedEmbedMetadataKeys: d.ExcludedEmbedMetadataKeys,
		ExcludedLLMMetadataKeys:   d.ExcludedLLMMetadataKeys,
	}
}

// WithMetadata returns a copy of the document with extra metadata merged in.
// Keys already present on the document are overwritten.
func (d Document) WithMetadata(extra map[string]interface{}) Document {
	merged := make(map[string]interface{}, len(d.Metadata)+len(extra))
	for k, v := range d.Metadata {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	d.Metadata = merged
	return d
}

// NodeWithScore represents a node with a similarity score.
type NodeWithScore struct {
	Node  Node    `json:"node"`
	Score float64 `json:"score"`
}

// QueryBundle encapsulates the query string.
type QueryBundle struct {
	QueryString string `json:"query_string"`
}

// VectorStoreQuery represents a query to the vector store.
type VectorStoreQuery struct {
	// Embedding is the query embedding vector.
	Embedding []float64 `json:"embedding,omitempty"`
	// TopK is the number of nearest nodes to return.
	TopK int `json:"top_k"`
}

// NewVectorStoreQuery creates a new VectorStoreQuery.
func NewVectorStoreQuery(embedding []float64, topK int) VectorStoreQuery {
	return VectorStoreQuery{Embedding: embedding, TopK: topK}
}
