package schema

// MetadataMode controls how metadata is included in different contexts.
type MetadataMode string

const (
	// MetadataModeAll includes all metadata.
	MetadataModeAll MetadataMode = "all"
	// MetadataModeEmbed skips ExcludedEmbedMetadataKeys.
	MetadataModeEmbed MetadataMode = "embed"
	// MetadataModeLLM skips ExcludedLLMMetadataKeys.
	MetadataModeLLM MetadataMode = "llm"
	// MetadataModeNone excludes all metadata.
	MetadataModeNone MetadataMode = "none"
)
