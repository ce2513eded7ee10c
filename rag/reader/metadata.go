package reader

import (
	"path/filepath"
	"strings"
)

// Metadata keys set on every loaded document.
const (
	MetaFileName = "file_name"
	MetaFilePath = "file_path"
	MetaFileType = "file_type"
)

func fileMetadata(filePath, fileType string) map[string]interface{} {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}
	return map[string]interface{}{
		MetaFileName: filepath.Base(filePath),
		MetaFilePath: absPath,
		MetaFileType: fileType,
	}
}

// excludedFromEmbed keeps local paths out of embeddings and prompts.
var excludedFromEmbed = []string{MetaFilePath, MetaFileType}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
