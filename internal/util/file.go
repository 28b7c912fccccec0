package util

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// Upload kinds accepted by the question importer.
const (
	ImportXLSX = "xlsx"
	ImportJSON = "json"
)

// ValidateMimeType sniffs the first bytes of reader and checks them against allowed prefixes.
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])
	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) {
			return mimeType, nil
		}
	}
	return mimeType, ErrUnsupportedFileType
}

// DetectImportKind decides how an uploaded question bank should be parsed.
// xlsx files are zip containers; JSON sniffs as plain text.
func DetectImportKind(filename string, head io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx":
		if _, err := ValidateMimeType(head, []string{"application/zip", "application/octet-stream"}); err != nil {
			return "", err
		}
		return ImportXLSX, nil
	case ".json":
		if _, err := ValidateMimeType(head, []string{"text/plain", "application/json"}); err != nil {
			return "", err
		}
		return ImportJSON, nil
	}
	return "", ErrUnsupportedFileType
}
