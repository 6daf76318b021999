// Package extract reads text content out of knowledge-base source files
// and computes content fingerprints for change detection.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for files outside the recognized extension set.
var ErrUnsupportedType = errors.New("unsupported file type")

// fileTypes maps recognized extensions to their content types.
var fileTypes = map[string]string{
	".md":   "text/markdown",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".csv":  "text/csv",
	".json": "application/json",
	".rst":  "text/x-rst",
	".html": "text/html",
	".htm":  "text/html",
}

// Supported reports whether the file extension is in the recognized set.
func Supported(path string) bool {
	_, ok := fileTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the recognized extension set, sorted for display.
func Extensions() []string {
	exts := make([]string, 0, len(fileTypes))
	for ext := range fileTypes {
		exts = append(exts, ext)
	}
	for i := 1; i < len(exts); i++ {
		for j := i; j > 0 && exts[j] < exts[j-1]; j-- {
			exts[j], exts[j-1] = exts[j-1], exts[j]
		}
	}
	return exts
}

// Text extracts the text content of a recognized file. PDF files degrade to
// empty text when extraction fails; that is a recognized zero-content
// outcome, not an error.
func Text(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md", ".txt", ".csv", ".json", ".rst":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(data), nil
	case ".html", ".htm":
		return htmlText(path)
	case ".pdf":
		text, err := pdfText(path)
		if err != nil {
			slog.Warn("pdf extraction failed, treating as empty", "path", path, "error", err)
			return "", nil
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

// Fingerprint computes the streamed SHA-256 hex digest of a file.
// Equal content always yields an equal digest.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
