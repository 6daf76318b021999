package rag

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kalambet/minuted/internal/extract"
)

// ReadFilesAsContext extracts text from the given attachment paths,
// preserving input order. Paths that are missing, unrecognized, or extract
// to nothing are skipped silently; attachments are best-effort context,
// never a reason to fail an answer.
func ReadFilesAsContext(paths []string) []FileContext {
	var files []FileContext
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			slog.Debug("skipping attachment", "path", path, "reason", "not a file")
			continue
		}
		if !extract.Supported(path) {
			slog.Debug("skipping attachment", "path", path, "reason", "unsupported type")
			continue
		}
		text, err := extract.Text(path)
		if err != nil || strings.TrimSpace(text) == "" {
			slog.Debug("skipping attachment", "path", path, "reason", "no text")
			continue
		}
		files = append(files, FileContext{
			Filename: filepath.Base(path),
			Text:     text,
		})
	}
	return files
}
