package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"carechat/chat"
	"carechat/config"
)

// SanitizeFilename makes a session title safe to use in a file name.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
		"\"", "-", "<", "-", ">", "-", "|", "-", " ", "-",
		"\n", "-", "\r", "-",
	)
	name = replacer.Replace(name)

	// Remove leading/trailing hyphens and dots
	name = strings.Trim(name, "-.")

	if runes := []rune(name); len(runes) > 50 {
		name = strings.TrimRight(string(runes[:50]), "-.")
	}

	if name == "" {
		name = "session"
	}

	return name
}

// DefaultExportDir returns ~/Downloads.
func DefaultExportDir() string {
	return filepath.Join(config.GetHomeDir(), "Downloads")
}

// GenerateExportPath builds <dir>/carechat-<title>-<timestamp>.<ext>.
func GenerateExportPath(dir, title, ext string, now time.Time) string {
	filename := fmt.Sprintf("carechat-%s-%s.%s", SanitizeFilename(title), now.Format("20060102-150405"), ext)
	return filepath.Join(dir, filename)
}

// WriteFile exports session into dir and returns the path written.
func WriteFile(e Exporter, session *chat.Session, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	var buf bytes.Buffer
	if err := e.Export(session, &buf); err != nil {
		return "", fmt.Errorf("failed to export session: %w", err)
	}

	path := GenerateExportPath(dir, session.Title, e.Extension(), time.Now())
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Export] Wrote session %s to %s", session.ID, path)
	}
	return path, nil
}
