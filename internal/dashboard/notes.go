package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"os"

	"github.com/yuin/goldmark"
)

// RenderNotes converts the configured Markdown notes file into HTML for the
// dashboard's notes panel. A missing path returns empty notes, not an error,
// so the panel is simply omitted.
func RenderNotes(path string) (template.HTML, error) {
	if path == "" {
		return "", nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read notes file: %w", err)
	}

	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("convert notes markdown: %w", err)
	}

	// #nosec G203 - notes come from an operator-configured local file
	return template.HTML(buf.String()), nil
}
