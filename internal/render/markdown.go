package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// HTML renders a markdown article body to HTML. The workflow usually returns
// markdown only; the rendered form is filled in at completion time.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
