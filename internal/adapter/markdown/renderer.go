package markdown

import (
	"bytes"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// The converter is configured once and shared; Convert keeps per-call state.
var (
	converter     goldmark.Markdown
	converterOnce sync.Once
)

func getConverter() goldmark.Markdown {
	converterOnce.Do(func() {
		converter = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM, // tables for flight lists, autolinks for payment links
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		)
	})
	return converter
}

// Renderer turns assistant replies into HTML. Raw HTML in the source is
// dropped, so the output is safe to inject into the chat view.
type Renderer struct{}

// NewRenderer returns a markdown renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render converts markdown to HTML.
func (Renderer) Render(source string) (string, error) {
	if source == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := getConverter().Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
