package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed digest.html.tmpl
var digestTemplate string

// HTMLRenderer renders the digest as a standalone HTML document, used
// both for file output and the emailed digest body.
type HTMLRenderer struct{}

// Render writes the HTML digest to w.
func (r *HTMLRenderer) Render(d Data, w io.Writer) error {
	tmpl, err := template.New("digest").Parse(digestTemplate)
	if err != nil {
		return fmt.Errorf("parsing digest template: %w", err)
	}
	if err := tmpl.Execute(w, d); err != nil {
		return fmt.Errorf("rendering digest: %w", err)
	}
	return nil
}
