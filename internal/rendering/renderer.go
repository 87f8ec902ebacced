// Package rendering turns stored question packages into display markup.
package rendering

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"mime"
	"path"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/docx"
)

// Placeholder is shown when a question cannot be rendered.
const Placeholder = "<p>Error displaying question.</p>"

// Renderer converts a document package into markup.
type Renderer interface {
	Render(ctx context.Context, doc []byte) (string, error)
}

// DocxRenderer emits escaped HTML for paragraphs and tables and inlines
// pictures as data URIs.
type DocxRenderer struct {
	// MaxImageBytes skips larger pictures; zero means no limit
	MaxImageBytes int
}

func NewDocxRenderer() *DocxRenderer {
	return &DocxRenderer{MaxImageBytes: 2 << 20}
}

func (r *DocxRenderer) Render(ctx context.Context, doc []byte) (string, error) {
	pkg, err := docx.Open(doc)
	if err != nil {
		return "", err
	}
	body, err := pkg.Body()
	if err != nil {
		return "", err
	}
	rels, err := pkg.BodyRelationships()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, blk := range body.Blocks() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		switch blk.Kind {
		case docx.KindTable:
			b.WriteString("<table>")
			for _, p := range blk.Paragraphs {
				b.WriteString("<tr><td>")
				b.WriteString(escape(p))
				b.WriteString("</td></tr>")
			}
			b.WriteString("</table>")
		case docx.KindParagraph:
			text := escape(blk.Text)
			if text == "" && len(blk.Embeds) == 0 {
				continue
			}
			b.WriteString("<p>")
			b.WriteString(text)
			for _, id := range blk.Embeds {
				b.WriteString(r.image(pkg, rels[id]))
			}
			b.WriteString("</p>")
		}
	}
	return b.String(), nil
}

func (r *DocxRenderer) image(pkg *docx.Package, part string) string {
	data, ok := pkg.Part(part)
	if !ok || len(data) == 0 || (r.MaxImageBytes > 0 && len(data) > r.MaxImageBytes) {
		return ""
	}
	mediaType := mime.TypeByExtension(path.Ext(part))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return fmt.Sprintf(`<img src="data:%s;base64,%s" alt="">`, mediaType, base64.StdEncoding.EncodeToString(data))
}

func escape(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\t", "&emsp;")
}
