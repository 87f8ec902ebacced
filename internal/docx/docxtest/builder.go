// Package docxtest builds small word-processing packages for tests.
package docxtest

import (
	"fmt"
	"html"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/docx"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Default Extension="png" ContentType="image/png"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/><Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/></Types>`

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const bodyRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/><Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/></Relationships>`

const styles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`

const sectPr = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`

// PNG is the placeholder image stored as word/media/image1.png.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Paragraph returns a paragraph block with one run.
func Paragraph(text string) string {
	return fmt.Sprintf(`<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, html.EscapeString(text))
}

// SplitRunParagraph spreads the text over one run per rune.
func SplitRunParagraph(text string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, r := range text {
		fmt.Fprintf(&b, `<w:r><w:t>%s</w:t></w:r>`, html.EscapeString(string(r)))
	}
	b.WriteString("</w:p>")
	return b.String()
}

// Picture returns a paragraph that embeds the placeholder image.
func Picture() string {
	return `<w:p><w:r><w:drawing><wp:inline><a:graphic><a:graphicData><pic:pic><pic:blipFill><a:blip r:embed="rId5"/></pic:blipFill></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`
}

// Table returns a one-row table with a cell per text.
func Table(cells ...string) string {
	var b strings.Builder
	b.WriteString("<w:tbl><w:tr>")
	for _, c := range cells {
		b.WriteString("<w:tc>")
		b.WriteString(Paragraph(c))
		b.WriteString("</w:tc>")
	}
	b.WriteString("</w:tr></w:tbl>")
	return b.String()
}

// DocumentXML wraps blocks into a document part ending with section properties.
func DocumentXML(blocks ...string) string {
	return documentXML(sectPr, blocks...)
}

func documentXML(sect string, blocks ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
		`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
		`<w:body>` + strings.Join(blocks, "") + sect + `</w:body></w:document>`
}

// Build returns a complete package whose body holds the given blocks.
func Build(blocks ...string) []byte {
	return BuildRaw(DocumentXML(blocks...))
}

// BuildRaw returns a package with an arbitrary body part.
func BuildRaw(documentXML string) []byte {
	raw, err := docx.Write([]docx.Part{
		{Name: docx.ContentTypesPart, Data: []byte(contentTypes)},
		{Name: docx.RootRelsPart, Data: []byte(rootRels)},
		{Name: docx.BodyPart, Data: []byte(documentXML)},
		{Name: docx.BodyRelsPart, Data: []byte(bodyRels)},
		{Name: "word/styles.xml", Data: []byte(styles)},
		{Name: docx.MediaDir + "image1.png", Data: PNG},
	})
	if err != nil {
		panic(err)
	}
	return raw
}

// Questions builds a document with one delimiter paragraph per question,
// each followed by a body paragraph "<prefix> N".
func Questions(delimiter, prefix string, n int) []byte {
	blocks := []string{Paragraph("Instructions")}
	for i := 1; i <= n; i++ {
		blocks = append(blocks,
			Paragraph(fmt.Sprintf("%s%d", delimiter, i)),
			Paragraph(fmt.Sprintf("%s %d", prefix, i)),
		)
	}
	return Build(blocks...)
}

const extrasContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Default Extension="png" ContentType="image/png"/><Default Extension="odttf" ContentType="application/vnd.openxmlformats-officedocument.obfuscatedFont"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/><Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/><Override PartName="/word/fontTable.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.fontTable+xml"/><Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/><Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/><Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/><Override PartName="/customXml/itemProps1.xml" ContentType="application/vnd.openxmlformats-officedocument.customXmlProperties+xml"/></Types>`

const extrasRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/></Relationships>`

const extrasBodyRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/><Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/><Relationship Id="rId6" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/fontTable" Target="fontTable.xml"/><Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/><Relationship Id="rId8" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/><Relationship Id="rId9" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/customXml" Target="../customXml/item1.xml"/><Relationship Id="rId10" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.uz" TargetMode="External"/></Relationships>`

const fontTableRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/font" Target="fonts/font1.odttf"/></Relationships>`

const customXMLRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/customXmlProps" Target="itemProps1.xml"/></Relationships>`

const headerSectPr = `<w:sectPr><w:headerReference w:type="default" r:id="rId7"/><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`

const wordPart = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`

// BuildWithExtras returns a package that also carries document properties,
// custom XML, an embedded font, a header named by the section properties and
// a footer nothing refers to.
func BuildWithExtras(blocks ...string) []byte {
	raw, err := docx.Write([]docx.Part{
		{Name: docx.ContentTypesPart, Data: []byte(extrasContentTypes)},
		{Name: docx.RootRelsPart, Data: []byte(extrasRootRels)},
		{Name: "docProps/core.xml", Data: []byte(`<?xml version="1.0"?><cp:coreProperties xmlns:cp="urn:core"/>`)},
		{Name: docx.BodyPart, Data: []byte(documentXML(headerSectPr, blocks...))},
		{Name: docx.BodyRelsPart, Data: []byte(extrasBodyRels)},
		{Name: "word/styles.xml", Data: []byte(styles)},
		{Name: "word/fontTable.xml", Data: []byte(`<?xml version="1.0"?><w:fonts xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`)},
		{Name: "word/_rels/fontTable.xml.rels", Data: []byte(fontTableRels)},
		{Name: "word/fonts/font1.odttf", Data: []byte{0x00, 0x01}},
		{Name: "word/header1.xml", Data: []byte(wordPart)},
		{Name: "word/footer1.xml", Data: []byte(wordPart)},
		{Name: "customXml/item1.xml", Data: []byte(`<?xml version="1.0"?><root/>`)},
		{Name: "customXml/itemProps1.xml", Data: []byte(`<?xml version="1.0"?><props/>`)},
		{Name: "customXml/_rels/item1.xml.rels", Data: []byte(customXMLRels)},
		{Name: docx.MediaDir + "image1.png", Data: PNG},
	})
	if err != nil {
		panic(err)
	}
	return raw
}
