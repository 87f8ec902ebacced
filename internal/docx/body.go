package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type BlockKind string

const (
	KindParagraph BlockKind = "p"
	KindTable     BlockKind = "tbl"
	KindOther     BlockKind = "other"
)

// Block is a top-level element of the document body.
type Block struct {
	Kind BlockKind
	// Text is the concatenated text of every run in the block.
	Text string
	// Paragraphs holds the text of each paragraph nested in the block.
	Paragraphs []string
	// Embeds lists relationship ids of pictures referenced by the block.
	Embeds []string

	raw []byte
}

// Raw returns a copy of the block's XML.
func (b Block) Raw() []byte {
	return append([]byte(nil), b.raw...)
}

// Body is the parsed body part: the bytes around <w:body>, the ordered
// top-level blocks and the trailing section properties.
type Body struct {
	prefix []byte
	suffix []byte
	blocks []Block
	sectPr []byte
}

// Blocks returns the body blocks in document order.
func (b *Body) Blocks() []Block {
	out := make([]Block, len(b.blocks))
	copy(out, b.blocks)
	return out
}

func (b *Body) Len() int { return len(b.blocks) }

// HasSectionProperties reports whether the body ends with a w:sectPr block.
func (b *Body) HasSectionProperties() bool { return len(b.sectPr) > 0 }

func kindOf(local string) BlockKind {
	switch local {
	case "p":
		return KindParagraph
	case "tbl":
		return KindTable
	default:
		return KindOther
	}
}

func parseBody(data []byte) (*Body, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		body       = &Body{}
		depth      int
		bodyDepth  int
		bodyClosed bool
		blockStart int64 = -1
		kind       BlockKind
		isSectPr   bool
		inText     bool
		text       strings.Builder
		para       strings.Builder
		paragraphs []string
		embeds     []string
	)

	for {
		off := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrXMLMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case bodyDepth == 0 && t.Name.Local == "body":
				bodyDepth = depth
				body.prefix = data[:dec.InputOffset()]
			case bodyDepth > 0 && !bodyClosed && depth == bodyDepth+1:
				blockStart = off
				isSectPr = t.Name.Local == "sectPr"
				kind = kindOf(t.Name.Local)
				text.Reset()
				para.Reset()
				paragraphs = nil
				embeds = nil
			case blockStart >= 0 && t.Name.Local == "t":
				inText = true
			case blockStart >= 0 && t.Name.Local == "tab":
				text.WriteByte('\t')
				para.WriteByte('\t')
			case blockStart >= 0 && t.Name.Local == "blip":
				for _, attr := range t.Attr {
					if attr.Name.Local == "embed" && attr.Value != "" {
						embeds = append(embeds, attr.Value)
					}
				}
			}

		case xml.EndElement:
			switch {
			case blockStart >= 0 && depth == bodyDepth+1:
				raw := data[blockStart:dec.InputOffset()]
				if isSectPr {
					body.sectPr = raw
				} else {
					if kind == KindParagraph {
						paragraphs = append(paragraphs, para.String())
					}
					body.blocks = append(body.blocks, Block{
						Kind:       kind,
						Text:       text.String(),
						Paragraphs: paragraphs,
						Embeds:     embeds,
						raw:        raw,
					})
				}
				blockStart = -1
			case bodyDepth > 0 && !bodyClosed && depth == bodyDepth:
				body.suffix = data[off:]
				bodyClosed = true
			case blockStart >= 0 && t.Name.Local == "t":
				inText = false
			case blockStart >= 0 && t.Name.Local == "p":
				// nested paragraph inside a table or other container
				paragraphs = append(paragraphs, para.String())
				para.Reset()
			}
			depth--

		case xml.CharData:
			if inText {
				text.Write(t)
				para.Write(t)
			}
		}
	}

	if bodyDepth == 0 || !bodyClosed {
		return nil, fmt.Errorf("%w: document has no body element", ErrXMLMalformed)
	}
	return body, nil
}

// IsBoundary reports whether the block opens a new segment.
func (b Block) IsBoundary(delimiter string) bool {
	return strings.HasPrefix(strings.TrimSpace(b.Text), delimiter)
}

// Segments partitions the body at delimiter blocks. Delimiter blocks and any
// content before the first delimiter are dropped. A non-empty body without
// any delimiter is a single segment.
func (b *Body) Segments(delimiter string) [][]Block {
	if len(b.blocks) == 0 {
		return nil
	}

	hasBoundary := false
	for _, blk := range b.blocks {
		if blk.IsBoundary(delimiter) {
			hasBoundary = true
			break
		}
	}
	if !hasBoundary {
		return [][]Block{b.Blocks()}
	}

	var (
		segments [][]Block
		start    = -1
	)
	for i, blk := range b.blocks {
		if !blk.IsBoundary(delimiter) {
			continue
		}
		if start >= 0 {
			segments = append(segments, b.copyRange(start, i))
		}
		start = i + 1
	}
	segments = append(segments, b.copyRange(start, len(b.blocks)))

	return segments
}

func (b *Body) copyRange(from, to int) []Block {
	out := make([]Block, to-from)
	copy(out, b.blocks[from:to])
	return out
}

// Document renders a body part containing the given blocks followed by the
// original section properties.
func (b *Body) Document(blocks []Block) []byte {
	size := len(b.prefix) + len(b.sectPr) + len(b.suffix)
	for _, blk := range blocks {
		size += len(blk.raw)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, b.prefix...)
	for _, blk := range blocks {
		buf = append(buf, blk.raw...)
	}
	buf = append(buf, b.sectPr...)
	buf = append(buf, b.suffix...)
	return buf
}

// ===== RELATIONSHIPS =====

// BodyRelationships maps relationship ids of the body part to internal part
// names. External targets are skipped.
func (p *Package) BodyRelationships() (map[string]string, error) {
	rels, ok, err := p.relationshipsOf(BodyRelsPart)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]string{}, nil
	}

	out := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		if r.external() {
			continue
		}
		out[r.ID] = ResolveTarget(r.Target)
	}
	return out, nil
}
