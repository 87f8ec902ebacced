package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Well-known part names of a word-processing package.
const (
	ContentTypesPart = "[Content_Types].xml"
	RootRelsPart     = "_rels/.rels"
	BodyPart         = "word/document.xml"
	BodyRelsPart     = "word/_rels/document.xml.rels"
	MediaDir         = "word/media/"
)

// maxPartSize bounds a single decompressed part.
const maxPartSize = 64 << 20

var (
	ErrPackageCorrupt = errors.New("package is corrupt")
	ErrXMLMalformed   = errors.New("document xml is malformed")
)

// Part is a named entry of a package. Data is never modified after Open.
type Part struct {
	Name string
	Data []byte
}

// Package is an opened compound document. Parts keep their archive order.
type Package struct {
	parts []Part
	index map[string]int
}

// Open reads a ZIP-structured document package.
func Open(raw []byte) (*Package, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrPackageCorrupt)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackageCorrupt, err)
	}

	pkg := &Package{index: make(map[string]int, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readPart(f)
		if err != nil {
			return nil, fmt.Errorf("%w: part %s: %v", ErrPackageCorrupt, f.Name, err)
		}
		pkg.index[f.Name] = len(pkg.parts)
		pkg.parts = append(pkg.parts, Part{Name: f.Name, Data: data})
	}

	if _, ok := pkg.index[ContentTypesPart]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrPackageCorrupt, ContentTypesPart)
	}
	if _, ok := pkg.index[BodyPart]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrPackageCorrupt, BodyPart)
	}

	return pkg, nil
}

func readPart(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxPartSize {
		return nil, fmt.Errorf("part exceeds %d bytes", maxPartSize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPartSize {
		return nil, fmt.Errorf("part exceeds %d bytes", maxPartSize)
	}
	return data, nil
}

// Part returns the bytes of the named part.
func (p *Package) Part(name string) ([]byte, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.parts[i].Data, true
}

// Parts returns the parts in archive order.
func (p *Package) Parts() []Part {
	out := make([]Part, len(p.parts))
	copy(out, p.parts)
	return out
}

// MediaParts returns every part stored under word/media/.
func (p *Package) MediaParts() []Part {
	var out []Part
	for _, part := range p.parts {
		if strings.HasPrefix(part.Name, MediaDir) {
			out = append(out, part)
		}
	}
	return out
}

// Body parses the body part.
func (p *Package) Body() (*Body, error) {
	data, _ := p.Part(BodyPart)
	return parseBody(data)
}

// Write serializes parts into a new ZIP package.
func Write(parts []Part) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	for _, part := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   part.Name,
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create part %s: %w", part.Name, err)
		}
		if _, err := w.Write(part.Data); err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", part.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize package: %w", err)
	}
	return buf.Bytes(), nil
}

// ResolveTarget turns a relationship target of the body part into a part name.
func ResolveTarget(target string) string {
	return resolveFrom(BodyPart, target)
}
