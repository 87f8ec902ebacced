package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	relationshipsNS = "http://schemas.openxmlformats.org/package/2006/relationships"
	contentTypesNS  = "http://schemas.openxmlformats.org/package/2006/content-types"
	officeRelsNS    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// structuralTypes are body relationships kept whether or not the body names
// them by id. Note parts are addressed by note id, not relationship id.
var structuralTypes = map[string]bool{
	"styles":            true,
	"stylesWithEffects": true,
	"fontTable":         true,
	"settings":          true,
	"webSettings":       true,
	"theme":             true,
	"numbering":         true,
	"footnotes":         true,
	"endnotes":          true,
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

func (r relationship) external() bool { return strings.EqualFold(r.TargetMode, "External") }

func (r relationship) kind() string { return path.Base(r.Type) }

type relationshipsPart struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Items   []relationship `xml:"Relationship"`
}

type contentTypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentTypeOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentTypesPart struct {
	XMLName   xml.Name              `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []contentTypeDefault  `xml:"Default"`
	Overrides []contentTypeOverride `xml:"Override"`
}

// Minimal returns the parts of a package around body. It holds the content
// type manifest, the relationship parts, every media part, the style, font,
// settings, theme, numbering and note parts, and any part body refers to by
// relationship id (headers named by the section properties, for instance).
// Everything else is dropped and the manifest and relationships are rewritten
// to match.
func (p *Package) Minimal(body []byte) ([]Part, error) {
	referenced, err := referencedIDs(body)
	if err != nil {
		return nil, err
	}

	keep := map[string]bool{
		ContentTypesPart: true,
		RootRelsPart:     true,
		BodyPart:         true,
	}
	for _, part := range p.parts {
		if strings.HasPrefix(part.Name, MediaDir) {
			keep[part.Name] = true
		}
	}

	var pending []string
	var bodyRels []byte
	if rels, ok, err := p.relationshipsOf(BodyRelsPart); err != nil {
		return nil, err
	} else if ok {
		var items []relationship
		for _, r := range rels.Items {
			if r.external() {
				if referenced[r.ID] {
					items = append(items, r)
				}
				continue
			}
			target := resolveFrom(BodyPart, r.Target)
			if !structuralTypes[r.kind()] && !referenced[r.ID] && !strings.HasPrefix(target, MediaDir) {
				continue
			}
			items = append(items, r)
			if _, exists := p.index[target]; exists && !keep[target] {
				keep[target] = true
				pending = append(pending, target)
			}
		}
		if bodyRels, err = marshalPart(relationshipsPart{Items: items}); err != nil {
			return nil, err
		}
		keep[BodyRelsPart] = true
	}

	// kept auxiliary parts bring their own relationships and targets along
	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]

		relsName := relsPartOf(name)
		rels, ok, err := p.relationshipsOf(relsName)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		keep[relsName] = true
		for _, r := range rels.Items {
			if r.external() {
				continue
			}
			target := resolveFrom(name, r.Target)
			if _, exists := p.index[target]; exists && !keep[target] {
				keep[target] = true
				pending = append(pending, target)
			}
		}
	}

	rootRels, err := p.filteredRootRels(keep)
	if err != nil {
		return nil, err
	}
	manifest, err := p.filteredContentTypes(keep)
	if err != nil {
		return nil, err
	}

	out := make([]Part, 0, len(keep))
	for _, part := range p.parts {
		if !keep[part.Name] {
			continue
		}
		switch part.Name {
		case BodyPart:
			part = Part{Name: BodyPart, Data: body}
		case BodyRelsPart:
			part = Part{Name: BodyRelsPart, Data: bodyRels}
		case RootRelsPart:
			if rootRels == nil {
				continue
			}
			part = Part{Name: RootRelsPart, Data: rootRels}
		case ContentTypesPart:
			part = Part{Name: ContentTypesPart, Data: manifest}
		}
		out = append(out, part)
	}
	return out, nil
}

func (p *Package) filteredRootRels(keep map[string]bool) ([]byte, error) {
	rels, ok, err := p.relationshipsOf(RootRelsPart)
	if err != nil || !ok {
		return nil, err
	}
	var items []relationship
	for _, r := range rels.Items {
		if r.external() || keep[resolveFrom("", r.Target)] {
			items = append(items, r)
		}
	}
	return marshalPart(relationshipsPart{Items: items})
}

func (p *Package) filteredContentTypes(keep map[string]bool) ([]byte, error) {
	data, _ := p.Part(ContentTypesPart)
	var types contentTypesPart
	if err := xml.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrXMLMalformed, ContentTypesPart, err)
	}
	overrides := types.Overrides[:0]
	for _, o := range types.Overrides {
		if keep[strings.TrimPrefix(o.PartName, "/")] {
			overrides = append(overrides, o)
		}
	}
	types.Overrides = overrides
	return marshalPart(types)
}

func (p *Package) relationshipsOf(name string) (*relationshipsPart, bool, error) {
	data, ok := p.Part(name)
	if !ok {
		return nil, false, nil
	}
	var rels relationshipsPart
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrXMLMalformed, name, err)
	}
	return &rels, true, nil
}

// referencedIDs collects every relationship id the body part names.
func referencedIDs(body []byte) (map[string]bool, error) {
	ids := make(map[string]bool)
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrXMLMalformed, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Space == officeRelsNS {
				ids[attr.Value] = true
			}
		}
	}
}

func marshalPart(v interface{}) ([]byte, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode package part: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

// relsPartOf names the relationship part of a part: word/x.xml -> word/_rels/x.xml.rels
func relsPartOf(name string) string {
	return path.Join(path.Dir(name), "_rels", path.Base(name)+".rels")
}

// resolveFrom resolves a relationship target against the part that owns the
// relationship. An empty source means the package root.
func resolveFrom(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return strings.TrimPrefix(path.Clean(path.Join(path.Dir(source), target)), "./")
}
