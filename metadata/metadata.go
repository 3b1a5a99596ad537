/*
Package metadata renders the extended metadata block embedded into WOFF and
WOFF2 files.

Metadata is authored as YAML (see package templates) and serialized as the
XML the WOFF format prescribes. Between the two sits a small tagged tree: every
YAML scalar becomes a Leaf, every mapping an Element. Two keys of a mapping
are reserved:

▪︎ `_attributes` holds a mapping of XML attributes,

▪︎ `_text` holds the character data of an element.

A key with a list value yields one child element per list item, all with the
same tag. Mapping order is preserved throughout, so rendering is
deterministic.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/templates"
	"github.com/npillmayer/schuko/tracing"
	"gopkg.in/yaml.v3"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

// Node is either a Leaf or an *Element.
type Node interface {
	isNode()
}

// Leaf is an element holding text only.
type Leaf string

// Element is an element with attributes, optional text and child elements.
type Element struct {
	Attributes []Attr
	Text       string
	Children   []Child
}

// Attr is an XML attribute.
type Attr struct {
	Name, Value string
}

// Child is a tagged child node.
type Child struct {
	Tag  string
	Node Node
}

func (Leaf) isNode()     {}
func (*Element) isNode() {}

// Reserved mapping keys.
const (
	AttributesKey = "_attributes"
	TextKey       = "_text"
)

// Header is the XML declaration of rendered metadata.
const Header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

// Render renders the metadata of pkg using the license template from set,
// appending a `copyright` element with the package's copyright lines.
func Render(set *templates.Set, pkg *fontpack.Package) ([]byte, error) {
	src, err := set.Metadata(pkg)
	if err != nil {
		return nil, err
	}
	tag, root, err := FromYAML(src)
	if err != nil {
		return nil, fmt.Errorf("metadata of license %s: %w", pkg.License, err)
	}
	elem, ok := root.(*Element)
	if !ok {
		elem = &Element{Text: string(root.(Leaf))}
	}
	elem.Children = append(elem.Children, Child{Tag: "copyright", Node: Copyright(pkg.Copyrights)})
	out, err := Marshal(tag, elem)
	if err != nil {
		return nil, err
	}
	tracer().Debugf("rendered %d bytes of metadata for %s", len(out), pkg.ID)
	return out, nil
}

// Copyright creates the copyright element, one text child per line.
func Copyright(lines []string) *Element {
	e := &Element{}
	for _, line := range lines {
		e.Children = append(e.Children, Child{Tag: "text", Node: Leaf(line)})
	}
	return e
}

// FromYAML parses a YAML document consisting of a single-key mapping and
// returns the key as the root tag together with the converted tree.
func FromYAML(src []byte) (string, Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return "", nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return "", nil, fmt.Errorf("metadata must be a single YAML document")
	}
	m := resolve(doc.Content[0])
	if m.Kind != yaml.MappingNode || len(m.Content) != 2 {
		return "", nil, fmt.Errorf("metadata must have exactly one root element")
	}
	tag := m.Content[0].Value
	root, err := convert(m.Content[1])
	return tag, root, err
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func convert(n *yaml.Node) (Node, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return &Element{}, nil
		}
		return Leaf(n.Value), nil
	case yaml.MappingNode:
		return convertMapping(n)
	}
	return nil, fmt.Errorf("line %d: unexpected YAML node kind %d", n.Line, n.Kind)
}

func convertMapping(n *yaml.Node) (*Element, error) {
	e := &Element{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, resolve(n.Content[i+1])
		switch key {
		case AttributesKey:
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: %s must be a mapping", val.Line, key)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				e.Attributes = append(e.Attributes, Attr{
					Name:  val.Content[j].Value,
					Value: resolve(val.Content[j+1]).Value,
				})
			}
		case TextKey:
			e.Text = val.Value
		default:
			if val.Kind == yaml.SequenceNode {
				for _, item := range val.Content {
					child, err := convert(item)
					if err != nil {
						return nil, err
					}
					e.Children = append(e.Children, Child{Tag: key, Node: child})
				}
				continue
			}
			child, err := convert(val)
			if err != nil {
				return nil, err
			}
			e.Children = append(e.Children, Child{Tag: key, Node: child})
		}
	}
	return e, nil
}

// Marshal serializes a tree to XML, with root element tag, preceded by the
// XML declaration.
func Marshal(tag string, root Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	decl := xml.ProcInst{Target: "xml", Inst: []byte(Header[6 : len(Header)-2])}
	if err := enc.EncodeToken(decl); err != nil {
		return nil, err
	}
	if err := encode(enc, tag, root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encode(enc *xml.Encoder, tag string, n Node) error {
	start := xml.StartElement{Name: xml.Name{Local: tag}}
	var text string
	var children []Child
	switch n := n.(type) {
	case Leaf:
		text = string(n)
	case *Element:
		for _, a := range n.Attributes {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
		}
		text, children = n.Text, n.Children
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	for _, c := range children {
		if err := encode(enc, c.Tag, c.Node); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
