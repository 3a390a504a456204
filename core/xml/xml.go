// Package xml parses annotated learner documents into an element tree with
// text and tail strings, the shape the tag interpreter walks.
//
// Parsing goes through xmlquery, which uses Go's encoding/xml internally and
// inherits its security properties: external entities are never fetched.
// Element names are namespace-stripped and lower-cased so both schema
// families can be matched by local name only.
package xml

import (
	"bytes"
	"fmt"
	"strings"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Element is a read-only view of an XML element.
//
// Text is the character data before the first child element. Tail is the
// character data after the element's end tag up to the next sibling element.
// Both are kept exactly as written, whitespace included.
type Element struct {
	Tag      string // lower-case local name
	Name     string // local name as written
	Text     string
	Tail     string
	Children []*Element
	Attrs    map[string]string
}

// Parse parses XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &cerrors.ParseError{Format: "XML", Message: err.Error(), Err: err}
	}
	return &Document{root: root}, nil
}

// Root returns the document element, or nil for an empty document.
func (d *Document) Root() *Element {
	if d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return newElement(child)
		}
	}
	return nil
}

// XPath executes an XPath query and returns matching elements in document order.
func (d *Document) XPath(expr string) ([]*Element, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	var result []*Element
	for _, n := range xmlquery.QuerySelectorAll(d.root, compiled) {
		if n.Type == xmlquery.ElementNode {
			result = append(result, newElement(n))
		}
	}
	return result, nil
}

// XPathFirst executes an XPath query and returns the first matching element.
func (d *Document) XPathFirst(expr string) (*Element, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	n := xmlquery.QuerySelector(d.root, compiled)
	if n == nil || n.Type != xmlquery.ElementNode {
		return nil, nil
	}
	return newElement(n), nil
}

// First returns the first element with the given local name, whatever its
// namespace, or nil.
func (d *Document) First(localName string) (*Element, error) {
	return d.XPathFirst(fmt.Sprintf("//*[local-name()='%s']", localName))
}

// FindAll returns every element with the given local name, whatever its
// namespace, in document order: an element before its descendants, its
// descendants before its following siblings.
func (d *Document) FindAll(localName string) []*Element {
	root := d.Root()
	if root == nil {
		return nil
	}
	tag := strings.ToLower(localName)
	var out []*Element
	if root.Tag == tag {
		out = append(out, root)
	}
	return append(out, root.FindAll(tag)...)
}

// newElement converts an xmlquery element and its subtree.
func newElement(n *xmlquery.Node) *Element {
	e := &Element{
		Tag:   strings.ToLower(n.Data),
		Name:  n.Data,
		Tail:  tailOf(n),
		Attrs: make(map[string]string, len(n.Attr)),
	}
	for _, attr := range n.Attr {
		e.Attrs[attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	seenElement := false
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode:
			seenElement = true
			e.Children = append(e.Children, newElement(child))
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if !seenElement {
				text.WriteString(child.Data)
			}
		}
	}
	e.Text = text.String()
	return e
}

// tailOf collects character data following n up to the next element sibling.
// Comments and processing instructions are skipped.
func tailOf(n *xmlquery.Node) string {
	var tail strings.Builder
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		switch sib.Type {
		case xmlquery.ElementNode:
			return tail.String()
		case xmlquery.TextNode, xmlquery.CharDataNode:
			tail.WriteString(sib.Data)
		}
	}
	return tail.String()
}

// Attr returns the value of an attribute by local name, or "".
// A case-insensitive match is tried when there is no exact one.
func (e *Element) Attr(name string) string {
	if v, ok := e.Attrs[name]; ok {
		return v
	}
	for k, v := range e.Attrs {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Child returns the first direct child with the given lower-case tag.
func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// HasChild reports whether any direct child has one of the given tags.
func (e *Element) HasChild(tags ...string) bool {
	for _, c := range e.Children {
		for _, tag := range tags {
			if c.Tag == tag {
				return true
			}
		}
	}
	return false
}

// FindAll returns all descendants (not e itself) with the given tag, in
// document order.
func (e *Element) FindAll(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
		out = append(out, c.FindAll(tag)...)
	}
	return out
}

// InnerText concatenates the text of e and all descendants, including the
// tails of descendants but not e's own tail.
func (e *Element) InnerText() string {
	var b strings.Builder
	e.writeInner(&b)
	return b.String()
}

func (e *Element) writeInner(b *strings.Builder) {
	b.WriteString(e.Text)
	for _, c := range e.Children {
		c.writeInner(b)
		b.WriteString(c.Tail)
	}
}
