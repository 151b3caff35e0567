package adapters

import (
	"strings"

	"github.com/ppiankov/citelink/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Citation is one citation unit located by a shape
type Citation struct {
	// Node holds the full citation text; nil when the shape found a citation
	// marker but no enclosing element for it
	Node *html.Node

	// Ordinal is the declared citation number, 0 when it could not be derived
	Ordinal int

	// Origin describes where the ordinal came from (paragraph prefix or anchor name)
	Origin string
}

// Shape is one supported layout of a references section
type Shape interface {
	// Name returns the shape name
	Name() string

	// Probe reports whether the document exposes this shape
	Probe(doc *html.Node) bool

	// Citations returns the citation units in document order
	Citations(doc *html.Node) []Citation
}

// Registry selects the shape a document exposes
type Registry struct {
	shapes []Shape
}

// NewRegistry creates a registry with the built-in shapes. The sibling
// paragraph shape is probed first.
func NewRegistry(cfg model.ExtractConfig) *Registry {
	registry := &Registry{}
	registry.Register(NewSiblingShape(cfg.AnchorID))
	registry.Register(NewNamedAnchorShape(cfg.NamedAnchorPrefix))
	return registry
}

// Register appends a shape to the probe order
func (r *Registry) Register(shape Shape) {
	r.shapes = append(r.shapes, shape)
}

// FindShape returns the first shape whose probe matches, or nil when the
// document has no recognizable references section
func (r *Registry) FindShape(doc *html.Node) Shape {
	for _, shape := range r.shapes {
		if shape.Probe(doc) {
			return shape
		}
	}
	return nil
}

// BaseAdapter provides node helpers shared by shapes
type BaseAdapter struct{}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// IsElement reports whether n is an element of the given type
func (b *BaseAdapter) IsElement(n *html.Node, a atom.Atom) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == a
}

// FindAll finds all nodes matching a predicate, in document order
func (b *BaseAdapter) FindAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// FindFirst finds the first node matching a predicate
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}

// NextElementSibling skips text and comment nodes
func (b *BaseAdapter) NextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// Ancestor returns the nearest enclosing element of the given type
func (b *BaseAdapter) Ancestor(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if b.IsElement(p, a) {
			return p
		}
	}
	return nil
}

// TextContent concatenates the text of n as rendered, without collapsing
// whitespace. Line breaks count as spaces; script and style are skipped.
func TextContent(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			return
		case html.ElementNode:
			switch node.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			case atom.Br:
				buf.WriteString(" ")
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// CollapseSpace collapses runs of whitespace to single spaces and trims
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
