package adapters

import (
	"regexp"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NamedAnchorShape handles reference lists where every citation carries an
// anchor named "<prefix><N>" inside its list item
type NamedAnchorShape struct {
	BaseAdapter
	pattern *regexp.Regexp
}

// NewNamedAnchorShape creates the named-anchor-per-citation shape
func NewNamedAnchorShape(prefix string) *NamedAnchorShape {
	if prefix == "" {
		prefix = "reference"
	}
	return &NamedAnchorShape{
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d+)$`),
	}
}

// Name returns the shape name
func (s *NamedAnchorShape) Name() string {
	return "named-anchors"
}

// Probe reports whether any anchor name matches the pattern
func (s *NamedAnchorShape) Probe(doc *html.Node) bool {
	return s.FindFirst(doc, s.isCitationAnchor) != nil
}

// Citations returns one unit per matching anchor, holding its enclosing list item
func (s *NamedAnchorShape) Citations(doc *html.Node) []Citation {
	anchors := s.FindAll(doc, s.isCitationAnchor)

	citations := make([]Citation, 0, len(anchors))
	for _, a := range anchors {
		name := s.GetAttribute(a, "name")
		citation := Citation{
			Node:   s.Ancestor(a, atom.Li),
			Origin: name,
		}
		if m := s.pattern.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				citation.Ordinal = n
			}
		}
		citations = append(citations, citation)
	}
	return citations
}

func (s *NamedAnchorShape) isCitationAnchor(n *html.Node) bool {
	return s.IsElement(n, atom.A) && s.pattern.MatchString(s.GetAttribute(n, "name"))
}
