package adapters

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var leadingOrdinal = regexp.MustCompile(`^(\d+)\.`)

// SiblingShape handles reference sections marked by a single anchor and
// followed by consecutive "<N>." paragraphs
type SiblingShape struct {
	BaseAdapter
	anchorID string
}

// NewSiblingShape creates the anchor-plus-siblings shape
func NewSiblingShape(anchorID string) *SiblingShape {
	if anchorID == "" {
		anchorID = "references"
	}
	return &SiblingShape{anchorID: anchorID}
}

// Name returns the shape name
func (s *SiblingShape) Name() string {
	return "anchor-siblings"
}

// Probe requires the anchor and at least one citation paragraph after it
func (s *SiblingShape) Probe(doc *html.Node) bool {
	anchor := s.findAnchor(doc)
	if anchor == nil {
		return false
	}
	return s.firstParagraph(anchor) != nil
}

// Citations walks the sibling paragraphs until the first one that is not a citation
func (s *SiblingShape) Citations(doc *html.Node) []Citation {
	anchor := s.findAnchor(doc)
	if anchor == nil {
		return nil
	}

	var citations []Citation
	for p := s.firstParagraph(anchor); p != nil && s.isCitation(p); p = s.NextElementSibling(p) {
		ordinal, origin := paragraphOrdinal(p)
		citations = append(citations, Citation{
			Node:    p,
			Ordinal: ordinal,
			Origin:  origin,
		})
	}
	return citations
}

func (s *SiblingShape) findAnchor(doc *html.Node) *html.Node {
	return s.FindFirst(doc, func(n *html.Node) bool {
		if !s.IsElement(n, atom.A) {
			return false
		}
		return s.GetAttribute(n, "id") == s.anchorID || s.GetAttribute(n, "name") == s.anchorID
	})
}

// firstParagraph returns the first citation paragraph following the anchor's
// parent, or following the anchor itself when the anchor is not wrapped.
func (s *SiblingShape) firstParagraph(anchor *html.Node) *html.Node {
	if anchor.Parent != nil {
		if p := s.NextElementSibling(anchor.Parent); p != nil && s.isCitation(p) {
			return p
		}
	}
	if p := s.NextElementSibling(anchor); p != nil && s.isCitation(p) {
		return p
	}
	return nil
}

func (s *SiblingShape) isCitation(n *html.Node) bool {
	if !s.IsElement(n, atom.P) {
		return false
	}
	return leadingOrdinal.MatchString(strings.TrimSpace(TextContent(n)))
}

func paragraphOrdinal(p *html.Node) (int, string) {
	m := leadingOrdinal.FindStringSubmatch(strings.TrimSpace(TextContent(p)))
	if m == nil {
		return 0, ""
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, m[0]
	}
	return n, m[0]
}
