package extract

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/citelink/internal/extract/adapters"
	"github.com/ppiankov/citelink/internal/logger"
	"github.com/ppiankov/citelink/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SkippedCitation describes a malformed citation entry that produced no record
type SkippedCitation struct {
	Origin string
	Reason string
}

// ReferenceResult is the outcome of one extraction pass over a document
type ReferenceResult struct {
	DocumentID string
	Shape      string // Empty when no references section was found
	Records    []model.ReferenceRecord
	Skipped    []SkippedCitation
}

// Empty reports whether the document yielded no references
func (r *ReferenceResult) Empty() bool {
	return len(r.Records) == 0
}

// ReferenceExtractor extracts reference records from parsed documents
type ReferenceExtractor struct {
	registry      *adapters.Registry
	links         *LinkResolver
	marker        string
	markerPattern *regexp.Regexp
}

// NewReferenceExtractor creates an extractor for the given settings
func NewReferenceExtractor(cfg model.ExtractConfig) *ReferenceExtractor {
	marker := cfg.MarkerText
	if marker == "" {
		marker = "(PubMed)"
	}
	return &ReferenceExtractor{
		registry:      adapters.NewRegistry(cfg),
		links:         NewLinkResolver(cfg.Namespace),
		marker:        marker,
		markerPattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(marker)),
	}
}

// ExtractHTML parses raw HTML and extracts its references
func (e *ReferenceExtractor) ExtractHTML(documentID string, r io.Reader) (*ReferenceResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return e.Extract(documentID, doc)
}

// Extract returns the document's references in document order. A document
// without a references section yields an empty result, not an error. The only
// error is an *InconsistencyError, which aborts the whole document.
func (e *ReferenceExtractor) Extract(documentID string, doc *html.Node) (*ReferenceResult, error) {
	result := &ReferenceResult{
		DocumentID: documentID,
		Records:    []model.ReferenceRecord{},
	}

	shape := e.registry.FindShape(doc)
	if shape == nil {
		logger.Debug("no references section in %s", documentID)
		return result, nil
	}
	result.Shape = shape.Name()

	base, err := url.Parse(documentID)
	if err != nil {
		base = nil
	}

	seen := make(map[int]bool)
	for _, citation := range shape.Citations(doc) {
		if citation.Node == nil {
			result.skip(citation.Origin, "no enclosing citation element")
			continue
		}
		if citation.Ordinal <= 0 {
			result.skip(citation.Origin, "no positive ordinal")
			continue
		}
		if seen[citation.Ordinal] {
			result.skip(citation.Origin, "duplicate ordinal "+strconv.Itoa(citation.Ordinal))
			continue
		}

		record, err := e.buildRecord(documentID, base, citation)
		if err != nil {
			return nil, err
		}
		seen[citation.Ordinal] = true
		result.Records = append(result.Records, record)
	}

	for _, s := range result.Skipped {
		logger.Debug("%s: skipped citation %q: %s", documentID, s.Origin, s.Reason)
	}

	return result, nil
}

func (e *ReferenceExtractor) buildRecord(documentID string, base *url.URL, citation adapters.Citation) (model.ReferenceRecord, error) {
	raw := adapters.CollapseSpace(adapters.TextContent(citation.Node))

	externalID, err := e.resolveIdentifier(documentID, base, citation, raw)
	if err != nil {
		return model.ReferenceRecord{}, err
	}

	return model.ReferenceRecord{
		DocumentID:   documentID,
		Ordinal:      citation.Ordinal,
		ExternalID:   externalID,
		CitationText: e.cleanText(raw, citation.Ordinal),
	}, nil
}

// resolveIdentifier returns the first identifier found among the citation's
// marker links. Absence is accepted when the text has no marker, or when a
// marker link points at a non-identifier resource.
func (e *ReferenceExtractor) resolveIdentifier(documentID string, base *url.URL, citation adapters.Citation, text string) (string, error) {
	var (
		nonIdentifier bool
		offending     string
	)

	for _, link := range e.markerLinks(citation.Node) {
		href := attr(link, "href")
		id, kind := e.links.Resolve(base, href)
		switch kind {
		case LinkIdentifier:
			return id, nil
		case LinkNonIdentifier:
			nonIdentifier = true
		default:
			if offending == "" {
				offending = href
			}
		}
	}

	if nonIdentifier || !containsFold(text, e.marker) {
		return "", nil
	}

	return "", &InconsistencyError{
		DocumentID: documentID,
		Ordinal:    citation.Ordinal,
		Href:       offending,
		Text:       text,
	}
}

// markerLinks returns the links whose visible label is exactly the marker text
func (e *ReferenceExtractor) markerLinks(n *html.Node) []*html.Node {
	var links []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.DataAtom == atom.A && attr(node, "href") != "" &&
			adapters.CollapseSpace(adapters.TextContent(node)) == e.marker {
			links = append(links, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return links
}

// cleanText removes the ordinal prefix and every occurrence of the marker
func (e *ReferenceExtractor) cleanText(text string, ordinal int) string {
	prefix := regexp.MustCompile(`^\s*0*` + strconv.Itoa(ordinal) + `\.`)
	text = prefix.ReplaceAllString(text, "")
	// Replace with a space so removal cannot join fragments into a new marker
	text = e.markerPattern.ReplaceAllString(text, " ")
	return adapters.CollapseSpace(text)
}

func (r *ReferenceResult) skip(origin, reason string) {
	r.Skipped = append(r.Skipped, SkippedCitation{Origin: origin, Reason: reason})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
