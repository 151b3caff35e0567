package adapters

import (
	"strings"
	"testing"

	"github.com/ppiankov/citelink/internal/model"
	"golang.org/x/net/html"
)

func parse(t *testing.T, content string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	return doc
}

const siblingPage = `
<html><body>
	<h2><a id="references"></a>References</h2>
	<p>1. Jones et al. <a href="https://www.ncbi.nlm.nih.gov/pubmed/12345678">(PubMed)</a></p>
	<p>2. Smith J. Vitamins. 2001.</p>
	<p>12. Lee K. Biotin. <i>J Nutr</i>. 2010.</p>
	<p>Disclaimer: not a citation</p>
	<p>13. Never reached.</p>
</body></html>`

const namedPage = `
<html><body>
	<h2>References</h2>
	<ol>
		<li><a name="reference1"></a>Jones et al. <a href="https://www.ncbi.nlm.nih.gov/pubmed/12345678">(PubMed)</a></li>
		<li><a name="reference3"></a>Smith J. Vitamins.</li>
	</ol>
</body></html>`

func TestRegistry_FindShape(t *testing.T) {
	registry := NewRegistry(model.DefaultConfig().Extract)

	tests := []struct {
		desc     string
		page     string
		expected string
	}{
		{"sibling paragraphs", siblingPage, "anchor-siblings"},
		{"named anchors", namedPage, "named-anchors"},
		{"no references", `<html><body><p>1. Just a list</p></body></html>`, ""},
		{
			"anchor without citation paragraphs falls through to named anchors",
			`<html><body><h2><a id="references"></a>References</h2>
			<ol><li><a name="reference1"></a>Only citation</li></ol></body></html>`,
			"named-anchors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			shape := registry.FindShape(parse(t, tt.page))
			got := ""
			if shape != nil {
				got = shape.Name()
			}
			if got != tt.expected {
				t.Errorf("Expected shape %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSiblingShape_StopsAtFirstNonCitation(t *testing.T) {
	shape := NewSiblingShape("references")
	citations := shape.Citations(parse(t, siblingPage))

	if len(citations) != 3 {
		t.Fatalf("Expected 3 citations, got %d", len(citations))
	}

	expected := []int{1, 2, 12}
	for i, c := range citations {
		if c.Ordinal != expected[i] {
			t.Errorf("citation %d: expected ordinal %d, got %d", i, expected[i], c.Ordinal)
		}
		if c.Node == nil {
			t.Errorf("citation %d: expected a node", i)
		}
	}
}

func TestSiblingShape_UnwrappedAnchor(t *testing.T) {
	page := `<html><body><a name="references"></a><p>4. Only one.</p></body></html>`
	shape := NewSiblingShape("references")
	doc := parse(t, page)

	if !shape.Probe(doc) {
		t.Fatal("Expected probe to match an unwrapped anchor")
	}
	citations := shape.Citations(doc)
	if len(citations) != 1 || citations[0].Ordinal != 4 {
		t.Errorf("Expected one citation numbered 4, got %+v", citations)
	}
}

func TestNamedAnchorShape_Citations(t *testing.T) {
	shape := NewNamedAnchorShape("reference")
	citations := shape.Citations(parse(t, namedPage))

	if len(citations) != 2 {
		t.Fatalf("Expected 2 citations, got %d", len(citations))
	}
	if citations[0].Ordinal != 1 || citations[1].Ordinal != 3 {
		t.Errorf("Expected ordinals 1 and 3, got %d and %d", citations[0].Ordinal, citations[1].Ordinal)
	}
	for _, c := range citations {
		if c.Node == nil || c.Node.Data != "li" {
			t.Errorf("Expected enclosing li for %s", c.Origin)
		}
	}
}

func TestNamedAnchorShape_AnchorWithoutListItem(t *testing.T) {
	page := `<html><body>
		<a name="reference1">Reference 1</a>
		<a name="reference2">Reference 2</a>
		<a name="references">not a citation anchor</a>
	</body></html>`

	shape := NewNamedAnchorShape("reference")
	doc := parse(t, page)

	if !shape.Probe(doc) {
		t.Fatal("Expected probe to match reference<N> anchors")
	}

	citations := shape.Citations(doc)
	if len(citations) != 2 {
		t.Fatalf("Expected 2 citations, got %d", len(citations))
	}
	for _, c := range citations {
		if c.Node != nil {
			t.Errorf("Expected no enclosing node for %s", c.Origin)
		}
	}
}

func TestTextContent(t *testing.T) {
	doc := parse(t, `<html><body><p id="x">1. Lee K.<br>Biotin. <i>J Nutr</i>.<script>var x;</script></p></body></html>`)
	base := &BaseAdapter{}
	p := base.FindFirst(doc, func(n *html.Node) bool { return base.GetAttribute(n, "id") == "x" })
	if p == nil {
		t.Fatal("paragraph not found")
	}

	got := CollapseSpace(TextContent(p))
	if got != "1. Lee K. Biotin. J Nutr." {
		t.Errorf("Unexpected text: %q", got)
	}
}
