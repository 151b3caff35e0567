package extract

import (
	"net/url"
	"regexp"
	"testing"
)

func TestLinkResolver_Resolve(t *testing.T) {
	resolver := NewLinkResolver("PMID")
	base, _ := url.Parse("https://lpi.oregonstate.edu/mic/vitamins/biotin")

	tests := []struct {
		href     string
		expected string
		kind     LinkKind
		desc     string
	}{
		{"https://www.ncbi.nlm.nih.gov/pubmed/12345678", "PMID:12345678", LinkIdentifier, "pubmed path"},
		{"http://www.ncbi.nlm.nih.gov/pubmed/12345678?dopt=Abstract", "PMID:12345678", LinkIdentifier, "pubmed path with query"},
		{"https://pubmed.ncbi.nlm.nih.gov/987654/", "PMID:987654", LinkIdentifier, "pubmed host"},
		{"http://www.ncbi.nlm.nih.gov/entrez/query.fcgi?cmd=Retrieve&db=PubMed&list_uids=11111111&dopt=Abstract", "PMID:11111111", LinkIdentifier, "entrez list_uids"},
		{"https://www.ncbi.nlm.nih.gov/sites/entrez?term=22222222", "PMID:22222222", LinkIdentifier, "entrez term"},
		{"https://www.ncbi.nlm.nih.gov/books/NBK279079/", "", LinkNonIdentifier, "bookshelf chapter"},
		{"https://www.ncbi.nlm.nih.gov/pmc/articles/PMC1234567/", "", LinkNonIdentifier, "pmc article"},
		{"https://pmc.ncbi.nlm.nih.gov/articles/PMC1234567/", "", LinkNonIdentifier, "pmc host article"},
		{"https://PMC.ncbi.nlm.nih.gov:443/articles/PMC7654321", "", LinkNonIdentifier, "pmc host with port"},
		{"https://www.ncbi.nlm.nih.gov/pubmed/?term=Jones+J", "", LinkUnrecognized, "search without accession"},
		{"https://example.com/pubmed/12345678", "", LinkUnrecognized, "foreign host"},
		{"/pubmed/12345678", "", LinkUnrecognized, "relative link resolves to the document host"},
		{"#reference1", "", LinkUnrecognized, "fragment"},
		{"mailto:lpi@oregonstate.edu", "", LinkUnrecognized, "mailto"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			id, kind := resolver.Resolve(base, tt.href)
			if id != tt.expected {
				t.Errorf("Expected id %q, got %q", tt.expected, id)
			}
			if kind != tt.kind {
				t.Errorf("Expected kind %v, got %v", tt.kind, kind)
			}
		})
	}
}

func TestLinkResolver_IdentifierFormat(t *testing.T) {
	resolver := NewLinkResolver("PMID")
	format := regexp.MustCompile(`^PMID:\d+$`)

	hrefs := []string{
		"https://www.ncbi.nlm.nih.gov/pubmed/1",
		"https://www.ncbi.nlm.nih.gov:443/pubmed/31415926",
		"https://pubmed.ncbi.nlm.nih.gov/27182818?from=search",
	}
	for _, href := range hrefs {
		id, kind := resolver.Resolve(nil, href)
		if kind != LinkIdentifier {
			t.Errorf("%s: expected identifier, got %v", href, kind)
			continue
		}
		if !format.MatchString(id) {
			t.Errorf("%s: identifier %q is not namespace plus digits", href, id)
		}
	}
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://example.com/path/page.html")

	tests := []struct {
		href     string
		expected string
		desc     string
	}{
		{"https://external.com/link", "https://external.com/link", "Absolute URL unchanged"},
		{"/absolute/path", "https://example.com/absolute/path", "Absolute path"},
		{"../parent.html", "https://example.com/parent.html", "Parent directory"},
		{"#anchor", "", "Skip anchor"},
		{"javascript:void(0)", "", "Skip javascript:"},
		{"ftp://example.com/file", "", "Skip non-http/https schemes"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := resolveURL(base, tt.href); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
