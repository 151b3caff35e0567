package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// LinkKind classifies the target of an identifier link
type LinkKind int

const (
	LinkUnrecognized  LinkKind = iota // Outside the namespace, or no accession found
	LinkIdentifier                    // Individual accession; identifier extracted
	LinkNonIdentifier                 // Namespace resource without an accession (e.g. a book chapter)
)

func (k LinkKind) String() string {
	switch k {
	case LinkIdentifier:
		return "identifier"
	case LinkNonIdentifier:
		return "non-identifier"
	default:
		return "unrecognized"
	}
}

// Known URL forms of a PubMed accession:
//
//	https://www.ncbi.nlm.nih.gov/pubmed/12345678
//	https://pubmed.ncbi.nlm.nih.gov/12345678/
//	http://www.ncbi.nlm.nih.gov/entrez/query.fcgi?cmd=Retrieve&db=PubMed&list_uids=12345678
//	https://www.ncbi.nlm.nih.gov/sites/entrez?term=12345678
var accessionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/pubmed/(\d+)(?:[/?#]|$)`),
	regexp.MustCompile(`(?i)^https?://pubmed\.ncbi\.nlm\.nih\.gov/(\d+)(?:[/?#]|$)`),
	regexp.MustCompile(`(?i)[?&](?:list_uids|uid|term|id)=(\d+)(?:[&#]|$)`),
	regexp.MustCompile(`/(\d{6,})/?$`),
}

// Namespace resources that never carry an individual accession
var (
	nonIdentifierHosts = []string{"pmc.ncbi.nlm.nih.gov"}
	nonIdentifierPaths = []string{"/books/", "/pmc/"}
	pmcArticlePath     = regexp.MustCompile(`(?i)/articles/pmc\d+`)
)

// LinkResolver extracts namespaced identifiers from link targets
type LinkResolver struct {
	namespace  string
	hostSuffix string
}

// NewLinkResolver creates a resolver for the PubMed namespace, tagging
// identifiers with the given prefix
func NewLinkResolver(namespace string) *LinkResolver {
	if namespace == "" {
		namespace = "PMID"
	}
	return &LinkResolver{
		namespace:  namespace,
		hostSuffix: "ncbi.nlm.nih.gov",
	}
}

// Resolve classifies an href found in a document and extracts its identifier.
// Relative hrefs are resolved against base, which may be nil.
func (r *LinkResolver) Resolve(base *url.URL, href string) (string, LinkKind) {
	target := resolveURL(base, href)
	if target == "" {
		return "", LinkUnrecognized
	}

	parsed, err := url.Parse(target)
	if err != nil || !r.inNamespace(parsed.Host) {
		return "", LinkUnrecognized
	}

	if r.nonIdentifier(parsed) {
		return "", LinkNonIdentifier
	}

	for _, pattern := range accessionPatterns {
		if m := pattern.FindStringSubmatch(target); m != nil {
			return r.namespace + ":" + m[1], LinkIdentifier
		}
	}

	return "", LinkUnrecognized
}

// nonIdentifier reports whether the target is a Bookshelf or PMC resource
func (r *LinkResolver) nonIdentifier(target *url.URL) bool {
	host := strings.ToLower(target.Hostname())
	for _, h := range nonIdentifierHosts {
		if host == h {
			return true
		}
	}

	lowerPath := strings.ToLower(target.Path)
	for _, p := range nonIdentifierPaths {
		if strings.Contains(lowerPath, p) {
			return true
		}
	}
	return pmcArticlePath.MatchString(target.Path)
}

func (r *LinkResolver) inNamespace(host string) bool {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host == r.hostSuffix || strings.HasSuffix(host, "."+r.hostSuffix)
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)

	// Skip anchors, javascript: and mailto: links
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := parsed
	if base != nil {
		resolved = base.ResolveReference(parsed)
	}

	// Only keep http/https URLs
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}
