package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/citelink/internal/extract"
	"github.com/ppiankov/citelink/internal/model"
	"github.com/ppiankov/citelink/internal/refindex"
)

const (
	vitaminD = "https://lpi.oregonstate.edu/mic/vitamins/vitamin-D"
	zinc     = "https://lpi.oregonstate.edu/mic/minerals/zinc"
	offline  = "https://lpi.oregonstate.edu/mic/offline"
	broken   = "https://lpi.oregonstate.edu/mic/broken"
)

// staticSource serves canned documents
type staticSource map[string]string

func (s staticSource) FetchAll(ctx context.Context, locations []string) []FetchOutcome {
	var outcomes []FetchOutcome
	for _, location := range locations {
		page, ok := s[location]
		if !ok {
			outcomes = append(outcomes, FetchOutcome{Location: location, Err: errors.New("fetch: connection refused")})
			continue
		}
		outcomes = append(outcomes, FetchOutcome{
			Location: location,
			Result:   &FetchResult{URL: location, FinalURL: location, HTML: page},
		})
	}
	return outcomes
}

func referencesPage(paragraphs ...string) string {
	return `<html><body><h2><a id="references"></a>References</h2>` +
		strings.Join(paragraphs, "\n") + `<h2>Authors</h2></body></html>`
}

func testSource() staticSource {
	return staticSource{
		vitaminD: referencesPage(
			`<p>1. Holick MF. Vitamin D deficiency. <a href="https://www.ncbi.nlm.nih.gov/pubmed/11111111">(PubMed)</a></p>`,
			`<p>2. Institute of Medicine. Dietary Reference Intakes. <a href="https://www.ncbi.nlm.nih.gov/books/NBK56070/">(PubMed)</a></p>`,
			`<p>3. Wagner CL. Prevention of rickets. <a href="https://pubmed.ncbi.nlm.nih.gov/33333333/">(PubMed)</a></p>`,
		),
		zinc: `<html><body><h1>Zinc</h1><p>No references yet.</p></body></html>`,
		broken: referencesPage(
			`<p>1. Lee K. <a href="https://www.ncbi.nlm.nih.gov/pubmed/?term=Lee">(PubMed)</a></p>`,
		),
	}
}

func writeJSON(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestPipeline(t *testing.T) (*Pipeline, *model.Config) {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Output.Dir = t.TempDir()

	p, err := NewPipeline(cfg, testSource())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p, cfg
}

func TestExtractReferences(t *testing.T) {
	p, _ := newTestPipeline(t)
	report := model.NewRunReport()

	records := p.ExtractReferences(context.Background(), []string{vitaminD, zinc, offline, broken}, report)

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.DocumentID != vitaminD || r.Ordinal != i+1 {
			t.Errorf("Unexpected record %d: %+v", i, r)
		}
	}
	if records[1].ExternalID != "" {
		t.Errorf("Expected book chapter without identifier, got %q", records[1].ExternalID)
	}

	if report.Documents != 4 || report.References != 3 || report.ResolvedIDs != 2 {
		t.Errorf("Unexpected counts: %+v", report)
	}
	if !reflect.DeepEqual(report.EmptyDocuments, []string{zinc}) {
		t.Errorf("Expected zinc to be empty, got %v", report.EmptyDocuments)
	}

	if len(report.Failures) != 2 {
		t.Fatalf("Expected 2 failures, got %d", len(report.Failures))
	}
	if report.Failures[0].DocumentID != offline || report.Failures[0].Phase != model.PhaseFetch {
		t.Errorf("Unexpected fetch failure: %+v", report.Failures[0])
	}
	if report.Failures[1].Phase != model.PhaseExtract || !errors.Is(report.Failures[1].Err, extract.ErrInconsistentMarkup) {
		t.Errorf("Unexpected extract failure: %+v", report.Failures[1])
	}
}

func TestBuild(t *testing.T) {
	p, cfg := newTestPipeline(t)
	jsonDir := t.TempDir()

	writeJSON(t, jsonDir, "vitamin-d.json", `{
	  "source_url": "https://lpi.oregonstate.edu/mic/vitamins/vitamin-D",
	  "named_entities": [{"id": "CHEBI:28940", "label": "vitamin D"}],
	  "extracted_object": {
	    "nutrient_to_disease_relationships": [
	      {"nutrient": "CHEBI:28940", "relationship": "prevents", "disease": "rickets", "references": ["1", "2", "3"]},
	      {"nutrient": "CHEBI:28940", "disease": "osteomalacia"}
	    ]
	  }
	}`)
	writeJSON(t, jsonDir, "orphan.json", `{"extracted_object": {}}`)

	report := model.NewRunReport()
	result, err := p.Build(context.Background(), []string{vitaminD, zinc}, jsonDir, report)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(result.References) != 3 {
		t.Errorf("Expected 3 references, got %d", len(result.References))
	}

	combined := result.Associations.Combined()
	if len(combined) != 1 {
		t.Fatalf("Expected 1 association, got %d", len(combined))
	}
	assoc := combined[0]
	if !reflect.DeepEqual(assoc.Publications, []string{"PMID:11111111", "PMID:33333333"}) {
		t.Errorf("Unexpected publications: %v", assoc.Publications)
	}
	if assoc.Subject != "CHEBI:28940" || assoc.SubjectLabel != "vitamin D" || assoc.ObjectLabel != "rickets" {
		t.Errorf("Unexpected association: %+v", assoc)
	}

	if report.Associations != 1 || report.TotalSkippedRelationships() != 1 {
		t.Errorf("Unexpected association counts: %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].Phase != model.PhaseNormalize {
		t.Errorf("Expected the orphan document to fail normalization, got %+v", report.Failures)
	}

	expected := []string{
		filepath.Join(cfg.Output.Dir, "references.tsv"),
		filepath.Join(cfg.Output.Dir, "nutrient_to_disease.tsv"),
		filepath.Join(cfg.Output.Dir, "associations.tsv"),
	}
	if !reflect.DeepEqual(result.Written, expected) {
		t.Errorf("Expected %v, got %v", expected, result.Written)
	}

	refs, err := os.ReadFile(expected[0])
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(refs), "\n"); lines != 4 {
		t.Errorf("Expected header plus 3 rows, got %d lines", lines)
	}

	table, err := os.ReadFile(expected[2])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(table), "1|2|3\tPMID:11111111|PMID:33333333") {
		t.Errorf("Expected pipe-joined lists, got:\n%s", table)
	}
}

func TestBuildWithoutReferencesWritesHeader(t *testing.T) {
	p, cfg := newTestPipeline(t)

	result, err := p.Build(context.Background(), []string{zinc}, t.TempDir(), model.NewRunReport())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(result.References) != 0 {
		t.Errorf("Expected no references, got %d", len(result.References))
	}

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "references.tsv"))
	if err != nil {
		t.Fatalf("Expected header-only table: %v", err)
	}
	if string(data) != "url\treference\tpubmed_id\treference_text\n" {
		t.Errorf("Unexpected table: %q", data)
	}
}

func TestAssociateDir(t *testing.T) {
	p, _ := newTestPipeline(t)
	jsonDir := t.TempDir()

	index, err := refindex.Load(strings.NewReader("url\treference\tpubmed_id\treference_text\n" +
		vitaminD + "\t3\tPMID:33333333\tWagner CL.\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	writeJSON(t, jsonDir, "b-zinc.json", `{
	  "source_url": "https://lpi.oregonstate.edu/mic/minerals/zinc",
	  "extracted_object": {"nutrient_to_disease_relationships": [
	    {"nutrient": "zinc", "relationship": "treats", "disease": "DOID:0050117", "references": ["3"]}
	  ]}
	}`)
	writeJSON(t, jsonDir, "a-vitamin-d.json", `{
	  "source_url": "https://lpi.oregonstate.edu/mic/vitamins/vitamin-D",
	  "extracted_object": {"nutrient_to_disease_relationships": [
	    {"nutrient": "CHEBI:28940", "relationship": "prevents", "disease": "rickets", "references": "3"}
	  ]}
	}`)
	writeJSON(t, jsonDir, "c-broken.json", `{"source_url": `)

	report := model.NewRunReport()
	acc, err := p.AssociateDir(jsonDir, index, report)
	if err != nil {
		t.Fatalf("AssociateDir failed: %v", err)
	}

	combined := acc.Combined()
	if len(combined) != 2 {
		t.Fatalf("Expected 2 associations, got %d", len(combined))
	}
	if combined[0].SourceURL != vitaminD {
		t.Errorf("Expected documents in lexical order, got %s first", combined[0].SourceURL)
	}
	if !reflect.DeepEqual(combined[0].Publications, []string{"PMID:33333333"}) {
		t.Errorf("Unexpected publications: %v", combined[0].Publications)
	}
	if len(combined[1].Publications) != 0 {
		t.Errorf("Markers of another document must not resolve, got %v", combined[1].Publications)
	}

	if report.Documents != 3 {
		t.Errorf("Expected 3 documents, got %d", report.Documents)
	}
	if len(report.Failures) != 1 || !strings.HasSuffix(report.Failures[0].DocumentID, "c-broken.json") {
		t.Errorf("Expected only the broken document to fail, got %+v", report.Failures)
	}
}

func TestFetcherFetchAllKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var locations []string
	for _, name := range []string{"b.html", "a.html", "missing.html"} {
		path := filepath.Join(dir, name)
		if name != "missing.html" {
			if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		locations = append(locations, path)
	}

	outcomes := newTestFetcher().FetchAll(context.Background(), locations)
	if len(outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Result.HTML != "b.html" || outcomes[1].Result.HTML != "a.html" {
		t.Error("Expected outcomes in input order")
	}
	if outcomes[2].Err == nil {
		t.Error("Expected error for missing file")
	}
}
