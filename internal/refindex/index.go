// Package refindex maps in-text reference markers to external identifiers.
package refindex

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/citelink/internal/model"
)

type key struct {
	documentID string
	marker     string
}

// Index maps (document_id, reference_marker) to an external identifier.
// It is populated once and read-only afterwards.
type Index struct {
	entries map[key]string
}

// New creates an empty index
func New() *Index {
	return &Index{entries: make(map[key]string)}
}

// Add records the identifier of one citation. Records without an identifier
// are ignored.
func (x *Index) Add(r model.ReferenceRecord) {
	if !r.HasExternalID() {
		return
	}
	x.put(r.DocumentID, r.Marker(), r.ExternalID)
}

// FromRecords builds an index from extracted reference records
func FromRecords(records []model.ReferenceRecord) *Index {
	x := New()
	for _, r := range records {
		x.Add(r)
	}
	return x
}

// Lookup returns the identifier for a marker in a document
func (x *Index) Lookup(documentID, marker string) (string, bool) {
	id, ok := x.entries[key{documentID: documentID, marker: strings.TrimSpace(marker)}]
	return id, ok
}

// Resolve maps markers to identifiers in order, dropping unresolvable markers
func (x *Index) Resolve(documentID string, markers []string) []string {
	publications := make([]string, 0, len(markers))
	for _, m := range markers {
		if id, ok := x.Lookup(documentID, m); ok {
			publications = append(publications, id)
		}
	}
	return publications
}

// Len returns the number of resolvable markers
func (x *Index) Len() int {
	return len(x.entries)
}

func (x *Index) put(documentID, marker, id string) {
	x.entries[key{documentID: documentID, marker: strings.TrimSpace(marker)}] = id
}

// LoadFile builds an index from a reference table file
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reference table: %w", err)
	}
	defer f.Close()

	x, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, nil
}

// Load reads a tab-separated reference table with a header row naming at
// least the url, reference and pubmed_id columns. An empty pubmed_id means
// the citation has no identifier.
func Load(r io.Reader) (*Index, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := columnIndexes(header, "url", "reference", "pubmed_id")
	if err != nil {
		return nil, err
	}

	x := New()
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", line, err)
		}

		documentID, marker, id := field(row, cols[0]), field(row, cols[1]), field(row, cols[2])
		if documentID == "" || marker == "" || id == "" {
			continue
		}
		x.put(documentID, marker, id)
	}

	return x, nil
}

func columnIndexes(header []string, names ...string) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	indexes := make([]int, len(names))
	for i, name := range names {
		pos, ok := positions[name]
		if !ok {
			return nil, fmt.Errorf("reference table missing column %q", name)
		}
		indexes[i] = pos
	}
	return indexes, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
