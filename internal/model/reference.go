package model

import "strconv"

// ReferenceRecord is one citation found in a source document's reference section
type ReferenceRecord struct {
	DocumentID   string `json:"url"`                 // Source URL of the document
	Ordinal      int    `json:"reference"`           // Declared citation number (positive)
	ExternalID   string `json:"pubmed_id,omitempty"` // Namespaced identifier, e.g. "PMID:12345678"; empty when absent
	CitationText string `json:"reference_text"`      // Citation with ordinal prefix and marker text removed
}

// Marker returns the ordinal in the textual form relationship records use
func (r ReferenceRecord) Marker() string {
	return strconv.Itoa(r.Ordinal)
}

// HasExternalID reports whether an identifier was resolved for the citation
func (r ReferenceRecord) HasExternalID() bool {
	return r.ExternalID != ""
}

// ReferenceColumns is the header of the reference table
var ReferenceColumns = []string{"url", "reference", "pubmed_id", "reference_text"}
