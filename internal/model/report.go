package model

import (
	"sort"
	"time"
)

// Phase identifies which half of a run a document failure happened in
type Phase string

const (
	PhaseFetch     Phase = "fetch"     // Document retrieval (transport, robots, cache)
	PhaseExtract   Phase = "extract"   // Reference extraction from HTML
	PhaseNormalize Phase = "normalize" // Relationship normalization from JSON
	PhaseWrite     Phase = "write"     // Table output
)

// DocumentFailure records a document-level hard failure. Failures are isolated:
// other documents in the same run still produce output.
type DocumentFailure struct {
	DocumentID string `json:"document_id"`
	Phase      Phase  `json:"phase"`
	Err        error  `json:"-"`
	Message    string `json:"error"`
}

// RunReport summarizes one extraction and/or association run
type RunReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	Documents        int      `json:"documents"`          // Documents attempted
	References       int      `json:"references"`         // Reference records emitted
	ResolvedIDs      int      `json:"resolved_ids"`       // References carrying an external identifier
	EmptyDocuments   []string `json:"empty_documents"`    // Documents that yielded zero references
	SkippedCitations int      `json:"skipped_citations"`  // Malformed citation entries skipped

	Associations         int            `json:"associations"`
	SkippedRelationships map[string]int `json:"skipped_relationships,omitempty"` // Reason -> count

	Failures []DocumentFailure `json:"failures,omitempty"`
}

// NewRunReport creates an empty report stamped with the current time
func NewRunReport() *RunReport {
	return &RunReport{
		StartedAt:            time.Now().UTC(),
		SkippedRelationships: make(map[string]int),
	}
}

// AddFailure records a failed document
func (r *RunReport) AddFailure(documentID string, phase Phase, err error) {
	r.Failures = append(r.Failures, DocumentFailure{
		DocumentID: documentID,
		Phase:      phase,
		Err:        err,
		Message:    err.Error(),
	})
}

// AddSkips merges relationship skip counts keyed by reason
func (r *RunReport) AddSkips(skips map[string]int) {
	if r.SkippedRelationships == nil {
		r.SkippedRelationships = make(map[string]int)
	}
	for reason, n := range skips {
		r.SkippedRelationships[reason] += n
	}
}

// TotalSkippedRelationships returns the sum over all skip reasons
func (r *RunReport) TotalSkippedRelationships() int {
	total := 0
	for _, n := range r.SkippedRelationships {
		total += n
	}
	return total
}

// SkipReasons returns skip reasons in stable order
func (r *RunReport) SkipReasons() []string {
	reasons := make([]string, 0, len(r.SkippedRelationships))
	for reason := range r.SkippedRelationships {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}

// Finish stamps the completion time
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now().UTC()
}

// HasFailures reports whether any document failed
func (r *RunReport) HasFailures() bool {
	return len(r.Failures) > 0
}
