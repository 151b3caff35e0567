package extract

import (
	"errors"
	"fmt"
)

// ErrInconsistentMarkup marks a citation whose text shows the identifier-link
// marker while no identifier could be extracted from its links
var ErrInconsistentMarkup = errors.New("inconsistent citation markup")

// InconsistencyError carries enough context to locate the offending citation
type InconsistencyError struct {
	DocumentID string
	Ordinal    int
	Href       string // Target of the marker link, empty when no marker link exists
	Text       string // Citation text as found in the document
}

func (e *InconsistencyError) Error() string {
	if e.Href == "" {
		return fmt.Sprintf("%s: citation %d mentions the identifier marker but has no identifier link: %q",
			e.DocumentID, e.Ordinal, e.Text)
	}
	return fmt.Sprintf("%s: citation %d links %s but no identifier could be extracted: %q",
		e.DocumentID, e.Ordinal, e.Href, e.Text)
}

// Unwrap lets errors.Is match ErrInconsistentMarkup
func (e *InconsistencyError) Unwrap() error {
	return ErrInconsistentMarkup
}
