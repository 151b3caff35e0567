package normalize

import "github.com/ppiankov/citelink/internal/model"

// Accumulator groups associations by category. Categories keep first-seen
// order and associations keep insertion order within a category.
type Accumulator struct {
	order      []string
	byCategory map[string][]model.Association
	total      int
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{byCategory: make(map[string][]model.Association)}
}

// Add appends associations to their categories
func (a *Accumulator) Add(assocs ...model.Association) {
	for _, assoc := range assocs {
		if _, seen := a.byCategory[assoc.Category]; !seen {
			a.order = append(a.order, assoc.Category)
		}
		a.byCategory[assoc.Category] = append(a.byCategory[assoc.Category], assoc)
		a.total++
	}
}

// Categories returns the categories in first-seen order
func (a *Accumulator) Categories() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Category returns the associations of one category
func (a *Accumulator) Category(name string) []model.Association {
	return a.byCategory[name]
}

// Combined returns all associations, category by category
func (a *Accumulator) Combined() []model.Association {
	out := make([]model.Association, 0, a.total)
	for _, category := range a.order {
		out = append(out, a.byCategory[category]...)
	}
	return out
}

// Len returns the number of accumulated associations
func (a *Accumulator) Len() int {
	return a.total
}
