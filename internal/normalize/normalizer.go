package normalize

import (
	"fmt"
	"strings"

	"github.com/ppiankov/citelink/internal/logger"
	"github.com/ppiankov/citelink/internal/model"
)

// identifierDelimiter separates namespace and accession in entity identifiers
const identifierDelimiter = ":"

// PublicationResolver maps in-text reference markers to external identifiers
type PublicationResolver interface {
	Resolve(documentID string, markers []string) []string
}

// Result holds the associations built from one document
type Result struct {
	SourceURL    string
	Associations []model.Association
	Skipped      map[string]int // Skipped relationship entries by reason
}

// SkipCount returns the total number of skipped relationship entries
func (r *Result) SkipCount() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

func (r *Result) skip(reason string) {
	r.Skipped[reason]++
}

// Normalizer builds association records from structured documents
type Normalizer struct {
	suffix string
	roles  *RoleMap
}

// NewNormalizer creates a normalizer from the normalize configuration
func NewNormalizer(cfg model.NormalizeConfig) (*Normalizer, error) {
	suffix := cfg.Suffix
	if suffix == "" {
		suffix = "_relationships"
	}

	roles, err := NewRoleMap(cfg.RolePolicy, cfg.Roles)
	if err != nil {
		return nil, fmt.Errorf("role map: %w", err)
	}

	return &Normalizer{suffix: suffix, roles: roles}, nil
}

// Roles returns the active role map
func (n *Normalizer) Roles() *RoleMap {
	return n.roles
}

// Category returns the category for a relationship-list key, or false when
// the key does not carry the relationship suffix
func (n *Normalizer) Category(key string) (string, bool) {
	if !strings.HasSuffix(key, n.suffix) {
		return "", false
	}
	category := strings.TrimSuffix(key, n.suffix)
	if category == "" {
		return "", false
	}
	return category, true
}

// Normalize builds the associations of one document. Malformed entries are
// skipped and counted; only a missing source_url fails the document.
func (n *Normalizer) Normalize(doc *Document, publications PublicationResolver) (*Result, error) {
	if doc.SourceURL == "" {
		return nil, ErrMissingSourceURL
	}

	result := &Result{
		SourceURL:    doc.SourceURL,
		Associations: []model.Association{},
		Skipped:      make(map[string]int),
	}
	labels := doc.EntityLabels()

	for _, list := range doc.Lists {
		category, ok := n.Category(list.Key)
		if !ok {
			continue
		}
		if list.NotList {
			logger.Warn("%s: %s is not a list", doc.SourceURL, list.Key)
			result.skip("relationship list is not an array")
			continue
		}
		for i := 0; i < list.Invalid; i++ {
			result.skip("entry is not an object")
		}

		schema := n.roles.SchemaFor(category)
		for _, rel := range list.Entries {
			assoc, reason := n.build(category, schema, rel, doc.SourceURL, labels, publications)
			if reason != "" {
				logger.Debug("%s: skipping %s entry: %s", doc.SourceURL, category, reason)
				result.skip(reason)
				continue
			}
			result.Associations = append(result.Associations, assoc)
		}
	}

	return result, nil
}

func (n *Normalizer) build(category string, schema Schema, rel Relationship, sourceURL string, labels map[string]string, publications PublicationResolver) (model.Association, string) {
	binding, reason := schema.Bind(rel)
	if reason != "" {
		return model.Association{}, reason
	}

	predicate, ok := rel.Text(predicateField)
	if !ok || predicate == "" {
		return model.Association{}, "missing field " + predicateField
	}

	subjectRaw, ok := rel.Text(binding.Subject)
	if !ok || subjectRaw == "" {
		return model.Association{}, "empty role " + binding.Subject
	}
	objectRaw, ok := rel.Text(binding.Object)
	if !ok || objectRaw == "" {
		return model.Association{}, "empty role " + binding.Object
	}

	subject := Disambiguate(subjectRaw, labels)
	object := Disambiguate(objectRaw, labels)

	markers := rel.Markers()
	resolved := []string{}
	if publications != nil && len(markers) > 0 {
		resolved = publications.Resolve(sourceURL, markers)
	}

	return model.Association{
		Category:     category,
		Subject:      subject.ID,
		SubjectLabel: subject.Label,
		Predicate:    predicate,
		Object:       object.ID,
		ObjectLabel:  object.Label,
		References:   markers,
		Publications: resolved,
		SourceURL:    sourceURL,
	}, ""
}

// Disambiguate decides whether a raw role value is an entity identifier or a
// display label. Identifiers take their label from the entity table.
func Disambiguate(raw string, labels map[string]string) model.NamedEntity {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, identifierDelimiter) {
		return model.NamedEntity{ID: raw, Label: labels[raw]}
	}
	return model.NamedEntity{Label: raw}
}
