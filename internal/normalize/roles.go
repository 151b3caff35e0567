package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/citelink/internal/model"
)

const (
	predicateField  = "relationship"
	referencesField = "references"
	provenanceField = "original_text"
)

// Fields never treated as role candidates by positional inference
var nonRoleFields = map[string]struct{}{
	predicateField:  {},
	referencesField: {},
	provenanceField: {},
}

// DefaultRoles declares subject/object fields for known categories
var DefaultRoles = map[string]model.RoleSpec{
	"nutrient_to_disease":   {Subject: "nutrient", Object: "disease"},
	"nutrient_to_gene":      {Subject: "nutrient", Object: "gene"},
	"nutrient_to_phenotype": {Subject: "nutrient", Object: "phenotype"},
	"chemical_to_pathway":   {Subject: "chemical", Object: "pathway"},
	"food_to_nutrient":      {Subject: "food", Object: "nutrient"},
}

// Binding names the fields holding the subject and object of one relationship
type Binding struct {
	Subject string
	Object  string
}

// Schema binds roles for one category. Bind returns a skip reason when the
// relationship cannot be bound.
type Schema interface {
	Name() string
	Bind(rel Relationship) (Binding, string)
}

// DeclaredSchema binds roles from a declared field pair
type DeclaredSchema struct {
	spec     model.RoleSpec
	required []string
}

// NewDeclaredSchema creates a schema requiring the predicate and both role fields
func NewDeclaredSchema(spec model.RoleSpec) *DeclaredSchema {
	return &DeclaredSchema{
		spec:     spec,
		required: []string{predicateField, spec.Subject, spec.Object},
	}
}

func (s *DeclaredSchema) Name() string {
	return "declared"
}

func (s *DeclaredSchema) Bind(rel Relationship) (Binding, string) {
	for _, field := range s.required {
		if !rel.Has(field) {
			return Binding{}, "missing field " + field
		}
	}
	return Binding{Subject: s.spec.Subject, Object: s.spec.Object}, ""
}

// PositionalSchema takes the first remaining field as subject and the second
// as object, after removing the non-role fields
type PositionalSchema struct{}

func (PositionalSchema) Name() string {
	return "positional"
}

func (PositionalSchema) Bind(rel Relationship) (Binding, string) {
	if !rel.Has(predicateField) {
		return Binding{}, "missing field " + predicateField
	}

	var candidates []string
	seen := make(map[string]struct{}, len(rel.Fields))
	for _, f := range rel.Fields {
		if _, skip := nonRoleFields[f.Name]; skip {
			continue
		}
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		candidates = append(candidates, f.Name)
	}

	if len(candidates) != 2 {
		return Binding{}, fmt.Sprintf("ambiguous roles (%d candidate fields)", len(candidates))
	}
	return Binding{Subject: candidates[0], Object: candidates[1]}, ""
}

// fallbackSchema tries a declared schema first and infers positionally when
// the declared fields are absent
type fallbackSchema struct {
	declared *DeclaredSchema
}

func (s fallbackSchema) Name() string {
	return "declared+positional"
}

func (s fallbackSchema) Bind(rel Relationship) (Binding, string) {
	if b, reason := s.declared.Bind(rel); reason == "" {
		return b, ""
	}
	return PositionalSchema{}.Bind(rel)
}

// RoleMap selects a schema per category according to the role policy
type RoleMap struct {
	policy model.RolePolicy
	specs  map[string]model.RoleSpec
}

// NewRoleMap merges configured roles over DefaultRoles
func NewRoleMap(policy model.RolePolicy, roles map[string]model.RoleSpec) (*RoleMap, error) {
	if policy == "" {
		policy = model.RolePolicyStrict
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown role policy %q", policy)
	}

	specs := make(map[string]model.RoleSpec, len(DefaultRoles)+len(roles))
	for category, spec := range DefaultRoles {
		specs[category] = spec
	}
	for category, spec := range roles {
		spec.Subject = strings.TrimSpace(spec.Subject)
		spec.Object = strings.TrimSpace(spec.Object)
		if spec.Subject == "" || spec.Object == "" {
			return nil, fmt.Errorf("roles for %q need both subject and object", category)
		}
		if spec.Subject == spec.Object {
			return nil, fmt.Errorf("roles for %q use the same field twice", category)
		}
		specs[category] = spec
	}

	return &RoleMap{policy: policy, specs: specs}, nil
}

// Declared returns the declared roles for a category
func (m *RoleMap) Declared(category string) (model.RoleSpec, bool) {
	spec, ok := m.specs[category]
	return spec, ok
}

// Categories returns the declared categories, sorted
func (m *RoleMap) Categories() []string {
	categories := make([]string, 0, len(m.specs))
	for c := range m.specs {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// SchemaFor returns the schema to use for a category. Categories without
// declared roles always fall back to positional inference.
func (m *RoleMap) SchemaFor(category string) Schema {
	spec, declared := m.specs[category]

	switch m.policy {
	case model.RolePolicyPositional:
		return PositionalSchema{}
	case model.RolePolicyLenient:
		if declared {
			return fallbackSchema{declared: NewDeclaredSchema(spec)}
		}
		return PositionalSchema{}
	default:
		if declared {
			return NewDeclaredSchema(spec)
		}
		return PositionalSchema{}
	}
}
