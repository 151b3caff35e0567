package model

// NamedEntity is one entry of a structured document's entity list
type NamedEntity struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Association is a normalized subject-predicate-object record.
// Optional identifier and label fields are empty strings when absent.
type Association struct {
	Category     string   `json:"category"`
	Subject      string   `json:"subject,omitempty"`
	SubjectLabel string   `json:"subject_label,omitempty"`
	Predicate    string   `json:"predicate"`
	Object       string   `json:"object,omitempty"`
	ObjectLabel  string   `json:"object_label,omitempty"`
	References   []string `json:"references"`
	Publications []string `json:"publications"`
	SourceURL    string   `json:"source_url"`
}

// AssociationColumns is the header of every association table, in field order
var AssociationColumns = []string{
	"category",
	"subject",
	"subject_label",
	"predicate",
	"object",
	"object_label",
	"references",
	"publications",
	"source_url",
}
