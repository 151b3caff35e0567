// Package normalize turns structured relationship documents into
// association records.
package normalize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/citelink/internal/model"
	"github.com/tidwall/gjson"
)

// ErrMissingSourceURL is returned for documents without a source_url
var ErrMissingSourceURL = errors.New("document has no source_url")

// ErrInvalidDocument is returned for content that is not a JSON object
var ErrInvalidDocument = errors.New("invalid structured document")

// Field is one key/value pair of a raw relationship, in encounter order
type Field struct {
	Name  string
	Value gjson.Result
}

// Relationship is one raw, loosely-typed relationship entry
type Relationship struct {
	Fields []Field
}

// Get returns the first field with the given name
func (r Relationship) Get(name string) (gjson.Result, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return gjson.Result{}, false
}

// Has reports whether the field exists with a non-empty value
func (r Relationship) Has(name string) bool {
	v, ok := r.Get(name)
	if !ok {
		return false
	}
	switch v.Type {
	case gjson.Null:
		return false
	case gjson.String:
		return strings.TrimSpace(v.Str) != ""
	case gjson.JSON:
		return (v.IsArray() && len(v.Array()) > 0) || v.IsObject()
	}
	return true
}

// Text returns a trimmed string field; ok is false for absent or non-string values
func (r Relationship) Text(name string) (string, bool) {
	v, found := r.Get(name)
	if !found || v.Type != gjson.String {
		return "", false
	}
	return strings.TrimSpace(v.Str), true
}

// Markers returns the in-text reference markers in declared order. Numeric
// markers are rendered as text; a single string is split on commas.
func (r Relationship) Markers() []string {
	markers := []string{}

	v, ok := r.Get(referencesField)
	if !ok {
		return markers
	}

	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			markers = append(markers, s)
		}
	}

	switch {
	case v.IsArray():
		for _, item := range v.Array() {
			if item.Type == gjson.String || item.Type == gjson.Number {
				add(item.String())
			}
		}
	case v.Type == gjson.String:
		for _, s := range strings.Split(v.Str, ",") {
			add(s)
		}
	case v.Type == gjson.Number:
		add(v.String())
	}
	return markers
}

// RelationshipList is one keyed list from extracted_object
type RelationshipList struct {
	Key     string
	Entries []Relationship
	Invalid int  // Entries that are not JSON objects
	NotList bool // The value under Key is not an array
}

// Document is one structured document
type Document struct {
	Path      string
	SourceURL string
	Entities  []model.NamedEntity
	Lists     []RelationshipList // In encounter order
}

// EntityLabels builds the entity label table. The first non-empty label for
// an identifier wins.
func (d *Document) EntityLabels() map[string]string {
	labels := make(map[string]string, len(d.Entities))
	for _, e := range d.Entities {
		if e.ID == "" || e.Label == "" {
			continue
		}
		if _, exists := labels[e.ID]; !exists {
			labels[e.ID] = e.Label
		}
	}
	return labels
}

// ParseDocument decodes a structured document, keeping key order
func ParseDocument(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidDocument)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrInvalidDocument)
	}

	doc := &Document{
		SourceURL: strings.TrimSpace(root.Get("source_url").String()),
	}

	root.Get("named_entities").ForEach(func(_, entity gjson.Result) bool {
		if entity.IsObject() {
			doc.Entities = append(doc.Entities, model.NamedEntity{
				ID:    strings.TrimSpace(entity.Get("id").String()),
				Label: strings.TrimSpace(entity.Get("label").String()),
			})
		}
		return true
	})

	extracted := root.Get("extracted_object")
	if extracted.Exists() && extracted.Type != gjson.Null && !extracted.IsObject() {
		return nil, fmt.Errorf("%w: extracted_object is not an object", ErrInvalidDocument)
	}

	extracted.ForEach(func(key, value gjson.Result) bool {
		list := RelationshipList{Key: key.Str}
		if !value.IsArray() {
			list.NotList = true
			doc.Lists = append(doc.Lists, list)
			return true
		}
		value.ForEach(func(_, entry gjson.Result) bool {
			if !entry.IsObject() {
				list.Invalid++
				return true
			}
			var rel Relationship
			entry.ForEach(func(name, v gjson.Result) bool {
				rel.Fields = append(rel.Fields, Field{Name: name.Str, Value: v})
				return true
			})
			list.Entries = append(list.Entries, rel)
			return true
		})
		doc.Lists = append(doc.Lists, list)
		return true
	})

	return doc, nil
}

// LoadDocument reads and decodes one structured document file
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// FindDocuments walks root for *.json files, in lexical order
func FindDocuments(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return paths, nil
}
