// Package output writes reference and association tables as TSV.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/citelink/internal/logger"
	"github.com/ppiankov/citelink/internal/model"
)

// StdoutPath selects standard output instead of a file
const StdoutPath = "-"

// DefaultListSeparator joins list-valued fields
const DefaultListSeparator = "|"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AssociationSet is a grouped, ordered collection of associations
type AssociationSet interface {
	Categories() []string
	Category(name string) []model.Association
	Combined() []model.Association
}

// Writer encodes tables
type Writer struct {
	listSeparator string
}

// NewWriter creates a writer joining list fields with sep
func NewWriter(sep string) *Writer {
	if sep == "" {
		sep = DefaultListSeparator
	}
	return &Writer{listSeparator: sep}
}

// EncodeReferences writes the reference table to out
func (w *Writer) EncodeReferences(out io.Writer, records []model.ReferenceRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.DocumentID,
			strconv.Itoa(r.Ordinal),
			r.ExternalID,
			r.CitationText,
		})
	}
	return encode(out, model.ReferenceColumns, rows)
}

// EncodeAssociations writes one association table to out
func (w *Writer) EncodeAssociations(out io.Writer, assocs []model.Association) error {
	rows := make([][]string, 0, len(assocs))
	for _, a := range assocs {
		rows = append(rows, []string{
			a.Category,
			a.Subject,
			a.SubjectLabel,
			a.Predicate,
			a.Object,
			a.ObjectLabel,
			strings.Join(a.References, w.listSeparator),
			strings.Join(a.Publications, w.listSeparator),
			a.SourceURL,
		})
	}
	return encode(out, model.AssociationColumns, rows)
}

// WriteReferences writes the reference table to path, or stdout for "-".
// An empty record set still produces a header-only table.
func (w *Writer) WriteReferences(path string, records []model.ReferenceRecord) error {
	if path == StdoutPath {
		return w.EncodeReferences(os.Stdout, records)
	}
	return WriteFileAtomic(path, func(out io.Writer) error {
		return w.EncodeReferences(out, records)
	})
}

// WriteAssociations writes one <category>.tsv per category plus the combined
// table into dir, returning the written paths. A category whose file name is
// already taken by another category, the combined table or one of reserved
// gets a numeric suffix.
func (w *Writer) WriteAssociations(dir, combinedName string, set AssociationSet, reserved ...string) ([]string, error) {
	var written []string

	categories := set.Categories()
	names := categoryFileNames(categories, append([]string{combinedName}, reserved...))

	for _, category := range categories {
		path := filepath.Join(dir, names[category])
		assocs := set.Category(category)
		err := WriteFileAtomic(path, func(out io.Writer) error {
			return w.EncodeAssociations(out, assocs)
		})
		if err != nil {
			return written, fmt.Errorf("category %s: %w", category, err)
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, combinedName)
	combined := set.Combined()
	err := WriteFileAtomic(path, func(out io.Writer) error {
		return w.EncodeAssociations(out, combined)
	})
	if err != nil {
		return written, fmt.Errorf("combined table: %w", err)
	}
	return append(written, path), nil
}

// CategoryFileName maps a category to its table file name
func CategoryFileName(category string) string {
	name := unsafeFileChars.ReplaceAllString(category, "_")
	if name == "" || strings.Trim(name, ".") == "" {
		name = "_"
	}
	return name + ".tsv"
}

// categoryFileNames assigns every category a distinct file name outside taken
func categoryFileNames(categories, taken []string) map[string]string {
	used := make(map[string]bool, len(categories)+len(taken))
	for _, name := range taken {
		used[strings.ToLower(name)] = true
	}

	names := make(map[string]string, len(categories))
	for _, category := range categories {
		base := strings.TrimSuffix(CategoryFileName(category), ".tsv")
		name := base + ".tsv"
		for i := 2; used[strings.ToLower(name)]; i++ {
			name = fmt.Sprintf("%s_%d.tsv", base, i)
		}
		if name != base+".tsv" {
			logger.Warn("category %q written to %s (%s.tsv is taken)", category, name, base)
		}
		used[strings.ToLower(name)] = true
		names[category] = name
	}
	return names
}

// WriteFileAtomic writes through a temporary file in the target directory and
// renames it into place, so readers never see a partial table
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

func encode(out io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(out)
	cw.Comma = '\t'

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}
