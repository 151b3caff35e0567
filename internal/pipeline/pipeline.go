package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/citelink/internal/extract"
	"github.com/ppiankov/citelink/internal/logger"
	"github.com/ppiankov/citelink/internal/model"
	"github.com/ppiankov/citelink/internal/normalize"
	"github.com/ppiankov/citelink/internal/output"
	"github.com/ppiankov/citelink/internal/refindex"
)

// FetchOutcome is the fetch result for one requested location
type FetchOutcome struct {
	Location string
	Result   *FetchResult
	Err      error
}

// DocumentSource fetches a batch of documents, returning outcomes in input order
type DocumentSource interface {
	FetchAll(ctx context.Context, locations []string) []FetchOutcome
}

// FetchAll fetches locations one at a time
func (f *Fetcher) FetchAll(ctx context.Context, locations []string) []FetchOutcome {
	outcomes := make([]FetchOutcome, 0, len(locations))
	for _, location := range locations {
		result, err := f.FetchWithRetry(ctx, location)
		outcomes = append(outcomes, FetchOutcome{Location: location, Result: result, Err: err})
	}
	return outcomes
}

// Pipeline orchestrates reference extraction and association building
type Pipeline struct {
	source     DocumentSource
	extractor  *extract.ReferenceExtractor
	normalizer *normalize.Normalizer
	writer     *output.Writer
	config     *model.Config
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, source DocumentSource) (*Pipeline, error) {
	normalizer, err := normalize.NewNormalizer(cfg.Normalize)
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}

	return &Pipeline{
		source:     source,
		extractor:  extract.NewReferenceExtractor(cfg.Extract),
		normalizer: normalizer,
		writer:     output.NewWriter(cfg.Output.ListSeparator),
		config:     cfg,
	}, nil
}

// Writer returns the table writer
func (p *Pipeline) Writer() *output.Writer {
	return p.writer
}

// ExtractReferences fetches every location and extracts its references, in
// input order. Fetch and extraction failures are recorded in report and do not
// stop the batch.
func (p *Pipeline) ExtractReferences(ctx context.Context, locations []string, report *model.RunReport) []model.ReferenceRecord {
	records := []model.ReferenceRecord{}

	for _, outcome := range p.source.FetchAll(ctx, locations) {
		report.Documents++

		if outcome.Err != nil {
			logger.Failure("%s: %v", outcome.Location, outcome.Err)
			report.AddFailure(outcome.Location, model.PhaseFetch, outcome.Err)
			continue
		}

		result, err := p.ExtractDocument(outcome.Result)
		if err != nil {
			logger.Failure("%s: %v", outcome.Location, err)
			report.AddFailure(outcome.Location, model.PhaseExtract, err)
			continue
		}

		p.record(report, result)
		records = append(records, result.Records...)
	}

	return records
}

// ExtractDocument extracts the references of one fetched document
func (p *Pipeline) ExtractDocument(doc *FetchResult) (*extract.ReferenceResult, error) {
	return p.extractor.ExtractHTML(doc.URL, strings.NewReader(doc.HTML))
}

func (p *Pipeline) record(report *model.RunReport, result *extract.ReferenceResult) {
	report.References += len(result.Records)
	report.SkippedCitations += len(result.Skipped)
	for _, r := range result.Records {
		if r.HasExternalID() {
			report.ResolvedIDs++
		}
	}

	if result.Empty() {
		report.EmptyDocuments = append(report.EmptyDocuments, result.DocumentID)
		logger.Flag("%s: no references found", result.DocumentID)
		return
	}
	logger.Success("%s: %d references (%s)", result.DocumentID, len(result.Records), result.Shape)
}

// Associate normalizes every structured document against the reference index.
// It must only run once the index holds every document's references.
func (p *Pipeline) Associate(paths []string, publications normalize.PublicationResolver, report *model.RunReport) *normalize.Accumulator {
	acc := normalize.NewAccumulator()

	for _, path := range paths {
		report.Documents++

		doc, err := normalize.LoadDocument(path)
		if err != nil {
			logger.Failure("%s: %v", path, err)
			report.AddFailure(path, model.PhaseNormalize, err)
			continue
		}

		result, err := p.normalizer.Normalize(doc, publications)
		if err != nil {
			logger.Failure("%s: %v", path, err)
			report.AddFailure(path, model.PhaseNormalize, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}

		acc.Add(result.Associations...)
		report.Associations += len(result.Associations)
		report.AddSkips(result.Skipped)

		if n := result.SkipCount(); n > 0 {
			logger.Flag("%s: %d associations, %d relationships skipped", result.SourceURL, len(result.Associations), n)
		} else {
			logger.Success("%s: %d associations", result.SourceURL, len(result.Associations))
		}
	}

	return acc
}

// AssociateDir normalizes every *.json document under dir
func (p *Pipeline) AssociateDir(dir string, publications normalize.PublicationResolver, report *model.RunReport) (*normalize.Accumulator, error) {
	paths, err := normalize.FindDocuments(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		logger.Warn("no structured documents under %s", dir)
	}
	return p.Associate(paths, publications, report), nil
}

// BuildResult is the outcome of a full two-phase run
type BuildResult struct {
	References   []model.ReferenceRecord
	Associations *normalize.Accumulator
	Written      []string
}

// Build runs both phases: every document's references are extracted and
// written before any relationship is resolved against them
func (p *Pipeline) Build(ctx context.Context, locations []string, jsonDir string, report *model.RunReport) (*BuildResult, error) {
	records := p.ExtractReferences(ctx, locations, report)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outDir := p.config.Output.Dir
	refPath := filepath.Join(outDir, p.config.Output.ReferenceName)
	if err := p.writer.WriteReferences(refPath, records); err != nil {
		report.AddFailure(refPath, model.PhaseWrite, err)
		return nil, fmt.Errorf("write references: %w", err)
	}
	written := []string{refPath}

	index := refindex.FromRecords(records)
	logger.Info("reference index: %d resolvable markers", index.Len())

	acc, err := p.AssociateDir(jsonDir, index, report)
	if err != nil {
		return nil, err
	}

	paths, err := p.writer.WriteAssociations(outDir, p.config.Output.CombinedName, acc, p.config.Output.ReferenceName)
	written = append(written, paths...)
	if err != nil {
		report.AddFailure(outDir, model.PhaseWrite, err)
		return nil, fmt.Errorf("write associations: %w", err)
	}

	return &BuildResult{
		References:   records,
		Associations: acc,
		Written:      written,
	}, nil
}
