// Package pipeline drives one rename run end to end: extract page text,
// detect and split bundles, classify each unit, resolve jurisdiction
// sequence codes, resolve the period and deliver the final name to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taxkit/tax-document-renamer/internal/bundle"
	"github.com/taxkit/tax-document-renamer/internal/classify"
	"github.com/taxkit/tax-document-renamer/internal/extract"
	"github.com/taxkit/tax-document-renamer/internal/jobctx"
	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/sequence"
	"github.com/taxkit/tax-document-renamer/internal/textnorm"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

// Sink receives finished documents under their final names. Page-level
// byte splitting of bundles is the sink's concern, not the pipeline's; the
// record carries the page index it needs.
type Sink interface {
	Finalize(ctx context.Context, sourcePath, finalName string) error
}

// ExtractorFactory yields an extractor per file. extract.Factory is the
// production implementation.
type ExtractorFactory interface {
	ForFile(ctx context.Context, path string) (extract.Extractor, error)
}

const blankCharThreshold = 50

// essentialKeywords mark a page as carrying real document content. A short
// page without any of them is treated as a blank separator sheet.
var essentialKeywords = []string{
	"税", "申告", "納付", "受信", "受付", "通知",
	"令和", "平成", "元帳", "決算", "償却", "法人",
}

// RunOptions tune one run.
type RunOptions struct {
	ForceSplit bool
}

// Pipeline wires the processing stages together. One Pipeline serves many
// runs; per-run state lives in the jobctx.Context and the sequence
// resolver created inside ProcessRun.
type Pipeline struct {
	classifier  *classify.Classifier
	detector    *bundle.Detector
	factory     ExtractorFactory
	sink        Sink
	log         logger.Logger
	concurrency int
}

func New(classifier *classify.Classifier, detector *bundle.Detector, factory ExtractorFactory, sink Sink, log logger.Logger, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Pipeline{
		classifier:  classifier,
		detector:    detector,
		factory:     factory,
		sink:        sink,
		log:         log,
		concurrency: concurrency,
	}
}

// ProcessRun handles all files of one run. A broken file yields failure
// records and the run continues; a slot-order violation aborts the whole
// run because every jurisdiction-numbered name would be wrong.
func (p *Pipeline) ProcessRun(ctx context.Context, jc *jobctx.Context, files []string, opts RunOptions) ([]models.DecisionRecord, error) {
	resolver := sequence.NewResolver(jc, p.log)
	names := newNameAllocator()

	var records []models.DecisionRecord
	for _, path := range files {
		fileRecords, err := p.processFile(ctx, jc, resolver, names, path, opts)
		records = append(records, fileRecords...)
		if err != nil {
			if errors.Is(err, sequence.ErrSpecialSlotOrder) {
				return records, err
			}
			p.log.Error("file processing failed",
				logger.String("run_id", jc.RunID),
				logger.String("file", path),
				logger.Error(err),
			)
			records = append(records, p.fileFailureRecord(jc, path, err))
			jc.UpdateStats(func(s *jobctx.Stats) { s.Failed++ })
		}
	}
	return records, nil
}

func (p *Pipeline) processFile(ctx context.Context, jc *jobctx.Context, resolver *sequence.Resolver, names *nameAllocator, path string, opts RunOptions) ([]models.DecisionRecord, error) {
	extractor, err := p.factory.ForFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer extractor.Close()

	pages, err := extractor.ExtractDocument(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	filename := filepath.Base(path)
	decision := p.detector.Detect(filename, pages)

	var units []models.SplitUnit
	if decision.IsBundle || opts.ForceSplit {
		splitter := bundle.NewSplitter(prefetchedPages(pages), p.log)
		units = splitter.Split(ctx, path, len(pages), decision, opts.ForceSplit)
		jc.UpdateStats(func(s *jobctx.Stats) { s.BundleSplits++ })
	} else {
		units = []models.SplitUnit{{
			SourceFile: path,
			PageIndex:  0,
			Ordinal:    1,
			Text:       strings.Join(pages, "\n"),
		}}
	}
	jc.UpdateStats(func(s *jobctx.Stats) { s.TotalUnits += len(units) })

	results, err := p.classifyUnits(ctx, filename, units)
	if err != nil {
		return nil, err
	}

	// Sequence and naming run serialized in page order so slot assignment
	// and collision suffixes are deterministic.
	var records []models.DecisionRecord
	for i, unit := range units {
		record, err := p.finishUnit(ctx, jc, resolver, names, unit, results[i])
		records = append(records, record)
		if err != nil {
			if errors.Is(err, sequence.ErrSpecialSlotOrder) {
				return records, err
			}
			// Protected-period failures poison every remaining protected
			// unit of the file the same way; stop here.
			if errors.Is(err, jobctx.ErrProtectedPeriod) {
				return records, nil
			}
		}
	}
	return records, nil
}

// classifyUnits runs classification concurrently. Unreadable and blank
// units are left with a zero result; finishUnit records them.
func (p *Pipeline) classifyUnits(ctx context.Context, filename string, units []models.SplitUnit) ([]models.ClassificationResult, error) {
	results := make([]models.ClassificationResult, len(units))

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.concurrency)
	for i := range units {
		i := i
		if units[i].Unreadable || isBlankPage(units[i].Text) {
			continue
		}
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}
			results[i] = p.classifier.Classify(units[i].Text, filename)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) finishUnit(ctx context.Context, jc *jobctx.Context, resolver *sequence.Resolver, names *nameAllocator, unit models.SplitUnit, res models.ClassificationResult) (models.DecisionRecord, error) {
	record := models.DecisionRecord{
		RunID:     jc.RunID,
		Source:    unit.SourceFile,
		PageIndex: unit.PageIndex,
		Ordinal:   unit.Ordinal,
		CreatedAt: time.Now(),
	}

	if unit.Unreadable {
		record.Failed = true
		record.Error = unit.ExtractErr
		jc.UpdateStats(func(s *jobctx.Stats) { s.Failed++ })
		return record, nil
	}
	if isBlankPage(unit.Text) {
		record.Skipped = true
		record.SkipReason = "blank page"
		jc.UpdateStats(func(s *jobctx.Stats) { s.Skipped++ })
		return record, nil
	}
	if res.Code == "" || res.Code == models.UnclassifiedCode {
		record.FinalCode = models.UnclassifiedCode
		record.Skipped = true
		record.SkipReason = "unclassified"
		record.Evidence = res.Evidence
		jc.UpdateStats(func(s *jobctx.Stats) { s.Skipped++ })
		return record, nil
	}

	resolved, err := resolver.Resolve(res, unit.Text)
	if err != nil {
		record.Failed = true
		record.Error = err.Error()
		jc.UpdateStats(func(s *jobctx.Stats) { s.Failed++ })
		return record, err
	}

	period, periodSource, err := jc.PeriodFor(resolved.Code, detectPeriod(unit.Text))
	if err != nil {
		record.OriginalCode = resolved.OriginalCode
		record.FinalCode = resolved.Code
		record.Label = resolved.Label
		record.Failed = true
		record.Error = err.Error()
		jc.UpdateStats(func(s *jobctx.Stats) { s.Failed++ })
		return record, err
	}

	finalName := names.allocate(buildFileName(resolved.Code, resolved.Label, period))

	record.OriginalCode = resolved.OriginalCode
	record.FinalCode = resolved.Code
	record.Label = resolved.Label
	record.Period = period
	record.PeriodSource = periodSource
	record.Confidence = resolved.Confidence
	record.Evidence = resolved.Evidence
	record.FinalName = finalName

	if err := p.sink.Finalize(ctx, unit.SourceFile, finalName); err != nil {
		record.Failed = true
		record.Error = err.Error()
		jc.UpdateStats(func(s *jobctx.Stats) { s.Failed++ })
		return record, nil
	}

	jc.UpdateStats(func(s *jobctx.Stats) { s.Renamed++ })
	jc.AddAudit(fmt.Sprintf("renamed %s page %d -> %s", unit.SourceFile, unit.PageIndex, finalName))
	return record, nil
}

func (p *Pipeline) fileFailureRecord(jc *jobctx.Context, path string, err error) models.DecisionRecord {
	return models.DecisionRecord{
		RunID:     jc.RunID,
		Source:    path,
		Failed:    true,
		Error:     err.Error(),
		CreatedAt: time.Now(),
	}
}

// isBlankPage flags separator sheets: little text and none of the words a
// real notice or ledger page always carries.
func isBlankPage(text string) bool {
	normalized := textnorm.Normalize(text)
	if len([]rune(normalized)) >= blankCharThreshold {
		return false
	}
	for _, kw := range essentialKeywords {
		if strings.Contains(normalized, kw) {
			return false
		}
	}
	return true
}

// prefetchedPages adapts already-extracted page texts to the splitter's
// extractor interface so pages are not read twice.
type prefetchedPages []string

func (p prefetchedPages) ExtractPage(_ context.Context, path string, pageIndex int) (string, error) {
	if pageIndex < 0 || pageIndex >= len(p) {
		return "", fmt.Errorf("page %d out of range for %s", pageIndex, path)
	}
	return p[pageIndex], nil
}
