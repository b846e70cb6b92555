package bundle

import (
	"context"

	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

// PageExtractor is the slice of the text-extraction contract the splitter
// needs. Extraction itself is an external concern.
type PageExtractor interface {
	ExtractPage(ctx context.Context, path string, pageIndex int) (string, error)
}

// Splitter carves a confirmed (or forced) bundle into per-page units.
type Splitter struct {
	extractor PageExtractor
	log       logger.Logger
}

// NewSplitter creates a splitter over the given extractor.
func NewSplitter(extractor PageExtractor, log logger.Logger) *Splitter {
	return &Splitter{extractor: extractor, log: log}
}

// Split emits exactly one unit per page in input order, ordinals contiguous
// from 1. Blank pages are kept; filtering them is a pipeline decision.
// A page whose extraction fails becomes an unreadable unit instead of
// aborting the whole split. With forced set the decision content is
// ignored and every page is split regardless.
func (s *Splitter) Split(ctx context.Context, path string, pageCount int, decision models.BundleDecision, forced bool) []models.SplitUnit {
	if !decision.IsBundle && !forced {
		if s.log != nil {
			s.log.Debug("split skipped, not a bundle", logger.String("file", path))
		}
		return nil
	}

	units := make([]models.SplitUnit, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		unit := models.SplitUnit{
			SourceFile: path,
			PageIndex:  i,
			Ordinal:    i + 1,
		}
		text, err := s.extractor.ExtractPage(ctx, path, i)
		if err != nil {
			unit.Unreadable = true
			unit.ExtractErr = err.Error()
			if s.log != nil {
				s.log.Warn("page unreadable",
					logger.String("file", path),
					logger.Int("page", i),
					logger.Error(err),
				)
			}
		} else {
			unit.Text = text
		}
		units = append(units, unit)
	}

	if s.log != nil {
		s.log.Info("bundle split",
			logger.String("file", path),
			logger.Int("pages", pageCount),
			logger.Bool("forced", forced),
			logger.String("family", string(decision.Family)),
		)
	}
	return units
}
