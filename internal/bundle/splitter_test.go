package bundle

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

type fakeExtractor struct {
	pages    map[int]string
	failures map[int]error
}

func (f *fakeExtractor) ExtractPage(_ context.Context, _ string, pageIndex int) (string, error) {
	if err, ok := f.failures[pageIndex]; ok {
		return "", err
	}
	return f.pages[pageIndex], nil
}

func TestSplitPreservesOrderAndOrdinals(t *testing.T) {
	ex := &fakeExtractor{pages: map[int]string{
		0: "ページ1", 1: "", 2: "ページ3",
	}}
	s := NewSplitter(ex, logger.NewTestLogger())

	units := s.Split(context.Background(), "bundle.pdf", 3, models.BundleDecision{IsBundle: true, Family: models.BundleLocal}, false)

	require.Len(t, units, 3)
	for i, unit := range units {
		assert.Equal(t, i, unit.PageIndex)
		assert.Equal(t, i+1, unit.Ordinal)
		assert.Equal(t, "bundle.pdf", unit.SourceFile)
	}
	// Blank page 2 is still emitted.
	assert.Empty(t, units[1].Text)
	assert.False(t, units[1].Unreadable)
}

func TestSplitIsolatesUnreadablePages(t *testing.T) {
	ex := &fakeExtractor{
		pages:    map[int]string{0: "ok", 2: "ok"},
		failures: map[int]error{1: fmt.Errorf("damaged xref")},
	}
	s := NewSplitter(ex, logger.NewTestLogger())

	units := s.Split(context.Background(), "bundle.pdf", 3, models.BundleDecision{IsBundle: true}, false)

	require.Len(t, units, 3)
	assert.True(t, units[1].Unreadable)
	assert.Contains(t, units[1].ExtractErr, "damaged xref")
	assert.False(t, units[0].Unreadable)
	assert.False(t, units[2].Unreadable)
}

func TestSplitSkipsNonBundleWithoutForce(t *testing.T) {
	s := NewSplitter(&fakeExtractor{}, logger.NewTestLogger())

	units := s.Split(context.Background(), "single.pdf", 4, models.BundleDecision{IsBundle: false}, false)

	assert.Nil(t, units)
}

func TestForcedSplitIgnoresDecision(t *testing.T) {
	ex := &fakeExtractor{pages: map[int]string{0: "a", 1: "b"}}
	s := NewSplitter(ex, logger.NewTestLogger())

	units := s.Split(context.Background(), "single.pdf", 2, models.BundleDecision{IsBundle: false}, true)

	require.Len(t, units, 2)
	assert.Equal(t, "a", units[0].Text)
	assert.Equal(t, "b", units[1].Text)
}
