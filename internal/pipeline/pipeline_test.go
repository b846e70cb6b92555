package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxkit/tax-document-renamer/internal/bundle"
	"github.com/taxkit/tax-document-renamer/internal/catalog"
	"github.com/taxkit/tax-document-renamer/internal/classify"
	"github.com/taxkit/tax-document-renamer/internal/extract"
	"github.com/taxkit/tax-document-renamer/internal/jobctx"
	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/sequence"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

type fakeExtractor struct {
	pages []string
}

func (f *fakeExtractor) PageCount(context.Context, string) (int, error) { return len(f.pages), nil }

func (f *fakeExtractor) ExtractPage(_ context.Context, path string, i int) (string, error) {
	if i < 0 || i >= len(f.pages) {
		return "", fmt.Errorf("page %d out of range for %s", i, path)
	}
	return f.pages[i], nil
}

func (f *fakeExtractor) ExtractDocument(context.Context, string) ([]string, error) {
	return f.pages, nil
}

func (f *fakeExtractor) Close() error { return nil }

type fakeFactory struct {
	docs map[string][]string
}

func (f *fakeFactory) ForFile(_ context.Context, path string) (extract.Extractor, error) {
	pages, ok := f.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedFile, path)
	}
	return &fakeExtractor{pages: pages}, nil
}

type fakeSink struct {
	mu        sync.Mutex
	finalized map[string]string // final name -> source path
}

func newFakeSink() *fakeSink {
	return &fakeSink{finalized: make(map[string]string)}
}

func (s *fakeSink) Finalize(_ context.Context, sourcePath, finalName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized[finalName] = sourcePath
	return nil
}

func newTestPipeline(t *testing.T, docs map[string][]string, sink Sink) *Pipeline {
	t.Helper()
	log := logger.NewTestLogger()
	return New(
		classify.New(catalog.Default(), log),
		bundle.NewDetector(bundle.DefaultConfig(), log),
		&fakeFactory{docs: docs},
		sink,
		log,
		2,
	)
}

func threeSlotContext(t *testing.T) *jobctx.Context {
	t.Helper()
	jc, err := jobctx.New("run-1", "2508", []models.JurisdictionSlot{
		{Index: 1, Prefecture: "東京都"},
		{Index: 2, Prefecture: "愛知県", Municipality: "蒲郡市"},
		{Index: 3, Prefecture: "福岡県", Municipality: "福岡市"},
	})
	require.NoError(t, err)
	return jc
}

func TestProcessRunLocalBundle(t *testing.T) {
	pages := []string{
		"東京都港都税事務所 法人二税 事業税 申告受付完了通知 地方税電子申告 受付番号 1003",
		"愛知県東三河県税事務所 法人事業税・特別法人事業税 申告受付完了通知 地方税電子申告",
		"福岡県西福岡県税事務所 法人事業税 申告受付完了通知",
		"愛知県蒲郡市役所 法人市民税 申告受付完了通知 地方税電子申告",
		"福岡県福岡市役所 法人市民税 申告受付完了通知",
		"愛知県 法人事業税 納付情報発行結果 地方税共同機構 ペイジー納付",
		"福岡県福岡市 法人市民税 納付情報発行結果 地方税共同機構",
		"",
	}
	sink := newFakeSink()
	p := newTestPipeline(t, map[string][]string{"local_tax_bundle.pdf": pages}, sink)
	jc := threeSlotContext(t)

	records, err := p.ProcessRun(context.Background(), jc, []string{"local_tax_bundle.pdf"}, RunOptions{})
	require.NoError(t, err)
	require.Len(t, records, 8)

	wantNames := []string{
		"1003_受信通知_2508.pdf",
		"1013_受信通知_2508.pdf",
		"1023_受信通知_2508.pdf",
		"2003_受信通知_2508.pdf",
		"2013_受信通知_2508.pdf",
		"1004_納付情報_2508.pdf",
		"2004_納付情報_2508.pdf",
	}
	for i, want := range wantNames {
		assert.Equal(t, want, records[i].FinalName, "page %d", i)
		assert.False(t, records[i].Failed, "page %d", i)
		assert.Equal(t, i, records[i].PageIndex, "page %d", i)
	}
	// No 2000-series slot code is ever handed to the slot-1 jurisdiction.
	for _, rec := range records {
		assert.NotEqual(t, "2023", rec.FinalCode)
	}

	// The trailing separator sheet is skipped, not failed.
	assert.True(t, records[7].Skipped)
	assert.Equal(t, "blank page", records[7].SkipReason)

	assert.Len(t, sink.finalized, 7)
	stats := jc.StatsSnapshot()
	assert.Equal(t, 8, stats.TotalUnits)
	assert.Equal(t, 7, stats.Renamed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.BundleSplits)
}

func TestProcessRunSingleDocument(t *testing.T) {
	sink := newFakeSink()
	p := newTestPipeline(t, map[string][]string{
		"ledger.pdf": {"総勘定元帳 株式会社サンプル 現金 普通預金 売掛金 買掛金 摘要 残高"},
	}, sink)
	jc := threeSlotContext(t)

	records, err := p.ProcessRun(context.Background(), jc, []string{"ledger.pdf"}, RunOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "5002", records[0].FinalCode)
	assert.Equal(t, "5002_総勘定元帳_2508.pdf", records[0].FinalName)
	assert.Equal(t, models.PeriodSourceUI, records[0].PeriodSource)
	assert.Equal(t, 0, jc.StatsSnapshot().BundleSplits)
}

func TestProcessRunProtectedCodeWithoutPeriodFails(t *testing.T) {
	sink := newFakeSink()
	p := newTestPipeline(t, map[string][]string{
		"assets.pdf": {"固定資産台帳 取得価額 耐用年数 償却方法 定率法"},
	}, sink)
	jc, err := jobctx.New("run-2", "", nil)
	require.NoError(t, err)

	records, err := p.ProcessRun(context.Background(), jc, []string{"assets.pdf"}, RunOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.True(t, records[0].Failed)
	assert.Contains(t, records[0].Error, "user-confirmed period")
	assert.Equal(t, "6001", records[0].FinalCode)
	assert.Empty(t, sink.finalized)
	assert.Equal(t, 1, jc.StatsSnapshot().Failed)
}

func TestProcessRunAbortsOnSlotOrderViolation(t *testing.T) {
	sink := newFakeSink()
	p := newTestPipeline(t, map[string][]string{
		"receipt.pdf": {"愛知県東三河県税事務所 法人事業税 申告受付完了通知"},
	}, sink)
	jc, err := jobctx.New("run-3", "2508", []models.JurisdictionSlot{
		{Index: 1, Prefecture: "愛知県", Municipality: "蒲郡市"},
		{Index: 2, Prefecture: "東京都"},
	})
	require.NoError(t, err)

	_, err = p.ProcessRun(context.Background(), jc, []string{"receipt.pdf"}, RunOptions{})
	assert.ErrorIs(t, err, sequence.ErrSpecialSlotOrder)
}

func TestProcessRunRecordsFileFailure(t *testing.T) {
	sink := newFakeSink()
	p := newTestPipeline(t, map[string][]string{}, sink)
	jc := threeSlotContext(t)

	records, err := p.ProcessRun(context.Background(), jc, []string{"missing.pdf"}, RunOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Failed)
	assert.Equal(t, 1, jc.StatsSnapshot().Failed)
}
