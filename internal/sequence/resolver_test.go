package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxkit/tax-document-renamer/internal/jobctx"
	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	ctx, err := jobctx.New("run-1", "2508", []models.JurisdictionSlot{
		{Index: 1, Prefecture: "東京都"},
		{Index: 2, Prefecture: "愛知県", Municipality: "蒲郡市"},
		{Index: 3, Prefecture: "福岡県", Municipality: "福岡市"},
	})
	require.NoError(t, err)
	return NewResolver(ctx, logger.NewTestLogger())
}

func receipt(code string) models.ClassificationResult {
	return models.ClassificationResult{
		Code:   code,
		Label:  "受信通知",
		Domain: models.DomainForCode(code),
	}
}

func TestPrefectureReceiptSlotNumbering(t *testing.T) {
	r := testResolver(t)

	cases := []struct {
		text string
		want string
	}{
		{"東京都港都税事務所 申告受付完了通知", "1003"},
		{"愛知県東三河県税事務所 申告受付完了通知", "1013"},
		{"福岡県西福岡県税事務所 申告受付完了通知", "1023"},
	}
	for _, tc := range cases {
		got, err := r.Resolve(receipt("1003"), tc.text)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Code, "text %q", tc.text)
	}
}

func TestMunicipalityReceiptSkipsSpecialSlot(t *testing.T) {
	r := testResolver(t)

	// Slot 2 becomes the first municipal position because slot 1 has no
	// municipal layer.
	got, err := r.Resolve(receipt("2003"), "愛知県蒲郡市 法人市民税 申告受付完了通知")
	require.NoError(t, err)
	assert.Equal(t, "2003", got.Code)

	got, err = r.Resolve(receipt("2003"), "福岡県福岡市 法人市民税 申告受付完了通知")
	require.NoError(t, err)
	assert.Equal(t, "2013", got.Code)
}

func TestMunicipalityReceiptNeverNumbersSpecialJurisdiction(t *testing.T) {
	r := testResolver(t)

	got, err := r.Resolve(receipt("2003"), "東京都港区 法人市民税 申告受付完了通知")
	require.NoError(t, err)
	assert.Equal(t, "2003", got.Code)
	require.NotEmpty(t, got.Evidence)
	assert.Contains(t, got.Evidence[len(got.Evidence)-1], "resolution failed")
}

func TestPaymentCodesStayFixed(t *testing.T) {
	r := testResolver(t)

	got, err := r.Resolve(receipt("1004"), "愛知県 納付情報発行結果")
	require.NoError(t, err)
	assert.Equal(t, "1004", got.Code)

	// A second prefecture payment in the same run keeps the same code.
	got, err = r.Resolve(receipt("1004"), "福岡県 納付情報発行結果")
	require.NoError(t, err)
	assert.Equal(t, "1004", got.Code)

	got, err = r.Resolve(receipt("2004"), "福岡県福岡市 納付情報発行結果")
	require.NoError(t, err)
	assert.Equal(t, "2004", got.Code)
}

func TestMunicipalPaymentSuppressedForSpecialJurisdiction(t *testing.T) {
	r := testResolver(t)

	got, err := r.Resolve(receipt("2004"), "東京都 納付情報発行結果")
	require.NoError(t, err)
	assert.Equal(t, "2004", got.Code)
	require.NotEmpty(t, got.Evidence)
	assert.Contains(t, got.Evidence[len(got.Evidence)-1], "resolution failed")
}

func TestUnknownJurisdictionKeepsBaseCode(t *testing.T) {
	r := testResolver(t)

	got, err := r.Resolve(receipt("1003"), "大阪府大阪市 申告受付完了通知")
	require.NoError(t, err)
	assert.Equal(t, "1003", got.Code)
	assert.Empty(t, got.OriginalCode)
	require.NotEmpty(t, got.Evidence)
	assert.Contains(t, got.Evidence[len(got.Evidence)-1], "resolution failed")
}

func TestResolveIsIdempotentPerJurisdiction(t *testing.T) {
	r := testResolver(t)

	first, err := r.Resolve(receipt("1003"), "愛知県東三河県税事務所")
	require.NoError(t, err)
	second, err := r.Resolve(receipt("1003"), "愛知県西三河県税事務所")
	require.NoError(t, err)

	assert.Equal(t, "1013", first.Code)
	assert.Equal(t, first.Code, second.Code)
}

func TestResolveKeepsOriginalCode(t *testing.T) {
	r := testResolver(t)

	got, err := r.Resolve(receipt("1003"), "愛知県東三河県税事務所")
	require.NoError(t, err)
	assert.Equal(t, "1013", got.Code)
	assert.Equal(t, "1003", got.OriginalCode)
}

func TestNonJurisdictionCodesPassThrough(t *testing.T) {
	r := testResolver(t)

	in := models.ClassificationResult{Code: "0003", Label: "受信通知", Domain: models.DomainNationalTax, Confidence: 1.0}
	got, err := r.Resolve(in, "法人税 受信通知")
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestSpecialJurisdictionMustBeSlotOne(t *testing.T) {
	ctx, err := jobctx.New("run-2", "2508", []models.JurisdictionSlot{
		{Index: 1, Prefecture: "愛知県", Municipality: "蒲郡市"},
		{Index: 2, Prefecture: "東京都"},
	})
	require.NoError(t, err)
	r := NewResolver(ctx, logger.NewTestLogger())

	_, err = r.Resolve(receipt("1003"), "愛知県東三河県税事務所")
	assert.ErrorIs(t, err, ErrSpecialSlotOrder)
}

func TestExtractJurisdiction(t *testing.T) {
	pref, city := extractJurisdiction("愛知県蒲郡市 法人市民税 申告受付完了通知")
	assert.Equal(t, "愛知県", pref)
	assert.Contains(t, city, "蒲郡市")

	pref, city = extractJurisdiction("東京都港都税事務所")
	assert.Equal(t, "東京都", pref)
	assert.Empty(t, city)

	pref, city = extractJurisdiction("no jurisdiction here")
	assert.Empty(t, pref)
	assert.Empty(t, city)
}
