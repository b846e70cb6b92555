package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPeriod(t *testing.T) {
	cases := map[string]string{
		"事業年度 令和7年5月分 法人事業税":   "2505",
		"令和 7年 5月 申告分":          "2505",
		"2025年8月課税期間":           "2508",
		"対象期間 2025/08 まで":       "2508",
		"期限 2025-8":             "2508",
		"納付情報発行結果":              "",
		"令和7年13月":               "",
		"":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, detectPeriod(in), "input %q", in)
	}
}

func TestBuildFileName(t *testing.T) {
	assert.Equal(t, "0003_受信通知_2508.pdf", buildFileName("0003", "受信通知", "2508"))
	assert.Equal(t, "9999_未分類.pdf", buildFileName("9999", "未分類", ""))
	assert.Equal(t, "5001_決算書／前期.pdf", buildFileName("5001", "決算書/前期", ""))
}

func TestNameAllocatorSuffixesCollisions(t *testing.T) {
	a := newNameAllocator()

	assert.Equal(t, "1013_受信通知_2508.pdf", a.allocate("1013_受信通知_2508.pdf"))
	assert.Equal(t, "1013_受信通知_2508_2.pdf", a.allocate("1013_受信通知_2508.pdf"))
	assert.Equal(t, "1013_受信通知_2508_3.pdf", a.allocate("1013_受信通知_2508.pdf"))
}

func TestIsBlankPage(t *testing.T) {
	assert.True(t, isBlankPage(""))
	assert.True(t, isBlankPage("  1  "))
	// Short but carries an essential word.
	assert.False(t, isBlankPage("納付書"))
	// Long enough to be content regardless of keywords.
	assert.False(t, isBlankPage("あいうえおかきくけこさしすせそたちつてとなにぬねのはひふへほまみむめもやゆよらりるれろわをんABCDEFGHIJKLMNOPQR"))
}
