package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldWidth(t *testing.T) {
	assert.Equal(t, "2508 ABCxyz", FoldWidth("２５０８　ＡＢＣｘｙｚ"))
	assert.Equal(t, "東京都", FoldWidth("東京都"))
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "受信通知 法人税", Normalize("  受信通知 \n\t 法人税  "))
	assert.Equal(t, "", Normalize(""))
}
