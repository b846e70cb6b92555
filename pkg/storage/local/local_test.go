package local

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

func TestStoreAndGet(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	key, err := s.Store(context.Background(), strings.NewReader("renamed pdf bytes"), "run-1/0003_受信通知_2508.pdf")
	require.NoError(t, err)
	assert.Equal(t, "run-1/0003_受信通知_2508.pdf", key)

	rc, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "renamed pdf bytes", string(data))
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	_, err = s.Store(context.Background(), strings.NewReader("x"), "../outside.pdf")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	_, err = s.Store(context.Background(), strings.NewReader("x"), "a.pdf")
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), "a.pdf"))

	_, err = s.Get(context.Background(), "a.pdf")
	assert.Error(t, err)
}

func TestCleanupBefore(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	_, err = s.Store(context.Background(), strings.NewReader("x"), "old.pdf")
	require.NoError(t, err)

	// Everything is newer than a threshold in the past.
	require.NoError(t, s.CleanupBefore(context.Background(), time.Now().Add(-time.Hour)))
	_, err = s.Get(context.Background(), "old.pdf")
	assert.NoError(t, err)

	// A future threshold sweeps it away.
	require.NoError(t, s.CleanupBefore(context.Background(), time.Now().Add(time.Hour)))
	_, err = s.Get(context.Background(), "old.pdf")
	assert.Error(t, err)
}
