package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/Aman-CERP/findex/internal/errors"
)

func TestWriterLock_ExcludesSecondWriter(t *testing.T) {
	// Given: one writer holding the lock
	dir := t.TempDir()
	first := NewWriterLock(dir)
	require.NoError(t, first.TryLock())
	defer func() { _ = first.Unlock() }()

	// When: another writer tries the same directory
	second := NewWriterLock(dir)
	err := second.TryLock()

	// Then
	require.Error(t, err)
	assert.Equal(t, ferrors.ErrCodeIndexLocked, ferrors.GetCode(err))
	assert.False(t, second.IsLocked())
}

func TestWriterLock_ReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	first := NewWriterLock(dir)
	require.NoError(t, first.TryLock())
	assert.True(t, first.IsLocked())
	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock(), "unlock twice is fine")

	second := NewWriterLock(dir)
	require.NoError(t, second.TryLock())
	assert.NoError(t, second.Unlock())
}

func TestWriterLock_CreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/data"
	l := NewWriterLock(dir)

	require.NoError(t, l.TryLock())
	defer func() { _ = l.Unlock() }()
	assert.FileExists(t, l.Path())
}
