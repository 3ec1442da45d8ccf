package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotationBySize(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "size.log")

	writer, err := NewRotatingWriter(logPath, RotationConfig{MaxSize: 256, MaxBackups: 10})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, err := writer.Write([]byte(strings.Repeat("x", 50) + "\n"))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, writer.Close())

	rotated, err := RotatedFiles(logPath)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated)

	info, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(256))
}

func TestRotationMaxBackups(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "backups.log")

	writer, err := NewRotatingWriter(logPath, RotationConfig{MaxSize: 64, MaxBackups: 2})
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		_, err := writer.Write([]byte(strings.Repeat("y", 40) + "\n"))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, writer.Close())

	rotated, err := RotatedFiles(logPath)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rotated), 2)
}

func TestRotatedFilesIgnoresUnrelated(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "modwatch.log")

	for _, name := range []string{
		"modwatch.log",
		"modwatch.2025-01-01-000000.000.log",
		"other.2025-01-01-000000.000.log",
		"modwatch.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	rotated, err := RotatedFiles(logPath)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "modwatch.2025-01-01-000000.000.log")}, rotated)
}

func TestWriteAfterCloseFails(t *testing.T) {
	writer, err := NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = writer.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.NoError(t, writer.Close())
}
