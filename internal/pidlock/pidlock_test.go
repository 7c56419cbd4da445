package pidlock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifazk/chithi/internal/errors"
)

func TestAcquireWritesPid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "task.pid")

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquireContention(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.pid")

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	_, err = Acquire(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.WouldBlock))
}

func TestReleaseTruncatesAndUnlocks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.pid")

	lock, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	lock2, err := Acquire(path)
	require.NoError(t, err)
	lock2.Release()
}
