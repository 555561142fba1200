package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("LAZYHG_TEST_DIR", "/tmp/lh")

	got, err := ExpandPath("~/logs/debug.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs", "debug.log"), got)

	got, err = ExpandPath("$LAZYHG_TEST_DIR/debug.log")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/lh/debug.log", got)
}

func TestIsPathWithin(t *testing.T) {
	assert.True(t, IsPathWithin("/a/b", "/a/b"))
	assert.True(t, IsPathWithin("/a/b", "/a/b/c/d"))
	assert.False(t, IsPathWithin("/a/b", "/a"))
	assert.False(t, IsPathWithin("/a/b", "/a/bc"))
	assert.False(t, IsPathWithin("/a/b", "/a/b/../c"))
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path) //nolint:gosec
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(DefaultFilePerms), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
