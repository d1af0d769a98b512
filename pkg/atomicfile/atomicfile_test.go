package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.txt")

	ok, err := Exists(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Create(path, FileModeReadOnly))
	ok, err = Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.txt")
	require.NoError(t, os.WriteFile(path, []byte("1,10\n"), FileModeReadOnly))

	require.NoError(t, Create(path, FileModeReadOnly))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteFileReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.dat")
	require.NoError(t, os.WriteFile(path, []byte("old"), FileModeReadOnly))

	require.NoError(t, WriteFile(path, []byte("new"), FileModePrivate))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileModePrivate, info.Mode().Perm())

	// 不留下暫存檔
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileMissingDirectoryKeepsNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "accounts.dat")

	err := WriteFile(path, []byte("data"), FileModeReadOnly)
	assert.Error(t, err)

	ok, _ := Exists(path)
	assert.False(t, ok)
}
