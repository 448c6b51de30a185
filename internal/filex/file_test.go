package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "a", "b", "session.db")

	got, err := EnsureParentDir(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "a", "b"), got)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir", "x")

	first, err := EnsureParentDir(path)
	require.NoError(t, err)
	second, err := EnsureParentDir(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureParentDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "dir"), []byte("x"), 0o600))

	_, err := EnsureParentDir(filepath.Join(tmp, "dir", "session.db"))
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/.echolater/session.db")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".echolater", "session.db"), got)

	got, err = ExpandHome("/tmp/x.db")
	require.NoError(t, err)
	require.Equal(t, "/tmp/x.db", got)

	got, err = ExpandHome("~user/x")
	require.NoError(t, err)
	require.Equal(t, "~user/x", got)
}

func TestReadLimited(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "memo.webm")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o600))

	data, err := ReadLimited(path, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("12345"), data)

	_, err = ReadLimited(path, 4)
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = ReadLimited(tmp, 10)
	require.Error(t, err)

	_, err = ReadLimited(filepath.Join(tmp, "missing"), 10)
	require.ErrorIs(t, err, os.ErrNotExist)
}
