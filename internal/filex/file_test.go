package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesNestedDirs(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "a", "b", "session.db")

	dir, expanded, err := EnsureParentDir(target)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "a", "b"), dir)
	require.Equal(t, target, expanded)

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "x", "session.db")

	_, _, err := EnsureParentDir(target)
	require.NoError(t, err)
	_, _, err = EnsureParentDir(target)
	require.NoError(t, err)
}

func TestEnsureParentDir_BareFileName(t *testing.T) {
	dir, expanded, err := EnsureParentDir("session.db")
	require.NoError(t, err)
	require.Equal(t, ".", dir)
	require.Equal(t, "session.db", expanded)
}

func TestEnsureParentDir_FileInTheWay(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, _, err := EnsureParentDir(filepath.Join(blocker, "session.db"))
	require.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}

	got, err := ExpandHome("~/.dispersed/session.db")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".dispersed", "session.db"), got)

	got, err = ExpandHome("/abs/session.db")
	require.NoError(t, err)
	require.Equal(t, "/abs/session.db", got)
}
