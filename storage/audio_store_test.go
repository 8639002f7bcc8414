package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustExist(t *testing.T, store *AudioStore, name string) bool {
	t.Helper()
	ok, err := store.Exists(name)
	require.NoError(t, err)
	return ok
}

func TestEnsureDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads", "audio")
	store := NewAudioStore(dir)

	require.NoError(t, store.EnsureDir())
	require.NoError(t, store.EnsureDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestTempCommitCycle(t *testing.T) {
	store := NewAudioStore(t.TempDir())

	f, err := store.CreateTemp("demo-1")
	require.NoError(t, err)
	_, err = f.Write([]byte("audio"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// The temp file is visible, the final name is not yet.
	assert.True(t, mustExist(t, store, "demo-1"+PartSuffix))
	assert.False(t, mustExist(t, store, "Song-demo-1.mp3"))

	require.NoError(t, store.Commit("demo-1", "Song-demo-1.mp3"))
	assert.False(t, mustExist(t, store, "demo-1"+PartSuffix))
	assert.True(t, mustExist(t, store, "Song-demo-1.mp3"))

	r, err := store.Open("Song-demo-1.mp3")
	require.NoError(t, err)
	defer r.Close()
	buf := make([]byte, 16)
	n, _ := r.Read(buf)
	assert.Equal(t, "audio", string(buf[:n]))
}

func TestDiscard(t *testing.T) {
	store := NewAudioStore(t.TempDir())

	f, err := store.CreateTemp("demo-2")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, store.Discard("demo-2"))
	assert.False(t, mustExist(t, store, "demo-2"+PartSuffix))

	// Discarding a temp file that never existed is fine.
	require.NoError(t, store.Discard("never-created"))
}

func TestCreateTempRefusesDuplicate(t *testing.T) {
	store := NewAudioStore(t.TempDir())

	f, err := store.CreateTemp("demo-3")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = store.CreateTemp("demo-3")
	assert.Error(t, err)
}

func TestRemoveAndList(t *testing.T) {
	store := NewAudioStore(t.TempDir())

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "a.mp3"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "b.mp3"), []byte("b"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "subdir"), 0755))

	names, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.mp3", "b.mp3"}, names)

	require.NoError(t, store.Remove("a.mp3"))
	assert.False(t, mustExist(t, store, "a.mp3"))
	assert.Error(t, store.Remove("a.mp3"))
}

func TestExistsReportsStatFailure(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits do not apply to root")
	}
	store := NewAudioStore(filepath.Join(t.TempDir(), "audio"))
	require.NoError(t, store.EnsureDir())
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "a.mp3"), []byte("a"), 0644))

	require.NoError(t, os.Chmod(store.Dir(), 0o000))
	t.Cleanup(func() { os.Chmod(store.Dir(), 0o755) })

	_, err := store.Exists("a.mp3")
	assert.Error(t, err)
}

func TestValidName(t *testing.T) {
	valid := []string{"Song-abc.mp3", "a", "weird file.mp3", "dots..ok.mp3"}
	for _, name := range valid {
		assert.True(t, ValidName(name), name)
	}

	invalid := []string{"", ".", "..", "a/b.mp3", `a\b.mp3`, "../escape.mp3", "/abs.mp3"}
	for _, name := range invalid {
		assert.False(t, ValidName(name), name)
	}
}
