package state

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", "state.json"))
}

func TestLoadMissingFile(t *testing.T) {
	snap := testStore(t).Load()

	assert.Nil(t, snap.LastCheck)
	require.NotNil(t, snap.Repos)
	require.NotNil(t, snap.Packages)
	assert.Empty(t, snap.Repos)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	snap := NewStore(path).Load()
	assert.NotNil(t, snap.Repos)
	assert.NotNil(t, snap.Packages)
	assert.Empty(t, snap.Repos)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := testStore(t)

	last := FormatTime(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	patch := Snapshot{
		LastCheck: &last,
		Repos: map[string]RepoSnapshot{
			"widget": {Stars: Int(10), Forks: Int(2)},
		},
		Packages: map[string]PackageSnapshot{
			"TestModule": {Downloads: Int(100)},
		},
	}
	require.NoError(t, store.Save(patch))

	snap := store.Load()
	require.NotNil(t, snap.LastCheck)
	assert.Equal(t, "2026-08-01T12:00:00Z", *snap.LastCheck)
	require.Contains(t, snap.Repos, "widget")
	assert.Equal(t, 10, *snap.Repos["widget"].Stars)
	assert.Equal(t, 2, *snap.Repos["widget"].Forks)
	assert.Equal(t, 100, *snap.Packages["TestModule"].Downloads)
}

func TestSaveMergesWithExisting(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Save(Snapshot{
		Repos: map[string]RepoSnapshot{
			"old-repo": {Stars: Int(5), Forks: Int(1)},
			"shared":   {Stars: Int(7), Forks: Int(3)},
		},
	}))

	require.NoError(t, store.Save(Snapshot{
		Repos: map[string]RepoSnapshot{
			"shared":   {Stars: Int(9), Forks: Int(3)},
			"new-repo": {Stars: Int(1), Forks: Int(0)},
		},
	}))

	snap := store.Load()
	// Union of keys, with patched values winning on conflict.
	require.Len(t, snap.Repos, 3)
	assert.Equal(t, 5, *snap.Repos["old-repo"].Stars)
	assert.Equal(t, 9, *snap.Repos["shared"].Stars)
	assert.Equal(t, 1, *snap.Repos["new-repo"].Stars)
}

func TestSaveDoesNotTouchOtherSections(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Save(Snapshot{
		Packages: map[string]PackageSnapshot{"TestModule": {Downloads: Int(100)}},
	}))
	require.NoError(t, store.Save(Snapshot{
		Repos: map[string]RepoSnapshot{"widget": {Stars: Int(1), Forks: Int(0)}},
	}))

	snap := store.Load()
	require.Contains(t, snap.Packages, "TestModule")
	assert.Equal(t, 100, *snap.Packages["TestModule"].Downloads)
}

func TestFileStartsWithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path)
	require.NoError(t, store.Save(Snapshot{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
}

func TestLoadStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"last_check":null,"repos":{"widget":{"stars":4,"forks":1}},"psgallery":{}}`)...)
	require.NoError(t, os.WriteFile(path, content, 0644))

	snap := NewStore(path).Load()
	require.Contains(t, snap.Repos, "widget")
	assert.Equal(t, 4, *snap.Repos["widget"].Stars)
}

func TestPartialEntryKeepsNilFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"repos":{"widget":{"stars":4}}}`), 0644))

	snap := NewStore(path).Load()
	entry := snap.Repos["widget"]
	require.NotNil(t, entry.Stars)
	assert.Equal(t, 4, *entry.Stars)
	assert.Nil(t, entry.Forks, "missing sub-field must stay nil, not zero")
}

func TestReset(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(Snapshot{Repos: map[string]RepoSnapshot{"widget": {Stars: Int(1)}}}))
	require.NoError(t, store.Reset())
	assert.Empty(t, store.Load().Repos)

	// Resetting an already-missing file is fine.
	require.NoError(t, store.Reset())
}
