package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInventory() *types.Inventory {
	inv := types.NewInventory()
	inv.Set("FS25_Tractor.zip", types.ModRecord{Title: "Tractor", Version: "92", Author: "Giants", Filesize: 1048576})
	inv.Set("Broken.zip", types.Fallback("Broken.zip", 12))
	inv.Set("FS25_Plough.zip", types.ModRecord{Title: "Plough", Version: "1.0", Author: types.Unknown, Filesize: 0})
	return inv
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "mod_state.json"))

	inv := store.Load()
	require.NotNil(t, inv)
	assert.Equal(t, 0, inv.Len())
}

func TestLoad_CorruptFileIsEmpty(t *testing.T) {
	tests := map[string]string{
		"garbage":           "not json at all",
		"truncated":         `{"a.zip": {"title": "A"`,
		"wrong shape":       `["a.zip"]`,
		"negative filesize": `{"a.zip": {"title":"A","version":"1","author":"X","filesize":-5}}`,
		"empty file":        "",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mod_state.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			inv := New(path).Load()
			assert.Equal(t, 0, inv.Len())
		})
	}
}

func TestLoad_NormalizesMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Old.zip": {"filesize": 10}}`), 0o644))

	inv := New(path).Load()
	rec, ok := inv.Get("Old.zip")
	require.True(t, ok)
	assert.Equal(t, types.Fallback("Old.zip", 10), rec)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nested", "mod_state.json"))
	inv := sampleInventory()

	require.NoError(t, store.Save(inv))

	loaded := store.Load()
	assert.True(t, inv.Equal(loaded))
	assert.NotSame(t, inv, loaded)
}

func TestSave_EmptyInventory(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "mod_state.json"))

	require.NoError(t, store.Save(types.NewInventory()))
	require.NoError(t, store.Save(nil))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestSave_WritesIndentedJSON(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "mod_state.json"))
	require.NoError(t, store.Save(sampleInventory()))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"FS25_Tractor.zip\": {\n    \"title\": \"Tractor\","))
}

func TestSave_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "mod_state.json"))

	require.NoError(t, store.Save(sampleInventory()))

	next := types.NewInventory()
	next.Set("Only.zip", types.ModRecord{Title: "Only", Version: "1", Author: "A", Filesize: 1})
	require.NoError(t, store.Save(next))

	assert.True(t, next.Equal(store.Load()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mod_state.json", entries[0].Name())
}

func TestSave_FailureKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod_state.json")
	store := New(path)
	require.NoError(t, store.Save(sampleInventory()))

	// A directory in place of the snapshot makes the final rename fail.
	blocked := New(filepath.Join(dir, "blocked"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blocked", "child"), 0o755))
	assert.Error(t, blocked.Save(sampleInventory()))

	assert.True(t, sampleInventory().Equal(store.Load()))
	removed, err := blocked.CleanTemp()
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "mod_state.json"))

	info, err := store.Stat()
	require.NoError(t, err)
	assert.False(t, info.Exists)

	require.NoError(t, store.Save(sampleInventory()))
	info, err = store.Stat()
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.True(t, info.Valid)
	assert.Equal(t, 3, info.Mods)
	assert.Equal(t, int64(1048576+12), info.TotalSize)
	assert.False(t, info.ModTime.IsZero())

	require.NoError(t, os.WriteFile(store.Path(), []byte("junk"), 0o644))
	info, err = store.Stat()
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.False(t, info.Valid)
}

func TestRemoveAndCleanTemp(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "mod_state.json"))
	require.NoError(t, store.Save(sampleInventory()))

	stale := filepath.Join(dir, ".tmp-mod_state.json-12345")
	require.NoError(t, os.WriteFile(stale, []byte("{"), 0o644))
	unrelated := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))

	removed, err := store.CleanTemp()
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, removed)
	assert.FileExists(t, unrelated)

	require.NoError(t, store.Remove())
	require.NoError(t, store.Remove())
	assert.NoFileExists(t, store.Path())
}

func TestLock(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state", "mod_state.json"))

	first, err := store.Lock()
	require.NoError(t, err)

	_, err = store.Lock()
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())

	again, err := store.Lock()
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
