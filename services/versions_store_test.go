package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archview/archview/resolve"
)

func newTestStore(t *testing.T) *VersionStore {
	t.Helper()
	store, err := NewVersionStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func testVersion(id, prompt string) *DiagramVersion {
	return &DiagramVersion{
		ID:            id,
		Prompt:        prompt,
		Explanation:   "explanation for " + id,
		DiagramSource: "flowchart TD\nA --> B",
		Nodes:         []resolve.NodeRecord{{ID: "a", Label: "A"}},
		CreatedAt:     time.Now().UTC(),
	}
}

func TestVersionStoreAppendAndList(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append(testVersion("v1", "first")))
	require.NoError(t, store.Append(testVersion("v2", "second")))
	require.NoError(t, store.Append(testVersion("v3", "third")))

	versions, err := store.List()
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "v1", versions[0].ID, "creation order preserved")
	assert.Equal(t, "v3", versions[2].ID)
	assert.Equal(t, "first", versions[0].Prompt)
	require.Len(t, versions[0].Nodes, 1)
	assert.Equal(t, "a", versions[0].Nodes[0].ID)
}

func TestVersionStoreGet(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Append(testVersion("abc-123", "p")))

	t.Run("Found", func(t *testing.T) {
		v, err := store.Get("abc-123")
		require.NoError(t, err)
		assert.Equal(t, "abc-123", v.ID)
	})
	t.Run("Not Found", func(t *testing.T) {
		_, err := store.Get("missing")
		assert.ErrorIs(t, err, ErrVersionNotFound)
	})
}

func TestVersionStoreLatest(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Latest()
	assert.ErrorIs(t, err, ErrVersionNotFound, "empty store has no latest")

	require.NoError(t, store.Append(testVersion("old", "p1")))
	require.NoError(t, store.Append(testVersion("new", "p2")))
	v, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, "new", v.ID)
}

func TestVersionStoreRejectsEmptyID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Append(&DiagramVersion{}))
	assert.Error(t, store.Append(nil))
}

func TestVersionStoreIgnoresPartialWrites(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Append(testVersion("v1", "p")))

	// A leftover temp file from an interrupted write must not surface in
	// listings or shift the sequence numbering.
	stray := filepath.Join(store.basePath, "version-123456.tmp")
	require.NoError(t, os.WriteFile(stray, []byte(`{"id":"partial`), 0644))

	versions, err := store.List()
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].ID)

	require.NoError(t, store.Append(testVersion("v2", "p2")))
	v, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, "v2", v.ID)
}

func TestVersionStoreSanitizesIDs(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Append(testVersion("../weird id", "p")))
	v, err := store.Get("../weird id")
	require.NoError(t, err)
	assert.Equal(t, "../weird id", v.ID, "stored content keeps the original id")
}
