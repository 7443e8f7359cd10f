package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almanac/server/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 1, 8, 18, 0, 0, 0, time.UTC)
	doc := storage.Document{
		"ownerID":    "alice",
		"path":       "work/meetings",
		"startStamp": start,
		"endStamp":   start.Add(3 * time.Hour),
		"complete":   false,
	}
	require.NoError(t, store.Set(ctx, storage.Events, "e1", doc, false))

	got, err := store.Get(ctx, storage.Events, "e1")
	require.NoError(t, err)
	assert.Equal(t, "work/meetings", got["path"])
	assert.Equal(t, false, got["complete"])

	// Temporal fields come back as time.Time after the JSON round trip
	gotStart, ok := got["startStamp"].(time.Time)
	require.True(t, ok, "startStamp is %T, want time.Time", got["startStamp"])
	assert.True(t, gotStart.Equal(start))
}

func TestStore_GetMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), storage.Forms, "missing")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
}

func TestStore_MergeSemantics(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, storage.Forms, "f1",
		storage.Document{"ownerID": "alice", "path": "gym"}, false))
	require.NoError(t, store.Set(ctx, storage.Forms, "f1",
		storage.Document{"includeStart": true}, true))

	got, err := store.Get(ctx, storage.Forms, "f1")
	require.NoError(t, err)
	assert.Equal(t, "gym", got["path"])
	assert.Equal(t, true, got["includeStart"])
}

func TestStore_BatchAtomicCommit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, storage.Events, "stale",
		storage.Document{"ownerID": "alice"}, false))

	b := store.Batch()
	b.Set(storage.Events, "e1", storage.Document{"ownerID": "alice"}, false)
	b.Set(storage.Completions, "c1", storage.Document{"ownerID": "alice", "eventID": "e1"}, false)
	b.Delete(storage.Events, "stale")
	require.NoError(t, b.Commit(ctx))

	_, err := store.Get(ctx, storage.Events, "e1")
	assert.NoError(t, err)
	_, err = store.Get(ctx, storage.Completions, "c1")
	assert.NoError(t, err)
	_, err = store.Get(ctx, storage.Events, "stale")
	assert.True(t, storage.IsNotFound(err))
}

func TestStore_ListRangeFilter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	jan8 := func(h int) time.Time { return time.Date(2025, 1, 8, h, 0, 0, 0, time.UTC) }
	require.NoError(t, store.Set(ctx, storage.Events, "morning",
		storage.Document{"ownerID": "alice", "startStamp": jan8(9), "endStamp": jan8(10)}, false))
	require.NoError(t, store.Set(ctx, storage.Events, "evening",
		storage.Document{"ownerID": "alice", "startStamp": jan8(18), "endStamp": jan8(21)}, false))
	require.NoError(t, store.Set(ctx, storage.Events, "other",
		storage.Document{"ownerID": "bob", "startStamp": jan8(9), "endStamp": jan8(10)}, false))

	start := jan8(12)
	docs, err := store.List(ctx, storage.Events, "alice", &storage.ListOptions{Start: &start})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "evening", docs[0]["_id"])
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, storage.Schedules, "s1",
		storage.Document{"ownerID": "alice", "period": "weekly"}, false))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, storage.Schedules, "s1")
	require.NoError(t, err)
	assert.Equal(t, "weekly", got["period"])
}
