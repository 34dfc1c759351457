package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/laborsync/internal/storage"
)

func TestPutHeadRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewBlobStore()

	fp, err := store.Put(ctx, "data/pr.data.0.Current", "text/plain", []byte("series\tyear"))
	require.NoError(t, err)
	require.NotEmpty(t, fp)

	headFP, err := store.Head(ctx, "data/pr.data.0.Current")
	require.NoError(t, err)
	require.Equal(t, fp, headFP)
}

func TestHeadMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.Head(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListFiltersByPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewBlobStore()
	_, err := store.Put(ctx, "data/pr.data.0.Current", "", []byte("a"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "data/pr.data.1.AllData", "", []byte("b"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "other/file.txt", "", []byte("c"))
	require.NoError(t, err)

	objects, err := store.List(ctx, "data/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	require.Equal(t, "data/pr.data.0.Current", objects[0].Key)
	require.Equal(t, "data/pr.data.1.AllData", objects[1].Key)
}

func TestDeleteRemovesObject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewBlobStore()
	_, err := store.Put(ctx, "data/old.txt", "", []byte("stale"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "data/old.txt"))
	_, err = store.Head(ctx, "data/old.txt")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.Zero(t, store.Len())
}

func TestFingerprintMatchesContentNotKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewBlobStore()
	fpA, err := store.Put(ctx, "a", "", []byte("same"))
	require.NoError(t, err)
	fpB, err := store.Put(ctx, "b", "", []byte("same"))
	require.NoError(t, err)
	require.Equal(t, fpA, fpB)
}
