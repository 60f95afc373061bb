package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCubeStats_MemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "a/b", []byte("hello")))

	value, err := store.Get(ctx, "a/b")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), value)

	info, err := store.Stat(ctx, "a/b")
	require.NoError(t, err)
	require.Equal(t, ObjectInfo{Key: "a/b", Size: 5}, info)
}

func TestCubeStats_MemoryStore_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Stat(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCubeStats_MemoryStore_GetRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "k", []byte("0123456789")))

	mid, err := store.GetRange(ctx, "k", 2, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("234"), mid)

	tail, err := store.GetRange(ctx, "k", 7, -1)
	require.NoError(t, err)
	require.Equal(t, []byte("789"), tail)

	over, err := store.GetRange(ctx, "k", 8, 100)
	require.NoError(t, err)
	require.Equal(t, []byte("89"), over)

	_, err = store.GetRange(ctx, "k", 11, 1)
	require.Error(t, err)
}

func TestCubeStats_MemoryStore_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "cube++seed/a", nil))
	require.NoError(t, store.Put(ctx, "cube++seed/b", nil))
	require.NoError(t, store.Put(ctx, "other/c", nil))

	keys, err := store.List(ctx, "cube++seed/")
	require.NoError(t, err)
	require.Equal(t, []string{"cube++seed/a", "cube++seed/b"}, keys)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestCubeStats_MemoryStore_ValuesAreCopied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	buf := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", buf))
	buf[0] = 'z'

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), value)

	value[1] = 'z'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}

func TestCubeStats_Provider_Fixed(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	resolved, err := Fixed(store).Store(context.Background())
	require.NoError(t, err)
	require.Same(t, store, resolved.(*MemoryStore))

	_, err = Fixed(nil).Store(context.Background())
	require.Error(t, err)
}

func TestCubeStats_Provider_Factory(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	provider := Factory(func(ctx context.Context) (Store, error) {
		return store, nil
	})
	resolved, err := provider.Store(context.Background())
	require.NoError(t, err)
	require.Same(t, store, resolved.(*MemoryStore))
}
