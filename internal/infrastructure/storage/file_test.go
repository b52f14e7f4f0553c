package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	_, found, err := store.Get(ctx, "sifx3_cart")
	require.NoError(t, err)
	assert.False(t, found)

	payload := `[{"id":1,"name":"Widget","price":9.99,"quantity":2}]`
	require.NoError(t, store.Set(ctx, "sifx3_cart", payload))
	assert.FileExists(t, filepath.Join(dir, "sifx3_cart.json"))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	value, found, err := reopened.Get(ctx, "sifx3_cart")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload, value)

	require.NoError(t, reopened.Delete(ctx, "sifx3_cart"))
	require.NoError(t, reopened.Delete(ctx, "sifx3_cart"))
	_, found, err = reopened.Get(ctx, "sifx3_cart")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStore_KeysAreEscaped(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "../escape", "x"))

	value, found, err := store.Get(ctx, "../escape")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "x", value)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape.json"))
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Set(ctx, "sifx3_cart", "[]"))
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sifx3_cart.json", entries[0].Name())
}

func TestFileStore_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewFileStore(filepath.Join(blocker, "state"))
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)

	_, err = NewFileStore("")
	assert.Error(t, err)
}

func TestFileStore_Closed(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Set(context.Background(), "k", "v"), shared.ErrStorageUnavailable)
}
