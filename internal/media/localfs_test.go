package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreOnDisk(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/media/")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "items/a/icon.png", []byte("one"), PutOptions{}))
	assert.ErrorIs(t, store.Put(ctx, "items/a/icon.png", []byte("two"), PutOptions{}), ErrObjectExists)
	require.NoError(t, store.Put(ctx, "items/a/icon.png", []byte("three"), PutOptions{Overwrite: true}))

	assert.Equal(t, "http://localhost:8080/media/items/a/icon.png", store.PublicURL("items/a/icon.png"))

	_, err = store.Open(ctx, "items/a/missing.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = store.Open(ctx, "items/a")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = store.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
