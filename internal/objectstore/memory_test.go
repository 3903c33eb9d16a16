package objectstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowengine/internal/objectstore"
)

func TestMemoryStorePutGetRoundTrip(t *testing.T) {
	store := objectstore.NewMemoryStore()
	ctx := context.Background()

	id, err := store.Put(ctx, "org-1", []byte("hello"), "text/plain", map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	obj, err := store.Get(ctx, "org-1", id)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), obj.Data)
	assert.Equal(t, "text/plain", obj.MimeType)
}

func TestMemoryStorePutIsNotIdempotent(t *testing.T) {
	store := objectstore.NewMemoryStore()
	ctx := context.Background()

	id1, err := store.Put(ctx, "org-1", []byte("hello"), "text/plain", nil)
	require.NoError(t, err)
	id2, err := store.Put(ctx, "org-1", []byte("hello"), "text/plain", nil)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2, "two Puts of identical bytes should mint distinct ids")
}

func TestMemoryStoreGetMissingReturnsNotFound(t *testing.T) {
	store := objectstore.NewMemoryStore()
	_, err := store.Get(context.Background(), "org-1", "nonexistent")
	require.Error(t, err)
	var notFound *objectstore.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestMemoryStoreDeleteIsIdempotent(t *testing.T) {
	store := objectstore.NewMemoryStore()
	ctx := context.Background()
	id, err := store.Put(ctx, "org-1", []byte("x"), "text/plain", nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "org-1", id))
	require.NoError(t, store.Delete(ctx, "org-1", id), "deleting twice should not error")

	_, err = store.Get(ctx, "org-1", id)
	assert.Error(t, err)
}

func TestMemoryStorePresignReadFailsForMissingObject(t *testing.T) {
	store := objectstore.NewMemoryStore()
	_, _, err := store.PresignRead(context.Background(), "org-1", "nope", time.Minute)
	assert.Error(t, err)
}

func TestMemoryStoreScopedByOrg(t *testing.T) {
	store := objectstore.NewMemoryStore()
	ctx := context.Background()
	id, err := store.Put(ctx, "org-1", []byte("secret"), "text/plain", nil)
	require.NoError(t, err)

	_, err = store.Get(ctx, "org-2", id)
	assert.Error(t, err, "an object put under org-1 must not be readable under org-2")
}
