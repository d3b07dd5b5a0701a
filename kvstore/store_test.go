package kvstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/lyfeumbria/manager/kvstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func stores(t *testing.T) map[string]kvstore.Store {
	t.Helper()

	file, err := kvstore.NewFile(t.TempDir())
	require.NoError(t, err)

	_, client := newTestRedis(t)

	return map[string]kvstore.Store{
		"memory": kvstore.NewMemory(),
		"file":   file,
		"redis":  kvstore.NewRedis(client, "test:"),
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "google_auth")
			require.ErrorIs(t, err, kvstore.ErrNotFound)

			require.NoError(t, store.Set(ctx, "google_auth", []byte(`{"accessToken":"a"}`)))
			got, err := store.Get(ctx, "google_auth")
			require.NoError(t, err)
			require.JSONEq(t, `{"accessToken":"a"}`, string(got))

			require.NoError(t, store.Set(ctx, "google_auth", []byte(`{"accessToken":"b"}`)))
			got, err = store.Get(ctx, "google_auth")
			require.NoError(t, err)
			require.JSONEq(t, `{"accessToken":"b"}`, string(got), "last write wins")

			require.NoError(t, store.Delete(ctx, "google_auth"))
			_, err = store.Get(ctx, "google_auth")
			require.ErrorIs(t, err, kvstore.ErrNotFound)

			require.NoError(t, store.Delete(ctx, "google_auth"), "delete is idempotent")
		})
	}
}

func TestRedis_UsesPrefix(t *testing.T) {
	mr, client := newTestRedis(t)
	store := kvstore.NewRedis(client, "lyfeumbria:")

	require.NoError(t, store.Set(context.Background(), "identity_session", []byte("tok")))

	v, err := mr.Get("lyfeumbria:identity_session")
	require.NoError(t, err)
	require.Equal(t, "tok", v)
}

func TestFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := kvstore.NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set(context.Background(), "google_auth", []byte("{}")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "google_auth.json", entries[0].Name())

	_, err = os.Stat(filepath.Join(dir, "google_auth.json"))
	require.NoError(t, err)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}
