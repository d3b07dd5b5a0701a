package loginsession_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/kvstore"
	"github.com/lyfeumbria/manager/server/loginsession"
)

func binding(id string) loginsession.Session {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return loginsession.Session{
		ID:        id,
		UserID:    "user-1",
		Email:     "anna@lyfeumbria.it",
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func TestKVRepo_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := loginsession.NewKVRepo(kvstore.NewMemory())

	_, err := repo.Get(ctx, "abc")
	require.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, binding("abc")))
	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, binding("abc"), got)

	_, err = repo.Get(ctx, "abd")
	require.ErrorIs(t, err, errors.ErrNotFound)
	_, err = repo.Get(ctx, "")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestKVRepo_NewLoginReplacesPreviousBrowser(t *testing.T) {
	ctx := context.Background()
	repo := loginsession.NewKVRepo(kvstore.NewMemory())

	require.NoError(t, repo.Upsert(ctx, binding("first")))
	require.NoError(t, repo.Upsert(ctx, binding("second")))

	_, err := repo.Get(ctx, "first")
	require.ErrorIs(t, err, errors.ErrNotFound)
	_, err = repo.Get(ctx, "second")
	require.NoError(t, err)
}

func TestKVRepo_DeleteOnlyRemovesOwnBinding(t *testing.T) {
	ctx := context.Background()
	repo := loginsession.NewKVRepo(kvstore.NewMemory())
	require.NoError(t, repo.Upsert(ctx, binding("current")))

	require.NoError(t, repo.Delete(ctx, "stale"))
	_, err := repo.Get(ctx, "current")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "current"))
	_, err = repo.Get(ctx, "current")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestKVRepo_Clear(t *testing.T) {
	ctx := context.Background()
	repo := loginsession.NewKVRepo(kvstore.NewMemory())
	require.NoError(t, repo.Upsert(ctx, binding("current")))

	require.NoError(t, repo.Clear(ctx))
	require.NoError(t, repo.Clear(ctx))
	_, err := repo.Get(ctx, "current")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestKVRepo_Validation(t *testing.T) {
	repo := loginsession.NewKVRepo(kvstore.NewMemory())

	s := binding("")
	require.ErrorIs(t, repo.Upsert(context.Background(), s), errors.ErrInvalidRequest)
	s = binding("id")
	s.UserID = ""
	require.ErrorIs(t, repo.Upsert(context.Background(), s), errors.ErrInvalidRequest)
}

func TestKVRepo_CorruptValue(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, "login_session", []byte("{")))

	_, err := loginsession.NewKVRepo(store).Get(ctx, "abc")
	require.ErrorIs(t, err, errors.ErrStorageCorrupt)
}
