package records_test

import (
	"context"
	"testing"

	"github.com/lyfeumbria/manager/records"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := records.NewMemory()

	_, err := store.Get(ctx, "users", "u1")
	require.ErrorIs(t, err, records.ErrNotFound)

	require.NoError(t, store.Set(ctx, "users", "u1", records.Document{
		"email": "anna@example.com",
		"role":  "admin",
		"age":   41,
	}))

	doc, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	require.Equal(t, "anna@example.com", doc["email"])
	require.Equal(t, float64(41), doc["age"], "numbers come back as JSON numbers")

	require.NoError(t, store.Delete(ctx, "users", "u1"))
	_, err = store.Get(ctx, "users", "u1")
	require.ErrorIs(t, err, records.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "users", "u1"))
}

func TestMemory_ListIsPerCollection(t *testing.T) {
	ctx := context.Background()
	store := records.NewMemory()

	require.NoError(t, store.Set(ctx, "users", "u1", records.Document{"name": "A"}))
	require.NoError(t, store.Set(ctx, "users", "u2", records.Document{"name": "B"}))
	require.NoError(t, store.Set(ctx, "credentials", "a@example.com", records.Document{"user_id": "u1"}))

	docs, err := store.List(ctx, "users")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "B", docs["u2"]["name"])

	empty, err := store.List(ctx, "todos")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestMemory_RequiresCollectionAndID(t *testing.T) {
	err := records.NewMemory().Set(context.Background(), "", "x", records.Document{})
	require.Error(t, err)
}
