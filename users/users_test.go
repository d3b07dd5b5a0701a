package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/records"
	"github.com/lyfeumbria/manager/users"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "too short", password: "abc12", wantErr: true},
		{name: "empty", password: "", wantErr: true},
		{name: "minimum length", password: "abcdef"},
		{name: "accented runes count once", password: "èèèèèè"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := users.HashPassword("segreto1")
	require.NoError(t, err)
	require.NotEqual(t, "segreto1", hash)

	creds := &users.Credentials{UserID: "u1", Email: "a@example.com", PasswordHash: hash}
	require.True(t, creds.CheckPassword("segreto1"))
	require.False(t, creds.CheckPassword("segreto2"))
}

func TestParseRole(t *testing.T) {
	require.Equal(t, users.RoleAdmin, users.ParseRole("admin"))
	require.Equal(t, users.RoleAdmin, users.ParseRole(" Admin "))
	require.Equal(t, users.RoleUser, users.ParseRole("user"))
	require.Equal(t, users.RoleUser, users.ParseRole("superuser"))
	require.Equal(t, users.RoleUser, users.ParseRole(""))
}

func TestDecodeProfile(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		doc     records.Document
		want    *users.Profile
		wantErr bool
	}{
		{
			name: "complete document",
			doc:  records.Document{"email": "anna@example.com", "name": "Anna", "role": "admin", "createdAt": created.Format(time.RFC3339)},
			want: &users.Profile{ID: "u1", Email: "anna@example.com", Name: "Anna", Role: users.RoleAdmin, CreatedAt: created},
		},
		{
			name: "defaults for name and role",
			doc:  records.Document{"email": "anna@example.com", "role": "owner"},
			want: &users.Profile{ID: "u1", Email: "anna@example.com", Name: users.DefaultName, Role: users.RoleUser},
		},
		{
			name: "epoch millis created at",
			doc:  records.Document{"email": "anna@example.com", "createdAt": float64(created.UnixMilli())},
			want: &users.Profile{ID: "u1", Email: "anna@example.com", Name: users.DefaultName, Role: users.RoleUser, CreatedAt: created},
		},
		{
			name:    "missing email",
			doc:     records.Document{"name": "Anna"},
			wantErr: true,
		},
		{
			name:    "bad created at",
			doc:     records.Document{"email": "anna@example.com", "createdAt": "yesterday"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := users.DecodeProfile("u1", tt.doc)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want.ID, got.ID)
			require.Equal(t, tt.want.Email, got.Email)
			require.Equal(t, tt.want.Name, got.Name)
			require.Equal(t, tt.want.Role, got.Role)
			require.True(t, tt.want.CreatedAt.Equal(got.CreatedAt))
		})
	}
}

func TestRecordRepo_Profiles(t *testing.T) {
	ctx := context.Background()
	repo := users.NewRecordRepo(records.NewMemory())

	_, err := repo.Get(ctx, "missing")
	require.ErrorIs(t, err, errors.ErrUserNotFound)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, users.DefaultProfile("u2", "zeta@example.com", now)))
	require.NoError(t, repo.Upsert(ctx, &users.Profile{ID: "u1", Email: "anna@example.com", Name: "Anna", Role: users.RoleAdmin, CreatedAt: now}))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, got.IsAdmin())
	require.True(t, now.Equal(got.CreatedAt))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "anna@example.com", list[0].Email)
	require.Equal(t, users.DefaultName, list[1].Name)

	require.Error(t, repo.Upsert(ctx, &users.Profile{Email: "x@example.com"}))
}

func TestRecordRepo_Credentials(t *testing.T) {
	ctx := context.Background()
	creds := users.NewRecordRepo(records.NewMemory()).Credentials()

	_, err := creds.GetByEmail(ctx, "anna@example.com")
	require.ErrorIs(t, err, errors.ErrUserNotFound)

	require.NoError(t, creds.Upsert(ctx, &users.Credentials{UserID: "u1", Email: "Anna@Example.com", PasswordHash: "hash"}))

	got, err := creds.GetByEmail(ctx, " anna@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)
	require.Equal(t, "anna@example.com", got.Email)
}
