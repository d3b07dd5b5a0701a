package users

import "context"

type ProfileRepo interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Upsert(ctx context.Context, profile *Profile) error
	List(ctx context.Context) ([]*Profile, error)
}

type CredentialRepo interface {
	GetByEmail(ctx context.Context, email string) (*Credentials, error)
	Upsert(ctx context.Context, creds *Credentials) error
}
