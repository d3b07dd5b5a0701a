package users

import (
	"context"
	"sort"

	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/records"
)

const (
	profilesCollection    = "users"
	credentialsCollection = "credentials"
)

var (
	_ ProfileRepo    = (*RecordRepo)(nil)
	_ CredentialRepo = credentialView{}
)

// RecordRepo keeps profiles and credentials in the structured record store.
// Profiles are keyed by user id, credentials by normalized email.
type RecordRepo struct {
	store records.Store
}

func NewRecordRepo(store records.Store) *RecordRepo {
	return &RecordRepo{store: store}
}

// Credentials is the credential view of the same store.
func (r *RecordRepo) Credentials() CredentialRepo { return credentialView{r} }

func (r *RecordRepo) Get(ctx context.Context, id string) (*Profile, error) {
	doc, err := r.store.Get(ctx, profilesCollection, id)
	if errors.Is(err, records.ErrNotFound) {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeProfile(id, doc)
}

func (r *RecordRepo) Upsert(ctx context.Context, profile *Profile) error {
	if profile == nil || profile.ID == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "profile id is required")
	}
	return r.store.Set(ctx, profilesCollection, profile.ID, encodeProfile(profile))
}

// List returns every decodable profile ordered by email.
func (r *RecordRepo) List(ctx context.Context) ([]*Profile, error) {
	docs, err := r.store.List(ctx, profilesCollection)
	if err != nil {
		return nil, err
	}
	out := make([]*Profile, 0, len(docs))
	for id, doc := range docs {
		p, err := DecodeProfile(id, doc)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *RecordRepo) GetByEmail(ctx context.Context, email string) (*Credentials, error) {
	doc, err := r.store.Get(ctx, credentialsCollection, NormalizeEmail(email))
	if errors.Is(err, records.ErrNotFound) {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeCredentials(doc)
}

func (r *RecordRepo) UpsertCredentials(ctx context.Context, creds *Credentials) error {
	if creds == nil || creds.Email == "" || creds.UserID == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "credentials need email and user id")
	}
	return r.store.Set(ctx, credentialsCollection, NormalizeEmail(creds.Email), encodeCredentials(creds))
}

type credentialView struct{ r *RecordRepo }

func (v credentialView) GetByEmail(ctx context.Context, email string) (*Credentials, error) {
	return v.r.GetByEmail(ctx, email)
}

func (v credentialView) Upsert(ctx context.Context, creds *Credentials) error {
	return v.r.UpsertCredentials(ctx, creds)
}
