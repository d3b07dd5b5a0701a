package loginsession

import (
	"context"
	"crypto/subtle"
	"encoding/json"

	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/kvstore"
)

const storageKey = "login_session"

// KVRepo keeps a single binding, since the process serves one signed-in user at a time.
// Upserting a new id replaces the previous browser.
type KVRepo struct {
	store kvstore.Store
}

var _ Repo = (*KVRepo)(nil)

func NewKVRepo(store kvstore.Store) *KVRepo {
	return &KVRepo{store: store}
}

func (r *KVRepo) Upsert(ctx context.Context, session Session) error {
	if session.ID == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "session id is required")
	}
	if session.UserID == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "user id is required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrapf(err, "[loginsession Upsert] encode")
	}
	if err := r.store.Set(ctx, storageKey, data); err != nil {
		return errors.Wrapf(err, "[loginsession Upsert] store")
	}
	return nil
}

func (r *KVRepo) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, errors.Wrapf(errors.ErrNotFound, "empty session id")
	}
	current, err := r.load(ctx)
	if err != nil {
		return Session{}, err
	}
	if subtle.ConstantTimeCompare([]byte(current.ID), []byte(id)) != 1 {
		return Session{}, errors.Wrapf(errors.ErrNotFound, "session not found")
	}
	return current, nil
}

func (r *KVRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
	return r.Clear(ctx)
}

func (r *KVRepo) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, storageKey); err != nil {
		return errors.Wrapf(err, "[loginsession Clear] store")
	}
	return nil
}

func (r *KVRepo) load(ctx context.Context) (Session, error) {
	data, err := r.store.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Session{}, errors.Wrapf(errors.ErrNotFound, "session not found")
		}
		return Session{}, errors.Wrapf(err, "[loginsession Get] store")
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, errors.Wrapf(errors.ErrStorageCorrupt, "[loginsession Get] %v", err)
	}
	return s, nil
}
