// Package kvstore is the durable key/value storage the managers persist their state in.
// It plays the role of the browser's local storage: one opaque value per fixed key.
package kvstore

import (
	"context"
	"fmt"

	"github.com/lyfeumbria/manager/internal/config"
	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.ErrNotFound

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Open builds the store selected by the storage configuration.
func Open(cfg interface {
	config.StorageConfig
	config.EnvConfig
}) (Store, error) {
	switch cfg.GetStorageDriver() {
	case "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.GetDataFolder())
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		return NewRedis(client, "lyfeumbria:"), nil
	default:
		return nil, fmt.Errorf("[kvstore Open] unknown storage driver %q", cfg.GetStorageDriver())
	}
}
