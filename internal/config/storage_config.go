package config

type StorageConfig interface {
	GetStorageDriver() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetDatabaseURL() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetStorageDriver selects the key/value store backing persisted tokens: memory, file or redis.
func (Storage) GetStorageDriver() string {
	return GetEnv("STORAGE_DRIVER", "file")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

// GetDatabaseURL is the postgres URL for the record store. Empty keeps records in memory.
func (Storage) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}
