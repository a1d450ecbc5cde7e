package config

import (
	"os"
	"path/filepath"
)

const storageEnvVar = "CMP_STORAGE"

// StorageKind selects where the session is persisted between runs.
type StorageKind string

const (
	StorageMemory StorageKind = "memory"
	StorageFile   StorageKind = "file"
	StorageSQLite StorageKind = "sqlite"
	StorageRedis  StorageKind = "redis"
)

func (k StorageKind) Valid() bool {
	switch k {
	case StorageMemory, StorageFile, StorageSQLite, StorageRedis:
		return true
	}
	return false
}

type StorageConfig interface {
	GetStorageKind() StorageKind
	GetStoragePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Storage struct {
	Kind          StorageKind `yaml:"kind" env:"CMP_STORAGE" env-default:"file" env-description:"memory, file, sqlite or redis"`
	Path          string      `yaml:"path" env:"CMP_STORAGE_PATH" env-description:"File or SQLite path, defaults under ~/.cmpctl"`
	RedisAddr     string      `yaml:"redis_addr" env:"CMP_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string      `yaml:"redis_password" env:"CMP_REDIS_PASSWORD"`
	RedisDB       int         `yaml:"redis_db" env:"CMP_REDIS_DB" env-default:"0"`
	RedisPrefix   string      `yaml:"redis_prefix" env:"CMP_REDIS_PREFIX" env-default:"cmpctl:"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageKind() StorageKind {
	return s.Kind
}

// GetStoragePath returns the configured path or a per-kind default in the user's home directory.
func (s Storage) GetStoragePath() string {
	if s.Path != "" {
		return s.Path
	}
	name := "session.json"
	if s.Kind == StorageSQLite {
		name = "session.db"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cmpctl", name)
	}
	return filepath.Join(home, ".cmpctl", name)
}

func (s Storage) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Storage) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Storage) GetRedisDB() int {
	return s.RedisDB
}

func (s Storage) GetRedisKeyPrefix() string {
	return s.RedisPrefix
}
