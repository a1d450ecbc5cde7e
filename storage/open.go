package storage

import (
	"context"

	"github.com/jrsteele09/cmp-client/internal/config"
	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
)

// Open returns the repository selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (Repo, error) {
	switch cfg.GetStorageKind() {
	case config.StorageMemory:
		return NewInMemoryRepo(), nil
	case config.StorageFile:
		return NewFileRepo(cfg.GetStoragePath())
	case config.StorageSQLite:
		return NewSQLiteRepo(cfg.GetStoragePath())
	case config.StorageRedis:
		client, err := DialRedis(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
		if err != nil {
			return nil, err
		}
		return NewRedisRepo(client, cfg.GetRedisKeyPrefix()), nil
	}
	return nil, apperrors.Wrapf(apperrors.ErrUnknownStorageKind, "[storage Open] %q", cfg.GetStorageKind())
}
