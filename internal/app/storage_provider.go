package app

import (
	"context"
	"fmt"

	"github.com/yungbote/paperlens-backend/internal/platform/gcp"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/platform/objectstore"
)

var newBucketStore = func(ctx context.Context, log *logger.Logger) (objectstore.Store, func() error, error) {
	b, err := gcp.NewBucketStore(ctx, log)
	if err != nil {
		return nil, nil, err
	}
	return b, b.Close, nil
}

type StorageBootstrapError struct {
	Backend string
	Cause   error
}

func (e *StorageBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf("object storage bootstrap failed (backend=%q): %v", e.Backend, e.Cause)
}

func (e *StorageBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveObjectStore returns the store plus an optional close func.
func resolveObjectStore(ctx context.Context, log *logger.Logger, cfg Config) (objectstore.Store, func() error, error) {
	switch gcp.StorageBackend(cfg.StorageBackend) {
	case gcp.StorageBackendGCS, gcp.StorageBackendGCSEmulator:
		store, closeFn, err := newBucketStore(ctx, log)
		if err != nil {
			return nil, nil, &StorageBootstrapError{Backend: cfg.StorageBackend, Cause: err}
		}
		log.Info("Object storage ready", "backend", cfg.StorageBackend)
		return store, closeFn, nil
	default:
		store, err := objectstore.NewLocal(cfg.LocalStorageDir)
		if err != nil {
			return nil, nil, &StorageBootstrapError{Backend: cfg.StorageBackend, Cause: err}
		}
		log.Info("Object storage ready", "backend", "local", "dir", cfg.LocalStorageDir)
		return store, nil, nil
	}
}
