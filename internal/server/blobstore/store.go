// Package blobstore keeps encrypted file bodies, keyed by file id.
//
// Every backend returns common.ErrorNotFound for a missing object. Bodies
// are already ciphertext when they arrive here.
package blobstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/server/config"
)

// Store is a flat key/value blob store.
type Store interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// Open builds the backend selected by cfg.BlobBackend. The returned close
// function releases backend resources and is never nil.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		s, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case config.BlobBackendBadger:
		s, err := OpenBadgerStore(cfg.BlobDir)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case config.BlobBackendMemory:
		return NewMemoryStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}
