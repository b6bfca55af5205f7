package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	csvimport "github.com/storefront/backend/internal/infrastructure/import"
	"go.uber.org/zap"
)

// Store is where import files are staged before a run picks them up by key.
type Store interface {
	importapp.FileSource
	Put(ctx context.Context, key string, data []byte) error
}

var (
	_ Store = (*DirStore)(nil)
	_ Store = (*S3Store)(nil)
)

// DirStore keeps import files in a local directory, standing in for a bucket
// in development and single-host deployments.
type DirStore struct {
	root    string
	maxSize int64
}

func NewDirStore(dir string, maxSize int64) (*DirStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage dir %s is not a directory", abs)
	}
	return &DirStore{root: abs, maxSize: maxSize}, nil
}

// resolve maps key to a path under the root.
func (s *DirStore) resolve(key string) (string, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", errors.New("storage key is required")
	}
	rel, err := filepath.Localize(filepath.ToSlash(filepath.Clean(trimmed)))
	if err != nil || rel == "." {
		return "", fmt.Errorf("storage key %q is outside the storage root", key)
	}
	return filepath.Join(s.root, rel), nil
}

func (s *DirStore) Fetch(_ context.Context, key string) ([]byte, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.IsDir() {
		return nil, shared.ErrNotFound
	}
	if s.maxSize > 0 && info.Size() > s.maxSize {
		return nil, csvimport.ErrFileTooLarge
	}
	return readLimited(f, s.maxSize)
}

// Put writes data under key through a temporary file, so a concurrent Fetch
// never sees a partial file.
func (s *DirStore) Put(_ context.Context, key string, data []byte) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(key), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".staging-*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return os.Rename(tmp.Name(), full)
}

func (s *DirStore) String() string {
	return s.root
}

// Open builds the configured store: a local directory when storage.local_dir
// is set, otherwise an S3 bucket. Disabled storage yields nil.
func Open(ctx context.Context, cfg *config.StorageConfig, maxSize int64, logger *zap.Logger) (Store, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var store interface {
		Store
		fmt.Stringer
	}
	if cfg.LocalDir != "" {
		dir, err := NewDirStore(cfg.LocalDir, maxSize)
		if err != nil {
			return nil, err
		}
		store = dir
	} else {
		bucket, err := NewS3Store(ctx, cfg, WithLogger(logger), WithMaxSize(maxSize))
		if err != nil {
			return nil, err
		}
		if err := bucket.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		store = bucket
	}
	logger.Info("Import file storage ready", zap.Stringer("location", store))
	return store, nil
}
