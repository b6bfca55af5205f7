package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const lockRetryInterval = 250 * time.Millisecond

// tenantLock keeps two catalogimport processes on one host from importing
// into the same tenant at the same time.
type tenantLock struct {
	lock *flock.Flock
}

func tenantLockPath(dir string, tenantID uuid.UUID) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("catalogimport-%s.lock", tenantID))
}

// acquireTenantLock waits up to wait for the lock. A zero wait tries once.
func acquireTenantLock(ctx context.Context, dir string, tenantID uuid.UUID, wait time.Duration) (*tenantLock, error) {
	path := tenantLockPath(dir, tenantID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("lock directory: %w", err)
	}
	fl := flock.New(path)

	var (
		locked bool
		err    error
	)
	if wait <= 0 {
		locked, err = fl.TryLock()
	} else {
		lockCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		locked, err = fl.TryLockContext(lockCtx, lockRetryInterval)
	}
	if err != nil && !locked {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("another import for tenant %s is still running after %s", tenantID, wait)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("another import for tenant %s is running (lock %s)", tenantID, path)
	}
	return &tenantLock{lock: fl}, nil
}

func (l *tenantLock) Release() error {
	return l.lock.Unlock()
}
