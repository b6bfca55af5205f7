package importapp

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// SKULocker serializes reconciliation of one SKU within a tenant.
// Acquire blocks until the key is free or ctx is done; release must be called exactly once.
type SKULocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// SKULockKey is the lock key for a SKU within a tenant. SKUs compare case-sensitively.
func SKULockKey(tenantID uuid.UUID, sku string) string {
	return tenantID.String() + ":" + strings.TrimSpace(sku)
}
