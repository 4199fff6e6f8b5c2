// Package artifact caches compiled declaration artifacts. Because
// compilation is deterministic, a cache miss and a recompile produce the
// same bytes; the cache only saves work.
package artifact

import (
	"context"
	"time"

	id "skdm/pkg/domain"
)

// Stored is a cached artifact with its integrity hash.
type Stored struct {
	Artifact    []byte    `json:"artifact"`
	SHA256Hash  string    `json:"sha256_hash"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Store caches artifacts keyed by declaration. Get returns
// sentinel.ErrNotFound on a miss; Put failures are non-fatal to callers.
type Store interface {
	Put(ctx context.Context, tenantID id.TenantID, declarationID id.DeclarationID, stored Stored) error
	Get(ctx context.Context, tenantID id.TenantID, declarationID id.DeclarationID) (*Stored, error)
	Invalidate(ctx context.Context, tenantID id.TenantID, declarationID id.DeclarationID) error
}
