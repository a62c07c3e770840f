// internal/domain/entitlement/repository_port.go
package entitlement

import (
	"context"
	"time"

	tierdom "presale/internal/domain/tier"
)

// ==============================
// Repository ポート（契約）
// ==============================
//
// The ledger mutates shared per-(buyer, tier) state. Mutate must make the
// whole read-check-increment atomic per key (Firestore transaction or a
// row lock), otherwise two concurrent spends could both read a stale
// "available" value and jointly overspend. Cross-key operations are
// independent and need no coordination.
type Repository interface {
	// Get returns the record for the key, or ErrNotFound.
	Get(ctx context.Context, buyerID string, t tierdom.Tier) (PurchaseRecord, error)

	ListByBuyer(ctx context.Context, buyerID string) ([]PurchaseRecord, error)

	// Mutate loads the record for the key (initializing an empty one when
	// absent), applies fn, and persists the result — all under a per-key
	// lock. When fn returns an error nothing is persisted and the error
	// is returned unchanged.
	Mutate(ctx context.Context, buyerID string, t tierdom.Tier, fn func(rec *PurchaseRecord) error) (PurchaseRecord, error)

	// ListExpiringWithin returns records whose rightsExpiry falls inside
	// (now, now+window]. Used by the expiry reminder job.
	ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]PurchaseRecord, error)
}
