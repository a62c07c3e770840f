// internal/application/usecase/enrichment_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	identitydom "presale/internal/domain/identity"
)

// ============================================================
// EnrichmentUsecase
// ============================================================
//
// Walks mint records whose collectorId is still unset, resolves each
// against the chain, and persists the derived identity with
// write-only-unset semantics. One failing record is logged and skipped;
// the batch continues. Repeated runs are safe: already-set fields are
// never touched.

// EnrichmentLimitMax caps a single batch.
const EnrichmentLimitMax = 500

var ErrInvalidLimit = errors.New("usecase: enrichment limit must be 1..500")

// chainResolver is the minimal identity-derivation port this usecase
// needs. Satisfied by *identity.Resolver.
type chainResolver interface {
	ResolveFromMintReference(ctx context.Context, ref identitydom.MintReference) (*identitydom.DerivedIdentity, error)
}

type EnrichmentUsecase struct {
	records  identitydom.Repository
	resolver chainResolver
}

func NewEnrichmentUsecase(records identitydom.Repository, resolver chainResolver) *EnrichmentUsecase {
	return &EnrichmentUsecase{records: records, resolver: resolver}
}

// EnrichPending processes up to limit pending records, oldest first, and
// returns the number of records actually changed.
func (u *EnrichmentUsecase) EnrichPending(ctx context.Context, limit int) (int, error) {
	if u == nil || u.records == nil || u.resolver == nil {
		return 0, fmt.Errorf("usecase: enrichment not configured")
	}
	if limit < 1 || limit > EnrichmentLimitMax {
		return 0, ErrInvalidLimit
	}

	pending, err := u.records.ListPendingEnrichment(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("usecase: list pending enrichment: %w", err)
	}

	changed := 0
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return changed, err
		}

		derived, err := u.resolver.ResolveFromMintReference(ctx, rec.Reference())
		if err != nil {
			// Record-level isolation: log and move on.
			log.Printf("[enrich] skip record=%s sig=%s: %v", rec.ID, rec.TxSignature, err)
			continue
		}

		ok, err := u.records.UpdateIfUnset(ctx, rec.ID, identitydom.PatchFromIdentity(*derived))
		if err != nil {
			log.Printf("[enrich] update record=%s failed: %v", rec.ID, err)
			continue
		}
		if ok {
			changed++
		}
	}

	log.Printf("[enrich] batch done: pending=%d changed=%d", len(pending), changed)
	return changed, nil
}
