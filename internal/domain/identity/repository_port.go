// internal/domain/identity/repository_port.go
package identity

import (
	"context"
)

// ==============================
// Enrichment patch: nil のフィールドは更新しない
// ==============================
//
// UpdateIfUnset is stricter than a normal patch: a non-nil field is only
// written when the stored value is still unset (empty string / zero).
// Already-derived fields are never touched, which makes repeated
// enrichment runs safe under partial failure and concurrent workers.
type EnrichmentPatch struct {
	Mint        *string
	MetadataURI *string
	TierCode    *string
	Serial      *uint32
	DesignKey   *uint32
	CollectorID *string
}

// PatchFromIdentity builds the full enrichment patch for a derived
// identity.
func PatchFromIdentity(d DerivedIdentity) EnrichmentPatch {
	mint := d.Mint
	uri := d.MetadataURI
	code := string(d.TierCode)
	serial := d.Serial
	key := d.DesignKey
	cid := d.CollectorID
	return EnrichmentPatch{
		Mint:        &mint,
		MetadataURI: &uri,
		TierCode:    &code,
		Serial:      &serial,
		DesignKey:   &key,
		CollectorID: &cid,
	}
}

// ==============================
// Repository ポート（契約）
// ==============================
type Repository interface {
	Create(ctx context.Context, rec MintRecord) (MintRecord, error)
	GetByID(ctx context.Context, id string) (MintRecord, error)

	// ListPendingEnrichment returns up to limit records whose collectorId
	// is still unset, oldest createdAt first.
	ListPendingEnrichment(ctx context.Context, limit int) ([]MintRecord, error)

	// UpdateIfUnset applies the patch to the record, writing each non-nil
	// field only if it is currently unset. Returns true when at least one
	// field was written. The write must be atomic per record.
	UpdateIfUnset(ctx context.Context, id string, patch EnrichmentPatch) (bool, error)
}
