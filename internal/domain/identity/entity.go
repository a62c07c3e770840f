// internal/domain/identity/entity.go
package identity

import (
	"errors"
	"strings"
	"time"

	tierdom "presale/internal/domain/tier"
)

// ------------------------------------------------------
// Entity: MintRecord (mint_records 1 row / document)
// ------------------------------------------------------
//
// One row per completed presale mint. The purchase flow writes the
// reference part once; the enrichment pass later fills the derived part.
// Derived fields use zero values for "unset" and are only ever written
// while unset (see Repository.UpdateIfUnset).
type MintRecord struct {
	ID      string `json:"id"`
	BuyerID string `json:"buyerId"`

	// Reference part, immutable once recorded.
	TxSignature  string    `json:"txSignature"`
	Network      Network   `json:"network"`
	TierID       int       `json:"tierId"`
	DesignChoice *int      `json:"designChoice,omitempty"` // 1|2, tree-steel only
	CreatedAt    time.Time `json:"createdAt"`

	// Derived part, filled by enrichment. Empty / zero = not yet derived.
	Mint        string `json:"mint,omitempty"`
	MetadataURI string `json:"metadataUri,omitempty"`
	TierCode    string `json:"tierCode,omitempty"`
	Serial      uint32 `json:"serial,omitempty"`
	DesignKey   uint32 `json:"designKey,omitempty"`
	CollectorID string `json:"collectorId,omitempty"`
}

// Network is the chain the mint happened on. Presale mints are mainnet
// only; devnet appears in local testing.
type Network string

const (
	NetworkMainnet Network = "mainnet-beta"
	NetworkDevnet  Network = "devnet"
)

// MintReference is the immutable on-chain reference carried by a
// MintRecord, as handed over by the purchase flow.
type MintReference struct {
	TxSignature  string  `json:"txSignature"`
	Network      Network `json:"network"`
	TierID       int     `json:"tierId"`
	DesignChoice *int    `json:"designChoice,omitempty"`
}

// DerivedIdentity is the canonical identity of one minted unit, computed
// purely from on-chain data. Derivation is deterministic: the same
// MintReference always yields the same DerivedIdentity.
type DerivedIdentity struct {
	Mint        string       `json:"mint"`
	MetadataURI string       `json:"metadataUri"`
	TierCode    tierdom.Code `json:"tierCode"`
	Serial      uint32       `json:"serial"`
	DesignKey   uint32       `json:"designKey"`
	CollectorID string       `json:"collectorId"`
}

// URIDerivation is the identity subset computable from a metadata URI
// alone (no mint address available on that path).
type URIDerivation struct {
	Tier        tierdom.Tier `json:"-"`
	TierCode    tierdom.Code `json:"tierCode"`
	Serial      uint32       `json:"serial"`
	DesignKey   uint32       `json:"designKey"`
	CollectorID string       `json:"collectorId"`
}

// ------------------------------------------------------
// Errors
// ------------------------------------------------------

var (
	ErrInvalidURI            = errors.New("identity: invalid metadata uri")
	ErrInconsistentDesignKey = errors.New("identity: declared design variant does not match computed key")
	ErrMintNotFound          = errors.New("identity: no newly minted token in transaction")
	ErrAmbiguousMint         = errors.New("identity: more than one mint candidate in transaction")
	ErrEmptyURI              = errors.New("identity: metadata account has empty uri")
	ErrBadURIFormat          = errors.New("identity: metadata uri has no serial before .json")
	ErrBadDesignChoice       = errors.New("identity: missing or invalid design choice")
	ErrInvalidReference      = errors.New("identity: invalid mint reference")
	ErrNotFound              = errors.New("identity: mint record not found")
)

// Reference extracts the immutable reference part of a record.
func (m MintRecord) Reference() MintReference {
	return MintReference{
		TxSignature:  m.TxSignature,
		Network:      m.Network,
		TierID:       m.TierID,
		DesignChoice: m.DesignChoice,
	}
}

// Enriched reports whether all four derived identity fields are set.
func (m MintRecord) Enriched() bool {
	return m.TierCode != "" && m.Serial >= 1 && m.DesignKey >= 1 && m.CollectorID != ""
}

// NewMintRecord validates and normalizes a fresh record for persistence.
func NewMintRecord(id, buyerID string, ref MintReference, createdAt time.Time) (MintRecord, error) {
	sig := strings.TrimSpace(ref.TxSignature)
	if sig == "" {
		return MintRecord{}, ErrInvalidReference
	}
	if _, err := tierdom.FromOrdinal(ref.TierID); err != nil {
		return MintRecord{}, err
	}
	buyer := strings.TrimSpace(buyerID)
	if buyer == "" {
		return MintRecord{}, ErrInvalidReference
	}
	network := ref.Network
	if network == "" {
		network = NetworkMainnet
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return MintRecord{
		ID:           strings.TrimSpace(id),
		BuyerID:      buyer,
		TxSignature:  sig,
		Network:      network,
		TierID:       ref.TierID,
		DesignChoice: ref.DesignChoice,
		CreatedAt:    createdAt.UTC(),
	}, nil
}
