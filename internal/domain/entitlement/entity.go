// internal/domain/entitlement/entity.go
package entitlement

import (
	"errors"
	"strings"
	"time"

	tierdom "presale/internal/domain/tier"
)

// ------------------------------------------------------
// Entity: PurchaseRecord (per buyer, per tier)
// ------------------------------------------------------
//
// One record per (buyerId, tier). Created on the first purchase of the
// tier, mutated additively on every further purchase, never deleted.
// Budgets are EUR-denominated and exact; token amounts are derived at
// reporting time only.
type PurchaseRecord struct {
	BuyerID string       `json:"buyerId"`
	Tier    tierdom.Tier `json:"tier"`

	QuantityOwned uint32         `json:"quantityOwned"`
	DesignCounts  map[int]uint32 `json:"designCounts,omitempty"`
	Upgrades      Upgrades       `json:"upgrades"`
	Activation    Activation     `json:"activation,omitempty"`
	RightsExpiry  *time.Time     `json:"rightsExpiry,omitempty"`

	ClaimBudgetEur    float64 `json:"claimBudgetEur"`
	ClaimUsedEur      float64 `json:"claimUsedEur"`
	DiscountBudgetEur float64 `json:"discountBudgetEur"`
	DiscountUsedEur   float64 `json:"discountUsedEur"`

	// WS-20 only: set by an admin invite before the founding unit can be
	// purchased.
	InviteGranted bool `json:"inviteGranted,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Upgrades counts the rarity-lottery outcomes accrued by the record. The
// sum never exceeds QuantityOwned.
type Upgrades struct {
	Rare  uint32 `json:"rare"`
	Ultra uint32 `json:"ultra"`
}

// Activation is the buyer's chosen (or tier-fixed) split of purchase value
// between the claim channel and the discount channel.
type Activation string

const (
	ActivationUnset Activation = ""
	Claim100        Activation = "claim100"
	Split50         Activation = "split50"
	Discount100     Activation = "discount100"
	FixedActivation Activation = "fixed"
)

// ParseActivation validates a wire-supplied flex activation choice.
func ParseActivation(s string) (Activation, error) {
	switch Activation(strings.TrimSpace(strings.ToLower(s))) {
	case Claim100:
		return Claim100, nil
	case Split50:
		return Split50, nil
	case Discount100:
		return Discount100, nil
	default:
		return ActivationUnset, ErrInvalidActivation
	}
}

// shares returns the (claim, discount) split of a flex activation.
func (a Activation) shares() (claim, discount float64) {
	switch a {
	case Claim100:
		return 1, 0
	case Split50:
		return 0.5, 0.5
	default: // Discount100 and the unset default
		return 0, 1
	}
}

// RightsWindow is the rolling validity window granted by every non-WS20
// purchase. Extensions are monotonic: a later purchase never shortens a
// stored expiry.
const RightsWindow = 365 * 24 * time.Hour

// Forced discount percentages when the record holds rarity upgrades.
const (
	UltraDiscountPct = 50
	RareDiscountPct  = 40
)

// ------------------------------------------------------
// Errors
// ------------------------------------------------------

var (
	ErrInvalidBuyer               = errors.New("entitlement: invalid buyerId")
	ErrInvalidQuantity            = errors.New("entitlement: quantity must be >= 1")
	ErrInvalidPrice               = errors.New("entitlement: price must be >= 0")
	ErrInvalidAmount              = errors.New("entitlement: amount must be > 0")
	ErrInvalidActivation          = errors.New("entitlement: invalid activation choice")
	ErrInsufficientClaimBudget    = errors.New("entitlement: insufficient claim budget")
	ErrInsufficientDiscountBudget = errors.New("entitlement: insufficient discount budget")
	ErrRightsExpired              = errors.New("entitlement: discount rights expired")
	ErrInviteRequired             = errors.New("entitlement: founding tier requires an invite")
	ErrAlreadyOwned               = errors.New("entitlement: founding unit already owned")
	ErrNotFound                   = errors.New("entitlement: purchase record not found")
	ErrConflict                   = errors.New("entitlement: conflict")
)

// NewPurchaseRecord initializes an empty record for a key. Quantities and
// budgets start at zero; the first ApplyPurchase fills them.
func NewPurchaseRecord(buyerID string, t tierdom.Tier, now time.Time) (PurchaseRecord, error) {
	buyer := strings.TrimSpace(buyerID)
	if buyer == "" {
		return PurchaseRecord{}, ErrInvalidBuyer
	}
	if _, err := tierdom.FromOrdinal(int(t)); err != nil {
		return PurchaseRecord{}, err
	}
	if now.IsZero() {
		now = time.Now()
	}
	return PurchaseRecord{
		BuyerID:      buyer,
		Tier:         t,
		DesignCounts: map[int]uint32{},
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// Snapshot is the derived entitlement view, recomputed on demand and never
// stored.
type Snapshot struct {
	Tier          tierdom.Tier `json:"tier"`
	Activation    Activation   `json:"activation"`
	QuantityOwned uint32       `json:"quantityOwned"`
	Upgrades      Upgrades     `json:"upgrades"`

	ClaimBudgetEur       float64 `json:"claimBudgetEur"`
	ClaimUsedEur         float64 `json:"claimUsedEur"`
	ClaimAvailableEur    float64 `json:"claimAvailableEur"`
	ClaimAvailableTokens uint64  `json:"claimAvailableTokens"`

	DiscountBudgetEur    float64 `json:"discountBudgetEur"`
	DiscountUsedEur      float64 `json:"discountUsedEur"`
	DiscountAvailableEur float64 `json:"discountAvailableEur"`
	DiscountPctEffective int     `json:"discountPctEffective"`

	// ExpiresAt / DaysRemaining are nil for the founding tier (unbounded).
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	DaysRemaining *int       `json:"daysRemaining,omitempty"`
}

// ========================================
// SQL DDL (postgres adapter)
// ========================================

const PurchaseRecordsTableDDL = `
CREATE TABLE IF NOT EXISTS purchase_records (
  buyer_id TEXT NOT NULL,
  tier SMALLINT NOT NULL CHECK (tier >= 0 AND tier <= 5),
  quantity_owned INT NOT NULL DEFAULT 0,
  design_counts JSONB NOT NULL DEFAULT '{}'::jsonb,
  upgrades_rare INT NOT NULL DEFAULT 0,
  upgrades_ultra INT NOT NULL DEFAULT 0,
  activation TEXT NOT NULL DEFAULT '',
  rights_expiry TIMESTAMPTZ NULL,
  claim_budget_eur DOUBLE PRECISION NOT NULL DEFAULT 0,
  claim_used_eur DOUBLE PRECISION NOT NULL DEFAULT 0,
  discount_budget_eur DOUBLE PRECISION NOT NULL DEFAULT 0,
  discount_used_eur DOUBLE PRECISION NOT NULL DEFAULT 0,
  invite_granted BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (buyer_id, tier)
);

CREATE INDEX IF NOT EXISTS idx_purchase_records_rights_expiry
  ON purchase_records (rights_expiry);
`

const MintRecordsTableDDL = `
CREATE TABLE IF NOT EXISTS mint_records (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  tx_signature TEXT NOT NULL,
  network TEXT NOT NULL,
  tier SMALLINT NOT NULL CHECK (tier >= 0 AND tier <= 5),
  design_choice SMALLINT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  mint TEXT NOT NULL DEFAULT '',
  metadata_uri TEXT NOT NULL DEFAULT '',
  tier_code TEXT NOT NULL DEFAULT '',
  serial INT NOT NULL DEFAULT 0,
  design_key INT NOT NULL DEFAULT 0,
  collector_id TEXT NOT NULL DEFAULT ''
);

-- enrichment scan: pending records, oldest first
CREATE INDEX IF NOT EXISTS idx_mint_records_pending
  ON mint_records (created_at) WHERE collector_id = '';
`
