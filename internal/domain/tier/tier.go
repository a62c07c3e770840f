// internal/domain/tier/tier.go
package tier

import (
	"errors"
	"fmt"
	"strings"
)

// ------------------------------------------------------
// Tier: closed enumeration of the six presale classes.
// ------------------------------------------------------
//
// The web catalog, the identity deriver and the entitlement ledger all
// consume this single taxonomy. Ordinals are wire-visible (they appear in
// recorded mint references), so the order below must never change.
type Tier int

const (
	TreeSteel Tier = iota // 0
	Bronze                // 1
	Silver                // 2
	Gold                  // 3
	Platinum              // 4
	WS20                  // 5 (Founding / invite-only)
)

// Code is the short collector-ID prefix engraved into every collector ID.
type Code string

const (
	CodeTR Code = "TR" // TreeSteel, design 1 (tree)
	CodeFE Code = "FE" // TreeSteel, design 2 (steel)
	CodeCU Code = "CU" // Bronze
	CodeAG Code = "AG" // Silver
	CodeAU Code = "AU" // Gold
	CodePT Code = "PT" // Platinum
	CodeWS Code = "WS" // WS-20 Founding
)

// ActivationKind tells the ledger how a tier splits purchase value.
type ActivationKind int

const (
	// ActivationFlex: buyer picks Claim100 / Split50 / Discount100.
	ActivationFlex ActivationKind = iota
	// ActivationFixed: split percentages are tier constants.
	ActivationFixed
	// ActivationNone: invite-only, flat budgets (WS-20).
	ActivationNone
)

// Design is one visual/metadata variant of a tier. Weight drives the
// rarity-weighted draw when the buyer does not pick a variant.
type Design struct {
	ID     int `json:"id"`
	Weight int `json:"weight"`
}

// Errors
var (
	ErrUnknownTier        = errors.New("tier: unknown tier")
	ErrUnknownSlug        = errors.New("tier: unknown slug")
	ErrUnknownCode        = errors.New("tier: unknown code")
	ErrIncompatibleCode   = errors.New("tier: code not valid for slug")
	ErrBadDesignChoice    = errors.New("tier: design choice must be 1 or 2")
	ErrInvalidSerial      = errors.New("tier: serial must be >= 1")
	ErrNoFixedShares      = errors.New("tier: tier has no fixed shares")
	ErrInvalidDesignID    = errors.New("tier: design id not valid for tier")
)

// TGEReferencePriceEur is the public token-generation-event price used to
// convert EUR claim budget into token amounts.
const TGEReferencePriceEur = 0.05

// WS-20 flat budgets (price is zero for the founding tier, so budgets are
// not proportional to spend).
const (
	WS20GiftBudgetEur     = 1000.0
	WS20DiscountBudgetEur = 5000.0
)

// All returns the tiers in ordinal order.
func All() []Tier {
	return []Tier{TreeSteel, Bronze, Silver, Gold, Platinum, WS20}
}

// FromOrdinal maps a recorded numeric tier id back to a Tier.
func FromOrdinal(n int) (Tier, error) {
	if n < 0 || n > int(WS20) {
		return 0, fmt.Errorf("%w: ordinal %d", ErrUnknownTier, n)
	}
	return Tier(n), nil
}

// FromSlug maps a metadata-path slug to a Tier.
func FromSlug(slug string) (Tier, error) {
	switch strings.TrimSpace(slug) {
	case "tree-steel":
		return TreeSteel, nil
	case "bronze":
		return Bronze, nil
	case "silver":
		return Silver, nil
	case "gold":
		return Gold, nil
	case "platinum":
		return Platinum, nil
	case "ws-20":
		return WS20, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSlug, slug)
	}
}

// FromCode maps a collector-ID code to its Tier. TR and FE both belong to
// TreeSteel.
func FromCode(code Code) (Tier, error) {
	switch code {
	case CodeTR, CodeFE:
		return TreeSteel, nil
	case CodeCU:
		return Bronze, nil
	case CodeAG:
		return Silver, nil
	case CodeAU:
		return Gold, nil
	case CodePT:
		return Platinum, nil
	case CodeWS:
		return WS20, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCode, code)
	}
}

func (t Tier) String() string {
	switch t {
	case TreeSteel:
		return "TreeSteel"
	case Bronze:
		return "Bronze"
	case Silver:
		return "Silver"
	case Gold:
		return "Gold"
	case Platinum:
		return "Platinum"
	case WS20:
		return "WS20"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Slug is the path segment used under /metadata/nft/.
func (t Tier) Slug() string {
	switch t {
	case TreeSteel:
		return "tree-steel"
	case Bronze:
		return "bronze"
	case Silver:
		return "silver"
	case Gold:
		return "gold"
	case Platinum:
		return "platinum"
	case WS20:
		return "ws-20"
	default:
		return ""
	}
}

// ResolveCode returns the collector-ID code for the tier. TreeSteel is the
// only tier with two codes; it requires designChoice 1 (TR) or 2 (FE).
func (t Tier) ResolveCode(designChoice *int) (Code, error) {
	switch t {
	case TreeSteel:
		if designChoice == nil {
			return "", ErrBadDesignChoice
		}
		switch *designChoice {
		case 1:
			return CodeTR, nil
		case 2:
			return CodeFE, nil
		default:
			return "", fmt.Errorf("%w: got %d", ErrBadDesignChoice, *designChoice)
		}
	case Bronze:
		return CodeCU, nil
	case Silver:
		return CodeAG, nil
	case Gold:
		return CodeAU, nil
	case Platinum:
		return CodePT, nil
	case WS20:
		return CodeWS, nil
	default:
		return "", ErrUnknownTier
	}
}

// CodeCompatible reports whether a collector-ID code may appear under the
// tier's metadata slug.
func (t Tier) CodeCompatible(code Code) bool {
	ct, err := FromCode(code)
	return err == nil && ct == t
}

// DesignKey computes the design key for a (tier, serial) pair. The rule is
// fixed per tier and must agree bit-for-bit whether it is computed from a
// metadata URI or from a recorded mint transaction:
//
//   - TreeSteel     : 1 for TR, 2 for FE (taken from designChoice)
//   - Bronze        : always 1
//   - Silver        : ((serial-1) mod 10) + 1
//   - Gold/Platinum/WS20 : the serial itself
func (t Tier) DesignKey(serial uint32, designChoice *int) (uint32, error) {
	if serial < 1 {
		return 0, ErrInvalidSerial
	}
	switch t {
	case TreeSteel:
		if designChoice == nil || (*designChoice != 1 && *designChoice != 2) {
			return 0, ErrBadDesignChoice
		}
		return uint32(*designChoice), nil
	case Bronze:
		return 1, nil
	case Silver:
		return ((serial - 1) % 10) + 1, nil
	case Gold, Platinum, WS20:
		return serial, nil
	default:
		return 0, ErrUnknownTier
	}
}

// DesignKeyWidth is the zero-pad width of the design segment in a
// collector ID: 2 digits for the low tiers, 3 for serial-keyed tiers.
func (t Tier) DesignKeyWidth() int {
	switch t {
	case Gold, Platinum, WS20:
		return 3
	default:
		return 2
	}
}

// ActivationKind returns how the ledger activates purchases of this tier.
func (t Tier) ActivationKind() ActivationKind {
	switch t {
	case Gold, Platinum:
		return ActivationFixed
	case WS20:
		return ActivationNone
	default:
		// TreeSteel / Bronze / Silver
		return ActivationFlex
	}
}

// FixedShares returns the (claimShare, discountShare) constants of a Fixed
// tier. The two always sum to 1.0.
func (t Tier) FixedShares() (claim, discount float64, err error) {
	switch t {
	case Gold:
		return 0.30, 0.70, nil
	case Platinum:
		return 0.20, 0.80, nil
	default:
		return 0, 0, fmt.Errorf("%w: %s", ErrNoFixedShares, t)
	}
}

// UnitPriceEur is the catalog list price per unit. recordPurchase receives
// the actually-paid price; this is the default shown by the storefront.
func (t Tier) UnitPriceEur() float64 {
	switch t {
	case TreeSteel:
		return 25
	case Bronze:
		return 50
	case Silver:
		return 250
	case Gold:
		return 1000
	case Platinum:
		return 5000
	case WS20:
		return 0 // invite-only, never sold
	default:
		return 0
	}
}

// UnitRewardTokens is the fixed per-unit token reward shown on the
// certificate for each tier.
func (t Tier) UnitRewardTokens() uint64 {
	switch t {
	case TreeSteel:
		return 500
	case Bronze:
		return 1000
	case Silver:
		return 5000
	case Gold:
		return 20000
	case Platinum:
		return 100000
	case WS20:
		return 20000
	default:
		return 0
	}
}

// DefaultDiscountPct is the tier's discount percentage before any rarity
// upgrade is applied.
func (t Tier) DefaultDiscountPct() int {
	switch t {
	case TreeSteel:
		return 20
	case Bronze:
		return 25
	case Silver:
		return 30
	case Gold:
		return 30
	case Platinum:
		return 35
	case WS20:
		return 40
	default:
		return 0
	}
}

// Designs lists the declared variants of the tier with their draw weights.
// Serial-keyed tiers (design key == serial) have no enumerable variant list
// and return nil.
func (t Tier) Designs() []Design {
	switch t {
	case TreeSteel:
		return []Design{{ID: 1, Weight: 60}, {ID: 2, Weight: 40}}
	case Bronze:
		return []Design{{ID: 1, Weight: 1}}
	case Silver:
		return []Design{
			{ID: 1, Weight: 20}, {ID: 2, Weight: 16}, {ID: 3, Weight: 14},
			{ID: 4, Weight: 12}, {ID: 5, Weight: 10}, {ID: 6, Weight: 9},
			{ID: 7, Weight: 7}, {ID: 8, Weight: 6}, {ID: 9, Weight: 4},
			{ID: 10, Weight: 2},
		}
	default:
		return nil
	}
}

// ValidDesignID reports whether a caller-specified design variant exists
// for the tier.
func (t Tier) ValidDesignID(id int) bool {
	for _, d := range t.Designs() {
		if d.ID == id {
			return true
		}
	}
	return false
}

// SupportsRarityUpgrade: the per-unit upgrade lottery only runs for the
// bronze and silver classes.
func (t Tier) SupportsRarityUpgrade() bool {
	return t == Bronze || t == Silver
}

// MaxUnitsPerBuyer returns the per-buyer purchase cap, 0 meaning no cap.
func (t Tier) MaxUnitsPerBuyer() int {
	if t == WS20 {
		return 1
	}
	return 0
}
