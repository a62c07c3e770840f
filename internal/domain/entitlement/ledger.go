// internal/domain/entitlement/ledger.go
package entitlement

import (
	"fmt"
	"math"
	"time"

	tierdom "presale/internal/domain/tier"
)

// budgetEpsilon absorbs float64 representation noise in EUR comparisons.
// A spend of exactly the remaining budget must succeed; one cent over must
// fail.
const budgetEpsilon = 1e-9

// Purchase is one completed purchase event to be applied to a record.
type Purchase struct {
	Quantity        uint32
	PriceEurPerUnit float64

	// ActivationChoice is honored for flex tiers only. Nil keeps the
	// record's previous choice (or the Discount100 default on first
	// purchase).
	ActivationChoice *Activation

	// DesignID is the buyer-picked variant for multi-design tiers. Nil or
	// invalid falls back to the weighted rarity draw.
	DesignID *int

	Now time.Time
}

// ApplyPurchase mutates the record with one purchase event. Budgets are
// added, never replaced; the rights expiry only ever extends; the rarity
// lottery runs once per unit for bronze/silver. The caller must hold the
// per-key lock (Repository.Mutate).
func (r *PurchaseRecord) ApplyPurchase(p Purchase, lot *Lottery) error {
	if p.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if p.PriceEurPerUnit < 0 || math.IsNaN(p.PriceEurPerUnit) || math.IsInf(p.PriceEurPerUnit, 0) {
		return ErrInvalidPrice
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	t := r.Tier
	switch t.ActivationKind() {
	case tierdom.ActivationNone:
		// WS-20 founding: invite gated, one unit per buyer, flat budgets.
		if !r.InviteGranted {
			return ErrInviteRequired
		}
		if r.QuantityOwned >= 1 {
			return ErrAlreadyOwned
		}
		if p.Quantity != 1 {
			return fmt.Errorf("%w: founding tier is a single unit", ErrInvalidQuantity)
		}
		r.Activation = FixedActivation
		r.ClaimBudgetEur += tierdom.WS20GiftBudgetEur
		r.DiscountBudgetEur += tierdom.WS20DiscountBudgetEur

	case tierdom.ActivationFixed:
		claimShare, discountShare, err := t.FixedShares()
		if err != nil {
			return err
		}
		r.Activation = FixedActivation
		spend := float64(p.Quantity) * p.PriceEurPerUnit
		r.ClaimBudgetEur += spend * claimShare
		r.DiscountBudgetEur += spend * discountShare

	default: // flex
		if p.ActivationChoice != nil {
			switch *p.ActivationChoice {
			case Claim100, Split50, Discount100:
				r.Activation = *p.ActivationChoice
			default:
				return ErrInvalidActivation
			}
		} else if r.Activation == ActivationUnset {
			r.Activation = Discount100
		}
		claimShare, discountShare := r.Activation.shares()
		spend := float64(p.Quantity) * p.PriceEurPerUnit
		r.ClaimBudgetEur += spend * claimShare
		r.DiscountBudgetEur += spend * discountShare
	}

	// Rolling one-year window, monotonic non-decreasing. The founding
	// tier never expires.
	if t != tierdom.WS20 {
		candidate := now.Add(RightsWindow)
		if r.RightsExpiry == nil || candidate.After(*r.RightsExpiry) {
			r.RightsExpiry = &candidate
		}
	}

	// Per-unit draws: rarity upgrade (bronze/silver only) and design
	// variant for multi-design tiers.
	designs := t.Designs()
	for i := uint32(0); i < p.Quantity; i++ {
		if t.SupportsRarityUpgrade() && lot != nil {
			switch lot.DrawUpgrade() {
			case UpgradeUltra:
				r.Upgrades.Ultra++
			case UpgradeRare:
				r.Upgrades.Rare++
			}
		}
		if len(designs) > 0 {
			id := 0
			if p.DesignID != nil && t.ValidDesignID(*p.DesignID) {
				id = *p.DesignID
			} else if lot != nil {
				id = lot.DrawDesign(designs)
			} else {
				id = designs[0].ID
			}
			if r.DesignCounts == nil {
				r.DesignCounts = map[int]uint32{}
			}
			r.DesignCounts[id]++
		}
	}

	r.QuantityOwned += p.Quantity
	r.UpdatedAt = now
	return nil
}

// SpendClaim debits amountEur from the claim budget and returns the token
// amount at the public TGE reference price. The stored EUR accounting
// stays exact; only the returned token count is floored.
func (r *PurchaseRecord) SpendClaim(amountEur float64, now time.Time) (uint64, error) {
	if amountEur <= 0 || math.IsNaN(amountEur) || math.IsInf(amountEur, 0) {
		return 0, ErrInvalidAmount
	}
	if r.ClaimUsedEur+amountEur > r.ClaimBudgetEur+budgetEpsilon {
		return 0, ErrInsufficientClaimBudget
	}
	r.ClaimUsedEur += amountEur
	r.UpdatedAt = now.UTC()
	return uint64(math.Floor(amountEur / tierdom.TGEReferencePriceEur)), nil
}

// SpendDiscount debits amountEur from the discount budget and returns the
// token amount at the discount-adjusted price: the buyer pays less per
// token, so each EUR buys proportionally more tokens. Expiry is checked
// before the budget.
func (r *PurchaseRecord) SpendDiscount(amountEur float64, now time.Time) (uint64, error) {
	if amountEur <= 0 || math.IsNaN(amountEur) || math.IsInf(amountEur, 0) {
		return 0, ErrInvalidAmount
	}
	if r.RightsExpiry != nil && now.After(*r.RightsExpiry) {
		return 0, ErrRightsExpired
	}
	if r.DiscountUsedEur+amountEur > r.DiscountBudgetEur+budgetEpsilon {
		return 0, ErrInsufficientDiscountBudget
	}
	r.DiscountUsedEur += amountEur
	r.UpdatedAt = now.UTC()

	pct := r.EffectiveDiscountPct()
	unit := tierdom.TGEReferencePriceEur * (1 - float64(pct)/100)
	return uint64(math.Floor(amountEur / unit)), nil
}

// EffectiveDiscountPct recomputes the discount percentage from the current
// upgrade counts: any ultra forces 50%, any rare (without ultra) forces
// 40%, otherwise the tier default applies.
func (r *PurchaseRecord) EffectiveDiscountPct() int {
	switch {
	case r.Upgrades.Ultra > 0:
		return UltraDiscountPct
	case r.Upgrades.Rare > 0:
		return RareDiscountPct
	default:
		return r.Tier.DefaultDiscountPct()
	}
}

// Snapshot computes the current entitlement view. Pure read.
func (r *PurchaseRecord) Snapshot(now time.Time) Snapshot {
	now = now.UTC()
	claimAvail := r.ClaimBudgetEur - r.ClaimUsedEur
	if claimAvail < 0 {
		claimAvail = 0
	}
	discountAvail := r.DiscountBudgetEur - r.DiscountUsedEur
	if discountAvail < 0 {
		discountAvail = 0
	}

	s := Snapshot{
		Tier:                 r.Tier,
		Activation:           r.Activation,
		QuantityOwned:        r.QuantityOwned,
		Upgrades:             r.Upgrades,
		ClaimBudgetEur:       r.ClaimBudgetEur,
		ClaimUsedEur:         r.ClaimUsedEur,
		ClaimAvailableEur:    claimAvail,
		ClaimAvailableTokens: uint64(math.Floor(claimAvail / tierdom.TGEReferencePriceEur)),
		DiscountBudgetEur:    r.DiscountBudgetEur,
		DiscountUsedEur:      r.DiscountUsedEur,
		DiscountAvailableEur: discountAvail,
		DiscountPctEffective: r.EffectiveDiscountPct(),
	}
	if r.Tier != tierdom.WS20 && r.RightsExpiry != nil {
		exp := *r.RightsExpiry
		s.ExpiresAt = &exp
		days := int(math.Ceil(exp.Sub(now).Hours() / 24))
		if days < 0 {
			days = 0
		}
		s.DaysRemaining = &days
	}
	return s
}

// Reset zeroes the record. Test/admin flows only; production callers are
// rejected at the usecase boundary.
func (r *PurchaseRecord) Reset(now time.Time) {
	r.QuantityOwned = 0
	r.DesignCounts = map[int]uint32{}
	r.Upgrades = Upgrades{}
	r.Activation = ActivationUnset
	r.RightsExpiry = nil
	r.ClaimBudgetEur = 0
	r.ClaimUsedEur = 0
	r.DiscountBudgetEur = 0
	r.DiscountUsedEur = 0
	r.UpdatedAt = now.UTC()
}
