// internal/domain/entitlement/ledger_test.go
package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tierdom "presale/internal/domain/tier"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRecord(t *testing.T, tr tierdom.Tier) *PurchaseRecord {
	t.Helper()
	rec, err := NewPurchaseRecord("buyer-1", tr, t0)
	require.NoError(t, err)
	return &rec
}

func activation(a Activation) *Activation { return &a }

func TestApplyPurchaseSplit50(t *testing.T) {
	rec := newRecord(t, tierdom.Bronze)

	// 3 bronze units at the 50 EUR list price under Split50: 75 EUR to each
	// channel.
	err := rec.ApplyPurchase(Purchase{
		Quantity:         3,
		PriceEurPerUnit:  50,
		ActivationChoice: activation(Split50),
		Now:              t0,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), rec.QuantityOwned)
	assert.Equal(t, Split50, rec.Activation)
	assert.InDelta(t, 75, rec.ClaimBudgetEur, 1e-9)
	assert.InDelta(t, 75, rec.DiscountBudgetEur, 1e-9)

	require.NotNil(t, rec.RightsExpiry)
	assert.Equal(t, t0.Add(RightsWindow), *rec.RightsExpiry)

	// Bronze has a single design; every unit lands on it.
	assert.Equal(t, uint32(3), rec.DesignCounts[1])
}

func TestApplyPurchaseDefaultsToDiscount100(t *testing.T) {
	rec := newRecord(t, tierdom.TreeSteel)

	one := 1
	err := rec.ApplyPurchase(Purchase{
		Quantity:        2,
		PriceEurPerUnit: 25,
		DesignID:        &one,
		Now:             t0,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, Discount100, rec.Activation)
	assert.Zero(t, rec.ClaimBudgetEur)
	assert.InDelta(t, 50, rec.DiscountBudgetEur, 1e-9)
	assert.Equal(t, uint32(2), rec.DesignCounts[1])
}

func TestApplyPurchaseKeepsPreviousChoice(t *testing.T) {
	rec := newRecord(t, tierdom.Bronze)

	require.NoError(t, rec.ApplyPurchase(Purchase{
		Quantity:         1,
		PriceEurPerUnit:  50,
		ActivationChoice: activation(Claim100),
		Now:              t0,
	}, nil))
	// Second purchase without a choice inherits Claim100.
	require.NoError(t, rec.ApplyPurchase(Purchase{
		Quantity:        1,
		PriceEurPerUnit: 50,
		Now:             t0.Add(time.Hour),
	}, nil))

	assert.Equal(t, Claim100, rec.Activation)
	assert.InDelta(t, 100, rec.ClaimBudgetEur, 1e-9)
	assert.Zero(t, rec.DiscountBudgetEur)
}

func TestApplyPurchaseFixedShares(t *testing.T) {
	gold := newRecord(t, tierdom.Gold)
	require.NoError(t, gold.ApplyPurchase(Purchase{Quantity: 1, PriceEurPerUnit: 1000, Now: t0}, nil))
	assert.Equal(t, FixedActivation, gold.Activation)
	assert.InDelta(t, 300, gold.ClaimBudgetEur, 1e-9)
	assert.InDelta(t, 700, gold.DiscountBudgetEur, 1e-9)

	// A flex choice on a fixed tier is ignored, not an error.
	platinum := newRecord(t, tierdom.Platinum)
	require.NoError(t, platinum.ApplyPurchase(Purchase{
		Quantity:         2,
		PriceEurPerUnit:  5000,
		ActivationChoice: activation(Claim100),
		Now:              t0,
	}, nil))
	assert.Equal(t, FixedActivation, platinum.Activation)
	assert.InDelta(t, 2000, platinum.ClaimBudgetEur, 1e-9)
	assert.InDelta(t, 8000, platinum.DiscountBudgetEur, 1e-9)
}

func TestApplyPurchaseFounding(t *testing.T) {
	rec := newRecord(t, tierdom.WS20)

	err := rec.ApplyPurchase(Purchase{Quantity: 1, Now: t0}, nil)
	assert.ErrorIs(t, err, ErrInviteRequired)

	rec.InviteGranted = true
	err = rec.ApplyPurchase(Purchase{Quantity: 2, Now: t0}, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	require.NoError(t, rec.ApplyPurchase(Purchase{Quantity: 1, Now: t0}, nil))
	assert.Equal(t, uint32(1), rec.QuantityOwned)
	assert.InDelta(t, tierdom.WS20GiftBudgetEur, rec.ClaimBudgetEur, 1e-9)
	assert.InDelta(t, tierdom.WS20DiscountBudgetEur, rec.DiscountBudgetEur, 1e-9)
	assert.Nil(t, rec.RightsExpiry, "founding rights never expire")

	err = rec.ApplyPurchase(Purchase{Quantity: 1, Now: t0}, nil)
	assert.ErrorIs(t, err, ErrAlreadyOwned)
}

func TestApplyPurchaseRejectsBadInput(t *testing.T) {
	rec := newRecord(t, tierdom.Bronze)

	assert.ErrorIs(t, rec.ApplyPurchase(Purchase{Quantity: 0, PriceEurPerUnit: 50, Now: t0}, nil), ErrInvalidQuantity)
	assert.ErrorIs(t, rec.ApplyPurchase(Purchase{Quantity: 1, PriceEurPerUnit: -1, Now: t0}, nil), ErrInvalidPrice)

	bad := Activation("half")
	assert.ErrorIs(t, rec.ApplyPurchase(Purchase{
		Quantity:         1,
		PriceEurPerUnit:  50,
		ActivationChoice: &bad,
		Now:              t0,
	}, nil), ErrInvalidActivation)

	// Nothing was applied.
	assert.Zero(t, rec.QuantityOwned)
	assert.Zero(t, rec.DiscountBudgetEur)
}

func TestExpiryExtendsMonotonically(t *testing.T) {
	rec := newRecord(t, tierdom.Silver)

	require.NoError(t, rec.ApplyPurchase(Purchase{Quantity: 1, PriceEurPerUnit: 250, Now: t0}, nil))
	first := *rec.RightsExpiry

	// A purchase recorded with an earlier clock must not shorten the window.
	require.NoError(t, rec.ApplyPurchase(Purchase{Quantity: 1, PriceEurPerUnit: 250, Now: t0.Add(-10 * 24 * time.Hour)}, nil))
	assert.Equal(t, first, *rec.RightsExpiry)

	// A later purchase extends it.
	require.NoError(t, rec.ApplyPurchase(Purchase{Quantity: 1, PriceEurPerUnit: 250, Now: t0.Add(30 * 24 * time.Hour)}, nil))
	assert.Equal(t, t0.Add(30*24*time.Hour).Add(RightsWindow), *rec.RightsExpiry)
}

func TestRarityCountsNeverExceedQuantity(t *testing.T) {
	rec := newRecord(t, tierdom.Silver)
	lot := NewLottery(1)

	require.NoError(t, rec.ApplyPurchase(Purchase{Quantity: 500, PriceEurPerUnit: 250, Now: t0}, lot))

	assert.LessOrEqual(t, rec.Upgrades.Rare+rec.Upgrades.Ultra, rec.QuantityOwned)

	var designTotal uint32
	for id, n := range rec.DesignCounts {
		assert.True(t, tierdom.Silver.ValidDesignID(id), "design %d", id)
		designTotal += n
	}
	assert.Equal(t, rec.QuantityOwned, designTotal)
}

func TestSpendClaim(t *testing.T) {
	rec := newRecord(t, tierdom.Bronze)
	require.NoError(t, rec.ApplyPurchase(Purchase{
		Quantity:         3,
		PriceEurPerUnit:  50,
		ActivationChoice: activation(Split50),
		Now:              t0,
	}, nil))

	// Exactly the remaining budget must succeed: 75 EUR at the 0.05 EUR
	// reference price is 1500 tokens.
	tokens, err := rec.SpendClaim(75, t0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), tokens)
	assert.InDelta(t, 75, rec.ClaimUsedEur, 1e-9)

	// One cent over the (now exhausted) budget is rejected, not clamped.
	_, err = rec.SpendClaim(0.01, t0)
	assert.ErrorIs(t, err, ErrInsufficientClaimBudget)
	assert.InDelta(t, 75, rec.ClaimUsedEur, 1e-9, "failed spend must not debit")

	_, err = rec.SpendClaim(0, t0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = rec.SpendClaim(-5, t0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSpendClaimManySmallSpends(t *testing.T) {
	rec := newRecord(t, tierdom.Bronze)
	require.NoError(t, rec.ApplyPurchase(Purchase{
		Quantity:         1,
		PriceEurPerUnit:  50,
		ActivationChoice: activation(Claim100),
		Now:              t0,
	}, nil))

	// 500 spends of 0.10 EUR accumulate float noise; the epsilon keeps the
	// final exact-boundary spend valid.
	for i := 0; i < 500; i++ {
		_, err := rec.SpendClaim(0.10, t0)
		require.NoError(t, err, "spend %d", i)
	}
	_, err := rec.SpendClaim(0.10, t0)
	assert.ErrorIs(t, err, ErrInsufficientClaimBudget)
}

func TestSpendDiscount(t *testing.T) {
	rec := newRecord(t, tierdom.Bronze)
	require.NoError(t, rec.ApplyPurchase(Purchase{
		Quantity:        3,
		PriceEurPerUnit: 50,
		Now:             t0, // Discount100 default: 150 EUR discount budget
	}, nil))

	// Bronze default 25% off the 0.05 reference price: 0.0375 EUR per
	// token, so 75 EUR buys about 2000 tokens.
	tokens, err := rec.SpendDiscount(75, t0)
	require.NoError(t, err)
	assert.InDelta(t, 2000, float64(tokens), 1)

	_, err = rec.SpendDiscount(80, t0)
	assert.ErrorIs(t, err, ErrInsufficientDiscountBudget)

	// Expiry is checked before the budget.
	expired := t0.Add(RightsWindow + time.Hour)
	_, err = rec.SpendDiscount(10, expired)
	assert.ErrorIs(t, err, ErrRightsExpired)
}

func TestEffectiveDiscountPct(t *testing.T) {
	rec := newRecord(t, tierdom.Bronze)
	assert.Equal(t, 25, rec.EffectiveDiscountPct())

	rec.Upgrades.Rare = 1
	assert.Equal(t, RareDiscountPct, rec.EffectiveDiscountPct())

	// Ultra wins over rare.
	rec.Upgrades.Ultra = 1
	assert.Equal(t, UltraDiscountPct, rec.EffectiveDiscountPct())
}

func TestSnapshot(t *testing.T) {
	rec := newRecord(t, tierdom.Bronze)
	require.NoError(t, rec.ApplyPurchase(Purchase{
		Quantity:         2,
		PriceEurPerUnit:  50,
		ActivationChoice: activation(Split50),
		Now:              t0,
	}, nil))
	_, err := rec.SpendClaim(20, t0)
	require.NoError(t, err)

	s := rec.Snapshot(t0.Add(100 * 24 * time.Hour))
	assert.Equal(t, tierdom.Bronze, s.Tier)
	assert.Equal(t, uint32(2), s.QuantityOwned)
	assert.InDelta(t, 50, s.ClaimBudgetEur, 1e-9)
	assert.InDelta(t, 20, s.ClaimUsedEur, 1e-9)
	assert.InDelta(t, 30, s.ClaimAvailableEur, 1e-9)
	assert.InDelta(t, 600, float64(s.ClaimAvailableTokens), 1)
	assert.InDelta(t, 50, s.DiscountAvailableEur, 1e-9)
	assert.Equal(t, 25, s.DiscountPctEffective)

	require.NotNil(t, s.ExpiresAt)
	require.NotNil(t, s.DaysRemaining)
	assert.Equal(t, t0.Add(RightsWindow), *s.ExpiresAt)
	assert.Equal(t, 265, *s.DaysRemaining)
}

func TestSnapshotFoundingHasNoExpiry(t *testing.T) {
	rec := newRecord(t, tierdom.WS20)
	rec.InviteGranted = true
	require.NoError(t, rec.ApplyPurchase(Purchase{Quantity: 1, Now: t0}, nil))

	s := rec.Snapshot(t0)
	assert.Nil(t, s.ExpiresAt)
	assert.Nil(t, s.DaysRemaining)
	assert.Equal(t, 40, s.DiscountPctEffective)
}

func TestReset(t *testing.T) {
	rec := newRecord(t, tierdom.Bronze)
	require.NoError(t, rec.ApplyPurchase(Purchase{Quantity: 2, PriceEurPerUnit: 50, Now: t0}, nil))
	_, err := rec.SpendDiscount(10, t0)
	require.NoError(t, err)

	rec.Reset(t0.Add(time.Hour))

	assert.Zero(t, rec.QuantityOwned)
	assert.Empty(t, rec.DesignCounts)
	assert.Zero(t, rec.Upgrades)
	assert.Equal(t, ActivationUnset, rec.Activation)
	assert.Nil(t, rec.RightsExpiry)
	assert.Zero(t, rec.DiscountBudgetEur)
	assert.Zero(t, rec.DiscountUsedEur)
}

func TestNewPurchaseRecordValidation(t *testing.T) {
	_, err := NewPurchaseRecord("", tierdom.Bronze, t0)
	assert.ErrorIs(t, err, ErrInvalidBuyer)

	_, err = NewPurchaseRecord("b", tierdom.Tier(42), t0)
	assert.ErrorIs(t, err, tierdom.ErrUnknownTier)
}
