// internal/application/usecase/entitlement_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	entdom "presale/internal/domain/entitlement"
	identitydom "presale/internal/domain/identity"
	tierdom "presale/internal/domain/tier"
)

// ============================================================
// EntitlementUsecase
// ============================================================
//
// All ledger mutations go through Repository.Mutate so the
// read-check-increment is atomic per (buyer, tier). The usecase itself
// holds no per-buyer state.

var ErrResetForbidden = errors.New("usecase: ledger reset is not available in production")

// RecordPurchaseInput is one completed purchase as reported by the
// storefront after the on-chain mint finished.
type RecordPurchaseInput struct {
	Quantity        uint32
	PriceEurPerUnit float64

	// Flex tiers only; empty keeps the previous choice.
	ActivationChoice string

	// Optional buyer-picked design variant (multi-design tiers).
	DesignID *int

	// On-chain reference for the later enrichment pass. Empty signature
	// means the mint reference is recorded elsewhere (test flows).
	TxSignature  string
	Network      identitydom.Network
	DesignChoice *int
}

type EntitlementUsecase struct {
	ledger  entdom.Repository
	mints   identitydom.Repository
	lottery *entdom.Lottery
	env     string
	nowFn   func() time.Time
}

func NewEntitlementUsecase(
	ledger entdom.Repository,
	mints identitydom.Repository,
	lottery *entdom.Lottery,
	env string,
) *EntitlementUsecase {
	return &EntitlementUsecase{
		ledger:  ledger,
		mints:   mints,
		lottery: lottery,
		env:     strings.TrimSpace(strings.ToLower(env)),
		nowFn:   time.Now,
	}
}

// WithClock overrides the time source (tests).
func (u *EntitlementUsecase) WithClock(now func() time.Time) *EntitlementUsecase {
	u.nowFn = now
	return u
}

// RecordPurchase applies one purchase event to the buyer's per-tier record
// and, when a transaction signature is supplied, appends the mint record
// feeding the enrichment pass.
func (u *EntitlementUsecase) RecordPurchase(ctx context.Context, buyerID string, t tierdom.Tier, in RecordPurchaseInput) (entdom.PurchaseRecord, error) {
	if _, err := tierdom.FromOrdinal(int(t)); err != nil {
		return entdom.PurchaseRecord{}, err
	}

	var choice *entdom.Activation
	if s := strings.TrimSpace(in.ActivationChoice); s != "" {
		a, err := entdom.ParseActivation(s)
		if err != nil {
			return entdom.PurchaseRecord{}, err
		}
		choice = &a
	}

	now := u.nowFn()
	rec, err := u.ledger.Mutate(ctx, buyerID, t, func(rec *entdom.PurchaseRecord) error {
		return rec.ApplyPurchase(entdom.Purchase{
			Quantity:         in.Quantity,
			PriceEurPerUnit:  in.PriceEurPerUnit,
			ActivationChoice: choice,
			DesignID:         in.DesignID,
			Now:              now,
		}, u.lottery)
	})
	if err != nil {
		return entdom.PurchaseRecord{}, err
	}

	// The ledger update is the source of truth; a failed mint-record
	// append must not roll back the purchase. It is surfaced to the
	// caller instead.
	if sig := strings.TrimSpace(in.TxSignature); sig != "" && u.mints != nil {
		mr, err := identitydom.NewMintRecord("", buyerID, identitydom.MintReference{
			TxSignature:  sig,
			Network:      in.Network,
			TierID:       int(t),
			DesignChoice: in.DesignChoice,
		}, now)
		if err != nil {
			return rec, fmt.Errorf("usecase: mint record for %s: %w", sig, err)
		}
		if _, err := u.mints.Create(ctx, mr); err != nil {
			return rec, fmt.Errorf("usecase: store mint record for %s: %w", sig, err)
		}
	}
	return rec, nil
}

// SpendClaim converts amountEur of claim budget into tokens at the TGE
// reference price.
func (u *EntitlementUsecase) SpendClaim(ctx context.Context, buyerID string, t tierdom.Tier, amountEur float64) (uint64, entdom.PurchaseRecord, error) {
	var tokens uint64
	now := u.nowFn()
	rec, err := u.ledger.Mutate(ctx, buyerID, t, func(rec *entdom.PurchaseRecord) error {
		var err error
		tokens, err = rec.SpendClaim(amountEur, now)
		return err
	})
	if err != nil {
		return 0, entdom.PurchaseRecord{}, err
	}
	return tokens, rec, nil
}

// SpendDiscount buys tokens at the discount-adjusted price from the
// discount budget.
func (u *EntitlementUsecase) SpendDiscount(ctx context.Context, buyerID string, t tierdom.Tier, amountEur float64) (uint64, entdom.PurchaseRecord, error) {
	var tokens uint64
	now := u.nowFn()
	rec, err := u.ledger.Mutate(ctx, buyerID, t, func(rec *entdom.PurchaseRecord) error {
		var err error
		tokens, err = rec.SpendDiscount(amountEur, now)
		return err
	})
	if err != nil {
		return 0, entdom.PurchaseRecord{}, err
	}
	return tokens, rec, nil
}

// Snapshot returns the derived entitlement view for one tier.
func (u *EntitlementUsecase) Snapshot(ctx context.Context, buyerID string, t tierdom.Tier) (entdom.Snapshot, error) {
	rec, err := u.ledger.Get(ctx, buyerID, t)
	if err != nil {
		return entdom.Snapshot{}, err
	}
	return rec.Snapshot(u.nowFn()), nil
}

// SnapshotAll returns snapshots for every tier the buyer holds.
func (u *EntitlementUsecase) SnapshotAll(ctx context.Context, buyerID string) ([]entdom.Snapshot, error) {
	recs, err := u.ledger.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	now := u.nowFn()
	out := make([]entdom.Snapshot, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].Snapshot(now))
	}
	return out, nil
}

// GrantInvite sets the WS-20 invite flag for a buyer, creating the
// founding record if absent.
func (u *EntitlementUsecase) GrantInvite(ctx context.Context, buyerID string) (entdom.PurchaseRecord, error) {
	return u.ledger.Mutate(ctx, buyerID, tierdom.WS20, func(rec *entdom.PurchaseRecord) error {
		rec.InviteGranted = true
		return nil
	})
}

// Reset zeroes a record. Refused outright in production.
func (u *EntitlementUsecase) Reset(ctx context.Context, buyerID string, t tierdom.Tier) (entdom.PurchaseRecord, error) {
	if u.env == "production" {
		return entdom.PurchaseRecord{}, ErrResetForbidden
	}
	now := u.nowFn()
	return u.ledger.Mutate(ctx, buyerID, t, func(rec *entdom.PurchaseRecord) error {
		rec.Reset(now)
		return nil
	})
}
