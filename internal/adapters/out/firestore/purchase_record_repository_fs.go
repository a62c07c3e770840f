// internal/adapters/out/firestore/purchase_record_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	entdom "presale/internal/domain/entitlement"
	tierdom "presale/internal/domain/tier"
)

const purchaseRecordsCollection = "purchase_records"

// PurchaseRecordRepositoryFS implements entitlement.Repository using
// Firestore. Per-key atomicity comes from RunTransaction: the whole
// read-check-increment of Mutate happens inside one transaction on the
// single (buyerId, tier) document.
type PurchaseRecordRepositoryFS struct {
	Client *firestore.Client
}

var _ entdom.Repository = (*PurchaseRecordRepositoryFS)(nil)

func NewPurchaseRecordRepositoryFS(client *firestore.Client) *PurchaseRecordRepositoryFS {
	return &PurchaseRecordRepositoryFS{Client: client}
}

// fsPurchaseRecord は Firestore ドキュメントのスキーマです。
// designCounts のキーは Firestore の制約上 string で保存します。
type fsPurchaseRecord struct {
	BuyerID       string           `firestore:"buyerId"`
	Tier          int              `firestore:"tier"`
	QuantityOwned int64            `firestore:"quantityOwned"`
	DesignCounts  map[string]int64 `firestore:"designCounts"`
	UpgradesRare  int64            `firestore:"upgradesRare"`
	UpgradesUltra int64            `firestore:"upgradesUltra"`
	Activation    string           `firestore:"activation"`
	RightsExpiry  *time.Time       `firestore:"rightsExpiry"`
	ClaimBudget   float64          `firestore:"claimBudgetEur"`
	ClaimUsed     float64          `firestore:"claimUsedEur"`
	DiscountBudget float64         `firestore:"discountBudgetEur"`
	DiscountUsed  float64          `firestore:"discountUsedEur"`
	InviteGranted bool             `firestore:"inviteGranted"`
	CreatedAt     time.Time        `firestore:"createdAt"`
	UpdatedAt     time.Time        `firestore:"updatedAt"`
}

func purchaseRecordDocID(buyerID string, t tierdom.Tier) string {
	return fmt.Sprintf("%s_%d", buyerID, int(t))
}

func (r *PurchaseRecordRepositoryFS) doc(buyerID string, t tierdom.Tier) *firestore.DocumentRef {
	return r.Client.Collection(purchaseRecordsCollection).Doc(purchaseRecordDocID(buyerID, t))
}

func toFSPurchaseRecord(rec entdom.PurchaseRecord) fsPurchaseRecord {
	counts := make(map[string]int64, len(rec.DesignCounts))
	for id, n := range rec.DesignCounts {
		counts[strconv.Itoa(id)] = int64(n)
	}
	return fsPurchaseRecord{
		BuyerID:        rec.BuyerID,
		Tier:           int(rec.Tier),
		QuantityOwned:  int64(rec.QuantityOwned),
		DesignCounts:   counts,
		UpgradesRare:   int64(rec.Upgrades.Rare),
		UpgradesUltra:  int64(rec.Upgrades.Ultra),
		Activation:     string(rec.Activation),
		RightsExpiry:   rec.RightsExpiry,
		ClaimBudget:    rec.ClaimBudgetEur,
		ClaimUsed:      rec.ClaimUsedEur,
		DiscountBudget: rec.DiscountBudgetEur,
		DiscountUsed:   rec.DiscountUsedEur,
		InviteGranted:  rec.InviteGranted,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func (d fsPurchaseRecord) toDomain() (entdom.PurchaseRecord, error) {
	t, err := tierdom.FromOrdinal(d.Tier)
	if err != nil {
		return entdom.PurchaseRecord{}, err
	}
	counts := make(map[int]uint32, len(d.DesignCounts))
	for k, n := range d.DesignCounts {
		id, err := strconv.Atoi(k)
		if err != nil || n < 0 {
			continue
		}
		counts[id] = uint32(n)
	}
	return entdom.PurchaseRecord{
		BuyerID:           d.BuyerID,
		Tier:              t,
		QuantityOwned:     uint32(d.QuantityOwned),
		DesignCounts:      counts,
		Upgrades:          entdom.Upgrades{Rare: uint32(d.UpgradesRare), Ultra: uint32(d.UpgradesUltra)},
		Activation:        entdom.Activation(d.Activation),
		RightsExpiry:      d.RightsExpiry,
		ClaimBudgetEur:    d.ClaimBudget,
		ClaimUsedEur:      d.ClaimUsed,
		DiscountBudgetEur: d.DiscountBudget,
		DiscountUsedEur:   d.DiscountUsed,
		InviteGranted:     d.InviteGranted,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

func (r *PurchaseRecordRepositoryFS) Get(ctx context.Context, buyerID string, t tierdom.Tier) (entdom.PurchaseRecord, error) {
	if r == nil || r.Client == nil {
		return entdom.PurchaseRecord{}, errors.New("firestore client is nil")
	}
	snap, err := r.doc(buyerID, t).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entdom.PurchaseRecord{}, entdom.ErrNotFound
		}
		return entdom.PurchaseRecord{}, err
	}
	var d fsPurchaseRecord
	if err := snap.DataTo(&d); err != nil {
		return entdom.PurchaseRecord{}, fmt.Errorf("decode purchase record: %w", err)
	}
	return d.toDomain()
}

func (r *PurchaseRecordRepositoryFS) ListByBuyer(ctx context.Context, buyerID string) ([]entdom.PurchaseRecord, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("firestore client is nil")
	}
	docs, err := r.Client.Collection(purchaseRecordsCollection).
		Where("buyerId", "==", buyerID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]entdom.PurchaseRecord, 0, len(docs))
	for _, snap := range docs {
		var d fsPurchaseRecord
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode purchase record %s: %w", snap.Ref.ID, err)
		}
		rec, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Mutate runs the read-apply-write cycle in one Firestore transaction.
// Firestore retries the closure on contention, so fn must stay pure over
// the record it receives.
func (r *PurchaseRecordRepositoryFS) Mutate(ctx context.Context, buyerID string, t tierdom.Tier, fn func(rec *entdom.PurchaseRecord) error) (entdom.PurchaseRecord, error) {
	if r == nil || r.Client == nil {
		return entdom.PurchaseRecord{}, errors.New("firestore client is nil")
	}
	ref := r.doc(buyerID, t)

	var out entdom.PurchaseRecord
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var rec entdom.PurchaseRecord

		snap, err := tx.Get(ref)
		switch {
		case err != nil && status.Code(err) == codes.NotFound:
			rec, err = entdom.NewPurchaseRecord(buyerID, t, time.Now())
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			var d fsPurchaseRecord
			if err := snap.DataTo(&d); err != nil {
				return fmt.Errorf("decode purchase record: %w", err)
			}
			rec, err = d.toDomain()
			if err != nil {
				return err
			}
		}

		if err := fn(&rec); err != nil {
			return err
		}
		out = rec
		return tx.Set(ref, toFSPurchaseRecord(rec))
	})
	if err != nil {
		return entdom.PurchaseRecord{}, err
	}
	return out, nil
}

func (r *PurchaseRecordRepositoryFS) ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]entdom.PurchaseRecord, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("firestore client is nil")
	}
	docs, err := r.Client.Collection(purchaseRecordsCollection).
		Where("rightsExpiry", ">", now).
		Where("rightsExpiry", "<=", now.Add(window)).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]entdom.PurchaseRecord, 0, len(docs))
	for _, snap := range docs {
		var d fsPurchaseRecord
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode purchase record %s: %w", snap.Ref.ID, err)
		}
		rec, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
