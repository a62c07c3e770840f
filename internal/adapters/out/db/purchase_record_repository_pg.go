// internal/adapters/out/db/purchase_record_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	entdom "presale/internal/domain/entitlement"
	tierdom "presale/internal/domain/tier"
)

// PG implementation of entitlement.Repository.
//
// Mutate takes a row lock (SELECT ... FOR UPDATE) on the (buyer_id, tier)
// row for the whole read-check-increment: two concurrent spends serialize
// on the row and cannot jointly overspend a budget.
type PurchaseRecordRepositoryPG struct {
	DB *sql.DB
}

var _ entdom.Repository = (*PurchaseRecordRepositoryPG)(nil)

func NewPurchaseRecordRepositoryPG(db *sql.DB) *PurchaseRecordRepositoryPG {
	return &PurchaseRecordRepositoryPG{DB: db}
}

const purchaseRecordColumns = `
  buyer_id, tier, quantity_owned, design_counts,
  upgrades_rare, upgrades_ultra, activation, rights_expiry,
  claim_budget_eur, claim_used_eur, discount_budget_eur, discount_used_eur,
  invite_granted, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchaseRecord(row rowScanner) (entdom.PurchaseRecord, error) {
	var (
		rec          entdom.PurchaseRecord
		tierOrdinal  int
		qty          int64
		countsJSON   []byte
		rare, ultra  int64
		activation   string
		rightsExpiry sql.NullTime
	)
	err := row.Scan(
		&rec.BuyerID, &tierOrdinal, &qty, &countsJSON,
		&rare, &ultra, &activation, &rightsExpiry,
		&rec.ClaimBudgetEur, &rec.ClaimUsedEur, &rec.DiscountBudgetEur, &rec.DiscountUsedEur,
		&rec.InviteGranted, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return entdom.PurchaseRecord{}, err
	}

	t, err := tierdom.FromOrdinal(tierOrdinal)
	if err != nil {
		return entdom.PurchaseRecord{}, err
	}
	rec.Tier = t
	rec.QuantityOwned = uint32(qty)
	rec.Upgrades = entdom.Upgrades{Rare: uint32(rare), Ultra: uint32(ultra)}
	rec.Activation = entdom.Activation(activation)
	if rightsExpiry.Valid {
		exp := rightsExpiry.Time.UTC()
		rec.RightsExpiry = &exp
	}

	rec.DesignCounts = map[int]uint32{}
	if len(countsJSON) > 0 {
		var raw map[string]int64
		if err := json.Unmarshal(countsJSON, &raw); err != nil {
			return entdom.PurchaseRecord{}, fmt.Errorf("decode design_counts: %w", err)
		}
		for k, n := range raw {
			if id, err := strconv.Atoi(k); err == nil && n >= 0 {
				rec.DesignCounts[id] = uint32(n)
			}
		}
	}
	return rec, nil
}

func designCountsJSON(rec entdom.PurchaseRecord) ([]byte, error) {
	raw := make(map[string]int64, len(rec.DesignCounts))
	for id, n := range rec.DesignCounts {
		raw[strconv.Itoa(id)] = int64(n)
	}
	return json.Marshal(raw)
}

func (r *PurchaseRecordRepositoryPG) Get(ctx context.Context, buyerID string, t tierdom.Tier) (entdom.PurchaseRecord, error) {
	q := `SELECT` + purchaseRecordColumns + `
FROM purchase_records WHERE buyer_id = $1 AND tier = $2`
	rec, err := scanPurchaseRecord(r.DB.QueryRowContext(ctx, q, strings.TrimSpace(buyerID), int(t)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entdom.PurchaseRecord{}, entdom.ErrNotFound
		}
		return entdom.PurchaseRecord{}, err
	}
	return rec, nil
}

func (r *PurchaseRecordRepositoryPG) ListByBuyer(ctx context.Context, buyerID string) ([]entdom.PurchaseRecord, error) {
	q := `SELECT` + purchaseRecordColumns + `
FROM purchase_records WHERE buyer_id = $1 ORDER BY tier`
	rows, err := r.DB.QueryContext(ctx, q, strings.TrimSpace(buyerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entdom.PurchaseRecord
	for rows.Next() {
		rec, err := scanPurchaseRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PurchaseRecordRepositoryPG) Mutate(ctx context.Context, buyerID string, t tierdom.Tier, fn func(rec *entdom.PurchaseRecord) error) (entdom.PurchaseRecord, error) {
	buyerID = strings.TrimSpace(buyerID)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return entdom.PurchaseRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	q := `SELECT` + purchaseRecordColumns + `
FROM purchase_records WHERE buyer_id = $1 AND tier = $2 FOR UPDATE`
	rec, err := scanPurchaseRecord(tx.QueryRowContext(ctx, q, buyerID, int(t)))
	inserting := false
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return entdom.PurchaseRecord{}, err
		}
		inserting = true
		rec, err = entdom.NewPurchaseRecord(buyerID, t, time.Now())
		if err != nil {
			return entdom.PurchaseRecord{}, err
		}
	}

	if err := fn(&rec); err != nil {
		return entdom.PurchaseRecord{}, err
	}

	counts, err := designCountsJSON(rec)
	if err != nil {
		return entdom.PurchaseRecord{}, err
	}

	if inserting {
		const ins = `
INSERT INTO purchase_records (` + purchaseRecordColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
		_, err = tx.ExecContext(ctx, ins,
			rec.BuyerID, int(rec.Tier), int64(rec.QuantityOwned), counts,
			int64(rec.Upgrades.Rare), int64(rec.Upgrades.Ultra), string(rec.Activation), rec.RightsExpiry,
			rec.ClaimBudgetEur, rec.ClaimUsedEur, rec.DiscountBudgetEur, rec.DiscountUsedEur,
			rec.InviteGranted, rec.CreatedAt, rec.UpdatedAt,
		)
	} else {
		const upd = `
UPDATE purchase_records SET
  quantity_owned = $3, design_counts = $4,
  upgrades_rare = $5, upgrades_ultra = $6, activation = $7, rights_expiry = $8,
  claim_budget_eur = $9, claim_used_eur = $10, discount_budget_eur = $11, discount_used_eur = $12,
  invite_granted = $13, updated_at = $14
WHERE buyer_id = $1 AND tier = $2`
		_, err = tx.ExecContext(ctx, upd,
			rec.BuyerID, int(rec.Tier), int64(rec.QuantityOwned), counts,
			int64(rec.Upgrades.Rare), int64(rec.Upgrades.Ultra), string(rec.Activation), rec.RightsExpiry,
			rec.ClaimBudgetEur, rec.ClaimUsedEur, rec.DiscountBudgetEur, rec.DiscountUsedEur,
			rec.InviteGranted, rec.UpdatedAt,
		)
	}
	if err != nil {
		return entdom.PurchaseRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		return entdom.PurchaseRecord{}, err
	}
	return rec, nil
}

func (r *PurchaseRecordRepositoryPG) ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]entdom.PurchaseRecord, error) {
	q := `SELECT` + purchaseRecordColumns + `
FROM purchase_records
WHERE rights_expiry > $1 AND rights_expiry <= $2
ORDER BY rights_expiry`
	rows, err := r.DB.QueryContext(ctx, q, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entdom.PurchaseRecord
	for rows.Next() {
		rec, err := scanPurchaseRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
