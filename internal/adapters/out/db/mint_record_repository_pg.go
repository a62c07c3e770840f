// internal/adapters/out/db/mint_record_repository_pg.go
package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	identitydom "presale/internal/domain/identity"
)

// PG implementation of identity.Repository. The write-if-unset contract
// of UpdateIfUnset is enforced inside a transaction holding the row lock.
type MintRecordRepositoryPG struct {
	DB *sql.DB
}

var _ identitydom.Repository = (*MintRecordRepositoryPG)(nil)

func NewMintRecordRepositoryPG(db *sql.DB) *MintRecordRepositoryPG {
	return &MintRecordRepositoryPG{DB: db}
}

const mintRecordColumns = `
  id, buyer_id, tx_signature, network, tier, design_choice, created_at,
  mint, metadata_uri, tier_code, serial, design_key, collector_id`

func scanMintRecord(row rowScanner) (identitydom.MintRecord, error) {
	var (
		rec          identitydom.MintRecord
		network      string
		designChoice sql.NullInt64
		serial, key  int64
	)
	err := row.Scan(
		&rec.ID, &rec.BuyerID, &rec.TxSignature, &network, &rec.TierID, &designChoice, &rec.CreatedAt,
		&rec.Mint, &rec.MetadataURI, &rec.TierCode, &serial, &key, &rec.CollectorID,
	)
	if err != nil {
		return identitydom.MintRecord{}, err
	}
	rec.Network = identitydom.Network(network)
	if designChoice.Valid {
		c := int(designChoice.Int64)
		rec.DesignChoice = &c
	}
	rec.Serial = uint32(serial)
	rec.DesignKey = uint32(key)
	return rec, nil
}

func (r *MintRecordRepositoryPG) Create(ctx context.Context, rec identitydom.MintRecord) (identitydom.MintRecord, error) {
	if rec.ID == "" {
		rec.ID = newMintRecordID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var designChoice any
	if rec.DesignChoice != nil {
		designChoice = *rec.DesignChoice
	}
	const q = `
INSERT INTO mint_records (` + mintRecordColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.DB.ExecContext(ctx, q,
		rec.ID, rec.BuyerID, rec.TxSignature, string(rec.Network), rec.TierID, designChoice, rec.CreatedAt,
		rec.Mint, rec.MetadataURI, rec.TierCode, int64(rec.Serial), int64(rec.DesignKey), rec.CollectorID,
	)
	if err != nil {
		return identitydom.MintRecord{}, err
	}
	return rec, nil
}

func (r *MintRecordRepositoryPG) GetByID(ctx context.Context, id string) (identitydom.MintRecord, error) {
	const q = `SELECT` + mintRecordColumns + ` FROM mint_records WHERE id = $1`
	rec, err := scanMintRecord(r.DB.QueryRowContext(ctx, q, strings.TrimSpace(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identitydom.MintRecord{}, identitydom.ErrNotFound
		}
		return identitydom.MintRecord{}, err
	}
	return rec, nil
}

func (r *MintRecordRepositoryPG) ListPendingEnrichment(ctx context.Context, limit int) ([]identitydom.MintRecord, error) {
	const q = `SELECT` + mintRecordColumns + `
FROM mint_records WHERE collector_id = '' ORDER BY created_at LIMIT $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []identitydom.MintRecord
	for rows.Next() {
		rec, err := scanMintRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *MintRecordRepositoryPG) UpdateIfUnset(ctx context.Context, id string, patch identitydom.EnrichmentPatch) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	const sel = `SELECT` + mintRecordColumns + ` FROM mint_records WHERE id = $1 FOR UPDATE`
	cur, err := scanMintRecord(tx.QueryRowContext(ctx, sel, strings.TrimSpace(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, identitydom.ErrNotFound
		}
		return false, err
	}

	set := make([]string, 0, 6)
	args := []any{cur.ID}
	add := func(col string, v any) {
		set = append(set, col+" = $"+strconv.Itoa(len(args)+1))
		args = append(args, v)
	}
	if patch.Mint != nil && cur.Mint == "" && *patch.Mint != "" {
		add("mint", *patch.Mint)
	}
	if patch.MetadataURI != nil && cur.MetadataURI == "" && *patch.MetadataURI != "" {
		add("metadata_uri", *patch.MetadataURI)
	}
	if patch.TierCode != nil && cur.TierCode == "" && *patch.TierCode != "" {
		add("tier_code", *patch.TierCode)
	}
	if patch.Serial != nil && cur.Serial == 0 && *patch.Serial != 0 {
		add("serial", int64(*patch.Serial))
	}
	if patch.DesignKey != nil && cur.DesignKey == 0 && *patch.DesignKey != 0 {
		add("design_key", int64(*patch.DesignKey))
	}
	if patch.CollectorID != nil && cur.CollectorID == "" && *patch.CollectorID != "" {
		add("collector_id", *patch.CollectorID)
	}

	if len(set) == 0 {
		return false, tx.Commit()
	}

	q := "UPDATE mint_records SET " + strings.Join(set, ", ") + " WHERE id = $1"
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func newMintRecordID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return "mint_" + hex.EncodeToString(b)
}
