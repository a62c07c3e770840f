// internal/adapters/out/firestore/mint_record_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	identitydom "presale/internal/domain/identity"
)

const mintRecordsCollection = "mint_records"

// MintRecordRepositoryFS implements identity.Repository using Firestore.
//
// UpdateIfUnset runs in a transaction and only ever writes fields that are
// still unset in the stored document. Two enrichment workers racing on the
// same record therefore cannot clobber each other: derivation is
// deterministic and each field is written at most once.
type MintRecordRepositoryFS struct {
	Client *firestore.Client
}

var _ identitydom.Repository = (*MintRecordRepositoryFS)(nil)

func NewMintRecordRepositoryFS(client *firestore.Client) *MintRecordRepositoryFS {
	return &MintRecordRepositoryFS{Client: client}
}

type fsMintRecord struct {
	BuyerID      string    `firestore:"buyerId"`
	TxSignature  string    `firestore:"txSignature"`
	Network      string    `firestore:"network"`
	TierID       int       `firestore:"tierId"`
	DesignChoice *int      `firestore:"designChoice"`
	CreatedAt    time.Time `firestore:"createdAt"`

	Mint        string `firestore:"mint"`
	MetadataURI string `firestore:"metadataUri"`
	TierCode    string `firestore:"tierCode"`
	Serial      int64  `firestore:"serial"`
	DesignKey   int64  `firestore:"designKey"`
	CollectorID string `firestore:"collectorId"`
}

func toFSMintRecord(rec identitydom.MintRecord) fsMintRecord {
	return fsMintRecord{
		BuyerID:      rec.BuyerID,
		TxSignature:  rec.TxSignature,
		Network:      string(rec.Network),
		TierID:       rec.TierID,
		DesignChoice: rec.DesignChoice,
		CreatedAt:    rec.CreatedAt,
		Mint:         rec.Mint,
		MetadataURI:  rec.MetadataURI,
		TierCode:     rec.TierCode,
		Serial:       int64(rec.Serial),
		DesignKey:    int64(rec.DesignKey),
		CollectorID:  rec.CollectorID,
	}
}

func (d fsMintRecord) toDomain(id string) identitydom.MintRecord {
	return identitydom.MintRecord{
		ID:           id,
		BuyerID:      d.BuyerID,
		TxSignature:  d.TxSignature,
		Network:      identitydom.Network(d.Network),
		TierID:       d.TierID,
		DesignChoice: d.DesignChoice,
		CreatedAt:    d.CreatedAt,
		Mint:         d.Mint,
		MetadataURI:  d.MetadataURI,
		TierCode:     d.TierCode,
		Serial:       uint32(d.Serial),
		DesignKey:    uint32(d.DesignKey),
		CollectorID:  d.CollectorID,
	}
}

func (r *MintRecordRepositoryFS) Create(ctx context.Context, rec identitydom.MintRecord) (identitydom.MintRecord, error) {
	if r == nil || r.Client == nil {
		return identitydom.MintRecord{}, errors.New("firestore client is nil")
	}
	col := r.Client.Collection(mintRecordsCollection)

	// ID が空なら自動採番
	var docRef *firestore.DocumentRef
	if rec.ID == "" {
		docRef = col.NewDoc()
		rec.ID = docRef.ID
	} else {
		docRef = col.Doc(rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if _, err := docRef.Create(ctx, toFSMintRecord(rec)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return identitydom.MintRecord{}, fmt.Errorf("mint record %s: %w", rec.ID, err)
		}
		return identitydom.MintRecord{}, err
	}
	return rec, nil
}

func (r *MintRecordRepositoryFS) GetByID(ctx context.Context, id string) (identitydom.MintRecord, error) {
	if r == nil || r.Client == nil {
		return identitydom.MintRecord{}, errors.New("firestore client is nil")
	}
	snap, err := r.Client.Collection(mintRecordsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return identitydom.MintRecord{}, identitydom.ErrNotFound
		}
		return identitydom.MintRecord{}, err
	}
	var d fsMintRecord
	if err := snap.DataTo(&d); err != nil {
		return identitydom.MintRecord{}, fmt.Errorf("decode mint record: %w", err)
	}
	return d.toDomain(snap.Ref.ID), nil
}

// ListPendingEnrichment: collectorId が未設定のレコードを古い順に返す。
func (r *MintRecordRepositoryFS) ListPendingEnrichment(ctx context.Context, limit int) ([]identitydom.MintRecord, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("firestore client is nil")
	}
	docs, err := r.Client.Collection(mintRecordsCollection).
		Where("collectorId", "==", "").
		OrderBy("createdAt", firestore.Asc).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]identitydom.MintRecord, 0, len(docs))
	for _, snap := range docs {
		var d fsMintRecord
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode mint record %s: %w", snap.Ref.ID, err)
		}
		out = append(out, d.toDomain(snap.Ref.ID))
	}
	return out, nil
}

// UpdateIfUnset: 各フィールドは「未設定のときだけ」書き込む。
func (r *MintRecordRepositoryFS) UpdateIfUnset(ctx context.Context, id string, patch identitydom.EnrichmentPatch) (bool, error) {
	if r == nil || r.Client == nil {
		return false, errors.New("firestore client is nil")
	}
	ref := r.Client.Collection(mintRecordsCollection).Doc(id)

	changed := false
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = false

		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return identitydom.ErrNotFound
			}
			return err
		}
		var d fsMintRecord
		if err := snap.DataTo(&d); err != nil {
			return fmt.Errorf("decode mint record: %w", err)
		}

		var updates []firestore.Update
		if patch.Mint != nil && d.Mint == "" && *patch.Mint != "" {
			updates = append(updates, firestore.Update{Path: "mint", Value: *patch.Mint})
		}
		if patch.MetadataURI != nil && d.MetadataURI == "" && *patch.MetadataURI != "" {
			updates = append(updates, firestore.Update{Path: "metadataUri", Value: *patch.MetadataURI})
		}
		if patch.TierCode != nil && d.TierCode == "" && *patch.TierCode != "" {
			updates = append(updates, firestore.Update{Path: "tierCode", Value: *patch.TierCode})
		}
		if patch.Serial != nil && d.Serial == 0 && *patch.Serial != 0 {
			updates = append(updates, firestore.Update{Path: "serial", Value: int64(*patch.Serial)})
		}
		if patch.DesignKey != nil && d.DesignKey == 0 && *patch.DesignKey != 0 {
			updates = append(updates, firestore.Update{Path: "designKey", Value: int64(*patch.DesignKey)})
		}
		if patch.CollectorID != nil && d.CollectorID == "" && *patch.CollectorID != "" {
			updates = append(updates, firestore.Update{Path: "collectorId", Value: *patch.CollectorID})
		}

		if len(updates) == 0 {
			return nil
		}
		changed = true
		return tx.Update(ref, updates)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}
