// internal/application/usecase/fakes_test.go
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	entdom "presale/internal/domain/entitlement"
	identitydom "presale/internal/domain/identity"
	tierdom "presale/internal/domain/tier"
)

// ------------------------------------------------------
// In-memory ledger repository
// ------------------------------------------------------

type memLedger struct {
	mu   sync.Mutex
	recs map[string]entdom.PurchaseRecord

	mutateErr error
}

func newMemLedger() *memLedger {
	return &memLedger{recs: map[string]entdom.PurchaseRecord{}}
}

func ledgerKey(buyerID string, t tierdom.Tier) string {
	return fmt.Sprintf("%s/%d", buyerID, int(t))
}

func (m *memLedger) Get(_ context.Context, buyerID string, t tierdom.Tier) (entdom.PurchaseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[ledgerKey(buyerID, t)]
	if !ok {
		return entdom.PurchaseRecord{}, entdom.ErrNotFound
	}
	return rec, nil
}

func (m *memLedger) ListByBuyer(_ context.Context, buyerID string) ([]entdom.PurchaseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entdom.PurchaseRecord
	for _, t := range tierdom.All() {
		if rec, ok := m.recs[ledgerKey(buyerID, t)]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memLedger) Mutate(_ context.Context, buyerID string, t tierdom.Tier, fn func(rec *entdom.PurchaseRecord) error) (entdom.PurchaseRecord, error) {
	if m.mutateErr != nil {
		return entdom.PurchaseRecord{}, m.mutateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ledgerKey(buyerID, t)
	rec, ok := m.recs[key]
	if !ok {
		fresh, err := entdom.NewPurchaseRecord(buyerID, t, time.Now())
		if err != nil {
			return entdom.PurchaseRecord{}, err
		}
		rec = fresh
	}
	if err := fn(&rec); err != nil {
		return entdom.PurchaseRecord{}, err
	}
	m.recs[key] = rec
	return rec, nil
}

func (m *memLedger) ListExpiringWithin(_ context.Context, now time.Time, window time.Duration) ([]entdom.PurchaseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entdom.PurchaseRecord
	for _, rec := range m.recs {
		if rec.RightsExpiry == nil {
			continue
		}
		if rec.RightsExpiry.After(now) && !rec.RightsExpiry.After(now.Add(window)) {
			out = append(out, rec)
		}
	}
	return out, nil
}

var _ entdom.Repository = (*memLedger)(nil)

// ------------------------------------------------------
// In-memory mint record repository
// ------------------------------------------------------

type memMints struct {
	mu    sync.Mutex
	seq   int
	recs  map[string]identitydom.MintRecord
	order []string
}

func newMemMints() *memMints {
	return &memMints{recs: map[string]identitydom.MintRecord{}}
}

func (m *memMints) Create(_ context.Context, rec identitydom.MintRecord) (identitydom.MintRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		m.seq++
		rec.ID = fmt.Sprintf("mint_%04d", m.seq)
	}
	m.recs[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return rec, nil
}

func (m *memMints) GetByID(_ context.Context, id string) (identitydom.MintRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return identitydom.MintRecord{}, identitydom.ErrNotFound
	}
	return rec, nil
}

func (m *memMints) ListPendingEnrichment(_ context.Context, limit int) ([]identitydom.MintRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []identitydom.MintRecord
	for _, id := range m.order {
		rec := m.recs[id]
		if rec.CollectorID != "" {
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memMints) UpdateIfUnset(_ context.Context, id string, patch identitydom.EnrichmentPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return false, identitydom.ErrNotFound
	}

	changed := false
	if patch.Mint != nil && rec.Mint == "" && *patch.Mint != "" {
		rec.Mint = *patch.Mint
		changed = true
	}
	if patch.MetadataURI != nil && rec.MetadataURI == "" && *patch.MetadataURI != "" {
		rec.MetadataURI = *patch.MetadataURI
		changed = true
	}
	if patch.TierCode != nil && rec.TierCode == "" && *patch.TierCode != "" {
		rec.TierCode = *patch.TierCode
		changed = true
	}
	if patch.Serial != nil && rec.Serial == 0 && *patch.Serial != 0 {
		rec.Serial = *patch.Serial
		changed = true
	}
	if patch.DesignKey != nil && rec.DesignKey == 0 && *patch.DesignKey != 0 {
		rec.DesignKey = *patch.DesignKey
		changed = true
	}
	if patch.CollectorID != nil && rec.CollectorID == "" && *patch.CollectorID != "" {
		rec.CollectorID = *patch.CollectorID
		changed = true
	}
	if changed {
		m.recs[id] = rec
	}
	return changed, nil
}

var _ identitydom.Repository = (*memMints)(nil)

// ------------------------------------------------------
// Resolver / mail / directory fakes
// ------------------------------------------------------

type fakeResolver struct {
	results map[string]*identitydom.DerivedIdentity // by tx signature
	errs    map[string]error
	calls   int
}

func (f *fakeResolver) ResolveFromMintReference(_ context.Context, ref identitydom.MintReference) (*identitydom.DerivedIdentity, error) {
	f.calls++
	if err, ok := f.errs[ref.TxSignature]; ok {
		return nil, err
	}
	if d, ok := f.results[ref.TxSignature]; ok {
		return d, nil
	}
	return nil, identitydom.ErrMintNotFound
}

type fakeDirectory struct {
	emails map[string]string
}

func (f *fakeDirectory) EmailForBuyer(_ context.Context, buyerID string) (string, error) {
	addr, ok := f.emails[buyerID]
	if !ok {
		return "", fmt.Errorf("no user %s", buyerID)
	}
	return addr, nil
}

type sentMail struct {
	from, to, subject, body string
}

type fakeMailer struct {
	sent    []sentMail
	sendErr error
}

func (f *fakeMailer) Send(_ context.Context, from, to, subject, body string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMail{from: from, to: to, subject: subject, body: body})
	return nil
}
