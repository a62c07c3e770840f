// internal/application/usecase/expiry_notifier_test.go
package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entdom "presale/internal/domain/entitlement"
	tierdom "presale/internal/domain/tier"
)

func seedExpiring(t *testing.T, ledger *memLedger, buyerID string, expiresIn time.Duration, discountLeft float64) {
	t.Helper()
	expiry := frozenNow.Add(expiresIn)
	_, err := ledger.Mutate(context.Background(), buyerID, tierdom.Bronze, func(rec *entdom.PurchaseRecord) error {
		rec.QuantityOwned = 1
		rec.RightsExpiry = &expiry
		rec.DiscountBudgetEur = discountLeft
		return nil
	})
	require.NoError(t, err)
}

func TestNotifyExpiring(t *testing.T) {
	ledger := newMemLedger()
	seedExpiring(t, ledger, "soon", 10*24*time.Hour, 40)
	seedExpiring(t, ledger, "far", 200*24*time.Hour, 40)
	seedExpiring(t, ledger, "spent", 5*24*time.Hour, 0)

	dir := &fakeDirectory{emails: map[string]string{
		"soon":  "soon@example.com",
		"spent": "spent@example.com",
	}}
	mailer := &fakeMailer{}

	n := NewExpiryNotifier(ledger, dir, mailer, "noreply@example.com", 30*24*time.Hour)
	n.nowFn = func() time.Time { return frozenNow }

	sent, err := n.NotifyExpiring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, mailer.sent, 1)
	mail := mailer.sent[0]
	assert.Equal(t, "noreply@example.com", mail.from)
	assert.Equal(t, "soon@example.com", mail.to)
	assert.Contains(t, mail.subject, "Bronze")
	assert.Contains(t, mail.subject, "10 days")
	assert.Contains(t, mail.body, "40.00 EUR")
}

func TestNotifyExpiringSkipsUnknownBuyers(t *testing.T) {
	ledger := newMemLedger()
	seedExpiring(t, ledger, "ghost", 10*24*time.Hour, 40)

	mailer := &fakeMailer{}
	n := NewExpiryNotifier(ledger, &fakeDirectory{}, mailer, "noreply@example.com", 30*24*time.Hour)
	n.nowFn = func() time.Time { return frozenNow }

	sent, err := n.NotifyExpiring(context.Background())
	require.NoError(t, err, "a missing address must not fail the sweep")
	assert.Zero(t, sent)
	assert.Empty(t, mailer.sent)
}

func TestNotifyExpiringSendFailureIsIsolated(t *testing.T) {
	ledger := newMemLedger()
	seedExpiring(t, ledger, "soon", 10*24*time.Hour, 40)

	mailer := &fakeMailer{sendErr: assert.AnError}
	dir := &fakeDirectory{emails: map[string]string{"soon": "soon@example.com"}}
	n := NewExpiryNotifier(ledger, dir, mailer, "noreply@example.com", 30*24*time.Hour)
	n.nowFn = func() time.Time { return frozenNow }

	sent, err := n.NotifyExpiring(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestNotifierDefaultWindow(t *testing.T) {
	n := NewExpiryNotifier(newMemLedger(), &fakeDirectory{}, &fakeMailer{}, "noreply@example.com", 0)
	assert.Equal(t, 30*24*time.Hour, n.window)
}

func TestExpiryMailBodyMentionsDate(t *testing.T) {
	ledger := newMemLedger()
	seedExpiring(t, ledger, "soon", 10*24*time.Hour, 12.5)

	dir := &fakeDirectory{emails: map[string]string{"soon": "soon@example.com"}}
	mailer := &fakeMailer{}
	n := NewExpiryNotifier(ledger, dir, mailer, "noreply@example.com", 30*24*time.Hour)
	n.nowFn = func() time.Time { return frozenNow }

	_, err := n.NotifyExpiring(context.Background())
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	wantDate := frozenNow.Add(10 * 24 * time.Hour).Format("2006-01-02")
	assert.True(t, strings.Contains(mailer.sent[0].body, wantDate), "body should name the expiry date")
}
