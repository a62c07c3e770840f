// internal/application/usecase/expiry_notifier.go
package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	entdom "presale/internal/domain/entitlement"
)

// ============================================================
// ExpiryNotifier
// ============================================================
//
// Finds purchase records whose discount rights expire soon and sends each
// buyer a reminder. Best-effort: a failed lookup or send is logged and
// skipped, the sweep continues.

// emailClient is the outbound mail port (SendGrid adapter in production).
type emailClient interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// buyerDirectory resolves a buyer id to a deliverable address.
type buyerDirectory interface {
	EmailForBuyer(ctx context.Context, buyerID string) (string, error)
}

type ExpiryNotifier struct {
	ledger entdom.Repository
	dir    buyerDirectory
	mail   emailClient
	from   string
	window time.Duration
	nowFn  func() time.Time
}

func NewExpiryNotifier(ledger entdom.Repository, dir buyerDirectory, mail emailClient, from string, window time.Duration) *ExpiryNotifier {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &ExpiryNotifier{
		ledger: ledger,
		dir:    dir,
		mail:   mail,
		from:   from,
		window: window,
		nowFn:  time.Now,
	}
}

// NotifyExpiring sweeps once and returns the number of reminders sent.
func (n *ExpiryNotifier) NotifyExpiring(ctx context.Context) (int, error) {
	if n == nil || n.ledger == nil || n.dir == nil || n.mail == nil {
		return 0, fmt.Errorf("usecase: expiry notifier not configured")
	}
	now := n.nowFn()

	recs, err := n.ledger.ListExpiringWithin(ctx, now, n.window)
	if err != nil {
		return 0, fmt.Errorf("usecase: list expiring records: %w", err)
	}

	sent := 0
	for _, rec := range recs {
		if rec.RightsExpiry == nil {
			continue
		}
		snap := rec.Snapshot(now)
		if snap.DiscountAvailableEur <= 0 {
			// Nothing left to use; no point nagging.
			continue
		}

		to, err := n.dir.EmailForBuyer(ctx, rec.BuyerID)
		if err != nil || to == "" {
			log.Printf("[expiry] no address for buyer=%s: %v", rec.BuyerID, err)
			continue
		}

		days := 0
		if snap.DaysRemaining != nil {
			days = *snap.DaysRemaining
		}
		subject := fmt.Sprintf("Your %s discount rights expire in %d days", rec.Tier, days)
		body := fmt.Sprintf(
			"You still have %.2f EUR of discount budget on your %s certificate.\n"+
				"It expires on %s. Unused budget is lost after that date.",
			snap.DiscountAvailableEur, rec.Tier, rec.RightsExpiry.Format("2006-01-02"),
		)
		if err := n.mail.Send(ctx, n.from, to, subject, body); err != nil {
			log.Printf("[expiry] send to buyer=%s failed: %v", rec.BuyerID, err)
			continue
		}
		sent++
	}

	log.Printf("[expiry] sweep done: candidates=%d sent=%d", len(recs), sent)
	return sent, nil
}
