// internal/adapters/out/auth/buyer_directory_fb.go
package auth

import (
	"context"
	"fmt"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
)

// BuyerDirectoryFB resolves buyer ids (Firebase uid) to email addresses
// for the expiry reminder job.
type BuyerDirectoryFB struct {
	Auth *fbauth.Client
}

func NewBuyerDirectoryFB(auth *fbauth.Client) *BuyerDirectoryFB {
	return &BuyerDirectoryFB{Auth: auth}
}

func (d *BuyerDirectoryFB) EmailForBuyer(ctx context.Context, buyerID string) (string, error) {
	if d == nil || d.Auth == nil {
		return "", fmt.Errorf("auth: buyer directory not initialized")
	}
	uid := strings.TrimSpace(buyerID)
	if uid == "" {
		return "", fmt.Errorf("auth: empty buyer id")
	}
	u, err := d.Auth.GetUser(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("auth: get user %s: %w", uid, err)
	}
	return u.Email, nil
}
