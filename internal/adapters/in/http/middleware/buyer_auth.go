// internal/adapters/in/http/middleware/buyer_auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseAuthClient は firebase auth クライアントのエイリアス。
type FirebaseAuthClient = fbauth.Client

// context key は string を使わず、衝突回避のため独自型を使用（SA1029 対策）
type ctxKey struct{ name string }

var ctxKeyBuyerID = ctxKey{name: "buyerId"}

// BuyerAuth は
//
//   - Authorization: Bearer <ID_TOKEN>
//
// を検証し、uid を buyerId として context に詰めて次のハンドラへ渡す。
// 購入・請求・割引ルートはすべてこのミドルウェアの内側に置く。
type BuyerAuth struct {
	FirebaseAuth *FirebaseAuthClient
}

func (m *BuyerAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil || m.FirebaseAuth == nil {
			http.Error(w, "auth middleware not initialized", http.StatusServiceUnavailable)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "unauthorized: missing bearer token", http.StatusUnauthorized)
			return
		}
		idToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if idToken == "" {
			http.Error(w, "unauthorized: empty bearer token", http.StatusUnauthorized)
			return
		}

		token, err := m.FirebaseAuth.VerifyIDToken(r.Context(), idToken)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		uid := strings.TrimSpace(token.UID)
		if uid == "" {
			http.Error(w, "invalid token: empty uid", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyBuyerID, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BuyerIDFromContext returns the authenticated buyer id, if any.
func BuyerIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyBuyerID).(string)
	return v, ok && v != ""
}

// WithBuyerID returns a context carrying the buyer id, as the middleware
// would set it. Internal callers and handler tests use this.
func WithBuyerID(ctx context.Context, buyerID string) context.Context {
	return context.WithValue(ctx, ctxKeyBuyerID, buyerID)
}
