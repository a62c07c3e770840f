// internal/adapters/in/http/handler/admin_handler.go
package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	usecase "presale/internal/application/usecase"
)

// AdminHandler handles the operational routes:
//   - POST /admin/enrich?limit=N          (Cloud Scheduler)
//   - POST /admin/invites/{buyerId}
//   - POST /admin/reset                   (non-production only)
//   - POST /admin/notify-expiring
//
// Guarded by a shared token header instead of buyer auth: the callers are
// schedulers and back-office tooling, not storefront users.
type AdminHandler struct {
	Enrichment  *usecase.EnrichmentUsecase
	Entitlement *usecase.EntitlementUsecase
	Notifier    *usecase.ExpiryNotifier
	Token       string
}

func NewAdminHandler(enrich *usecase.EnrichmentUsecase, ent *usecase.EntitlementUsecase, notifier *usecase.ExpiryNotifier, token string) http.Handler {
	return &AdminHandler{Enrichment: enrich, Entitlement: ent, Notifier: notifier, Token: token}
}

func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.Token == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Admin-Token")), []byte(h.Token)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/admin/enrich":
		h.enrich(w, r)
	case strings.HasPrefix(path, "/admin/invites/"):
		h.grantInvite(w, r, strings.TrimPrefix(path, "/admin/invites/"))
	case path == "/admin/reset":
		h.reset(w, r)
	case path == "/admin/notify-expiring":
		h.notifyExpiring(w, r)
	default:
		writeError(w, http.StatusNotFound, "not_found")
	}
}

func (h *AdminHandler) enrich(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}
	count, err := h.Enrichment.EnrichPending(r.Context(), limit)
	if err != nil {
		if err == usecase.ErrInvalidLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int{"updated": count})
}

func (h *AdminHandler) grantInvite(w http.ResponseWriter, r *http.Request, buyerID string) {
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		writeError(w, http.StatusBadRequest, "missing_buyer")
		return
	}
	rec, err := h.Entitlement.GrantInvite(r.Context(), buyerID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(rec)
}

type resetRequest struct {
	BuyerID string `json:"buyerId"`
	Tier    string `json:"tier"`
}

func (h *AdminHandler) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	t, err := parseTier(req.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_tier")
		return
	}
	rec, err := h.Entitlement.Reset(r.Context(), req.BuyerID, t)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(rec)
}

func (h *AdminHandler) notifyExpiring(w http.ResponseWriter, r *http.Request) {
	if h.Notifier == nil {
		writeError(w, http.StatusNotImplemented, "notifier_not_configured")
		return
	}
	sent, err := h.Notifier.NotifyExpiring(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int{"sent": sent})
}
