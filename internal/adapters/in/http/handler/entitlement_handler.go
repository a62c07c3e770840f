// internal/adapters/in/http/handler/entitlement_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"presale/internal/adapters/in/http/middleware"
	usecase "presale/internal/application/usecase"
	entdom "presale/internal/domain/entitlement"
	identitydom "presale/internal/domain/identity"
	tierdom "presale/internal/domain/tier"
)

// EntitlementHandler handles:
//   - POST /purchases
//   - GET  /entitlements
//   - GET  /entitlements/{tier}
//   - POST /entitlements/claim
//   - POST /entitlements/discount
//
// All routes run behind the buyer auth middleware; the buyer id always
// comes from the verified token, never from the payload.
type EntitlementHandler struct {
	uc *usecase.EntitlementUsecase
}

func NewEntitlementHandler(uc *usecase.EntitlementUsecase) http.Handler {
	return &EntitlementHandler{uc: uc}
}

func (h *EntitlementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	buyerID, ok := middleware.BuyerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodPost && path == "/purchases":
		h.recordPurchase(w, r, buyerID)
	case r.Method == http.MethodGet && path == "/entitlements":
		h.snapshotAll(w, r, buyerID)
	case r.Method == http.MethodPost && path == "/entitlements/claim":
		h.spendClaim(w, r, buyerID)
	case r.Method == http.MethodPost && path == "/entitlements/discount":
		h.spendDiscount(w, r, buyerID)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/entitlements/"):
		h.snapshot(w, r, buyerID, strings.TrimPrefix(path, "/entitlements/"))
	default:
		writeError(w, http.StatusNotFound, "not_found")
	}
}

// ------------------------------------------------------------
// POST /purchases
// ------------------------------------------------------------

type purchaseRequest struct {
	Tier            string  `json:"tier"`
	Quantity        uint32  `json:"quantity"`
	PriceEurPerUnit float64 `json:"priceEurPerUnit"`
	Activation      string  `json:"activation,omitempty"`
	DesignID        *int    `json:"designId,omitempty"`
	TxSignature     string  `json:"txSignature,omitempty"`
	Network         string  `json:"network,omitempty"`
	DesignChoice    *int    `json:"designChoice,omitempty"`
}

func (h *EntitlementHandler) recordPurchase(w http.ResponseWriter, r *http.Request, buyerID string) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	t, err := parseTier(req.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_tier")
		return
	}

	rec, err := h.uc.RecordPurchase(r.Context(), buyerID, t, usecase.RecordPurchaseInput{
		Quantity:         req.Quantity,
		PriceEurPerUnit:  req.PriceEurPerUnit,
		ActivationChoice: req.Activation,
		DesignID:         req.DesignID,
		TxSignature:      req.TxSignature,
		Network:          identitydom.Network(req.Network),
		DesignChoice:     req.DesignChoice,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

// ------------------------------------------------------------
// POST /entitlements/claim | /entitlements/discount
// ------------------------------------------------------------

type spendRequest struct {
	Tier      string  `json:"tier"`
	AmountEur float64 `json:"amountEur"`
}

type spendResponse struct {
	Tokens   uint64          `json:"tokens"`
	Snapshot entdom.Snapshot `json:"snapshot"`
}

func (h *EntitlementHandler) spendClaim(w http.ResponseWriter, r *http.Request, buyerID string) {
	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	t, err := parseTier(req.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_tier")
		return
	}
	tokens, rec, err := h.uc.SpendClaim(r.Context(), buyerID, t, req.AmountEur)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(spendResponse{Tokens: tokens, Snapshot: rec.Snapshot(rec.UpdatedAt)})
}

func (h *EntitlementHandler) spendDiscount(w http.ResponseWriter, r *http.Request, buyerID string) {
	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	t, err := parseTier(req.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_tier")
		return
	}
	tokens, rec, err := h.uc.SpendDiscount(r.Context(), buyerID, t, req.AmountEur)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(spendResponse{Tokens: tokens, Snapshot: rec.Snapshot(rec.UpdatedAt)})
}

// ------------------------------------------------------------
// GET /entitlements[/{tier}]
// ------------------------------------------------------------

func (h *EntitlementHandler) snapshot(w http.ResponseWriter, r *http.Request, buyerID, tierSeg string) {
	t, err := parseTier(tierSeg)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_tier")
		return
	}
	snap, err := h.uc.Snapshot(r.Context(), buyerID, t)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

func (h *EntitlementHandler) snapshotAll(w http.ResponseWriter, r *http.Request, buyerID string) {
	snaps, err := h.uc.SnapshotAll(r.Context(), buyerID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"entitlements": snaps})
}

// ------------------------------------------------------------
// helpers
// ------------------------------------------------------------

// parseTier accepts either the catalog slug ("silver") or the numeric
// ordinal ("2").
func parseTier(s string) (tierdom.Tier, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return tierdom.FromOrdinal(n)
	}
	return tierdom.FromSlug(strings.ToLower(s))
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entdom.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, entdom.ErrInsufficientClaimBudget):
		writeError(w, http.StatusConflict, "insufficient_claim_budget")
	case errors.Is(err, entdom.ErrInsufficientDiscountBudget):
		writeError(w, http.StatusConflict, "insufficient_discount_budget")
	case errors.Is(err, entdom.ErrRightsExpired):
		writeError(w, http.StatusConflict, "rights_expired")
	case errors.Is(err, entdom.ErrInviteRequired):
		writeError(w, http.StatusForbidden, "invite_required")
	case errors.Is(err, entdom.ErrAlreadyOwned):
		writeError(w, http.StatusConflict, "already_owned")
	case errors.Is(err, entdom.ErrInvalidQuantity),
		errors.Is(err, entdom.ErrInvalidPrice),
		errors.Is(err, entdom.ErrInvalidAmount),
		errors.Is(err, entdom.ErrInvalidActivation),
		errors.Is(err, tierdom.ErrUnknownTier):
		writeError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, usecase.ErrResetForbidden):
		writeError(w, http.StatusForbidden, "reset_forbidden")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
