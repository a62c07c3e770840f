// internal/adapters/in/http/handler/metadata_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	identitydom "presale/internal/domain/identity"
)

// MetadataObjects serves the published metadata JSON (GCS adapter).
// Nil or disabled means the handler answers with the derived record only.
type MetadataObjects interface {
	Enabled() bool
	ReadObject(ctx context.Context, path string) ([]byte, error)
}

// MetadataHandler answers GET /metadata/nft/... for the storefront.
//
// The path is validated by the deterministic URI rule first; only valid
// collector paths ever reach the object store. Any derivation failure is
// a plain 404 — the endpoint never guesses.
type MetadataHandler struct {
	Objects MetadataObjects
}

func NewMetadataHandler(objects MetadataObjects) http.Handler {
	return &MetadataHandler{Objects: objects}
}

func (h *MetadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	d, err := identitydom.DeriveFromURI(r.URL.Path)
	if err != nil {
		if errors.Is(err, identitydom.ErrInvalidURI) || errors.Is(err, identitydom.ErrInconsistentDesignKey) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		log.Printf("[metadata] derive %s: %v", r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	// Passthrough of the published JSON object when a bucket is wired.
	if h.Objects != nil && h.Objects.Enabled() {
		body, err := h.Objects.ReadObject(r.Context(), r.URL.Path)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "public, max-age=86400")
			_, _ = w.Write(body)
			return
		}
		log.Printf("[metadata] object read %s: %v", r.URL.Path, err)
		// fall through to the derived record
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
