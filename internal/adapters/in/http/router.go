// internal/adapters/in/http/router.go
package http

import (
	"net/http"

	"presale/internal/adapters/in/http/handler"
	"presale/internal/adapters/in/http/middleware"
	usecase "presale/internal/application/usecase"
)

// RouterDeps is everything the HTTP surface needs from the DI container.
type RouterDeps struct {
	FirebaseAuth *middleware.FirebaseAuthClient

	Entitlement *usecase.EntitlementUsecase
	Enrichment  *usecase.EnrichmentUsecase
	Notifier    *usecase.ExpiryNotifier

	MetadataObjects handler.MetadataObjects
	AdminToken      string
}

// NewRouter assembles the route table:
//
//	/metadata/nft/...   public, read-only
//	/purchases          buyer auth
//	/entitlements/...   buyer auth
//	/admin/...          shared-token auth
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metadata/", handler.NewMetadataHandler(deps.MetadataObjects))

	buyerAuth := &middleware.BuyerAuth{FirebaseAuth: deps.FirebaseAuth}
	ent := handler.NewEntitlementHandler(deps.Entitlement)
	mux.Handle("/purchases", buyerAuth.Handler(ent))
	mux.Handle("/entitlements", buyerAuth.Handler(ent))
	mux.Handle("/entitlements/", buyerAuth.Handler(ent))

	mux.Handle("/admin/", handler.NewAdminHandler(deps.Enrichment, deps.Entitlement, deps.Notifier, deps.AdminToken))

	return middleware.Recover(mux)
}
