// internal/platform/di/container.go
package di

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"

	"cloud.google.com/go/storage"

	httpin "presale/internal/adapters/in/http"
	"presale/internal/adapters/out/auth"
	dbadapter "presale/internal/adapters/out/db"
	fsadapter "presale/internal/adapters/out/firestore"
	"presale/internal/adapters/out/gcs"
	"presale/internal/adapters/out/mail"
	usecase "presale/internal/application/usecase"
	entdom "presale/internal/domain/entitlement"
	identitydom "presale/internal/domain/identity"
	appcfg "presale/internal/infra/config"
	"presale/internal/infra/database"
	firestoreinfra "presale/internal/infra/firestore"
	solanainfra "presale/internal/infra/solana"
)

// Container wires infra clients, repositories and usecases for the api
// binary. cmd/enrich uses the same container with HTTP left unused.
type Container struct {
	Config *appcfg.Config

	firestore *firestoreinfra.ClientWrapper
	db        *database.DB
	storage   *storage.Client

	FirebaseAuth *fbauth.Client

	LedgerRepo entdom.Repository
	MintRepo   identitydom.Repository

	Entitlement *usecase.EntitlementUsecase
	Enrichment  *usecase.EnrichmentUsecase
	Notifier    *usecase.ExpiryNotifier

	metadataObjects *gcs.MetadataObjectStore
}

func NewContainer(ctx context.Context) (*Container, error) {
	cfg := appcfg.Load()
	c := &Container{Config: cfg}

	// ── Firebase Auth（buyer 検証用）──────────────────────────
	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID})
	if err != nil {
		log.Printf("[di] WARN: firebase app init failed: %v", err)
	} else {
		authClient, err := fbApp.Auth(ctx)
		if err != nil {
			log.Printf("[di] WARN: firebase auth init failed: %v", err)
		} else {
			c.FirebaseAuth = authClient
			log.Printf("[di] Firebase Auth initialized")
		}
	}

	// ── Ledger / mint record ストア ──────────────────────────
	switch cfg.LedgerBackend {
	case "postgres":
		db, err := database.NewConnection(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("di: postgres init: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("di: postgres schema: %w", err)
		}
		c.db = db
		c.LedgerRepo = dbadapter.NewPurchaseRecordRepositoryPG(db.Client)
		c.MintRepo = dbadapter.NewMintRecordRepositoryPG(db.Client)

	default: // firestore
		fsw, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("di: firestore init: %w", err)
		}
		c.firestore = fsw
		c.LedgerRepo = fsadapter.NewPurchaseRecordRepositoryFS(fsw.Client)
		c.MintRepo = fsadapter.NewMintRecordRepositoryFS(fsw.Client)
	}

	// ── Solana chain reader ──────────────────────────────────
	endpoint := cfg.SolanaRPCEndpoint
	if endpoint == "" && cfg.SolanaRPCSecretID != "" {
		settings, err := solanainfra.LoadRPCSettings(ctx, cfg.FirestoreProjectID, cfg.SolanaRPCSecretID)
		if err != nil {
			log.Printf("[di] WARN: rpc secret load failed: %v (using public endpoint)", err)
		} else {
			endpoint = settings.ResolvedEndpoint()
		}
	}
	reader := solanainfra.NewChainReader(endpoint)
	resolver := identitydom.NewResolver(reader)

	// ── Usecases ─────────────────────────────────────────────
	lottery := entdom.NewLottery(time.Now().UnixNano())
	c.Entitlement = usecase.NewEntitlementUsecase(c.LedgerRepo, c.MintRepo, lottery, cfg.AppEnv)
	c.Enrichment = usecase.NewEnrichmentUsecase(c.MintRepo, resolver)

	// ── Metadata passthrough (optional) ──────────────────────
	if cfg.MetadataBucket != "" {
		sc, err := storage.NewClient(ctx)
		if err != nil {
			log.Printf("[di] WARN: storage init failed: %v (metadata passthrough off)", err)
		} else {
			c.storage = sc
			c.metadataObjects = gcs.NewMetadataObjectStore(sc, cfg.MetadataBucket)
		}
	}

	// ── Expiry reminder (optional) ───────────────────────────
	if cfg.SendGridAPIKey != "" && c.FirebaseAuth != nil {
		c.Notifier = usecase.NewExpiryNotifier(
			c.LedgerRepo,
			auth.NewBuyerDirectoryFB(c.FirebaseAuth),
			mail.NewSendGridClient(cfg.SendGridAPIKey),
			cfg.MailFrom,
			30*24*time.Hour,
		)
	}

	return c, nil
}

// RouterDeps exposes the wired dependencies to the HTTP router.
func (c *Container) RouterDeps() httpin.RouterDeps {
	deps := httpin.RouterDeps{
		FirebaseAuth: c.FirebaseAuth,
		Entitlement:  c.Entitlement,
		Enrichment:   c.Enrichment,
		Notifier:     c.Notifier,
		AdminToken:   os.Getenv("ADMIN_TOKEN"),
	}
	if c.metadataObjects != nil {
		deps.MetadataObjects = c.metadataObjects
	}
	return deps
}

// Close releases infra clients.
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.firestore != nil {
		_ = c.firestore.Close()
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	if c.storage != nil {
		_ = c.storage.Close()
	}
}
