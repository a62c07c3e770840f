// internal/infra/config/config.go
package config

import "os"

// Config はアプリケーション全体の環境変数設定を保持します。
type Config struct {
	Port   string
	AppEnv string // "production" locks the test-only ledger reset

	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirebaseProjectID        string

	// Ledger backend selection: "firestore" (default) or "postgres".
	LedgerBackend string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string

	// Solana RPC. SolanaRPCSecretID (optional) names a Secret Manager
	// secret that carries the endpoint + api key; env vars win when set.
	SolanaRPCEndpoint string
	SolanaRPCSecretID string

	// GCS bucket serving the published metadata JSON. Empty disables the
	// passthrough on the metadata endpoint.
	MetadataBucket string

	// Expiry reminder mail
	SendGridAPIKey string
	MailFrom       string
}

// Load は環境変数を読み込み Config を返します。
func Load() *Config {
	defaultProject := getenvDefault("GCP_PROJECT_ID", "presale-production")

	return &Config{
		Port:   getenvDefault("PORT", "8080"),
		AppEnv: getenvDefault("APP_ENV", "development"),

		FirestoreProjectID:       getenvDefault("FIRESTORE_PROJECT_ID", defaultProject),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		FirebaseProjectID:        getenvDefault("FIREBASE_PROJECT_ID", defaultProject),

		LedgerBackend: getenvDefault("LEDGER_BACKEND", "firestore"),
		DBHost:        getenvDefault("DB_HOST", "localhost"),
		DBPort:        getenvDefault("DB_PORT", "5432"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        getenvDefault("DB_NAME", "presale"),

		SolanaRPCEndpoint: os.Getenv("SOLANA_RPC_ENDPOINT"),
		SolanaRPCSecretID: os.Getenv("SOLANA_RPC_SECRET_ID"),

		MetadataBucket: os.Getenv("METADATA_BUCKET"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getenvDefault("MAIL_FROM", "noreply@presale.example"),
	}
}

// IsProduction reports whether destructive test flows must be refused.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
