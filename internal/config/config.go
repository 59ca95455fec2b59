package config

import (
	"os"
	"strconv"
	"time"

	"tsirk/internal/cache"
	"tsirk/internal/database"
	"tsirk/internal/external"
	"tsirk/internal/messaging"
	"tsirk/internal/pricing"
)

// Fulfillment dispatch modes.
const (
	FulfillmentModeLocal = "local"
	FulfillmentModeNATS  = "nats"
)

type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// PublicURL is the base of the ticket retrieval links put in mails.
	PublicURL string

	// ShowCapacity is the venue cap applied to every show.
	ShowCapacity int

	ScannerKey string
	AdminKey   string

	// FulfillmentMode selects how completion webhooks reach the
	// pipeline: "local" runs an in-process worker queue, "nats"
	// publishes for the consumers binary.
	FulfillmentMode    string
	FulfillmentWorkers int
	FulfillmentBuffer  int

	Pricing   pricing.Config
	Database  database.Config
	NATS      messaging.Config
	Cache     cache.Config
	Payment   external.PaymentConfig
	Artifacts external.ArtifactConfig
	Mail      external.MailConfig
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		PublicURL: getEnv("PUBLIC_URL", "https://tickets.tsirk.be"),

		ShowCapacity: getEnvInt("SHOW_CAPACITY", 250),

		ScannerKey: getEnv("SCANNER_KEY", ""),
		AdminKey:   getEnv("ADMIN_KEY", ""),

		FulfillmentMode:    getEnv("FULFILLMENT_MODE", FulfillmentModeLocal),
		FulfillmentWorkers: getEnvInt("FULFILLMENT_WORKERS", 2),
		FulfillmentBuffer:  getEnvInt("FULFILLMENT_BUFFER", 64),

		Pricing: pricing.Config{
			Shows: defaultShows(),
			Prices: pricing.PriceTable{
				AdultCents:  int64(getEnvInt("PRICE_ADULT_CENTS", 800)),
				ChildCents:  int64(getEnvInt("PRICE_CHILD_CENTS", 600)),
				VolumeCents: int64(getEnvInt("PRICE_VOLUME_CENTS", 400)),
			},
		},

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "tsirk"),
			Password:           getEnv("DB_PASSWORD", "tsirk123"),
			DBName:             getEnv("DB_NAME", "tsirk"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "tsirk"),
			ClientID:  getEnv("NATS_CLIENT_ID", "tsirk-api"),
		},

		Cache: cache.Config{
			Addr:     getEnv("VALKEY_ADDR", ""),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
			TTL:      time.Duration(getEnvInt("VALKEY_TTL_SEC", 15)) * time.Second,
		},

		Payment: external.PaymentConfig{
			BaseURL:   getEnv("PAYMENT_GATEWAY_URL", "https://api.payments.example.com"),
			SecretKey: getEnv("PAYMENT_SECRET_KEY", ""),
			Timeout:   time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Artifacts: external.ArtifactConfig{
			BaseURL: getEnv("ARTIFACT_SERVICE_URL", "http://localhost:8090"),
			Timeout: time.Duration(getEnvInt("ARTIFACT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Mail: external.MailConfig{
			BaseURL:     getEnv("MAIL_API_URL", "https://api.brevo.com"),
			APIKey:      getEnv("MAIL_API_KEY", ""),
			SenderName:  getEnv("MAIL_SENDER_NAME", "Tsirk"),
			SenderEmail: getEnv("MAIL_SENDER_EMAIL", "tickets@tsirk.be"),
			AdminEmail:  getEnv("MAIL_ADMIN_EMAIL", "info@tsirk.be"),
			Timeout:     time.Duration(getEnvInt("MAIL_TIMEOUT_SEC", 30)) * time.Second,
		},
	}
}

// defaultShows is the deploy-time catalog. The order is chronological
// and drives the volume discount.
func defaultShows() []pricing.Show {
	return []pricing.Show{
		{ID: "s1", Name: "Circusvoorstelling - Show 1", Date: "28/03/2026", Time: "13u30", Number: 1},
		{ID: "s2", Name: "Circusvoorstelling - Show 2", Date: "28/03/2026", Time: "18u30", Number: 2},
		{ID: "s3", Name: "Circusvoorstelling - Show 3", Date: "29/03/2026", Time: "10u00", Number: 3},
	}
}

// getEnv returns the environment variable value or the default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
