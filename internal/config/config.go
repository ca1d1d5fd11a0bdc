package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/pauljones0/gallery-price-sync/internal/util"
)

// Control container policies.
const (
	PolicyReplace     = "replace"
	PolicyFingerprint = "fingerprint"
)

// Catalog service backends.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Config configures the gallery agent.
type Config struct {
	GalleryURL              string
	CatalogBaseURL          string
	CatalogAPIKey           string
	CatalogRateLimit        float64
	QuietPeriod             time.Duration
	ControlPolicy           string
	MarketplaceBaseURL      string
	MarketplaceAffiliateTag string
	Headless                bool
	Port                    string
	DiscordWebhookURL       string
	SelectorsConfigPath     string
}

// CatalogConfig configures the catalog service.
type CatalogConfig struct {
	Backend     string
	ProjectID   string
	DatabaseURL string
	APIKey      string
	Port        string
}

// loadDotEnv reads an optional .env file. Variables already set in the
// environment take precedence.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", "error", err)
	}
}

// Load reads the agent configuration from the environment.
func Load() (*Config, error) {
	loadDotEnv()

	galleryURL := os.Getenv("GALLERY_URL")
	if galleryURL == "" {
		return nil, fmt.Errorf("GALLERY_URL environment variable is required but not set")
	}

	catalogBaseURL := os.Getenv("CATALOG_BASE_URL")
	if catalogBaseURL == "" {
		return nil, fmt.Errorf("CATALOG_BASE_URL environment variable is required but not set")
	}
	catalogBaseURL, err := util.NormalizeBaseURL(catalogBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CATALOG_BASE_URL: %w", err)
	}

	catalogAPIKey := os.Getenv("CATALOG_API_KEY")
	if catalogAPIKey == "" {
		slog.Info("CATALOG_API_KEY not set, catalog requests are unauthenticated")
	}

	catalogRateLimit := 10.0
	if v := os.Getenv("CATALOG_RATE_LIMIT"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid CATALOG_RATE_LIMIT %q: must be a positive number", v)
		}
		catalogRateLimit = parsed
	}

	quietPeriodStr := os.Getenv("QUIET_PERIOD")
	if quietPeriodStr == "" {
		quietPeriodStr = "1s"
	}
	quietPeriod, err := time.ParseDuration(quietPeriodStr)
	if err != nil {
		return nil, fmt.Errorf("invalid QUIET_PERIOD %q: %w", quietPeriodStr, err)
	}
	if quietPeriod <= 0 {
		return nil, fmt.Errorf("invalid QUIET_PERIOD %q: must be positive", quietPeriodStr)
	}

	controlPolicy := os.Getenv("CONTROL_POLICY")
	switch controlPolicy {
	case "":
		controlPolicy = PolicyReplace
	case PolicyReplace, PolicyFingerprint:
	default:
		return nil, fmt.Errorf("invalid CONTROL_POLICY %q: must be %q or %q", controlPolicy, PolicyReplace, PolicyFingerprint)
	}

	marketplaceBaseURL := os.Getenv("MARKETPLACE_BASE_URL")
	if marketplaceBaseURL == "" {
		marketplaceBaseURL = "https://www.amazon.de"
	}
	marketplaceBaseURL, err = util.NormalizeBaseURL(marketplaceBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MARKETPLACE_BASE_URL: %w", err)
	}

	headless := false
	if v := os.Getenv("HEADLESS"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HEADLESS %q: %w", v, err)
		}
		headless = parsed
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	discordWebhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if discordWebhookURL == "" {
		slog.Info("DISCORD_WEBHOOK_URL not set, price alerts will be skipped")
	}

	selectorsConfigPath := os.Getenv("SELECTORS_CONFIG_PATH")
	if selectorsConfigPath == "" {
		selectorsConfigPath = "config/selectors.json"
	}

	return &Config{
		GalleryURL:              galleryURL,
		CatalogBaseURL:          catalogBaseURL,
		CatalogAPIKey:           catalogAPIKey,
		CatalogRateLimit:        catalogRateLimit,
		QuietPeriod:             quietPeriod,
		ControlPolicy:           controlPolicy,
		MarketplaceBaseURL:      marketplaceBaseURL,
		MarketplaceAffiliateTag: os.Getenv("MARKETPLACE_AFFILIATE_TAG"),
		Headless:                headless,
		Port:                    port,
		DiscordWebhookURL:       discordWebhookURL,
		SelectorsConfigPath:     selectorsConfigPath,
	}, nil
}

// LoadCatalog reads the catalog service configuration from the environment.
func LoadCatalog() (*CatalogConfig, error) {
	loadDotEnv()

	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = BackendMemory
	}

	cfg := &CatalogConfig{
		Backend:     backend,
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIKey:      os.Getenv("CATALOG_API_KEY"),
		Port:        os.Getenv("PORT"),
	}
	if cfg.Port == "" {
		cfg.Port = "8081"
	}

	switch backend {
	case BackendMemory:
		slog.Warn("Using in-memory product store, data is lost on restart")
	case BackendFirestore:
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required for the firestore backend")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be %q, %q or %q", backend, BackendMemory, BackendFirestore, BackendPostgres)
	}
	return cfg, nil
}
