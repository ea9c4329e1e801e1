package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DirectoryInstance holds the connection and mapping parameters for one
// external directory (LDAP-style) provider.
type DirectoryInstance struct {
	ID           string `mapstructure:"id"`
	URL          string `mapstructure:"url"`
	BindDN       string `mapstructure:"bind_dn"`
	BindPassword string `mapstructure:"bind_password"`
	SearchBase   string `mapstructure:"search_base"`
	// SearchFilter must contain a single %s placeholder for the escaped username.
	SearchFilter string `mapstructure:"search_filter"`
	StartTLS     bool   `mapstructure:"start_tls"`
	InsecureTLS  bool   `mapstructure:"insecure_tls"`

	// Attribute names mapped onto the normalized external profile.
	SubjectAttr     string `mapstructure:"subject_attr"`
	UsernameAttr    string `mapstructure:"username_attr"`
	DisplayNameAttr string `mapstructure:"display_name_attr"`
	EmailAttr       string `mapstructure:"email_attr"`
	PhotoAttr       string `mapstructure:"photo_attr"`

	// SyncSource marks identities from this directory as the authoritative
	// profile source for their users.
	SyncSource bool `mapstructure:"sync_source"`
}

// FederatedInstance holds the issuer/client parameters for one federated
// SSO (OIDC-style) provider.
type FederatedInstance struct {
	ID           string   `mapstructure:"id"`
	IssuerURL    string   `mapstructure:"issuer_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`

	// Claim names mapped onto the normalized external profile.
	SubjectClaim     string `mapstructure:"subject_claim"`
	UsernameClaim    string `mapstructure:"username_claim"`
	DisplayNameClaim string `mapstructure:"display_name_claim"`
	EmailClaim       string `mapstructure:"email_claim"`
	PhotoClaim       string `mapstructure:"photo_claim"`

	// RegistrationEnabled permits first-time logins to create a new account.
	RegistrationEnabled bool `mapstructure:"registration_enabled"`
	SyncSource          bool `mapstructure:"sync_source"`
}

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	RedisURL      string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	// Session settings.
	SessionLifetime      time.Duration
	SessionCookieName    string
	SessionSigningSecret string

	// Bearer token policy.
	MaxTokenLifetime   time.Duration
	MaxTokensPerUser   int
	TokenSweepInterval time.Duration

	// Password policy.
	MinPasswordScore  int
	MinPasswordLength int

	// Global policies.
	GuestAccessEnabled  bool
	AllowProfileEdits   bool
	AllowUsernameChoice bool

	// Federated issuer metadata refresh cadence.
	IssuerRefreshInterval time.Duration

	DirectoryInstances []DirectoryInstance
	FederatedInstances []FederatedInstance
}

// Defaults mirroring the documented policy ceilings. The token lifetime and
// per-user ceiling may be lowered by configuration but never raised above these.
const (
	maxTokenLifetimeCeiling = 2 * 365 * 24 * time.Hour
	maxTokensPerUserCeiling = 200
)

// LoadConfig loads configuration from environment variables, an optional
// .env file, and an optional providers file (yaml) for directory/federated
// instances.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("SESSION_LIFETIME", "24h")
	viper.SetDefault("SESSION_COOKIE_NAME", "sid")
	viper.SetDefault("SESSION_SIGNING_SECRET", "")
	viper.SetDefault("MAX_TOKEN_LIFETIME", maxTokenLifetimeCeiling.String())
	viper.SetDefault("MAX_TOKENS_PER_USER", maxTokensPerUserCeiling)
	viper.SetDefault("TOKEN_SWEEP_INTERVAL", "6h")
	viper.SetDefault("MIN_PASSWORD_SCORE", 3)
	viper.SetDefault("MIN_PASSWORD_LENGTH", 8)
	viper.SetDefault("GUEST_ACCESS_ENABLED", false)
	viper.SetDefault("ALLOW_PROFILE_EDITS", true)
	viper.SetDefault("ALLOW_USERNAME_CHOICE", true)
	viper.SetDefault("ISSUER_REFRESH_INTERVAL", "24h")
	viper.SetDefault("PROVIDERS_FILE", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	cfg.RedisURL = viper.GetString("REDIS_URL")
	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.SessionLifetime = parseDurationOr("SESSION_LIFETIME", 24*time.Hour)
	cfg.SessionCookieName = viper.GetString("SESSION_COOKIE_NAME")
	cfg.SessionSigningSecret = viper.GetString("SESSION_SIGNING_SECRET")
	if cfg.SessionSigningSecret == "" {
		cfg.SessionSigningSecret = "insecure-dev-session-secret-change-me"
		log.Println("Warning: SESSION_SIGNING_SECRET not set. Using default insecure secret.")
	}

	cfg.MaxTokenLifetime = parseDurationOr("MAX_TOKEN_LIFETIME", maxTokenLifetimeCeiling)
	if cfg.MaxTokenLifetime > maxTokenLifetimeCeiling {
		log.Printf("Warning: MAX_TOKEN_LIFETIME exceeds ceiling, clamping to %s.\n", maxTokenLifetimeCeiling)
		cfg.MaxTokenLifetime = maxTokenLifetimeCeiling
	}
	cfg.MaxTokensPerUser = viper.GetInt("MAX_TOKENS_PER_USER")
	if cfg.MaxTokensPerUser <= 0 || cfg.MaxTokensPerUser > maxTokensPerUserCeiling {
		cfg.MaxTokensPerUser = maxTokensPerUserCeiling
	}
	cfg.TokenSweepInterval = parseDurationOr("TOKEN_SWEEP_INTERVAL", 6*time.Hour)

	cfg.MinPasswordScore = viper.GetInt("MIN_PASSWORD_SCORE")
	cfg.MinPasswordLength = viper.GetInt("MIN_PASSWORD_LENGTH")
	cfg.GuestAccessEnabled = viper.GetBool("GUEST_ACCESS_ENABLED")
	cfg.AllowProfileEdits = viper.GetBool("ALLOW_PROFILE_EDITS")
	cfg.AllowUsernameChoice = viper.GetBool("ALLOW_USERNAME_CHOICE")
	cfg.IssuerRefreshInterval = parseDurationOr("ISSUER_REFRESH_INTERVAL", 24*time.Hour)

	if providersFile := viper.GetString("PROVIDERS_FILE"); providersFile != "" {
		if err := loadProviders(cfg, providersFile); err != nil {
			return nil, fmt.Errorf("failed to load providers file: %w", err)
		}
	}

	return cfg, nil
}

// loadProviders reads the directory and federated instance definitions from
// a separate viper instance so provider secrets stay out of the env surface.
func loadProviders(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	if err := v.UnmarshalKey("directories", &cfg.DirectoryInstances); err != nil {
		return fmt.Errorf("invalid directories section: %w", err)
	}
	if err := v.UnmarshalKey("federated", &cfg.FederatedInstances); err != nil {
		return fmt.Errorf("invalid federated section: %w", err)
	}

	seen := map[string]bool{}
	for _, d := range cfg.DirectoryInstances {
		if d.ID == "" || d.URL == "" {
			return fmt.Errorf("directory instance missing id or url")
		}
		if !strings.Contains(d.SearchFilter, "%s") {
			return fmt.Errorf("directory %q: search_filter must contain a %%s placeholder", d.ID)
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate provider instance id %q", d.ID)
		}
		seen[d.ID] = true
	}
	for _, f := range cfg.FederatedInstances {
		if f.ID == "" || f.IssuerURL == "" || f.ClientID == "" {
			return fmt.Errorf("federated instance missing id, issuer_url or client_id")
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate provider instance id %q", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}
