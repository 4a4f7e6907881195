package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                    string   `mapstructure:"PORT"`
	Env                     string   `mapstructure:"ENV"`
	DatabaseURL             string   `mapstructure:"DATABASE_URL"`
	DBMaxConns              int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns              int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer              string   `mapstructure:"AUTH_ISSUER"`
	AuthSigningSecret       string   `mapstructure:"AUTH_SIGNING_SECRET"`
	CORSOrigins             []string `mapstructure:"CORS_ORIGINS"`
	CredentialEncryptionKey string   `mapstructure:"CREDENTIAL_ENCRYPTION_KEY"`
	ImportMaxBytes          int64    `mapstructure:"IMPORT_MAX_BYTES"`
	ImportSessionTTLMinutes int      `mapstructure:"IMPORT_SESSION_TTL_MINUTES"`
	MigrationsDir           string   `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("IMPORT_MAX_BYTES", 10*1024*1024)
	v.SetDefault("IMPORT_SESSION_TTL_MINUTES", 30)
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_SIGNING_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("CREDENTIAL_ENCRYPTION_KEY")
	v.BindEnv("IMPORT_MAX_BYTES")
	v.BindEnv("IMPORT_SESSION_TTL_MINUTES")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Every request is handled under a fixed dev company/employee")
		log.Println("WARNING: identity. Do NOT use this configuration in production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
//
// CREDENTIAL_ENCRYPTION_KEY protects client API and SFTP credentials at
// rest. There is deliberately no built-in default: outside development the
// key must be set, and whenever set it must be a 64-character hex string
// (32 bytes decoded). The server refuses to start otherwise.
func (c *Config) Validate() error {
	if !c.IsDev() && c.CredentialEncryptionKey == "" {
		return fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY is required when ENV is not development")
	}
	if c.CredentialEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(c.CredentialEncryptionKey)
		if err != nil {
			return fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	if !c.IsDev() && c.AuthSigningSecret == "" {
		return fmt.Errorf("AUTH_SIGNING_SECRET is required when ENV is not development")
	}

	if c.ImportMaxBytes <= 0 {
		return fmt.Errorf("IMPORT_MAX_BYTES must be positive, got %d", c.ImportMaxBytes)
	}

	return nil
}

// EncryptionKey returns the decoded credential encryption key, or nil when
// unset (development only; encryption-dependent endpoints then refuse).
func (c *Config) EncryptionKey() []byte {
	if c.CredentialEncryptionKey == "" {
		return nil
	}
	key, err := hex.DecodeString(c.CredentialEncryptionKey)
	if err != nil {
		return nil
	}
	return key
}
