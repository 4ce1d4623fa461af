package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret         string   `mapstructure:"JWT_SECRET"`
	JWTAccessTTLMin   int      `mapstructure:"JWT_ACCESS_TTL_MIN"`
	JWTRefreshTTLHrs  int      `mapstructure:"JWT_REFRESH_TTL_HOURS"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	StorageBackend    string   `mapstructure:"STORAGE_BACKEND"`
	DocumentsRootPath string   `mapstructure:"DOCUMENTS_ROOT_PATH"`
	AzureAccountName  string   `mapstructure:"AZURE_STORAGE_ACCOUNT_NAME"`
	AzureConnString   string   `mapstructure:"AZURE_STORAGE_CONNECTION_STRING"`
	AutoCreateAdmin   bool     `mapstructure:"AUTO_CREATE_ADMIN"`
	InitialAdminPass  string   `mapstructure:"INITIAL_ADMIN_PASSWORD"`
	RateLimitRPS      float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int      `mapstructure:"RATE_LIMIT_BURST"`
	MigrationsDir     string   `mapstructure:"MIGRATIONS_DIR"`
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
	v.SetDefault("JWT_ACCESS_TTL_MIN", 15)
	v.SetDefault("JWT_REFRESH_TTL_HOURS", 168)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("DOCUMENTS_ROOT_PATH", "./documents")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_ACCESS_TTL_MIN")
	v.BindEnv("JWT_REFRESH_TTL_HOURS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("STORAGE_BACKEND")
	v.BindEnv("DOCUMENTS_ROOT_PATH")
	v.BindEnv("AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("AZURE_STORAGE_CONNECTION_STRING")
	v.BindEnv("AUTO_CREATE_ADMIN")
	v.BindEnv("INITIAL_ADMIN_PASSWORD")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
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

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode without JWT_SECRET.")
		log.Println("WARNING: A random per-process secret will be generated; issued")
		log.Println("WARNING: tokens become invalid on every restart.")
		log.Println("WARNING: Set JWT_SECRET before deploying to production.")
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

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret of at least 32 bytes is required so that access tokens cannot
// be forged, and the selected storage backend must be fully configured.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%q. Refusing to start without a signing secret", c.Env)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
		}
	}

	switch c.StorageBackend {
	case "local":
		if c.DocumentsRootPath == "" {
			return fmt.Errorf("DOCUMENTS_ROOT_PATH is required when STORAGE_BACKEND is \"local\"")
		}
	case "azure":
		if c.AzureAccountName == "" && c.AzureConnString == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT_NAME or AZURE_STORAGE_CONNECTION_STRING is required when STORAGE_BACKEND is \"azure\"")
		}
	case "memory":
		// in-memory backend needs no configuration
	default:
		return fmt.Errorf("STORAGE_BACKEND must be \"local\", \"azure\", or \"memory\", got %q", c.StorageBackend)
	}

	if c.AutoCreateAdmin && c.InitialAdminPass == "" {
		return fmt.Errorf("INITIAL_ADMIN_PASSWORD is required when AUTO_CREATE_ADMIN is true")
	}

	return nil
}
