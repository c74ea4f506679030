package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/complaintdesk/internal/model"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	// Server
	Port string
	Env  string // development, production

	// Storage
	StoreDriver string
	DatabaseURL string
	MongoURL    string
	DBName      string

	// Security
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	// SMTP
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPass      string
	SMTPFromEmail string
	SMTPFromName  string

	RateLimitPerMinute int
	MaxPhotoSizeMB     int

	Seed struct {
		Email    string
		Password string
		Workflow string
		Name     string
	}

	Cors struct {
		AllowedOrigins []string
	}
}

// Load reads configuration from the environment (and .env if present), then
// applies command line overrides from args.
func Load(args []string) (*Config, error) {
	// Load .env file if it exists (don't error if missing)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []error

	fs := flag.NewFlagSet("complaintdesk", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "Server port")
	fs.StringVar(&cfg.Env, "env", getEnv("ENV", "development"), "Environment (development, production)")
	fs.StringVar(&cfg.StoreDriver, "store", getEnv("STORE_DRIVER", DriverPostgres), "Store driver (postgres, mongo, memory)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "PostgreSQL connection string")

	cfg.MongoURL = getEnv("MONGO_URL", "")
	cfg.DBName = getEnv("DB_NAME", "complaintdesk")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.TokenTTL = getDuration("TOKEN_TTL", 24*time.Hour, &errs)
	cfg.BcryptCost = getInt("BCRYPT_COST", 12, &errs)
	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.SMTPPort = getEnv("SMTP_PORT", "587")
	cfg.SMTPUser = getEnv("SMTP_USER", "")
	cfg.SMTPPass = getEnv("SMTP_PASS", "")
	cfg.SMTPFromEmail = getEnv("SMTP_FROM_EMAIL", "")
	cfg.SMTPFromName = getEnv("SMTP_FROM_NAME", "Complaint Desk")
	cfg.RateLimitPerMinute = getInt("RATE_LIMIT_PER_MINUTE", 30, &errs)
	cfg.MaxPhotoSizeMB = getInt("MAX_PHOTO_SIZE_MB", 5, &errs)
	cfg.Seed.Email = getEnv("SEED_ADMIN_EMAIL", "")
	cfg.Seed.Password = getEnv("SEED_ADMIN_PASSWORD", "")
	cfg.Seed.Workflow = getEnv("SEED_ADMIN_WORKFLOW", "")
	cfg.Seed.Name = getEnv("SEED_ADMIN_NAME", "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Parse CORS origins from comma-separated env var
	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.Cors.AllowedOrigins = append(cfg.Cors.AllowedOrigins, trimmed)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case DriverMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required for the mongo store")
		}
	case DriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, mongo, memory; got %q", c.StoreDriver)
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.MaxPhotoSizeMB <= 0 {
		return fmt.Errorf("MAX_PHOTO_SIZE_MB must be positive")
	}

	if c.Seed.Email != "" || c.Seed.Password != "" {
		if c.Seed.Email == "" || c.Seed.Password == "" {
			return fmt.Errorf("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set together")
		}
		if _, err := model.ParseWorkflow(c.Seed.Workflow); err != nil {
			return fmt.Errorf("SEED_ADMIN_WORKFLOW: %w", err)
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MaxPhotoBytes is the photo size cap in bytes.
func (c *Config) MaxPhotoBytes() int {
	return c.MaxPhotoSizeMB << 20
}

// getEnv treats an empty variable as unset.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
