// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string `env:"APP_ENV" env-default:"dev"`                        // application environment (dev, test, prod)
	Port        string `env:"APP_PORT" env-default:"8080"`                      // HTTP port to listen on
	BaseURL     string `env:"APP_BASE_URL" env-default:"http://localhost:8080"` // public URL of this API
	FrontendURL string `env:"FRONTEND_URL" env-default:"http://localhost:3000"` // target of verification redirects
	CORSOrigins string `env:"CORS_ORIGINS" env-default:"http://localhost:3000"` // comma-separated allowed origins

	DB DBConfig

	JWTSecret       string        `env:"JWT_SECRET" env-required:"true"`          // secret used to sign JWTs
	AccessTTLMin    int           `env:"ACCESS_TOKEN_TTL_MIN" env-default:"15"`   // access token TTL in minutes
	RefreshTTLDays  int           `env:"REFRESH_TOKEN_TTL_DAYS" env-default:"30"` // refresh token TTL in days
	BcryptCost      int           `env:"BCRYPT_COST" env-default:"12"`            // bcrypt cost for password hashing
	VerificationTTL time.Duration `env:"EMAIL_VERIFICATION_TTL" env-default:"24h"`

	AMQPURL    string `env:"RABBITMQ_URL" env-default:""` // empty disables event publishing
	CronSecret string `env:"CRON_SECRET" env-default:""`  // empty disables the retention endpoint

	Uploads   UploadConfig
	Retention RetentionConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Redis     RedisConfig
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User    string        `env:"DB_USER" env-required:"true"`
	Pass    string        `env:"DB_PASS"`
	Host    string        `env:"DB_HOST" env-default:"127.0.0.1"`
	Port    string        `env:"DB_PORT" env-default:"3306"`
	Name    string        `env:"DB_NAME" env-required:"true"`
	Timeout time.Duration `env:"DB_TIMEOUT" env-default:"5s"` // per-request bound on store calls
	Migrate bool          `env:"DB_MIGRATE" env-default:"true"`
}

// UploadConfig controls where project files are stored and how large they
// may be.
type UploadConfig struct {
	Dir      string `env:"UPLOAD_DIR" env-default:"uploads"`
	MaxBytes int64  `env:"UPLOAD_MAX_BYTES" env-default:"10485760"`
}

// RetentionConfig sets the age thresholds of the data-retention job.
type RetentionConfig struct {
	ReadNotificationDays int `env:"RETENTION_READ_NOTIFICATION_DAYS" env-default:"90"`
	DraftBriefingDays    int `env:"RETENTION_DRAFT_BRIEFING_DAYS" env-default:"180"`
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool { return c.Env == "prod" || c.Env == "production" }

// Load reads a .env file when present, fills Config from the environment
// and applies defaults and bounds that cannot be expressed in tags.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	cfg.RateLimit.normalize()
	cfg.Cache.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST out of range: %d", c.BcryptCost)
	}
	if c.AccessTTLMin <= 0 || c.RefreshTTLDays <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Uploads.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}
