package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	minSessionSecretLength = 32
)

// AppConfig holds everything the API server reads from the environment.
type AppConfig struct {
	Env        string   `env:"APP_ENV" envDefault:"development"`
	Port       int      `env:"PORT" envDefault:"5000"`
	CORSOrigin []string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173" envSeparator:","`

	DB    DBConfig    `envPrefix:"DB_"`
	Redis RedisConfig `envPrefix:"REDIS_"`
	Auth  AuthConfig  `envPrefix:"AUTH_"`
	HTTP  HTTPConfig  `envPrefix:"HTTP_"`
}

type DBConfig struct {
	ConnectionString string        `env:"CONNECTION_STRING,required,notEmpty"`
	MaxOpenConns     int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	MaxIdleConns     int           `env:"MAX_IDLE_CONNS" envDefault:"25"`
	ConnMaxLifetime  time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	MigrateOnStart   bool          `env:"MIGRATE_ON_START" envDefault:"true"`
}

// RedisConfig is optional. An empty URL keeps session revocation in process.
type RedisConfig struct {
	URL string `env:"URL"`
}

type AuthConfig struct {
	FirebaseProjectID string        `env:"FIREBASE_PROJECT_ID,required,notEmpty"`
	SessionSecret     string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"120h"`
	JWKSURL           string        `env:"JWKS_URL" envDefault:"https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"`
	ProviderTimeout   time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"30s"`
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// IsProduction reports whether cookies must be marked Secure.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

func (c AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c AppConfig) Validate() error {
	if len(c.Auth.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("AUTH_SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("AUTH_SESSION_TTL must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

// Load reads an optional .env file and parses the process environment into AppConfig.
func Load() (AppConfig, error) {
	if err := loadDotEnv(); err != nil {
		return AppConfig{}, err
	}

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("load .env file: %w", err)
		}
	}
	return nil
}
