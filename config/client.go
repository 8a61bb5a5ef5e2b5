package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ClientConfig configures the expensectl terminal client.
type ClientConfig struct {
	APIURL             string        `env:"API_URL" envDefault:"http://localhost:5000"`
	FirebaseAPIKey     string        `env:"FIREBASE_API_KEY,required,notEmpty"`
	IdentityURL        string        `env:"IDENTITY_URL" envDefault:"https://identitytoolkit.googleapis.com/v1"`
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
}

// GoogleEnabled reports whether federated sign-in has OAuth client credentials.
func (c ClientConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func LoadClient() (ClientConfig, error) {
	if err := loadDotEnv(); err != nil {
		return ClientConfig{}, err
	}

	var cfg ClientConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "EXPENSECTL_"}); err != nil {
		return cfg, fmt.Errorf("parse client config: %w", err)
	}
	return cfg, nil
}
