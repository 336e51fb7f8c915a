package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	EnvStoreURL       = "SUPABASE_URL"
	EnvStorePublicKey = "SUPABASE_PUBLISHABLE_KEY"

	DefaultSoloUsername = "whole2swole"
	DefaultSoloEmail    = "whole2swole@local.app"
)

// Env holds the settings read once from the environment at startup.
// The store URL and key are required, everything else falls back to a default.
type Env struct {
	StoreURL       string `env:"SUPABASE_URL"`
	StorePublicKey string `env:"SUPABASE_PUBLISHABLE_KEY"`

	// SoloUsername is only displayed, SoloEmail is the account identity the PIN signs in as
	SoloUsername string `env:"SOLO_USERNAME, default=whole2swole"`
	SoloEmail    string `env:"SOLO_EMAIL, default=whole2swole@local.app"`

	RedisPassword    string `env:"WHOLE2SWOLE_REDIS_PASS"`
	SentryDSN        string `env:"SENTRY_DSN"`
	HoneycombEnabled bool   `env:"HONEYCOMB_ENABLED, default=false"`
	HoneycombAPIKey  string `env:"HONEYCOMB_API_KEY"`
}

type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing env var: %s", e.Name)
}

func LoadEnv(ctx context.Context) (*Env, error) {
	return LoadEnvWith(ctx, envconfig.OsLookuper())
}

func LoadEnvWith(ctx context.Context, lookuper envconfig.Lookuper) (*Env, error) {
	var env Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if env.StoreURL == "" {
		return nil, &MissingEnvError{Name: EnvStoreURL}
	}
	if env.StorePublicKey == "" {
		return nil, &MissingEnvError{Name: EnvStorePublicKey}
	}

	return &env, nil
}

// LoadDotEnv copies a local .env file into the process environment. Variables already set win,
// and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
