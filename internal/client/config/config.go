// Package config loads client configuration from env and an optional
// .env file using Viper. Flags on the CLI override these values.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/session"
)

// Config holds the client-side settings.
type Config struct {
	// ServerURL is the voting backend base URL.
	ServerURL string `mapstructure:"EVOTING_SERVER_URL"`
	// SessionPath is where the session credential file lives.
	SessionPath string `mapstructure:"EVOTING_SESSION_PATH"`
	// HTTPTimeout bounds every single API request.
	HTTPTimeout time.Duration `mapstructure:"EVOTING_HTTP_TIMEOUT"`
	// PollInterval is the wait between verification status polls.
	PollInterval time.Duration `mapstructure:"EVOTING_POLL_INTERVAL"`
	// PollTimeout caps how long `verify status --wait` keeps polling.
	PollTimeout time.Duration `mapstructure:"EVOTING_POLL_TIMEOUT"`
}

// Load reads .env (if present), then the environment. Missing .env is
// ignored; env vars override file values.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("EVOTING_SERVER_URL", "http://localhost:8000")
	v.SetDefault("EVOTING_SESSION_PATH", session.DefaultPath())
	v.SetDefault("EVOTING_HTTP_TIMEOUT", "30s")
	v.SetDefault("EVOTING_POLL_INTERVAL", "2s")
	v.SetDefault("EVOTING_POLL_TIMEOUT", "2m")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
