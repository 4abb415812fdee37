package config

import (
	"log"
	"os"
	"time"
)

type Config struct {
	HTTPAddr    string
	DatabaseDSN string
	JWTSecret   string

	// OTPEcho makes request-otp return the generated code in the
	// response body. Development convenience only; never enable where
	// a real SMS gateway is wired.
	OTPEcho bool

	// ProcessingDelay is how long a verification sits in "processing"
	// after the selfie upload before its outcome becomes visible.
	ProcessingDelay time.Duration
}

func Load() Config {
	cfg := Config{
		HTTPAddr:        getEnv("EVOTING_HTTP_ADDR", ":8000"),
		DatabaseDSN:     getEnv("EVOTING_DB_DSN", "file:evoting.db?cache=shared&mode=rwc"),
		JWTSecret:       getEnv("EVOTING_JWT_SECRET", "dev-secret-change"),
		OTPEcho:         getEnv("EVOTING_OTP_ECHO", "false") == "true",
		ProcessingDelay: getDuration("EVOTING_PROCESSING_DELAY", 5*time.Second),
	}
	if cfg.JWTSecret == "dev-secret-change" {
		log.Println("WARNING: using development JWT secret; set EVOTING_JWT_SECRET")
	}
	return cfg
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
