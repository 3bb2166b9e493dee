// Package config loads the service settings from the environment, optionally
// seeded from .env.local / .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session policies
const (
	// SessionPolicyStored requires the presented token to match the one
	// stored on the user record, so logout revokes it.
	SessionPolicyStored = "stored"
	// SessionPolicyStateless accepts any signed, unexpired token of an
	// existing user.
	SessionPolicyStateless = "stateless"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	RedisURL    string

	JWTSecret     string
	TokenTTL      time.Duration
	BcryptCost    int
	SessionPolicy string

	SendGridAPIKey string
	MailFrom       string
	PublicBaseURL  string

	AvatarDir      string
	UploadTmpDir   string
	AvatarMaxBytes int64

	VerifyResendCooldown time.Duration

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

// Load reads .env.local and .env when present and builds a Config from the
// environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":3000"),
		DatabaseURL:          getenv("DATABASE_URL", ""),
		RedisURL:             getenv("REDIS_URL", ""),
		JWTSecret:            getenv("JWT_SECRET", ""),
		SessionPolicy:        strings.ToLower(getenv("SESSION_POLICY", SessionPolicyStored)),
		SendGridAPIKey:       getenv("SENDGRID_API_KEY", ""),
		MailFrom:             getenv("MAIL_FROM", "no-reply@localhost"),
		PublicBaseURL:        strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		AvatarDir:            getenv("AVATAR_DIR", "public/avatars"),
		UploadTmpDir:         getenv("UPLOAD_TMP_DIR", "tmp"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
	}

	var errs []error

	for _, req := range []struct{ key, val string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"JWT_SECRET", cfg.JWTSecret},
	} {
		if req.val == "" {
			errs = append(errs, fmt.Errorf("missing env: %s", req.key))
		}
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.VerifyResendCooldown, err = durationEnv("VERIFY_RESEND_COOLDOWN", time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", 10); err != nil {
		errs = append(errs, err)
	}
	maxBytes, err := intEnv("AVATAR_MAX_BYTES", 1<<20)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.AvatarMaxBytes = int64(maxBytes)

	if cfg.SessionPolicy != SessionPolicyStored && cfg.SessionPolicy != SessionPolicyStateless {
		errs = append(errs, fmt.Errorf("invalid SESSION_POLICY %q", cfg.SessionPolicy))
	}

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
