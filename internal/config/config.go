// README: Config loader (viper) with env defaults for HTTP, DB, Redis, Gemini, auth, and quota settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
}

type AuthConfig struct {
	Provider                string
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	JWTSecret               string
	JWTIssuer               string
}

type Config struct {
	HTTP struct {
		Addr        string
		CORSOrigins []string
	}
	DB struct {
		DSN     string
		Migrate bool
	}
	Redis struct {
		Addr       string
		PendingTTL time.Duration
	}
	Gemini GeminiConfig
	Auth   AuthConfig
	Maps   struct {
		APIKey string
	}
	Quota struct {
		MonthlyGenerations int
	}
	Persist struct {
		MaxAttempts int
	}
	Timezone *time.Location
	LogLevel string
}

var defaults = map[string]any{
	"http_addr":                 ":8080",
	"cors_origins":              "*",
	"db_migrate":                true,
	"redis_addr":                "",
	"pending_ttl":               "15m",
	"gemini_model":              "gemini-2.0-flash",
	"gemini_timeout":            "60s",
	"gemini_max_attempts":       1,
	"auth_provider":             AuthFirebase,
	"maps_api_key":              "",
	"quota_monthly_generations": 0,
	"persist_max_attempts":      3,
	"app_timezone":              "UTC",
	"log_level":                 "info",
}

// Load reads configuration from the environment and an optional .env file in the working directory.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is not an error;
// environment variables take precedence over the file.
func LoadFrom(envFile string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	// Required keys have no default; bind them so AutomaticEnv sees them.
	for _, k := range []string{"db_dsn", "gemini_api_key", "firebase_project_id", "firebase_credentials_file", "auth_jwt_secret", "auth_jwt_issuer"} {
		_ = v.BindEnv(k)
	}
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	var cfg Config
	cfg.HTTP.Addr = v.GetString("http_addr")
	cfg.HTTP.CORSOrigins = splitList(v.GetString("cors_origins"))
	cfg.DB.DSN = v.GetString("db_dsn")
	cfg.DB.Migrate = v.GetBool("db_migrate")
	cfg.Redis.Addr = v.GetString("redis_addr")
	cfg.Redis.PendingTTL = v.GetDuration("pending_ttl")
	cfg.Gemini = GeminiConfig{
		APIKey:      v.GetString("gemini_api_key"),
		Model:       v.GetString("gemini_model"),
		Timeout:     v.GetDuration("gemini_timeout"),
		MaxAttempts: v.GetInt("gemini_max_attempts"),
	}
	cfg.Auth = AuthConfig{
		Provider:                strings.ToLower(v.GetString("auth_provider")),
		FirebaseProjectID:       v.GetString("firebase_project_id"),
		FirebaseCredentialsFile: v.GetString("firebase_credentials_file"),
		JWTSecret:               v.GetString("auth_jwt_secret"),
		JWTIssuer:               v.GetString("auth_jwt_issuer"),
	}
	cfg.Maps.APIKey = v.GetString("maps_api_key")
	cfg.Quota.MonthlyGenerations = v.GetInt("quota_monthly_generations")
	cfg.Persist.MaxAttempts = v.GetInt("persist_max_attempts")
	cfg.LogLevel = v.GetString("log_level")

	var problems []string
	loc, err := time.LoadLocation(v.GetString("app_timezone"))
	if err != nil {
		problems = append(problems, fmt.Sprintf("APP_TIMEZONE: %v", err))
	}
	cfg.Timezone = loc
	problems = append(problems, cfg.missing()...)
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// missing lists every required key that is unset or inconsistent.
func (c Config) missing() []string {
	var out []string
	if c.DB.DSN == "" {
		out = append(out, "DB_DSN is required")
	}
	if c.Gemini.APIKey == "" {
		out = append(out, "GEMINI_API_KEY is required")
	}
	switch c.Auth.Provider {
	case AuthFirebase:
		if c.Auth.FirebaseProjectID == "" {
			out = append(out, "FIREBASE_PROJECT_ID is required when AUTH_PROVIDER=firebase")
		}
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			out = append(out, "AUTH_JWT_SECRET is required when AUTH_PROVIDER=jwt")
		}
	default:
		out = append(out, fmt.Sprintf("AUTH_PROVIDER must be %q or %q", AuthFirebase, AuthJWT))
	}
	if c.Gemini.MaxAttempts < 1 {
		out = append(out, "GEMINI_MAX_ATTEMPTS must be at least 1")
	}
	if c.Persist.MaxAttempts < 1 {
		out = append(out, "PERSIST_MAX_ATTEMPTS must be at least 1")
	}
	if c.Gemini.Timeout <= 0 {
		out = append(out, "GEMINI_TIMEOUT must be positive")
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
