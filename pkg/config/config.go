package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root application configuration, loaded once at startup
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Keycloak KeycloakConfig
	Cookie   AuthCookieConfig
	OAuth    OAuthConfig
	Frontend FrontendConfig
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	AppName     string
	Port        string
	CORSOrigins string
	BodyLimit   int
}

// DatabaseConfig configures the Postgres connection
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig configures the Redis connection
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Address returns host:port
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// OAuthConfig configures the authorization flow plumbing
type OAuthConfig struct {
	// StateBackend selects the pending-state store: "memory" or "redis"
	StateBackend string

	// StateTTL bounds how long a pending login attempt stays consumable
	StateTTL time.Duration
}

// FrontendConfig locates the browser-facing application for redirects
type FrontendConfig struct {
	BaseURL string
}

// LoginErrorURL builds the login-page redirect carrying an error code
func (f FrontendConfig) LoginErrorURL(code string) string {
	return f.BaseURL + "/login?error=" + code
}

// Load reads the full configuration from the environment
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			AppName:     getEnv("APP_NAME", "Lumera Academy"),
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
			BodyLimit:   getEnvInt("BODY_LIMIT_BYTES", 1024*1024),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "academy"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "academy"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Keycloak: loadKeycloakConfig(),
		Cookie:   loadAuthCookieConfig(),
		OAuth: OAuthConfig{
			StateBackend: getEnv("OAUTH_STATE_BACKEND", "memory"),
			StateTTL:     getEnvDuration("OAUTH_STATE_TTL", 10*time.Minute),
		},
		Frontend: FrontendConfig{
			BaseURL: strings.TrimSuffix(getEnv("FRONTEND_BASE_URL", "http://localhost:3000"), "/"),
		},
	}
}

// ---------------------------------------------------------------------------
// env helpers
// ---------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
