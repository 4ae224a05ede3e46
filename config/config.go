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

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultPort            = "5000"
	defaultJWTSecret       = "Checklist-Secret"
	defaultSQLiteFile      = "checklist.db"
	defaultCatalogPath     = "data/dados_mestres.json"
	defaultFileListingPath = "data/arquivos_simulados_gcs.json"
)

// DatabaseConfig is the resolved store connection. Driver is one of the Driver* constants.
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Config is resolved once at startup and handed to every constructor.
// Request handlers never read the environment directly.
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	SkipMigrations bool
	SkipSeed       bool

	Database DatabaseConfig

	JWTSecret     string
	TokenLifespan time.Duration

	CatalogPath        string
	StorageProvider    string
	FileListingPath    string
	GCSBucket          string
	GCSCredentialsJSON string
	MatchPolicy        string

	RedisAddress         string
	RateLimitEnabled     bool
	RateLimitMaxRequests int64
	RateLimitWindow      time.Duration

	PubSubProjectID       string
	PubSubTopic           string
	PubSubCredentialsJSON string

	CORSAllowedOrigins []string
}

// FromEnv loads .env (if present) and builds the Config.
func FromEnv() (*Config, error) {
	// Load env from .env
	godotenv.Load()

	db, err := databaseFromEnv()
	if err != nil {
		return nil, err
	}

	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	cfg := &Config{
		Port:           port,
		Env:            strings.TrimSpace(os.Getenv("GO_ENV")),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		SkipMigrations: boolFromEnv("SKIP_MIGRATIONS"),
		SkipSeed:       boolFromEnv("SKIP_SEED"),
		Database:       db,

		JWTSecret:     envOr("API_SECRET", defaultJWTSecret),
		TokenLifespan: time.Duration(intFromEnv("TOKEN_HOUR_LIFESPAN", 8)) * time.Hour,

		CatalogPath:        envOr("CATALOG_PATH", defaultCatalogPath),
		StorageProvider:    strings.ToLower(envOr("STORAGE_PROVIDER", "file")),
		FileListingPath:    envOr("FILE_LISTING_PATH", defaultFileListingPath),
		GCSBucket:          strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		GCSCredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),
		MatchPolicy:        strings.ToLower(envOr("MATCH_POLICY", "substring")),

		RedisAddress:         strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
		RateLimitEnabled:     boolFromEnv("RATE_LIMIT_ENABLED"),
		RateLimitMaxRequests: int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600)),
		RateLimitWindow:      time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		PubSubProjectID:       pubSubProjectID(),
		PubSubTopic:           strings.TrimSpace(os.Getenv("PUBSUB_TOPIC")),
		PubSubCredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),

		CORSAllowedOrigins: SplitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}
	if cfg.IsProduction() && cfg.JWTSecret == defaultJWTSecret {
		return nil, errors.New("API_SECRET must be set to a non-default value in production")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// databaseFromEnv resolves the store: DATABASE_URL first, then the DB_* MySQL variables,
// and finally a local SQLite file for development.
func databaseFromEnv() (DatabaseConfig, error) {
	cfg := DatabaseConfig{
		MaxOpenConns:    intFromEnv("DB_MAX_OPEN_CONNS", 50),
		MaxIdleConns:    intFromEnv("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		ConnMaxIdleTime: time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second,
	}

	if rawURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); rawURL != "" {
		driver, dsn, err := ResolveDatabaseURL(rawURL)
		if err != nil {
			return cfg, err
		}
		cfg.Driver = driver
		cfg.DSN = dsn
		return cfg, nil
	}

	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Driver = DriverMySQL
		cfg.DSN = MySQLDSN(os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), dbHost, os.Getenv("DB_PORT"), os.Getenv("DB_NAME"))
		return cfg, nil
	}

	cfg.Driver = DriverSQLite
	cfg.DSN = defaultSQLiteFile
	return cfg, nil
}

// ResolveDatabaseURL maps a DATABASE_URL onto a driver name and a DSN that driver accepts.
func ResolveDatabaseURL(rawURL string) (driver string, dsn string, err error) {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case strings.HasPrefix(rawURL, "postgres://"):
		return DriverPostgres, "postgresql://" + strings.TrimPrefix(rawURL, "postgres://"), nil
	case strings.HasPrefix(rawURL, "postgresql://"):
		return DriverPostgres, rawURL, nil
	case strings.HasPrefix(rawURL, "mysql://"):
		dsn = strings.TrimPrefix(rawURL, "mysql://")
		if !strings.Contains(dsn, "parseTime=") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		return DriverMySQL, dsn, nil
	case strings.HasPrefix(rawURL, "sqlite://"):
		dsn = strings.TrimPrefix(rawURL, "sqlite://")
		if dsn == "" {
			return "", "", errors.New("sqlite DATABASE_URL has no file path")
		}
		return DriverSQLite, dsn, nil
	case strings.HasPrefix(rawURL, "file:"):
		return DriverSQLite, rawURL, nil
	}
	return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", schemeOf(rawURL))
}

// MySQLDSN builds a go-sql-driver DSN.
//
// Cloud Run + Cloud SQL: when host is "/cloudsql/<CONNECTION_NAME>",
// connect using a Unix domain socket provided by Cloud SQL Auth Proxy.
func MySQLDSN(user, password, host, port, name string) string {
	network := "tcp"
	address := fmt.Sprintf("%s:%s", host, port)
	if strings.HasPrefix(host, "/cloudsql/") {
		network = "unix"
		address = host
	}
	return fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true",
		user,
		password,
		network,
		address,
		name,
	)
}

func schemeOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i > 0 {
		return rawURL[:i]
	}
	return ""
}

func pubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return os.Getenv("GCP_PROJECT")
}

func envOr(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
