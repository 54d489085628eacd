package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	Port          string
	StorageDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret        string
	CORSAllowOrigins []string

	// ExcludedScoringTypes overrides the catalog's excluded-from-scoring flags when non-nil.
	ExcludedScoringTypes []string
	// LockApprovedDocuments refuses re-review of fully approved documents.
	LockApprovedDocuments bool

	ArchiveTable    string
	ArchiveEndpoint string
	AWSRegion       string
}

// Load reads configs/.env when present, then the environment, applying defaults.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{"configs/.env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			log.Printf("No %s file found or error loading it", f)
		}
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		StorageDriver:         normalizeDriver(getEnv("STORAGE_DRIVER", StoragePostgres)),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "5432"),
		DBUser:                getEnv("DB_USER", "postgres"),
		DBPassword:            getEnv("DB_PASSWORD", "postgres"),
		DBName:                getEnv("DB_NAME", "postgres"),
		DBSSLMode:             getEnv("DB_SSLMODE", "disable"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		CORSAllowOrigins:      splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		LockApprovedDocuments: getBool("LOCK_APPROVED_DOCUMENTS", false),
		ArchiveTable:          os.Getenv("ARCHIVE_TABLE"),
		ArchiveEndpoint:       os.Getenv("ARCHIVE_ENDPOINT"),
		AWSRegion:             os.Getenv("AWS_REGION"),
	}
	if raw, ok := os.LookupEnv("EXCLUDED_SCORING_TYPES"); ok {
		cfg.ExcludedScoringTypes = splitAndTrim(raw)
		if cfg.ExcludedScoringTypes == nil {
			cfg.ExcludedScoringTypes = []string{}
		}
	}
	return cfg
}

// DSN builds the postgres connection string.
func (c Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// ExcludedSet returns the configured exclusion set, or nil to defer to the catalog.
func (c Config) ExcludedSet() map[string]bool {
	if c.ExcludedScoringTypes == nil {
		return nil
	}
	out := make(map[string]bool, len(c.ExcludedScoringTypes))
	for _, id := range c.ExcludedScoringTypes {
		out[id] = true
	}
	return out
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("invalid boolean for %s: %q, using %v", key, val, def)
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StorageMemory:
		return StorageMemory
	default:
		return StoragePostgres
	}
}
