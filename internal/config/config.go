package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	sharedauth "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/auth"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/envconfig"
)

// Config encapsulates the runtime configuration for the gamification service.
type Config struct {
	Port             string `validate:"required,numeric"`
	Namespace        string `validate:"required"`
	Timezone         string `validate:"required"`
	Location         *time.Location
	DataStore        DataStore
	LogLevel         string
	CacheSize        int `validate:"gte=0"`
	SessionCacheSize int `validate:"gte=0"`
	// AdminUserIDs may call operator routes such as the leaderboard reset.
	AdminUserIDs []string
	Auth         AuthConfig
	File         FileConfig
	SQLite       SQLiteConfig
	Postgres     PostgresConfig
	Firestore    FirestoreConfig
	Mongo        MongoConfig
}

// DataStore enumerates supported persistence backends.
type DataStore string

const (
	// DataStoreMemory keeps state in-process (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFile writes one JSON file per key under a directory.
	DataStoreFile DataStore = "file"
	// DataStoreSQLite stores keys in an embedded SQLite database.
	DataStoreSQLite DataStore = "sqlite"
	// DataStorePostgres stores keys in PostgreSQL.
	DataStorePostgres DataStore = "postgres"
	// DataStoreFirestore stores keys in Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
)

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode     sharedauth.Mode
	JWKSURL  string
	Audience string
	Issuer   string
	Secret   string
}

// FileConfig locates the file-backed store.
type FileConfig struct {
	Dir string
}

// SQLiteConfig locates the SQLite database.
type SQLiteConfig struct {
	Path string
}

// PostgresConfig carries the connection string.
type PostgresConfig struct {
	URL string
}

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	ProjectID    string
	Database     string
	Collection   string
	EmulatorHost string
}

// MongoConfig points at the account directory. Empty URI disables it.
type MongoConfig struct {
	URI      string
	Database string
}

// fileValues mirrors the optional TOML file. Environment variables override it.
type fileValues struct {
	Port             string   `toml:"port"`
	Namespace        string   `toml:"namespace"`
	Timezone         string   `toml:"timezone"`
	DataStore        string   `toml:"datastore"`
	LogLevel         string   `toml:"log_level"`
	CacheSize        int      `toml:"cache_size"`
	SessionCacheSize int      `toml:"session_cache_size"`
	AdminUserIDs     []string `toml:"admin_user_ids"`
	Auth             struct {
		Mode     string `toml:"mode"`
		JWKSURL  string `toml:"jwks_url"`
		Audience string `toml:"audience"`
		Issuer   string `toml:"issuer"`
	} `toml:"auth"`
	File struct {
		Dir string `toml:"dir"`
	} `toml:"file"`
	SQLite struct {
		Path string `toml:"path"`
	} `toml:"sqlite"`
	Postgres struct {
		URL string `toml:"url"`
	} `toml:"postgres"`
	Firestore struct {
		ProjectID    string `toml:"project_id"`
		Database     string `toml:"database"`
		Collection   string `toml:"collection"`
		EmulatorHost string `toml:"emulator_host"`
	} `toml:"firestore"`
	Mongo struct {
		URI      string `toml:"uri"`
		Database string `toml:"database"`
	} `toml:"mongo"`
}

// Load reads .env, the optional TOML file named by GANGA_CONFIG_FILE and the environment
// into Config with validation.
func Load() (Config, error) {
	if err := envconfig.LoadDotenv(); err != nil {
		return Config{}, err
	}

	var file fileValues
	if path := envconfig.Get("GANGA_CONFIG_FILE", ""); path != "" {
		var err error
		if file, err = readFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Port:             envconfig.Get("PORT", or(file.Port, "8080")),
		Namespace:        envconfig.Get("GANGA_NAMESPACE", or(file.Namespace, "ganga")),
		Timezone:         envconfig.Get("GANGA_TIMEZONE", or(file.Timezone, "Asia/Kolkata")),
		DataStore:        DataStore(strings.ToLower(envconfig.Get("DATASTORE", or(file.DataStore, string(DataStoreMemory))))),
		LogLevel:         envconfig.Get("LOG_LEVEL", or(file.LogLevel, "info")),
		CacheSize:        envconfig.GetInt("CACHE_SIZE", orInt(file.CacheSize, 4096)),
		SessionCacheSize: envconfig.GetInt("SESSION_CACHE_SIZE", orInt(file.SessionCacheSize, 1024)),
		AdminUserIDs:     envconfig.GetList("ADMIN_USER_IDS", file.AdminUserIDs),
		Auth: AuthConfig{
			Mode:     sharedauth.Mode(strings.ToLower(envconfig.Get("AUTH_MODE", or(file.Auth.Mode, string(sharedauth.ModeNoop))))),
			JWKSURL:  envconfig.Get("CLERK_JWKS_URL", file.Auth.JWKSURL),
			Audience: envconfig.Get("CLERK_AUDIENCE", file.Auth.Audience),
			Issuer:   envconfig.Get("CLERK_ISSUER", file.Auth.Issuer),
			Secret:   envconfig.Get("SECRET_KEY", ""),
		},
		File: FileConfig{
			Dir: envconfig.Get("GANGA_DATA_DIR", or(file.File.Dir, "data")),
		},
		SQLite: SQLiteConfig{
			Path: envconfig.Get("SQLITE_PATH", or(file.SQLite.Path, "ganga.db")),
		},
		Postgres: PostgresConfig{
			URL: envconfig.Get("DATABASE_URL", file.Postgres.URL),
		},
		Firestore: FirestoreConfig{
			ProjectID:    envconfig.Get("GCP_PROJECT_ID", file.Firestore.ProjectID),
			Database:     envconfig.Get("FIRESTORE_DATABASE", file.Firestore.Database),
			Collection:   envconfig.Get("FIRESTORE_COLLECTION", or(file.Firestore.Collection, "portal_state")),
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", file.Firestore.EmulatorHost),
		},
		Mongo: MongoConfig{
			URI:      envconfig.Get("MONGODB_URI", file.Mongo.URI),
			Database: envconfig.Get("MONGODB_DB", or(file.Mongo.Database, "capstone_db")),
		},
	}

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

func readFile(path string) (fileValues, error) {
	var out fileValues
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, fmt.Errorf("config file %s does not exist", path)
	}
	if err != nil {
		return out, fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return out, nil
}

func validate(cfg *Config) error {
	if err := envconfig.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if port, _ := strconv.Atoi(cfg.Port); port <= 0 || port > 65535 {
		return fmt.Errorf("port out of range: %s", cfg.Port)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid GANGA_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	switch cfg.DataStore {
	case DataStoreMemory:
		// no-op
	case DataStoreFile:
		if strings.TrimSpace(cfg.File.Dir) == "" {
			return fmt.Errorf("GANGA_DATA_DIR is required when datastore=file")
		}
	case DataStoreSQLite:
		if strings.TrimSpace(cfg.SQLite.Path) == "" {
			return fmt.Errorf("SQLITE_PATH is required when datastore=sqlite")
		}
	case DataStorePostgres:
		if cfg.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when datastore=postgres")
		}
	case DataStoreFirestore:
		if cfg.Firestore.ProjectID == "" {
			return fmt.Errorf("gcp project id required when datastore=firestore")
		}
	default:
		return fmt.Errorf("unsupported datastore: %s", cfg.DataStore)
	}

	switch cfg.Auth.Mode {
	case sharedauth.ModeClerk:
		if cfg.Auth.JWKSURL == "" {
			return fmt.Errorf("CLERK_JWKS_URL is required when AUTH_MODE=clerk")
		}
	case sharedauth.ModePortal:
		if cfg.Auth.Secret == "" {
			return fmt.Errorf("SECRET_KEY is required when AUTH_MODE=portal")
		}
	case sharedauth.ModeNoop:
		// no-op
	default:
		return fmt.Errorf("unsupported auth mode: %s", cfg.Auth.Mode)
	}

	return nil
}

func or(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func orInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}
