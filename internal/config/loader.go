package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/unalkalkan/NovelShelf/pkg/types"
	"gopkg.in/yaml.v3"
)

// DefaultMaxEntrySize caps the decompressed size of a single archive entry.
const DefaultMaxEntrySize int64 = 256 << 20

// Load reads and parses the configuration file on top of the defaults.
// An empty path yields the defaults. Environment variables with the NS_
// prefix (and the deployment variables PORT, API_BASE_URL, FRONTEND_URL)
// override file values.
func Load(configPath string) (*types.Config, error) {
	cfg := GetDefault()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	resolvePaths(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads the dotenv file matching appEnv into the process
// environment: ".env.production" for "production", ".env.local" otherwise.
// Variables already set are not overwritten. A missing file is not an error.
// It returns the file that was loaded, or "" when none was found.
func LoadDotEnv(dir, appEnv string) (string, error) {
	name := ".env.local"
	if strings.EqualFold(appEnv, "production") {
		name = ".env.production"
	}
	path := filepath.Join(dir, name)

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load %s: %w", path, err)
	}
	return path, nil
}

// Validate checks if the configuration is valid and fills zero-valued tunables
func Validate(cfg *types.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	switch cfg.Storage.Adapter {
	case "local", "s3", "memory":
	default:
		return fmt.Errorf("invalid storage adapter: %s (must be 'local', 's3' or 'memory')", cfg.Storage.Adapter)
	}

	if cfg.Storage.Adapter == "local" {
		if cfg.Storage.Local.BasePath == "" {
			return fmt.Errorf("local storage base_path is required")
		}
		if !filepath.IsAbs(cfg.Storage.Local.BasePath) {
			return fmt.Errorf("local storage base_path must be absolute: %s", cfg.Storage.Local.BasePath)
		}
	}

	if cfg.Storage.Adapter == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	}

	switch cfg.Metadata.Backend {
	case "json":
		if cfg.Metadata.Key == "" {
			return fmt.Errorf("metadata key is required for the json backend")
		}
	case "sqlite":
		if cfg.Metadata.SQLitePath == "" {
			return fmt.Errorf("metadata sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("invalid metadata backend: %s (must be 'json' or 'sqlite')", cfg.Metadata.Backend)
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	if cfg.Storage.EpubPrefix == "" {
		cfg.Storage.EpubPrefix = "epub"
	}
	if cfg.Storage.CoverPrefix == "" {
		cfg.Storage.CoverPrefix = "cover"
	}
	if cfg.Storage.PublicPrefix == "" {
		cfg.Storage.PublicPrefix = "public"
	}
	if cfg.Metadata.RefreshConcurrency <= 0 {
		cfg.Metadata.RefreshConcurrency = 4
	}
	if cfg.Epub.MaxEntrySize <= 0 {
		cfg.Epub.MaxEntrySize = DefaultMaxEntrySize
	}
	cfg.Server.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/")

	return nil
}

// applyEnvOverrides applies environment variable overrides
// Environment variables should be prefixed with NS_ (NovelShelf)
func applyEnvOverrides(cfg *types.Config) {
	// Deployment variables first so the prefixed ones win
	if val := os.Getenv("PORT"); val != "" {
		setInt(&cfg.Server.Port, val)
	}
	if val := os.Getenv("API_BASE_URL"); val != "" {
		cfg.Server.PublicBaseURL = strings.TrimSuffix(strings.TrimRight(val, "/"), "/api")
	}
	if val := os.Getenv("FRONTEND_URL"); val != "" {
		cfg.Server.FrontendURL = val
	}

	// Server overrides
	if val := os.Getenv("NS_SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("NS_SERVER_PORT"); val != "" {
		setInt(&cfg.Server.Port, val)
	}
	if val := os.Getenv("NS_SERVER_PUBLIC_BASE_URL"); val != "" {
		cfg.Server.PublicBaseURL = val
	}
	if val := os.Getenv("NS_SERVER_FRONTEND_URL"); val != "" {
		cfg.Server.FrontendURL = val
	}
	if val := os.Getenv("NS_SERVER_ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = splitList(val)
	}

	// Storage overrides
	if val := os.Getenv("NS_STORAGE_ADAPTER"); val != "" {
		cfg.Storage.Adapter = val
	}
	if val := os.Getenv("NS_STORAGE_LOCAL_BASE_PATH"); val != "" {
		cfg.Storage.Local.BasePath = val
	}
	if val := os.Getenv("NS_STORAGE_S3_BUCKET"); val != "" {
		cfg.Storage.S3.Bucket = val
	}
	if val := os.Getenv("NS_STORAGE_S3_REGION"); val != "" {
		cfg.Storage.S3.Region = val
	}
	if val := os.Getenv("NS_STORAGE_S3_ENDPOINT"); val != "" {
		cfg.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("NS_STORAGE_S3_ACCESS_KEY_ID"); val != "" {
		cfg.Storage.S3.AccessKeyID = val
	}
	if val := os.Getenv("NS_STORAGE_S3_SECRET_ACCESS_KEY"); val != "" {
		cfg.Storage.S3.SecretAccessKey = val
	}

	// Metadata store overrides
	if val := os.Getenv("NS_METADATA_BACKEND"); val != "" {
		cfg.Metadata.Backend = val
	}
	if val := os.Getenv("NS_METADATA_KEY"); val != "" {
		cfg.Metadata.Key = val
	}
	if val := os.Getenv("NS_METADATA_SQLITE_PATH"); val != "" {
		cfg.Metadata.SQLitePath = val
	}

	// Logging overrides
	if val := os.Getenv("NS_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("NS_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}

// resolvePaths turns relative filesystem paths into absolute ones
// against the working directory.
func resolvePaths(cfg *types.Config) {
	cfg.Storage.Local.BasePath = absPath(cfg.Storage.Local.BasePath)
	cfg.Metadata.SQLitePath = absPath(cfg.Metadata.SQLitePath)
}

func absPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func setInt(dst *int, val string) {
	if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
		*dst = n
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetDefault returns a default configuration
func GetDefault() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  15,
			WriteTimeout: 30,
			FrontendURL:  "http://localhost:3000",
		},
		Storage: types.StorageConfig{
			Adapter: "local",
			Local: types.LocalStorageOpts{
				BasePath: "/var/lib/novelshelf/storage",
			},
			EpubPrefix:   "epub",
			CoverPrefix:  "cover",
			PublicPrefix: "public",
		},
		Metadata: types.MetadataConfig{
			Backend:            "json",
			Key:                "metadata/novelMetadata.json",
			SQLitePath:         "/var/lib/novelshelf/metadata.db",
			RefreshConcurrency: 4,
		},
		Epub: types.EpubConfig{
			MaxEntrySize: DefaultMaxEntrySize,
		},
		Logging: types.LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
