package types

// Config represents the overall application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Metadata MetadataConfig `yaml:"metadata" json:"metadata"`
	Epub     EpubConfig     `yaml:"epub" json:"epub"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	ReadTimeout  int    `yaml:"read_timeout" json:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" json:"write_timeout"` // seconds

	// PublicBaseURL is the externally visible origin of this API
	// (e.g. "https://api.example.com"). Image URLs embedded in chapter
	// content are built from it; when empty they are derived from the request.
	PublicBaseURL string `yaml:"public_base_url" json:"public_base_url"`

	// FrontendURL is the reader application's origin, always allowed by CORS.
	FrontendURL    string   `yaml:"frontend_url" json:"frontend_url"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// StorageConfig defines storage adapter settings
type StorageConfig struct {
	Adapter string           `yaml:"adapter" json:"adapter"` // "local" or "s3"
	Local   LocalStorageOpts `yaml:"local" json:"local"`
	S3      S3StorageOpts    `yaml:"s3" json:"s3"`

	// EpubPrefix and CoverPrefix are the key prefixes holding archives and cover images.
	EpubPrefix  string `yaml:"epub_prefix" json:"epub_prefix"`
	CoverPrefix string `yaml:"cover_prefix" json:"cover_prefix"`

	// PublicPrefix holds the reader front-end (index.html, reader/index.html, assets).
	PublicPrefix string `yaml:"public_prefix" json:"public_prefix"`
}

// LocalStorageOpts configures the local filesystem adapter
type LocalStorageOpts struct {
	BasePath string `yaml:"base_path" json:"base_path"`
}

// S3StorageOpts configures the S3-compatible adapter
type S3StorageOpts struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	Region          string `yaml:"region" json:"region"`
	Bucket          string `yaml:"bucket" json:"bucket"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl" json:"use_ssl"`
}

// MetadataConfig selects and configures the novel metadata store
type MetadataConfig struct {
	Backend string `yaml:"backend" json:"backend"` // "json" or "sqlite"

	// Key is the storage key of the JSON metadata document. The sqlite
	// backend seeds itself from this document when its table is empty.
	Key        string `yaml:"key" json:"key"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`

	// RefreshConcurrency bounds how many archives a batch update opens at once.
	RefreshConcurrency int `yaml:"refresh_concurrency" json:"refresh_concurrency"`
}

// EpubConfig holds archive extraction settings
type EpubConfig struct {
	MaxEntrySize int64           `yaml:"max_entry_size" json:"max_entry_size"` // bytes
	Exclusion    ExclusionConfig `yaml:"exclusion" json:"exclusion"`
}

// ExclusionConfig lists case-insensitive substrings that mark non-content
// navigation entries. A nil group keeps the built-in defaults; an empty
// list disables that group.
type ExclusionConfig struct {
	Cover       []string `yaml:"cover" json:"cover"`
	Navigation  []string `yaml:"navigation" json:"navigation"`
	FrontMatter []string `yaml:"front_matter" json:"front_matter"`
	Files       []string `yaml:"files" json:"files"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" json:"format"` // "json" or "text"
}
