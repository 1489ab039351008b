package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	MediaLocal      = "local"
	MediaCloudinary = "cloudinary"
)

// Config holds all configuration for the application
type Config struct {
	// Application settings
	Port    string `envconfig:"PORT" default:"8080"`
	GinMode string `envconfig:"GIN_MODE" default:"debug"`
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	// Entity store
	StoreDriver         string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongodbURL          string `envconfig:"MONGODB_URL"`
	MongodbDatabase     string `envconfig:"MONGODB_DATABASE" default:"dotify"`
	MongodbTransactions bool   `envconfig:"MONGODB_TRANSACTIONS" default:"false"`

	// Catalog page cache. An empty URL keeps the cache in process.
	ValkeyURL       string        `envconfig:"VALKEY_URL"`
	CacheL1Items    int           `envconfig:"CACHE_L1_ITEMS" default:"1000"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"60s"`

	// Credentials
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"720h"`

	// Embedded; their variables carry no prefix
	MediaConfig
	LoggingConfig
}

// MediaConfig selects and configures the upload provider
type MediaConfig struct {
	Provider     string `envconfig:"MEDIA_PROVIDER" default:"local"`
	CloudName    string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	APIKey       string `envconfig:"CLOUDINARY_API_KEY"`
	APISecret    string `envconfig:"CLOUDINARY_API_SECRET"`
	FolderPrefix string `envconfig:"MEDIA_FOLDER_PREFIX" default:"dotify"`
	UploadDir    string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	MaxUploadMB  int64  `envconfig:"MAX_UPLOAD_MB" default:"50"`
}

// LoggingConfig controls the slog handler and optional rotating log file
type LoggingConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	Format         string `envconfig:"LOG_FORMAT" default:"json"`
	File           string `envconfig:"LOG_FILE"`
	FileMaxSizeMB  int    `envconfig:"LOG_FILE_MAX_SIZE_MB" default:"100"`
	FileMaxBackups int    `envconfig:"LOG_FILE_MAX_BACKUPS" default:"3"`
	FileMaxAgeDays int    `envconfig:"LOG_FILE_MAX_AGE_DAYS" default:"30"`
}

// Load reads a .env file if present, then configuration from environment
// variables
func Load() (*Config, error) {
	// Missing .env is fine; real environment variables take precedence
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks combinations envconfig cannot express
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongodbURL == "" {
			return fmt.Errorf("MONGODB_URL is required when STORE_DRIVER is %s", StoreMongo)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unsupported store driver: %s", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	switch c.MediaConfig.Provider {
	case MediaLocal:
	case MediaCloudinary:
		if c.MediaConfig.CloudName == "" || c.MediaConfig.APIKey == "" || c.MediaConfig.APISecret == "" {
			return fmt.Errorf("cloudinary requires cloud name, api key and api secret")
		}
	default:
		return fmt.Errorf("unsupported media provider: %s", c.MediaConfig.Provider)
	}

	if c.MediaConfig.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	switch c.LoggingConfig.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %s", c.LoggingConfig.Format)
	}

	return nil
}
