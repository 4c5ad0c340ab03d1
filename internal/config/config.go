// Package config loads the motoriz server configuration from an optional YAML
// file and MOTORIZ_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable pointing at the YAML file.
const EnvConfigPath = "MOTORIZ_CONFIG_PATH"

// Config defines server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AllowedOrigins lists the browser origins that may open the event
	// websocket. Empty allows same-origin pages only; "*" allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	RemoteURL   string `yaml:"remote_url"`
}

type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

type AuthConfig struct {
	Secret        string        `yaml:"secret"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
	AdminName     string        `yaml:"admin_name"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	LoginRate     float64       `yaml:"login_rate"`
	LoginBurst    int           `yaml:"login_burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

type StoreConfig struct {
	IDStrategy         string `yaml:"id_strategy"`
	LowStockThreshold  int64  `yaml:"low_stock_threshold"`
	Seed               bool   `yaml:"seed"`
	ChangeBuffer       int    `yaml:"change_buffer"`
	ArchiveExports     bool   `yaml:"archive_exports"`
	MaxUploadSizeBytes int64  `yaml:"max_upload_size_bytes"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Driver:     "memory",
			SQLitePath: "motoriz.db",
		},
		Blob: BlobConfig{
			Driver: "fs",
			FSRoot: "./uploads",
		},
		Auth: AuthConfig{
			Secret:        "motoriz-dev-secret",
			AdminEmail:    "admin@motoriz.id",
			AdminPassword: "password123",
			AdminName:     "Admin Motoriz",
			TokenTTL:      24 * time.Hour,
			LoginRate:     1,
			LoginBurst:    5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			IDStrategy:         "sequence",
			LowStockThreshold:  5,
			Seed:               true,
			ChangeBuffer:       32,
			MaxUploadSizeBytes: 5 << 20,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with an injectable environment lookup.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	if path := get(EnvConfigPath); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	strs := map[string]*string{
		"MOTORIZ_SERVER_HOST":        &cfg.Server.Host,
		"MOTORIZ_STORAGE_DRIVER":     &cfg.Storage.Driver,
		"MOTORIZ_SQLITE_PATH":        &cfg.Storage.SQLitePath,
		"MOTORIZ_POSTGRES_DSN":       &cfg.Storage.PostgresDSN,
		"MOTORIZ_REMOTE_URL":         &cfg.Storage.RemoteURL,
		"MOTORIZ_BLOB_DRIVER":        &cfg.Blob.Driver,
		"MOTORIZ_BLOB_FS_ROOT":       &cfg.Blob.FSRoot,
		"MOTORIZ_BLOB_S3_BUCKET":     &cfg.Blob.S3.Bucket,
		"MOTORIZ_BLOB_S3_REGION":     &cfg.Blob.S3.Region,
		"MOTORIZ_BLOB_S3_ENDPOINT":   &cfg.Blob.S3.Endpoint,
		"MOTORIZ_BLOB_S3_ACCESS_KEY": &cfg.Blob.S3.AccessKey,
		"MOTORIZ_BLOB_S3_SECRET_KEY": &cfg.Blob.S3.SecretKey,
		"MOTORIZ_AUTH_SECRET":        &cfg.Auth.Secret,
		"MOTORIZ_ADMIN_EMAIL":        &cfg.Auth.AdminEmail,
		"MOTORIZ_ADMIN_PASSWORD":     &cfg.Auth.AdminPassword,
		"MOTORIZ_LOG_LEVEL":          &cfg.Log.Level,
		"MOTORIZ_LOG_FORMAT":         &cfg.Log.Format,
		"MOTORIZ_LOG_PATH":           &cfg.Log.Path,
		"MOTORIZ_ID_STRATEGY":        &cfg.Store.IDStrategy,
	}
	for key, dst := range strs {
		if v := get(key); v != "" {
			*dst = v
		}
	}

	if portStr := get("MOTORIZ_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MOTORIZ_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := get("MOTORIZ_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, o)
			}
		}
	}
	if v := get("MOTORIZ_LOW_STOCK_THRESHOLD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MOTORIZ_LOW_STOCK_THRESHOLD: %w", err)
		}
		cfg.Store.LowStockThreshold = n
	}
	if v := get("MOTORIZ_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MOTORIZ_TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = d
	}
	bools := map[string]*bool{
		"MOTORIZ_SEED":               &cfg.Store.Seed,
		"MOTORIZ_ARCHIVE_EXPORTS":    &cfg.Store.ArchiveExports,
		"MOTORIZ_BLOB_S3_PATH_STYLE": &cfg.Blob.S3.PathStyle,
	}
	for key, dst := range bools {
		v := get(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot be served.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	case "remote":
		if c.Storage.RemoteURL == "" {
			return fmt.Errorf("storage driver remote requires remote_url")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret must not be empty")
	}
	if c.Store.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold must not be negative")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
