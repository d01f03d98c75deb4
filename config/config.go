package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"carprice/features"
)

// EnvPrefix prefixes every environment variable read by Load. A double
// underscore separates nested keys: CARPRICE_POSTGRES__HOST.
const EnvPrefix = "CARPRICE_"

// Config holds all application configuration.
type Config struct {
	ListenAddr     string `koanf:"listen_addr"`
	ArtifactPath   string `koanf:"artifact_path"`
	BrandMinCount  int    `koanf:"brand_min_count"`
	OutputDir      string `koanf:"output_dir"`
	MaxUploadMB    int64  `koanf:"max_upload_mb"`
	MaxConcurrency int    `koanf:"max_concurrency"`

	Log      LogConfig      `koanf:"log"`
	Postgres PostgresConfig `koanf:"postgres"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// PostgresConfig configures optional prediction persistence.
type PostgresConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DB       string `koanf:"db"`
	SSLMode  string `koanf:"sslmode"`
}

// Load reads the .env file, then the optional YAML file at path, then
// CARPRICE_* environment variables, and applies defaults. Later sources win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func applyDefaults(c *Config) {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.ArtifactPath == "" {
		c.ArtifactPath = "./artifacts/pipeline.yaml"
	}
	if c.BrandMinCount == 0 {
		c.BrandMinCount = features.DefaultBrandMinCount
	}
	if c.OutputDir == "" {
		c.OutputDir = "./output"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 32
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 3
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.User == "" {
		c.Postgres.User = "carprice"
	}
	if c.Postgres.DB == "" {
		c.Postgres.DB = "carprice"
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
}

func (c *Config) validate() error {
	if c.BrandMinCount < 1 {
		return fmt.Errorf("config: brand_min_count must be positive, got %d", c.BrandMinCount)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("config: max_concurrency must be positive, got %d", c.MaxConcurrency)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("config: max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	p := c.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DB, p.SSLMode)
}
