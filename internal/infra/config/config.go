package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Packs    PacksConfig    `mapstructure:"packs" yaml:"packs"`
	Fetchers FetchersConfig `mapstructure:"fetchers" yaml:"fetchers"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	Port string `mapstructure:"port" yaml:"port"`
}

type CatalogConfig struct {
	// Backend selects where region documents come from: "bucket" reads
	// regions/<id>.json from the storage bucket, "postgres" queries a
	// catalog database.
	Backend     string `mapstructure:"backend" yaml:"backend"`
	PostgresURL string `mapstructure:"postgres_url" yaml:"postgres_url"`
}

type StorageConfig struct {
	// BucketURL is a gocloud driver URL, e.g. "s3://charts-bucket?region=us-west-2"
	// or "file:///var/lib/chartpack/mirror" for a local mirror.
	BucketURL string `mapstructure:"bucket_url" yaml:"bucket_url"`

	// BaseURL, when set, bypasses signed URLs and fetches storage paths
	// relative to a plain HTTP mirror.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	SignedURLExpiryMinutes int `mapstructure:"signed_url_expiry_minutes" yaml:"signed_url_expiry_minutes"`
}

type PacksConfig struct {
	Dir                 string `mapstructure:"dir" yaml:"dir"`
	TmpDir              string `mapstructure:"tmp_dir" yaml:"tmp_dir"`
	AuxDir              string `mapstructure:"aux_dir" yaml:"aux_dir"`
	LedgerPath          string `mapstructure:"ledger_path" yaml:"ledger_path"`
	ManifestPath        string `mapstructure:"manifest_path" yaml:"manifest_path"`
	StallTimeoutSeconds int    `mapstructure:"stall_timeout_seconds" yaml:"stall_timeout_seconds"`
}

type FetchersConfig struct {
	PredictionsURL string `mapstructure:"predictions_url" yaml:"predictions_url"`
	BuoysURL       string `mapstructure:"buoys_url" yaml:"buoys_url"`
	ZonesURL       string `mapstructure:"zones_url" yaml:"zones_url"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

func Load(path string) (*Config, error) {

	if path == "" {
		path = "chartpack.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// FALLBACK: containers mount config at /config
		if path == "chartpack.yaml" {
			if _, errEx := os.Stat("/config/chartpack.yaml"); errEx == nil {
				path = "/config/chartpack.yaml"
			} else {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
		} else {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	v := viper.New()

	// Set Defaults
	v.SetDefault("port", "8873")
	v.SetDefault("catalog.backend", "bucket")
	v.SetDefault("packs.dir", "./packs")
	v.SetDefault("packs.tmp_dir", "./packs/tmp")
	v.SetDefault("packs.aux_dir", "./aux")
	v.SetDefault("packs.ledger_path", "./chartpack-ledger.db")
	v.SetDefault("packs.stall_timeout_seconds", 90)
	v.SetDefault("storage.signed_url_expiry_minutes", 15)
	v.SetDefault("log.path", "chartpack.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)

	// Read config File
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	// Support Environment Variables
	v.SetEnvPrefix("CHARTPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Storage.BucketURL == "" && c.Storage.BaseURL == "" {
		return fmt.Errorf("storage requires either bucket_url or base_url")
	}

	if c.Catalog.Backend == "postgres" && c.Catalog.PostgresURL == "" {
		return fmt.Errorf("catalog backend 'postgres' requires catalog.postgres_url")
	}
	if c.Catalog.Backend != "postgres" && c.Catalog.Backend != "bucket" {
		return fmt.Errorf("unknown catalog backend %q", c.Catalog.Backend)
	}

	if c.Packs.ManifestPath == "" {
		c.Packs.ManifestPath = filepath.Join(c.Packs.Dir, "manifest.json")
	}

	return nil
}
