package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/bert-dataset/bertds"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Dataset DatasetConfig `mapstructure:"dataset"`
	Corpus  CorpusConfig  `mapstructure:"corpus"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
}

// DatasetConfig stores the options recognized by the dataset builder.
type DatasetConfig struct {
	From               *int    `mapstructure:"ds_from"`
	To                 *int    `mapstructure:"ds_to"`
	ShouldIncludeText  bool    `mapstructure:"should_include_text"`
	MinFreq            int     `mapstructure:"min_freq"`
	MaskPercentage     float64 `mapstructure:"mask_percentage"`
	MaskStrategy       string  `mapstructure:"mask_strategy"`
	LengthPercentile   float64 `mapstructure:"length_percentile"`
	RandomSeed         int64   `mapstructure:"random_seed"`
	MaxNegativeRetries int     `mapstructure:"max_negative_retries"`
	Tokenizer          string  `mapstructure:"tokenizer"`
	Workers            int     `mapstructure:"workers"`
}

// CorpusConfig stores where the raw documents come from.
type CorpusConfig struct {
	Path       string `mapstructure:"path"`
	Format     string `mapstructure:"format"`
	Column     string `mapstructure:"column"`
	IgnoreFile string `mapstructure:"ignore_file"`
}

// StoreConfig stores persistence locations for assembled datasets.
type StoreConfig struct {
	CatalogDSN  string `mapstructure:"catalog_dsn"`
	SnapshotDir string `mapstructure:"snapshot_dir"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	SetDefaults(v)

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // dataset.min_freq becomes DATASET_MIN_FREQ
	// Optional keys have no default, so viper only sees them through an explicit binding
	_ = v.BindEnv("dataset.ds_from")
	_ = v.BindEnv("dataset.ds_to")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &cfg, nil
}

// SetDefaults registers the default value of every known key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dataset.should_include_text", false)
	v.SetDefault("dataset.min_freq", 2)
	v.SetDefault("dataset.mask_percentage", 0.15)
	v.SetDefault("dataset.mask_strategy", "replace")
	v.SetDefault("dataset.length_percentile", 70)
	v.SetDefault("dataset.random_seed", 0)
	v.SetDefault("dataset.max_negative_retries", 100)
	v.SetDefault("dataset.tokenizer", "basic_english")
	v.SetDefault("dataset.workers", 1)

	v.SetDefault("corpus.format", "csv")
	v.SetDefault("corpus.column", "review")
	v.SetDefault("corpus.ignore_file", "")

	v.SetDefault("store.catalog_dsn", internal.DefaultCatalogDSN)
	v.SetDefault("store.snapshot_dir", internal.DefaultSnapshotDir)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate reports the first out-of-range option as a configuration error.
func (c *Config) Validate() error {
	d := c.Dataset
	if d.From != nil && *d.From < 0 {
		return common.ConfigError("dataset.ds_from", "must be >= 0, got %d", *d.From)
	}
	if d.To != nil && *d.To < 0 {
		return common.ConfigError("dataset.ds_to", "must be >= 0, got %d", *d.To)
	}
	if d.From != nil && d.To != nil && *d.From > *d.To {
		return common.ConfigError("dataset.ds_from", "must not exceed ds_to (%d > %d)", *d.From, *d.To)
	}
	if d.MinFreq < 1 {
		return common.ConfigError("dataset.min_freq", "must be >= 1, got %d", d.MinFreq)
	}
	if d.MaskPercentage < 0 || d.MaskPercentage > 1 {
		return common.ConfigError("dataset.mask_percentage", "must be within [0, 1], got %g", d.MaskPercentage)
	}
	switch d.MaskStrategy {
	case "replace", "bert":
	default:
		return common.ConfigError("dataset.mask_strategy", "unknown strategy %q", d.MaskStrategy)
	}
	if d.LengthPercentile < 0 || d.LengthPercentile > 100 {
		return common.ConfigError("dataset.length_percentile", "must be within [0, 100], got %g", d.LengthPercentile)
	}
	if d.MaxNegativeRetries < 1 {
		return common.ConfigError("dataset.max_negative_retries", "must be >= 1, got %d", d.MaxNegativeRetries)
	}
	if d.Workers < 1 {
		return common.ConfigError("dataset.workers", "must be >= 1, got %d", d.Workers)
	}
	switch c.Corpus.Format {
	case "csv", "dir":
	default:
		return common.ConfigError("corpus.format", "unknown format %q", c.Corpus.Format)
	}
	return nil
}
