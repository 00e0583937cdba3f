package config

import (
	"os"
	"path/filepath"
	"testing"

	internal "github.com/ZanzyTHEbar/bert-dataset/bertds"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	suite.tempDir = suite.T().TempDir()

	// Change to temp directory so the search path finds no stray config.yaml
	err = os.Chdir(suite.tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
}

func (suite *ConfigTestSuite) writeConfig(name, content string) string {
	path := filepath.Join(suite.tempDir, name)
	require.NoError(suite.T(), os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	d := cfg.Dataset
	assert.Nil(suite.T(), d.From)
	assert.Nil(suite.T(), d.To)
	assert.False(suite.T(), d.ShouldIncludeText)
	assert.Equal(suite.T(), 2, d.MinFreq)
	assert.InDelta(suite.T(), 0.15, d.MaskPercentage, 1e-12)
	assert.Equal(suite.T(), "replace", d.MaskStrategy)
	assert.InDelta(suite.T(), 70.0, d.LengthPercentile, 1e-12)
	assert.Equal(suite.T(), int64(0), d.RandomSeed)
	assert.Equal(suite.T(), 100, d.MaxNegativeRetries)
	assert.Equal(suite.T(), "basic_english", d.Tokenizer)
	assert.Equal(suite.T(), 1, d.Workers)

	assert.Equal(suite.T(), "csv", cfg.Corpus.Format)
	assert.Equal(suite.T(), "review", cfg.Corpus.Column)
	assert.Equal(suite.T(), internal.DefaultCatalogDSN, cfg.Store.CatalogDSN)
	assert.Equal(suite.T(), internal.DefaultSnapshotDir, cfg.Store.SnapshotDir)
	assert.Equal(suite.T(), "info", cfg.Log.Level)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configFile := suite.writeConfig("config.yaml", `
dataset:
  ds_from: 10
  ds_to: 500
  should_include_text: true
  min_freq: 3
  mask_percentage: 0.2
  length_percentile: 90
  random_seed: 42
  tokenizer: bert
corpus:
  path: ./data/imdb.csv
  column: text
store:
  snapshot_dir: ./snapshots
log:
  level: debug
`)

	cfg, err := LoadConfig(configFile)
	require.NoError(suite.T(), err)

	d := cfg.Dataset
	require.NotNil(suite.T(), d.From)
	require.NotNil(suite.T(), d.To)
	assert.Equal(suite.T(), 10, *d.From)
	assert.Equal(suite.T(), 500, *d.To)
	assert.True(suite.T(), d.ShouldIncludeText)
	assert.Equal(suite.T(), 3, d.MinFreq)
	assert.InDelta(suite.T(), 0.2, d.MaskPercentage, 1e-12)
	assert.InDelta(suite.T(), 90.0, d.LengthPercentile, 1e-12)
	assert.Equal(suite.T(), int64(42), d.RandomSeed)
	assert.Equal(suite.T(), "bert", d.Tokenizer)
	assert.Equal(suite.T(), "./data/imdb.csv", cfg.Corpus.Path)
	assert.Equal(suite.T(), "text", cfg.Corpus.Column)
	assert.Equal(suite.T(), "./snapshots", cfg.Store.SnapshotDir)
	assert.Equal(suite.T(), "debug", cfg.Log.Level)

	// untouched keys keep their defaults
	assert.Equal(suite.T(), 100, d.MaxNegativeRetries)
}

func (suite *ConfigTestSuite) TestSearchPathFindsConfig() {
	suite.writeConfig("config.yaml", "dataset:\n  min_freq: 7\n")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 7, cfg.Dataset.MinFreq)
}

func (suite *ConfigTestSuite) TestEnvironmentOverrides() {
	suite.T().Setenv("DATASET_MIN_FREQ", "4")
	suite.T().Setenv("DATASET_DS_TO", "25")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, cfg.Dataset.MinFreq)
	require.NotNil(suite.T(), cfg.Dataset.To)
	assert.Equal(suite.T(), 25, *cfg.Dataset.To)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	configFile := suite.writeConfig("malformed.yaml", `
dataset:
  min_freq: 2
  invalid_yaml: [unclosed bracket
`)

	cfg, err := LoadConfig(configFile)
	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigRejectsInvalidValues() {
	configFile := suite.writeConfig("bad.yaml", "dataset:\n  mask_percentage: 1.5\n")

	cfg, err := LoadConfig(configFile)
	assert.ErrorIs(suite.T(), err, common.ErrConfiguration)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestAppConfigGlobal() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), cfg.Dataset.MinFreq, AppConfig.Dataset.MinFreq)
	assert.Equal(suite.T(), cfg.Corpus.Column, AppConfig.Corpus.Column)
}

func TestValidate(t *testing.T) {
	intPtr := func(v int) *int { return &v }
	valid := func() Config {
		return Config{
			Dataset: DatasetConfig{
				MinFreq:            2,
				MaskPercentage:     0.15,
				MaskStrategy:       "replace",
				LengthPercentile:   70,
				MaxNegativeRetries: 100,
				Workers:            1,
			},
			Corpus: CorpusConfig{Format: "csv"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"negative from", func(c *Config) { c.Dataset.From = intPtr(-1) }, "ds_from"},
		{"negative to", func(c *Config) { c.Dataset.To = intPtr(-3) }, "ds_to"},
		{"inverted range", func(c *Config) { c.Dataset.From, c.Dataset.To = intPtr(5), intPtr(2) }, "ds_from"},
		{"zero min freq", func(c *Config) { c.Dataset.MinFreq = 0 }, "min_freq"},
		{"negative mask percentage", func(c *Config) { c.Dataset.MaskPercentage = -0.1 }, "mask_percentage"},
		{"unknown strategy", func(c *Config) { c.Dataset.MaskStrategy = "span" }, "mask_strategy"},
		{"percentile above 100", func(c *Config) { c.Dataset.LengthPercentile = 101 }, "length_percentile"},
		{"no retries", func(c *Config) { c.Dataset.MaxNegativeRetries = 0 }, "max_negative_retries"},
		{"no workers", func(c *Config) { c.Dataset.Workers = 0 }, "workers"},
		{"unknown format", func(c *Config) { c.Corpus.Format = "parquet" }, "corpus.format"},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, common.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
