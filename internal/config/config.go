package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"rcaprobe/topocheck/internal/graph"
)

// EnvPrefix is prepended to every environment override, e.g. TOPOCHECK_DB
const EnvPrefix = "TOPOCHECK"

// Config holds the tool's configuration
type Config struct {
	DB            string `mapstructure:"db"`
	LogLevel      string `mapstructure:"log_level"`
	IDKey         string `mapstructure:"id_key"`
	FallbackIDKey string `mapstructure:"fallback_id_key"`
	LabelKey      string `mapstructure:"label_key"`
	TreeLabel     string `mapstructure:"tree_label"`
	HubThreshold  int    `mapstructure:"hub_threshold"`
	TopN          int    `mapstructure:"top_n"`
	GroupKey      string `mapstructure:"group_key"`
}

// NewViper returns a viper instance with defaults, search paths and
// environment binding set up. Flags are bound on top by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("topocheck")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "topocheck"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := graph.DefaultLoadOptions()
	analyzer := graph.DefaultConfig()
	v.SetDefault("db", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("id_key", defaults.IDKey)
	v.SetDefault("fallback_id_key", defaults.FallbackIDKey)
	v.SetDefault("label_key", defaults.LabelKey)
	v.SetDefault("tree_label", defaults.TreeLabel)
	v.SetDefault("hub_threshold", analyzer.HubThreshold)
	v.SetDefault("top_n", analyzer.TopN)
	v.SetDefault("group_key", analyzer.GroupKey)
	return v
}

// Load reads the config file (an explicit path, or the first topocheck.yaml
// found on the search path) and decodes it. A missing file is not an error
// unless it was named explicitly.
func Load(v *viper.Viper, file string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if file != "" {
		v.SetConfigFile(file)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		logger.Debug("no config file found, using defaults and environment")
	} else {
		logger.Debug("loaded config", zap.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// LoadOptions maps the payload settings onto graph.LoadOptions
func (c *Config) LoadOptions(logger *zap.Logger) graph.LoadOptions {
	return graph.LoadOptions{
		IDKey:         c.IDKey,
		FallbackIDKey: c.FallbackIDKey,
		LabelKey:      c.LabelKey,
		TreeLabel:     c.TreeLabel,
		Logger:        logger,
	}
}

// AnalyzerConfig maps the analysis settings onto graph.AnalyzerConfig
func (c *Config) AnalyzerConfig() *graph.AnalyzerConfig {
	return &graph.AnalyzerConfig{
		HubThreshold: c.HubThreshold,
		TopN:         c.TopN,
		GroupKey:     c.GroupKey,
	}
}
