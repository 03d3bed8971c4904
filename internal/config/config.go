package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Brownie44l1/sam-embed/internal/checkpoint"
	"github.com/Brownie44l1/sam-embed/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. SAM_EMBED_DEVICE.
const EnvPrefix = "SAM_EMBED"

// Config holds the configuration for the embedding server.
type Config struct {
	Addr           string `mapstructure:"addr"`
	Device         string `mapstructure:"device"`
	ModelType      string `mapstructure:"model_type"`
	Checkpoint     string `mapstructure:"checkpoint"`
	CheckpointURL  string `mapstructure:"checkpoint_url"`
	ORTLibrary     string `mapstructure:"ort_library"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", "0.0.0.0:3000")
	v.SetDefault("device", "")
	v.SetDefault("model_type", model.TypeViTH)
	v.SetDefault("checkpoint", "model/sam_vit_h.onnx")
	v.SetDefault("checkpoint_url", checkpoint.DefaultURL)
	v.SetDefault("ort_library", "")
	v.SetDefault("max_upload_bytes", 32<<20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// Load reads configFile (or ./config.yaml when present), applies
// SAM_EMBED_* environment overrides and validates the result. Flags bound
// to v take precedence over both.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, model.IOError("read config", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, model.IOError("read config", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, model.ConfigurationError("decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := model.Lookup(c.ModelType); err != nil {
		return err
	}
	if c.Addr == "" {
		return model.ConfigurationError("validate config", fmt.Errorf("addr must not be empty"))
	}
	if c.Checkpoint == "" {
		return model.ConfigurationError("validate config", fmt.Errorf("checkpoint must not be empty"))
	}
	if c.MaxUploadBytes <= 0 {
		return model.ConfigurationError("validate config",
			fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes))
	}
	return nil
}
