package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
)

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars `yaml:"app"`
	API     `yaml:"api"`
	Storage `yaml:"storage"`
}

var _ Config = (*mainConfig)(nil)

// Load reads configuration from the optional YAML file at path and then from
// the environment. Environment variables win over the file.
func Load(path string) (Config, error) {
	cfg := &mainConfig{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("[config Load] reading %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("[config Load] reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Usage describes every supported environment variable.
func Usage() string {
	desc, err := cleanenv.GetDescription(&mainConfig{}, nil)
	if err != nil {
		return err.Error()
	}
	return desc
}

func (c *mainConfig) validate() error {
	if c.API.BaseURL == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "[config validate] %s is required", apiBaseURLEnvVar)
	}
	if !c.Storage.Kind.Valid() {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "[config validate] %s=%q", storageEnvVar, c.Storage.Kind)
	}
	if c.API.RequestTimeout <= 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "[config validate] %s must be positive", requestTimeoutEnvVar)
	}
	return nil
}
