package config

import "strings"

const (
	envDev = "DEV"
)

type EnvVars struct {
	AppName  string `yaml:"name" env:"APP_NAME" env-default:"cmpctl" env-description:"Application name shown in banners"`
	Env      string `yaml:"env" env:"ENV" env-default:"DEV" env-description:"DEV selects console logging, anything else JSON"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" env-description:"zerolog level"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return envDev
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}
