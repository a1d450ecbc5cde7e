package config

import (
	"strings"
	"time"
)

const (
	apiBaseURLEnvVar     = "CMP_API_BASE_URL"
	requestTimeoutEnvVar = "CMP_REQUEST_TIMEOUT"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetTokenPath() string
	GetSignupPath() string
	GetCurrentUserPath() string
	GetRequestTimeout() time.Duration
}

type API struct {
	BaseURL         string        `yaml:"base_url" env:"CMP_API_BASE_URL" env-default:"http://localhost:8000/api/v1" env-description:"Root of the platform API"`
	TokenPath       string        `yaml:"token_path" env:"CMP_TOKEN_PATH" env-default:"/token"`
	SignupPath      string        `yaml:"signup_path" env:"CMP_SIGNUP_PATH" env-default:"/signup"`
	CurrentUserPath string        `yaml:"current_user_path" env:"CMP_CURRENT_USER_PATH" env-default:"/users/me"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"CMP_REQUEST_TIMEOUT" env-default:"15s"`
}

var _ APIConfig = API{}

func (a API) GetAPIBaseURL() string {
	return strings.TrimRight(a.BaseURL, "/")
}

func (a API) GetTokenPath() string {
	return a.TokenPath
}

func (a API) GetSignupPath() string {
	return a.SignupPath
}

func (a API) GetCurrentUserPath() string {
	return a.CurrentUserPath
}

func (a API) GetRequestTimeout() time.Duration {
	return a.RequestTimeout
}
