package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Session struct {
		SigningKey string `yaml:"signing_key"`
		TTLDays    int    `yaml:"ttl_days"`
	} `yaml:"session"`
	Cipher struct {
		PrivateKeyFile string `yaml:"private_key_file"`
	} `yaml:"cipher"`
	GitHub struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURI  string `yaml:"redirect_uri"`
		AuthorizeURL string `yaml:"authorize_url"`
		TokenURL     string `yaml:"token_url"`
		UserInfoURL  string `yaml:"user_info_url"`
	} `yaml:"github"`
	LLM struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"llm"`
	Synthesis struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"synthesis"`
	Storage struct {
		Root              string   `yaml:"root"`
		MaxUploadBytes    int64    `yaml:"max_upload_bytes"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
		RetentionMinutes  int      `yaml:"retention_minutes"`
	} `yaml:"storage"`
	RateLimit struct {
		AuthPerMinute      int `yaml:"auth_per_minute"`
		TranslatePerMinute int `yaml:"translate_per_minute"`
		ProcessPerMinute   int `yaml:"process_per_minute"`
	} `yaml:"rate_limit"`
}

// LoadConfig reads configuration from the specified YAML file, applies
// CHAMELEON_* environment overrides for secrets, and fills placeholder
// defaults for anything still missing. An absent file is not an error: the
// application runs on environment overrides and defaults alone. Presence is
// all that is validated; verifying production readiness of the values is
// the operator's job.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Fall through to env overrides and defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	return config, nil
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Session.SigningKey, "CHAMELEON_APP_SECRET_KEY")
	overrideString(&c.Cipher.PrivateKeyFile, "CHAMELEON_APP_PRIVATE_KEY_FILE")
	overrideString(&c.GitHub.ClientID, "CHAMELEON_APP_GITHUB_CLIENT_ID")
	overrideString(&c.GitHub.ClientSecret, "CHAMELEON_APP_GITHUB_CLIENT_SECRET")
	overrideString(&c.GitHub.RedirectURI, "CHAMELEON_APP_GITHUB_REDIRECT_URI")
	overrideString(&c.LLM.APIKey, "CHAMELEON_APP_LLM_API_KEY")
	overrideString(&c.Synthesis.APIKey, "CHAMELEON_APP_SYNTHESIS_API_KEY")
	overrideString(&c.Database.URL, "CHAMELEON_APP_DATABASE_URL")
}

func (c *Config) applyDefaults() {
	defaultString(&c.Server.Port, ":5001")
	defaultString(&c.Session.SigningKey, "secret_key")
	if c.Session.TTLDays <= 0 {
		c.Session.TTLDays = 7
	}
	defaultString(&c.GitHub.ClientID, "github_client_id")
	defaultString(&c.GitHub.ClientSecret, "github_client_secret")
	defaultString(&c.GitHub.RedirectURI, "github_redirect_url")
	defaultString(&c.GitHub.AuthorizeURL, "https://github.com/login/oauth/authorize")
	defaultString(&c.GitHub.TokenURL, "https://github.com/login/oauth/access_token")
	defaultString(&c.GitHub.UserInfoURL, "https://api.github.com/user")
	defaultString(&c.LLM.URL, "https://api.siliconflow.cn/v1/chat/completions")
	defaultString(&c.LLM.APIKey, "silicon_flow_api_key")
	defaultString(&c.LLM.Model, "Qwen/Qwen3-8B")
	defaultString(&c.Synthesis.URL, "https://dashscope.aliyuncs.com/api/v1/services/aigc/image2image/image-synthesis")
	defaultString(&c.Synthesis.APIKey, "bailian_api_key")
	defaultString(&c.Synthesis.Model, "wanx2.1-imageedit")
	defaultString(&c.Storage.Root, "static/uploads")
	if c.Storage.MaxUploadBytes <= 0 {
		c.Storage.MaxUploadBytes = 6 * 1024 * 1024
	}
	if len(c.Storage.AllowedExtensions) == 0 {
		c.Storage.AllowedExtensions = []string{"png", "jpg", "jpeg"}
	}
	if c.Storage.RetentionMinutes <= 0 {
		c.Storage.RetentionMinutes = 60
	}
	if c.RateLimit.AuthPerMinute <= 0 {
		c.RateLimit.AuthPerMinute = 10
	}
	if c.RateLimit.TranslatePerMinute <= 0 {
		c.RateLimit.TranslatePerMinute = 20
	}
	if c.RateLimit.ProcessPerMinute <= 0 {
		c.RateLimit.ProcessPerMinute = 10
	}
}

// Retention returns the upload retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionMinutes) * time.Minute
}

// SessionTTL returns the session token lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLDays) * 24 * time.Hour
}

func overrideString(dst *string, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		*dst = v
	}
}

func defaultString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}
