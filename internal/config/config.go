package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Email    EmailConfig    `yaml:"email"`
}

type ServerConfig struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// AppURL is the public base URL used when building share links and
	// the links embedded in outbound email.
	AppURL string `yaml:"app_url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	ResetTTL     time.Duration `yaml:"reset_ttl"`
	MagicLinkTTL time.Duration `yaml:"magic_link_ttl"`
}

type EmailConfig struct {
	SMTP SMTPConfig `yaml:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COURSESHARE_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("COURSESHARE_SMTP_PASSWORD"); v != "" {
		c.Email.SMTP.Password = v
	}
	if v := os.Getenv("COURSESHARE_APP_URL"); v != "" {
		c.Server.AppURL = v
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Email.SMTP.Host == "" {
		return fmt.Errorf("email.smtp.host is required")
	}
	if c.Email.SMTP.Port == 0 {
		return fmt.Errorf("email.smtp.port is required")
	}
	if c.Email.SMTP.From == "" {
		return fmt.Errorf("email.smtp.from is required")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.Name == "" {
		c.Server.Name = "Courseshare"
	}
	if c.Server.AppURL == "" {
		c.Server.AppURL = "http://localhost:3000"
	}
	c.Server.AppURL = strings.TrimRight(c.Server.AppURL, "/")
	if c.Database.Path == "" {
		c.Database.Path = "./data/courseshare.db"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if c.Auth.ResetTTL == 0 {
		c.Auth.ResetTTL = time.Hour
	}
	if c.Auth.MagicLinkTTL == 0 {
		c.Auth.MagicLinkTTL = 15 * time.Minute
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SecureCookies reports whether session cookies should carry the Secure
// attribute, based on the public scheme of the application URL.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.Server.AppURL, "https://")
}
