package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultPath = "config/config.yaml"

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	PublicAPIKey string        `yaml:"public_api_key"`
	AccessTTL    time.Duration `yaml:"access_ttl"`
	RefreshTTL   time.Duration `yaml:"refresh_ttl"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

// Enabled reports whether an SMTP relay is configured.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != ""
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Auth     AuthConfig  `yaml:"auth"`
	Email    EmailConfig `yaml:"email"`
	Realtime struct {
		SendBuffer int `yaml:"send_buffer"`
	} `yaml:"realtime"`
	PDF struct {
		FontPath string `yaml:"font_path"` // TTF с кириллицей; пусто = Helvetica
	} `yaml:"pdf"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (or config/config.yaml),
// applies environment overrides and validates the result. A missing file
// is fine as long as the environment supplies the required values.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && os.Getenv("CONFIG_PATH") == "":
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("PUBLIC_API_KEY"); v != "" {
		cfg.Auth.PublicAPIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Auth.AccessTTL == 0 {
		cfg.Auth.AccessTTL = 15 * time.Minute
	}
	if cfg.Auth.RefreshTTL == 0 {
		cfg.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Realtime.SendBuffer <= 0 {
		cfg.Realtime.SendBuffer = 64
	}
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.DSN == "" {
		missing = append(missing, "database.url (DATABASE_URL)")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "auth.jwt_secret (JWT_SECRET)")
	}
	if c.Auth.PublicAPIKey == "" {
		missing = append(missing, "auth.public_api_key (PUBLIC_API_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ClientConfig holds what a client of the task service needs.
type ClientConfig struct {
	ServiceURL string
	APIKey     string
}

// LoadClient reads TASKS_SERVICE_URL and TASKS_API_KEY. Both are required.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		ServiceURL: strings.TrimRight(strings.TrimSpace(os.Getenv("TASKS_SERVICE_URL")), "/"),
		APIKey:     strings.TrimSpace(os.Getenv("TASKS_API_KEY")),
	}
	if cfg.ServiceURL == "" || cfg.APIKey == "" {
		return nil, errors.New("TASKS_SERVICE_URL and TASKS_API_KEY must be set in the environment")
	}
	return cfg, nil
}
