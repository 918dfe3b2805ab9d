package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr          string        `yaml:"addr"`
	Env           string        `yaml:"env"`
	JWTSecret     string        `yaml:"jwt_secret"`
	APITimeout    time.Duration `yaml:"timeout"`
	DatabasePath  string        `yaml:"database_path"`
	TokenDuration time.Duration `yaml:"token_duration"`
	UploadDir     string        `yaml:"upload_dir"`
	UploadBaseURL string        `yaml:"upload_base_url"`
	AdminEmails   []string      `yaml:"admin_emails"`
	Workers       int           `yaml:"workers"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:          getEnv("RECRUIT_ADDR", ":8080"),
		Env:           getEnv("RECRUIT_ENV", "development"),
		JWTSecret:     getEnv("RECRUIT_JWT_SECRET", insecureJWTSecret),
		APITimeout:    15 * time.Second,
		DatabasePath:  getEnv("RECRUIT_DATABASE_PATH", "recruit.db"),
		TokenDuration: 24 * time.Hour,
		UploadDir:     getEnv("RECRUIT_UPLOAD_DIR", "uploads"),
		UploadBaseURL: getEnv("RECRUIT_UPLOAD_BASE_URL", "/uploads"),
		Workers:       2,
	}
	if admins := os.Getenv("RECRUIT_ADMIN_EMAILS"); admins != "" {
		cfg.AdminEmails = strings.Split(admins, ",")
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects configurations that must not reach a deployed portal.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.JWTSecret == insecureJWTSecret && c.Env != "development" {
		return fmt.Errorf("jwt_secret is the insecure default; set RECRUIT_JWT_SECRET in %q", c.Env)
	}
	if c.TokenDuration <= 0 {
		return fmt.Errorf("token_duration must be positive")
	}
	return nil
}

// IsAdminEmail reports whether email is configured as a back-office admin.
// Matching is case-insensitive.
func (c *Config) IsAdminEmail(email string) bool {
	for _, a := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(a), email) {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
