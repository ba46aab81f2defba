// Package config loads server settings from an optional YAML file, an
// optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Mail     MailConfig     `yaml:"mail"`
	Pin      PinConfig      `yaml:"pin"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port         int    `yaml:"port"`
	AppName      string `yaml:"app_name"`
	AllowOrigins string `yaml:"allow_origins"`
	Pprof        bool   `yaml:"pprof"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type JWTConfig struct {
	Secret        string `yaml:"secret"`
	ExpireMinutes int    `yaml:"expire_minutes"`
}

type MailConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	Subject  string        `yaml:"subject"`
	Timeout  time.Duration `yaml:"timeout"`
}

type PinConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load builds the configuration from configs/config.yaml (if present),
// then .env, then environment variables, and fills in defaults.
func Load() (*Config, error) {
	return LoadFrom(defaultConfigPath)
}

func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	// .env is optional, variables already set in the environment win
	_ = godotenv.Load()

	cfg.overrideFromEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overrideFromEnv() {
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*dst = n
			}
		}
	}
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}

	// Server
	setInt("PORT", &c.Server.Port)
	setString("CORS_ALLOW_ORIGINS", &c.Server.AllowOrigins)
	if val := os.Getenv("PPROF"); val != "" {
		c.Server.Pprof, _ = strconv.ParseBool(val)
	}

	// Database
	setString("DATABASE_URL", &c.Database.URL)
	setString("DB_HOST", &c.Database.Host)
	setInt("DB_PORT", &c.Database.Port)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_NAME", &c.Database.DBName)
	setString("DB_SSLMODE", &c.Database.SSLMode)

	// JWT
	setString("JWT_SECRET", &c.JWT.Secret)
	setInt("JWT_EXPIRE_MINUTES", &c.JWT.ExpireMinutes)

	// Mail
	setString("SMTP_HOST", &c.Mail.Host)
	setInt("SMTP_PORT", &c.Mail.Port)
	setString("SMTP_USERNAME", &c.Mail.Username)
	setString("SMTP_PASSWORD", &c.Mail.Password)
	setString("MAIL_FROM", &c.Mail.From)

	setInt("PIN_TTL_MINUTES", &c.Pin.TTLMinutes)

	// Log
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FILE", &c.Log.File)
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.AppName == "" {
		c.Server.AppName = "vance"
	}
	if c.Server.AllowOrigins == "" {
		c.Server.AllowOrigins = "http://localhost:5173"
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.DBName == "" {
		c.Database.DBName = "vance"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}

	if c.JWT.ExpireMinutes == 0 {
		c.JWT.ExpireMinutes = 60
	}

	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.From == "" {
		c.Mail.From = c.Mail.Username
	}
	if c.Mail.Subject == "" {
		c.Mail.Subject = "[VANCE] Password recovery PIN"
	}
	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 10 * time.Second
	}

	if c.Pin.TTLMinutes == 0 {
		c.Pin.TTLMinutes = 10
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = 100
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = 28
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret is required (JWT_SECRET)")
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a postgres URL built from
// the individual fields.
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.DBName,
		RawQuery: "sslmode=" + c.Database.SSLMode,
	}
	return u.String()
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpireMinutes) * time.Minute
}

func (c *Config) PinTTL() time.Duration {
	return time.Duration(c.Pin.TTLMinutes) * time.Minute
}
