package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr        string        `yaml:"addr"`
	Env         string        `yaml:"env"`
	LogLevel    string        `yaml:"logLevel"`
	DatabaseURL string        `yaml:"databaseUrl"`
	RedisURL    string        `yaml:"redisUrl"`
	JWTSecret   string        `yaml:"jwtSecret"`
	JWTTTL      time.Duration `yaml:"jwtTtl"`
	ClientURL   string        `yaml:"clientUrl"`

	Stripe struct {
		SecretKey     string `yaml:"secretKey"`
		WebhookSecret string `yaml:"webhookSecret"`
		Currency      string `yaml:"currency"`
	} `yaml:"stripe"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`

	// Admin is the account seeded at startup when Email is set.
	Admin struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admin"`
}

func defaults() Config {
	cfg := Config{
		Addr:      ":8080",
		Env:       "development",
		LogLevel:  "info",
		JWTTTL:    72 * time.Hour,
		ClientURL: "http://localhost:5173",
	}
	cfg.Stripe.Currency = "usd"
	cfg.SMTP.Port = 587
	cfg.Admin.Name = "Admin"
	return cfg
}

// Load reads an optional .env file, an optional YAML file named by CONFIG_FILE,
// and then environment variables. Later sources override earlier ones.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	setString(&cfg.Addr, "ADDR")
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.ClientURL, "CLIENT_URL")
	setString(&cfg.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&cfg.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&cfg.Stripe.Currency, "CURRENCY")
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.User, "SMTP_USER")
	setString(&cfg.SMTP.Password, "SMTP_PASS")
	setString(&cfg.SMTP.From, "MAIL_FROM")
	setString(&cfg.Admin.Name, "ADMIN_NAME")
	setString(&cfg.Admin.Email, "ADMIN_EMAIL")
	setString(&cfg.Admin.Password, "ADMIN_PASSWORD")

	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)
		}
		cfg.SMTP.Port = port
	}
	if v := os.Getenv("JWT_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid JWT_TTL %q: %w", v, err)
		}
		cfg.JWTTTL = ttl
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is not set")
	}
	if cfg.Admin.Email != "" && cfg.Admin.Password == "" {
		return Config{}, errors.New("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	return cfg, nil
}

// InMemory reports whether the app should run without Postgres.
func (c Config) InMemory() bool {
	return c.DatabaseURL == ""
}

// Production reports whether APP_ENV is "production".
func (c Config) Production() bool {
	return c.Env == "production"
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("invalid config file: %w", err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
