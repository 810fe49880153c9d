package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/romana/rlog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`

	DBDriver       string   `yaml:"db_driver"`
	DBSource       string   `yaml:"db_source"`
	DBReplicas     []string `yaml:"db_replicas"`
	DBMaxOpenConns int      `yaml:"db_max_open_conns"`

	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`

	CORSOrigins []string `yaml:"cors_origins"`

	PaymentProvider       string  `yaml:"payment_provider"`
	StripeSecretKey       string  `yaml:"stripe_secret_key"`
	StripeWebhookSecret   string  `yaml:"stripe_webhook_secret"`
	PaymentCurrency       string  `yaml:"payment_currency"`
	SimulatedPaymentLimit float64 `yaml:"simulated_payment_limit"`

	RestaurantTimezone string `yaml:"restaurant_timezone"`

	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
	SeedOnStart   bool   `yaml:"seed_on_start"`

	LogLevel string `yaml:"log_level"`
}

// Default returns a configuration that runs locally with no external services
func Default() *Config {
	return &Config{
		Port:                  "8080",
		GinMode:               "debug",
		DBDriver:              "sqlite",
		DBSource:              "restaurant.db",
		DBMaxOpenConns:        25,
		JWTSecret:             "restaurant_api_dev_secret",
		JWTTTL:                24 * time.Hour,
		CORSOrigins:           []string{"http://localhost:5173"},
		PaymentProvider:       "simulated",
		PaymentCurrency:       "eur",
		SimulatedPaymentLimit: 1000,
		RestaurantTimezone:    "Local",
		AdminEmail:            "admin@restaurant.local",
		AdminPassword:         "admin12345",
		LogLevel:              "INFO",
	}
}

// Load builds the configuration from defaults, an optional YAML file, .env and the environment,
// later sources winning.
func Load(yamlPath string) (*Config, error) {
	cfg := Default()

	if yamlPath == "" {
		yamlPath = os.Getenv("CONFIG_FILE")
	}
	if yamlPath != "" {
		if err := cfg.loadYAML(yamlPath); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		rlog.Warnf("could not read .env: %v", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DBSource = getEnv("DB_SOURCE", c.DBSource)
	c.DBReplicas = getEnvList("DB_REPLICAS", c.DBReplicas)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)
	c.PaymentProvider = getEnv("PAYMENT_PROVIDER", c.PaymentProvider)
	c.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", c.StripeSecretKey)
	c.StripeWebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret)
	c.PaymentCurrency = getEnv("PAYMENT_CURRENCY", c.PaymentCurrency)
	c.RestaurantTimezone = getEnv("RESTAURANT_TIMEZONE", c.RestaurantTimezone)
	c.AdminEmail = getEnv("ADMIN_EMAIL", c.AdminEmail)
	c.AdminPassword = getEnv("ADMIN_PASSWORD", c.AdminPassword)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.DBMaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", c.DBMaxOpenConns); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("JWT_TTL"); ok && v != "" {
		if c.JWTTTL, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("JWT_TTL: %w", err)
		}
	}
	if v, ok := os.LookupEnv("SIMULATED_PAYMENT_LIMIT"); ok && v != "" {
		if c.SimulatedPaymentLimit, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("SIMULATED_PAYMENT_LIMIT: %w", err)
		}
	}
	if v, ok := os.LookupEnv("SEED_ON_START"); ok && v != "" {
		if c.SeedOnStart, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("SEED_ON_START: %w", err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.PaymentProvider {
	case "simulated":
	case "stripe":
		if c.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER=stripe")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("RESTAURANT_TIMEZONE: %w", err)
	}
	return nil
}

// Location is the timezone opening hours are expressed in
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.RestaurantTimezone)
}

// SetupLogging points rlog at the configured level
func (c *Config) SetupLogging() {
	os.Setenv("RLOG_LOG_LEVEL", strings.ToUpper(c.LogLevel))
	rlog.UpdateEnv()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
