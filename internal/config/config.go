package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		PublicURL          string   `mapstructure:"public_url"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Invoice struct {
		NumberPrefix   string `mapstructure:"number_prefix"`
		SeriesMonths   int    `mapstructure:"series_months"`
		DashboardTTLSec int   `mapstructure:"dashboard_ttl_sec"`
	} `mapstructure:"invoice"`

	Mail struct {
		GatewayURL string `mapstructure:"gateway_url"`
		APIKey     string `mapstructure:"api_key"`
		FromName   string `mapstructure:"from_name"`
		FromEmail  string `mapstructure:"from_email"`
	} `mapstructure:"mail"`

	Razorpay struct {
		KeyID         string `mapstructure:"key_id"`
		KeySecret     string `mapstructure:"key_secret"`
		WebhookSecret string `mapstructure:"webhook_secret"`
	} `mapstructure:"razorpay"`

	Archive struct {
		Enabled   bool   `mapstructure:"enabled"`
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"archive"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "invoicely-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "invoicely_db")
	v.SetDefault("invoice.number_prefix", "INV")
	v.SetDefault("invoice.series_months", 12)
	v.SetDefault("invoice.dashboard_ttl_sec", 60)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if cfg.JWT.Secret == "" {
		log.Printf("[Config] WARNING: JWT secret not set, using insecure default")
		cfg.JWT.Secret = "dev-insecure-secret"
	}

	if url := os.Getenv("APP_PUBLIC_URL"); url != "" {
		cfg.Server.PublicURL = url
	}
	if url := os.Getenv("MAIL_GATEWAY_URL"); url != "" {
		cfg.Mail.GatewayURL = url
	}
	if key := os.Getenv("MAIL_API_KEY"); key != "" {
		cfg.Mail.APIKey = key
	}
	if key := os.Getenv("RAZORPAY_KEY_ID"); key != "" {
		cfg.Razorpay.KeyID = key
	}
	if secret := os.Getenv("RAZORPAY_KEY_SECRET"); secret != "" {
		cfg.Razorpay.KeySecret = secret
	}
	if secret := os.Getenv("RAZORPAY_WEBHOOK_SECRET"); secret != "" {
		cfg.Razorpay.WebhookSecret = secret
	}

	return &cfg
}
