/**
 * @description
 * This package handles the configuration management for the ledger service. It uses
 * Viper to read an optional .env file and environment variables into Config.
 *
 * @dependencies
 * - github.com/spf13/viper: configuration loading and env binding.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger service.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	RequestTimeoutSeconds int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	CORSAllowedOrigins    string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	OTPStore    string `mapstructure:"OTP_STORE"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	RabbitMQURL               string `mapstructure:"RABBITMQ_URL"`
	EventsExchange            string `mapstructure:"EVENTS_EXCHANGE"`
	NotificationQueue         string `mapstructure:"NOTIFICATION_QUEUE"`
	NotificationWorkerEnabled bool   `mapstructure:"NOTIFICATION_WORKER_ENABLED"`

	JWTSecret        string `mapstructure:"JWT_SECRET"`
	JWTTTLHours      int    `mapstructure:"JWT_TTL_HOURS"`
	OTPTTLSeconds    int    `mapstructure:"OTP_TTL_SECONDS"`
	TicketTTLSeconds int    `mapstructure:"TICKET_TTL_SECONDS"`
	LoginOTPRequired bool   `mapstructure:"LOGIN_OTP_REQUIRED"`

	DeliveryProvider string `mapstructure:"DELIVERY_PROVIDER"`
	SMTPHost         string `mapstructure:"SMTP_HOST"`
	SMTPPort         int    `mapstructure:"SMTP_PORT"`
	SMTPUser         string `mapstructure:"SMTP_USER"`
	SMTPPassword     string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom         string `mapstructure:"SMTP_FROM"`
	SMSAPIURL        string `mapstructure:"SMS_API_URL"`
	SMSAPIKey        string `mapstructure:"SMS_API_KEY"`

	SuspiciousThresholdMinor   int64  `mapstructure:"SUSPICIOUS_THRESHOLD_MINOR"`
	RevenuePerTransactionMinor int64  `mapstructure:"REVENUE_PER_TRANSACTION_MINOR"`
	SuspiciousSweepSchedule    string `mapstructure:"SUSPICIOUS_SWEEP_SCHEDULE"`
	TicketPurgeSchedule        string `mapstructure:"TICKET_PURGE_SCHEDULE"`

	WebAuthnDemoMode bool   `mapstructure:"WEBAUTHN_DEMO_MODE"`
	WebAuthnRPName   string `mapstructure:"WEBAUTHN_RP_NAME"`

	AdminEmail         string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword      string `mapstructure:"ADMIN_PASSWORD"`
	AdminAccountNumber string `mapstructure:"ADMIN_ACCOUNT_NUMBER"`
}

// LoadConfig reads configuration from environment variables and an optional .env file in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 60)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("STORE_DRIVER", "postgres")
	viper.SetDefault("REDIS_KEY_PREFIX", "horizon:otp")
	viper.SetDefault("EVENTS_EXCHANGE", "horizon.events")
	viper.SetDefault("NOTIFICATION_QUEUE", "horizon.notifications")
	viper.SetDefault("NOTIFICATION_WORKER_ENABLED", false)
	viper.SetDefault("JWT_TTL_HOURS", 168)
	viper.SetDefault("OTP_TTL_SECONDS", 300)
	viper.SetDefault("TICKET_TTL_SECONDS", 300)
	viper.SetDefault("LOGIN_OTP_REQUIRED", false)
	viper.SetDefault("DELIVERY_PROVIDER", "log")
	viper.SetDefault("SMTP_HOST", "smtp.gmail.com")
	viper.SetDefault("SMTP_PORT", 465)
	viper.SetDefault("SMS_API_URL", "https://www.fast2sms.com/dev/bulkV2")
	viper.SetDefault("SUSPICIOUS_THRESHOLD_MINOR", 50000)
	viper.SetDefault("REVENUE_PER_TRANSACTION_MINOR", 2)
	viper.SetDefault("SUSPICIOUS_SWEEP_SCHEDULE", "@every 15m")
	viper.SetDefault("TICKET_PURGE_SCHEDULE", "@hourly")
	viper.SetDefault("WEBAUTHN_DEMO_MODE", false)
	viper.SetDefault("WEBAUTHN_RP_NAME", "Horizon Bank")
	viper.SetDefault("ADMIN_EMAIL", "admin@bank.com")
	viper.SetDefault("ADMIN_ACCOUNT_NUMBER", "ADMIN001")

	// Bind environment variables explicitly so they appear in Unmarshal.
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("REQUEST_TIMEOUT_SECONDS")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("STORE_DRIVER")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("OTP_STORE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_KEY_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("NOTIFICATION_QUEUE")
	_ = viper.BindEnv("NOTIFICATION_WORKER_ENABLED")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_TTL_HOURS")
	_ = viper.BindEnv("OTP_TTL_SECONDS")
	_ = viper.BindEnv("TICKET_TTL_SECONDS")
	_ = viper.BindEnv("LOGIN_OTP_REQUIRED")
	_ = viper.BindEnv("DELIVERY_PROVIDER")
	_ = viper.BindEnv("SMTP_HOST")
	_ = viper.BindEnv("SMTP_PORT")
	_ = viper.BindEnv("SMTP_USER")
	_ = viper.BindEnv("SMTP_PASSWORD", "SMTP_PASSWORD", "SMTP_PASS")
	_ = viper.BindEnv("SMTP_FROM")
	_ = viper.BindEnv("SMS_API_URL")
	_ = viper.BindEnv("SMS_API_KEY", "SMS_API_KEY", "FAST2SMS_API_KEY")
	_ = viper.BindEnv("SUSPICIOUS_THRESHOLD_MINOR")
	_ = viper.BindEnv("REVENUE_PER_TRANSACTION_MINOR")
	_ = viper.BindEnv("SUSPICIOUS_SWEEP_SCHEDULE")
	_ = viper.BindEnv("TICKET_PURGE_SCHEDULE")
	_ = viper.BindEnv("WEBAUTHN_DEMO_MODE")
	_ = viper.BindEnv("WEBAUTHN_RP_NAME")
	_ = viper.BindEnv("ADMIN_EMAIL")
	_ = viper.BindEnv("ADMIN_PASSWORD")
	_ = viper.BindEnv("ADMIN_ACCOUNT_NUMBER")

	// A missing config file is fine; environment values still apply.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	normalize(&config)
	return
}

func normalize(config *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	if config.StoreDriver != "memory" {
		config.StoreDriver = "postgres"
	}
	// Challenges live in the primary store unless redis is asked for.
	config.OTPStore = strings.ToLower(strings.TrimSpace(config.OTPStore))
	if config.OTPStore != "redis" {
		config.OTPStore = "store"
	}

	config.DeliveryProvider = strings.ToLower(strings.TrimSpace(config.DeliveryProvider))
	switch config.DeliveryProvider {
	case "log", "direct", "queue":
	default:
		log.Printf("level=warn component=config msg=\"unknown delivery provider; falling back to log\" value=%q", config.DeliveryProvider)
		config.DeliveryProvider = "log"
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	config.SMTPFrom = strings.TrimSpace(config.SMTPFrom)
	if config.SMTPFrom == "" {
		config.SMTPFrom = strings.TrimSpace(config.SMTPUser)
	}

	if config.JWTTTLHours <= 0 {
		config.JWTTTLHours = 168
	}
	if config.OTPTTLSeconds <= 0 {
		config.OTPTTLSeconds = 300
	}
	if config.TicketTTLSeconds <= 0 {
		config.TicketTTLSeconds = 300
	}
	if config.RequestTimeoutSeconds <= 0 {
		config.RequestTimeoutSeconds = 60
	}
	if config.SuspiciousThresholdMinor <= 0 {
		config.SuspiciousThresholdMinor = 50000
	}
	if config.RevenuePerTransactionMinor < 0 {
		config.RevenuePerTransactionMinor = 0
	}
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, "*")
	}
	return origins
}
