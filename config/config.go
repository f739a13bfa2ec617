package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	DB_URL   string `mapstructure:"DB_URL"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	AdminUsername string        `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string        `mapstructure:"ADMIN_PASSWORD"`
	DashboardDir  string        `mapstructure:"DASHBOARD_DIR"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	AdminChatID      int64  `mapstructure:"ADMIN_CHAT_ID"`

	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	LoginMaxAttempts int64         `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow      time.Duration `mapstructure:"LOGIN_WINDOW"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	Casino CasinoConfig `mapstructure:",squash"`
}

// CasinoConfig holds bookmaker API endpoints and the fallback credentials used
// when the configuration table has no override.
type CasinoConfig struct {
	Timeout        time.Duration `mapstructure:"CASINO_TIMEOUT"`
	CashdeskURL    string        `mapstructure:"CASHDESK_API_URL"`
	MostbetURL     string        `mapstructure:"MOSTBET_API_URL"`
	MostbetBrandID int           `mapstructure:"MOSTBET_BRAND_ID"`
	Currency       string        `mapstructure:"MOSTBET_CURRENCY"`

	XbetHash        string `mapstructure:"XBET_HASH"`
	XbetCashierPass string `mapstructure:"XBET_CASHIERPASS"`
	XbetLogin       string `mapstructure:"XBET_LOGIN"`
	XbetCashdeskID  string `mapstructure:"XBET_CASHDESKID"`

	MelbetHash        string `mapstructure:"MELBET_HASH"`
	MelbetCashierPass string `mapstructure:"MELBET_CASHIERPASS"`
	MelbetLogin       string `mapstructure:"MELBET_LOGIN"`
	MelbetCashdeskID  string `mapstructure:"MELBET_CASHDESKID"`

	MostbetAPIKey      string `mapstructure:"MOSTBET_API_KEY"`
	MostbetSecret      string `mapstructure:"MOSTBET_SECRET"`
	MostbetCashpointID string `mapstructure:"MOSTBET_CASHPOINT_ID"`
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSION_TTL", 7*24*time.Hour)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 10)
	v.SetDefault("LOGIN_WINDOW", 15*time.Minute)
	v.SetDefault("KAFKA_TOPIC", "request-events")
	v.SetDefault("CASINO_TIMEOUT", 30*time.Second)
	v.SetDefault("CASHDESK_API_URL", "https://partners.servcul.com/CashdeskBotAPI")
	v.SetDefault("MOSTBET_API_URL", "https://apimb.com")
	v.SetDefault("MOSTBET_BRAND_ID", 1)
	v.SetDefault("MOSTBET_CURRENCY", "KGS")
}

// every key is bound so AutomaticEnv can fill values absent from the file
var envKeys = []string{
	"DB_URL", "JWT_SECRET", "ADMIN_USERNAME", "ADMIN_PASSWORD", "DASHBOARD_DIR",
	"TELEGRAM_BOT_TOKEN", "ADMIN_CHAT_ID", "REDIS_ADDR", "KAFKA_BROKERS",
	"XBET_HASH", "XBET_CASHIERPASS", "XBET_LOGIN", "XBET_CASHDESKID",
	"MELBET_HASH", "MELBET_CASHIERPASS", "MELBET_LOGIN", "MELBET_CASHDESKID",
	"MOSTBET_API_KEY", "MOSTBET_SECRET", "MOSTBET_CASHPOINT_ID",
}

func LoadConfig(path string) (config Config, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return config, fmt.Errorf("failed to resolve config path: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(filepath.Dir(absPath))
	v.SetConfigName(filepath.Base(absPath))
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return config, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	if config.DB_URL == "" {
		return config, errors.New("DB_URL is required")
	}
	if config.JWTSecret == "" {
		return config, errors.New("JWT_SECRET is required")
	}

	return config, nil
}
