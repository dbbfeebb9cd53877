package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "PRICE_TRACKER"

// Config stores all configuration for the application.
// The values are read by viper from config.yaml or environment variables
// such as PRICE_TRACKER_SMTP_CREDENTIAL.
type Config struct {
	Store     StoreConfig
	SMTP      SMTPConfig `mapstructure:"smtp"`
	Fetch     FetchConfig
	Selectors SelectorsConfig
	Check     CheckConfig
	Web       WebConfig
	Log       LogConfig
}

type StoreConfig struct {
	Path string
}

// SMTPConfig defines the outbound mail relay. An empty Credential sends
// without authenticating.
type SMTPConfig struct {
	SenderAddress string `mapstructure:"sender_address"`
	Credential    string
	RelayHost     string `mapstructure:"relay_host"`
	RelayPort     int    `mapstructure:"relay_port"`
	Recipient     string
}

// FetchConfig controls how product pages are retrieved.
type FetchConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts"`
	Backoff        time.Duration
	Timeout        time.Duration
	UserAgent      string `mapstructure:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language"`
}

type SelectorsConfig struct {
	Whole    string
	Fraction string
	Title    string
}

type CheckConfig struct {
	Interval time.Duration
	Workers  int
}

type WebConfig struct {
	Enabled bool
	Addr    string
}

type LogConfig struct {
	Env string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.path", "products.csv")

	v.SetDefault("smtp.sender_address", "")
	v.SetDefault("smtp.credential", "")
	v.SetDefault("smtp.relay_host", "smtp.gmail.com")
	v.SetDefault("smtp.relay_port", 587)
	v.SetDefault("smtp.recipient", "")

	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.backoff", "5s")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.accept_language", "")

	v.SetDefault("selectors.whole", "span.a-price-whole")
	v.SetDefault("selectors.fraction", "span.a-price-fraction")
	v.SetDefault("selectors.title", "#productTitle")

	v.SetDefault("check.interval", "24h")
	v.SetDefault("check.workers", 1)

	v.SetDefault("web.enabled", true)
	v.SetDefault("web.addr", ":8080")

	v.SetDefault("log.env", "development")
}

// LoadConfig reads configuration from path/config.yaml (optional), a .env file
// in path (optional) and environment variables.
func LoadConfig(path string) (config Config, err error) {
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}

// Validate checks the settings needed to run the daemon.
func (c Config) Validate() error {
	var errs []error
	if c.SMTP.SenderAddress == "" {
		errs = append(errs, errors.New("smtp.sender_address is required"))
	}
	if c.SMTP.RelayHost == "" {
		errs = append(errs, errors.New("smtp.relay_host is required"))
	}
	if c.SMTP.RelayPort <= 0 {
		errs = append(errs, errors.New("smtp.relay_port must be positive"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	return errors.Join(errs...)
}
