package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration marks a missing or malformed configuration value. It is fatal at startup.
var ErrConfiguration = errors.New("invalid configuration")

// ResetTokenTTL is the fixed validity window of password reset links.
const ResetTokenTTL = time.Hour

// Config holds runtime configuration values for the quiz service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	BaseURL            string
	DatabaseDriver     string
	DatabaseURL        string
	DatabaseName       string
	DatabaseCollection string
	DatabaseTimeout    time.Duration
	SessionSecret      string
	SessionTTL         time.Duration
	QuestionsPath      string
	UploadMaxMB        int
	ResultsStore       string
	ResultsTTL         time.Duration
	RedisURL           string
	MailDriver         string
	MailHost           string
	MailPort           int
	MailUsername       string
	MailPassword       string
	MailFrom           string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QUIZ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "Quiz Gate")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("questions.path", "questions.xlsx")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("results.store", "query")
	v.SetDefault("results.ttl", "30m")
	v.SetDefault("mail.driver", "smtp")

	connectTimeout, err := parseDuration(v, "database.connect_timeout")
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := parseDuration(v, "session.ttl")
	if err != nil {
		return Config{}, err
	}
	resultsTTL, err := parseDuration(v, "results.ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		BaseURL:            strings.TrimRight(v.GetString("app.base_url"), "/"),
		DatabaseDriver:     strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:        v.GetString("database.url"),
		DatabaseName:       v.GetString("database.name"),
		DatabaseCollection: v.GetString("database.collection"),
		DatabaseTimeout:    connectTimeout,
		SessionSecret:      v.GetString("session.secret"),
		SessionTTL:         sessionTTL,
		QuestionsPath:      v.GetString("questions.path"),
		UploadMaxMB:        v.GetInt("upload.max_mb"),
		ResultsStore:       strings.ToLower(strings.TrimSpace(v.GetString("results.store"))),
		ResultsTTL:         resultsTTL,
		RedisURL:           v.GetString("redis.url"),
		MailDriver:         strings.ToLower(strings.TrimSpace(v.GetString("mail.driver"))),
		MailHost:           v.GetString("mail.host"),
		MailPort:           v.GetInt("mail.port"),
		MailUsername:       v.GetString("mail.username"),
		MailPassword:       v.GetString("mail.password"),
		MailFrom:           v.GetString("mail.from"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}

	return cfg, nil
}

type requiredValue struct {
	key   string
	value string
}

func (c Config) validate() error {
	required := []requiredValue{
		{"database.url", c.DatabaseURL},
		{"database.name", c.DatabaseName},
		{"database.collection", c.DatabaseCollection},
		{"session.secret", c.SessionSecret},
		{"mail.from", c.MailFrom},
	}
	if c.MailDriver == "smtp" {
		required = append(required, requiredValue{"mail.host", c.MailHost})
	}

	var missing []string
	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			missing = append(missing, item.key)
		}
	}
	if c.MailDriver == "smtp" && c.MailPort <= 0 {
		missing = append(missing, "mail.port")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}

	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrConfiguration, c.DatabaseDriver)
	}

	switch c.MailDriver {
	case "smtp", "log":
	default:
		return fmt.Errorf("%w: unsupported mail driver %q", ErrConfiguration, c.MailDriver)
	}

	switch c.ResultsStore {
	case "query":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("%w: results.store=redis requires redis.url", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unsupported results store %q", ErrConfiguration, c.ResultsStore)
	}

	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %v", ErrConfiguration, key, err)
	}
	return d, nil
}
