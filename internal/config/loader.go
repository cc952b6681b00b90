// Package config assembles the service configuration from an optional .env
// file, an optional YAML file and the process environment, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envFileKey    = "SCHEDULER_ENV_FILE"
	configFileKey = "SCHEDULER_CONFIG_FILE"
	defaultEnv    = ".env"
)

// Config captures the settings of every scheduler subcommand.
type Config struct {
	HTTPPort    int
	DatabaseDSN string
	JWTSecret   string
	TokenTTL    time.Duration

	ReminderInterval     time.Duration
	ReminderStartupDelay time.Duration
	ReminderWindow       time.Duration
	// Location renders times in reminder emails.
	Location *time.Location

	AuthRateLimit float64
	AuthRateBurst int

	Email EmailConfig
	Log   LogConfig
}

// EmailConfig selects between the console mailer and SMTP delivery.
type EmailConfig struct {
	Enabled     bool
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    string
	StartTLS    bool
	SenderEmail string
	SenderName  string
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string
	Level  string
	File   string
}

// Defaults returns the configuration used for every unset key.
func Defaults() Config {
	return Config{
		HTTPPort:             8080,
		DatabaseDSN:          "scheduler.db",
		TokenTTL:             24 * time.Hour,
		ReminderInterval:     5 * time.Minute,
		ReminderStartupDelay: 10 * time.Second,
		ReminderWindow:       5 * time.Minute,
		Location:             time.UTC,
		AuthRateLimit:        5,
		AuthRateBurst:        10,
		Email: EmailConfig{
			SMTPPort:   587,
			StartTLS:   true,
			SenderName: "Smart Scheduler",
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load reads .env (SCHEDULER_ENV_FILE, default ".env"; a missing file is
// ignored), then the YAML file named by SCHEDULER_CONFIG_FILE, then the
// environment. Every missing or invalid key is reported in one error.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv(envFileKey))
	if envFile == "" {
		envFile = defaultEnv
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	fileValues := map[string]string{}
	if path := strings.TrimSpace(os.Getenv(configFileKey)); path != "" {
		values, err := readYAML(path)
		if err != nil {
			return Config{}, err
		}
		fileValues = values
	}

	return resolve(func(key string) string {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fileValues[key]
	})
}

// resolve parses every key through lookup on top of Defaults.
func resolve(lookup func(key string) string) (Config, error) {
	cfg := Defaults()
	p := parser{lookup: lookup}

	p.positiveInt("SCHEDULER_HTTP_PORT", &cfg.HTTPPort)
	p.str("SCHEDULER_DATABASE_DSN", &cfg.DatabaseDSN)
	if secret := lookup("SCHEDULER_JWT_SECRET"); secret == "" {
		p.missing = append(p.missing, "SCHEDULER_JWT_SECRET")
	} else if len(secret) < 16 {
		p.invalid = append(p.invalid, "SCHEDULER_JWT_SECRET (at least 16 bytes)")
	} else {
		cfg.JWTSecret = secret
	}
	p.positiveDuration("SCHEDULER_TOKEN_TTL", &cfg.TokenTTL)

	p.positiveDuration("SCHEDULER_REMINDER_INTERVAL", &cfg.ReminderInterval)
	p.duration("SCHEDULER_REMINDER_STARTUP_DELAY", &cfg.ReminderStartupDelay)
	p.positiveDuration("SCHEDULER_REMINDER_WINDOW", &cfg.ReminderWindow)
	if name := lookup("SCHEDULER_TIMEZONE"); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			p.invalid = append(p.invalid, "SCHEDULER_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if raw := lookup("SCHEDULER_AUTH_RATE_LIMIT"); raw != "" {
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil || limit < 0 {
			p.invalid = append(p.invalid, "SCHEDULER_AUTH_RATE_LIMIT")
		} else {
			cfg.AuthRateLimit = limit
		}
	}
	p.positiveInt("SCHEDULER_AUTH_RATE_BURST", &cfg.AuthRateBurst)

	p.boolean("SCHEDULER_EMAIL_ENABLED", &cfg.Email.Enabled)
	p.str("SCHEDULER_SMTP_HOST", &cfg.Email.SMTPHost)
	p.positiveInt("SCHEDULER_SMTP_PORT", &cfg.Email.SMTPPort)
	p.str("SCHEDULER_SMTP_USERNAME", &cfg.Email.Username)
	p.str("SCHEDULER_SMTP_PASSWORD", &cfg.Email.Password)
	p.boolean("SCHEDULER_SMTP_STARTTLS", &cfg.Email.StartTLS)
	p.str("SCHEDULER_SENDER_EMAIL", &cfg.Email.SenderEmail)
	p.str("SCHEDULER_SENDER_NAME", &cfg.Email.SenderName)
	if cfg.Email.Enabled {
		if cfg.Email.SMTPHost == "" {
			p.missing = append(p.missing, "SCHEDULER_SMTP_HOST")
		}
		if cfg.Email.SenderEmail == "" {
			p.missing = append(p.missing, "SCHEDULER_SENDER_EMAIL")
		}
	}

	p.str("SCHEDULER_LOG_FORMAT", &cfg.Log.Format)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		p.invalid = append(p.invalid, "SCHEDULER_LOG_FORMAT")
	}
	p.str("SCHEDULER_LOG_LEVEL", &cfg.Log.Level)
	p.str("SCHEDULER_LOG_FILE", &cfg.Log.File)

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type parser struct {
	lookup  func(string) string
	missing []string
	invalid []string
}

func (p *parser) str(key string, dst *string) {
	if value := p.lookup(key); value != "" {
		*dst = value
	}
}

func (p *parser) positiveInt(key string, dst *int) {
	raw := p.lookup(key)
	if raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = value
}

func (p *parser) duration(key string, dst *time.Duration) {
	raw := p.lookup(key)
	if raw == "" {
		return
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = value
}

func (p *parser) positiveDuration(key string, dst *time.Duration) {
	raw := p.lookup(key)
	if raw == "" {
		return
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = value
}

func (p *parser) boolean(key string, dst *bool) {
	raw := p.lookup(key)
	if raw == "" {
		return
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = value
}

func (p *parser) err() error {
	var parts []string
	if len(p.missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(p.invalid, ", "))
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}
