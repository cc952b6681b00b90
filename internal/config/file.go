package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout. Durations use Go syntax ("90s", "5m").
type fileConfig struct {
	HTTP struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string   `yaml:"jwt_secret"`
		TokenTTL  string   `yaml:"token_ttl"`
		RateLimit *float64 `yaml:"rate_limit"`
		RateBurst int      `yaml:"rate_burst"`
	} `yaml:"auth"`
	Reminder struct {
		Interval     string `yaml:"interval"`
		StartupDelay string `yaml:"startup_delay"`
		Window       string `yaml:"window"`
		Timezone     string `yaml:"timezone"`
	} `yaml:"reminder"`
	Email struct {
		Enabled     *bool  `yaml:"enabled"`
		SMTPHost    string `yaml:"smtp_host"`
		SMTPPort    int    `yaml:"smtp_port"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		StartTLS    *bool  `yaml:"starttls"`
		SenderEmail string `yaml:"sender_email"`
		SenderName  string `yaml:"sender_name"`
	} `yaml:"email"`
	Log struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

// readYAML flattens the file into the environment keys it stands in for.
func readYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	values := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			values[key] = value
		}
	}
	setInt := func(key string, value int) {
		if value != 0 {
			values[key] = strconv.Itoa(value)
		}
	}
	setBool := func(key string, value *bool) {
		if value != nil {
			values[key] = strconv.FormatBool(*value)
		}
	}

	setInt("SCHEDULER_HTTP_PORT", fc.HTTP.Port)
	set("SCHEDULER_DATABASE_DSN", fc.Database.DSN)
	set("SCHEDULER_JWT_SECRET", fc.Auth.JWTSecret)
	set("SCHEDULER_TOKEN_TTL", fc.Auth.TokenTTL)
	if fc.Auth.RateLimit != nil {
		values["SCHEDULER_AUTH_RATE_LIMIT"] = strconv.FormatFloat(*fc.Auth.RateLimit, 'f', -1, 64)
	}
	setInt("SCHEDULER_AUTH_RATE_BURST", fc.Auth.RateBurst)
	set("SCHEDULER_REMINDER_INTERVAL", fc.Reminder.Interval)
	set("SCHEDULER_REMINDER_STARTUP_DELAY", fc.Reminder.StartupDelay)
	set("SCHEDULER_REMINDER_WINDOW", fc.Reminder.Window)
	set("SCHEDULER_TIMEZONE", fc.Reminder.Timezone)
	setBool("SCHEDULER_EMAIL_ENABLED", fc.Email.Enabled)
	set("SCHEDULER_SMTP_HOST", fc.Email.SMTPHost)
	setInt("SCHEDULER_SMTP_PORT", fc.Email.SMTPPort)
	set("SCHEDULER_SMTP_USERNAME", fc.Email.Username)
	set("SCHEDULER_SMTP_PASSWORD", fc.Email.Password)
	setBool("SCHEDULER_SMTP_STARTTLS", fc.Email.StartTLS)
	set("SCHEDULER_SENDER_EMAIL", fc.Email.SenderEmail)
	set("SCHEDULER_SENDER_NAME", fc.Email.SenderName)
	set("SCHEDULER_LOG_FORMAT", fc.Log.Format)
	set("SCHEDULER_LOG_LEVEL", fc.Log.Level)
	set("SCHEDULER_LOG_FILE", fc.Log.File)
	return values, nil
}
