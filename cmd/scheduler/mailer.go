package main

import (
	"log/slog"
	"time"

	"github.com/example/smart-scheduler/internal/config"
	"github.com/example/smart-scheduler/internal/notify"
)

// newDispatcher sends through SMTP when email is enabled and logs messages otherwise.
func newDispatcher(cfg config.Config, logger *slog.Logger) (*notify.ReminderMailer, error) {
	var mailer notify.Mailer = notify.NewConsoleMailer(logger)
	if cfg.Email.Enabled {
		smtpMailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:        cfg.Email.SMTPHost,
			Port:        cfg.Email.SMTPPort,
			Username:    cfg.Email.Username,
			Password:    cfg.Email.Password,
			StartTLS:    cfg.Email.StartTLS,
			SenderEmail: cfg.Email.SenderEmail,
			SenderName:  cfg.Email.SenderName,
			Timeout:     30 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		mailer = smtpMailer
	}
	return notify.NewReminderMailer(mailer, cfg.Location, cfg.Email.SenderName), nil
}
