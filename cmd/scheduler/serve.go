package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/smart-scheduler/internal/auth"
	httptransport "github.com/example/smart-scheduler/internal/http"
	"github.com/example/smart-scheduler/internal/reminder"
)

const shutdownTimeout = 15 * time.Second

type serveCmd struct {
	Port        int  `help:"Listen port, overriding SCHEDULER_HTTP_PORT."`
	NoReminders bool `help:"Serve the API without starting the reminder scheduler."`
}

func (c *serveCmd) Run(rt *runtime) error {
	ctx, logger, cfg := rt.ctx, rt.logger, rt.cfg

	st, err := openStore(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL, time.Now)
	if err != nil {
		return err
	}
	svc := newServices(st, tokens, time.Now, logger)

	var runner *reminder.Runner
	if !c.NoReminders {
		dispatcher, err := newDispatcher(cfg, logger)
		if err != nil {
			return fmt.Errorf("configure mailer: %w", err)
		}
		scheduler, err := reminder.NewScheduler(reminder.Deps{
			Recipients:   svc.notifications,
			Appointments: svc.appointments,
			Tasks:        svc.tasks,
			Dispatcher:   dispatcher,
			Tolerance:    cfg.ReminderWindow,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		runner = reminder.NewRunner(scheduler, cfg.ReminderInterval, cfg.ReminderStartupDelay, logger)
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(svc.auth, logger),
		Appointments:  httptransport.NewAppointmentHandler(svc.appointments, time.Now, logger),
		Tasks:         httptransport.NewTaskHandler(svc.tasks, logger),
		Admin:         httptransport.NewAdminHandler(svc.appointments, svc.tasks, logger),
		Notifications: httptransport.NewNotificationHandler(svc.notifications, logger),
		Authenticator: tokens,
		AuthLimiter:   httptransport.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, logger),
		Health:        st.Ping,
		Logger:        logger,
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	port := cfg.HTTPPort
	if c.Port > 0 {
		port = c.Port
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if runner != nil {
		if err := runner.Start(ctx); err != nil {
			return err
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("scheduler API listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shut down http server", "error", err)
	}
	if runner != nil {
		if err := runner.Stop(shutdownCtx); err != nil {
			logger.Error("reminder runner did not stop cleanly", "error", err)
		}
	}
	return runErr
}
