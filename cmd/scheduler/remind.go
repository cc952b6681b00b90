package main

import (
	"fmt"
	"time"

	"github.com/example/smart-scheduler/internal/reminder"
)

type remindCmd struct{}

func (c *remindCmd) Run(rt *runtime) error {
	st, err := openStore(rt.ctx, rt.cfg.DatabaseDSN, rt.logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	svc := newServices(st, nil, time.Now, rt.logger)
	dispatcher, err := newDispatcher(rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("configure mailer: %w", err)
	}
	scheduler, err := reminder.NewScheduler(reminder.Deps{
		Recipients:   svc.notifications,
		Appointments: svc.appointments,
		Tasks:        svc.tasks,
		Dispatcher:   dispatcher,
		Tolerance:    rt.cfg.ReminderWindow,
		Logger:       rt.logger,
	})
	if err != nil {
		return err
	}

	report, err := scheduler.RunPass(rt.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "reminder pass at %s: %d appointment, %d task, %d failed\n",
		report.At.UTC().Format(time.RFC3339), report.AppointmentsSent, report.TasksSent, report.Failures)
	return nil
}
