// Package calendar renders appointments as an iCalendar (RFC 5545) feed so
// they can be subscribed to from external calendar clients.
package calendar

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/example/smart-scheduler/internal/application"
)

const productID = "-//smart-scheduler//appointments//EN"

// EventUID is the stable iCalendar UID of an appointment.
func EventUID(appointmentID int64) string {
	return fmt.Sprintf("appointment-%d@smart-scheduler", appointmentID)
}

// Build returns a published calendar holding one VEVENT per appointment.
// generatedAt becomes every event's DTSTAMP.
func Build(name string, appointments []application.Appointment, generatedAt time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, a := range appointments {
		event := cal.AddEvent(EventUID(a.ID))
		event.SetDtStampTime(generatedAt.UTC())
		event.SetCreatedTime(a.CreatedAt.UTC())
		event.SetModifiedAt(a.UpdatedAt.UTC())
		event.SetStartAt(a.Start.UTC())
		event.SetEndAt(a.End.UTC())
		event.SetSummary(a.Title)
		if a.Description != nil {
			event.SetDescription(*a.Description)
		}
		if a.Location != nil {
			event.SetLocation(*a.Location)
		}
		event.SetStatus(eventStatus(a.Status))
	}
	return cal
}

// Write serialises the calendar for appointments to w.
func Write(w io.Writer, name string, appointments []application.Appointment, generatedAt time.Time) error {
	if err := Build(name, appointments, generatedAt).SerializeTo(w); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

// eventStatus maps appointment states onto VEVENT STATUS values. Scheduled
// appointments still await approval, so they are published as tentative.
func eventStatus(status application.AppointmentStatus) ics.ObjectStatus {
	switch status {
	case application.AppointmentCancelled:
		return ics.ObjectStatusCancelled
	case application.AppointmentScheduled:
		return ics.ObjectStatusTentative
	default:
		return ics.ObjectStatusConfirmed
	}
}
