package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/example/smart-scheduler/internal/application"
)

func TestWriteProducesParsableFeed(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 2, 3, 14, 0, 0, 0, time.UTC)
	location := "Clinic, 2nd floor"
	appointments := []application.Appointment{
		{ID: 7, Title: "Dentist", Start: start, End: start.Add(time.Hour), Location: &location, Status: application.AppointmentApproved, CreatedAt: start, UpdatedAt: start},
		{ID: 9, Title: "Standup", Start: start.Add(24 * time.Hour), End: start.Add(25 * time.Hour), Status: application.AppointmentCancelled, CreatedAt: start, UpdatedAt: start},
	}

	var buf bytes.Buffer
	if err := Write(&buf, "ana's appointments", appointments, start); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "METHOD:PUBLISH") {
		t.Fatalf("expected METHOD:PUBLISH in output:\n%s", buf.String())
	}

	parsed, err := ics.ParseCalendar(&buf)
	if err != nil {
		t.Fatalf("ParseCalendar returned error: %v", err)
	}
	events := parsed.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if first.Id() != EventUID(7) {
		t.Fatalf("unexpected UID %q", first.Id())
	}
	if got := first.GetProperty(ics.ComponentPropertySummary).Value; got != "Dentist" {
		t.Fatalf("unexpected summary %q", got)
	}
	gotStart, err := first.GetStartAt()
	if err != nil || !gotStart.Equal(start) {
		t.Fatalf("unexpected start %v (err %v)", gotStart, err)
	}
	if got := first.GetProperty(ics.ComponentPropertyStatus).Value; got != string(ics.ObjectStatusConfirmed) {
		t.Fatalf("unexpected status %q", got)
	}
	if got := events[1].GetProperty(ics.ComponentPropertyStatus).Value; got != string(ics.ObjectStatusCancelled) {
		t.Fatalf("expected cancelled status, got %q", got)
	}
}

func TestEventStatusTreatsScheduledAsTentative(t *testing.T) {
	t.Parallel()

	if got := eventStatus(application.AppointmentScheduled); got != ics.ObjectStatusTentative {
		t.Fatalf("expected tentative, got %q", got)
	}
	if got := eventStatus(application.AppointmentCompleted); got != ics.ObjectStatusConfirmed {
		t.Fatalf("expected confirmed, got %q", got)
	}
}
