package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/persistence/memory"
	"github.com/example/smart-scheduler/internal/testfixtures"
)

type sentReminder struct {
	kind  string
	email string
	title string
}

type recordingDispatcher struct {
	mu     sync.Mutex
	sent   []sentReminder
	failTo map[string]error
}

func (d *recordingDispatcher) SendAppointmentReminder(ctx context.Context, email, username, title string, start time.Time) error {
	return d.record("appointment", email, title)
}

func (d *recordingDispatcher) SendTaskReminder(ctx context.Context, email, username, title string, due *time.Time) error {
	return d.record("task", email, title)
}

func (d *recordingDispatcher) record(kind, email, title string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failTo[email]; err != nil {
		return err
	}
	d.sent = append(d.sent, sentReminder{kind: kind, email: email, title: title})
	return nil
}

func (d *recordingDispatcher) snapshot() []sentReminder {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sentReminder(nil), d.sent...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	store      *memory.Storage
	clock      *testfixtures.Clock
	dispatcher *recordingDispatcher
	scheduler  *Scheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	clock := testfixtures.NewClock(time.Time{})
	services := testfixtures.NewServiceFactory(testfixtures.WithClock(clock), testfixtures.WithLogger(discardLogger())).Build(store, nil)
	dispatcher := &recordingDispatcher{failTo: map[string]error{}}

	scheduler, err := NewScheduler(Deps{
		Recipients:   services.Notifications,
		Appointments: services.Appointments,
		Tasks:        services.Tasks,
		Dispatcher:   dispatcher,
		Now:          clock.Now,
		Logger:       discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewScheduler returned error: %v", err)
	}
	return &harness{store: store, clock: clock, dispatcher: dispatcher, scheduler: scheduler}
}

func TestRunPassSendsAppointmentInsideWindowOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	user := testfixtures.SeedUser(t, h.store, testfixtures.WithUsername("ana"))
	testfixtures.SeedPreferences(t, h.store, user.ID, testfixtures.WithLeadMinutes(30))

	soon := h.clock.In(28 * time.Minute)
	testfixtures.SeedAppointment(t, h.store, user.ID,
		testfixtures.WithAppointmentTitle("Dentist"), testfixtures.WithWindow(soon, soon.Add(time.Hour)))
	later := h.clock.In(2 * time.Hour)
	testfixtures.SeedAppointment(t, h.store, user.ID,
		testfixtures.WithAppointmentTitle("Later"), testfixtures.WithWindow(later, later.Add(time.Hour)))
	cancelled := h.clock.In(30 * time.Minute)
	testfixtures.SeedAppointment(t, h.store, user.ID,
		testfixtures.WithAppointmentTitle("Dropped"),
		testfixtures.WithWindow(cancelled, cancelled.Add(time.Hour)),
		testfixtures.WithAppointmentStatus(application.AppointmentCancelled))

	report, err := h.scheduler.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}
	if report.AppointmentsSent != 1 || report.Failures != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	sent := h.dispatcher.snapshot()
	if len(sent) != 1 || sent[0].title != "Dentist" || sent[0].email != "ana@example.com" {
		t.Fatalf("unexpected dispatches %+v", sent)
	}
}

func TestRunPassWindowBoundsAreInclusive(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	from, to := h.scheduler.Window(h.clock.Now(), 30*time.Minute)
	if !from.Equal(h.clock.In(25*time.Minute)) || !to.Equal(h.clock.In(35*time.Minute)) {
		t.Fatalf("unexpected window [%v, %v]", from, to)
	}

	user := testfixtures.SeedUser(t, h.store)
	testfixtures.SeedPreferences(t, h.store, user.ID, testfixtures.WithLeadMinutes(30))
	testfixtures.SeedAppointment(t, h.store, user.ID, testfixtures.WithWindow(from, from.Add(time.Hour)))
	testfixtures.SeedAppointment(t, h.store, user.ID, testfixtures.WithWindow(to, to.Add(time.Hour)))
	outside := to.Add(time.Second)
	testfixtures.SeedAppointment(t, h.store, user.ID, testfixtures.WithWindow(outside, outside.Add(time.Hour)))

	report, err := h.scheduler.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}
	if report.AppointmentsSent != 2 {
		t.Fatalf("expected both boundary appointments, got %+v", report)
	}
}

func TestRunPassSendsTaskReminders(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	keen := testfixtures.SeedUser(t, h.store, testfixtures.WithUsername("keen"))
	testfixtures.SeedPreferences(t, h.store, keen.ID, testfixtures.WithLeadMinutes(60))
	testfixtures.SeedTask(t, h.store, keen.ID, testfixtures.WithTaskTitle("Report"), testfixtures.WithDueDate(h.clock.In(62*time.Minute)))
	testfixtures.SeedTask(t, h.store, keen.ID, testfixtures.WithTaskTitle("Done"), testfixtures.WithDueDate(h.clock.In(60*time.Minute)), testfixtures.Completed())
	testfixtures.SeedTask(t, h.store, keen.ID, testfixtures.WithTaskTitle("Someday"))

	quiet := testfixtures.SeedUser(t, h.store, testfixtures.WithUsername("quiet"))
	testfixtures.SeedPreferences(t, h.store, quiet.ID, testfixtures.WithLeadMinutes(60), testfixtures.WithoutTaskReminders())
	testfixtures.SeedTask(t, h.store, quiet.ID, testfixtures.WithDueDate(h.clock.In(60*time.Minute)))

	mute := testfixtures.SeedUser(t, h.store, testfixtures.WithUsername("mute"))
	testfixtures.SeedPreferences(t, h.store, mute.ID, testfixtures.WithLeadMinutes(60), testfixtures.WithoutEmail())
	testfixtures.SeedTask(t, h.store, mute.ID, testfixtures.WithDueDate(h.clock.In(60*time.Minute)))

	report, err := h.scheduler.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}
	if report.TasksSent != 1 || report.AppointmentsSent != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	sent := h.dispatcher.snapshot()
	if len(sent) != 1 || sent[0].kind != "task" || sent[0].title != "Report" {
		t.Fatalf("unexpected dispatches %+v", sent)
	}
}

func TestRunPassIsolatesDispatchFailures(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	start := h.clock.In(30 * time.Minute)

	broken := testfixtures.SeedUser(t, h.store, testfixtures.WithUsername("broken"))
	testfixtures.SeedPreferences(t, h.store, broken.ID)
	testfixtures.SeedAppointment(t, h.store, broken.ID, testfixtures.WithWindow(start, start.Add(time.Hour)))

	healthy := testfixtures.SeedUser(t, h.store, testfixtures.WithUsername("healthy"))
	testfixtures.SeedPreferences(t, h.store, healthy.ID)
	testfixtures.SeedAppointment(t, h.store, healthy.ID, testfixtures.WithWindow(start, start.Add(time.Hour)))

	h.dispatcher.failTo["broken@example.com"] = errors.New("smtp: mailbox unavailable")

	report, err := h.scheduler.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}
	if report.AppointmentsSent != 1 || report.Failures != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	sent := h.dispatcher.snapshot()
	if len(sent) != 1 || sent[0].email != "healthy@example.com" {
		t.Fatalf("unexpected dispatches %+v", sent)
	}
}

type failingRecipients struct{}

func (failingRecipients) ListReminderRecipients(ctx context.Context, kind application.ReminderKind) ([]application.ReminderRecipient, error) {
	return nil, errors.New("database unavailable")
}

func TestRunPassCountsRecipientLookupFailures(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.scheduler.recipients = failingRecipients{}

	report, err := h.scheduler.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}
	if report.Failures != 2 {
		t.Fatalf("expected one failure per sweep, got %+v", report)
	}
}

func TestRunPassStopsOnCancelledContext(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	user := testfixtures.SeedUser(t, h.store)
	testfixtures.SeedPreferences(t, h.store, user.ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.scheduler.RunPass(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(h.dispatcher.snapshot()) != 0 {
		t.Fatalf("expected no dispatches after cancellation")
	}
}

func TestNewSchedulerRequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := NewScheduler(Deps{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}
