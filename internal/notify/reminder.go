package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

const (
	appointmentSubject = "Appointment Reminder"
	taskSubject        = "Task Reminder"
	reminderTimeLayout = "January 02, 2006 at 3:04 PM"
)

var reminderTemplates = template.Must(template.New("reminders").Parse(`
{{define "appointment"}}<h2>Hi {{.Username}},</h2>
<p>This is a reminder for your upcoming appointment:</p>
<div style="background-color: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0;">
  <h3 style="margin: 0 0 10px 0;">{{.Title}}</h3>
  <p style="margin: 5px 0;"><strong>Date &amp; Time:</strong> {{.When}}</p>
</div>
<p>Please make sure to be on time!</p>
<p>Best regards,<br/>{{.Signature}}</p>
{{end}}
{{define "task"}}<h2>Hi {{.Username}},</h2>
<p>This is a reminder for your task:</p>
<div style="background-color: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0;">
  <h3 style="margin: 0 0 10px 0;">{{.Title}}</h3>
  <p style="margin: 5px 0;"><strong>Due Date:</strong> {{.When}}</p>
</div>
<p>Don't forget to complete this task!</p>
<p>Best regards,<br/>{{.Signature}}</p>
{{end}}`))

type reminderView struct {
	Username  string
	Title     string
	When      string
	Signature string
}

// ReminderMailer implements Dispatcher by rendering HTML reminders and passing
// them to a Mailer.
type ReminderMailer struct {
	mailer    Mailer
	location  *time.Location
	signature string
}

// NewReminderMailer returns a ReminderMailer. Times are rendered in loc (UTC
// when nil) and messages are signed with signature.
func NewReminderMailer(mailer Mailer, loc *time.Location, signature string) *ReminderMailer {
	if loc == nil {
		loc = time.UTC
	}
	if signature == "" {
		signature = "Smart Management System"
	}
	return &ReminderMailer{mailer: mailer, location: loc, signature: signature}
}

// SendAppointmentReminder renders and sends an appointment reminder.
func (r *ReminderMailer) SendAppointmentReminder(ctx context.Context, email, username, title string, start time.Time) error {
	return r.send(ctx, "appointment", appointmentSubject, email, reminderView{
		Username: username,
		Title:    title,
		When:     start.In(r.location).Format(reminderTimeLayout),
	})
}

// SendTaskReminder renders and sends a task reminder. A nil due date renders as "No due date".
func (r *ReminderMailer) SendTaskReminder(ctx context.Context, email, username, title string, due *time.Time) error {
	when := "No due date"
	if due != nil {
		when = due.In(r.location).Format(reminderTimeLayout)
	}
	return r.send(ctx, "task", taskSubject, email, reminderView{Username: username, Title: title, When: when})
}

func (r *ReminderMailer) send(ctx context.Context, tmpl, subject, email string, view reminderView) error {
	view.Signature = r.signature

	var body bytes.Buffer
	if err := reminderTemplates.ExecuteTemplate(&body, tmpl, view); err != nil {
		return fmt.Errorf("notify: render %s reminder: %w", tmpl, err)
	}
	return r.mailer.Send(ctx, Message{
		To:       email,
		ToName:   view.Username,
		Subject:  subject,
		HTMLBody: body.String(),
	})
}
