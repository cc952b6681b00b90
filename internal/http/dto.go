package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/application"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return errors.New("decode request body: trailing data after JSON value")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// parseQueryTime accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC midnight).
func parseQueryTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither an RFC 3339 timestamp nor a YYYY-MM-DD date", value)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func newUserResponse(u application.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: formatTime(u.CreatedAt),
		UpdatedAt: formatTime(u.UpdatedAt),
	}
}

type appointmentResponse struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	StartDateTime string  `json:"startDateTime"`
	EndDateTime   string  `json:"endDateTime"`
	Location      *string `json:"location"`
	Status        string  `json:"status"`
	UserID        int64   `json:"userId"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

func newAppointmentResponse(a application.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		StartDateTime: formatTime(a.Start),
		EndDateTime:   formatTime(a.End),
		Location:      a.Location,
		Status:        string(a.Status),
		UserID:        a.OwnerID,
		CreatedAt:     formatTime(a.CreatedAt),
		UpdatedAt:     formatTime(a.UpdatedAt),
	}
}

func appointmentResponses(items []application.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newAppointmentResponse(item))
	}
	return out
}

type taskResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	IsCompleted bool    `json:"isCompleted"`
	UserID      int64   `json:"userId"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func newTaskResponse(t application.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     formatTimePtr(t.DueDate),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		IsCompleted: t.IsCompleted,
		UserID:      t.OwnerID,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func taskResponses(items []application.Task) []taskResponse {
	out := make([]taskResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newTaskResponse(item))
	}
	return out
}

type preferencesResponse struct {
	EmailNotifications   bool   `json:"emailNotifications"`
	PushNotifications    bool   `json:"pushNotifications"`
	AppointmentReminders bool   `json:"appointmentReminders"`
	TaskReminders        bool   `json:"taskReminders"`
	ReminderTimeMinutes  int    `json:"reminderTimeMinutes"`
	PushSubscribed       bool   `json:"pushSubscribed"`
	UpdatedAt            string `json:"updatedAt"`
}

func newPreferencesResponse(p application.NotificationPreferences) preferencesResponse {
	return preferencesResponse{
		EmailNotifications:   p.EmailNotifications,
		PushNotifications:    p.PushNotifications,
		AppointmentReminders: p.AppointmentReminders,
		TaskReminders:        p.TaskReminders,
		ReminderTimeMinutes:  p.ReminderTimeMinutes,
		PushSubscribed:       p.PushSubscription != nil,
		UpdatedAt:            formatTime(p.UpdatedAt),
	}
}

type statusRequest struct {
	Status string `json:"status"`
}
