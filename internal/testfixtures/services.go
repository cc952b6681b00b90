package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/persistence"
)

// Repositories is the full set of stores the application services need.
type Repositories interface {
	persistence.UserRepository
	persistence.AppointmentRepository
	persistence.TaskRepository
	persistence.PreferenceRepository
}

// ServiceFactory assists tests with constructing application services that
// share a deterministic clock.
type ServiceFactory struct {
	Clock  *Clock
	Logger *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{Clock: NewClock(time.Time{})}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services groups the application services built over one store.
type Services struct {
	Appointments  *application.AppointmentService
	Tasks         *application.TaskService
	Notifications *application.NotificationService
	Auth          *application.AuthService
}

// Build wires every service to repos. Passwords are hashed with
// FastArgon2idParams; tokens may be nil when the test never logs in.
func (f *ServiceFactory) Build(repos Repositories, tokens application.TokenIssuer) Services {
	now := f.Clock.NowFunc()
	return Services{
		Appointments:  application.NewAppointmentServiceWithLogger(repos, now, f.Logger),
		Tasks:         application.NewTaskServiceWithLogger(repos, now, f.Logger),
		Notifications: application.NewNotificationServiceWithLogger(repos, now, f.Logger),
		Auth:          application.NewAuthServiceWithLogger(repos, tokens, HashPassword, application.VerifyPassword, now, f.Logger),
	}
}
