package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/smart-scheduler/internal/application"
)

// userCreateCmd is the only way to create administrators; public registration
// always yields regular users.
type userCreateCmd struct {
	Username string `arg:"" help:"Login name."`
	Email    string `arg:"" help:"Email address."`
	Password string `required:"" env:"SCHEDULER_USER_PASSWORD" help:"Initial password."`
	Admin    bool   `help:"Grant the Admin role."`
}

func (c *userCreateCmd) Run(rt *runtime) error {
	st, err := openStore(rt.ctx, rt.cfg.DatabaseDSN, rt.logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	role := application.RoleUser
	if c.Admin {
		role = application.RoleAdmin
	}

	svc := newServices(st, nil, time.Now, rt.logger)
	user, err := svc.auth.Register(rt.ctx, application.RegisterInput{
		Username: c.Username,
		Email:    c.Email,
		Password: c.Password,
		Role:     role,
	})
	if err != nil {
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			return fmt.Errorf("create user: %v", vErr.FieldErrors)
		}
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(rt.out, "created %s %q (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}
