// Command scheduler runs the Smart Scheduler API, its reminder scheduler and
// the operational subcommands around them.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/example/smart-scheduler/internal/config"
	"github.com/example/smart-scheduler/internal/logging"
)

type cli struct {
	Serve   serveCmd   `cmd:"" default:"1" help:"Run the HTTP API and the reminder scheduler."`
	Migrate migrateCmd `cmd:"" help:"Apply pending database migrations and exit."`
	Remind  remindCmd  `cmd:"" help:"Run a single reminder pass and exit."`
	User    struct {
		Create userCreateCmd `cmd:"" help:"Create an account, optionally with the Admin role."`
	} `cmd:"" help:"Manage accounts."`
}

// runtime is bound into every command's Run method.
type runtime struct {
	ctx    context.Context
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var cmd cli
	parser, err := kong.New(&cmd,
		kong.Name("scheduler"),
		kong.Description("Appointments, tasks and email reminders over a JSON API."),
		kong.UsageOnError(),
		kong.Writers(out, out),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Stdout: out,
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	return kctx.Run(&runtime{
		ctx:    logging.ContextWithLogger(ctx, logger),
		cfg:    cfg,
		logger: logger,
		out:    out,
	})
}
