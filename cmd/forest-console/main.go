package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/target/forest-console/config"
	"github.com/target/forest-console/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	App    *bootstrap.ConsoleApp
	In     io.Reader
	Out    io.Writer
}

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(cfg.Log)

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, cfg, logger, os.Args[2:]); err != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmdName, "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func run(ctx context.Context, cmd command, cfg config.AppConfig, logger *slog.Logger, args []string) (err error) {
	app, err := bootstrap.BuildConsole(ctx, bootstrap.ConsoleOptions{Config: cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("build console: %w", err)
	}
	defer func() {
		if closeErr := app.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.WarnContext(ctx, "close console", "error", closeErr)
		}
	}()

	return cmd.run(&commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		App:    app,
		In:     os.Stdin,
		Out:    os.Stdout,
	}, args)
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in with username and password",
			run:         runLogin,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and clear the stored session",
			run:         runLogout,
		},
		"status": {
			name:        "status",
			description: "Check the stored session against the server",
			run:         runStatus,
		},
		"whoami": {
			name:        "whoami",
			description: "Print the cached identity without contacting the server",
			run:         runWhoami,
		},
		"validate": {
			name:        "validate",
			description: "Ask the server whether the stored credential is still valid",
			run:         runValidate,
		},
		"reset-password": {
			name:        "reset-password",
			description: "Set a new password for an account",
			run:         runResetPassword,
		},
		"open": {
			name:        "open",
			description: "Navigate to a console path and print where you land",
			run:         runOpen,
		},
		"routes": {
			name:        "routes",
			description: "List console destinations and their access requirements",
			run:         runRoutes,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: forest-console <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-16s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
