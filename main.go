package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/argiloff/archaeotools-cms/cmd"
	"github.com/argiloff/archaeotools-cms/internal/app"
	"github.com/argiloff/archaeotools-cms/internal/conf"
	"github.com/argiloff/archaeotools-cms/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := conf.Load()
	if err != nil {
		return err
	}

	level := logging.ParseLevel(settings.Main.Log.Level)
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level)
	if settings.Main.Log.Path != "" {
		closeLog, err := logging.UseFileOutput(settings.Main.Log.Path, settings.Main.Name, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
		} else {
			defer func() { _ = closeLog() }()
		}
	}

	a, err := app.New(settings)
	if err != nil {
		return err
	}

	// Ctrl-C cancels in-flight requests and lets the import pipeline stop
	// at the next stage boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd.RootCommand(a).ExecuteContext(ctx)
}
