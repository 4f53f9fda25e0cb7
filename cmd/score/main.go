package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/marklab/internal/adapters/http/debug"
	app "github.com/okian/marklab/internal/app"
	"github.com/okian/marklab/internal/config"
	"github.com/okian/marklab/pkg/logger"
)

// shutdownTimeout bounds queue draining and debug server exit.
const shutdownTimeout = 30 * time.Second

func main() {
	var (
		file    = flag.String("file", "", "Score a single response file and exit")
		rescore = flag.Bool("rescore", false, "Grade already-seen submissions again")
	)
	flag.Parse()

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.GraderOption{
		app.WithGraderLogger(loggerInstance),
	}
	if *rescore {
		opts = append(opts, app.WithRescore())
	}
	grader := app.NewGrader(cfg, opts...)

	if err := grader.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start grader: " + err.Error() + "\n")
		return
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grader.Stop(shutdownCtx)
	}()

	// One-shot mode: grade a single file and print the outcome.
	if *file != "" {
		result, err := grader.ScoreFile(ctx, *file)
		if err != nil {
			os.Stderr.WriteString("scoring failed: " + err.Error() + "\n")
			return
		}
		fmt.Printf("participant=%s trial=%s score=%.1f\n", result.Participant, result.Trial, result.Score)
		return
	}

	// Watch mode: grade response files as they land.
	if cfg.MetricsAddr != "" {
		dbg := debug.NewServer(cfg.MetricsAddr, grader)
		dbg.Start(ctx)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := dbg.Shutdown(shutdownCtx); err != nil {
				loggerInstance.Error(ctx, "debug server shutdown failed", logger.Error(err))
			}
		}()
	}

	if err := grader.Watch(ctx); err != nil && ctx.Err() == nil {
		loggerInstance.Error(ctx, "watch failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "grader stopped")
}
