package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/marklab/internal/adapters/http/debug"
	app "github.com/okian/marklab/internal/app"
	"github.com/okian/marklab/internal/config"
	"github.com/okian/marklab/pkg/logger"
)

// shutdownTimeout bounds the debug server drain on exit.
const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
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

	// Create the observation session
	sess := app.NewSession(cfg,
		app.WithSessionLogger(loggerInstance),
	)

	// Optional debug surface for metrics and stats
	if cfg.MetricsAddr != "" {
		dbg := debug.NewServer(cfg.MetricsAddr, sess)
		dbg.Start(ctx)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := dbg.Shutdown(shutdownCtx); err != nil {
				loggerInstance.Error(ctx, "debug server shutdown failed", logger.Error(err))
			}
		}()
	}

	if err := sess.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start session: " + err.Error() + "\n")
		return
	}

	// Run until the stream ends or a signal arrives, then close out the
	// visibility intervals.
	if err := sess.Run(ctx); err != nil {
		loggerInstance.Error(ctx, "session run failed", logger.Error(err))
	}
	sess.Finish(context.Background())

	loggerInstance.Info(ctx, "session stopped")
}
