// Package worker drains the submission queue.
package worker

import (
	"github.com/okian/marklab/pkg/logger"
)

// Option applies a configuration option to the GradingWorker.
type Option func(*GradingWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *GradingWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *GradingWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
