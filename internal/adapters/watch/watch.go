// Package watch turns a responses directory into a submission stream:
// it watches for response files being dropped in and hands their paths
// to the scoring pipeline.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/marklab/pkg/errs"
	"github.com/okian/marklab/pkg/logger"
	"github.com/okian/marklab/pkg/metrics"
)

// Default watcher configuration.
const (
	defaultDebounce = 200 * time.Millisecond
)

// defaultExtensions are the response file suffixes the watcher accepts.
var defaultExtensions = []string{".yaml", ".yml"}

// Handler receives the path of a newly-arrived response file.
type Handler func(ctx context.Context, path string)

// Watcher emits submission events for response files created or written
// in one directory. Bursts of events for the same path inside the
// debounce window collapse into a single submission, since editors and
// copy tools usually fire several writes per file.
type Watcher struct {
	dir      string
	handler  Handler
	debounce time.Duration
	exts     []string
	now      func() time.Time

	watcher *fsnotify.Watcher

	mu       sync.Mutex
	lastSeen map[string]time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Watcher.
type Option func(*Watcher)

// WithDebounce sets the per-path debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions overrides the accepted response file suffixes.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		if len(exts) > 0 {
			w.exts = exts
		}
	}
}

// WithClock replaces the debounce clock, pinned by tests.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger sets a custom logger for the watcher.
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher over dir that calls handler for each arriving
// response file.
func New(dir string, handler Handler, opts ...Option) (*Watcher, error) {
	const op = "watch.new"

	w := &Watcher{
		dir:      dir,
		handler:  handler,
		debounce: defaultDebounce,
		exts:     defaultExtensions,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
		logger:   logger.Get().Named("watch"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, errs.Wrap(op, err)
	}
	w.watcher = fw

	return w, nil
}

// Run consumes filesystem events until ctx is canceled or the watcher
// is closed. The handler is called from this goroutine, so submissions
// for one directory arrive in order.
func (w *Watcher) Run(ctx context.Context) error {
	const op = "watch.run"

	w.logger.Info(ctx, "watching responses directory",
		logger.String("dir", w.dir),
		logger.Duration("debounce", w.debounce),
	)

	for {
		select {
		case <-ctx.Done():
			return errs.Wrap(op, ctx.Err())
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.accepts(event.Name) {
				continue
			}
			if w.debounced(event.Name) {
				continue
			}
			metrics.RecordWatchEvent()
			w.logger.Debug(ctx, "response file arrived", logger.String("path", event.Name))
			w.handler(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watch error", logger.Error(err))
		}
	}
}

// Close stops the underlying fsnotify watcher; a blocked Run returns.
func (w *Watcher) Close() error {
	return errs.Wrap("watch.close", w.watcher.Close())
}

// accepts filters paths by the configured suffixes.
func (w *Watcher) accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.exts {
		if ext == want {
			return true
		}
	}
	return false
}

// debounced reports whether path fired within the debounce window and
// records this sighting.
func (w *Watcher) debounced(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if last, ok := w.lastSeen[path]; ok && now.Sub(last) < w.debounce {
		w.lastSeen[path] = now
		return true
	}
	w.lastSeen[path] = now
	return false
}
