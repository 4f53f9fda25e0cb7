package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/marklab/internal/adapters/watch"
	"github.com/okian/marklab/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// collector gathers handler invocations for assertions.
type collector struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newCollector() *collector {
	return &collector{ch: make(chan string, 16)}
}

func (c *collector) handle(_ context.Context, path string) {
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	c.ch <- path
}

func (c *collector) wait(t *testing.T, timeout time.Duration) string {
	t.Helper()
	select {
	case p := <-c.ch:
		return p
	case <-time.After(timeout):
		t.Fatal("timed out waiting for watch event")
		return ""
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

func TestWatcher_EmitsResponseFiles(t *testing.T) {
	dir := t.TempDir()
	c := newCollector()

	w, err := watch.New(dir, c.handle, watch.WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close() //nolint:errcheck // test cleanup

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	path := filepath.Join(dir, "p01_t01.yaml")
	if err := os.WriteFile(path, []byte("participant: p01\n"), 0600); err != nil {
		t.Fatalf("write response: %v", err)
	}

	if got := c.wait(t, 5*time.Second); got != path {
		t.Errorf("expected %q, got %q", path, got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	c := newCollector()

	w, err := watch.New(dir, c.handle)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close() //nolint:errcheck // test cleanup

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a response"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	yamlPath := filepath.Join(dir, "real.yaml")
	if err := os.WriteFile(yamlPath, []byte("participant: p01\n"), 0600); err != nil {
		t.Fatalf("write response: %v", err)
	}

	// The yaml file arrives; the txt file never should.
	if got := c.wait(t, 5*time.Second); got != yamlPath {
		t.Errorf("expected %q, got %q", yamlPath, got)
	}
	for _, p := range func() []string { c.mu.Lock(); defer c.mu.Unlock(); return append([]string(nil), c.paths...) }() {
		if filepath.Ext(p) == ".txt" {
			t.Errorf("txt file should have been filtered: %q", p)
		}
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	c := newCollector()

	w, err := watch.New(dir, c.handle, watch.WithDebounce(2*time.Second))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close() //nolint:errcheck // test cleanup

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	path := filepath.Join(dir, "burst.yaml")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("participant: p01\n"), 0600); err != nil {
			t.Fatalf("write response: %v", err)
		}
	}

	c.wait(t, 5*time.Second)
	// Give any spurious extra events a moment to land.
	time.Sleep(300 * time.Millisecond)
	if got := c.count(); got != 1 {
		t.Errorf("expected 1 debounced event, got %d", got)
	}
}

func TestWatcher_CloseUnblocksRun(t *testing.T) {
	dir := t.TempDir()
	w, err := watch.New(dir, func(context.Context, string) {})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil after close, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
