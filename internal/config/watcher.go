package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Reload describes an accepted edit of the watched config file.
type Reload struct {
	Old  *Config
	New  *Config
	Diff ConfigDiff
}

// Watcher polls a config file and reports content changes that pass
// validation. Edits go through the same defaults, environment overrides and
// validation as [Load]. A rejected edit is logged once and the previous
// config stays current until the file is fixed.
type Watcher struct {
	path     string
	interval time.Duration
	onReload func(Reload)
	loadOpts []LoadOption

	mu       sync.Mutex
	current  *Config
	accepted fileStamp
	seen     fileStamp
	lastErr  error

	stop context.CancelFunc
	done chan struct{}
}

// fileStamp identifies one version of the file.
type fileStamp struct {
	mtime time.Time
	size  int64
	sum   [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchEnv replaces the environment lookup used on every reload. The
// default is [os.LookupEnv].
func WithWatchEnv(lookup func(string) (string, bool)) WatcherOption {
	return func(w *Watcher) {
		w.loadOpts = []LoadOption{WithEnv(lookup)}
	}
}

// NewWatcher loads path and polls it until ctx is cancelled or Stop is
// called. onReload, if non-nil, runs on the polling goroutine for every
// accepted edit whose content differs from the current config file.
func NewWatcher(ctx context.Context, path string, onReload func(Reload), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onReload: onReload,
		loadOpts: []LoadOption{WithEnv(os.LookupEnv)},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, stamp, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	w.current = cfg
	w.accepted = stamp
	w.seen = stamp

	ctx, w.stop = context.WithCancel(ctx)
	go w.run(ctx)
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Err returns why the latest edit was rejected, or nil when the file on disk
// is the current config.
func (w *Watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Stop ends polling and waits for an in-flight callback to return. It is
// safe to call more than once.
func (w *Watcher) Stop() {
	w.stop()
	<-w.done
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r, ok := w.check(); ok && w.onReload != nil {
				w.onReload(r)
			}
		}
	}
}

// check reloads the file when its mtime or size moved. It reports whether an
// edit was accepted.
func (w *Watcher) check() (Reload, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return Reload{}, false
	}

	w.mu.Lock()
	seen := w.seen
	w.mu.Unlock()
	if info.ModTime().Equal(seen.mtime) && info.Size() == seen.size {
		return Reload{}, false
	}

	cfg, stamp, err := w.read()

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		// Remember the broken version so the warning is not repeated.
		w.seen = fileStamp{mtime: info.ModTime(), size: info.Size()}
		w.lastErr = err
		slog.Warn("config watcher: edit rejected, keeping previous config", "path", w.path, "err", err)
		return Reload{}, false
	}
	w.seen = stamp
	w.lastErr = nil
	if stamp.sum == w.accepted.sum {
		w.accepted = stamp
		return Reload{}, false
	}

	r := Reload{Old: w.current, New: cfg, Diff: Diff(w.current, cfg)}
	w.current = cfg
	w.accepted = stamp
	slog.Info("config watcher: configuration reloaded", "path", w.path,
		"combine_changed", r.Diff.CombineChanged,
		"speakers_changed", r.Diff.SpeakersChanged,
	)
	return r, true
}

// read loads and validates the file and stamps the bytes it parsed.
func (w *Watcher) read() (*Config, fileStamp, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileStamp{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileStamp{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data), w.loadOpts...)
	if err != nil {
		return nil, fileStamp{}, err
	}
	return cfg, fileStamp{mtime: info.ModTime(), size: int64(len(data)), sum: sha256.Sum256(data)}, nil
}
