// Package watcher reports debounced changes to a set of files using fsnotify.
//
// Files are watched through their parent directories so that truncation,
// rotation and atomic-rename writes are all seen. Events for files outside
// the configured set are ignored.
package watcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/newhook/harvest/internal/logging"
)

// DefaultDebounce is the quiet period used by DefaultConfig.
const DefaultDebounce = 100 * time.Millisecond

var (
	// ErrNoPaths is returned by New when the config names no files.
	ErrNoPaths = errors.New("no paths to watch")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Config configures a Watcher.
type Config struct {
	// Paths are the files to watch. They need not exist yet.
	Paths []string
	// Debounce is how long a file must stay quiet before an event is sent.
	Debounce time.Duration
}

// DefaultConfig watches paths with the default debounce.
func DefaultConfig(paths ...string) Config {
	return Config{Paths: paths, Debounce: DefaultDebounce}
}

// Event reports that a watched file changed.
type Event struct {
	Path string
	At   time.Time
}

// Watcher coalesces file system notifications into one Event per file per
// quiet period.
type Watcher struct {
	debounce time.Duration
	targets  map[string]string // cleaned absolute path -> path as configured
	fsw      *fsnotify.Watcher
	events   chan Event
	done     chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
}

// New creates a watcher for cfg.Paths. Call Start to begin delivering events.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, ErrNoPaths
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	targets := make(map[string]string, len(cfg.Paths))
	var dirs []string
	for _, p := range cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		targets[abs] = p
		if dir := filepath.Dir(abs); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	return &Watcher{
		debounce: cfg.Debounce,
		targets:  targets,
		fsw:      fsw,
		events:   make(chan Event, len(targets)),
		done:     make(chan struct{}),
	}, nil
}

// Events returns the channel events are delivered on. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}
	select {
	case <-w.done:
		return errors.New("watcher stopped")
	default:
	}
	w.started = true

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop ends watching, waits for the background goroutine and closes the
// events channel. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
		close(w.events)
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	log := logging.WithGroup("watcher")

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			path, watched := w.targets[filepath.Clean(ev.Name)]
			if !watched || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug("file changed", "path", path, "op", ev.Op.String())
			pending[path] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("file watcher error", "error", err)

		case <-timer.C:
			now := time.Now()
			for path := range pending {
				select {
				case w.events <- Event{Path: path, At: now}:
				case <-w.done:
					return
				}
			}
			clear(pending)
		}
	}
}
