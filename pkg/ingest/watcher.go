package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/docsearch/pkg/eventstream"
)

// DefaultQuietPeriod is how long a file must go without events before the
// watcher reads it.
const DefaultQuietPeriod = 300 * time.Millisecond

// WatchedExtensions are the file extensions the watcher ingests.
var WatchedExtensions = []string{".txt", ".md"}

// WatcherConfig is the configuration options for the directory watcher.
type WatcherConfig struct {
	// Dir is the directory to watch. Subdirectories are not watched.
	Dir string

	// Pool receives one job per settled file.
	Pool *Pool

	// QuietPeriod defaults to DefaultQuietPeriod. Every event on a path
	// restarts its timer, so a file written in several chunks is read once.
	QuietPeriod time.Duration

	Logger *slog.Logger
}

// Watcher ingests text files as they are created or written in a directory.
type Watcher struct {
	dir    string
	pool   *Pool
	quiet  time.Duration
	logger *slog.Logger
}

// settled is sent by a path's timer. gen identifies the timer so that a
// timer replaced by a later event is ignored.
type settled struct {
	path string
	gen  uint64
}

// NewWatcher creates a watcher over c.Dir that hands files to c.Pool.
func NewWatcher(c WatcherConfig) (*Watcher, error) {
	info, err := os.Stat(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch dir %s is not a directory", c.Dir)
	}
	if c.Pool == nil {
		return nil, fmt.Errorf("watcher: pool is required")
	}
	if c.QuietPeriod <= 0 {
		c.QuietPeriod = DefaultQuietPeriod
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return &Watcher{dir: c.Dir, pool: c.Pool, quiet: c.QuietPeriod, logger: c.Logger}, nil
}

// Run blocks until ctx is done. When started is non-nil it is closed once
// the directory is being watched. Files are only read and enqueued from the
// Run goroutine, so once Run returns nothing more reaches the pool.
func (w *Watcher) Run(ctx context.Context, started chan<- struct{}) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating directory watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory for documents", "dir", w.dir, "extensions", WatchedExtensions, "quiet_period", w.quiet)
	if started != nil {
		close(started)
	}

	var (
		gen     uint64
		pending = make(map[string]*time.Timer)
		gens    = make(map[string]uint64)
		fired   = make(chan settled)
	)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !Watched(event.Name) {
				continue
			}

			path := event.Name
			if t, ok := pending[path]; ok {
				t.Stop()
			}
			gen++
			s := settled{path: path, gen: gen}
			gens[path] = gen
			pending[path] = time.AfterFunc(w.quiet, func() {
				select {
				case fired <- s:
				case <-ctx.Done():
				}
			})

		case s := <-fired:
			if gens[s.path] != s.gen {
				continue
			}
			delete(pending, s.path)
			delete(gens, s.path)
			w.handle(s.path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("directory watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("reading watched file failed", "path", path, "error", err)
		}
		return
	}

	id := IDFromName(path)
	if id == "" {
		w.logger.Warn("skipping file with empty document id", "path", path)
		return
	}

	w.pool.Enqueue(Job{
		ID:     id,
		Text:   string(data),
		Source: eventstream.EventSource{Origin: OriginWatcher, Path: path},
	})
}

// Watched reports whether path has one of the WatchedExtensions.
func Watched(path string) bool {
	return slices.Contains(WatchedExtensions, strings.ToLower(filepath.Ext(path)))
}
