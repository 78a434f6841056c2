// Package watch scans CSV files dropped into an inbox directory and writes
// the redacted output to an outbox directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"piiguard/internal/core"
	"piiguard/internal/dataset"
)

// DefaultSettle is used when Config.Settle is zero.
const DefaultSettle = 2 * time.Second

// Scanner classifies one dataset. *batch.Service implements it.
type Scanner interface {
	ScanDataset(ctx context.Context, name string, src io.Reader, dst io.Writer, opts dataset.Options) (*core.Batch, error)
}

// Config configures a Watcher.
type Config struct {
	Inbox  string
	Outbox string
	// Settle is how long a file must go without events before it is scanned.
	Settle  time.Duration
	Dataset dataset.Options
}

// Watcher monitors the inbox and scans each settled file once per change.
type Watcher struct {
	scanner Scanner
	cfg     Config

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
	done   chan struct{}
}

// New validates the directories and creates a watcher. The outbox is created
// when missing.
func New(scanner Scanner, cfg Config) (*Watcher, error) {
	if scanner == nil {
		return nil, errors.New("scanner is required")
	}
	if err := validateDir(cfg.Inbox); err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	if cfg.Outbox == "" {
		return nil, errors.New("outbox: path is required")
	}
	if err := os.MkdirAll(cfg.Outbox, 0o755); err != nil {
		return nil, fmt.Errorf("outbox: %w", err)
	}
	inAbs, _ := filepath.Abs(cfg.Inbox)
	outAbs, _ := filepath.Abs(cfg.Outbox)
	if inAbs == outAbs {
		return nil, errors.New("inbox and outbox must differ")
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	return &Watcher{
		scanner: scanner,
		cfg:     cfg,
		timers:  make(map[string]*time.Timer),
		ready:   make(chan string, 64),
		done:    make(chan struct{}),
	}, nil
}

// Run scans the files already in the inbox, then watches for new ones until
// ctx is cancelled. Scan failures are logged and never stop the watcher. Run
// must be called at most once.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Inbox); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Inbox, err)
	}
	slog.Info("watching inbox", "inbox", w.cfg.Inbox, "outbox", w.cfg.Outbox, "settle", w.cfg.Settle)

	existing, err := w.pendingFiles()
	if err != nil {
		slog.Warn("failed to list inbox", "inbox", w.cfg.Inbox, "error", err)
	}
	for _, p := range existing {
		w.schedule(p)
	}

	defer w.stopTimers()
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopped", "inbox", w.cfg.Inbox)
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)

		case p := <-w.ready:
			if _, err := w.Process(ctx, p); err != nil && ctx.Err() == nil {
				slog.Error("failed to scan dataset", "path", p, "error", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !shouldProcess(event.Name) {
		return
	}
	// A file moved into the inbox arrives as Create; Write follows a Create
	// while the producer is still copying.
	if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		slog.Debug("inbox event", "path", event.Name, "op", event.Op.String())
		w.schedule(event.Name)
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.cfg.Settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.cfg.Settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

// Process scans the dataset at path into the outbox under the same base name
// and returns the batch it produced. Output is written to a hidden file and
// renamed into place once complete.
func (w *Watcher) Process(ctx context.Context, path string) (*core.Batch, error) {
	name := filepath.Base(path)
	dst := filepath.Join(w.cfg.Outbox, name)
	tmp := filepath.Join(w.cfg.Outbox, "."+name)

	in, err := dataset.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out, err := dataset.Create(tmp)
	if err != nil {
		return nil, err
	}

	b, scanErr := w.scanner.ScanDataset(ctx, name, in, out, w.cfg.Dataset)
	closeErr := out.Close()
	if err := errors.Join(scanErr, closeErr); err != nil {
		_ = os.Remove(tmp)
		return b, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return b, fmt.Errorf("publish %s: %w", dst, err)
	}

	slog.Info("dataset redacted",
		"input", path,
		"output", dst,
		"batch_id", b.ID,
		"total", b.Summary.Total,
		"pii", b.Summary.PII,
	)
	return b, nil
}

// pendingFiles lists the datasets currently in the inbox, sorted by name.
func (w *Watcher) pendingFiles() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.Inbox)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(w.cfg.Inbox, e.Name())
		if shouldProcess(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// shouldProcess accepts .csv and .csv.br files that are not hidden.
func shouldProcess(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	lower := strings.ToLower(base)
	return strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".csv"+dataset.CompressedSuffix)
}

func validateDir(path string) error {
	if path == "" {
		return errors.New("path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
