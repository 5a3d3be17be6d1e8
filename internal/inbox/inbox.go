// Package inbox turns request files dropped into a directory into work
// submissions.
//
// Each request is a small YAML file:
//
//	kind: CreateChange
//	variant: urgent
//
// Accepted requests are deleted. A request the scheduler cannot take yet
// (its inbox is full) stays in place and is retried on the next rescan. A
// request that cannot be parsed is renamed with a ".rejected" suffix so it
// is not retried.
package inbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/roach88/crunch/internal/work"
)

const (
	requestExt     = ".yaml"
	rejectedSuffix = ".rejected"

	// DefaultRescan is how often deferred requests are retried.
	DefaultRescan = time.Second
)

// Source tags submissions that came through the inbox.
const Source = "inbox"

// Submitter accepts work without blocking.
type Submitter interface {
	Submit(sub work.Submission) error
}

// Request is the content of a request file.
type Request struct {
	Kind    string `yaml:"kind"`
	Variant string `yaml:"variant,omitempty"`
}

// Stats counts request outcomes.
type Stats struct {
	Accepted uint64 `json:"accepted"`
	Deferred uint64 `json:"deferred"`
	Rejected uint64 `json:"rejected"`
}

// Watcher watches one directory for request files.
type Watcher struct {
	dir    string
	submit Submitter
	rescan time.Duration
	logger *slog.Logger

	accepted atomic.Uint64
	deferred atomic.Uint64
	rejected atomic.Uint64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRescan sets the retry interval for deferred requests.
func WithRescan(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.rescan = d
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New creates a watcher for dir. The directory is created by Run if missing.
func New(dir string, submit Submitter, opts ...Option) *Watcher {
	w := &Watcher{
		dir:    dir,
		submit: submit,
		rescan: DefaultRescan,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("inbox", dir)
	return w
}

// Stats returns cumulative outcome counts.
func (w *Watcher) Stats() Stats {
	return Stats{
		Accepted: w.accepted.Load(),
		Deferred: w.deferred.Load(),
		Rejected: w.rejected.Load(),
	}
}

// Run processes requests until ctx is cancelled. Existing requests are
// processed first; new ones are picked up from filesystem events, and
// deferred ones from a periodic rescan.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch inbox: %w", err)
	}

	w.logger.Info("inbox watching", "rescan", w.rescan)
	w.Scan()

	ticker := time.NewTicker(w.rescan)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) && isRequest(event.Name) {
				w.logger.Debug("fsnotify event", "op", event.Op.String(), "file", event.Name)
				w.process(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)
		case <-ticker.C:
			w.Scan()
		}
	}
}

// Scan processes every request currently in the directory, oldest name
// first, and returns how many were accepted.
func (w *Watcher) Scan() int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("inbox scan failed", "error", err)
		return 0
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isRequest(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	accepted := 0
	for _, name := range names {
		if w.process(filepath.Join(w.dir, name)) {
			accepted++
		}
	}
	return accepted
}

// process handles one request file and reports whether it was accepted.
func (w *Watcher) process(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		// Already handled by an earlier event or scan.
		if !os.IsNotExist(err) {
			w.logger.Warn("read request failed", "file", path, "error", err)
		}
		return false
	}

	req, err := parseRequest(data)
	if err != nil {
		w.reject(path, err)
		return false
	}

	sub := work.Submission{Kind: work.Kind(req.Kind), Variant: req.Variant, Source: Source}
	if err := w.submit.Submit(sub); err != nil {
		w.deferred.Add(1)
		w.logger.Warn("request deferred", "file", path, "error", err)
		return false
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		w.logger.Error("remove request failed", "file", path, "error", err)
	}
	w.accepted.Add(1)
	w.logger.Info("request accepted", "file", filepath.Base(path), "kind", req.Kind, "variant", req.Variant)
	return true
}

func (w *Watcher) reject(path string, cause error) {
	w.rejected.Add(1)
	w.logger.Warn("request rejected", "file", path, "error", cause)
	if err := os.Rename(path, path+rejectedSuffix); err != nil {
		w.logger.Error("rename rejected request failed", "file", path, "error", err)
	}
}

func parseRequest(data []byte) (Request, error) {
	var req Request
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("parse request: %w", err)
	}
	kind, err := work.ParseKind(strings.TrimSpace(req.Kind))
	if err != nil {
		return Request{}, err
	}
	req.Kind = string(kind)
	req.Variant = strings.TrimSpace(req.Variant)
	if req.Variant == "" {
		req.Variant = work.VariantStandard
	}
	return req, nil
}

func isRequest(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, requestExt) && !strings.HasPrefix(base, ".")
}

// WriteRequest atomically writes a request file into dir and returns its
// path. The file is written under a temporary name and renamed, so a
// watcher never sees a partial request.
func WriteRequest(dir string, kind work.Kind, variant string) (string, error) {
	if _, err := work.ParseKind(string(kind)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create inbox: %w", err)
	}

	data, err := yaml.Marshal(Request{Kind: string(kind), Variant: variant})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".request-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write request: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write request: %w", err)
	}

	suffix := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(tmp.Name()), ".request-"), ".tmp")
	name := fmt.Sprintf("%d-%s-%s%s", time.Now().UnixNano(), kind, suffix, requestExt)
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("publish request: %w", err)
	}
	return path, nil
}
