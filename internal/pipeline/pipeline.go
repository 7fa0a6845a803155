package pipeline

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"baler/internal/catalog"
	"baler/internal/config"
	"baler/internal/logging"
	"baler/internal/notifications"
	"baler/internal/transcode"
	"baler/internal/transfer"
)

// Pipeline drives a full processing run: discovery, retrieval, archival,
// transcoding under the job pool, verification, and publication.
type Pipeline struct {
	cfg      *config.Config
	store    *catalog.Store
	logger   *slog.Logger
	notifier notifications.Service
	client   transfer.Client
	engine   transcode.Engine

	lockPath string
	lock     *flock.Flock

	discovered atomic.Int64
	processed  atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
}

// RunOptions selects the phases and mode of a single run.
type RunOptions struct {
	// DiscoverOnly stops after the discovery phase.
	DiscoverOnly bool
	// ProcessOnly skips the discovery phase.
	ProcessOnly bool
	// DryRun logs intended actions without mutating the catalog, the
	// filesystem, or the remote store.
	DryRun bool
	// Workers overrides the configured transcode concurrency when positive.
	Workers int
	// RunID correlates log lines across the run; generated when empty.
	RunID string
}

// Summary reports what a run did. Counter values come from ephemeral
// atomics reset at the start of each run.
type Summary struct {
	RunID      string
	Discovered int
	Requeued   int
	Processed  int
	Completed  int
	Failed     int
	Elapsed    time.Duration
}

// Option configures optional Pipeline behavior.
type Option func(*Pipeline)

// WithTransferClient overrides the transfer client (used in tests).
func WithTransferClient(client transfer.Client) Option {
	return func(p *Pipeline) { p.client = client }
}

// WithEngine overrides the transcode engine (used in tests).
func WithEngine(engine transcode.Engine) Option {
	return func(p *Pipeline) { p.engine = engine }
}

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(notifier notifications.Service) Option {
	return func(p *Pipeline) { p.notifier = notifier }
}

// New constructs a pipeline from validated configuration. The transfer
// client and transcode engine are selected from config unless overridden.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("pipeline requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "baler.lock")
	p := &Pipeline{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		notifier: notifications.NewService(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := transfer.New(cfg)
		if err != nil {
			return nil, err
		}
		p.client = client
	}
	if p.engine == nil {
		engine, err := transcode.New(cfg)
		if err != nil {
			return nil, err
		}
		p.engine = engine
	}
	return p, nil
}

// LockPath returns the path of the single-run lock file.
func (p *Pipeline) LockPath() string {
	return p.lockPath
}

func (p *Pipeline) resetCounters() {
	p.discovered.Store(0)
	p.processed.Store(0)
	p.completed.Store(0)
	p.failed.Store(0)
}

func (p *Pipeline) summary(runID string, elapsed time.Duration) Summary {
	return Summary{
		RunID:      runID,
		Discovered: int(p.discovered.Load()),
		Processed:  int(p.processed.Load()),
		Completed:  int(p.completed.Load()),
		Failed:     int(p.failed.Load()),
		Elapsed:    elapsed,
	}
}
