package jobpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"baler/internal/logging"
	"baler/internal/services"
	"baler/internal/transcode"
)

// defaultHangGrace is how long past its timeout a job may run before the
// monitor force-terminates it.
const defaultHangGrace = 30 * time.Second

// Runner executes one transcode under the supplied context. The context
// carries the job deadline; a runner that honors it terminates itself, and
// the monitor force-cancels any runner that does not.
type Runner func(ctx context.Context) (*transcode.Result, error)

// Outcome reports one finished or terminated job to the sink.
type Outcome struct {
	ItemID   int64
	Result   *transcode.Result
	Err      error
	TimedOut bool
	Elapsed  time.Duration
}

// Sink consumes job outcomes. The monitor invokes it from a single goroutine,
// so sink implementations never observe two outcomes concurrently.
type Sink func(ctx context.Context, outcome Outcome)

// job tracks one running transcode. The consumed flag claims the outcome and
// the removed flag claims the registry slot; both are compare-and-swap so the
// terminal effect and the removal each happen exactly once no matter how
// completion and hang detection interleave.
type job struct {
	itemID    int64
	startedAt time.Time
	timeout   time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
	result    *transcode.Result
	err       error
	consumed  atomic.Bool
	removed   atomic.Bool
}

// Pool runs transcode jobs up to a fixed concurrency bound and monitors them
// for completion and hangs. A job's record stays in the pool until its
// outcome has been fully consumed, so the bound counts incomplete handoffs
// as busy slots.
type Pool struct {
	limit        int
	pollInterval time.Duration
	grace        time.Duration
	sink         Sink
	logger       *slog.Logger

	mu   sync.Mutex
	jobs map[int64]*job
}

// New constructs a pool with the given concurrency bound and monitor poll
// interval.
func New(limit int, pollInterval time.Duration, sink Sink, logger *slog.Logger) *Pool {
	if limit < 1 {
		limit = 1
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		limit:        limit,
		pollInterval: pollInterval,
		grace:        defaultHangGrace,
		sink:         sink,
		logger:       logger,
		jobs:         make(map[int64]*job),
	}
}

// ActiveCount returns the number of jobs currently occupying pool slots.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

// Submit starts a job once a slot frees up. It blocks while the pool is at
// its bound and returns early if ctx is cancelled first. The runner executes
// under a context whose deadline is the job timeout.
func (p *Pool) Submit(ctx context.Context, itemID int64, timeout time.Duration, runner Runner) error {
	if runner == nil {
		return errors.New("runner required")
	}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("submit item %d: %w", itemID, err)
		}
		if p.tryStart(ctx, itemID, timeout, runner) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("submit item %d: %w", itemID, ctx.Err())
		case <-time.After(p.pollInterval):
		}
	}
}

func (p *Pool) tryStart(ctx context.Context, itemID int64, timeout time.Duration, runner Runner) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.jobs) >= p.limit {
		return false
	}
	if _, exists := p.jobs[itemID]; exists {
		return false
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	j := &job{
		itemID:    itemID,
		startedAt: time.Now(),
		timeout:   timeout,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	p.jobs[itemID] = j

	go func() {
		result, err := runner(runCtx)
		j.result = result
		j.err = err
		close(j.done)
	}()

	p.logger.Debug("job started",
		logging.Int64("item_id", itemID),
		logging.Duration("timeout", timeout),
		logging.Int("active", len(p.jobs)),
	)
	return true
}

// Run drives the monitor loop until ctx is cancelled. Completed jobs are
// handed to the sink exactly once; a job that outlives its timeout plus the
// grace window is force-terminated and reported as timed out. Records leave
// the pool only after the sink returns, so a freed slot means the previous
// job's bookkeeping is fully finished.
func (p *Pool) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Pool) sweep(ctx context.Context) {
	for _, j := range p.snapshot() {
		select {
		case <-j.done:
			p.consumeCompletion(ctx, j)
		default:
			p.checkHang(ctx, j)
		}
	}
}

func (p *Pool) snapshot() []*job {
	p.mu.Lock()
	defer p.mu.Unlock()
	jobs := make([]*job, 0, len(p.jobs))
	for _, j := range p.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

func (p *Pool) consumeCompletion(ctx context.Context, j *job) {
	if !j.consumed.CompareAndSwap(false, true) {
		return
	}
	j.cancel()

	elapsed := time.Since(j.startedAt)
	outcome := Outcome{
		ItemID:   j.itemID,
		Result:   j.result,
		Err:      j.err,
		TimedOut: j.err != nil && services.IsTimeout(j.err),
		Elapsed:  elapsed,
	}
	p.logger.Debug("job finished",
		logging.Int64("item_id", j.itemID),
		logging.Duration("elapsed", elapsed),
		logging.Bool("timed_out", outcome.TimedOut),
	)
	p.deliver(ctx, j, outcome)
}

func (p *Pool) checkHang(ctx context.Context, j *job) {
	elapsed := time.Since(j.startedAt)
	if elapsed <= j.timeout+p.grace {
		return
	}
	if !j.consumed.CompareAndSwap(false, true) {
		return
	}
	j.cancel()

	p.logger.Warn("job hang detected, terminating",
		logging.Int64("item_id", j.itemID),
		logging.Duration("elapsed", elapsed),
		logging.Duration("timeout", j.timeout),
		logging.Duration("grace", p.grace),
		logging.Alert("job_hang"),
	)
	outcome := Outcome{
		ItemID:   j.itemID,
		Err: services.Wrap(
			services.ErrTimeout,
			"compressing",
			"monitor",
			fmt.Sprintf("No completion within %s plus %s grace; job terminated", j.timeout, p.grace),
			nil,
		),
		TimedOut: true,
		Elapsed:  elapsed,
	}
	p.deliver(ctx, j, outcome)
}

// deliver runs the sink outside the pool lock and removes the record after
// the sink returns. A slot frees only once removal succeeds, so the bound
// counts unfinished handoffs as busy.
func (p *Pool) deliver(ctx context.Context, j *job, outcome Outcome) {
	if p.sink != nil {
		p.sink(ctx, outcome)
	}
	p.remove(j)
}

func (p *Pool) remove(j *job) {
	if !j.removed.CompareAndSwap(false, true) {
		return
	}
	p.mu.Lock()
	delete(p.jobs, j.itemID)
	p.mu.Unlock()
}

// Drain blocks until every job record has been consumed and removed, or
// until ctx is cancelled. The monitor must keep running while draining.
func (p *Pool) Drain(ctx context.Context) error {
	for {
		if p.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("drain: %w", ctx.Err())
		case <-time.After(p.pollInterval):
		}
	}
}
