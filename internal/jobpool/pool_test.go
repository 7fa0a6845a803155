package jobpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"baler/internal/transcode"
)

type sinkRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *sinkRecorder) Sink(ctx context.Context, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *sinkRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

func (r *sinkRecorder) Outcome(i int) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[i]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startMonitor(t *testing.T, pool *Pool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestCompletionDeliveredExactlyOnce(t *testing.T) {
	recorder := &sinkRecorder{}
	pool := New(2, 10*time.Millisecond, recorder.Sink, nil)
	startMonitor(t, pool)

	err := pool.Submit(context.Background(), 1, time.Minute, func(ctx context.Context) (*transcode.Result, error) {
		return &transcode.Result{OutputPath: "/tmp/out.mkv", InputSize: 100, OutputSize: 25}, nil
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return recorder.Count() == 1 })
	waitFor(t, 2*time.Second, func() bool { return pool.ActiveCount() == 0 })

	// Extra monitor passes must not redeliver.
	time.Sleep(50 * time.Millisecond)
	if recorder.Count() != 1 {
		t.Fatalf("expected exactly one delivery, got %d", recorder.Count())
	}

	outcome := recorder.Outcome(0)
	if outcome.ItemID != 1 {
		t.Fatalf("expected item 1, got %d", outcome.ItemID)
	}
	if outcome.Err != nil || outcome.TimedOut {
		t.Fatalf("unexpected failure outcome: %+v", outcome)
	}
	if outcome.Result == nil || outcome.Result.OutputSize != 25 {
		t.Fatalf("expected result carried through, got %+v", outcome.Result)
	}
	if outcome.Elapsed <= 0 {
		t.Fatalf("expected positive elapsed, got %s", outcome.Elapsed)
	}
}

func TestSubmitBlocksUntilRecordRemoved(t *testing.T) {
	recorder := &sinkRecorder{}
	pool := New(1, 10*time.Millisecond, recorder.Sink, nil)
	startMonitor(t, pool)

	release := make(chan struct{})
	err := pool.Submit(context.Background(), 1, time.Minute, func(ctx context.Context) (*transcode.Result, error) {
		<-release
		return &transcode.Result{}, nil
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	secondStarted := make(chan struct{})
	submitDone := make(chan error, 1)
	go func() {
		submitDone <- pool.Submit(context.Background(), 2, time.Minute, func(ctx context.Context) (*transcode.Result, error) {
			close(secondStarted)
			return &transcode.Result{}, nil
		})
	}()

	select {
	case err := <-submitDone:
		t.Fatalf("second submit returned before slot freed: %v", err)
	case <-time.After(60 * time.Millisecond):
	}

	close(release)

	if err := <-submitDone; err != nil {
		t.Fatalf("second Submit returned error: %v", err)
	}
	<-secondStarted

	waitFor(t, 2*time.Second, func() bool { return recorder.Count() == 2 })

	// First outcome must be fully consumed before the second job starts.
	if recorder.Outcome(0).ItemID != 1 {
		t.Fatalf("expected item 1 consumed first, got %d", recorder.Outcome(0).ItemID)
	}
}

func TestHangTerminatedExactlyOnce(t *testing.T) {
	recorder := &sinkRecorder{}
	pool := New(1, 10*time.Millisecond, recorder.Sink, nil)
	pool.grace = 30 * time.Millisecond
	startMonitor(t, pool)

	stuck := make(chan struct{})
	t.Cleanup(func() { close(stuck) })

	// Runner ignores its context entirely.
	err := pool.Submit(context.Background(), 7, 20*time.Millisecond, func(ctx context.Context) (*transcode.Result, error) {
		<-stuck
		return nil, errors.New("never reached")
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return recorder.Count() == 1 })
	waitFor(t, 2*time.Second, func() bool { return pool.ActiveCount() == 0 })

	// Later monitor passes must not deliver the hang twice.
	time.Sleep(100 * time.Millisecond)
	if recorder.Count() != 1 {
		t.Fatalf("expected exactly one hang delivery, got %d", recorder.Count())
	}

	outcome := recorder.Outcome(0)
	if !outcome.TimedOut {
		t.Fatalf("expected timed out outcome, got %+v", outcome)
	}
	if outcome.Err == nil {
		t.Fatal("expected hang error")
	}
}

func TestRunnerTimeoutClassified(t *testing.T) {
	recorder := &sinkRecorder{}
	pool := New(1, 10*time.Millisecond, recorder.Sink, nil)
	startMonitor(t, pool)

	// Runner honors its context deadline.
	err := pool.Submit(context.Background(), 3, 20*time.Millisecond, func(ctx context.Context) (*transcode.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return recorder.Count() == 1 })

	outcome := recorder.Outcome(0)
	if !outcome.TimedOut {
		t.Fatalf("expected deadline exit classified as timeout, got %+v", outcome)
	}
	if !errors.Is(outcome.Err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", outcome.Err)
	}
}

func TestSubmitHonorsCancelledContext(t *testing.T) {
	recorder := &sinkRecorder{}
	pool := New(1, 10*time.Millisecond, recorder.Sink, nil)
	startMonitor(t, pool)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	if err := pool.Submit(context.Background(), 1, time.Minute, func(ctx context.Context) (*transcode.Result, error) {
		<-release
		return &transcode.Result{}, nil
	}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Submit(ctx, 2, time.Minute, func(ctx context.Context) (*transcode.Result, error) {
		return &transcode.Result{}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDrainWaitsForAllJobs(t *testing.T) {
	recorder := &sinkRecorder{}
	pool := New(2, 10*time.Millisecond, recorder.Sink, nil)
	startMonitor(t, pool)

	for id := int64(1); id <= 2; id++ {
		delay := time.Duration(id) * 20 * time.Millisecond
		if err := pool.Submit(context.Background(), id, time.Minute, func(ctx context.Context) (*transcode.Result, error) {
			time.Sleep(delay)
			return &transcode.Result{}, nil
		}); err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Drain(ctx); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}
	if pool.ActiveCount() != 0 {
		t.Fatalf("expected empty pool after drain, got %d", pool.ActiveCount())
	}
	if recorder.Count() != 2 {
		t.Fatalf("expected 2 outcomes, got %d", recorder.Count())
	}
}

func TestDrainReturnsOnContextCancel(t *testing.T) {
	pool := New(1, 10*time.Millisecond, nil, nil)
	// No monitor running; the stuck job can never be consumed.
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	if err := pool.Submit(context.Background(), 1, time.Minute, func(ctx context.Context) (*transcode.Result, error) {
		<-release
		return &transcode.Result{}, nil
	}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := pool.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
