package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/content-safety/internal/core"
	"github.com/mikey/content-safety/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// TrackingPrefix is prepended to every tracking identifier
const TrackingPrefix = "track_"

// ErrClosed is returned by Submit after Shutdown
var ErrClosed = errors.New("job registry is shut down")

// State is the outcome of a Poll
type State int

const (
	// Missing means the id is unknown, already collected or cancelled
	Missing State = iota
	// Pending means the analysis is still running
	Pending
	// Done means the result is attached and the entry has been evicted
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Done:
		return "done"
	default:
		return "missing"
	}
}

// Options configures a Registry
type Options struct {
	MaxConcurrent   int
	AnalysisTimeout time.Duration
	// ResultTTL bounds how long an uncollected result is kept
	ResultTTL time.Duration
}

type job struct {
	url         string
	cancel      context.CancelFunc
	submittedAt time.Time
	finishedAt  time.Time
	result      *core.UrlAnalysis
}

// Registry runs URL analyses in the background and hands each result out once
type Registry struct {
	analyzer core.URLChecker
	opts     Options
	sem      *semaphore.Weighted
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	base       context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	jobs     map[string]*job
	inFlight int
	closed   bool
}

// NewRegistry creates a job registry over analyzer
func NewRegistry(analyzer core.URLChecker, opts Options, logger *zap.Logger, m *metrics.Metrics) *Registry {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = 2 * time.Minute
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Registry{
		analyzer:   analyzer,
		opts:       opts,
		sem:        semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger:     logger,
		metrics:    m,
		now:        time.Now,
		base:       base,
		cancelBase: cancel,
		jobs:       make(map[string]*job),
	}
}

// Submit enqueues an analysis of url and returns its tracking id immediately.
// The job outlives ctx; use Cancel to abandon it.
func (r *Registry) Submit(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := TrackingPrefix + uuid.NewString()
	jobCtx, cancel := context.WithCancel(r.base)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return "", ErrClosed
	}
	r.sweepLocked()
	r.jobs[id] = &job{url: url, cancel: cancel, submittedAt: r.now()}
	r.inFlight++
	r.metrics.SetJobsInFlight(r.inFlight)
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(jobCtx, cancel, id, url)

	r.logger.Debug("Job submitted", zap.String("tracking_id", id), zap.String("url", url))
	return id, nil
}

// Poll reports the state of a job. Done is returned once; the entry is evicted with it.
func (r *Registry) Poll(id string) (State, *core.UrlAnalysis) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Missing, nil
	}
	if j.result == nil {
		return Pending, nil
	}
	delete(r.jobs, id)
	return Done, j.result
}

// Cancel abandons a job. It reports whether the id was known.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if ok {
		delete(r.jobs, id)
	}
	r.mu.Unlock()

	if ok {
		j.cancel()
		r.logger.Info("Job cancelled", zap.String("tracking_id", id), zap.String("url", j.url))
	}
	return ok
}

// Len returns the number of tracked jobs, finished or not
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Shutdown rejects new jobs, cancels running ones and waits for their goroutines to exit
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancelBase()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.mu.Lock()
		for id := range r.jobs {
			delete(r.jobs, id)
		}
		r.mu.Unlock()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}

func (r *Registry) run(ctx context.Context, cancel context.CancelFunc, id, url string) {
	defer r.wg.Done()
	defer r.finish()
	defer cancel()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.logger.Debug("Job abandoned before start", zap.String("tracking_id", id), zap.Error(err))
		return
	}
	defer r.sem.Release(1)

	result := r.analyze(ctx, id, url)

	if ctx.Err() == context.Canceled {
		return
	}

	r.mu.Lock()
	if j, ok := r.jobs[id]; ok {
		j.result = result
		j.finishedAt = r.now()
	}
	r.mu.Unlock()
}

func (r *Registry) analyze(ctx context.Context, id, url string) (result *core.UrlAnalysis) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Job panicked", zap.String("tracking_id", id), zap.Any("panic", p))
			result = core.FailedAnalysis(url, fmt.Sprintf("analysis failed: %v", p), r.now())
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.opts.AnalysisTimeout)
	defer cancel()

	result = r.analyzer.Analyze(ctx, url)
	if result == nil {
		result = core.FailedAnalysis(url, "analysis returned no result", r.now())
	}
	return result
}

func (r *Registry) finish() {
	r.mu.Lock()
	r.inFlight--
	r.metrics.SetJobsInFlight(r.inFlight)
	r.mu.Unlock()
}

// sweepLocked drops results nobody collected within ResultTTL
func (r *Registry) sweepLocked() {
	cutoff := r.now().Add(-r.opts.ResultTTL)
	for id, j := range r.jobs {
		if j.result != nil && j.finishedAt.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}
