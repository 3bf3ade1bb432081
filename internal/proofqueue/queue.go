package proofqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/helixchain/realtime/pkg/store"
)

type Config struct {
	Concurrency    int
	MaxAttempts    int
	InitialBackoff time.Duration
	StallTimeout   time.Duration
}

// Queue runs proof-generation jobs with retry, exponential backoff and stall
// detection. State model: queued -> active -> (completed | failed |
// stalled -> active). Completed jobs are removed from the store; failed jobs
// are retained and stay queryable.
type Queue struct {
	logger   *slog.Logger
	store    store.JobStore
	gen      Generator
	notifier *Notifier
	cfg      Config

	pending chan *Job

	mu     sync.Mutex
	active map[string]*activeJob
	timers map[string]*time.Timer
}

// activeJob tracks one in-flight generation so the stall monitor can see its
// last heartbeat and cancel it.
type activeJob struct {
	cancel   context.CancelFunc
	lastBeat time.Time
	stalled  bool
}

func New(logger *slog.Logger, js store.JobStore, gen Generator, notifier *Notifier, cfg Config) *Queue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	return &Queue{
		logger:   logger.With(slog.String("component", "proof_queue")),
		store:    js,
		gen:      gen,
		notifier: notifier,
		cfg:      cfg,
		pending:  make(chan *Job, 256),
		active:   make(map[string]*activeJob),
		timers:   make(map[string]*time.Timer),
	}
}

// Run starts the worker pool and the stall monitor and blocks until the
// context is cancelled. In-flight generations are cancelled on shutdown and
// their jobs put back to queued in the store.
func (q *Queue) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)
	for i := 0; i < q.cfg.Concurrency; i++ {
		g.Go(func() error {
			q.worker(runCtx)
			return nil
		})
	}
	if q.cfg.StallTimeout > 0 {
		g.Go(func() error {
			q.monitorStalls(runCtx)
			return nil
		})
	}

	<-runCtx.Done()
	q.stopTimers()
	return g.Wait()
}

// Enqueue registers a new proof job and hands it to the worker pool.
func (q *Queue) Enqueue(ctx context.Context, userID, traitType string, input []byte) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		TraitType: traitType,
		Input:     input,
		CreatedAt: time.Now(),
	}
	record := &store.JobRecord{
		ID:        job.ID,
		UserID:    userID,
		TraitType: traitType,
		Status:    store.JobQueued,
	}
	if err := q.store.Create(ctx, record); err != nil {
		return nil, err
	}

	select {
	case q.pending <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	q.logger.Info("Proof job enqueued",
		slog.String("jobID", job.ID),
		slog.String("userID", userID),
		slog.String("traitType", traitType),
	)
	return job, nil
}

// Job returns the stored record for a job, or nil if it was never stored or
// has completed (completed rows are auto-removed).
func (q *Queue) Job(ctx context.Context, id string) (*store.JobRecord, error) {
	return q.store.Get(ctx, id)
}

// FailedJobs lists the retained terminally-failed jobs.
func (q *Queue) FailedJobs(ctx context.Context) ([]*store.JobRecord, error) {
	return q.store.FailedJobs(ctx)
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case job := <-q.pending:
			q.process(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) process(ctx context.Context, job *Job) {
	attempt := job.Attempts + 1
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	aj := &activeJob{cancel: cancel, lastBeat: time.Now()}
	q.mu.Lock()
	q.active[job.ID] = aj
	q.mu.Unlock()

	if err := q.store.MarkActive(ctx, job.ID, attempt); err != nil {
		q.logger.Error("Failed to mark job active", slog.String("jobID", job.ID), slog.Any("error", err))
	}

	progress := func(pct int, stage string) {
		q.heartbeat(job.ID)
		q.notifier.Progress(job, pct, stage)
	}

	proof, err := q.gen.Generate(jobCtx, job, progress)

	q.mu.Lock()
	stalled := aj.stalled
	delete(q.active, job.ID)
	q.mu.Unlock()

	if err == nil {
		q.notifier.Completed(job, proof)
		// Completed jobs are auto-removed.
		if derr := q.store.Delete(context.WithoutCancel(ctx), job.ID); derr != nil {
			q.logger.Error("Failed to remove completed job", slog.String("jobID", job.ID), slog.Any("error", derr))
		}
		return
	}

	if ctx.Err() != nil && !stalled {
		// Shutdown, not a real failure: leave the job queued and don't
		// consume an attempt.
		q.markQueued(job)
		return
	}

	if stalled {
		// The stall timer re-queues transparently. Not a distinct failure,
		// so the attempt is not consumed and no backoff applies.
		q.logger.Warn("Job stalled, re-queueing", slog.String("jobID", job.ID))
		q.markQueued(job)
		q.redispatch(ctx, job)
		return
	}

	job.Attempts = attempt
	if attempt < q.cfg.MaxAttempts {
		delay := q.backoff(attempt)
		q.logger.Warn("Job attempt failed, scheduling retry",
			slog.String("jobID", job.ID),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		q.markQueued(job)
		q.scheduleRetry(ctx, job, delay)
		return
	}

	// Retries exhausted: retain the failed record and surface exactly one
	// terminal error event.
	if serr := q.store.MarkFailed(context.WithoutCancel(ctx), job.ID, attempt, err.Error()); serr != nil {
		q.logger.Error("Failed to record job failure", slog.String("jobID", job.ID), slog.Any("error", serr))
	}
	q.notifier.Failed(job, err.Error())
}

// backoff returns the delay before the given completed attempt is retried:
// initial * 2^(attempt-1).
func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func (q *Queue) markQueued(job *Job) {
	if err := q.store.MarkQueued(context.Background(), job.ID, job.Attempts); err != nil {
		q.logger.Error("Failed to mark job queued", slog.String("jobID", job.ID), slog.Any("error", err))
	}
}

func (q *Queue) scheduleRetry(ctx context.Context, job *Job, delay time.Duration) {
	timer := time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, job.ID)
		q.mu.Unlock()
		q.redispatch(ctx, job)
	})
	q.mu.Lock()
	q.timers[job.ID] = timer
	q.mu.Unlock()
}

func (q *Queue) redispatch(ctx context.Context, job *Job) {
	select {
	case q.pending <- job:
	case <-ctx.Done():
	}
}

func (q *Queue) heartbeat(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if aj, ok := q.active[jobID]; ok {
		aj.lastBeat = time.Now()
	}
}

// monitorStalls cancels in-flight generations whose worker stopped reporting
// progress within the stall window; the affected job is re-queued by the
// worker that owns it.
func (q *Queue) monitorStalls(ctx context.Context) {
	interval := q.cfg.StallTimeout / 2
	if interval <= 0 {
		interval = q.cfg.StallTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			q.mu.Lock()
			for id, aj := range q.active {
				if !aj.stalled && now.Sub(aj.lastBeat) > q.cfg.StallTimeout {
					q.logger.Warn("Stall detected", slog.String("jobID", id))
					aj.stalled = true
					aj.cancel()
				}
			}
			q.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) stopTimers() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
}
