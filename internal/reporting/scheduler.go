// Package reporting implements the asynchronous report-generation
// scheduler: a bounded in-process job queue backed by persisted
// ReportJob rows, a worker pool that claims jobs behind a distributed
// lock so replicas never double-render the same job, and a stale-job
// sweep that reclaims jobs abandoned by a crashed worker.
package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/casinobroker/platform/internal/cache"
	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

// ErrQueueFull is returned by Submit when the in-process queue has no
// room; callers (the HTTP layer) turn this into a 503 so clients retry.
var ErrQueueFull = errors.New("report queue full")

const (
	defaultWorkers     = 5
	defaultQueueSize   = 256
	lockTTL            = 5 * time.Minute
	staleAfter         = 10 * time.Minute
	staleSweepSchedule = "*/5 * * * *"
)

// Scheduler owns the report job queue and worker pool.
type Scheduler struct {
	pool      *pgxpool.Pool
	jobs      repository.ReportJobRepository
	cache     *cache.Cache
	storage   Storage
	renderers map[string]Renderer
	schemas   map[string]domain.ReportSchema
	queue     chan uuid.UUID
	workers   int
	logger    *zap.Logger
	cron      *cron.Cron
}

// NewScheduler builds a Scheduler. renderers maps report kind to the
// Renderer that produces its bytes; schemas maps report kind to its
// parameter schema (DefaultSchemas if nil). workers/queueSize default to
// 5/256 when non-positive.
func NewScheduler(
	pool *pgxpool.Pool,
	jobs repository.ReportJobRepository,
	c *cache.Cache,
	storage Storage,
	renderers map[string]Renderer,
	schemas map[string]domain.ReportSchema,
	workers, queueSize int,
	logger *zap.Logger,
) *Scheduler {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if schemas == nil {
		schemas = DefaultSchemas
	}
	return &Scheduler{
		pool: pool, jobs: jobs, cache: c, storage: storage, renderers: renderers,
		schemas: schemas, queue: make(chan uuid.UUID, queueSize), workers: workers, logger: logger,
	}
}

// Submit validates params against the report kind's declared schema, writes
// a pending ReportJob row, and enqueues its id. If the in-process queue has
// no room, the row already written is marked failed and Submit returns
// ErrQueueFull.
func (s *Scheduler) Submit(ctx context.Context, partnerID uuid.UUID, kind string, format domain.ReportFormat, params json.RawMessage) (*domain.ReportJob, error) {
	schema, ok := s.schemas[kind]
	if !ok {
		return nil, domain.ErrValidation("unknown report kind: " + kind)
	}
	if err := ValidateParams(schema, params); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if _, ok := s.renderers[kind]; !ok {
		return nil, domain.ErrValidation("no renderer registered for report kind: " + kind)
	}

	job := &domain.ReportJob{
		ID: uuid.New(), PartnerID: partnerID, ReportKind: kind, Format: format,
		Params: params, Status: domain.ReportJobPending, CreatedAt: time.Now(),
	}

	if err := s.jobs.Insert(ctx, s.pool, job); err != nil {
		return nil, fmt.Errorf("insert report job: %w", err)
	}

	select {
	case s.queue <- job.ID:
	default:
		if failErr := s.jobs.Fail(ctx, s.pool, job.ID, "queue full at submission time"); failErr != nil {
			s.logger.Error("mark unqueueable report job failed", zap.Error(failErr))
		}
		return nil, ErrQueueFull
	}
	return job, nil
}

// Start launches the worker pool. It blocks consuming the queue until ctx
// is canceled, so call it in its own goroutine. The stale-job sweep is
// scheduled alongside it and stopped on the same cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(staleSweepSchedule, s.sweepStaleWrapper); err != nil {
		return fmt.Errorf("schedule stale report sweep: %w", err)
	}
	s.cron.Start()
	defer func() {
		sctx := s.cron.Stop()
		<-sctx.Done()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return nil
		case id, ok := <-s.queue:
			if !ok {
				_ = g.Wait()
				return nil
			}
			g.Go(func() error {
				s.process(gctx, id)
				return nil
			})
		}
	}
}

// process claims, renders, and finalizes one job. Claim failure (another
// replica already holds the lock) ends this attempt and leaves the job as
// it was. Render and storage failures mark the job failed; the stale sweep
// only requeues jobs left in "processing", so a failed job is not retried.
func (s *Scheduler) process(ctx context.Context, id uuid.UUID) {
	lockKey := "report:" + id.String()
	token, acquired, err := s.cache.Lock(ctx, lockKey, lockTTL)
	if err != nil {
		s.logger.Error("acquire report job lock failed", zap.String("job_id", id.String()), zap.Error(err))
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := s.cache.Unlock(ctx, lockKey, token); err != nil {
			s.logger.Warn("release report job lock failed", zap.String("job_id", id.String()), zap.Error(err))
		}
	}()

	job, err := s.jobs.FindByID(ctx, s.pool, id)
	if err != nil {
		s.logger.Error("load report job failed", zap.String("job_id", id.String()), zap.Error(err))
		return
	}
	if job == nil || job.Status != domain.ReportJobPending {
		return
	}

	if err := s.jobs.UpdateStatus(ctx, s.pool, id, domain.ReportJobProcessing); err != nil {
		s.logger.Error("mark report job processing failed", zap.String("job_id", id.String()), zap.Error(err))
		return
	}

	renderer := s.renderers[job.ReportKind]
	data, err := renderer.Render(ctx, job)
	if err != nil {
		s.fail(ctx, id, fmt.Sprintf("render failed: %v", err))
		return
	}

	key := fmt.Sprintf("%s/%s.%s", job.PartnerID, job.ID, job.Format)
	path, err := s.storage.Put(ctx, key, data)
	if err != nil {
		s.fail(ctx, id, fmt.Sprintf("storage write failed: %v", err))
		return
	}

	if err := s.jobs.Complete(ctx, s.pool, id, path, int64(len(data)), time.Now()); err != nil {
		s.logger.Error("mark report job complete failed", zap.String("job_id", id.String()), zap.Error(err))
	}
}

func (s *Scheduler) fail(ctx context.Context, id uuid.UUID, msg string) {
	if err := s.jobs.Fail(ctx, s.pool, id, msg); err != nil {
		s.logger.Error("mark report job failed failed", zap.String("job_id", id.String()), zap.Error(err))
	}
}

// sweepStale requeues jobs still in "processing" that were created more
// than staleAfter ago, treating them as abandoned by a worker that died
// without completing or failing the job.
func (s *Scheduler) sweepStale(ctx context.Context) {
	stale, err := s.jobs.ListStaleProcessing(ctx, s.pool, time.Now().Add(-staleAfter), 100)
	if err != nil {
		s.logger.Error("stale report sweep failed", zap.Error(err))
		return
	}
	for _, j := range stale {
		if err := s.jobs.Requeue(ctx, s.pool, j.ID); err != nil {
			s.logger.Error("requeue stale report job failed", zap.String("job_id", j.ID.String()), zap.Error(err))
			continue
		}
		select {
		case s.queue <- j.ID:
		default:
			s.logger.Warn("stale report job requeued in db but in-process queue full", zap.String("job_id", j.ID.String()))
		}
	}
}

func (s *Scheduler) sweepStaleWrapper() { s.sweepStale(context.Background()) }
