package convert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kbforge/harvester/internal/classify"
	"github.com/kbforge/harvester/internal/metadata"
	"github.com/kbforge/harvester/internal/metrics"
	"github.com/kbforge/harvester/internal/retry"
	"github.com/kbforge/harvester/internal/storage"
)

// Task identifies one artifact awaiting conversion.
type Task struct {
	JobID     string
	ElementID string
	RawKey    string
	Kind      classify.Kind
}

// ErrQueueFull is returned when the bounded queue rejects a submission.
// The artifact stays pending with a null processed path, recoverable by an
// offline conversion run.
var ErrQueueFull = errors.New("conversion queue is full")

// Config controls the conversion worker pool.
type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
}

// Queue is the bounded background conversion stage. Submissions never block
// the crawl: a full queue rejects immediately. Each task is retried with
// jittered backoff up to MaxAttempts; exhaustion leaves the artifact's
// processed path null.
type Queue struct {
	cfg       Config
	converter Converter
	blobs     storage.BlobStore
	repo      metadata.Repository
	policy    *retry.Policy
	logger    *zap.Logger

	tasks chan Task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewQueue constructs the conversion queue.
func NewQueue(
	cfg Config,
	converter Converter,
	blobs storage.BlobStore,
	repo metadata.Repository,
	logger *zap.Logger,
) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		cfg:       cfg,
		converter: converter,
		blobs:     blobs,
		repo:      repo,
		policy:    retry.NewPolicyWith(cfg.MaxAttempts, 500*time.Millisecond, 30*time.Second),
		logger:    logger,
		tasks:     make(chan Task, cfg.QueueSize),
	}
}

// Start launches the worker pool. Workers exit when the queue is closed and
// drained, or when the context is canceled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-q.tasks:
					if !ok {
						return
					}
					metrics.ConversionQueueDepth(len(q.tasks))
					q.process(ctx, task)
				}
			}
		}()
	}
}

// Submit enqueues a task without blocking; a full or drained queue is
// rejected.
func (q *Queue) Submit(_ context.Context, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		metrics.Conversion("rejected")
		return ErrQueueFull
	}
	select {
	case q.tasks <- task:
		metrics.ConversionQueueDepth(len(q.tasks))
		return nil
	default:
		metrics.Conversion("rejected")
		return ErrQueueFull
	}
}

// Drain closes the queue and waits for in-flight conversions to finish or
// the context to expire. Called after the frontier drains; the crawl's exit
// does not depend on it succeeding.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("conversion drain: %w", ctx.Err())
	case <-done:
		return nil
	}
}

// Depth reports the current backlog (for observability and tests).
func (q *Queue) Depth() int {
	return len(q.tasks)
}

func (q *Queue) process(ctx context.Context, task Task) {
	logger := q.logger.With(
		zap.String("job_id", task.JobID),
		zap.String("element_id", task.ElementID),
	)

	raw, err := q.blobs.Get(ctx, task.RawKey)
	if err != nil {
		metrics.Conversion("failed")
		logger.Error("Fetch raw bytes for conversion failed", zap.Error(err))
		return
	}

	var output []byte
	err = q.policy.Do(ctx, func() error {
		var convErr error
		output, convErr = q.converter.Convert(ctx, raw, task.Kind)
		if convErr != nil {
			metrics.Conversion("retried")
		}
		return convErr
	})
	if err != nil {
		// Permanent failure: the row keeps a null processed path.
		metrics.Conversion("failed")
		logger.Error("Conversion failed permanently",
			zap.Int("max_attempts", q.cfg.MaxAttempts),
			zap.Error(err),
		)
		return
	}

	key := storage.ProcessedKey(task.JobID, task.ElementID)
	uri, err := q.blobs.Put(ctx, key, "text/markdown; charset=utf-8", output)
	if err != nil {
		metrics.Conversion("failed")
		logger.Error("Store processed output failed", zap.Error(err))
		return
	}
	if err := q.repo.SetProcessedPath(ctx, task.ElementID, uri); err != nil {
		metrics.Conversion("failed")
		logger.Error("Update processed path failed", zap.Error(err))
		return
	}
	metrics.Conversion("succeeded")
	logger.Info("Artifact converted", zap.String("processed_uri", uri))
}
