// Package crawl runs the bounded traversal: a pool of workers draining the
// frontier, fetching each URL once, and handing responses to the ingest
// pipeline.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kbforge/harvester/internal/fetch"
	"github.com/kbforge/harvester/internal/frontier"
	"github.com/kbforge/harvester/internal/job"
	"github.com/kbforge/harvester/internal/metrics"
	"github.com/kbforge/harvester/internal/pipeline"
)

// Config controls the crawl engine.
type Config struct {
	Concurrency int
	// Transforms run on every response before ingestion; the first error
	// drops the response.
	Transforms []fetch.Transform
}

// Summary reports what one crawl run did.
type Summary struct {
	JobID          string
	PagesFetched   int64
	FetchErrors    int64
	Dropped        int64
	Skipped        int64
	Ingested       int64
	Deduped        int64
	LinksEnqueued  int64
	AssetsIngested int64
	Elapsed        time.Duration
}

type counters struct {
	pagesFetched   atomic.Int64
	fetchErrors    atomic.Int64
	dropped        atomic.Int64
	skipped        atomic.Int64
	ingested       atomic.Int64
	deduped        atomic.Int64
	linksEnqueued  atomic.Int64
	assetsIngested atomic.Int64
}

// Engine drains the frontier with a fixed worker pool. The run ends when the
// frontier drains (every enqueued URL fetched and acknowledged) or the
// context is canceled.
type Engine struct {
	cfg      Config
	frontier frontier.Frontier
	fetcher  fetch.Fetcher
	ingestor *pipeline.Ingestor
	logger   *zap.Logger
}

// New builds a crawl engine.
func New(cfg Config, fr frontier.Frontier, fetcher fetch.Fetcher, ingestor *pipeline.Ingestor, logger *zap.Logger) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		frontier: fr,
		fetcher:  fetcher,
		ingestor: ingestor,
		logger:   logger,
	}
}

// Run seeds the frontier and blocks until the crawl completes. Per-URL
// failures are counted and logged, never fatal; only seed rejection and
// context cancellation end the run early.
func (e *Engine) Run(ctx context.Context, jb job.Job) (Summary, error) {
	start := time.Now()
	logger := e.logger.With(zap.String("job_id", jb.ID))

	seed := frontier.Item{URL: jb.SeedURL, Depth: 0}
	if err := e.frontier.Enqueue(ctx, seed); err != nil {
		return Summary{JobID: jb.ID}, fmt.Errorf("enqueue seed: %w", err)
	}
	logger.Info("Crawl started",
		zap.String("seed_url", jb.SeedURL),
		zap.Int("max_depth", jb.MaxDepth),
		zap.Bool("follow", jb.Follow),
		zap.Int("concurrency", e.cfg.Concurrency),
	)

	var (
		wg       sync.WaitGroup
		c        counters
		firstErr error
		errOnce  sync.Once
	)
	for w := 0; w < e.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.worker(ctx, jb, &c); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}()
	}
	wg.Wait()

	summary := Summary{
		JobID:          jb.ID,
		PagesFetched:   c.pagesFetched.Load(),
		FetchErrors:    c.fetchErrors.Load(),
		Dropped:        c.dropped.Load(),
		Skipped:        c.skipped.Load(),
		Ingested:       c.ingested.Load(),
		Deduped:        c.deduped.Load(),
		LinksEnqueued:  c.linksEnqueued.Load(),
		AssetsIngested: c.assetsIngested.Load(),
		Elapsed:        time.Since(start),
	}
	return summary, firstErr
}

// worker dequeues until the frontier drains or the context is canceled.
// Every dequeued item is acknowledged exactly once.
func (e *Engine) worker(ctx context.Context, jb job.Job, c *counters) error {
	for {
		item, ok, err := e.frontier.Dequeue(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		e.reportFrontierDepth()
		e.processItem(ctx, jb, item, c)
		e.frontier.Done()
	}
}

func (e *Engine) processItem(ctx context.Context, jb job.Job, item frontier.Item, c *counters) {
	logger := e.logger.With(
		zap.String("job_id", jb.ID),
		zap.String("url", item.URL),
		zap.Int("depth", item.Depth),
	)

	resp, err := e.fetcher.Fetch(ctx, fetch.Request{JobID: jb.ID, URL: item.URL, Depth: item.Depth})
	if err != nil {
		metrics.PageFetched("error")
		c.fetchErrors.Add(1)
		logger.Warn("Fetch failed", zap.Error(err))
		return
	}

	resp, err = fetch.Apply(resp, e.cfg.Transforms)
	if err != nil {
		metrics.PageFetched("dropped")
		c.dropped.Add(1)
		logger.Warn("Response dropped", zap.Error(err))
		return
	}
	metrics.PageFetched("ok")
	c.pagesFetched.Add(1)
	resp.Depth = item.Depth

	// Frontier-dequeued pages have no parent; lineage belongs to embedded
	// assets only.
	result, err := e.ingestor.Ingest(ctx, jb, resp, "")
	if err != nil {
		if errors.Is(err, pipeline.ErrSkipped) {
			c.skipped.Add(1)
			return
		}
		logger.Error("Ingest failed", zap.Error(err))
		return
	}
	if result.Deduped {
		c.deduped.Add(1)
		return
	}
	c.ingested.Add(1)
	c.linksEnqueued.Add(int64(result.LinksEnqueued))
	c.assetsIngested.Add(int64(result.AssetsIngested))
}

func (e *Engine) reportFrontierDepth() {
	if sized, ok := e.frontier.(interface{ Len() int }); ok {
		metrics.FrontierDepth(sized.Len())
	}
}
