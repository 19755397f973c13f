// Package redis provides a Redis-backed frontier for crawls whose queue and
// visited set will not fit in a single process. Keys are scoped per job
// under frontier:{job_id}:*.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kbforge/harvester/internal/frontier"
)

// Config controls the Redis connection and key scoping.
type Config struct {
	Addr   string
	JobID  string
	Policy frontier.Policy
	// TTL bounds how long per-job keys outlive the crawl.
	TTL    time.Duration
	Logger *zap.Logger
}

// Frontier implements frontier.Frontier on Redis. The visited check-and-set
// is SADD (atomic on the server); the queue is an RPUSH/LPOP list. The
// pending counter stays process-local since one process consumes a job.
type Frontier struct {
	client   *redis.Client
	policy   frontier.Policy
	queueKey string
	seenKey  string
	ttl      time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending int
	closed  bool
	wait    chan struct{}
}

var _ frontier.Frontier = (*Frontier)(nil)

// New connects to Redis and verifies the connection before returning.
func New(ctx context.Context, cfg Config) (*Frontier, error) {
	if cfg.JobID == "" {
		return nil, errors.New("job id is required")
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		closeErr := client.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("ping redis: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontier{
		client:   client,
		policy:   cfg.Policy,
		queueKey: "frontier:" + cfg.JobID + ":queue",
		seenKey:  "frontier:" + cfg.JobID + ":visited",
		ttl:      ttl,
		logger:   logger,
		wait:     make(chan struct{}),
	}, nil
}

// Enqueue admits an item per policy, using SADD as the atomic visited
// check-and-set.
func (f *Frontier) Enqueue(ctx context.Context, item frontier.Item) error {
	normalized, err := frontier.NormalizeURL(item.URL)
	if err != nil {
		return err
	}
	if !f.policy.Admit(item.Depth) {
		return nil
	}

	added, err := f.client.SAdd(ctx, f.seenKey, normalized).Result()
	if err != nil {
		return fmt.Errorf("visited check-and-set: %w", err)
	}
	if added == 0 {
		return nil
	}

	item.URL = normalized
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal frontier item: %w", err)
	}
	if err := f.client.RPush(ctx, f.queueKey, payload).Err(); err != nil {
		return fmt.Errorf("queue push: %w", err)
	}
	// A failed TTL refresh does not fail the enqueue; the keys just keep
	// their previous expiry.
	if err := f.client.Expire(ctx, f.queueKey, f.ttl).Err(); err != nil {
		f.logger.Warn("Queue TTL refresh failed", zap.String("key", f.queueKey), zap.Error(err))
	}
	if err := f.client.Expire(ctx, f.seenKey, f.ttl).Err(); err != nil {
		f.logger.Warn("Visited TTL refresh failed", zap.String("key", f.seenKey), zap.Error(err))
	}

	f.mu.Lock()
	f.pending++
	f.signalLocked()
	f.mu.Unlock()
	return nil
}

// Dequeue pops the next item in FIFO order, blocking until one is available
// or the frontier drains.
func (f *Frontier) Dequeue(ctx context.Context) (frontier.Item, bool, error) {
	for {
		payload, err := f.client.LPop(ctx, f.queueKey).Result()
		switch {
		case err == nil:
			var item frontier.Item
			if uerr := json.Unmarshal([]byte(payload), &item); uerr != nil {
				return frontier.Item{}, false, fmt.Errorf("unmarshal frontier item: %w", uerr)
			}
			return item, true, nil
		case errors.Is(err, redis.Nil):
			// Queue empty; fall through to the drain check.
		default:
			return frontier.Item{}, false, fmt.Errorf("queue pop: %w", err)
		}

		f.mu.Lock()
		if f.pending == 0 || f.closed {
			f.mu.Unlock()
			return frontier.Item{}, false, nil
		}
		wait := f.wait
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return frontier.Item{}, false, ctx.Err()
		case <-wait:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Done acknowledges completion of a dequeued item.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending > 0 {
		f.pending--
	}
	f.signalLocked()
}

// IsVisited reports membership in the job's visited set.
func (f *Frontier) IsVisited(ctx context.Context, rawURL string) (bool, error) {
	normalized, err := frontier.NormalizeURL(rawURL)
	if err != nil {
		return false, err
	}
	seen, err := f.client.SIsMember(ctx, f.seenKey, normalized).Result()
	if err != nil {
		return false, fmt.Errorf("visited check: %w", err)
	}
	return seen, nil
}

// MarkVisited records a URL without enqueuing it.
func (f *Frontier) MarkVisited(ctx context.Context, rawURL string) error {
	normalized, err := frontier.NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	if err := f.client.SAdd(ctx, f.seenKey, normalized).Err(); err != nil {
		return fmt.Errorf("mark visited: %w", err)
	}
	return nil
}

// Close stops further consumption and releases the client.
func (f *Frontier) Close() error {
	f.mu.Lock()
	f.closed = true
	f.signalLocked()
	f.mu.Unlock()
	return f.client.Close()
}

func (f *Frontier) signalLocked() {
	close(f.wait)
	f.wait = make(chan struct{})
}
