// Package app wires the harvester's gateways from configuration: blob store,
// metadata repository, publisher, converter, fetcher, and the optional status
// API. The cobra commands receive one App through the command context.
package app

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kbforge/harvester/internal/api"
	"github.com/kbforge/harvester/internal/convert"
	"github.com/kbforge/harvester/internal/fetch"
	"github.com/kbforge/harvester/internal/frontier"
	redisfrontier "github.com/kbforge/harvester/internal/frontier/redis"
	"github.com/kbforge/harvester/internal/job"
	"github.com/kbforge/harvester/internal/logging"
	"github.com/kbforge/harvester/internal/metadata"
	memmeta "github.com/kbforge/harvester/internal/metadata/memory"
	"github.com/kbforge/harvester/internal/metadata/postgres"
	"github.com/kbforge/harvester/internal/metrics"
	"github.com/kbforge/harvester/internal/publish"
	mempub "github.com/kbforge/harvester/internal/publish/memory"
	pubsubpub "github.com/kbforge/harvester/internal/publish/pubsub"
	"github.com/kbforge/harvester/internal/retry"
	"github.com/kbforge/harvester/internal/storage"
	"github.com/kbforge/harvester/internal/storage/gcs"
	memblob "github.com/kbforge/harvester/internal/storage/memory"
)

// App holds the configured gateways for one process.
type App struct {
	Logger    *zap.Logger
	Blobs     storage.BlobStore
	Repo      metadata.Repository
	Publisher publish.Publisher
	// Converter is nil when the conversion stage is disabled or has no
	// endpoint configured.
	Converter convert.Converter
	Fetcher   fetch.Fetcher
	// API is nil unless api.enabled is set.
	API *api.Server

	gcsClient *gstorage.Client
}

// New constructs the gateways selected by configuration. Providers fail fast
// here so a misconfigured process never starts crawling.
func New(ctx context.Context) (*App, error) {
	metrics.Init()
	a := &App{Logger: logging.L}

	if err := a.initBlobs(ctx); err != nil {
		return nil, err
	}
	if err := a.initRepo(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initConverter(); err != nil {
		a.Close()
		return nil, err
	}

	a.Fetcher = fetch.NewCollyFetcher(fetch.CollyConfig{
		UserAgent:     viper.GetString("crawler.user_agent"),
		RespectRobots: viper.GetBool("crawler.respect_robots"),
		Timeout:       viper.GetDuration("crawler.request_timeout"),
		MaxBodyBytes:  viper.GetInt("crawler.max_page_bytes"),
	})

	if viper.GetBool("api.enabled") {
		a.API = api.NewServer(viper.GetString("api.addr"), a.Repo, a.Logger)
	}
	return a, nil
}

func (a *App) initBlobs(ctx context.Context) error {
	provider := viper.GetString("storage.provider")
	switch provider {
	case "memory":
		a.Blobs = memblob.NewBlobStore()
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create gcs client: %w", err)
		}
		store, err := gcs.New(ctx, client, gcs.Config{
			Bucket: viper.GetString("storage.gcs.bucket_name"),
		})
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("init gcs blob store: %w", err)
		}
		a.gcsClient = client
		a.Blobs = store
	default:
		return fmt.Errorf("unknown storage.provider %q", provider)
	}
	a.Blobs = storage.WithRetry(a.Blobs, retry.NewPolicy())
	a.Logger.Info("Blob store ready", zap.String("provider", provider))
	return nil
}

func (a *App) initRepo(ctx context.Context) error {
	provider := viper.GetString("metadata.provider")
	switch provider {
	case "memory":
		a.Repo = memmeta.NewRepository()
	case "postgres":
		repo, err := postgres.NewRepository(ctx, postgres.Config{
			DSN:      viper.GetString("metadata.postgres.dsn"),
			Table:    viper.GetString("metadata.postgres.table"),
			MaxConns: viper.GetInt32("metadata.postgres.max_conns"),
		})
		if err != nil {
			return fmt.Errorf("init postgres repository: %w", err)
		}
		a.Repo = repo
	default:
		return fmt.Errorf("unknown metadata.provider %q", provider)
	}
	a.Repo = metadata.WithRetry(a.Repo, retry.NewPolicy())
	a.Logger.Info("Metadata repository ready", zap.String("provider", provider))
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	provider := viper.GetString("publisher.provider")
	switch provider {
	case "noop":
		a.Publisher = publish.NoOp{}
	case "memory":
		a.Publisher = mempub.New()
	case "pubsub":
		pub, err := pubsubpub.New(ctx,
			viper.GetString("publisher.gcp.project_id"),
			viper.GetString("publisher.gcp.topic_id"),
		)
		if err != nil {
			return fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.Publisher = pub
	default:
		return fmt.Errorf("unknown publisher.provider %q", provider)
	}
	a.Logger.Info("Publisher ready", zap.String("provider", provider))
	return nil
}

func (a *App) initConverter() error {
	if !viper.GetBool("convert.enabled") {
		a.Logger.Info("Conversion stage disabled")
		return nil
	}
	endpoint := viper.GetString("convert.endpoint")
	if endpoint == "" {
		a.Logger.Warn("Conversion enabled but convert.endpoint is empty; binary artifacts stay unprocessed")
		return nil
	}
	converter, err := convert.NewHTTPConverter(convert.HTTPConfig{
		Endpoint: endpoint,
		APIKey:   viper.GetString("convert.api_key"),
		Timeout:  viper.GetDuration("convert.timeout"),
	})
	if err != nil {
		return fmt.Errorf("init converter: %w", err)
	}
	a.Converter = converter
	return nil
}

// NewFrontier builds the per-job frontier selected by configuration.
func (a *App) NewFrontier(ctx context.Context, jb job.Job) (frontier.Frontier, error) {
	policy := frontier.Policy{MaxDepth: jb.MaxDepth, Follow: jb.Follow}
	provider := viper.GetString("frontier.provider")
	switch provider {
	case "memory":
		return frontier.NewMemory(policy, viper.GetInt("crawler.frontier_capacity")), nil
	case "redis":
		return redisfrontier.New(ctx, redisfrontier.Config{
			Addr:   viper.GetString("frontier.redis.addr"),
			JobID:  jb.ID,
			Policy: policy,
			Logger: a.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown frontier.provider %q", provider)
	}
}

// Transforms returns the response transforms applied before ingestion.
func (a *App) Transforms() []fetch.Transform {
	return []fetch.Transform{
		fetch.RequireSuccess(),
		fetch.MaxBodyBytes(viper.GetInt("crawler.max_page_bytes")),
		fetch.EnsureFinalURL(),
	}
}

// Close releases every gateway. Safe to call on a partially built App.
func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Error("Close publisher failed", zap.Error(err))
		}
	}
	if a.Repo != nil {
		if err := a.Repo.Close(); err != nil {
			a.Logger.Error("Close metadata repository failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.Logger.Error("Close gcs client failed", zap.Error(err))
		}
	}
}
