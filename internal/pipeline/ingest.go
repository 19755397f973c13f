// Package pipeline implements the dedup/ingest stage: every fetched
// response flows through one Ingestor, which classifies it, content-addresses
// it, persists raw bytes and the metadata row, and fans out to conversion,
// event publishing, and frontier expansion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kbforge/harvester/internal/classify"
	"github.com/kbforge/harvester/internal/convert"
	"github.com/kbforge/harvester/internal/fetch"
	"github.com/kbforge/harvester/internal/frontier"
	"github.com/kbforge/harvester/internal/identity"
	"github.com/kbforge/harvester/internal/job"
	"github.com/kbforge/harvester/internal/metadata"
	"github.com/kbforge/harvester/internal/metrics"
	"github.com/kbforge/harvester/internal/publish"
	"github.com/kbforge/harvester/internal/storage"
)

// ErrSkipped marks a response whose content type is not captured. The caller
// drops it without any storage or metadata side effects.
var ErrSkipped = errors.New("unsupported content type, response skipped")

// ConversionSubmitter hands a stored binary artifact to the background
// conversion stage. Submissions never block; a saturated stage rejects.
type ConversionSubmitter interface {
	Submit(ctx context.Context, task convert.Task) error
}

// Result summarizes one ingestion for the crawl engine's counters.
type Result struct {
	Record         metadata.ArtifactRecord
	Deduped        bool
	LinksEnqueued  int
	AssetsIngested int
}

// Ingestor runs the write path for one artifact. It is safe for concurrent
// use by the crawl workers.
type Ingestor struct {
	blobs       storage.BlobStore
	repo        metadata.Repository
	frontier    frontier.Frontier
	fetcher     fetch.Fetcher
	conversions ConversionSubmitter
	publisher   publish.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewIngestor wires the ingest stage. conversions may be nil when the
// conversion stage is disabled; binary artifacts then keep a null processed
// path.
func NewIngestor(
	blobs storage.BlobStore,
	repo metadata.Repository,
	fr frontier.Frontier,
	fetcher fetch.Fetcher,
	conversions ConversionSubmitter,
	publisher publish.Publisher,
	logger *zap.Logger,
) *Ingestor {
	if publisher == nil {
		publisher = publish.NoOp{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		blobs:       blobs,
		repo:        repo,
		frontier:    fr,
		fetcher:     fetcher,
		conversions: conversions,
		publisher:   publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Ingest runs the full write path for one fetched response.
//
// Order matters for crash consistency: the raw object is durable before the
// metadata row references it, and for HTML pages the row is written before
// any embedded asset references the page as parent.
func (i *Ingestor) Ingest(ctx context.Context, jb job.Job, resp fetch.Response, parentID string) (Result, error) {
	kind := classify.Classify(resp.URL, resp.ContentType, resp.Body)
	if kind == classify.KindSkip {
		metrics.Skipped()
		i.logger.Debug("Response skipped",
			zap.String("job_id", jb.ID),
			zap.String("url", resp.URL),
			zap.String("content_type", resp.ContentType),
		)
		return Result{}, ErrSkipped
	}

	elementID := identity.ElementID(resp.URL, jb.ID)
	logger := i.logger.With(
		zap.String("job_id", jb.ID),
		zap.String("element_id", elementID),
		zap.String("url", resp.URL),
		zap.String("type", string(kind)),
	)

	exists, err := i.repo.Exists(ctx, elementID)
	if err != nil {
		metrics.IngestFailure("metadata_read")
		return Result{}, fmt.Errorf("check element %s: %w", elementID, err)
	}
	if exists {
		metrics.DedupHit("row")
		logger.Debug("Element already ingested")
		record, _, getErr := i.repo.Get(ctx, elementID)
		if getErr != nil {
			return Result{Deduped: true}, nil
		}
		return Result{Record: record, Deduped: true}, nil
	}

	checksum := identity.Fingerprint(resp.Body)
	ext := classify.Extension(resp.URL, kind)
	rawKey := storage.RawKey(jb.ID, checksum, ext)

	rawURI, err := i.storeRaw(ctx, rawKey, kind, ext, resp.Body, logger)
	if err != nil {
		metrics.IngestFailure("blob")
		return Result{}, err
	}

	record := metadata.ArtifactRecord{
		ElementID:      elementID,
		JobID:          jb.ID,
		URL:            resp.URL,
		Type:           kind,
		Depth:          resp.Depth,
		RawContentPath: rawURI,
		Checksum:       checksum,
		ParentID:       parentID,
		FetchedAt:      i.now(),
	}
	if err := i.repo.Upsert(ctx, record); err != nil {
		metrics.IngestFailure("metadata")
		return Result{}, fmt.Errorf("upsert element %s: %w", elementID, err)
	}
	metrics.ArtifactIngested(string(kind))
	logger.Info("Artifact ingested",
		zap.Int("depth", resp.Depth),
		zap.String("checksum", checksum),
		zap.String("raw_uri", rawURI),
	)

	i.publishEvent(ctx, record, logger)

	result := Result{Record: record}
	switch kind {
	case classify.KindPDF, classify.KindImage:
		i.submitConversion(ctx, jb, elementID, rawKey, kind, logger)
	case classify.KindHTML:
		i.expandPage(ctx, jb, resp, elementID, &result, logger)
	}
	return result, nil
}

// storeRaw uploads the raw bytes unless an object with the same checksum is
// already present, in which case the existing object's URI is reused.
func (i *Ingestor) storeRaw(ctx context.Context, rawKey string, kind classify.Kind, ext string, body []byte, logger *zap.Logger) (string, error) {
	exists, err := i.blobs.Exists(ctx, rawKey)
	if err != nil {
		return "", fmt.Errorf("check raw object %s: %w", rawKey, err)
	}
	if exists {
		metrics.DedupHit("blob")
		logger.Debug("Raw object already stored", zap.String("raw_key", rawKey))
		return i.blobs.URI(rawKey), nil
	}
	uri, err := i.blobs.Put(ctx, rawKey, classify.ContentType(kind, ext), body)
	if err != nil {
		return "", fmt.Errorf("store raw object %s: %w", rawKey, err)
	}
	return uri, nil
}

// publishEvent emits the ingest event. Publishing is best effort: a broker
// failure never fails the artifact.
func (i *Ingestor) publishEvent(ctx context.Context, record metadata.ArtifactRecord, logger *zap.Logger) {
	event := publish.Event{
		JobID:     record.JobID,
		ElementID: record.ElementID,
		URL:       record.URL,
		Type:      record.Type,
		Checksum:  record.Checksum,
		BlobURI:   record.RawContentPath,
		At:        record.FetchedAt,
	}
	if _, err := i.publisher.Publish(ctx, event); err != nil {
		logger.Warn("Publish ingest event failed", zap.Error(err))
	}
}

// submitConversion hands a binary artifact to the conversion stage. A full
// queue leaves the artifact pending with a null processed path.
func (i *Ingestor) submitConversion(ctx context.Context, jb job.Job, elementID, rawKey string, kind classify.Kind, logger *zap.Logger) {
	if i.conversions == nil {
		return
	}
	task := convert.Task{
		JobID:     jb.ID,
		ElementID: elementID,
		RawKey:    rawKey,
		Kind:      kind,
	}
	if err := i.conversions.Submit(ctx, task); err != nil {
		logger.Warn("Conversion submission rejected", zap.Error(err))
	}
}

// expandPage extracts the page's references after its own row is durable.
// Embedded assets are fetched and ingested inline at the page's depth with
// the page as parent; outbound links go to the frontier one level deeper.
func (i *Ingestor) expandPage(ctx context.Context, jb job.Job, resp fetch.Response, elementID string, result *Result, logger *zap.Logger) {
	base := resp.FinalURL
	if base == "" {
		base = resp.URL
	}
	refs, err := ExtractRefs(base, resp.Body)
	if err != nil {
		metrics.IngestFailure("extract")
		logger.Warn("Reference extraction failed", zap.Error(err))
		return
	}

	for _, asset := range refs.Assets {
		if ctx.Err() != nil {
			return
		}
		if i.ingestAsset(ctx, jb, asset, resp.Depth, elementID, logger) {
			result.AssetsIngested++
		}
	}

	for _, link := range refs.Links {
		if ctx.Err() != nil {
			return
		}
		item := frontier.Item{URL: link, Depth: resp.Depth + 1}
		if err := i.frontier.Enqueue(ctx, item); err != nil {
			logger.Warn("Link enqueue dropped", zap.String("link", link), zap.Error(err))
			continue
		}
		result.LinksEnqueued++
	}
	if len(refs.Links) > 0 || len(refs.Assets) > 0 {
		logger.Debug("Page expanded",
			zap.Int("links", len(refs.Links)),
			zap.Int("assets", len(refs.Assets)),
		)
	}
}

// ingestAsset fetches one embedded binary and ingests it under the page's
// lineage. The visited set suppresses re-fetching an asset embedded by
// multiple pages; the dedup checks would catch it anyway, this just saves
// the network round trip.
func (i *Ingestor) ingestAsset(ctx context.Context, jb job.Job, assetURL string, depth int, parentID string, logger *zap.Logger) bool {
	visited, err := i.frontier.IsVisited(ctx, assetURL)
	if err != nil || visited {
		return false
	}
	if err := i.frontier.MarkVisited(ctx, assetURL); err != nil {
		logger.Warn("Mark asset visited failed", zap.String("asset", assetURL), zap.Error(err))
	}

	resp, err := i.fetcher.Fetch(ctx, fetch.Request{JobID: jb.ID, URL: assetURL, Depth: depth})
	if err != nil {
		metrics.IngestFailure("asset_fetch")
		logger.Warn("Asset fetch failed", zap.String("asset", assetURL), zap.Error(err))
		return false
	}
	resp.Depth = depth

	res, err := i.Ingest(ctx, jb, resp, parentID)
	if err != nil {
		if !errors.Is(err, ErrSkipped) {
			logger.Warn("Asset ingest failed", zap.String("asset", assetURL), zap.Error(err))
		}
		return false
	}
	return !res.Deduped
}
