package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kbforge/harvester/internal/convert"
	"github.com/kbforge/harvester/internal/crawl"
	"github.com/kbforge/harvester/internal/job"
	"github.com/kbforge/harvester/internal/pipeline"
)

var (
	crawlDepth    int
	crawlFollow   bool
	crawlNoFollow bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <seed-url>",
	Short: "Run one bounded crawl from a seed URL",
	Long: `Crawl enqueues the seed, traverses outbound links breadth-first to the
depth bound, and ingests every captured artifact exactly once. The job ID is
printed on stdout when the run completes.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		_, err := withApp(cmd)
		return err
	},
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().IntVar(&crawlDepth, "depth", 0, "maximum link depth from the seed (default from config)")
	crawlCmd.Flags().BoolVar(&crawlFollow, "follow", true, "follow outbound links beyond the seed")
	crawlCmd.Flags().BoolVar(&crawlNoFollow, "no-follow", false, "capture only the seed page and its embedded assets")
	crawlCmd.MarkFlagsMutuallyExclusive("follow", "no-follow")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a := appFromContext(cmd.Context())
	defer a.Close()

	depth := crawlDepth
	if !cmd.Flags().Changed("depth") {
		depth = viper.GetInt("crawler.max_depth")
	}
	follow := crawlFollow
	if !cmd.Flags().Changed("follow") {
		follow = viper.GetBool("crawler.follow")
	}
	if crawlNoFollow {
		follow = false
	}

	jb, err := job.New(args[0], depth, follow, time.Now())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fr, err := a.NewFrontier(ctx, jb)
	if err != nil {
		return fmt.Errorf("init frontier: %w", err)
	}
	defer func() {
		_ = fr.Close()
	}()

	var (
		queue       *convert.Queue
		conversions pipeline.ConversionSubmitter
	)
	if a.Converter != nil {
		queue = convert.NewQueue(convert.Config{
			Workers:     viper.GetInt("convert.workers"),
			QueueSize:   viper.GetInt("convert.queue_size"),
			MaxAttempts: viper.GetInt("convert.max_attempts"),
		}, a.Converter, a.Blobs, a.Repo, a.Logger)
		queue.Start(ctx)
		conversions = queue
	}

	if a.API != nil {
		apiErrs := a.API.Start()
		go func() {
			for err := range apiErrs {
				a.Logger.Error("Status API failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.API.Shutdown(shutdownCtx); err != nil {
				a.Logger.Warn("Status API shutdown failed", zap.Error(err))
			}
		}()
	}

	ingestor := pipeline.NewIngestor(a.Blobs, a.Repo, fr, a.Fetcher, conversions, a.Publisher, a.Logger)
	engine := crawl.New(crawl.Config{
		Concurrency: viper.GetInt("crawler.concurrency"),
		Transforms:  a.Transforms(),
	}, fr, a.Fetcher, ingestor, a.Logger)

	summary, runErr := engine.Run(ctx, jb)

	if queue != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("convert.drain_timeout"))
		defer cancel()
		if err := queue.Drain(drainCtx); err != nil {
			a.Logger.Warn("Conversion drain incomplete", zap.Error(err))
		}
	}

	a.Logger.Info("Crawl finished",
		zap.String("job_id", summary.JobID),
		zap.Int64("pages_fetched", summary.PagesFetched),
		zap.Int64("fetch_errors", summary.FetchErrors),
		zap.Int64("dropped", summary.Dropped),
		zap.Int64("skipped", summary.Skipped),
		zap.Int64("ingested", summary.Ingested),
		zap.Int64("deduped", summary.Deduped),
		zap.Int64("links_enqueued", summary.LinksEnqueued),
		zap.Int64("assets_ingested", summary.AssetsIngested),
		zap.Duration("elapsed", summary.Elapsed),
	)
	cmd.Println(summary.JobID)
	return runErr
}
