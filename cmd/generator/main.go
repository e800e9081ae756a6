package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"costa_listings/internal/adapters/anthropic"
	"costa_listings/internal/adapters/feeds"
	"costa_listings/internal/adapters/observability"
	redisad "costa_listings/internal/adapters/redis"
	"costa_listings/internal/app"
	"costa_listings/internal/domain"
	"costa_listings/internal/shared"
	"costa_listings/internal/storage/files"
	mysqlrepo "costa_listings/internal/storage/mysql"
)

func main() {
	limit := flag.Int("limit", 50, "maximum entities per kind, counted after the area filter")
	area := flag.String("area", "", "only entities whose town contains this text (case-insensitive)")
	regenerate := flag.Bool("regenerate", false, "generate again even when content already exists")
	flag.Parse()

	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	// the credential is checked before any network activity
	if cfg.AnthropicKey == "" {
		log.Fatal().Msg("ANTHROPIC_API_KEY is not set (environment, .env.local or .env)")
	}

	campaign, err := shared.LoadCampaign(cfg.CampaignFile)
	if err != nil {
		log.Fatal().Err(err).Msg("campaign load failed")
	}
	kinds := make([]domain.EntityKind, 0, len(cfg.Kinds))
	for _, k := range cfg.Kinds {
		kind, err := domain.ParseKind(k)
		if err != nil {
			log.Fatal().Err(err).Msg("GENERATE_KINDS is invalid")
		}
		kinds = append(kinds, kind)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.Serve(cfg.MetricsAddr)

	llm, err := anthropic.New(cfg.AnthropicURL, cfg.AnthropicKey, cfg.Model, anthropic.Options{
		Timeout:    cfg.LLMTimeout,
		MaxRetries: cfg.LLMRetries,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize generation client")
	}

	tr := feeds.NewTransport(cfg.FeedTimeout, 1)
	sources := []domain.FeedSource{
		feeds.NewJSONSource("json", firstSet(cfg.FeedJSONURL, campaign.Feeds.JSON), tr),
		feeds.NewXMLSource("xml", firstSet(cfg.FeedXMLURL, campaign.Feeds.XML), tr),
		feeds.NewSiteAPISource(firstSet(cfg.SiteAPIURL, campaign.Feeds.SiteAPI), tr),
	}

	cls := app.NewClassifier(campaign)
	norm := app.NewNormalizer(nil)
	norm.DefaultProvince, norm.DefaultCurrency = campaign.Province, campaign.Currency
	store := files.New(cfg.ContentDir)
	batch := app.NewBatchService(
		app.NewSynthesizer(llm, cls, campaign),
		store,
		app.RatePolicy{Calls: cfg.RateCalls, Per: cfg.RateWindow},
		app.Pricing{InputPerMTok: cfg.PriceInput, OutputPerMTok: cfg.PriceOutput},
	)

	p := &app.Pipeline{
		Fetch: func(ctx context.Context) ([]domain.RawRecord, error) {
			res, err := feeds.Acquire(ctx, sources...)
			if err != nil {
				return nil, err
			}
			log.Info().Str("source", res.Source).Int("records", len(res.Records)).
				Int("malformed", res.Stats.Malformed).Int("failed_sources", len(res.Attempts)).Msg("feed acquired")
			return res.Records, nil
		},
		Normalizer: norm,
		Classifier: cls,
		Batch:      batch,
	}

	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("catalog database ok")
		p.Ingest = app.NewIngestionService(mysqlrepo.New(db), optionalCache(ctx, cfg), cfg.Workers)
	}

	log.Info().Int("limit", *limit).Str("area", *area).Bool("regenerate", *regenerate).
		Strs("kinds", cfg.Kinds).Str("content_dir", cfg.ContentDir).Msg("generator starting")

	start := time.Now()
	rep, err := p.Run(ctx, app.PipelineOptions{
		Kinds: kinds,
		Select: app.SelectOptions{
			Area:         *area,
			Limit:        *limit,
			Regenerate:   *regenerate,
			PriorityOnly: campaign.PriorityOnly,
		},
	})
	if werr := app.WriteSummary(os.Stdout, rep); werr != nil {
		log.Error().Err(werr).Msg("summary write failed")
	}

	switch {
	case errors.Is(err, feeds.ErrAllSourcesFailed):
		log.Fatal().Err(err).Msg("no listing source could be read")
	case errors.Is(err, context.Canceled):
		log.Fatal().Msg("interrupted; content written so far is complete")
	case err != nil:
		log.Fatal().Err(err).Msg("generation run failed")
	}
	log.Info().Dur("duration", time.Since(start)).Msg("generation completed")
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// optionalCache returns the redis cache when it answers, so catalog writes can
// evict API entries; the generator runs fine without it.
func optionalCache(ctx context.Context, cfg shared.Config) domain.Cache {
	c := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; cache eviction disabled")
		_ = c.Close()
		return nil
	}
	return c
}
