// SPDX-License-Identifier: MIT

// Command daemon runs the podcast generation orchestrator: feed polling,
// intake and dedup, the review cascade, collection building, cadence-gated
// episode generation and the admin HTTP surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/elroyic/Podcast-Generator-sub001/internal/api"
	"github.com/elroyic/Podcast-Generator-sub001/internal/bus"
	"github.com/elroyic/Podcast-Generator-sub001/internal/cadence"
	"github.com/elroyic/Podcast-Generator-sub001/internal/collection"
	"github.com/elroyic/Podcast-Generator-sub001/internal/config"
	"github.com/elroyic/Podcast-Generator-sub001/internal/episode"
	"github.com/elroyic/Podcast-Generator-sub001/internal/fingerprint"
	"github.com/elroyic/Podcast-Generator-sub001/internal/health"
	"github.com/elroyic/Podcast-Generator-sub001/internal/intake"
	"github.com/elroyic/Podcast-Generator-sub001/internal/lease"
	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/poller"
	"github.com/elroyic/Podcast-Generator-sub001/internal/queue"
	"github.com/elroyic/Podcast-Generator-sub001/internal/review"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Service: "podgen"})
	logger := log.WithComponent("daemon")

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
	logger.Info().Msg("daemon stopped")
}

func run(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("daemon")

	// Backends. Redis serves fingerprints and leases when configured; the
	// in-memory variants carry single-node deployments and tests.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		// The lease manager owns the client and closes it on shutdown.
	}

	var fps fingerprint.Store
	switch {
	case !cfg.DedupEnabled:
		fps = fingerprint.Disabled{}
	case rdb != nil:
		s, err := fingerprint.NewRedisStore(rdb, cfg.FingerprintTTL)
		if err != nil {
			return fmt.Errorf("fingerprint store: %w", err)
		}
		fps = s
	default:
		fps = fingerprint.NewMemoryStore(cfg.FingerprintTTL, 10*time.Minute)
	}
	defer func() { _ = fps.Close() }()

	var leases lease.Manager
	if rdb != nil {
		m, err := lease.NewRedisManager(rdb)
		if err != nil {
			return fmt.Errorf("lease manager: %w", err)
		}
		leases = m
	} else {
		leases = lease.NewMemoryManager()
	}
	defer func() { _ = leases.Close() }()

	var st store.Store
	if cfg.SQLitePath != "" {
		s, err := store.OpenSQLiteStore(cfg.SQLitePath, store.DefaultSQLiteConfig())
		if err != nil {
			return fmt.Errorf("sqlite store: %w", err)
		}
		st = s
	} else {
		st = store.NewMemoryStore()
	}
	defer func() { _ = st.Close() }()

	var snaps store.SnapshotStore
	if cfg.BadgerPath != "" {
		s, err := store.OpenBadgerSnapshotStore(cfg.BadgerPath)
		if err != nil {
			return fmt.Errorf("snapshot store: %w", err)
		}
		snaps = s
	} else {
		snaps = store.NewMemorySnapshotStore()
	}
	defer func() { _ = snaps.Close() }()

	logger.Info().
		Bool("redis", rdb != nil).
		Bool("sqlite", cfg.SQLitePath != "").
		Bool("badger", cfg.BadgerPath != "").
		Bool("dedup", cfg.DedupEnabled).
		Msg("backends selected")

	// Capabilities and the review cascade.
	caps, light, heavy, probers := buildCapabilities(cfg)
	cascade := review.NewCascade(light, heavy, review.Thresholds{
		Light: cfg.LightConfThreshold,
		Heavy: cfg.HeavyConfThreshold,
	})

	events := bus.NewMemoryBus()
	builder := collection.NewBuilder(st)
	processor := review.NewProcessor(st, cascade, builder)
	reviews := queue.New(cfg.QueueCapacity, cfg.ReviewConcurrency, cfg.PauseBackoff, leases, processor.Process)
	intakeSvc := intake.New(fps, st, reviews)
	feeds := poller.New(st, poller.NewHTTPFetcher(cfg.CapabilityTimeout), events, cfg.PollInterval, cfg.PollRate)
	cad := cadence.NewController(st, leases, events, cfg.CadenceTick)
	orch := episode.NewOrchestrator(st, snaps, leases, caps, cfg.LeaseTTL, cfg.TargetDurationMinutes)
	orch.OnDone(cad.Done)
	genWorker := episode.NewWorker(orch)
	reaper := episode.NewReaper(st, cfg.ReaperInterval, cfg.LeaseTTL, cfg.ReaperGrace)
	sweeper := collection.NewSweeper(st, cfg.CollectionMaxAge, time.Hour)

	// Seed file: feeds, groups and initial reviewer settings, hot-reloaded.
	if cfg.SeedFile != "" {
		sf, err := config.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := applySeed(ctx, st, sf, cfg.MinArticlesPerCollection); err != nil {
			return err
		}
		applyReviewerSettings(sf.Reviewer, cascade, reviews)
		if err := config.WatchSeedFile(ctx, cfg.SeedFile, func(sf *config.SeedFile) {
			if err := applySeed(ctx, st, sf, cfg.MinArticlesPerCollection); err != nil {
				logger.Warn().Err(err).Msg("seed reload apply failed")
				return
			}
			applyReviewerSettings(sf.Reviewer, cascade, reviews)
		}); err != nil {
			return fmt.Errorf("seed watch: %w", err)
		}
	}

	// Gauges read live component state on scrape.
	metrics.RegisterQueueDepth(reviews.Depth)
	metrics.RegisterActiveLeases(func() float64 {
		n, err := leases.ActiveCount(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})
	metrics.RegisterCollectionsReady(func() float64 {
		n, err := st.CountCollectionsByStatus(context.Background(), model.CollectionReady)
		if err != nil {
			return 0
		}
		return float64(n)
	})

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewPingChecker("store", func(ctx context.Context) error {
		_, err := st.ListFeeds(ctx)
		return err
	}))
	if rdb != nil {
		hm.RegisterChecker(health.NewPingChecker("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	for _, p := range probers {
		hm.RegisterChecker(health.NewCapabilityChecker(p))
	}

	srv := api.NewServer(st, leases, cascade, reviews, cad, events, hm, cfg.LeaseTTL)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	feedSub, err := events.Subscribe(ctx, model.EventFeedItem)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", model.EventFeedItem, err)
	}
	genSub, err := events.Subscribe(ctx, model.EventGenerateEpisode)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", model.EventGenerateEpisode, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { feeds.Run(ctx); return nil })
	g.Go(func() error { reviews.Run(ctx); return nil })
	g.Go(func() error { cad.Run(ctx); return nil })
	g.Go(func() error { reaper.Run(ctx); return nil })
	g.Go(func() error { sweeper.Run(ctx); return nil })
	g.Go(func() error { intakeSvc.Run(ctx, feedSub); return nil })
	g.Go(func() error { genWorker.Run(ctx, genSub); return nil })
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("admin api listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// applySeed upserts the declared feeds and groups. Existing groups keep
// their LastEpisodeAt so a reload does not reset cadence gates.
func applySeed(ctx context.Context, st store.Store, sf *config.SeedFile, defaultMinArticles int) error {
	feeds, groups, err := sf.Materialize(defaultMinArticles)
	if err != nil {
		return err
	}
	for _, f := range feeds {
		if existing, err := st.GetFeed(ctx, f.ID); err == nil {
			f.LastPolledAt = existing.LastPolledAt
		}
		if err := st.PutFeed(ctx, f); err != nil {
			return fmt.Errorf("seed feed %s: %w", f.ID, err)
		}
	}
	for _, grp := range groups {
		if existing, err := st.GetGroup(ctx, grp.ID); err == nil {
			grp.LastEpisodeAt = existing.LastEpisodeAt
		}
		if err := st.PutGroup(ctx, grp); err != nil {
			return fmt.Errorf("seed group %s: %w", grp.ID, err)
		}
	}
	logger := log.WithComponent("daemon")
	logger.Info().
		Int("feeds", len(feeds)).
		Int("groups", len(groups)).
		Msg("seed applied")
	return nil
}

func applyReviewerSettings(rs *config.ReviewerSettings, cascade *review.Cascade, reviews *queue.Worker) {
	if rs == nil {
		return
	}
	th := cascade.Thresholds()
	if rs.LightThreshold != nil {
		th.Light = *rs.LightThreshold
	}
	if rs.HeavyThreshold != nil {
		th.Heavy = *rs.HeavyThreshold
	}
	cascade.SetThresholds(th)
	reviews.SetBackoff(rs.PauseBackoff(reviews.Backoff()))
}
