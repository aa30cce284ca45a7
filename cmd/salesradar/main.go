package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"salesradar/internal/ads"
	"salesradar/internal/analytics"
	"salesradar/internal/classify"
	"salesradar/internal/config"
	"salesradar/internal/crawler"
	"salesradar/internal/dispatch"
	"salesradar/internal/metrics"
	"salesradar/internal/model"
	"salesradar/internal/platform"
	"salesradar/internal/store"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	var (
		cfgPath = flag.String("config", "config.yml", "path to YAML config")
		once    = flag.Bool("once", false, "run a single poll cycle on every crawler then exit")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := newLogger(cfg.Log)
	log.WithField("version", Version).Info("salesradar starting")

	// Watermark cursors
	var marks *store.Watermarks
	if cfg.State.Path != "" {
		marks = store.NewWatermarksFile(cfg.State.Path)
		log.WithField("path", cfg.State.Path).Info("watermark state file enabled")
	} else {
		marks = store.NewWatermarks()
	}

	// Cross-cycle dedup (in-memory)
	var d *store.Dedup
	if cfg.Dedup.Enable {
		d = store.NewDedup(cfg.Dedup.MaxKeys, cfg.Dedup.TTL)
		log.WithFields(logrus.Fields{"max": cfg.Dedup.MaxKeys, "ttl": cfg.Dedup.TTL.String()}).Info("dedup enabled")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Build crawlers
	crawlers := make([]*crawler.Crawler, 0, len(cfg.Crawlers))
	for _, cc := range cfg.Crawlers {
		strat, err := platform.NewFromConfig(cc)
		if err != nil {
			log.Fatalf("build crawler %q: %v", cc.Type, err)
		}
		crawlers = append(crawlers, crawler.New(strat, marks, d, m, log))
		log.WithFields(logrus.Fields{
			"platform": string(strat.Platform()),
			"targets":  len(strat.Targets()),
		}).Info("configured crawler")
	}

	groq := classify.NewGroqClient(cfg.Classifier)

	dispatcher := dispatch.NewDispatcher()
	dispatcher.Register(model.PlatformReddit, dispatch.NewRedditTransport(cfg.Dispatch))
	dispatcher.Register(model.PlatformDiscord, dispatch.NewDiscordTransport(cfg.Dispatch))
	fb := dispatch.NewFacebookTransport(cfg.Dispatch)
	dispatcher.Register(model.PlatformFacebook, fb)
	dispatcher.Register(model.PlatformFacebookGroup, fb)

	recorder := analytics.NewRecorder()

	var builder *ads.Builder
	var tracker *ads.Tracker
	if cfg.Ads.Enable {
		client := ads.NewGraphClient(cfg.Ads)
		builder = ads.NewBuilder(client, cfg.Ads)
		log.WithField("account", cfg.Ads.AccountID).Info("ad provisioning enabled")
		if cfg.Tracker.Enable {
			if fetcher, ok := client.(ads.InsightsFetcher); ok {
				tracker = ads.NewTracker(fetcher, recorder, cfg.Tracker.Interval, log)
			}
		}
	}

	mgr := crawler.NewManager(crawlers, crawler.ManagerOptions{
		Classifier:     groq,
		Generator:      groq,
		Dispatcher:     dispatcher,
		Builder:        builder,
		Recorder:       recorder,
		Metrics:        m,
		QueueSize:      cfg.Pipeline.QueueSize,
		ScoreThreshold: cfg.Pipeline.HighValueThreshold,
	}, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		mgr.RunOnce(ctx)
		log.Info("single cycle complete")
		return
	}

	srv := metrics.NewServer(cfg.Server, reg, recorder)
	go func() {
		log.WithField("addr", cfg.Server.ListenAddress).Info("metrics server listening")
		if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("metrics server failed")
		}
	}()

	mgr.StartAll(ctx)
	if tracker != nil {
		tracker.Start(ctx)
	}

	retention := cfg.Pipeline.Retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				recorder.PruneOlderThan(time.Now().UTC().Add(-retention))
			}
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	mgr.StopAll()
	if tracker != nil {
		tracker.Stop()
	}
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.WithError(err).Warn("metrics server shutdown")
	}
	log.Info("bye")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	if cfg.Format != "text" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
