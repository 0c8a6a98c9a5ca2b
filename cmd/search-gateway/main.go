package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/cache/cellindex"
	"github.com/mohammed-shakir/listing-search/internal/cache/redisstore"
	"github.com/mohammed-shakir/listing-search/internal/core/config"
	"github.com/mohammed-shakir/listing-search/internal/core/executor"
	"github.com/mohammed-shakir/listing-search/internal/core/health"
	"github.com/mohammed-shakir/listing-search/internal/core/httpclient"
	"github.com/mohammed-shakir/listing-search/internal/core/router"
	"github.com/mohammed-shakir/listing-search/internal/core/server"
	"github.com/mohammed-shakir/listing-search/internal/gateway"
	"github.com/mohammed-shakir/listing-search/internal/listings"
	"github.com/mohammed-shakir/listing-search/internal/logger"
	h3mapper "github.com/mohammed-shakir/listing-search/internal/mapper/h3"
	"github.com/mohammed-shakir/listing-search/internal/metrics"
	"github.com/mohammed-shakir/listing-search/internal/searchevents"
	"github.com/mohammed-shakir/listing-search/pkg/invalidation/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "search-gateway",
		Component: "main",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting search gateway",
		"addr", cfg.Addr,
		"version", Version,
		"listings_api", cfg.ListingsAPIURL,
		"index_res", cfg.H3IndexRes)

	reg, err := cfg.Filters.BuildRegistry()
	if err != nil {
		appLog.Error("invalid filter configuration", "err", err)
		return 1
	}

	exec, err := executor.New(appLog,
		httpclient.NewOutbound(httpclient.WithTimeout(cfg.UpstreamTimeout), httpclient.WithUserAgent("listing-search/"+Version)),
		cfg.ListingsAPIURL,
		executor.WithBearerToken(cfg.ListingsAPIToken))
	if err != nil {
		appLog.Error("failed to initialize executor", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	rc, err := redisstore.New(pingCtx, cfg.RedisAddr)
	cancel()
	if err != nil {
		appLog.Error("redis client", "err", err)
		return 1
	}
	defer func() { _ = rc.Close() }()

	idx := cellindex.NewRedisIndex(rc, cfg.H3IndexRes)
	mapr := h3mapper.New()

	build := metrics.BuildInfo{
		Version:   Version,
		Revision:  os.Getenv("BUILD_REVISION"),
		Branch:    os.Getenv("BUILD_BRANCH"),
		BuildDate: os.Getenv("BUILD_DATE"),
	}
	p := metrics.Init(metrics.Config{Addr: os.Getenv("METRICS_ADDR"), Build: build})

	var pub gateway.Publisher
	if cfg.SearchEvents.Enabled {
		sp, err := searchevents.NewPublisher(cfg.SearchEvents.Brokers, cfg.SearchEvents.Topic, cfg.SearchEvents.Queue, appLog)
		if err != nil {
			appLog.Error("search events publisher", "err", err)
			return 1
		}
		defer func() {
			if err := sp.Close(); err != nil {
				appLog.Warn("search events close", "err", err)
			}
		}()
		pub = sp
	}

	eng, err := gateway.New(gateway.Config{
		TTL:             cfg.CacheTTL,
		OpTimeout:       cfg.CacheOpTimeout,
		UpstreamTimeout: cfg.UpstreamTimeout,
		LRUSize:         cfg.LRUSize,
		LRUTTL:          cfg.LRUTTL,
		MaxIndexCells:   cfg.IndexMaxCells,
		EventRes:        cfg.H3IndexRes,
	}, gateway.Deps{
		Logger:    appLog,
		Store:     rc,
		Index:     idx,
		Mapper:    mapr,
		Executor:  exec,
		Publisher: pub,
	})
	if err != nil {
		appLog.Error("gateway setup failed", "err", err)
		return 1
	}

	runner := kafka.New(kafka.InvalidationConfig{
		Enabled:       cfg.Invalidation.Enabled,
		Driver:        kafka.Driver(cfg.Invalidation.Driver),
		Brokers:       cfg.Invalidation.Brokers,
		Topic:         cfg.Invalidation.Topic,
		GroupID:       cfg.Invalidation.GroupID,
		InitialOldest: true,
		DedupeSize:    cfg.InvalidationDedupe,
		IndexTTL:      cfg.CacheTTL,
	}, rc, idx, mapr, kafka.Options{Logger: appLog, Register: p.Registerer()})
	if err := runner.Start(ctx); err != nil {
		appLog.Error("invalidation runner", "err", err)
		return 1
	}
	defer runner.Stop()

	p.Serve(ctx, appLog)

	handler := server.NewHandler(appLog, server.Routes{
		Search: router.Options{
			Registry: reg,
			Query:    listings.QueryConfig{PerPage: cfg.PerPage, SortByDistance: cfg.SortByDistance},
		},
		Handler: eng,
		Ready:   health.Readiness(runner, health.Check{Name: "redis", Fn: rc.Ping}),
		Metrics: p.Handler(),
	})

	if err := server.Run(ctx, cfg.Addr, appLog, handler); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
