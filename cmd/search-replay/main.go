package main

import (
	"flag"
	"io"
	"os"
	"strings"

	"github.com/mohammed-shakir/listing-search/internal/core/config"
	"github.com/mohammed-shakir/listing-search/internal/logger"
	"github.com/mohammed-shakir/listing-search/internal/replay"
	"github.com/mohammed-shakir/listing-search/internal/routing"
	"github.com/mohammed-shakir/listing-search/internal/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	urlFlag := flag.String("url", routing.SearchPagePath, "starting page address, e.g. /s?pub_category=Venues")
	widthFlag := flag.Int("width", 1280, "viewport width in pixels")
	fileFlag := flag.String("file", "-", "JSON-lines script to replay (- reads stdin)")
	tabFlag := flag.String("tab", "", "initial mobile tab (map opens the map view)")
	flag.Parse()

	cfg := config.FromEnv()

	// navigations go to stdout, logs to stderr
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   true,
		Service:   "search-replay",
		Component: "main",
	}, os.Stderr)
	appLog := logger.NewSlog(&zl)

	reg, err := cfg.Filters.BuildRegistry()
	if err != nil {
		appLog.Error("invalid filter configuration", "err", err)
		return 1
	}

	var in io.Reader = os.Stdin
	if f := strings.TrimSpace(*fileFlag); f != "" && f != "-" {
		fh, err := os.Open(f)
		if err != nil {
			appLog.Error("open script", "file", f, "err", err)
			return 1
		}
		defer func() { _ = fh.Close() }()
		in = fh
	}

	sum, err := replay.Run(in, os.Stdout, replay.Options{
		URL:   *urlFlag,
		Width: *widthFlag,
		Session: session.Config{
			SortByDistance: cfg.SortByDistance,
			Breakpoint:     cfg.Breakpoint,
			Keyword:        cfg.Keyword,
			MapWait:        cfg.MapWait,
			Tab:            *tabFlag,
		},
		Registry: reg,
		Logger:   appLog,
	})
	if err != nil {
		appLog.Error("replay failed", "err", err)
		return 1
	}
	appLog.Debug("replay finished", "pushes", sum.Pushes, "pending_timers", sum.PendingTimers)
	return 0
}
