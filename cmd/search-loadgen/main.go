package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/gateway"
	"github.com/mohammed-shakir/listing-search/internal/logger"
)

type Config struct {
	TargetURL      string
	Concurrency    int
	Duration       time.Duration
	ZipfS          float64
	ZipfV          float64
	Searches       int
	Categories     []string
	OutputPrefix   string
	RequestTimeout time.Duration
	LocationFile   string
}

func loadConfig() Config {
	var cfg Config
	var cats string
	flag.StringVar(&cfg.TargetURL, "target", "http://localhost:8090/search", "search gateway /search URL")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.Searches, "searches", 128, "distinct searches in pool")
	flag.StringVar(&cats, "categories", "Venues,Photo Booth", "comma-separated pub_category values to mix in")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/search", "output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "per-request timeout")
	flag.StringVar(&cfg.LocationFile, "locations", "", "optional id,lat,lng CSV of listing locations")
	flag.Parse()
	for c := range strings.SplitSeq(cats, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cfg.Categories = append(cfg.Categories, c)
		}
	}
	return cfg
}

type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	Tier      string
	ErrorMsg  string
	Index     int
}

type summary struct {
	StartTime     time.Time        `json:"start"`
	EndTime       time.Time        `json:"end"`
	DurationSec   float64          `json:"duration_sec"`
	TotalRequests int64            `json:"total"`
	SuccessCount  int64            `json:"success"`
	ErrorCount    int64            `json:"errors"`
	ThroughputRPS float64          `json:"throughput_rps"`
	P50Ms         float64          `json:"p50_ms"`
	P95Ms         float64          `json:"p95_ms"`
	P99Ms         float64          `json:"p99_ms"`
	Tiers         map[string]int64 `json:"tiers"`
	HitRatio      float64          `json:"hit_ratio"`
	Concurrency   int              `json:"concurrency"`
	Searches      int              `json:"searches"`
	TargetURL     string           `json:"target"`
}

type aggregate struct {
	total   int64
	success int64
	errors  int64
	tiers   map[string]int64
	latMs   []float64
}

func (a *aggregate) add(s sample) {
	a.total++
	if s.ErrorMsg != "" {
		a.errors++
		return
	}
	a.success++
	a.tiers[s.Tier]++
	a.latMs = append(a.latMs, float64(s.Latency.Microseconds())/1000.0)
}

func (a *aggregate) hitRatio() float64 {
	if a.success == 0 {
		return 0
	}
	hits := a.tiers[gateway.TierLRU] + a.tiers[gateway.TierRedis]
	return float64(hits) / float64(a.success)
}

func main() {
	cfg := loadConfig()

	zl := logger.Build(logger.Config{Level: "info", Console: true, Service: "search-loadgen"}, os.Stderr)
	log := logger.NewSlog(&zl)

	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		log.Error("mkdir results", "err", err)
		os.Exit(1)
	}
	prefix := fmt.Sprintf("%s_%s", cfg.OutputPrefix, time.Now().UTC().Format("20060102_150405Z"))

	seed := time.Now().UnixNano()
	r := rand.New(rand.NewSource(seed))

	var pool []search
	if cfg.LocationFile != "" {
		locs, err := loadLocationsCSV(cfg.LocationFile)
		if err != nil {
			log.Warn("locations unusable; using synthetic searches", "file", cfg.LocationFile, "err", err)
		} else {
			pool = searchesFromLocations(locs, cfg.Searches)
		}
	}
	if len(pool) == 0 {
		pool = makeSearches(cfg.Searches, cfg.Categories, r)
	}
	if len(pool) == 0 {
		log.Error("no searches generated")
		os.Exit(1)
	}

	target, err := url.Parse(cfg.TargetURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		log.Error("bad target URL", "target", cfg.TargetURL, "err", err)
		os.Exit(1)
	}

	client := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        1024,
			MaxIdleConnsPerHost: 256,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		log.Error("open csv", "err", err)
		os.Exit(1)
	}
	defer func() { _ = csvFile.Close() }()
	w := csv.NewWriter(csvFile)

	samples := make(chan sample, 4096)
	results := make(chan *aggregate, 1)
	go func() {
		_ = w.Write([]string{"timestamp", "latency_ms", "status", "tier", "error", "search_idx"})
		agg := &aggregate{tiers: map[string]int64{}, latMs: make([]float64, 0, 1<<16)}
		for s := range samples {
			agg.add(s)
			_ = w.Write([]string{
				s.Timestamp.UTC().Format(time.RFC3339Nano),
				strconv.FormatFloat(float64(s.Latency.Microseconds())/1000.0, 'f', 3, 64),
				strconv.Itoa(s.Status),
				s.Tier,
				s.ErrorMsg,
				strconv.Itoa(s.Index),
			})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			log.Warn("csv flush", "err", err)
		}
		results <- agg
	}()

	start := time.Now()
	log.Info("loadgen start",
		"target", cfg.TargetURL,
		"duration", cfg.Duration,
		"concurrency", cfg.Concurrency,
		"searches", len(pool))

	imax := uint64(len(pool)) - 1
	var wg sync.WaitGroup
	for id := range cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			zipf := rand.NewZipf(rand.New(rand.NewSource(seed+int64(id)+1)), cfg.ZipfS, cfg.ZipfV, imax)
			for ctx.Err() == nil {
				v := zipf.Uint64()
				if v > uint64(math.MaxInt) || int(v) >= len(pool) {
					continue
				}
				s := fire(ctx, client, *target, pool[int(v)])
				s.Index = int(v)
				select {
				case samples <- s:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samples)
	}()

	agg := <-results
	end := time.Now()
	elapsed := end.Sub(start).Seconds()

	sort.Float64s(agg.latMs)
	sum := summary{
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Tiers:         agg.tiers,
		HitRatio:      agg.hitRatio(),
		Concurrency:   cfg.Concurrency,
		Searches:      len(pool),
		TargetURL:     cfg.TargetURL,
	}

	if jf, err := os.Create(filepath.Clean(jsonPath)); err == nil {
		enc := json.NewEncoder(jf)
		enc.SetIndent("", "  ")
		_ = enc.Encode(sum)
		_ = jf.Close()
	}

	log.Info("loadgen done",
		"total", sum.TotalRequests,
		"errors", sum.ErrorCount,
		"rps", sum.ThroughputRPS,
		"p50_ms", sum.P50Ms,
		"p95_ms", sum.P95Ms,
		"p99_ms", sum.P99Ms,
		"hit_ratio", sum.HitRatio,
		"json", jsonPath,
		"csv", csvPath)
}

func fire(ctx context.Context, client *http.Client, target url.URL, s search) sample {
	target.RawQuery = s.Query().Encode()
	out := sample{Timestamp: time.Now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		out.ErrorMsg = err.Error()
		return out
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	out.Latency = time.Since(out.Timestamp)
	if err != nil {
		out.ErrorMsg = err.Error()
		return out
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	out.Status = resp.StatusCode
	out.Tier = resp.Header.Get(gateway.HeaderCache)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		out.ErrorMsg = "status=" + strconv.Itoa(resp.StatusCode)
	}
	return out
}
