// Package gateway serves listing searches through a two-tier result cache.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	cacheiface "github.com/mohammed-shakir/listing-search/internal/cache"
	"github.com/mohammed-shakir/listing-search/internal/cache/cellindex"
	"github.com/mohammed-shakir/listing-search/internal/cache/keys"
	"github.com/mohammed-shakir/listing-search/internal/core/executor"
	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/core/observability"
	"github.com/mohammed-shakir/listing-search/internal/core/router"
	mylog "github.com/mohammed-shakir/listing-search/internal/logger"
	"github.com/mohammed-shakir/listing-search/internal/searchevents"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

// cache tiers reported in X-Search-Cache
const (
	TierLRU   = "lru"
	TierRedis = "redis"
	TierMiss  = "miss"
)

const HeaderCache = "X-Search-Cache"

const contentTypeJSON = "application/json"

type Publisher interface {
	Publish(ev searchevents.Event)
}

type Mapper interface {
	CellForPoint(p model.LatLng, res int) (string, error)
	CellsForBounds(b model.Bounds, res int) ([]string, error)
	EstimateCells(b model.Bounds, res int) (int, error)
}

type Config struct {
	// Namespace separates cached results of different upstream versions.
	Namespace       string
	TTL             time.Duration
	OpTimeout       time.Duration
	UpstreamTimeout time.Duration
	LRUSize         int
	LRUTTL          time.Duration
	// MaxIndexCells bounds how many cells one search is indexed under; wider
	// searches go to the global bucket.
	MaxIndexCells int
	EventRes      int
}

func (c Config) withDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = "listings"
	}
	if c.TTL <= 0 {
		c.TTL = time.Minute
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 250 * time.Millisecond
	}
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = 5 * time.Second
	}
	if c.LRUSize <= 0 {
		c.LRUSize = 1024
	}
	if c.LRUTTL <= 0 {
		c.LRUTTL = 5 * time.Second
	}
	if c.MaxIndexCells <= 0 {
		c.MaxIndexCells = 2000
	}
	if c.EventRes <= 0 {
		c.EventRes = 7
	}
	return c
}

type Deps struct {
	Logger    *slog.Logger
	Store     cacheiface.Interface
	Index     cellindex.CellIndex
	Mapper    Mapper
	Executor  executor.Interface
	Publisher Publisher
}

// entry is one cached search body. Every tier serves it as JSON; the
// upstream content type is not kept.
type entry struct {
	body []byte
}

type Engine struct {
	cfg    Config
	logger *slog.Logger
	store  cacheiface.Interface
	idx    cellindex.CellIndex
	mapr   Mapper
	exec   executor.Interface
	pub    Publisher
	l1     *expirable.LRU[string, entry]
	group  singleflight.Group
}

func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Store == nil || deps.Index == nil || deps.Mapper == nil || deps.Executor == nil {
		return nil, errors.New("gateway: store, index, mapper and executor are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:    cfg,
		logger: deps.Logger.With("component", "gateway"),
		store:  deps.Store,
		idx:    deps.Index,
		mapr:   deps.Mapper,
		exec:   deps.Executor,
		pub:    deps.Publisher,
		l1:     expirable.NewLRU[string, entry](cfg.LRUSize, nil, cfg.LRUTTL),
	}, nil
}

func (e *Engine) HandleSearch(ctx context.Context, w http.ResponseWriter, _ *http.Request, req router.SearchRequest) {
	start := time.Now()
	canonical := keys.Canonical(req.Query)
	key := keys.SearchKey(e.cfg.Namespace, canonical)

	ent, tier, err := e.lookup(ctx, key, req)
	if err != nil {
		e.logger.WarnContext(ctx, "listings upstream failed", "key", key, "err", err)
		writeUpstreamError(w, err)
		return
	}
	observability.IncSearchCache(tier)
	ctx = mylog.WithCacheTier(ctx, tier)

	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set(HeaderCache, tier)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ent.body)

	e.publish(req, tier)
	e.logger.DebugContext(ctx, "search served",
		"key", key, "map_search", req.MapSearch, "bytes", len(ent.body),
		"dur", time.Since(start).String())
}

// lookup walks the in-process LRU, then Redis, then the listings API. Misses
// for the same key share one upstream call.
func (e *Engine) lookup(ctx context.Context, key string, req router.SearchRequest) (entry, string, error) {
	if ent, ok := e.l1.Get(key); ok {
		return ent, TierLRU, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.OpTimeout)
	hits, err := e.store.MGet(opCtx, []string{key})
	cancel()
	if err != nil {
		e.logger.WarnContext(ctx, "cache mget error, continuing with fetch path", "err", err)
	} else if b, ok := hits[key]; ok && len(b) > 0 {
		ent := entry{body: b}
		e.l1.Add(key, ent)
		return ent, TierRedis, nil
	}

	v, err, shared := e.group.Do(key, func() (any, error) {
		return e.fill(context.WithoutCancel(ctx), key, req)
	})
	if shared {
		observability.IncSearchFetchShared()
	}
	if err != nil {
		return entry{}, "", err
	}
	ent, _ := v.(entry)
	return ent, TierMiss, nil
}

// fill fetches from upstream and writes the result to both tiers and the
// cell index. Cache write failures are logged; the response is still served.
func (e *Engine) fill(ctx context.Context, key string, req router.SearchRequest) (entry, error) {
	upCtx, cancel := context.WithTimeout(ctx, e.cfg.UpstreamTimeout)
	defer cancel()
	body, _, err := e.exec.Fetch(upCtx, req.Query)
	if err != nil {
		return entry{}, fmt.Errorf("listings fetch: %w", err)
	}
	ent := entry{body: body}
	e.l1.Add(key, ent)

	cells := e.indexCells(req)
	opCtx, cancel2 := context.WithTimeout(ctx, e.cfg.OpTimeout)
	defer cancel2()
	// a value is only written once its index entry exists
	if err := e.idx.Add(opCtx, key, cells, e.cfg.TTL); err != nil {
		e.logger.WarnContext(ctx, "cell index add failed; result not cached", "key", key, "err", err)
		return ent, nil
	}
	if err := e.store.Set(opCtx, key, body, e.cfg.TTL); err != nil {
		e.logger.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	}
	return ent, nil
}

// indexCells returns the cells covering the search bounds, or nil (the global
// bucket) for unbounded or very wide searches.
func (e *Engine) indexCells(req router.SearchRequest) []string {
	if req.Bounds == nil {
		return nil
	}
	res := e.idx.Res()
	n, err := e.mapr.EstimateCells(*req.Bounds, res)
	if err != nil || n > e.cfg.MaxIndexCells {
		return nil
	}
	cells, err := e.mapr.CellsForBounds(*req.Bounds, res)
	if err != nil || len(cells) > e.cfg.MaxIndexCells {
		return nil
	}
	return cells
}

func (e *Engine) publish(req router.SearchRequest, tier string) {
	if e.pub == nil {
		return
	}
	ev := searchevents.Event{
		Query:     urlquery.Stringify(req.Params),
		MapSearch: req.MapSearch,
		Filters:   req.Selected,
		Cache:     tier,
	}
	var at *model.LatLng
	switch {
	case req.Bounds != nil:
		c := req.Bounds.Center()
		at = &c
	case req.Origin != nil:
		at = req.Origin
	}
	if at != nil {
		if cell, err := e.mapr.CellForPoint(*at, e.cfg.EventRes); err == nil {
			ev.Cell, ev.Res = cell, e.cfg.EventRes
		}
	}
	e.pub.Publish(ev)
}

type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"upstream_status,omitempty"`
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	body := errorBody{Error: true, Message: "listings search failed"}
	var se *executor.StatusError
	if errors.As(err, &se) {
		body.Status = se.Status
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set(HeaderCache, TierMiss)
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(body)
}
