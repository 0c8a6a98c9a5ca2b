package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/commit"
	"github.com/mohammed-shakir/listing-search/internal/filters"
)

type InvalidationCfg struct {
	Enabled bool
	Driver  string
	Topic   string
	Brokers []string
	GroupID string
}

type SearchEventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

// FiltersCfg describes the marketplace's search filters.
type FiltersCfg struct {
	Categories      []string
	Types           []string
	TypesByCategory map[string][]string
	PriceMin        int
	PriceMax        int
	PriceStep       int
	DatesActive     bool
	KeywordActive   bool
}

type Config struct {
	Addr               string
	LogLevel           string
	LogConsole         bool
	LogSampleN         int
	ListingsAPIURL     string
	ListingsAPIToken   string
	UpstreamTimeout    time.Duration
	RedisAddr          string
	SortByDistance     bool
	PerPage            int
	Breakpoint         int
	Keyword            commit.KeywordConfig
	MapWait            time.Duration
	H3IndexRes         int
	IndexMaxCells      int
	CacheOpTimeout     time.Duration
	CacheTTL           time.Duration
	LRUSize            int
	LRUTTL             time.Duration
	Invalidation       InvalidationCfg
	InvalidationDedupe int
	SearchEvents       SearchEventsCfg
	Filters            FiltersCfg
}

func FromEnv() Config {
	res := getint("H3_INDEX_RES", 7)
	if res < 0 || res > 15 {
		res = 7
	}
	brokers := splitList(getenv("KAFKA_BROKERS", "localhost:9092"))

	return Config{
		Addr:             getenv("ADDR", ":8090"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogConsole:       getbool("LOG_CONSOLE", false),
		LogSampleN:       getint("LOG_SAMPLE_N", 0),
		ListingsAPIURL:   getenv("LISTINGS_API_URL", "http://localhost:3500/v1/api/listings/query"),
		ListingsAPIToken: os.Getenv("LISTINGS_API_TOKEN"),
		UpstreamTimeout:  getduration("UPSTREAM_TIMEOUT", 5*time.Second),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		SortByDistance:   getbool("SORT_SEARCH_BY_DISTANCE", false),
		PerPage:          getint("SEARCH_PER_PAGE", 24),
		Breakpoint:       getint("PANEL_BREAKPOINT", 768),
		Keyword: commit.KeywordConfig{
			Debounce:     getduration("KEYWORD_DEBOUNCE", commit.DefaultKeywordDebounce),
			ShortTimeout: getduration("KEYWORD_SHORT_TIMEOUT", commit.DefaultShortKeywordTimeout),
			MinLength:    getint("KEYWORD_MIN_LENGTH", 3),
		},
		MapWait:        getduration("MAP_SEARCH_DEBOUNCE", 300*time.Millisecond),
		H3IndexRes:     res,
		IndexMaxCells:  getint("INDEX_MAX_CELLS", 2000),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheTTL:       getduration("CACHE_TTL", 60*time.Second),
		LRUSize:        getint("LRU_SIZE", 1024),
		LRUTTL:         getduration("LRU_TTL", 5*time.Second),
		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Driver:  getenv("INVALIDATION_DRIVER", "none"),
			Topic:   getenv("INVALIDATION_TOPIC", "listing-changes"),
			Brokers: brokers,
			GroupID: getenv("KAFKA_GROUP_ID", "search-cache-invalidator"),
		},
		InvalidationDedupe: getint("INVALIDATION_DEDUPE_SIZE", 8192),
		SearchEvents: SearchEventsCfg{
			Enabled: getbool("SEARCH_EVENTS_ENABLED", false),
			Brokers: brokers,
			Topic:   getenv("SEARCH_EVENTS_TOPIC", "search-events"),
			Queue:   getint("SEARCH_EVENTS_QUEUE", 1024),
		},
		Filters: FiltersCfg{
			Categories:      splitList(getenv("FILTER_CATEGORIES", "Venues,Photo Booth,Catering")),
			Types:           splitList(getenv("FILTER_TYPES", "Frozen,Open-Air,Traditional,Platters")),
			TypesByCategory: parseListMap(getenv("TYPES_BY_CATEGORY", "")),
			PriceMin:        getint("PRICE_FILTER_MIN", 0),
			PriceMax:        getint("PRICE_FILTER_MAX", 1000),
			PriceStep:       getint("PRICE_FILTER_STEP", 5),
			DatesActive:     getbool("DATES_FILTER_ACTIVE", false),
			KeywordActive:   getbool("KEYWORD_FILTER_ACTIVE", true),
		},
	}
}

// BuildRegistry turns the filter settings into the fixed descriptor set
// shared by the gateway and the replay tool.
func (f FiltersCfg) BuildRegistry() (*filters.Registry, error) {
	var children *filters.ChildOptions
	if len(f.TypesByCategory) > 0 {
		children = &filters.ChildOptions{ParentParam: "pub_category", Allowed: f.TypesByCategory}
	}
	reg, err := filters.NewRegistry(
		filters.Descriptor{ID: "categoryFilter", Kind: filters.SingleSelect, ParamName: "pub_category", Options: options(f.Categories)},
		filters.Descriptor{ID: "typesFilter", Kind: filters.MultiSelect, ParamName: "pub_types", Options: options(f.Types), Children: children},
		filters.Descriptor{
			ID: "priceFilter", Kind: filters.PriceRange, ParamName: "price",
			Range: &filters.RangeConfig{Min: f.PriceMin, Max: f.PriceMax, Step: f.PriceStep},
		},
		filters.Descriptor{ID: "dateRangeFilter", Kind: filters.DateRange, ParamName: "dates", Active: f.DatesActive},
		filters.Descriptor{ID: "keywordFilter", Kind: filters.Keyword, ParamName: "keywords", Active: f.KeywordActive},
	)
	if err != nil {
		return nil, fmt.Errorf("filter registry: %w", err)
	}
	return reg, nil
}

func options(keys []string) []filters.Option {
	out := make([]filters.Option, 0, len(keys))
	for _, k := range keys {
		out = append(out, filters.Option{Key: k, Label: k})
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}

// parse "Photo Booth=Open-Air|Traditional,Catering=Platters" into map
func parseListMap(s string) map[string][]string {
	out := map[string][]string{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.TrimSpace(kv[0])
		if k == "" {
			continue
		}
		var vals []string
		for v := range strings.SplitSeq(kv[1], "|") {
			if v = strings.TrimSpace(v); v != "" {
				vals = append(vals, v)
			}
		}
		out[k] = vals
	}
	return out
}
