package commit

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mohammed-shakir/listing-search/internal/core/observability"
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/timer"
)

const (
	DefaultKeywordDebounce     = 600 * time.Millisecond
	DefaultShortKeywordTimeout = 2000 * time.Millisecond
	DefaultKeywordMinLength    = 3
)

type KeywordConfig struct {
	Debounce     time.Duration
	ShortTimeout time.Duration
	MinLength    int
}

func (c KeywordConfig) withDefaults() KeywordConfig {
	if c.Debounce <= 0 {
		c.Debounce = DefaultKeywordDebounce
	}
	if c.ShortTimeout <= 0 {
		c.ShortTimeout = DefaultShortKeywordTimeout
	}
	if c.MinLength <= 0 {
		c.MinLength = DefaultKeywordMinLength
	}
	return c
}

// KeywordFilter commits free-text search. Queries of at least MinLength
// characters (or an empty query) go through a trailing debounce; shorter ones
// wait for the longer short-query timeout. Each submit cancels whatever the
// previous one left pending, so the last submission wins.
type KeywordFilter struct {
	desc   filters.Descriptor
	pipe   *Pipeline
	cfg    KeywordConfig
	logger *slog.Logger

	debounce *timer.Debouncer[string]
	short    *timer.Slot

	mu      sync.Mutex
	mounted bool
	live    func() string
}

func NewKeywordFilter(clock timer.Clock, pipe *Pipeline, desc filters.Descriptor, cfg KeywordConfig, logger *slog.Logger) *KeywordFilter {
	if logger == nil {
		logger = slog.Default()
	}
	k := &KeywordFilter{
		desc:   desc,
		pipe:   pipe,
		cfg:    cfg.withDefaults(),
		logger: logger,
		short:  timer.NewSlot(clock),
	}
	k.debounce = timer.NewDebouncer(clock, k.cfg.Debounce, k.commit)
	return k
}

func (k *KeywordFilter) Mount() {
	k.mu.Lock()
	k.mounted = true
	k.mu.Unlock()
}

// Unmount cancels pending timers; nothing commits after it returns.
func (k *KeywordFilter) Unmount() {
	k.mu.Lock()
	k.mounted = false
	k.mu.Unlock()
	k.debounce.Cancel()
	k.short.Cancel()
}

// SetLiveValue installs a source for the latest typed text. When set, the
// short-query timeout commits its value instead of the submitted one.
func (k *KeywordFilter) SetLiveValue(f func() string) {
	k.mu.Lock()
	k.live = f
	k.mu.Unlock()
}

func (k *KeywordFilter) Submit(text string) {
	if !k.isMounted() {
		k.logger.Debug("keyword submit on unmounted filter ignored", "param", k.desc.ParamName)
		return
	}
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 || n >= k.cfg.MinLength {
		k.short.Cancel()
		k.debounce.Call(text)
		observability.IncKeywordSchedule("debounce")
		return
	}
	k.debounce.Cancel()
	k.short.Arm(k.cfg.ShortTimeout, func() {
		v := text
		k.mu.Lock()
		live := k.live
		k.mu.Unlock()
		if live != nil {
			v = live()
		}
		k.commit(v)
	})
	observability.IncKeywordSchedule("short_timeout")
}

// Cancel drops any pending commit without touching the committed keyword.
func (k *KeywordFilter) Cancel() bool {
	d := k.debounce.Cancel()
	s := k.short.Cancel()
	return d || s
}

// Clear drops any pending commit and removes the keyword right away.
func (k *KeywordFilter) Clear() {
	k.Cancel()
	k.commit("")
}

func (k *KeywordFilter) Pending() bool {
	return k.debounce.Pending() || k.short.Pending()
}

func (k *KeywordFilter) commit(text string) {
	if !k.isMounted() {
		return
	}
	k.pipe.Submit(k.desc, filters.Text(text))
}

func (k *KeywordFilter) isMounted() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mounted
}
