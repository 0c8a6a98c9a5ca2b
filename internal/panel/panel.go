// Package panel runs the mobile filter modal and the mobile map toggle.
package panel

import (
	"log/slog"
	"sync"

	"github.com/mohammed-shakir/listing-search/internal/commit"
	"github.com/mohammed-shakir/listing-search/internal/core/observability"
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Hooks let the page react to the modal (e.g. put the topbar behind it).
type Hooks struct {
	OnOpen  func()
	OnClose func()

	// DropPending cancels edits still waiting to commit (a debounced
	// keyword). Cancel and ResetAll call it before navigating.
	DropPending func()
}

// Panel is the filter modal. While open it holds a snapshot of the committed
// parameters taken at open time; Cancel navigates back to it. Edits made
// inside the panel commit immediately, so closing via ShowResults only drops
// the snapshot.
type Panel struct {
	pipe   *commit.Pipeline
	reg    *filters.Registry
	hooks  Hooks
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	pending  urlquery.Params
	external bool
}

func New(pipe *commit.Pipeline, reg *filters.Registry, hooks Hooks, logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{pipe: pipe, reg: reg, hooks: hooks, logger: logger}
}

func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pending returns a copy of the open-time snapshot, nil when closed.
func (p *Panel) Pending() urlquery.Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return nil
	}
	return p.pending.Clone()
}

// Open is a no-op when already open; the first snapshot is kept.
func (p *Panel) Open() {
	snap := p.pipe.Committed()

	p.mu.Lock()
	if p.state == Open {
		p.mu.Unlock()
		return
	}
	p.state = Open
	p.pending = snap
	p.mu.Unlock()

	observability.IncPanelTransition("open")
	p.logger.Debug("filter panel opened", "snapshot", urlquery.Stringify(snap))
	if p.hooks.OnOpen != nil {
		p.hooks.OnOpen()
	}
}

// SyncExternal follows the page-level "custom state" flag; only a
// false→true toggle opens the panel.
func (p *Panel) SyncExternal(flag bool) {
	p.mu.Lock()
	rising := flag && !p.external
	p.external = flag
	p.mu.Unlock()
	if rising {
		p.Open()
	}
}

// ShowResults closes the panel keeping the committed parameters.
func (p *Panel) ShowResults() {
	if !p.close() {
		return
	}
	observability.IncPanelTransition("show_results")
	p.afterClose()
}

// Cancel closes the panel and restores the parameters committed at open time.
func (p *Panel) Cancel() {
	p.mu.Lock()
	if p.state != Open {
		p.mu.Unlock()
		return
	}
	snap := p.pending
	p.mu.Unlock()

	p.dropPending()
	p.pipe.Replace("cancel", snap)
	if !p.close() {
		return
	}
	observability.IncPanelTransition("cancel")
	p.afterClose()
}

// ResetAll removes every filter parameter in one navigation, open or not.
func (p *Panel) ResetAll() {
	p.dropPending()
	p.pipe.Replace("reset", p.reg.ResetAll(p.pipe.Committed()))
	observability.IncPanelTransition("reset_all")
}

func (p *Panel) dropPending() {
	if p.hooks.DropPending != nil {
		p.hooks.DropPending()
	}
}

func (p *Panel) close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Open {
		return false
	}
	p.state = Closed
	p.pending = nil
	p.external = false
	return true
}

func (p *Panel) afterClose() {
	p.logger.Debug("filter panel closed")
	if p.hooks.OnClose != nil {
		p.hooks.OnClose()
	}
}

// MapToggle tracks the mobile map view. The map widget is mounted only
// after an explicit open, even when the page starts on the map tab.
type MapToggle struct {
	mu      sync.Mutex
	open    bool
	mounted bool
}

func NewMapToggle(tab string) *MapToggle {
	return &MapToggle{open: tab == "map"}
}

func (m *MapToggle) OpenMap() {
	m.mu.Lock()
	m.open, m.mounted = true, true
	m.mu.Unlock()
}

func (m *MapToggle) CloseMap() {
	m.mu.Lock()
	m.open, m.mounted = false, false
	m.mu.Unlock()
}

func (m *MapToggle) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MapToggle) MapMounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}
