package panel

import "sync"

// DefaultBreakpoint is the viewport width below which filters live in a modal.
const DefaultBreakpoint = 768

type Layout int

const (
	LayoutInline Layout = iota
	LayoutModal
)

func (l Layout) String() string {
	if l == LayoutModal {
		return "modal"
	}
	return "inline"
}

func LayoutFor(width, breakpoint int) Layout {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	if width < breakpoint {
		return LayoutModal
	}
	return LayoutInline
}

// Viewport reports the display width and its changes.
type Viewport interface {
	CurrentWidth() int
	OnResize(func(width int)) (unsubscribe func())
}

// LayoutTracker caches LayoutFor behind a resize subscription.
type LayoutTracker struct {
	breakpoint int

	mu     sync.Mutex
	layout Layout
	unsub  func()
}

func TrackLayout(v Viewport, breakpoint int) *LayoutTracker {
	t := &LayoutTracker{breakpoint: breakpoint}
	t.layout = LayoutFor(v.CurrentWidth(), breakpoint)
	t.unsub = v.OnResize(func(w int) {
		l := LayoutFor(w, t.breakpoint)
		t.mu.Lock()
		t.layout = l
		t.mu.Unlock()
	})
	return t
}

func (t *LayoutTracker) Layout() Layout {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layout
}

func (t *LayoutTracker) Close() {
	t.mu.Lock()
	unsub := t.unsub
	t.unsub = nil
	t.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// ManualViewport is a Viewport whose width is set by the caller.
type ManualViewport struct {
	mu        sync.Mutex
	width     int
	nextID    int
	listeners map[int]func(int)
}

func NewManualViewport(width int) *ManualViewport {
	return &ManualViewport{width: width, listeners: map[int]func(int){}}
}

func (v *ManualViewport) CurrentWidth() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width
}

func (v *ManualViewport) OnResize(f func(int)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = f
	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}

func (v *ManualViewport) Resize(width int) {
	v.mu.Lock()
	v.width = width
	ls := make([]func(int), 0, len(v.listeners))
	for _, f := range v.listeners {
		ls = append(ls, f)
	}
	v.mu.Unlock()
	for _, f := range ls {
		f(width)
	}
}

func (v *ManualViewport) Listeners() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.listeners)
}
