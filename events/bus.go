// Package events implements the agent runtime's in-process event bus and
// watchdog registration (spec §4.G): a single-threaded, cooperative
// publisher/subscriber with bounded history and parent/child event ids, so
// lifecycle events (tab created, navigation, crash) fan out to watchdogs
// and host observers without any component depending on a concrete
// transport.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names one of the concrete event kinds the runtime publishes.
type Type string

const (
	TabCreated           Type = "tab_created"
	TabClosed            Type = "tab_closed"
	SwitchTab            Type = "switch_tab"
	NavigationStarted    Type = "navigation_started"
	NavigationComplete   Type = "navigation_complete"
	BrowserCrash         Type = "browser_crash"
	BrowserCrashRecovered Type = "browser_crash_recovered"
	FileDownloaded       Type = "file_downloaded"
	DOMUpdated           Type = "dom_updated"
	Screenshot           Type = "screenshot"
	AgentLog             Type = "agent_log"
	PopupDetected        Type = "popup_detected"
	PermissionRequested  Type = "permission_requested"
)

// Event is one published envelope. Payload carries the event-specific
// data (e.g. a TabCreated payload struct); subscribers type-assert it.
type Event struct {
	ID            string
	Type          Type
	ParentEventID string
	CreatedAt     time.Time
	Payload any
}

// Handler receives a published Event. Handlers run cooperatively, one at
// a time, in the order described by Bus.Emit; a handler that blocks
// blocks the whole bus.
type Handler func(ctx context.Context, evt Event)

type subscription struct {
	id       int64
	handler  Handler
	once     bool
	wildcard bool
}

// Bus is a single-process, single-threaded publisher/subscriber with a
// bounded FIFO history. It is not safe for concurrent Emit calls from
// multiple goroutines — the agent loop's single logical task queue is the
// only emitter (spec §5); On/Off/WaitFor may be called from other
// goroutines because they only touch the subscriber list under a mutex.
type Bus struct {
	mu sync.Mutex

	subsByType map[Type][]*subscription
	wildcard   []*subscription
	nextSubID  int64

	history    []Event
	historyCap int

	currentEventID string // the event presently being processed, for parent linkage
}

// New constructs a Bus with the given bounded history size (spec
// `eventHistorySize`, default 100 when historyCap <= 0).
func New(historyCap int) *Bus {
	if historyCap <= 0 {
		historyCap = 100
	}
	return &Bus{
		subsByType: make(map[Type][]*subscription),
		historyCap: historyCap,
	}
}

// On registers handler for every Emit of typ and returns an unsubscribe
// function, the only supported cancellation mechanism (spec §4.G).
func (b *Bus) On(typ Type, handler Handler) func() {
	return b.add(typ, handler, false, false)
}

// Once registers handler to fire at most one time for typ. It is removed
// after firing even if it panics/throws — the bus recovers around each
// handler invocation specifically to guarantee this.
func (b *Bus) Once(typ Type, handler Handler) func() {
	return b.add(typ, handler, true, false)
}

// OnAny registers a wildcard handler that observes every emitted event,
// regardless of Type. Wildcard handlers fire first, before type-specific
// ones (spec §4.G ordering).
func (b *Bus) OnAny(handler Handler) func() {
	return b.add("", handler, false, true)
}

func (b *Bus) add(typ Type, handler Handler, once, wildcard bool) func() {
	b.mu.Lock()
	b.nextSubID++
	sub := &subscription{id: b.nextSubID, handler: handler, once: once, wildcard: wildcard}
	if wildcard {
		// LIFO registration order: new wildcard handlers run before older ones.
		b.wildcard = append([]*subscription{sub}, b.wildcard...)
	} else {
		b.subsByType[typ] = append([]*subscription{sub}, b.subsByType[typ]...)
	}
	b.mu.Unlock()

	return func() { b.Off(sub.id) }
}

// Off removes a subscription by the id captured from On/Once/OnAny's
// returned closure. Exposed for symmetry with spec §4.G's `off`; callers
// normally just invoke the returned closure instead.
func (b *Bus) Off(subID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for typ, subs := range b.subsByType {
		b.subsByType[typ] = removeSub(subs, subID)
	}
	b.wildcard = removeSub(b.wildcard, subID)
}

func removeSub(subs []*subscription, id int64) []*subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Emit publishes a new event of typ carrying payload, appends it to the
// bounded history, and runs every matching handler synchronously:
// wildcard handlers first, then type-specific, each in LIFO registration
// order, each awaited (run to completion) before the next fires (spec
// §4.G, §5). The event's ParentEventID is set to whatever event is
// currently being processed by this same Emit call stack, if any —
// nesting is the normal case when a handler itself calls Emit.
func (b *Bus) Emit(ctx context.Context, typ Type, payload any) Event {
	b.mu.Lock()
	parent := b.currentEventID
	evt := Event{
		ID:            uuid.NewString(),
		Type:          typ,
		ParentEventID: parent,
		CreatedAt:     time.Now(),
		Payload:       payload,
	}
	b.history = append(b.history, evt)
	if len(b.history) > b.historyCap {
		b.history = b.history[len(b.history)-b.historyCap:]
	}

	wildcardHandlers := append([]*subscription(nil), b.wildcard...)
	typeHandlers := append([]*subscription(nil), b.subsByType[typ]...)
	b.currentEventID = evt.ID
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.currentEventID = parent
		b.mu.Unlock()
	}()

	b.runHandlers(ctx, evt, wildcardHandlers, true)
	b.runHandlers(ctx, evt, typeHandlers, false)

	return evt
}

func (b *Bus) runHandlers(ctx context.Context, evt Event, subs []*subscription, wildcard bool) {
	for _, sub := range subs {
		if sub.once {
			b.Off(sub.id)
		}
		invokeHandler(ctx, sub.handler, evt)
	}
}

// invokeHandler calls handler, recovering a panic so a once-handler that
// throws is still removed and a misbehaving subscriber cannot wedge the
// bus for everyone else.
func invokeHandler(ctx context.Context, handler Handler, evt Event) {
	defer func() { _ = recover() }()
	handler(ctx, evt)
}

// History returns a copy of the bounded event FIFO, oldest first.
func (b *Bus) History() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// WaitFor blocks until an event of typ is emitted or timeout elapses,
// returning a plain error naming typ and the timeout on expiry, or ctx's
// error if ctx is done first.
func (b *Bus) WaitFor(ctx context.Context, typ Type, timeout time.Duration) (Event, error) {
	ch := make(chan Event, 1)
	unsub := b.On(typ, func(_ context.Context, evt Event) {
		select {
		case ch <- evt:
		default:
		}
	})
	defer unsub()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case evt := <-ch:
		return evt, nil
	case <-timer.C:
		return Event{}, fmt.Errorf("waitFor(%s): timed out after %s", typ, timeout)
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}
