package events

import (
	"context"
	"testing"
	"time"
)

func TestEmit_OrderingWildcardFirst(t *testing.T) {
	bus := New(10)
	var order []string

	bus.On(TabCreated, func(ctx context.Context, evt Event) { order = append(order, "typeA") })
	bus.On(TabCreated, func(ctx context.Context, evt Event) { order = append(order, "typeB") })
	bus.OnAny(func(ctx context.Context, evt Event) { order = append(order, "wildcard") })

	bus.Emit(context.Background(), TabCreated, nil)

	want := []string{"wildcard", "typeB", "typeA"} // LIFO registration order within each group
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestEmit_BoundedHistory(t *testing.T) {
	bus := New(3)
	for i := 0; i < 10; i++ {
		bus.Emit(context.Background(), TabCreated, i)
	}
	hist := bus.History()
	if len(hist) != 3 {
		t.Fatalf("History() len = %d, want 3", len(hist))
	}
	if hist[len(hist)-1].Payload.(int) != 9 {
		t.Errorf("last history payload = %v, want 9", hist[len(hist)-1].Payload)
	}
}

func TestEmit_ParentEventID(t *testing.T) {
	bus := New(10)
	var childParent string

	bus.On(TabClosed, func(ctx context.Context, evt Event) {
		childParent = evt.ParentEventID
	})
	bus.On(TabCreated, func(ctx context.Context, evt Event) {
		bus.Emit(ctx, TabClosed, nil)
	})

	parent := bus.Emit(context.Background(), TabCreated, nil)
	if childParent != parent.ID {
		t.Errorf("child ParentEventID = %q, want %q", childParent, parent.ID)
	}
}

func TestOnce_RemovedAfterFiring(t *testing.T) {
	bus := New(10)
	count := 0
	bus.Once(TabCreated, func(ctx context.Context, evt Event) { count++ })

	bus.Emit(context.Background(), TabCreated, nil)
	bus.Emit(context.Background(), TabCreated, nil)

	if count != 1 {
		t.Errorf("Once handler fired %d times, want 1", count)
	}
}

func TestOnce_RemovedEvenOnPanic(t *testing.T) {
	bus := New(10)
	count := 0
	bus.Once(TabCreated, func(ctx context.Context, evt Event) {
		count++
		panic("boom")
	})

	bus.Emit(context.Background(), TabCreated, nil)
	bus.Emit(context.Background(), TabCreated, nil)

	if count != 1 {
		t.Errorf("Once handler fired %d times, want 1", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New(10)
	count := 0
	unsub := bus.On(TabCreated, func(ctx context.Context, evt Event) { count++ })
	bus.Emit(context.Background(), TabCreated, nil)
	unsub()
	bus.Emit(context.Background(), TabCreated, nil)

	if count != 1 {
		t.Errorf("handler fired %d times after unsubscribe, want 1", count)
	}
}

func TestWaitFor_Success(t *testing.T) {
	bus := New(10)
	go func() {
		time.Sleep(10 * time.Millisecond)
		bus.Emit(context.Background(), NavigationComplete, "https://example.com")
	}()

	evt, err := bus.WaitFor(context.Background(), NavigationComplete, time.Second)
	if err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
	if evt.Payload.(string) != "https://example.com" {
		t.Errorf("payload = %v", evt.Payload)
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	bus := New(10)
	_, err := bus.WaitFor(context.Background(), NavigationComplete, 10*time.Millisecond)
	if err == nil {
		t.Error("WaitFor() should time out")
	}
}

func TestDOMWatchdog_Throttles(t *testing.T) {
	bus := New(10)
	wd := NewDOMWatchdog(bus, 50*time.Millisecond)
	unregister, err := Register(context.Background(), bus, wd)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer unregister()

	bus.Emit(context.Background(), DOMUpdated, nil)
	wd.mu.Lock()
	first := wd.lastFire
	wd.mu.Unlock()

	bus.Emit(context.Background(), DOMUpdated, nil)
	wd.mu.Lock()
	second := wd.lastFire
	wd.mu.Unlock()

	if !first.Equal(second) {
		t.Error("second emission within the window should not update lastFire")
	}
}

func TestCrashRecoveryWatchdog_Recovers(t *testing.T) {
	bus := New(10)
	reattached := false
	renavigated := ""
	wd := NewCrashRecoveryWatchdog(bus,
		func(ctx context.Context) error { reattached = true; return nil },
		func(ctx context.Context, url string) error { renavigated = url; return nil },
		func() string { return "https://example.com/last" },
	)
	unregister, err := Register(context.Background(), bus, wd)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer unregister()

	recovered := false
	bus.On(BrowserCrashRecovered, func(ctx context.Context, evt Event) { recovered = true })

	bus.Emit(context.Background(), BrowserCrash, nil)

	if !reattached {
		t.Error("expected Reattach to be called")
	}
	if renavigated != "https://example.com/last" {
		t.Errorf("renavigated = %q", renavigated)
	}
	if !recovered {
		t.Error("expected BrowserCrashRecovered to be emitted")
	}
}
