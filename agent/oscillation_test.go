package agent

import "testing"

func TestScrollOscillating_NoHistory(t *testing.T) {
	a := New(Config{}, nil)
	if a.scrollOscillating("down") {
		t.Error("expected no oscillation with empty history")
	}
}

func TestScrollOscillating_SameDirectionRepeated(t *testing.T) {
	a := New(Config{}, nil)
	a.recordScroll("down")
	a.recordScroll("down")
	a.recordScroll("down")
	if a.scrollOscillating("down") {
		t.Error("repeated same-direction scrolls should not trigger the guard")
	}
}

func TestScrollOscillating_TwoAlternationsTriggers(t *testing.T) {
	a := New(Config{}, nil)
	a.recordScroll("down")
	a.recordScroll("up")
	if !a.scrollOscillating("down") {
		t.Error("down, up, down should be 2 alternations and trigger the guard")
	}
}

func TestScrollOscillating_SingleAlternationDoesNotTrigger(t *testing.T) {
	a := New(Config{}, nil)
	a.recordScroll("down")
	if a.scrollOscillating("up") {
		t.Error("a single alternation should not yet trigger the guard")
	}
}

func TestRecordScroll_TrimsToRingBufferSize(t *testing.T) {
	a := New(Config{}, nil)
	for i := 0; i < scrollHistorySize+5; i++ {
		a.recordScroll("down")
	}
	if len(a.scrollHistory) != scrollHistorySize {
		t.Errorf("len(scrollHistory) = %d, want %d", len(a.scrollHistory), scrollHistorySize)
	}
}
