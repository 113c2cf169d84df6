package agent

import (
	"strings"
	"testing"

	"github.com/anxuanzi/bua-go/dom"
)

func TestComposer_MessagesOrder(t *testing.T) {
	c := NewComposer(DefaultComposerConfig(), "sys prompt", "do the task")
	c.AddObservation("clicked [1]")
	c.SetState(StateInput{URL: "https://example.com", Title: "Example"})

	msgs := c.Messages()
	if len(msgs) != 4 {
		t.Fatalf("len(Messages()) = %d, want 4", len(msgs))
	}
	if msgs[0].Role != RoleSystem || msgs[1].Role != RoleUser {
		t.Errorf("expected system then task first, got %v %v", msgs[0].Role, msgs[1].Role)
	}
	if msgs[len(msgs)-1].Role != RoleState {
		t.Errorf("expected last message to be the state message, got %v", msgs[len(msgs)-1].Role)
	}
}

func TestComposer_StateReplacedNotAppended(t *testing.T) {
	c := NewComposer(DefaultComposerConfig(), "sys", "task")
	c.SetState(StateInput{URL: "https://a.example"})
	c.SetState(StateInput{URL: "https://b.example"})

	msgs := c.Messages()
	stateCount := 0
	for _, m := range msgs {
		if m.Role == RoleState {
			stateCount++
		}
	}
	if stateCount != 1 {
		t.Errorf("expected exactly one state message, got %d", stateCount)
	}
	if !strings.Contains(msgs[len(msgs)-1].Content, "b.example") {
		t.Error("expected the latest state to win")
	}
}

func TestComposer_TrimsHistory(t *testing.T) {
	cfg := ComposerConfig{ListingCharLimit: 1000, KeepFirst: 2, KeepLast: 3}
	c := NewComposer(cfg, "sys", "task")
	for i := 0; i < 10; i++ {
		c.AddObservation("observation")
	}
	if len(c.history) != 3 {
		t.Errorf("len(history) = %d, want 3", len(c.history))
	}
}

func TestTruncateListing_AddsMarker(t *testing.T) {
	listing := strings.Repeat("x", 100)
	truncated := truncateListing(listing, 10)
	if len(truncated) <= 10 {
		t.Error("expected marker appended after truncation point")
	}
	if !strings.Contains(truncated, "truncated") {
		t.Error("expected an explicit truncated marker")
	}
}

func TestTruncateListing_NoOpUnderLimit(t *testing.T) {
	listing := "short listing"
	if got := truncateListing(listing, 1000); got != listing {
		t.Errorf("truncateListing() = %q, want unchanged %q", got, listing)
	}
}

func TestRenderState_IncludesStats(t *testing.T) {
	elements := dom.NewElementMap()
	elements.PageTitle = "Example"
	elements.PageURL = "https://example.com"
	elements.Add(&dom.Element{Index: 1, TagName: "button", IsInteractive: true, IsVisible: true})
	elements.Add(&dom.Element{Index: 2, TagName: "a", IsInteractive: true, IsVisible: true})

	state := renderState(StateInput{URL: "https://example.com", Title: "Example", Elements: elements}, 40000)
	if !strings.Contains(state, "1 links") {
		t.Errorf("expected stats to report 1 link, got: %s", state)
	}
	if !strings.Contains(state, "1 buttons") {
		t.Errorf("expected stats to report 1 button, got: %s", state)
	}
}
