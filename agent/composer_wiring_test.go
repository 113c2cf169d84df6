package agent

import "testing"

func TestSetTask_CreatesComposerWithPrompt(t *testing.T) {
	a := New(Config{}, nil)
	if a.composer != nil {
		t.Fatal("expected no composer before SetTask")
	}

	a.SetTask("find the pricing page")

	if a.composer == nil {
		t.Fatal("expected SetTask to create a composer")
	}
	if a.composer.task.Content != "find the pricing page" {
		t.Errorf("task message = %q, want %q", a.composer.task.Content, "find the pricing page")
	}
}

func TestRecordObservation_NoopBeforeSetTask(t *testing.T) {
	a := New(Config{}, nil)
	a.recordObservation("clicked something")
	if a.composer != nil {
		t.Error("recordObservation should be a no-op before SetTask")
	}
}

func TestRecordObservation_AppendsToComposerHistory(t *testing.T) {
	a := New(Config{}, nil)
	a.SetTask("do the task")
	a.recordObservation("clicked element 3")

	msgs := a.composer.Messages()
	found := false
	for _, m := range msgs {
		if m.Content == "clicked element 3" {
			found = true
		}
	}
	if !found {
		t.Error("expected the observation to appear in composed messages")
	}
}

func TestRecordState_ReplacesComposerState(t *testing.T) {
	a := New(Config{}, nil)
	a.SetTask("do the task")
	a.recordState(StateInput{URL: "https://example.com", Title: "Example"})

	msgs := a.composer.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != RoleState {
		t.Fatalf("expected last message to be the state message, got %v", last.Role)
	}
	if last.Content == "" {
		t.Error("expected rendered state content")
	}
}
