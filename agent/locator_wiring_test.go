package agent

import "testing"

func TestResolveElementIndex_PassesThroughExplicitIndex(t *testing.T) {
	a := New(Config{}, nil)
	got, err := a.resolveElementIndex(nil, 7, "the submit button")
	if err != nil {
		t.Fatalf("resolveElementIndex() error = %v", err)
	}
	if got != 7 {
		t.Errorf("resolveElementIndex() = %d, want 7 (explicit index should win)", got)
	}
}

func TestResolveElementIndex_NoDescriptionNoResolverNeeded(t *testing.T) {
	a := New(Config{}, nil)
	got, err := a.resolveElementIndex(nil, 0, "")
	if err != nil {
		t.Fatalf("resolveElementIndex() error = %v", err)
	}
	if got != 0 {
		t.Errorf("resolveElementIndex() = %d, want 0", got)
	}
}

func TestResolveElementIndex_DescriptionWithoutResolverErrors(t *testing.T) {
	a := New(Config{}, nil)
	if _, err := a.resolveElementIndex(nil, 0, "the submit button"); err == nil {
		t.Error("expected an error when a description is given but no resolver is configured")
	}
}
