package errs

import (
	"errors"
	"testing"
)

func TestElementNotFoundError_Recoverable(t *testing.T) {
	err := NewElementNotFoundError(7)
	if !IsRecoverable(err) {
		t.Error("ElementNotFoundError should be recoverable")
	}
	if err.LongTermMemory == "" {
		t.Error("LongTermMemory should not be empty")
	}
}

func TestPageCrashError_NotRecoverable(t *testing.T) {
	err := NewPageCrashError("session lost", errors.New("cdp: closed"))
	if IsRecoverable(err) {
		t.Error("PageCrashError should not be recoverable")
	}
	if !errors.Is(err.Unwrap(), err.Cause) {
		t.Error("Unwrap should expose Cause")
	}
}

func TestBrowserError_Fatal(t *testing.T) {
	err := NewBrowserError("transport dead", errors.New("eof"))
	if !IsRecoverable(err) {
		t.Error("BrowserError should default to recoverable")
	}
	err.Fatal()
	if IsRecoverable(err) {
		t.Error("Fatal() should flip Recoverable to false")
	}
}

func TestCancelledError(t *testing.T) {
	err := NewCancelledError()
	if IsRecoverable(err) {
		t.Error("CancelledError is terminal, not recoverable")
	}
	if LongTermMemory(err) == "" {
		t.Error("LongTermMemory should not be empty")
	}
}

func TestLongTermMemory_PlainError(t *testing.T) {
	plain := errors.New("boom")
	if LongTermMemory(plain) != "boom" {
		t.Errorf("LongTermMemory(plain) = %q, want %q", LongTermMemory(plain), "boom")
	}
}

func TestNavigationError_Wraps(t *testing.T) {
	cause := errors.New("dns failure")
	err := NewNavigationError("https://example.com", cause)
	if errs := err.Error(); errs == "" {
		t.Error("Error() should not be empty")
	}
	if !errors.Is(err, err) {
		t.Error("errors.Is should match itself")
	}
}

func TestModelUnparseableError_TruncatesSnippet(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err := NewModelUnparseableError(string(long))
	if len(err.ShortTermMemory) > 203 {
		t.Errorf("snippet not truncated: len=%d", len(err.ShortTermMemory))
	}
}
