// Package errs defines the agent runtime's error taxonomy (spec §4.J, §7):
// every error the runtime raises carries a long-term (model-facing) memory,
// a short-term (debug) memory, a recoverable flag, and an optional cause.
// Recoverable errors are serialised into an ActionResult and fed back to
// the model; non-recoverable errors abort the task.
package errs

import (
	"errors"
	"fmt"
)

// RuntimeError is the common shape of every typed error in this package.
// It satisfies the error interface and unwraps via Unwrap so callers can
// keep using errors.As/errors.Is the stdlib way.
type RuntimeError struct {
	// Message is the human-facing summary (e.g. logged to the console).
	Message string
	// LongTermMemory is what the model sees on its next turn: short,
	// actionable, free of stack-trace noise.
	LongTermMemory string
	// ShortTermMemory is verbose debug detail, never shown to the model.
	ShortTermMemory string
	// Code is an optional machine-readable identifier.
	Code string
	// Recoverable reports whether the loop may continue after this error.
	Recoverable bool
	// Cause is the wrapped underlying error, if any.
	Cause error
}

func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes Cause to errors.Is / errors.As.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// PageCrashError reports that the browser process or target died. Always
// fatal: the loop must abort unless a crash-recovery watchdog re-attaches
// first and reissues the action.
type PageCrashError struct{ RuntimeError }

// NewPageCrashError builds a fatal PageCrashError.
func NewPageCrashError(msg string, cause error) *PageCrashError {
	return &PageCrashError{RuntimeError{
		Message:         msg,
		LongTermMemory:  "The browser crashed. Attempting recovery.",
		ShortTermMemory: msg,
		Code:            "page_crash",
		Recoverable:     false,
		Cause:           cause,
	}}
}

// NavigationError reports a failed navigation (timeout, DNS failure,
// blocked by the target, invalid URL). Recoverable: the model is told and
// may try a different URL or strategy.
type NavigationError struct{ RuntimeError }

// NewNavigationError builds a recoverable NavigationError.
func NewNavigationError(url string, cause error) *NavigationError {
	return &NavigationError{RuntimeError{
		Message:         fmt.Sprintf("navigation to %s failed", url),
		LongTermMemory:  fmt.Sprintf("Navigation to %s failed: %v", url, cause),
		ShortTermMemory: fmt.Sprintf("navigate(%s): %v", url, cause),
		Code:            "navigation_failed",
		Recoverable:     true,
		Cause:           cause,
	}}
}

// ElementNotFoundError reports that a selector-map index has no live
// backing node — the page changed since the last snapshot. Recoverable:
// forces a re-snapshot on the next step.
type ElementNotFoundError struct{ RuntimeError }

// NewElementNotFoundError builds a recoverable ElementNotFoundError for
// the given selector-map index.
func NewElementNotFoundError(index int) *ElementNotFoundError {
	return &ElementNotFoundError{RuntimeError{
		Message:         fmt.Sprintf("element [%d] not found", index),
		LongTermMemory:  fmt.Sprintf("Element [%d] is no longer present on the page. The page may have changed — take a new snapshot.", index),
		ShortTermMemory: fmt.Sprintf("selector map miss for index %d", index),
		Code:            "element_not_found",
		Recoverable:     true,
	}}
}

// TimeoutError reports that a wait (scroll settle, navigation, element
// visibility, waitFor) exhausted its deadline. Recoverable.
type TimeoutError struct{ RuntimeError }

// NewTimeoutError builds a recoverable TimeoutError describing what timed
// out and after how long.
func NewTimeoutError(operation string, cause error) *TimeoutError {
	return &TimeoutError{RuntimeError{
		Message:         fmt.Sprintf("%s timed out", operation),
		LongTermMemory:  fmt.Sprintf("%s did not complete in time.", operation),
		ShortTermMemory: fmt.Sprintf("%s: %v", operation, cause),
		Code:            "timeout",
		Recoverable:     true,
		Cause:           cause,
	}}
}

// BrowserError is the catch-all for transport/CDP failures that are
// neither a crash nor classified above. Recoverable unless the caller
// wraps it with Fatal.
type BrowserError struct{ RuntimeError }

// NewBrowserError builds a recoverable BrowserError wrapping cause.
func NewBrowserError(msg string, cause error) *BrowserError {
	return &BrowserError{RuntimeError{
		Message:         msg,
		LongTermMemory:  fmt.Sprintf("Browser error: %s", msg),
		ShortTermMemory: fmt.Sprintf("%s: %v", msg, cause),
		Code:            "browser_error",
		Recoverable:     true,
		Cause:           cause,
	}}
}

// Fatal marks b as non-recoverable (e.g. the session is confirmed dead and
// re-attach has already failed), returning the same value for chaining.
func (b *BrowserError) Fatal() *BrowserError {
	b.Recoverable = false
	return b
}

// InvalidActionError reports that the model's action failed parameter
// validation against the registry schema. Recoverable: the model is
// reprompted with the validation detail.
type InvalidActionError struct{ RuntimeError }

// NewInvalidActionError builds a recoverable InvalidActionError for the
// named action and the validation failure reason.
func NewInvalidActionError(actionType, reason string) *InvalidActionError {
	return &InvalidActionError{RuntimeError{
		Message:         fmt.Sprintf("invalid parameters for action %q: %s", actionType, reason),
		LongTermMemory:  fmt.Sprintf("Action %q was rejected: %s. Check the parameter names and types.", actionType, reason),
		ShortTermMemory: reason,
		Code:            "invalid_action_schema",
		Recoverable:     true,
	}}
}

// ModelUnparseableError reports that the model's reply could not be
// parsed into {thinking, action|actions}. Recoverable: the model is
// nudged toward valid JSON.
type ModelUnparseableError struct{ RuntimeError }

// NewModelUnparseableError builds a recoverable ModelUnparseableError
// carrying a snippet of the raw reply for debugging.
func NewModelUnparseableError(raw string) *ModelUnparseableError {
	snippet := raw
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	return &ModelUnparseableError{RuntimeError{
		Message:         "model reply could not be parsed",
		LongTermMemory:  "Your last reply could not be parsed. Respond with JSON matching {thinking, action} or {thinking, actions}.",
		ShortTermMemory: snippet,
		Code:            "model_unparseable",
		Recoverable:     true,
	}}
}

// CancelledError reports that the task was stopped by the cancel signal.
// Terminal: the loop exits with success=false but this is not itself a
// failure of the task — AgentOutput distinguishes cancellation from error.
type CancelledError struct{ RuntimeError }

// NewCancelledError builds a terminal CancelledError.
func NewCancelledError() *CancelledError {
	return &CancelledError{RuntimeError{
		Message:         "task cancelled",
		LongTermMemory:  "The task was cancelled by the user.",
		ShortTermMemory: "cancel signal observed",
		Code:            "user_cancelled",
		Recoverable:     false,
	}}
}

// IsRecoverable reports whether err, if it is (or wraps) a *RuntimeError,
// is recoverable. Non-RuntimeError values are treated as non-recoverable
// so unexpected errors fail closed rather than silently continuing.
func IsRecoverable(err error) bool {
	switch v := err.(type) {
	case *PageCrashError:
		return v.Recoverable
	case *NavigationError:
		return v.Recoverable
	case *ElementNotFoundError:
		return v.Recoverable
	case *TimeoutError:
		return v.Recoverable
	case *BrowserError:
		return v.Recoverable
	case *InvalidActionError:
		return v.Recoverable
	case *ModelUnparseableError:
		return v.Recoverable
	case *CancelledError:
		return v.Recoverable
	case *RuntimeError:
		return v.Recoverable
	default:
		if inner := errors.Unwrap(err); inner != nil {
			return IsRecoverable(inner)
		}
		return false
	}
}

// LongTermMemory extracts the model-facing memory string from err if it is
// one of this package's typed errors, falling back to err.Error().
func LongTermMemory(err error) string {
	switch v := err.(type) {
	case *PageCrashError:
		return v.LongTermMemory
	case *NavigationError:
		return v.LongTermMemory
	case *ElementNotFoundError:
		return v.LongTermMemory
	case *TimeoutError:
		return v.LongTermMemory
	case *BrowserError:
		return v.LongTermMemory
	case *InvalidActionError:
		return v.LongTermMemory
	case *ModelUnparseableError:
		return v.LongTermMemory
	case *CancelledError:
		return v.LongTermMemory
	default:
		if err == nil {
			return ""
		}
		return err.Error()
	}
}
