package registry

import "context"

// Controller is the minimal browser capability the registered action
// handlers need. It deliberately does not mention go-rod, CDP, or any
// other concrete transport (spec §9: the core must not depend on a
// concrete transport) — the `browser` package's *Browser, and any future
// Electron BrowserView adapter, need only implement this interface to be
// driven by the registry.
type Controller interface {
	Navigate(ctx context.Context, url string, newTab bool) error
	GoBack(ctx context.Context) error
	GoForward(ctx context.Context) error
	Reload(ctx context.Context) error

	Click(ctx context.Context, index int) error
	Input(ctx context.Context, index int, value string, clear, submit bool) error
	Scroll(ctx context.Context, direction string, pages float64, containerIndex int) error
	FindText(ctx context.Context, query string) (int, bool, error)

	Screenshot(ctx context.Context, format string, quality int) (string, error)
	Evaluate(ctx context.Context, fn string, args []any) (string, error)
	Extract(ctx context.Context, selector, format string) (string, error)

	Wait(ctx context.Context, seconds float64) error

	SelectDropdown(ctx context.Context, index int, option string) error
	DropdownOptions(ctx context.Context, index int) ([]string, error)
	UploadFile(ctx context.Context, index int, path string) error
	SendKeys(ctx context.Context, keys string) error

	SwitchTab(ctx context.Context, tabID string) error
	CloseTab(ctx context.Context, tabID string) error

	WriteFile(ctx context.Context, path, content string) error
	ReadFile(ctx context.Context, path string) (string, error)
	ReplaceFile(ctx context.Context, path, old, new string) error
}
