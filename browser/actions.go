package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"

	"github.com/anxuanzi/bua-go/dom"
)

// keyInputs maps the names an action may request to go-rod's key codes.
// Only the keys worth exposing to a model are listed; anything else is
// rejected rather than guessed at.
var keyInputs = map[string]input.Key{
	"Enter":      input.Enter,
	"Escape":     input.Escape,
	"Tab":        input.Tab,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Home":       input.Home,
	"End":        input.End,
	"PageUp":     input.PageUp,
	"PageDown":   input.PageDown,
}

// GoBack navigates the active tab one entry back in its history.
func (b *Browser) GoBack(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page := b.getActivePageLocked()
	if page == nil {
		return fmt.Errorf("no active page")
	}
	if err := page.NavigateBack(); err != nil {
		return fmt.Errorf("failed to go back: %w", err)
	}
	waitForStableWithTimeout(page, 300*time.Millisecond, 5*time.Second)
	return nil
}

// GoForward navigates the active tab one entry forward in its history.
func (b *Browser) GoForward(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page := b.getActivePageLocked()
	if page == nil {
		return fmt.Errorf("no active page")
	}
	if err := page.NavigateForward(); err != nil {
		return fmt.Errorf("failed to go forward: %w", err)
	}
	waitForStableWithTimeout(page, 300*time.Millisecond, 5*time.Second)
	return nil
}

// Reload reloads the active tab.
func (b *Browser) Reload(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page := b.getActivePageLocked()
	if page == nil {
		return fmt.Errorf("no active page")
	}
	if err := page.Reload(); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	waitForStableWithTimeout(page, 300*time.Millisecond, 5*time.Second)
	return nil
}

// Wait pauses for the given number of seconds. It respects ctx cancellation
// so a cancelled task doesn't block on a long wait.
func (b *Browser) Wait(ctx context.Context, seconds float64) error {
	if seconds <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Input clicks elementIndex, optionally clears its existing value, types
// value, and optionally submits with Enter. This is the registry's `input`
// action (spec §4.F); TypeInElement remains for callers that only need the
// plain click-then-type behaviour.
func (b *Browser) Input(ctx context.Context, elementIndex int, value string, clear, submit bool) error {
	if clear {
		if err := b.clearElement(ctx, elementIndex); err != nil {
			return err
		}
	}
	if err := b.TypeInElement(ctx, elementIndex, value); err != nil {
		return err
	}
	if submit {
		return b.SendKeys(ctx, "Enter")
	}
	return nil
}

func (b *Browser) clearElement(ctx context.Context, elementIndex int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page := b.getActivePageLocked()
	if page == nil {
		return fmt.Errorf("no active page")
	}

	elements, err := dom.ExtractElementMap(ctx, page)
	if err != nil {
		return fmt.Errorf("failed to get element map: %w", err)
	}
	el, ok := elements.ByIndex(elementIndex)
	if !ok {
		return fmt.Errorf("element with index %d not found", elementIndex)
	}

	_, err = page.Eval(fmt.Sprintf(`(function(){
		const el = document.querySelector('[data-bua-index="%d"]');
		if (!el) return false;
		el.value = '';
		el.dispatchEvent(new Event('input', {bubbles: true}));
		return true;
	})()`, el.Index))
	if err != nil {
		return fmt.Errorf("failed to clear element: %w", err)
	}
	return nil
}

// FindText searches the serialised interactive element listing for the
// first element whose text contains query (case-insensitive), returning its
// index. found is false, with a nil error, when nothing matches.
func (b *Browser) FindText(ctx context.Context, query string) (int, bool, error) {
	b.mu.RLock()
	page := b.getActivePageLocked()
	b.mu.RUnlock()
	if page == nil {
		return 0, false, fmt.Errorf("no active page")
	}

	elements, err := dom.ExtractElementMap(ctx, page)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get element map: %w", err)
	}

	needle := strings.ToLower(query)
	for _, el := range elements.InteractiveElements() {
		if strings.Contains(strings.ToLower(el.Text), needle) {
			return el.Index, true, nil
		}
	}
	return 0, false, nil
}

// Evaluate calls fn, a JavaScript function expression such as an arrow
// function, against the active page with args as its arguments, and returns
// the result as a string (a string result as-is, other values as JSON).
func (b *Browser) Evaluate(ctx context.Context, fn string, args []any) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	page := b.getActivePageLocked()
	if page == nil {
		return "", fmt.Errorf("no active page")
	}

	result, err := page.Eval(fmt.Sprintf("(%s)", fn), args...)
	if err != nil {
		return "", fmt.Errorf("evaluate failed: %w", err)
	}
	return result.Value.String(), nil
}

// SelectDropdown selects option on a <select> element located via the
// interactive element index.
func (b *Browser) SelectDropdown(ctx context.Context, elementIndex int, option string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, selectorEl, err := b.resolveLocked(ctx, elementIndex)
	if err != nil {
		return err
	}
	return selectorEl.Select([]string{option}, true, rod.SelectorTypeText)
}

// DropdownOptions lists the option labels of a <select> element.
func (b *Browser) DropdownOptions(ctx context.Context, elementIndex int) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, selectorEl, err := b.resolveLocked(ctx, elementIndex)
	if err != nil {
		return nil, err
	}

	result, err := selectorEl.Eval(`() => Array.from(this.options).map(o => o.text)`)
	if err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	var opts []string
	for _, v := range result.Value.Arr() {
		opts = append(opts, v.Str())
	}
	return opts, nil
}

// UploadFile attaches a local file to a file input element.
func (b *Browser) UploadFile(ctx context.Context, elementIndex int, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("upload file not found: %w", err)
	}

	_, selectorEl, err := b.resolveLocked(ctx, elementIndex)
	if err != nil {
		return err
	}
	return selectorEl.SetFiles([]string{path})
}

// SendKeys types one named key from keyInputs on the active page (e.g.
// "Enter", "Escape", "Tab"), useful for keyboard-only interactions the
// click/input actions can't express. Key combinations such as "Control+A"
// are not supported and are rejected as unsupported keys.
func (b *Browser) SendKeys(ctx context.Context, keys string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page := b.getActivePageLocked()
	if page == nil {
		return fmt.Errorf("no active page")
	}

	key, ok := keyInputs[keys]
	if !ok {
		return fmt.Errorf("unsupported key %q", keys)
	}
	return page.Keyboard.Type(key)
}

// resolveLocked finds el by interactive index and returns its live
// rod.Element handle via the page's data-bua-index attribute, which
// dom.Serialise stamps onto every interactive element during extraction.
// Caller must hold b.mu.
func (b *Browser) resolveLocked(ctx context.Context, elementIndex int) (*dom.Element, *rod.Element, error) {
	page := b.getActivePageLocked()
	if page == nil {
		return nil, nil, fmt.Errorf("no active page")
	}

	elements, err := dom.ExtractElementMap(ctx, page)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get element map: %w", err)
	}
	el, ok := elements.ByIndex(elementIndex)
	if !ok {
		return nil, nil, fmt.Errorf("element with index %d not found", elementIndex)
	}

	selectorEl, err := page.Element(fmt.Sprintf(`[data-bua-index="%d"]`, el.Index))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve element %d: %w", elementIndex, err)
	}
	return el, selectorEl, nil
}

// Extract returns page content in the requested format. format "markdown"
// converts the full page (or, when selector is non-empty, just the matched
// fragment) to Markdown; format "text" returns the matched selector's plain
// text, or the whole page's visible text when selector is empty.
func (b *Browser) Extract(ctx context.Context, selector, format string) (string, error) {
	b.mu.Lock()
	page := b.getActivePageLocked()
	b.mu.Unlock()
	if page == nil {
		return "", fmt.Errorf("no active page")
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse page HTML: %w", err)
	}

	selection := doc.Selection
	if selector != "" {
		selection = doc.Find(selector)
		if selection.Length() == 0 {
			return "", fmt.Errorf("selector %q matched no elements", selector)
		}
	}

	switch format {
	case "text", "":
		return strings.TrimSpace(selection.Text()), nil
	case "markdown":
		fragment, err := selection.Html()
		if err != nil {
			return "", fmt.Errorf("failed to serialise fragment: %w", err)
		}
		return convertMarkdown(fragment, b.GetURL())
	default:
		return "", fmt.Errorf("unsupported extract format %q", format)
	}
}

func convertMarkdown(html, sourceURL string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(html, converter.WithDomain(sourceURL))
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}
	return md, nil
}

// WriteFile writes content to a local path the agent has been granted
// filesystem access to (spec §4.E file tools).
func (b *Browser) WriteFile(ctx context.Context, path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// ReadFile reads a local file's contents.
func (b *Browser) ReadFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

// ReplaceFile performs a single literal string substitution of old with
// new inside the file at path, failing if old does not appear exactly once
// (ambiguous or absent edits are rejected rather than guessed at).
func (b *Browser) ReplaceFile(ctx context.Context, path, old, new string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	content := string(data)
	count := strings.Count(content, old)
	if count == 0 {
		return fmt.Errorf("text to replace not found in %s", path)
	}
	if count > 1 {
		return fmt.Errorf("text to replace is not unique in %s (%d occurrences)", path, count)
	}
	updated := strings.Replace(content, old, new, 1)
	return os.WriteFile(path, []byte(updated), 0o644)
}
