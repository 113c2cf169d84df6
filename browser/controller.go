package browser

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anxuanzi/bua-go/registry"
)

// ControllerAdapter exposes *Browser as a registry.Controller. It exists
// because Browser's method surface grew organically (deltaX/deltaY scroll,
// element-index clicks, a dedicated screenshot pipeline) while the registry
// speaks the model's vocabulary (named directions, clear/submit flags,
// format/quality screenshots); the adapter is where that translation lives
// so neither side has to compromise its own idiom.
type ControllerAdapter struct {
	b *Browser
}

// AsController wraps b so a registry.Registry can drive it.
func AsController(b *Browser) *ControllerAdapter {
	return &ControllerAdapter{b: b}
}

var _ registry.Controller = (*ControllerAdapter)(nil)

func (c *ControllerAdapter) Navigate(ctx context.Context, url string, newTab bool) error {
	if newTab {
		_, err := c.b.NewTab(ctx, url)
		return err
	}
	return c.b.Navigate(ctx, url)
}

func (c *ControllerAdapter) GoBack(ctx context.Context) error    { return c.b.GoBack(ctx) }
func (c *ControllerAdapter) GoForward(ctx context.Context) error { return c.b.GoForward(ctx) }
func (c *ControllerAdapter) Reload(ctx context.Context) error    { return c.b.Reload(ctx) }

func (c *ControllerAdapter) Click(ctx context.Context, index int) error {
	return c.b.Click(ctx, index)
}

func (c *ControllerAdapter) Input(ctx context.Context, index int, value string, clear, submit bool) error {
	return c.b.Input(ctx, index, value, clear, submit)
}

// Scroll converts the registry's direction/pages vocabulary into the pixel
// deltas Browser.Scroll and Browser.ScrollInElement expect. A pages value of
// 1.0 means one full viewport.
func (c *ControllerAdapter) Scroll(ctx context.Context, direction string, pages float64, containerIndex int) error {
	if pages <= 0 {
		pages = 1
	}
	width, height := c.b.viewportSize()

	var deltaX, deltaY float64
	switch direction {
	case "down":
		deltaY = height * pages
	case "up":
		deltaY = -height * pages
	case "right":
		deltaX = width * pages
	case "left":
		deltaX = -width * pages
	default:
		return fmt.Errorf("unsupported scroll direction %q", direction)
	}

	if containerIndex > 0 {
		return c.b.ScrollInElement(ctx, containerIndex, deltaX, deltaY)
	}
	return c.b.Scroll(ctx, deltaX, deltaY)
}

func (c *ControllerAdapter) FindText(ctx context.Context, query string) (int, bool, error) {
	return c.b.FindText(ctx, query)
}

// Screenshot returns a base64-encoded image. Format "png" captures the
// full-fidelity viewport PNG; "jpeg" (the default) returns the resized,
// compressed JPEG used to keep screenshots cheap in a model's context.
func (c *ControllerAdapter) Screenshot(ctx context.Context, format string, quality int) (string, error) {
	switch format {
	case "png":
		data, err := c.b.Screenshot(ctx)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(data), nil
	case "jpeg", "":
		if quality <= 0 {
			quality = 60
		}
		data, err := c.b.ScreenshotForLLM(ctx, 0, quality)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return "", fmt.Errorf("unsupported screenshot format %q", format)
	}
}

func (c *ControllerAdapter) Evaluate(ctx context.Context, fn string, args []any) (string, error) {
	return c.b.Evaluate(ctx, fn, args)
}

func (c *ControllerAdapter) Extract(ctx context.Context, selector, format string) (string, error) {
	return c.b.Extract(ctx, selector, format)
}

func (c *ControllerAdapter) Wait(ctx context.Context, seconds float64) error {
	return c.b.Wait(ctx, seconds)
}

func (c *ControllerAdapter) SelectDropdown(ctx context.Context, index int, option string) error {
	return c.b.SelectDropdown(ctx, index, option)
}

func (c *ControllerAdapter) DropdownOptions(ctx context.Context, index int) ([]string, error) {
	return c.b.DropdownOptions(ctx, index)
}

func (c *ControllerAdapter) UploadFile(ctx context.Context, index int, path string) error {
	return c.b.UploadFile(ctx, index, path)
}

func (c *ControllerAdapter) SendKeys(ctx context.Context, keys string) error {
	return c.b.SendKeys(ctx, keys)
}

func (c *ControllerAdapter) SwitchTab(ctx context.Context, tabID string) error {
	return c.b.SwitchTab(ctx, tabID)
}

func (c *ControllerAdapter) CloseTab(ctx context.Context, tabID string) error {
	return c.b.CloseTab(ctx, tabID)
}

func (c *ControllerAdapter) WriteFile(ctx context.Context, path, content string) error {
	return c.b.WriteFile(ctx, path, content)
}

func (c *ControllerAdapter) ReadFile(ctx context.Context, path string) (string, error) {
	return c.b.ReadFile(ctx, path)
}

func (c *ControllerAdapter) ReplaceFile(ctx context.Context, path, old, new string) error {
	return c.b.ReplaceFile(ctx, path, old, new)
}

// viewportSize returns the configured viewport, falling back to the same
// 1280x800 default Scroll's highlight logic uses when none is set.
func (b *Browser) viewportSize() (width, height float64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.config.Viewport != nil {
		return float64(b.config.Viewport.Width), float64(b.config.Viewport.Height)
	}
	return 1280, 800
}
