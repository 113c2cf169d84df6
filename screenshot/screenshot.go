// Package screenshot captures, annotates and persists browser screenshots.
package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/anxuanzi/bua-go/dom"
)

// AnnotationStyle controls how bounding boxes are drawn onto a screenshot
// when Manager.Annotate is called. Annotate reads only BoxWidth and
// BoxColor; the label and text fields are not drawn.
type AnnotationStyle struct {
	BoxWidth   float64
	FontSize   float64
	ShowIndex  bool
	ShowRole   bool
	BoxColor   color.Color
	LabelColor color.Color
	TextColor  color.Color
}

// DefaultAnnotationStyle returns the default box/label styling used when a
// Config does not set one explicitly.
func DefaultAnnotationStyle() *AnnotationStyle {
	return &AnnotationStyle{
		BoxWidth:   2,
		FontSize:   12,
		ShowIndex:  true,
		ShowRole:   false,
		BoxColor:   color.RGBA{R: 255, G: 0, B: 0, A: 255},
		LabelColor: color.RGBA{R: 255, G: 0, B: 0, A: 200},
		TextColor:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Config configures a Manager.
type Config struct {
	// Enabled is carried for callers; neither Manager nor the browser
	// package reads it, and capture is not switched off when it is false.
	Enabled bool
	// Annotate requests bounding-box overlays on captured screenshots.
	Annotate bool
	// StorageDir persists screenshots to disk when non-empty. Created on
	// first use if missing.
	StorageDir string
	// MaxScreenshots caps how many files Save keeps in StorageDir; the
	// oldest are removed once the count is exceeded. Zero means unbounded.
	MaxScreenshots int
	// ImageFormat is "png" (default) or "jpeg".
	ImageFormat string
	// Quality is a JPEG quality (1-100). Manager stores it but does not
	// encode images: Save writes the bytes it is given unchanged.
	Quality int
	// AnnotationStyle overrides the default box/label styling.
	AnnotationStyle *AnnotationStyle
}

// Manager captures, annotates, and stores screenshots for one browser
// session. All exported methods are safe to call from the agent loop's
// single goroutine; Manager holds no internal lock because the caller
// already serialises access through the step loop (spec §5).
type Manager struct {
	config Config
}

// NewManager constructs a Manager, defaulting ImageFormat to "png", Quality
// to 90, and AnnotationStyle to DefaultAnnotationStyle when unset. When
// cfg.StorageDir is non-empty the directory is created immediately.
func NewManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	if c.ImageFormat == "" {
		c.ImageFormat = "png"
	}
	if c.Quality == 0 {
		c.Quality = 90
	}
	if c.AnnotationStyle == nil {
		c.AnnotationStyle = DefaultAnnotationStyle()
	}
	if c.StorageDir != "" {
		_ = os.MkdirAll(c.StorageDir, 0o755)
	}
	return &Manager{config: c}
}

// Annotate draws a bounding-box outline (no index label) over every
// visible, non-degenerate element in em onto a PNG-encoded screenshot. em is
// nil-safe: a nil or empty ElementMap returns data unmodified.
func (m *Manager) Annotate(data []byte, em *dom.ElementMap) ([]byte, error) {
	if em == nil || em.Count() == 0 {
		return data, nil
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		// Nothing we can draw onto; return the original bytes so callers
		// can still use the raw screenshot.
		return data, nil
	}

	bounds := src.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	style := m.config.AnnotationStyle
	if style == nil {
		style = DefaultAnnotationStyle()
	}

	drawn := false
	for _, el := range em.Elements {
		if !el.IsVisible {
			continue
		}
		box := el.BoundingBox
		if box.Width <= 0 || box.Height <= 0 {
			continue
		}
		drawBox(out, box, style)
		drawn = true
	}
	if !drawn {
		return data, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode annotated screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBox renders the outline of box at the configured width.
func drawBox(img *image.RGBA, box dom.BoundingBox, style *AnnotationStyle) {
	width := int(style.BoxWidth)
	if width < 1 {
		width = 1
	}
	x0, y0 := int(box.X), int(box.Y)
	x1, y1 := int(box.X+box.Width), int(box.Y+box.Height)
	bounds := img.Bounds()

	hLine := func(y int) {
		for x := x0; x < x1; x++ {
			for w := 0; w < width; w++ {
				setIfInBounds(img, bounds, x, y+w, style.BoxColor)
			}
		}
	}
	vLine := func(x int) {
		for y := y0; y < y1; y++ {
			for w := 0; w < width; w++ {
				setIfInBounds(img, bounds, x+w, y, style.BoxColor)
			}
		}
	}
	hLine(y0)
	hLine(y1 - width)
	vLine(x0)
	vLine(x1 - width)
}

func setIfInBounds(img *image.RGBA, bounds image.Rectangle, x, y int, c color.Color) {
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}
	img.Set(x, y, c)
}

// Save writes data to StorageDir under a sanitised, timestamped filename
// and enforces MaxScreenshots by deleting the oldest files. Returns an
// error if no StorageDir is configured.
func (m *Manager) Save(data []byte, name string) (string, error) {
	if m.config.StorageDir == "" {
		return "", fmt.Errorf("screenshot: no storage directory configured")
	}
	if err := os.MkdirAll(m.config.StorageDir, 0o755); err != nil {
		return "", fmt.Errorf("screenshot: failed to create storage dir: %w", err)
	}

	ext := ".png"
	if strings.EqualFold(m.config.ImageFormat, "jpeg") || strings.EqualFold(m.config.ImageFormat, "jpg") {
		ext = ".jpg"
	}

	stamp := time.Now().Format("20060102T150405.000000000")
	filename := fmt.Sprintf("%s_%s%s", sanitizeFilename(name), stamp, ext)
	path := filepath.Join(m.config.StorageDir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("screenshot: failed to write file: %w", err)
	}

	m.cleanup()
	return path, nil
}

// List returns the stored screenshot paths in StorageDir, or nil when no
// StorageDir is configured.
func (m *Manager) List() ([]string, error) {
	if m.config.StorageDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(m.config.StorageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("screenshot: failed to list storage dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isScreenshotFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(m.config.StorageDir, e.Name()))
	}
	return paths, nil
}

// Clear removes every screenshot file in StorageDir, leaving other files
// untouched.
func (m *Manager) Clear() error {
	if m.config.StorageDir == "" {
		return nil
	}
	paths, err := m.List()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("screenshot: failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// cleanup trims StorageDir down to MaxScreenshots entries, oldest first.
func (m *Manager) cleanup() {
	if m.config.MaxScreenshots <= 0 || m.config.StorageDir == "" {
		return
	}
	entries, err := os.ReadDir(m.config.StorageDir)
	if err != nil {
		return
	}

	type fileInfo struct {
		name    string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() || !isScreenshotFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: e.Name(), modTime: info.ModTime()})
	}
	if len(files) <= m.config.MaxScreenshots {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	excess := len(files) - m.config.MaxScreenshots
	for i := 0; i < excess; i++ {
		_ = os.Remove(filepath.Join(m.config.StorageDir, files[i].name))
	}
}

var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// sanitizeFilename maps spaces to underscores, strips every other
// character outside [a-zA-Z0-9_-], and caps the result at 50 bytes. An
// empty input, or one with nothing left after stripping, becomes
// "screenshot".
func sanitizeFilename(name string) string {
	if name == "" {
		return "screenshot"
	}
	replaced := strings.Map(func(r rune) rune {
		if r == ' ' {
			return '_'
		}
		return r
	}, name)
	clean := filenameUnsafe.ReplaceAllString(replaced, "")
	if clean == "" {
		// All characters were unsafe (pure whitespace already mapped to
		// underscores survives; this branch covers pure punctuation).
		clean = "screenshot"
	}
	if len(clean) > 50 {
		clean = clean[:50]
	}
	return clean
}

// isScreenshotFile reports whether name has a recognised screenshot
// extension (case-sensitive: .png, .jpg, .jpeg).
func isScreenshotFile(name string) bool {
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
