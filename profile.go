package bua

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProfileSettings is the human-editable, YAML-persisted counterpart to a
// named profile's Chromium user-data-dir. It carries the non-Chromium
// preferences that should survive between runs of the same named profile
// (viewport, model, token budget) without requiring callers to repeat them
// on every Config.
type ProfileSettings struct {
	Model              string `yaml:"model,omitempty"`
	ViewportWidth      int    `yaml:"viewport_width,omitempty"`
	ViewportHeight     int    `yaml:"viewport_height,omitempty"`
	MaxElements        int    `yaml:"max_elements,omitempty"`
	ScreenshotMaxWidth int    `yaml:"screenshot_max_width,omitempty"`
	ScreenshotQuality  int    `yaml:"screenshot_quality,omitempty"`
	TextOnly           bool   `yaml:"text_only,omitempty"`
	LastUsed           string `yaml:"last_used,omitempty"`
}

// profilePath returns the YAML file backing name under dir (~/.bua/profiles
// by default, same base as the Chromium user-data-dir).
func profilePath(dir, name string) string {
	return filepath.Join(dir, name+".yaml")
}

// LoadProfileSettings reads the persisted settings for name under dir. A
// missing file is not an error — it returns the zero value, so first use of
// a new profile name just falls back to Config's own defaults.
func LoadProfileSettings(dir, name string) (*ProfileSettings, error) {
	data, err := os.ReadFile(profilePath(dir, name))
	if os.IsNotExist(err) {
		return &ProfileSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile %q: %w", name, err)
	}

	var settings ProfileSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", name, err)
	}
	return &settings, nil
}

// SaveProfileSettings writes settings for name under dir, creating dir if
// needed.
func SaveProfileSettings(dir, name string, settings *ProfileSettings) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal profile %q: %w", name, err)
	}

	if err := os.WriteFile(profilePath(dir, name), data, 0644); err != nil {
		return fmt.Errorf("write profile %q: %w", name, err)
	}
	return nil
}

// applyProfileSettings fills any zero-valued fields of cfg from settings,
// so an explicit Config field always wins over a persisted one.
func applyProfileSettings(cfg *Config, settings *ProfileSettings) {
	if settings == nil {
		return
	}
	if cfg.Model == "" {
		cfg.Model = settings.Model
	}
	if cfg.Viewport == nil && settings.ViewportWidth > 0 && settings.ViewportHeight > 0 {
		cfg.Viewport = &Viewport{Width: settings.ViewportWidth, Height: settings.ViewportHeight}
	}
	if cfg.MaxElements == 0 {
		cfg.MaxElements = settings.MaxElements
	}
	if cfg.ScreenshotMaxWidth == 0 {
		cfg.ScreenshotMaxWidth = settings.ScreenshotMaxWidth
	}
	if cfg.ScreenshotQuality == 0 {
		cfg.ScreenshotQuality = settings.ScreenshotQuality
	}
	if !cfg.TextOnly {
		cfg.TextOnly = settings.TextOnly
	}
}

// settingsFromConfig captures the profile-relevant subset of cfg for
// persistence, stamping the current time as LastUsed.
func settingsFromConfig(cfg Config, now time.Time) *ProfileSettings {
	settings := &ProfileSettings{
		Model:             cfg.Model,
		MaxElements:       cfg.MaxElements,
		ScreenshotQuality: cfg.ScreenshotQuality,
		TextOnly:          cfg.TextOnly,
		LastUsed:          now.Format(time.RFC3339),
	}
	if cfg.Viewport != nil {
		settings.ViewportWidth = cfg.Viewport.Width
		settings.ViewportHeight = cfg.Viewport.Height
	}
	if cfg.ScreenshotMaxWidth > 0 {
		settings.ScreenshotMaxWidth = cfg.ScreenshotMaxWidth
	}
	return settings
}
