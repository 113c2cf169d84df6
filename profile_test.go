package bua

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadProfileSettings_MissingFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()

	settings, err := LoadProfileSettings(dir, "does-not-exist")
	if err != nil {
		t.Fatalf("LoadProfileSettings() error = %v", err)
	}
	if settings.Model != "" || settings.ViewportWidth != 0 {
		t.Errorf("expected zero-value settings for a missing profile, got %+v", settings)
	}
}

func TestSaveAndLoadProfileSettings_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	want := &ProfileSettings{
		Model:          "gemini-3-flash-preview",
		ViewportWidth:  1280,
		ViewportHeight: 800,
		MaxElements:    150,
		LastUsed:       time.Now().Format(time.RFC3339),
	}

	if err := SaveProfileSettings(dir, "work", want); err != nil {
		t.Fatalf("SaveProfileSettings() error = %v", err)
	}

	if _, err := filepath.Glob(filepath.Join(dir, "work.yaml")); err != nil {
		t.Fatalf("glob error = %v", err)
	}

	got, err := LoadProfileSettings(dir, "work")
	if err != nil {
		t.Fatalf("LoadProfileSettings() error = %v", err)
	}
	if *got != *want {
		t.Errorf("LoadProfileSettings() = %+v, want %+v", got, want)
	}
}

func TestApplyProfileSettings_ExplicitConfigWins(t *testing.T) {
	cfg := Config{Model: "gemini-3-pro-preview"}
	settings := &ProfileSettings{Model: "gemini-2.5-flash", MaxElements: 200}

	applyProfileSettings(&cfg, settings)

	if cfg.Model != "gemini-3-pro-preview" {
		t.Errorf("explicit Model should win, got %q", cfg.Model)
	}
	if cfg.MaxElements != 200 {
		t.Errorf("zero-valued MaxElements should be filled from settings, got %d", cfg.MaxElements)
	}
}

func TestApplyProfileSettings_FillsViewportFromSettings(t *testing.T) {
	cfg := Config{}
	settings := &ProfileSettings{ViewportWidth: 1920, ViewportHeight: 1080}

	applyProfileSettings(&cfg, settings)

	if cfg.Viewport == nil || cfg.Viewport.Width != 1920 || cfg.Viewport.Height != 1080 {
		t.Errorf("expected viewport filled from settings, got %+v", cfg.Viewport)
	}
}

func TestSettingsFromConfig_CapturesProfileRelevantFields(t *testing.T) {
	cfg := Config{
		Model:    "gemini-3-flash-preview",
		Viewport: &Viewport{Width: 1280, Height: 800},
		TextOnly: true,
	}
	now := time.Now()

	settings := settingsFromConfig(cfg, now)

	if settings.Model != cfg.Model {
		t.Errorf("Model = %q, want %q", settings.Model, cfg.Model)
	}
	if settings.ViewportWidth != 1280 || settings.ViewportHeight != 800 {
		t.Errorf("viewport not captured, got %+v", settings)
	}
	if !settings.TextOnly {
		t.Error("expected TextOnly to be captured")
	}
	if settings.LastUsed != now.Format(time.RFC3339) {
		t.Errorf("LastUsed = %q, want %q", settings.LastUsed, now.Format(time.RFC3339))
	}
}
