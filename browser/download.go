package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anxuanzi/bua-go/events"
)

// DownloadConfig controls where and how downloaded files are stored.
type DownloadConfig struct {
	Dir         string        // target directory; created if missing
	MaxBytes    int64         // 0 means unlimited
	HTTPTimeout time.Duration // only used by DownloadFile's direct HTTP path
}

// DefaultDownloadConfig returns the conventional download location used by
// the download_file tool: ~/.bua/downloads.
func DefaultDownloadConfig() DownloadConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return DownloadConfig{
		Dir:         filepath.Join(home, ".bua", "downloads"),
		MaxBytes:    0,
		HTTPTimeout: 2 * time.Minute,
	}
}

// DownloadInfo describes a completed download.
type DownloadInfo struct {
	Filename string
	FilePath string
	Size     int64
	MimeType string
}

// SetEventBus wires an event bus into the browser so downloads, crashes, and
// navigation can be observed by watchdogs (spec §4.G). Passing nil disables
// emission; Browser works fine with no bus attached.
func (b *Browser) SetEventBus(bus *events.Bus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bus = bus
}

func (b *Browser) emitLocked(ctx context.Context, typ events.Type, payload any) {
	if b.bus != nil {
		b.bus.Emit(ctx, typ, payload)
	}
}

// DownloadResource downloads url using the active page's browser context, so
// the page's cookies and session carry over. This is the path for
// authenticated downloads (e.g. a file behind a login) that a bare HTTP GET
// would 401 on.
func (b *Browser) DownloadResource(ctx context.Context, rawURL string, cfg DownloadConfig) (*DownloadInfo, error) {
	b.mu.Lock()
	page := b.getActivePageLocked()
	b.mu.Unlock()
	if page == nil {
		return nil, fmt.Errorf("no active page")
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	browserCtx := page.Browser()
	wait := browserCtx.WaitDownload(cfg.Dir)

	_, err := page.Eval(fmt.Sprintf(`(function(){
		const a = document.createElement('a');
		a.href = %q;
		a.download = '';
		document.body.appendChild(a);
		a.click();
		a.remove();
	})()`, rawURL))
	if err != nil {
		return nil, fmt.Errorf("failed to trigger download: %w", err)
	}

	info := wait()
	if info == nil {
		return nil, fmt.Errorf("download did not complete")
	}

	finalPath := filepath.Join(cfg.Dir, info.GUID)
	stat, statErr := os.Stat(finalPath)
	var size int64
	if statErr == nil {
		size = stat.Size()
	}

	name := filenameFromSuggestedOrURL(info.SuggestedFilename, rawURL)
	result := &DownloadInfo{
		Filename: name,
		FilePath: finalPath,
		Size:     size,
		MimeType: mimeFromExtension(name),
	}

	b.mu.Lock()
	b.emitLocked(ctx, events.FileDownloaded, result)
	b.mu.Unlock()

	return result, nil
}

// DownloadFile downloads url with a direct, unauthenticated HTTP GET — no
// browser context, no cookies. Use this when the resource is public.
func (b *Browser) DownloadFile(ctx context.Context, rawURL string, cfg DownloadConfig) (*DownloadInfo, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid download URL: %w", err)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("download request failed: status %d", resp.StatusCode)
	}

	name := filenameFromResponse(resp, rawURL)
	destPath := filepath.Join(cfg.Dir, name)

	f, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = resp.Body
	if cfg.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, cfg.MaxBytes+1)
	}

	written, err := io.Copy(f, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to write download: %w", err)
	}
	if cfg.MaxBytes > 0 && written > cfg.MaxBytes {
		os.Remove(destPath)
		return nil, fmt.Errorf("download exceeded max size of %d bytes", cfg.MaxBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mimeFromExtension(name)
	}

	result := &DownloadInfo{
		Filename: name,
		FilePath: destPath,
		Size:     written,
		MimeType: mimeType,
	}

	b.mu.Lock()
	b.emitLocked(ctx, events.FileDownloaded, result)
	b.mu.Unlock()

	return result, nil
}

func filenameFromResponse(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := parseContentDisposition(cd); err == nil {
			if name, ok := params["filename"]; ok && name != "" {
				return sanitizeDownloadName(name)
			}
		}
	}
	return filenameFromSuggestedOrURL("", rawURL)
}

// parseContentDisposition extracts the filename parameter from a
// Content-Disposition header without pulling in mime.ParseMediaType's full
// RFC 2231 handling, which this single use case doesn't need.
func parseContentDisposition(header string) (string, map[string]string, error) {
	parts := strings.Split(header, ";")
	disposition := strings.TrimSpace(parts[0])
	params := map[string]string{}
	for _, part := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.Trim(strings.TrimSpace(kv[1]), `"`)
		params[key] = val
	}
	return disposition, params, nil
}

func filenameFromSuggestedOrURL(suggested, rawURL string) string {
	if suggested != "" {
		return sanitizeDownloadName(filepath.Base(suggested))
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		base := filepath.Base(parsed.Path)
		if base != "" && base != "." && base != "/" {
			return sanitizeDownloadName(base)
		}
	}
	return "download-" + uuid.New().String()[:8]
}

func sanitizeDownloadName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "download-" + uuid.New().String()[:8]
	}
	return name
}

func mimeFromExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".zip":
		return "application/zip"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

