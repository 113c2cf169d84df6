// Package locator implements the Locator Resolver (spec §4.K): turning a
// natural-language element description ("the blue Submit button") into the
// 1-based interactive element index the registry's click/input actions
// expect, by asking the model to pick from the current serialised listing.
package locator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/genai"
)

// Config holds Resolver configuration.
type Config struct {
	// APIKey is the Gemini API key. If empty, the caller is expected to
	// have set GOOGLE_API_KEY in the environment before constructing the
	// underlying genai.Client.
	APIKey string

	// Model is the model ID used for resolution calls. A small, fast model
	// is sufficient since the task is a single classification, not
	// open-ended reasoning. Default: "gemini-2.5-flash".
	Model string

	// CacheSize bounds the number of (page, description) -> index
	// resolutions kept in memory. Default: 256.
	CacheSize int
}

// resolution is the JSON shape the model is asked to return.
type resolution struct {
	Thinking     string `json:"thinking"`
	ElementIndex int    `json:"element_index"`
}

// Resolver resolves natural-language descriptions against a page listing.
type Resolver struct {
	client *genai.Client
	model  string
	cache  *lru.Cache[string, int]
}

// New constructs a Resolver. ctx is used only for client construction.
func New(ctx context.Context, cfg Config) (*Resolver, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver client: %w", err)
	}

	cache, err := lru.New[string, int](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution cache: %w", err)
	}

	return &Resolver{client: client, model: cfg.Model, cache: cache}, nil
}

// Resolve asks the model which element in listing best matches
// description, returning its 1-based index. listing is a textual rendering
// of the page's indexed elements (the agent passes
// dom.ElementMap.ToTokenStringLimited's output). Results
// are cached per (listing, description) pair so repeated resolutions
// against an unchanged page don't re-hit the model.
func (r *Resolver) Resolve(ctx context.Context, listing, description string) (int, error) {
	key := cacheKey(listing, description)
	if index, ok := r.cache.Get(key); ok {
		return index, nil
	}

	prompt := fmt.Sprintf(`You are resolving a natural-language element description to an index in a page's interactive element listing.

Listing:
%s

Description: %q

Respond with ONLY a JSON object of the form {"thinking": "<brief reasoning>", "element_index": <int>}.
Use element_index 0 if nothing in the listing matches.`, listing, description)

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: 512,
	})
	if err != nil {
		return 0, fmt.Errorf("resolution call failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return 0, err
	}

	res, err := parseResolution(text)
	if err != nil {
		return 0, fmt.Errorf("failed to parse resolution response: %w", err)
	}
	if res.ElementIndex <= 0 {
		return 0, fmt.Errorf("no element matched description %q", description)
	}

	r.cache.Add(key, res.ElementIndex)
	return res.ElementIndex, nil
}

// Invalidate drops every cached resolution for listing, for use after a
// navigation or DOM mutation that might have changed element indices.
func (r *Resolver) Invalidate(listing string) {
	prefix := sha256.Sum256([]byte(listing))
	prefixHex := hex.EncodeToString(prefix[:])
	for _, key := range r.cache.Keys() {
		if strings.HasPrefix(key, prefixHex) {
			r.cache.Remove(key)
		}
	}
}

func cacheKey(listing, description string) string {
	h := sha256.New()
	h.Write([]byte(listing))
	listingHash := hex.EncodeToString(h.Sum(nil))
	descHash := sha256.Sum256([]byte(description))
	return listingHash + hex.EncodeToString(descHash[:])
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty resolution response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("resolution response contained no text")
	}
	return sb.String(), nil
}

// parseResolution extracts the JSON object from text, tolerating a
// surrounding ```json fenced block the way models commonly emit one even
// when asked for raw JSON.
func parseResolution(text string) (resolution, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return resolution{}, fmt.Errorf("no JSON object found in response")
	}

	var res resolution
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &res); err != nil {
		return resolution{}, err
	}
	return res, nil
}
