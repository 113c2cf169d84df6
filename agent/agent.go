// Package agent provides the ADK-based browser automation agent.
package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"google.golang.org/genai"

	"github.com/anxuanzi/bua-go/browser"
	"github.com/anxuanzi/bua-go/dom"
	"github.com/anxuanzi/bua-go/locator"
	"github.com/anxuanzi/bua-go/memory"
	"github.com/anxuanzi/bua-go/registry"
)

// toolSpec is the canonical name/usage/description metadata for one ADK
// tool exposed to the model. createBrowserTools and SystemPrompt both read
// from browserToolSpecs so the tool table and the prompt's <available_tools>
// listing can never drift apart (spec §4.F, §9: the system prompt and the
// dispatch table are generated from the same metadata, not hand-maintained
// separately).
type toolSpec struct {
	Name        string
	Usage       string
	Description string
}

var browserToolSpecs = []toolSpec{
	{Name: "click", Usage: "click(element_index)", Description: "Click on an element by its index number shown in the annotated screenshot and element map. If the index isn't known, pass element_description instead and it will be resolved against the current page."},
	{Name: "type_text", Usage: "type_text(element_index, text)", Description: "Type text into an input field. First clicks the element to focus it, then types the text. If the index isn't known, pass element_description instead and it will be resolved against the current page."},
	{Name: "scroll", Usage: "scroll(direction, amount?, element_id?, auto_detect?)", Description: "Scroll the page or a scrollable container. After clicking a button that opened a modal/popup, use EITHER: (1) element_id if you know the scrollable container's index, OR (2) auto_detect=true to automatically find and scroll the modal. Without either option, this scrolls the main page which won't work for modal content like a comments panel."},
	{Name: "navigate", Usage: "navigate(url)", Description: "Navigate to a specific URL."},
	{Name: "wait", Usage: "wait(reason)", Description: "Wait for the page to stabilize after an action or for dynamic content to load."},
	{Name: "get_page_state", Usage: "get_page_state()", Description: "Get the current page state including URL, title, and interactive elements. Call this to see what's on the page."},
	{Name: "new_tab", Usage: "new_tab(url)", Description: "Open a new browser tab with the specified URL. Returns the tab ID for later reference."},
	{Name: "switch_tab", Usage: "switch_tab(tab_id)", Description: "Switch to a different browser tab by its ID. Use list_tabs to see available tabs."},
	{Name: "close_tab", Usage: "close_tab(tab_id)", Description: "Close a browser tab by its ID."},
	{Name: "list_tabs", Usage: "list_tabs()", Description: "List all open browser tabs with their IDs, URLs, and titles."},
	{Name: "download_file", Usage: "download_file(url, use_page_auth?)", Description: "Download a file from a URL. Use use_page_auth=true to use the browser's cookies and authentication context for authenticated downloads."},
	{Name: "request_human_takeover", Usage: "request_human_takeover(reason)", Description: "Request a human to take over for tasks like login, CAPTCHA, or other actions requiring human intervention."},
	{Name: "done", Usage: "done(success, summary, data?)", Description: "Indicate that the task is complete. Set success=true if the task was accomplished, false otherwise."},
	{Name: "extract", Usage: "extract(selector?, format?)", Description: "Extract page content as text or markdown, optionally scoped to a CSS selector. Recorded as a finding for later retrieval."},
	{Name: "find_text", Usage: "find_text(query)", Description: "Search the current page listing for text and report the matching element's index, if found."},
	{Name: "select_dropdown", Usage: "select_dropdown(element_index, option)", Description: "Select an option by its visible text in the <select> element at the given index."},
	{Name: "upload_file", Usage: "upload_file(element_index, path)", Description: "Upload a local file into the <input type=file> element at the given index."},
	{Name: "send_keys", Usage: "send_keys(keys)", Description: "Send one named key (Enter, Escape, Tab, Backspace, Delete, ArrowUp, ArrowDown, ArrowLeft, ArrowRight, Home, End, PageUp, PageDown) to the currently focused element. Key combinations such as \"Control+A\" are not supported."},
	{Name: "write_file", Usage: "write_file(path, content)", Description: "Write content to a local file path, e.g. to stash extracted data for later reference."},
	{Name: "read_file", Usage: "read_file(path)", Description: "Read a local file path's content back."},
	{Name: "replace_file", Usage: "replace_file(path, old, new)", Description: "Replace a string that occurs exactly once in a local file with another string; fails if it is absent or occurs more than once."},
}

// toolSpecFor looks up a tool's shared metadata by name. Callers only ever
// pass names declared in browserToolSpecs above, so a miss indicates the
// table and createBrowserTools have drifted apart rather than bad input.
func toolSpecFor(name string) toolSpec {
	for _, s := range browserToolSpecs {
		if s.Name == name {
			return s
		}
	}
	panic(fmt.Sprintf("agent: no toolSpec registered for %q", name))
}

// Config holds agent configuration.
type Config struct {
	// APIKey is the Gemini API key.
	APIKey string

	// Model is the model ID to use.
	Model string

	// MaxIterations is the maximum number of agent loop iterations.
	MaxIterations int

	// MaxTokens is the maximum context window size.
	MaxTokens int

	// Debug enables verbose logging.
	Debug bool

	// ShowAnnotations enables visual element annotations before actions.
	ShowAnnotations bool

	// ScreenshotDir is the directory to save annotated screenshots.
	ScreenshotDir string

	// ScreenshotMode controls when screenshots are sent to the model.
	// "normal" (default): Only in get_page_state responses
	// "smart": After each action + in get_page_state responses
	ScreenshotMode string

	// MaxElements limits elements sent to LLM (0 or less means the default of 150).
	// Critical for staying within context limits - 500 elements can use 50K+ tokens.
	MaxElements int

	// ScreenshotMaxWidth is the max width for LLM screenshots (default 800).
	// Smaller = fewer tokens. 800px is readable while being ~10x smaller than full size.
	ScreenshotMaxWidth int

	// ScreenshotQuality is JPEG quality for LLM screenshots (default 60, range 1-100).
	// Lower = smaller file but more artifacts. 60 is good balance.
	ScreenshotQuality int

	// TextOnly disables all screenshot capture for faster, lower-token operation.
	// When enabled, the agent relies only on element map text data.
	// Best for: text extraction, form filling, simple navigation where visual context isn't needed.
	TextOnly bool
}

// BrowserAgent wraps an ADK agent with browser automation capabilities.
type BrowserAgent struct {
	config   Config
	browser  *browser.Browser
	adkAgent agent.Agent
	logger   *Logger
	tools    []tool.Tool

	// findings accumulates structured extractions the task reports via the
	// extract action/tool, so a caller can retrieve them after the run
	// without having to parse the final "done" summary text.
	findings   []map[string]any
	findingsMu sync.RWMutex

	// scrollHistory is the 10-slot ring buffer the anti-oscillation check
	// reads (spec §4.I step 8): recent scroll directions with timestamps,
	// used to detect a model stuck alternating up/down without progress.
	scrollHistory   []scrollRecord
	scrollHistoryMu sync.Mutex

	// resolver resolves a natural-language element_description into an
	// index when the model doesn't already know the element map index
	// (spec §4.K), so click/type aren't limited to index-only targeting.
	resolver *locator.Resolver

	// composer tracks the single replaceable "current state" message and
	// trimmed observation history (spec §4.H). ADK manages the actual
	// multi-turn conversation sent to the model; composer mirrors it so
	// Render can be used for debug logging and so the history-trim policy
	// lives in one place rather than duplicated per tool handler.
	composer   *Composer
	composerMu sync.Mutex

	// mem is the cross-task long-term memory and per-task short-term
	// observation window (spec §3's BrowserStateSummary/Agent Loop split).
	mem *memory.Manager

	// reg is the Action Registry (spec §4.F): the single dispatch table
	// every ADK tool handler with a clean registry equivalent delegates
	// its business logic to, via controller. Tools with no registry
	// equivalent (scroll's modal auto-detection, wait's page-stabilize
	// semantics, multi-tab management, done) keep calling a.browser
	// directly, documented at each such handler.
	reg        *registry.Registry
	controller registry.Controller
}

// SetTask (re)initialises the composer for a new run with prompt as the
// task message. Must be called before the run's first get_page_state.
func (a *BrowserAgent) SetTask(prompt string) {
	a.composerMu.Lock()
	a.composer = NewComposer(DefaultComposerConfig(), SystemPrompt(), prompt)
	a.composerMu.Unlock()

	if a.mem != nil {
		a.mem.StartTask(prompt)
	}
}

// recordObservation appends text to the composer's trimmed history and to
// the short-term memory window, a no-op until SetTask has run.
func (a *BrowserAgent) recordObservation(text string) {
	a.composerMu.Lock()
	if a.composer != nil {
		a.composer.AddObservation(text)
	}
	a.composerMu.Unlock()

	if a.mem != nil {
		obs := &memory.Observation{Result: text}
		if a.browser != nil {
			obs.URL = a.browser.GetURL()
			obs.Title = a.browser.GetTitle()
		}
		a.mem.AddObservation(obs)
	}
}

// recordState replaces the composer's current-state message, a no-op
// until SetTask has run.
func (a *BrowserAgent) recordState(in StateInput) {
	a.composerMu.Lock()
	defer a.composerMu.Unlock()
	if a.composer != nil {
		a.composer.SetState(in)
	}
}

// scrollRecord is one entry in BrowserAgent.scrollHistory.
type scrollRecord struct {
	direction string
	at        time.Time
}

// antiOscillationWindow is the time window spec §4.I step 6 checks for
// scroll-direction alternation.
const antiOscillationWindow = 6 * time.Second

// scrollHistorySize bounds scrollHistory to the ring buffer size spec
// §4.I step 8 calls for.
const scrollHistorySize = 10

// New creates a new browser agent.
func New(cfg Config, b *browser.Browser) *BrowserAgent {
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 50
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1048576 // gemini-3-flash-preview input limit
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-3-flash-preview"
	}

	return &BrowserAgent{
		config:     cfg,
		browser:    b,
		logger:     NewLogger(cfg.Debug),
		findings:   make([]map[string]any, 0),
		mem:        memory.NewManager(&memory.Config{StorageDir: defaultMemoryDir()}),
		reg:        registry.Default(),
		controller: browser.AsController(b),
	}
}

// execRegistry runs actionType through the Action Registry against this
// agent's browser controller, translating the result into the simple
// (message, error) shape the ADK tool handlers already return.
func (a *BrowserAgent) execRegistry(ctx context.Context, actionType string, params map[string]any) (registry.ActionResult, error) {
	return a.reg.Execute(ctx, registry.Action{Type: actionType, Params: params}, a.controller)
}

// defaultMemoryDir mirrors browser.DefaultDownloadConfig's ~/.bua/<thing>
// convention for where the long-term memory table is persisted.
func defaultMemoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bua", "memory")
}

// SaveMemory persists the long-term memory table to disk, for recall in a
// later run. A no-op if no memory manager is configured.
func (a *BrowserAgent) SaveMemory(ctx context.Context) error {
	if a.mem == nil {
		return nil
	}
	dir := defaultMemoryDir()
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create memory directory: %w", err)
		}
	}
	return a.mem.Save(ctx)
}

// AddFinding records a structured extraction for later retrieval.
func (a *BrowserAgent) AddFinding(finding map[string]any) {
	a.findingsMu.Lock()
	defer a.findingsMu.Unlock()
	a.findings = append(a.findings, finding)
}

// GetFindings returns a copy of every finding recorded so far.
func (a *BrowserAgent) GetFindings() []map[string]any {
	a.findingsMu.RLock()
	defer a.findingsMu.RUnlock()
	out := make([]map[string]any, len(a.findings))
	for i, f := range a.findings {
		c := make(map[string]any, len(f))
		for k, v := range f {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

// Init initializes the ADK agent with browser tools.
func (a *BrowserAgent) Init(ctx context.Context) error {
	// Get API key
	apiKey := a.config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	// Create Gemini model
	model, err := gemini.NewModel(ctx, a.config.Model, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini model: %w", err)
	}

	// Load any long-term memory persisted by a previous run.
	if a.mem != nil {
		if err := a.mem.Load(ctx); err != nil {
			a.logger.Error("memory.Load", err)
		}
	}

	// Create the locator resolver. Its own model calls are cheap
	// single-classification round trips, so failure here shouldn't block
	// startup - click/type simply fall back to index-only targeting.
	if resolver, err := locator.New(ctx, locator.Config{APIKey: apiKey}); err == nil {
		a.resolver = resolver
	} else {
		a.logger.Error("locator.New", err)
	}

	// Create browser tools
	tools, err := a.createBrowserTools()
	if err != nil {
		return fmt.Errorf("failed to create browser tools: %w", err)
	}
	a.tools = tools

	// Create ADK agent
	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "browser_automation_agent",
		Model:       model,
		Description: "A browser automation agent that can navigate websites, interact with elements, and extract data.",
		Instruction: SystemPrompt(),
		Tools:       tools,
		GenerateContentConfig: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.2),
			MaxOutputTokens: 16384, // Conservative output limit (model supports 65536)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create ADK agent: %w", err)
	}
	a.adkAgent = adkAgent

	return nil
}

// preAction is called before browser actions to show annotations and capture state.
func (a *BrowserAgent) preAction() {
	if a.browser == nil || !a.config.ShowAnnotations {
		return
	}

	bgCtx := context.Background()

	// Get element map
	elements, err := a.browser.GetElementMap(bgCtx)
	if err != nil {
		a.logger.Error("preAction/GetElementMap", err)
		return
	}

	// Show annotations in browser
	err = a.browser.ShowAnnotations(bgCtx, elements, nil)
	if err != nil {
		a.logger.Error("preAction/ShowAnnotations", err)
	} else {
		a.logger.Annotation(elements.Count())
	}

	// Take screenshot (browser overlay is already visible, no need for Go-based annotations)
	if a.config.ScreenshotDir != "" {
		screenshot, err := a.browser.Screenshot(bgCtx)
		if err != nil {
			a.logger.Error("preAction/Screenshot", err)
			return
		}

		filename := fmt.Sprintf("step_%03d_%s.png",
			a.logger.GetStep()+1,
			time.Now().Format("150405"))
		a.saveScreenshotToFile(screenshot, filename)
	}
}

// resolveElementIndex resolves description against the current element map
// when index is not already known, returning index unchanged if description
// is empty or no resolver is available.
func (a *BrowserAgent) resolveElementIndex(ctx context.Context, index int, description string) (int, error) {
	if index > 0 || description == "" {
		return index, nil
	}
	if a.resolver == nil {
		return 0, fmt.Errorf("element_description given but no locator resolver is available; pass element_index instead")
	}
	elements, err := a.browser.GetElementMap(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read element map for resolution: %w", err)
	}
	resolved, err := a.resolver.Resolve(ctx, elements.ToTokenStringLimited(a.config.MaxElements), description)
	if err != nil {
		return 0, err
	}
	return resolved, nil
}

// recordScroll appends direction to scrollHistory, trimming to the last
// scrollHistorySize entries.
func (a *BrowserAgent) recordScroll(direction string) {
	a.scrollHistoryMu.Lock()
	defer a.scrollHistoryMu.Unlock()

	a.scrollHistory = append(a.scrollHistory, scrollRecord{direction: direction, at: time.Now()})
	if len(a.scrollHistory) > scrollHistorySize {
		a.scrollHistory = a.scrollHistory[len(a.scrollHistory)-scrollHistorySize:]
	}
}

// scrollOscillating reports whether dispatching a scroll in nextDirection
// would bring the recent-action window to at least two direction
// alternations within antiOscillationWindow (spec §4.I step 6) — the
// signature of a model stuck bouncing up/down without progress.
func (a *BrowserAgent) scrollOscillating(nextDirection string) bool {
	a.scrollHistoryMu.Lock()
	defer a.scrollHistoryMu.Unlock()

	cutoff := time.Now().Add(-antiOscillationWindow)
	var recent []string
	for _, r := range a.scrollHistory {
		if r.at.After(cutoff) {
			recent = append(recent, r.direction)
		}
	}
	recent = append(recent, nextDirection)

	alternations := 0
	for i := 1; i < len(recent); i++ {
		if recent[i] != recent[i-1] {
			alternations++
		}
	}
	return alternations >= 2
}

// postAction is called after browser actions to clean up annotations.
func (a *BrowserAgent) postAction() {
	if a.browser == nil || !a.config.ShowAnnotations {
		return
	}

	bgCtx := context.Background()

	// Hide annotations after action
	if err := a.browser.HideAnnotations(bgCtx); err != nil {
		a.logger.Error("postAction/HideAnnotations", err)
	}

	// Wait for page to stabilize
	a.browser.WaitForStable(bgCtx)
}

// saveScreenshotToFile saves screenshot to disk as fallback.
func (a *BrowserAgent) saveScreenshotToFile(data []byte, filename string) {
	path := filepath.Join(a.config.ScreenshotDir, filename)
	if err := os.MkdirAll(a.config.ScreenshotDir, 0755); err != nil {
		a.logger.Error("saveScreenshotToFile/MkdirAll", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		a.logger.Error("saveScreenshotToFile/WriteFile", err)
		return
	}
	a.logger.Screenshot(path, true)
}

// captureScreenshotForResponse captures a compressed screenshot for tool response in smart mode.
// Returns base64-encoded JPEG if smart mode is enabled, empty string otherwise.
func (a *BrowserAgent) captureScreenshotForResponse() string {
	// Skip screenshot capture in TextOnly mode or non-smart mode
	if a.config.TextOnly || a.config.ScreenshotMode != "smart" {
		return ""
	}

	bgCtx := context.Background()

	// Get elements for annotations
	elements, err := a.browser.GetElementMap(bgCtx)
	if err != nil {
		a.logger.Error("captureScreenshotForResponse/GetElementMap", err)
		return ""
	}

	// Show annotations if enabled
	if a.config.ShowAnnotations {
		if err := a.browser.ShowAnnotations(bgCtx, elements, nil); err != nil {
			a.logger.Error("captureScreenshotForResponse/ShowAnnotations", err)
		}
	}

	// Take compressed screenshot for LLM efficiency
	maxWidth := a.config.ScreenshotMaxWidth
	if maxWidth <= 0 {
		maxWidth = 800
	}
	quality := a.config.ScreenshotQuality
	if quality <= 0 {
		quality = 60
	}
	screenshotData, err := a.browser.ScreenshotForLLM(bgCtx, maxWidth, quality)
	if err != nil {
		a.logger.Error("captureScreenshotForResponse/Screenshot", err)
		return ""
	}

	// Hide annotations after screenshot
	if a.config.ShowAnnotations {
		if err := a.browser.HideAnnotations(bgCtx); err != nil {
			a.logger.Error("captureScreenshotForResponse/HideAnnotations", err)
		}
	}

	return base64.StdEncoding.EncodeToString(screenshotData)
}

// createBrowserTools creates the function tools for browser automation.
func (a *BrowserAgent) createBrowserTools() ([]tool.Tool, error) {
	var tools []tool.Tool

	// Click tool
	clickHandler := func(ctx tool.Context, input ClickInput) (ClickOutput, error) {
		if a.browser == nil {
			return ClickOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		bgCtx := context.Background()
		a.preAction()
		defer a.postAction()

		index, err := a.resolveElementIndex(bgCtx, input.ElementIndex, input.ElementDescription)
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return ClickOutput{Success: false, Message: err.Error()}, nil
		}

		a.logger.Click(index, input.Reasoning)

		result, err := a.execRegistry(bgCtx, "click", map[string]any{"index": index})
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return ClickOutput{Success: false, Message: err.Error()}, nil
		}
		if result.Err != nil {
			a.logger.ActionResult(false, result.Err.Message)
			return ClickOutput{Success: false, Message: result.Err.Message}, nil
		}

		msg := result.LongTermMemory
		a.logger.ActionResult(true, msg)
		a.recordObservation(msg)
		return ClickOutput{Success: true, Message: msg, Screenshot: a.captureScreenshotForResponse()}, nil
	}
	clickTool, err := functiontool.New(
		functiontool.Config{
			Name:        "click",
			Description: toolSpecFor("click").Description,
		},
		clickHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create click tool: %w", err)
	}
	tools = append(tools, clickTool)

	// Type tool
	typeHandler := func(ctx tool.Context, input TypeInput) (TypeOutput, error) {
		if a.browser == nil {
			return TypeOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		bgCtx := context.Background()
		a.preAction()
		defer a.postAction()

		index, err := a.resolveElementIndex(bgCtx, input.ElementIndex, input.ElementDescription)
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return TypeOutput{Success: false, Message: err.Error()}, nil
		}

		a.logger.Type(index, input.Text, input.Reasoning)

		result, err := a.execRegistry(bgCtx, "input", map[string]any{
			"index":  index,
			"text":   input.Text,
			"clear":  input.Clear,
			"submit": input.Submit,
		})
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return TypeOutput{Success: false, Message: err.Error()}, nil
		}
		if result.Err != nil {
			a.logger.ActionResult(false, result.Err.Message)
			return TypeOutput{Success: false, Message: result.Err.Message}, nil
		}

		msg := result.LongTermMemory
		a.logger.ActionResult(true, msg)
		a.recordObservation(msg)
		return TypeOutput{Success: true, Message: msg, Screenshot: a.captureScreenshotForResponse()}, nil
	}
	typeTool, err := functiontool.New(
		functiontool.Config{
			Name:        "type_text",
			Description: toolSpecFor("type_text").Description,
		},
		typeHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create type tool: %w", err)
	}
	tools = append(tools, typeTool)

	// Scroll tool
	scrollHandler := func(ctx tool.Context, input ScrollInput) (ScrollOutput, error) {
		if a.browser == nil {
			return ScrollOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		a.preAction()
		defer a.postAction()

		amount := input.Amount
		if amount == 0 {
			amount = 500
		}

		a.logger.Scroll(input.Direction, amount, input.Reasoning)

		var deltaY float64
		switch input.Direction {
		case "up":
			deltaY = -float64(amount)
		case "down":
			deltaY = float64(amount)
		default:
			a.logger.ActionResult(false, "Invalid direction")
			return ScrollOutput{Success: false, Message: "Invalid direction. Use: up or down"}, nil
		}

		if a.scrollOscillating(input.Direction) {
			nudge := "Scrolling is alternating direction without progress. Try find_text to jump directly to the content you need, or pass element_id/auto_detect to scroll within the specific container instead of the page."
			a.logger.ActionResult(false, nudge)
			return ScrollOutput{Success: false, Message: nudge}, nil
		}
		a.recordScroll(input.Direction)

		var err error
		var msg string
		var elementScrolled int

		// Check if we're scrolling within a specific element (e.g., modal, popup)
		if input.ElementID > 0 {
			// Explicit element ID provided
			err = a.browser.ScrollInElement(context.Background(), input.ElementID, 0, deltaY)
			elementScrolled = input.ElementID
			msg = fmt.Sprintf("Scrolled %s by %d pixels within element %d", input.Direction, amount, input.ElementID)
		} else if input.AutoDetect {
			// Auto-detect scrollable modal/container
			elementScrolled, err = a.browser.ScrollInModalAuto(context.Background(), 0, deltaY)
			if elementScrolled > 0 {
				msg = fmt.Sprintf("Auto-detected modal: Scrolled %s by %d pixels within element %d", input.Direction, amount, elementScrolled)
			} else {
				msg = fmt.Sprintf("No modal detected: Scrolled %s by %d pixels on the page", input.Direction, amount)
			}
		} else {
			// Default: scroll the page
			err = a.browser.Scroll(context.Background(), 0, deltaY)
			msg = fmt.Sprintf("Scrolled %s by %d pixels", input.Direction, amount)
		}

		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return ScrollOutput{Success: false, Message: err.Error()}, nil
		}

		a.logger.ActionResult(true, msg)
		a.recordObservation(msg)
		return ScrollOutput{Success: true, Message: msg, ElementScrolled: elementScrolled, Screenshot: a.captureScreenshotForResponse()}, nil
	}
	// scroll stays a direct a.browser call rather than delegating to the
	// registry's "scroll" action: modal auto-detection and the
	// anti-oscillation guard (recordScroll/scrollOscillating) are ADK-loop
	// concerns with no registry Controller equivalent.
	scrollTool, err := functiontool.New(
		functiontool.Config{
			Name:        "scroll",
			Description: toolSpecFor("scroll").Description,
		},
		scrollHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scroll tool: %w", err)
	}
	tools = append(tools, scrollTool)

	// Navigate tool
	navigateHandler := func(ctx tool.Context, input NavigateInput) (NavigateOutput, error) {
		if a.browser == nil {
			return NavigateOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		// Skip preAction for navigate - no meaningful state to capture before loading a new URL
		// postAction will still clean up any annotations from previous actions
		defer a.postAction()

		a.logger.Navigate(input.URL)

		result, err := a.execRegistry(context.Background(), "navigate", map[string]any{"url": input.URL, "new_tab": false})
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return NavigateOutput{Success: false, Message: err.Error()}, nil
		}
		if result.Err != nil {
			a.logger.ActionResult(false, result.Err.Message)
			return NavigateOutput{Success: false, Message: result.Err.Message}, nil
		}

		url := a.browser.GetURL()
		title := a.browser.GetTitle()
		a.logger.ActionResult(true, fmt.Sprintf("Loaded: %s", title))

		return NavigateOutput{
			Success:    true,
			Message:    result.LongTermMemory,
			URL:        url,
			Title:      title,
			Screenshot: a.captureScreenshotForResponse(),
		}, nil
	}
	navigateTool, err := functiontool.New(
		functiontool.Config{
			Name:        "navigate",
			Description: toolSpecFor("navigate").Description,
		},
		navigateHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create navigate tool: %w", err)
	}
	tools = append(tools, navigateTool)

	// Wait tool
	waitHandler := func(ctx tool.Context, input WaitInput) (WaitOutput, error) {
		if a.browser == nil {
			return WaitOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		a.logger.Wait(input.Reason)

		err := a.browser.WaitForStable(context.Background())
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return WaitOutput{Success: false, Message: err.Error()}, nil
		}

		msg := fmt.Sprintf("Waited for page to stabilize: %s", input.Reason)
		a.logger.ActionResult(true, "Page stable")
		return WaitOutput{Success: true, Message: msg}, nil
	}
	// wait stays a direct a.browser.WaitForStable call rather than
	// delegating to the registry's "wait" action: this tool waits for
	// network/DOM stability, not a fixed number of seconds.
	waitTool, err := functiontool.New(
		functiontool.Config{
			Name:        "wait",
			Description: toolSpecFor("wait").Description,
		},
		waitHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create wait tool: %w", err)
	}
	tools = append(tools, waitTool)

	// Get page state tool
	getPageStateHandler := func(ctx tool.Context, input GetPageStateInput) (GetPageStateOutput, error) {
		if a.browser == nil {
			return GetPageStateOutput{Success: false, Error: "Browser not initialized"}, nil
		}

		bgCtx := context.Background()
		output := GetPageStateOutput{
			Success: true,
			URL:     a.browser.GetURL(),
			Title:   a.browser.GetTitle(),
		}

		elements, err := a.browser.GetElementMap(bgCtx)
		if err != nil {
			output.Success = false
			output.Error = fmt.Sprintf("Failed to get element map: %v", err)
			a.logger.Error("get_page_state", err)
			return output, nil
		}

		// Use limited element count to stay within token budget
		// Default to 150 elements if not configured (balances visibility vs tokens)
		maxElements := a.config.MaxElements
		if maxElements <= 0 {
			maxElements = 150
		}
		output.ElementMap = elements.ToTokenStringLimited(maxElements)
		a.logger.PageState(output.URL, output.Title, elements.Count())
		a.recordState(StateInput{URL: output.URL, Title: output.Title, Elements: elements})

		// Determine if screenshot should be captured
		// Skip if: TextOnly mode OR ExcludeScreenshot explicitly set to true
		excludeScreenshot := a.config.TextOnly
		if input.ExcludeScreenshot != nil && *input.ExcludeScreenshot {
			excludeScreenshot = true
		}

		// Capture screenshot if not excluded
		if !excludeScreenshot {
			// Show annotations if enabled (for screenshot only)
			if a.config.ShowAnnotations {
				if err := a.browser.ShowAnnotations(bgCtx, elements, nil); err != nil {
					a.logger.Error("get_page_state/ShowAnnotations", err)
				}
			}

			// Take compressed screenshot optimized for LLM context
			// Default: 800px wide, JPEG quality 60 (~30-50KB vs 500KB+ original)
			maxWidth := a.config.ScreenshotMaxWidth
			if maxWidth <= 0 {
				maxWidth = 800
			}
			quality := a.config.ScreenshotQuality
			if quality <= 0 {
				quality = 60
			}
			screenshotData, err := a.browser.ScreenshotForLLM(bgCtx, maxWidth, quality)
			if err != nil {
				a.logger.Error("get_page_state/Screenshot", err)
			} else {
				output.Screenshot = base64.StdEncoding.EncodeToString(screenshotData)
			}

			// Hide annotations after screenshot
			if a.config.ShowAnnotations {
				if err := a.browser.HideAnnotations(bgCtx); err != nil {
					a.logger.Error("get_page_state/HideAnnotations", err)
				}
			}
		}

		return output, nil
	}
	pageStateTool, err := functiontool.New(
		functiontool.Config{
			Name:        "get_page_state",
			Description: toolSpecFor("get_page_state").Description,
		},
		getPageStateHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create page state tool: %w", err)
	}
	tools = append(tools, pageStateTool)

	// Multi-tab tools
	newTabHandler := func(ctx tool.Context, input NewTabInput) (NewTabOutput, error) {
		if a.browser == nil {
			return NewTabOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		a.preAction()
		defer a.postAction()

		a.logger.Info("new_tab: Opening: %s", input.URL)

		tabID, err := a.browser.NewTab(context.Background(), input.URL)
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return NewTabOutput{Success: false, Message: err.Error()}, nil
		}

		return NewTabOutput{
			Success: true,
			Message: fmt.Sprintf("Opened new tab: %s", tabID),
			TabID:   tabID,
			URL:     input.URL,
		}, nil
	}
	newTabTool, err := functiontool.New(
		functiontool.Config{
			Name:        "new_tab",
			Description: toolSpecFor("new_tab").Description,
		},
		newTabHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create new_tab tool: %w", err)
	}
	tools = append(tools, newTabTool)

	switchTabHandler := func(ctx tool.Context, input SwitchTabInput) (SwitchTabOutput, error) {
		if a.browser == nil {
			return SwitchTabOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		a.preAction()
		defer a.postAction()

		a.logger.Info("switch_tab: Switching to: %s", input.TabID)

		result, err := a.execRegistry(context.Background(), "switch", map[string]any{"tab_id": input.TabID})
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return SwitchTabOutput{Success: false, Message: err.Error()}, nil
		}
		if result.Err != nil {
			a.logger.ActionResult(false, result.Err.Message)
			return SwitchTabOutput{Success: false, Message: result.Err.Message}, nil
		}

		return SwitchTabOutput{
			Success: true,
			Message: result.LongTermMemory,
			URL:     a.browser.GetURL(),
			Title:   a.browser.GetTitle(),
		}, nil
	}
	switchTabTool, err := functiontool.New(
		functiontool.Config{
			Name:        "switch_tab",
			Description: toolSpecFor("switch_tab").Description,
		},
		switchTabHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create switch_tab tool: %w", err)
	}
	tools = append(tools, switchTabTool)

	closeTabHandler := func(ctx tool.Context, input CloseTabInput) (CloseTabOutput, error) {
		if a.browser == nil {
			return CloseTabOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		a.logger.Info("close_tab: Closing: %s", input.TabID)

		result, err := a.execRegistry(context.Background(), "close", map[string]any{"tab_id": input.TabID})
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return CloseTabOutput{Success: false, Message: err.Error()}, nil
		}
		if result.Err != nil {
			a.logger.ActionResult(false, result.Err.Message)
			return CloseTabOutput{Success: false, Message: result.Err.Message}, nil
		}

		return CloseTabOutput{
			Success: true,
			Message: result.LongTermMemory,
		}, nil
	}
	closeTabTool, err := functiontool.New(
		functiontool.Config{
			Name:        "close_tab",
			Description: toolSpecFor("close_tab").Description,
		},
		closeTabHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create close_tab tool: %w", err)
	}
	tools = append(tools, closeTabTool)

	listTabsHandler := func(ctx tool.Context, input ListTabsInput) (ListTabsOutput, error) {
		if a.browser == nil {
			return ListTabsOutput{Success: false, Error: "Browser not initialized"}, nil
		}

		tabs := a.browser.ListTabs(context.Background())
		activeTab := a.browser.GetActiveTabID()

		var tabInfos []TabInfo
		for _, tab := range tabs {
			tabInfos = append(tabInfos, TabInfo{
				TabID:  tab.ID,
				URL:    tab.URL,
				Title:  tab.Title,
				Active: tab.ID == activeTab,
			})
		}

		return ListTabsOutput{
			Success:   true,
			Tabs:      tabInfos,
			ActiveTab: activeTab,
		}, nil
	}
	listTabsTool, err := functiontool.New(
		functiontool.Config{
			Name:        "list_tabs",
			Description: toolSpecFor("list_tabs").Description,
		},
		listTabsHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create list_tabs tool: %w", err)
	}
	tools = append(tools, listTabsTool)

	// Download file tool
	downloadHandler := func(ctx tool.Context, input DownloadFileInput) (DownloadFileOutput, error) {
		if a.browser == nil {
			return DownloadFileOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		a.logger.Info("download_file: Downloading from URL: %s (use_page_auth: %v)", input.URL, input.UsePageAuth)

		cfg := browser.DefaultDownloadConfig()
		// DefaultDownloadConfig already sets ~/.bua/downloads/

		var downloadInfo *browser.DownloadInfo
		var err error

		if input.UsePageAuth {
			// Use browser context with cookies/auth
			downloadInfo, err = a.browser.DownloadResource(context.Background(), input.URL, cfg)
		} else {
			// Use direct HTTP download
			downloadInfo, err = a.browser.DownloadFile(context.Background(), input.URL, cfg)
		}

		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return DownloadFileOutput{Success: false, Message: err.Error()}, nil
		}

		if input.Filename != "" {
			renamed := filepath.Join(filepath.Dir(downloadInfo.FilePath), filepath.Base(input.Filename))
			if err := os.Rename(downloadInfo.FilePath, renamed); err != nil {
				a.logger.ActionResult(false, err.Error())
				return DownloadFileOutput{Success: false, Message: err.Error()}, nil
			}
			downloadInfo.FilePath = renamed
			downloadInfo.Filename = filepath.Base(renamed)
		}

		msg := fmt.Sprintf("Downloaded: %s (%d bytes)", downloadInfo.Filename, downloadInfo.Size)
		a.logger.ActionResult(true, msg)
		a.recordObservation(msg)

		return DownloadFileOutput{
			Success:  true,
			Message:  msg,
			Filename: downloadInfo.Filename,
			FilePath: downloadInfo.FilePath,
			Size:     downloadInfo.Size,
			MimeType: downloadInfo.MimeType,
		}, nil
	}
	downloadTool, err := functiontool.New(
		functiontool.Config{
			Name:        "download_file",
			Description: toolSpecFor("download_file").Description,
		},
		downloadHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create download_file tool: %w", err)
	}
	tools = append(tools, downloadTool)

	// Request human takeover tool
	humanTakeoverHandler := func(ctx tool.Context, input HumanTakeoverInput) (HumanTakeoverOutput, error) {
		a.logger.HumanTakeover(input.Reason)

		return HumanTakeoverOutput{
			Success:   true,
			Message:   fmt.Sprintf("Human takeover requested: %s. Please complete the action and confirm.", input.Reason),
			Completed: false,
		}, nil
	}
	humanTool, err := functiontool.New(
		functiontool.Config{
			Name:        "request_human_takeover",
			Description: toolSpecFor("request_human_takeover").Description,
		},
		humanTakeoverHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create human takeover tool: %w", err)
	}
	tools = append(tools, humanTool)

	// Done tool
	doneHandler := func(ctx tool.Context, input DoneInput) (DoneOutput, error) {
		a.logger.Done(input.Success, input.Summary)

		return DoneOutput{
			Success: input.Success,
			Summary: input.Summary,
			Data:    input.Data,
		}, nil
	}
	doneTool, err := functiontool.New(
		functiontool.Config{
			Name:        "done",
			Description: toolSpecFor("done").Description,
		},
		doneHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create done tool: %w", err)
	}
	tools = append(tools, doneTool)

	// Extract tool
	extractHandler := func(ctx tool.Context, input ExtractInput) (ExtractOutput, error) {
		if a.browser == nil {
			return ExtractOutput{Success: false, Message: "Browser not initialized"}, nil
		}

		result, err := a.execRegistry(context.Background(), "extract", map[string]any{
			"selector": input.Selector,
			"format":   input.Format,
		})
		if err != nil {
			a.logger.ActionResult(false, err.Error())
			return ExtractOutput{Success: false, Message: err.Error()}, nil
		}
		if result.Err != nil {
			a.logger.ActionResult(false, result.Err.Message)
			return ExtractOutput{Success: false, Message: result.Err.Message}, nil
		}
		content := result.ExtractedContent

		a.AddFinding(map[string]any{
			"selector": input.Selector,
			"format":   input.Format,
			"content":  content,
		})
		a.logger.ActionResult(true, fmt.Sprintf("Extracted %d characters", len(content)))

		return ExtractOutput{Success: true, Content: content}, nil
	}
	extractTool, err := functiontool.New(
		functiontool.Config{
			Name:        "extract",
			Description: toolSpecFor("extract").Description,
		},
		extractHandler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create extract tool: %w", err)
	}
	tools = append(tools, extractTool)

	// find_text, select_dropdown, upload_file, send_keys, write_file,
	// read_file and replace_file have no hand-written handler above: each
	// is a thin pass-through to its matching registry action, added so the
	// model can reach every action registry.Default() defines rather than
	// only the teacher's original subset.
	findTextTool, err := functiontool.New(
		functiontool.Config{
			Name:        "find_text",
			Description: toolSpecFor("find_text").Description,
		},
		func(ctx tool.Context, input FindTextInput) (FindTextOutput, error) {
			result, err := a.execRegistry(context.Background(), "find_text", map[string]any{"query": input.Query})
			if err != nil {
				a.logger.ActionResult(false, err.Error())
				return FindTextOutput{Success: false, Message: err.Error()}, nil
			}
			if result.Err != nil {
				a.logger.ActionResult(false, result.Err.Message)
				return FindTextOutput{Success: false, Message: result.Err.Message}, nil
			}
			a.logger.ActionResult(true, result.LongTermMemory)
			a.recordObservation(result.LongTermMemory)
			return FindTextOutput{Success: true, Message: result.LongTermMemory}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create find_text tool: %w", err)
	}
	tools = append(tools, findTextTool)

	selectDropdownTool, err := functiontool.New(
		functiontool.Config{
			Name:        "select_dropdown",
			Description: toolSpecFor("select_dropdown").Description,
		},
		func(ctx tool.Context, input SelectDropdownInput) (SelectDropdownOutput, error) {
			bgCtx := context.Background()
			a.preAction()
			defer a.postAction()

			index, err := a.resolveElementIndex(bgCtx, input.ElementIndex, input.ElementDescription)
			if err != nil {
				a.logger.ActionResult(false, err.Error())
				return SelectDropdownOutput{Success: false, Message: err.Error()}, nil
			}

			result, err := a.execRegistry(bgCtx, "select_dropdown", map[string]any{"index": index, "option": input.Option})
			if err != nil {
				a.logger.ActionResult(false, err.Error())
				return SelectDropdownOutput{Success: false, Message: err.Error()}, nil
			}
			if result.Err != nil {
				a.logger.ActionResult(false, result.Err.Message)
				return SelectDropdownOutput{Success: false, Message: result.Err.Message}, nil
			}
			a.logger.ActionResult(true, result.LongTermMemory)
			a.recordObservation(result.LongTermMemory)
			return SelectDropdownOutput{Success: true, Message: result.LongTermMemory, Screenshot: a.captureScreenshotForResponse()}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create select_dropdown tool: %w", err)
	}
	tools = append(tools, selectDropdownTool)

	uploadFileTool, err := functiontool.New(
		functiontool.Config{
			Name:        "upload_file",
			Description: toolSpecFor("upload_file").Description,
		},
		func(ctx tool.Context, input UploadFileInput) (UploadFileOutput, error) {
			bgCtx := context.Background()
			a.preAction()
			defer a.postAction()

			index, err := a.resolveElementIndex(bgCtx, input.ElementIndex, input.ElementDescription)
			if err != nil {
				a.logger.ActionResult(false, err.Error())
				return UploadFileOutput{Success: false, Message: err.Error()}, nil
			}

			result, err := a.execRegistry(bgCtx, "upload_file", map[string]any{"index": index, "path": input.Path})
			if err != nil {
				a.logger.ActionResult(false, err.Error())
				return UploadFileOutput{Success: false, Message: err.Error()}, nil
			}
			if result.Err != nil {
				a.logger.ActionResult(false, result.Err.Message)
				return UploadFileOutput{Success: false, Message: result.Err.Message}, nil
			}
			a.logger.ActionResult(true, result.LongTermMemory)
			a.recordObservation(result.LongTermMemory)
			return UploadFileOutput{Success: true, Message: result.LongTermMemory}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload_file tool: %w", err)
	}
	tools = append(tools, uploadFileTool)

	sendKeysTool, err := functiontool.New(
		functiontool.Config{
			Name:        "send_keys",
			Description: toolSpecFor("send_keys").Description,
		},
		func(ctx tool.Context, input SendKeysInput) (SendKeysOutput, error) {
			bgCtx := context.Background()
			a.preAction()
			defer a.postAction()

			result, err := a.execRegistry(bgCtx, "send_keys", map[string]any{"keys": input.Keys})
			if err != nil {
				a.logger.ActionResult(false, err.Error())
				return SendKeysOutput{Success: false, Message: err.Error()}, nil
			}
			if result.Err != nil {
				a.logger.ActionResult(false, result.Err.Message)
				return SendKeysOutput{Success: false, Message: result.Err.Message}, nil
			}
			a.logger.ActionResult(true, result.LongTermMemory)
			a.recordObservation(result.LongTermMemory)
			return SendKeysOutput{Success: true, Message: result.LongTermMemory, Screenshot: a.captureScreenshotForResponse()}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create send_keys tool: %w", err)
	}
	tools = append(tools, sendKeysTool)

	writeFileTool, err := functiontool.New(
		functiontool.Config{
			Name:        "write_file",
			Description: toolSpecFor("write_file").Description,
		},
		func(ctx tool.Context, input WriteFileInput) (WriteFileOutput, error) {
			result, err := a.execRegistry(context.Background(), "write_file", map[string]any{"path": input.Path, "content": input.Content})
			if err != nil {
				a.logger.ActionResult(false, err.Error())
				return WriteFileOutput{Success: false, Message: err.Error()}, nil
			}
			if result.Err != nil {
				a.logger.ActionResult(false, result.Err.Message)
				return WriteFileOutput{Success: false, Message: result.Err.Message}, nil
			}
			a.logger.ActionResult(true, result.LongTermMemory)
			return WriteFileOutput{Success: true, Message: result.LongTermMemory}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create write_file tool: %w", err)
	}
	tools = append(tools, writeFileTool)

	readFileTool, err := functiontool.New(
		functiontool.Config{
			Name:        "read_file",
			Description: toolSpecFor("read_file").Description,
		},
		func(ctx tool.Context, input ReadFileInput) (ReadFileOutput, error) {
			result, err := a.execRegistry(context.Background(), "read_file", map[string]any{"path": input.Path})
			if err != nil {
				a.logger.ActionResult(false, err.Error())
				return ReadFileOutput{Success: false, Message: err.Error()}, nil
			}
			if result.Err != nil {
				a.logger.ActionResult(false, result.Err.Message)
				return ReadFileOutput{Success: false, Message: result.Err.Message}, nil
			}
			a.logger.ActionResult(true, fmt.Sprintf("Read %d characters from %s", len(result.ExtractedContent), input.Path))
			return ReadFileOutput{Success: true, Content: result.ExtractedContent}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create read_file tool: %w", err)
	}
	tools = append(tools, readFileTool)

	replaceFileTool, err := functiontool.New(
		functiontool.Config{
			Name:        "replace_file",
			Description: toolSpecFor("replace_file").Description,
		},
		func(ctx tool.Context, input ReplaceFileInput) (ReplaceFileOutput, error) {
			result, err := a.execRegistry(context.Background(), "replace_file", map[string]any{
				"path": input.Path,
				"old":  input.Old,
				"new":  input.New,
			})
			if err != nil {
				a.logger.ActionResult(false, err.Error())
				return ReplaceFileOutput{Success: false, Message: err.Error()}, nil
			}
			if result.Err != nil {
				a.logger.ActionResult(false, result.Err.Message)
				return ReplaceFileOutput{Success: false, Message: result.Err.Message}, nil
			}
			a.logger.ActionResult(true, result.LongTermMemory)
			return ReplaceFileOutput{Success: true, Message: result.LongTermMemory}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create replace_file tool: %w", err)
	}
	tools = append(tools, replaceFileTool)

	return tools, nil
}

// Extract tool input/output types

type ExtractInput struct {
	Selector string `json:"selector,omitempty" jsonschema:"Optional CSS selector to scope extraction to"`
	Format   string `json:"format,omitempty" jsonschema:"'text' (default) or 'markdown'"`
}

type ExtractOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Content string `json:"content,omitempty"`
}

// find_text, select_dropdown, upload_file, send_keys, write_file, read_file
// and replace_file tool input/output types.

type FindTextInput struct {
	Query string `json:"query" jsonschema:"Text to search for in the current page listing"`
}

type FindTextOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SelectDropdownInput struct {
	ElementIndex       int    `json:"element_index,omitempty" jsonschema:"The index number of the <select> element"`
	ElementDescription string `json:"element_description,omitempty" jsonschema:"Natural-language description of the dropdown, used when you don't know its index"`
	Option             string `json:"option" jsonschema:"Visible text of the option to select"`
}

type SelectDropdownOutput struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Screenshot string `json:"screenshot,omitempty"`
}

type UploadFileInput struct {
	ElementIndex       int    `json:"element_index,omitempty" jsonschema:"The index number of the <input type=file> element"`
	ElementDescription string `json:"element_description,omitempty" jsonschema:"Natural-language description of the file input, used when you don't know its index"`
	Path               string `json:"path" jsonschema:"Local filesystem path of the file to upload"`
}

type UploadFileOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SendKeysInput struct {
	Keys string `json:"keys" jsonschema:"Single named key to send, e.g. 'Enter' or 'Escape'; key combinations are not supported"`
}

type SendKeysOutput struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Screenshot string `json:"screenshot,omitempty"`
}

type WriteFileInput struct {
	Path    string `json:"path" jsonschema:"Local filesystem path to write to"`
	Content string `json:"content" jsonschema:"Content to write"`
}

type WriteFileOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ReadFileInput struct {
	Path string `json:"path" jsonschema:"Local filesystem path to read"`
}

type ReadFileOutput struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
}

type ReplaceFileInput struct {
	Path string `json:"path" jsonschema:"Local filesystem path to modify"`
	Old  string `json:"old" jsonschema:"Text to find"`
	New  string `json:"new" jsonschema:"Text to replace it with"`
}

type ReplaceFileOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Helper functions

func sanitizeFilename(s string) string {
	// Simple sanitization - replace non-alphanumeric with underscore
	result := ""
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			result += string(c)
		} else if len(result) > 0 && result[len(result)-1] != '_' {
			result += "_"
		}
	}
	if len(result) > 50 {
		result = result[:50]
	}
	return result
}

// Tool input/output types

type ClickInput struct {
	ElementIndex       int    `json:"element_index,omitempty" jsonschema:"The index number of the element to click (shown in the element map)"`
	ElementDescription string `json:"element_description,omitempty" jsonschema:"Natural-language description of the element to click (e.g. 'the blue Submit button'), used when you don't know its index"`
	Reasoning          string `json:"reasoning" jsonschema:"Brief explanation of why you're clicking this element"`
}

type ClickOutput struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Screenshot string `json:"screenshot,omitempty"` // Base64 JPEG (only in smart mode)
}

type TypeInput struct {
	ElementIndex       int    `json:"element_index,omitempty" jsonschema:"The index number of the input element"`
	ElementDescription string `json:"element_description,omitempty" jsonschema:"Natural-language description of the input element (e.g. 'the email field'), used when you don't know its index"`
	Text               string `json:"text" jsonschema:"The text to type into the element"`
	Clear              bool   `json:"clear,omitempty" jsonschema:"Clear the field's existing value before typing (default false)"`
	Submit             bool   `json:"submit,omitempty" jsonschema:"Press Enter after typing to submit the field (default false)"`
	Reasoning          string `json:"reasoning" jsonschema:"Brief explanation of why you're typing this text"`
}

type TypeOutput struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Screenshot string `json:"screenshot,omitempty"` // Base64 JPEG (only in smart mode)
}

type ScrollInput struct {
	Direction  string `json:"direction" jsonschema:"Direction to scroll: up or down (required)"`
	Amount     int    `json:"amount" jsonschema:"Amount to scroll in pixels (default 500)"`
	ElementID  int    `json:"element_id,omitempty" jsonschema:"Element ID of scrollable container (modal/popup/sidebar). If you know the container index, provide it here. If unsure, set auto_detect=true instead."`
	AutoDetect bool   `json:"auto_detect,omitempty" jsonschema:"Set to true to auto-detect and scroll the most likely modal/scrollable container. Use this when you opened a modal but don't know which element is scrollable. Recommended after clicking buttons that open popups."`
	Reasoning  string `json:"reasoning" jsonschema:"Why you are scrolling and whether you are scrolling page or a container"`
}

type ScrollOutput struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	ElementScrolled int    `json:"element_scrolled,omitempty"` // Which element was scrolled (-1 or 0 = page, >0 = element index)
	Screenshot      string `json:"screenshot,omitempty"`       // Base64 JPEG (only in smart mode)
}

type NavigateInput struct {
	URL       string `json:"url" jsonschema:"The URL to navigate to"`
	Reasoning string `json:"reasoning" jsonschema:"Brief explanation of why you're navigating to this URL"`
}

type NavigateOutput struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	Screenshot string `json:"screenshot,omitempty"` // Base64 JPEG (only in smart mode)
}

type WaitInput struct {
	Reason string `json:"reason" jsonschema:"What you're waiting for"`
}

type WaitOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type GetPageStateInput struct {
	// ExcludeScreenshot skips screenshot capture when true (optional, defaults to false).
	ExcludeScreenshot *bool `json:"exclude_screenshot,omitempty"`
}

type GetPageStateOutput struct {
	Success    bool   `json:"success"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	ElementMap string `json:"element_map"`
	Screenshot string `json:"screenshot,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Multi-tab input/output types

type NewTabInput struct {
	URL string `json:"url" jsonschema:"The URL to open in the new tab"`
}

type NewTabOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TabID   string `json:"tab_id"`
	URL     string `json:"url"`
}

type SwitchTabInput struct {
	TabID string `json:"tab_id" jsonschema:"The ID of the tab to switch to"`
}

type SwitchTabOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url"`
	Title   string `json:"title"`
}

type CloseTabInput struct {
	TabID string `json:"tab_id" jsonschema:"The ID of the tab to close"`
}

type CloseTabOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ListTabsInput struct{}

type TabInfo struct {
	TabID  string `json:"tab_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

type ListTabsOutput struct {
	Success   bool      `json:"success"`
	Tabs      []TabInfo `json:"tabs"`
	ActiveTab string    `json:"active_tab"`
	Error     string    `json:"error,omitempty"`
}

type HumanTakeoverInput struct {
	Reason string `json:"reason" jsonschema:"Why human intervention is needed"`
}

type HumanTakeoverOutput struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Completed bool   `json:"completed"`
}

type DoneInput struct {
	Success bool           `json:"success" jsonschema:"Whether the task was completed successfully"`
	Summary string         `json:"summary" jsonschema:"Summary of what was accomplished"`
	Data    map[string]any `json:"data,omitempty" jsonschema:"Any data that was extracted during the task"`
}

type DoneOutput struct {
	Success bool           `json:"success"`
	Summary string         `json:"summary"`
	Data    map[string]any `json:"data,omitempty"`
}

// Download tool input/output types

type DownloadFileInput struct {
	URL         string `json:"url" jsonschema:"The URL of the file to download"`
	Filename    string `json:"filename,omitempty" jsonschema:"Optional: custom filename for the downloaded file"`
	UsePageAuth bool   `json:"use_page_auth,omitempty" jsonschema:"If true, use the page's cookies and auth context for the download"`
	Reasoning   string `json:"reasoning" jsonschema:"Brief explanation of why you're downloading this file"`
}

type DownloadFileOutput struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// GetADKAgent returns the underlying ADK agent for advanced use cases.
func (a *BrowserAgent) GetADKAgent() agent.Agent {
	return a.adkAgent
}

// GetBrowser returns the browser instance.
func (a *BrowserAgent) GetBrowser() *browser.Browser {
	return a.browser
}

// Tools returns the browser tools for use in other agents.
func (a *BrowserAgent) Tools() []tool.Tool {
	return a.tools
}

// GetLogger returns the logger for external token/timing updates.
func (a *BrowserAgent) GetLogger() *Logger {
	return a.logger
}

// Result represents the result of a task execution.
type Result struct {
	Success         bool
	Data            map[string]any
	Error           string
	Steps           []Step
	TokensUsed      int
	ScreenshotPaths []string
}

// Step represents a single step in the execution.
type Step struct {
	Action         string
	Target         string
	Reasoning      string
	URL            string
	Title          string
	ScreenshotPath string
}

// PageState represents the current state of the page.
type PageState struct {
	URL           string
	Title         string
	Elements      *dom.ElementMap
	Screenshot    []byte
	ScreenshotB64 string
}
