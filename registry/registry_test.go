package registry

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeController is an in-memory Controller used only for registry tests;
// it never touches a real browser.
type fakeController struct {
	navigatedTo string
	clicked     int
	failNext    error
}

func (f *fakeController) Navigate(ctx context.Context, url string, newTab bool) error {
	if f.failNext != nil {
		return f.failNext
	}
	f.navigatedTo = url
	return nil
}
func (f *fakeController) GoBack(ctx context.Context) error    { return nil }
func (f *fakeController) GoForward(ctx context.Context) error { return nil }
func (f *fakeController) Reload(ctx context.Context) error    { return nil }
func (f *fakeController) Click(ctx context.Context, index int) error {
	f.clicked = index
	return f.failNext
}
func (f *fakeController) Input(ctx context.Context, index int, value string, clear, submit bool) error {
	return f.failNext
}
func (f *fakeController) Scroll(ctx context.Context, direction string, pages float64, containerIndex int) error {
	return f.failNext
}
func (f *fakeController) FindText(ctx context.Context, query string) (int, bool, error) {
	if query == "missing" {
		return 0, false, nil
	}
	return 3, true, nil
}
func (f *fakeController) Screenshot(ctx context.Context, format string, quality int) (string, error) {
	return "/tmp/shot.png", nil
}
func (f *fakeController) Evaluate(ctx context.Context, fn string, args []any) (string, error) {
	return "42", nil
}
func (f *fakeController) Extract(ctx context.Context, selector, format string) (string, error) {
	return "extracted", nil
}
func (f *fakeController) Wait(ctx context.Context, seconds float64) error { return nil }
func (f *fakeController) SelectDropdown(ctx context.Context, index int, option string) error {
	return nil
}
func (f *fakeController) DropdownOptions(ctx context.Context, index int) ([]string, error) {
	return []string{"a", "b"}, nil
}
func (f *fakeController) UploadFile(ctx context.Context, index int, path string) error { return nil }
func (f *fakeController) SendKeys(ctx context.Context, keys string) error              { return nil }
func (f *fakeController) SwitchTab(ctx context.Context, tabID string) error            { return nil }
func (f *fakeController) CloseTab(ctx context.Context, tabID string) error             { return nil }
func (f *fakeController) WriteFile(ctx context.Context, path, content string) error    { return nil }
func (f *fakeController) ReadFile(ctx context.Context, path string) (string, error)    { return "contents", nil }
func (f *fakeController) ReplaceFile(ctx context.Context, path, old, new string) error { return nil }

func TestDefault_RegistersMinimumActionSet(t *testing.T) {
	r := Default()
	required := []string{
		"search", "navigate", "click", "input", "scroll", "find_text", "screenshot",
		"evaluate", "extract", "go_back", "wait", "select_dropdown", "dropdown_options",
		"upload_file", "send_keys", "switch", "close", "write_file", "read_file",
		"replace_file", "done",
	}
	for _, name := range required {
		if _, ok := r.Get(name); !ok {
			t.Errorf("missing action %q", name)
		}
	}
}

func TestExecute_Navigate(t *testing.T) {
	r := Default()
	c := &fakeController{}
	result, err := r.Execute(context.Background(), Action{
		Type:   "navigate",
		Params: map[string]any{"url": "https://example.com"},
	}, c)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Err != nil {
		t.Fatalf("unexpected action error: %v", result.Err)
	}
	if c.navigatedTo != "https://example.com" {
		t.Errorf("navigatedTo = %q", c.navigatedTo)
	}
}

func TestExecute_UnknownAction(t *testing.T) {
	r := Default()
	result, err := r.Execute(context.Background(), Action{Type: "nope"}, &fakeController{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Err == nil {
		t.Error("expected a structured error for unknown action")
	}
}

func TestExecute_MissingRequiredParam(t *testing.T) {
	r := Default()
	result, err := r.Execute(context.Background(), Action{Type: "click"}, &fakeController{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Err == nil {
		t.Error("expected validation error for missing index")
	}
}

func TestExecute_RejectsUnknownKey(t *testing.T) {
	r := Default()
	result, err := r.Execute(context.Background(), Action{
		Type:   "click",
		Params: map[string]any{"index": 1, "element_index": 1},
	}, &fakeController{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Err == nil {
		t.Error("expected rejection of unexpected parameter element_index")
	}
}

func TestExecute_ClickParamName(t *testing.T) {
	// spec: click/input use `index`, not `element_index`.
	r := Default()
	c := &fakeController{}
	result, err := r.Execute(context.Background(), Action{
		Type:   "click",
		Params: map[string]any{"index": 5},
	}, c)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if c.clicked != 5 {
		t.Errorf("clicked = %d, want 5", c.clicked)
	}
}

func TestExecute_ScrollEnum(t *testing.T) {
	r := Default()
	result, err := r.Execute(context.Background(), Action{
		Type:   "scroll",
		Params: map[string]any{"direction": "sideways"},
	}, &fakeController{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Err == nil {
		t.Error("expected validation error for invalid enum value")
	}
}

func TestExecute_FindTextNotFound(t *testing.T) {
	r := Default()
	result, err := r.Execute(context.Background(), Action{
		Type:   "find_text",
		Params: map[string]any{"query": "missing"},
	}, &fakeController{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
}

func TestExecute_HandlerError(t *testing.T) {
	r := Default()
	c := &fakeController{failNext: errors.New("boom")}
	result, err := r.Execute(context.Background(), Action{
		Type:   "navigate",
		Params: map[string]any{"url": "https://example.com"},
	}, c)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Err == nil {
		t.Error("expected ActionResult.Err to be set when handler fails")
	}
}

func TestSystemPrompt_ListsAllActions(t *testing.T) {
	r := Default()
	prompt := r.SystemPrompt()
	if prompt == "" {
		t.Fatal("SystemPrompt() returned empty string")
	}
	for _, name := range r.Names() {
		if !strings.Contains(prompt, name) {
			t.Errorf("SystemPrompt() missing action %q", name)
		}
	}
}
