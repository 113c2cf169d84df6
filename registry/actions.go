package registry

import (
	"context"
	"fmt"
	"net/url"
)

// Default builds a Registry populated with the minimum action set spec
// §4.F requires, each handler thin-wrapping the corresponding Controller
// call and translating its error into an ActionResult.
func Default() *Registry {
	r := New()

	r.Register(Definition{
		Name:        "search",
		Description: "Search the web for a query by navigating to a search engine.",
		Params: []ParamSpec{
			{Name: "query", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			query, _ := StringParam(p, "query")
			target := "https://www.google.com/search?q=" + url.QueryEscape(query)
			if err := c.Navigate(ctx, target, false); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Searched for %q", query), target), nil
		},
	})

	r.Register(Definition{
		Name:        "navigate",
		Description: "Navigate the current (or a new) tab to a URL.",
		Params: []ParamSpec{
			{Name: "url", Type: TypeString, Required: true},
			{Name: "new_tab", Type: TypeBool, Required: false},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			url, _ := StringParam(p, "url")
			newTab := BoolParam(p, "new_tab")
			if err := c.Navigate(ctx, url, newTab); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Navigated to %s", url), url), nil
		},
	})

	r.Register(Definition{
		Name:        "click",
		Description: "Click the interactive element at the given index from the current page listing.",
		Params: []ParamSpec{
			{Name: "index", Type: TypeInt, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			index, ok := IntParam(p, "index")
			if !ok {
				return Failure("index is required", true), nil
			}
			if err := c.Click(ctx, index); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Clicked element [%d]", index), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "input",
		Description: "Type text into the input/textarea at the given index, optionally clearing it first and submitting afterward.",
		Params: []ParamSpec{
			{Name: "index", Type: TypeInt, Required: true},
			{Name: "text", Type: TypeString, Required: true},
			{Name: "clear", Type: TypeBool, Required: false},
			{Name: "submit", Type: TypeBool, Required: false},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			index, ok := IntParam(p, "index")
			if !ok {
				return Failure("index is required", true), nil
			}
			text, _ := StringParam(p, "text")
			clear := BoolParam(p, "clear")
			submit := BoolParam(p, "submit")
			if err := c.Input(ctx, index, text, clear, submit); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Typed into [%d]", index), text), nil
		},
	})

	r.Register(Definition{
		Name:        "scroll",
		Description: "Scroll the page, or a scrollable container by index, up/down/left/right by a number of pages.",
		Params: []ParamSpec{
			{Name: "direction", Type: TypeString, Required: true, Enum: []string{"up", "down", "left", "right"}},
			{Name: "pages", Type: TypeFloat, Required: false},
			{Name: "container_index", Type: TypeInt, Required: false},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			direction, _ := StringParam(p, "direction")
			pages, ok := FloatParam(p, "pages")
			if !ok {
				pages = 1
			}
			containerIndex, _ := IntParam(p, "container_index")
			if err := c.Scroll(ctx, direction, pages, containerIndex); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Scrolled %s", direction), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "find_text",
		Description: "Search the current page listing for text and report the matching element's index, if any.",
		Params: []ParamSpec{
			{Name: "query", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			query, _ := StringParam(p, "query")
			index, found, err := c.FindText(ctx, query)
			if err != nil {
				return Failure(err.Error(), true), nil
			}
			if !found {
				return Success(fmt.Sprintf("No element found matching %q", query), ""), nil
			}
			return Success(fmt.Sprintf("Found %q at element [%d]", query, index), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "screenshot",
		Description: "Capture a screenshot of the current viewport.",
		Params: []ParamSpec{
			{Name: "format", Type: TypeString, Required: false, Enum: []string{"png", "jpeg"}},
			{Name: "quality", Type: TypeInt, Required: false},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			format, _ := StringParam(p, "format")
			quality, _ := IntParam(p, "quality")
			path, err := c.Screenshot(ctx, format, quality)
			if err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success("Captured screenshot", path), nil
		},
	})

	r.Register(Definition{
		Name:        "evaluate",
		Description: "Evaluate a JavaScript arrow function against the page and return its string result.",
		Params: []ParamSpec{
			{Name: "fn", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			fn, _ := StringParam(p, "fn")
			result, err := c.Evaluate(ctx, fn, nil)
			if err != nil {
				return Failure(err.Error(), true), nil
			}
			return ActionResult{ExtractedContent: result, LongTermMemory: result, ShortTermMemory: fn}, nil
		},
	})

	r.Register(Definition{
		Name:        "extract",
		Description: "Extract page content, optionally scoped by a CSS selector and formatted as markdown.",
		Params: []ParamSpec{
			{Name: "selector", Type: TypeString, Required: false},
			{Name: "format", Type: TypeString, Required: false, Enum: []string{"text", "markdown"}},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			selector, _ := StringParam(p, "selector")
			format, _ := StringParam(p, "format")
			content, err := c.Extract(ctx, selector, format)
			if err != nil {
				return Failure(err.Error(), true), nil
			}
			return ActionResult{ExtractedContent: content, LongTermMemory: "Extracted content from page", ShortTermMemory: content}, nil
		},
	})

	r.Register(Definition{
		Name:        "go_back",
		Description: "Navigate back in the current tab's history.",
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			if err := c.GoBack(ctx); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success("Navigated back", ""), nil
		},
	})

	r.Register(Definition{
		Name:        "wait",
		Description: "Pause for a number of seconds, e.g. to let an animation or async load settle.",
		Params: []ParamSpec{
			{Name: "seconds", Type: TypeFloat, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			seconds, ok := FloatParam(p, "seconds")
			if !ok {
				return Failure("seconds is required", true), nil
			}
			if err := c.Wait(ctx, seconds); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Waited %.1fs", seconds), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "select_dropdown",
		Description: "Select an option by visible text in the <select> element at the given index.",
		Params: []ParamSpec{
			{Name: "index", Type: TypeInt, Required: true},
			{Name: "option", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			index, ok := IntParam(p, "index")
			if !ok {
				return Failure("index is required", true), nil
			}
			option, _ := StringParam(p, "option")
			if err := c.SelectDropdown(ctx, index, option); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Selected %q in [%d]", option, index), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "dropdown_options",
		Description: "List the available options of the <select> element at the given index.",
		Params: []ParamSpec{
			{Name: "index", Type: TypeInt, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			index, ok := IntParam(p, "index")
			if !ok {
				return Failure("index is required", true), nil
			}
			options, err := c.DropdownOptions(ctx, index)
			if err != nil {
				return Failure(err.Error(), true), nil
			}
			joined := fmt.Sprintf("%v", options)
			return ActionResult{ExtractedContent: joined, LongTermMemory: joined}, nil
		},
	})

	r.Register(Definition{
		Name:        "upload_file",
		Description: "Upload a local file into the <input type=file> element at the given index.",
		Params: []ParamSpec{
			{Name: "index", Type: TypeInt, Required: true},
			{Name: "path", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			index, ok := IntParam(p, "index")
			if !ok {
				return Failure("index is required", true), nil
			}
			path, _ := StringParam(p, "path")
			if err := c.UploadFile(ctx, index, path); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Uploaded %s to [%d]", path, index), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "send_keys",
		Description: "Send one named key (e.g. \"Enter\", \"Escape\", \"Tab\") to the focused element; key combinations such as \"Control+A\" are not supported.",
		Params: []ParamSpec{
			{Name: "keys", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			keys, _ := StringParam(p, "keys")
			if err := c.SendKeys(ctx, keys); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Sent keys %q", keys), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "switch",
		Description: "Switch the current tab to the given tab id.",
		Params: []ParamSpec{
			{Name: "tab_id", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			tabID, _ := StringParam(p, "tab_id")
			if err := c.SwitchTab(ctx, tabID); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Switched to tab %s", tabID), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "close",
		Description: "Close the given tab id.",
		Params: []ParamSpec{
			{Name: "tab_id", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			tabID, _ := StringParam(p, "tab_id")
			if err := c.CloseTab(ctx, tabID); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Closed tab %s", tabID), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "write_file",
		Description: "Write content to a local file path (e.g. to stash extracted data).",
		Params: []ParamSpec{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "content", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			path, _ := StringParam(p, "path")
			content, _ := StringParam(p, "content")
			if err := c.WriteFile(ctx, path, content); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Wrote %s", path), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "read_file",
		Description: "Read a local file path's content.",
		Params: []ParamSpec{
			{Name: "path", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			path, _ := StringParam(p, "path")
			content, err := c.ReadFile(ctx, path)
			if err != nil {
				return Failure(err.Error(), true), nil
			}
			return ActionResult{ExtractedContent: content, LongTermMemory: fmt.Sprintf("Read %s", path)}, nil
		},
	})

	r.Register(Definition{
		Name:        "replace_file",
		Description: "Replace a string that occurs exactly once in a local file with another string; fails if it is absent or occurs more than once.",
		Params: []ParamSpec{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "old", Type: TypeString, Required: true},
			{Name: "new", Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			path, _ := StringParam(p, "path")
			old, _ := StringParam(p, "old")
			newStr, _ := StringParam(p, "new")
			if err := c.ReplaceFile(ctx, path, old, newStr); err != nil {
				return Failure(err.Error(), true), nil
			}
			return Success(fmt.Sprintf("Replaced text in %s", path), ""), nil
		},
	})

	r.Register(Definition{
		Name:        "done",
		Description: "Declare the task finished, with a final text result or failure explanation.",
		Params: []ParamSpec{
			{Name: "text", Type: TypeString, Required: true},
			{Name: "success", Type: TypeBool, Required: false},
		},
		Handler: func(ctx context.Context, c Controller, p map[string]any) (ActionResult, error) {
			text, _ := StringParam(p, "text")
			return ActionResult{ExtractedContent: text, LongTermMemory: text}, nil
		},
	})

	return r
}
