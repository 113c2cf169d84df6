// Package dom collects and serialises the browser's DOM, accessibility tree
// and layout snapshot into an indexed, LLM-friendly representation.
package dom

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// BoundingBox is an axis-aligned rectangle in viewport coordinates.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// area returns the rectangle's area, or 0 for a degenerate box.
func (b BoundingBox) area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// intersect returns the overlapping rectangle of b and o, which has zero
// area when the two rectangles do not overlap.
func (b BoundingBox) intersect(o BoundingBox) BoundingBox {
	x1 := max(b.X, o.X)
	y1 := max(b.Y, o.Y)
	x2 := min(b.X+b.Width, o.X+o.Width)
	y2 := min(b.Y+b.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return BoundingBox{}
	}
	return BoundingBox{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// containedIn reports whether at least threshold of b's area sits inside o.
func (b BoundingBox) containedIn(o BoundingBox, threshold float64) bool {
	ba := b.area()
	if ba == 0 {
		return false
	}
	return b.intersect(o).area()/ba >= threshold
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Element is a flattened, LLM-facing view of one interactive node.
type Element struct {
	Index         int
	TagName       string
	Role          string
	Name          string
	Text          string
	Type          string
	Href          string
	Placeholder   string
	Value         string
	AriaLabel     string
	IsInteractive bool
	IsVisible     bool
	BoundingBox   BoundingBox

	// BackendNodeID links this element back to the EnhancedNode it was
	// produced from. Zero when the element was constructed synthetically
	// (e.g. in tests).
	BackendNodeID int64
	IsNew         bool
	IsShadowHost  bool
	IsScrollable  bool
	Depth         int
}

// ElementMap is the per-snapshot selector map handed to the LLM: a small
// integer index to element lookup, plus page metadata.
type ElementMap struct {
	Elements  []*Element
	PageTitle string
	PageURL   string

	indexMap map[int]*Element
}

// NewElementMap returns an empty, ready-to-use map.
func NewElementMap() *ElementMap {
	return &ElementMap{
		Elements: make([]*Element, 0),
		indexMap: make(map[int]*Element),
	}
}

// Add appends el and makes it reachable by its Index. Adding a second
// element with the same Index replaces the indexMap entry but keeps both
// elements in the Elements slice.
func (m *ElementMap) Add(el *Element) {
	m.Elements = append(m.Elements, el)
	m.indexMap[el.Index] = el
}

// Count returns the number of elements recorded, interactive or not.
func (m *ElementMap) Count() int {
	return len(m.Elements)
}

// ByIndex looks up the element currently mapped to idx.
func (m *ElementMap) ByIndex(idx int) (*Element, bool) {
	el, ok := m.indexMap[idx]
	return el, ok
}

// InteractiveElements returns visible elements flagged interactive, in
// insertion order.
func (m *ElementMap) InteractiveElements() []*Element {
	out := make([]*Element, 0, len(m.Elements))
	for _, el := range m.Elements {
		if el.IsInteractive && el.IsVisible {
			out = append(out, el)
		}
	}
	return out
}

// ToTokenString renders the full listing with no element cap.
func (m *ElementMap) ToTokenString() string {
	return m.ToTokenStringLimited(0)
}

// ToTokenStringLimited renders the listing, stopping after maxElements
// visible entries (0 means unlimited) and appending a truncation marker
// when entries were dropped.
func (m *ElementMap) ToTokenStringLimited(maxElements int) string {
	var sb strings.Builder

	if m.PageTitle != "" || m.PageURL != "" {
		sb.WriteString(fmt.Sprintf("Page: %s (%s)\n", m.PageTitle, m.PageURL))
	}

	shown := 0
	dropped := 0
	for _, el := range m.Elements {
		if !el.IsVisible {
			continue
		}
		if maxElements > 0 && shown >= maxElements {
			dropped++
			continue
		}
		sb.WriteString(formatElementLine(el))
		sb.WriteByte('\n')
		shown++
	}

	if dropped > 0 {
		sb.WriteString(fmt.Sprintf("... [%d more elements truncated]\n", dropped))
	}

	return sb.String()
}

func formatElementLine(el *Element) string {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("  ", el.Depth))
	if el.IsNew {
		sb.WriteByte('*')
	}
	sb.WriteString(fmt.Sprintf("[%d]<%s", el.Index, el.TagName))

	writeAttr := func(k, v string) {
		if v != "" {
			sb.WriteString(fmt.Sprintf(" %s=%q", k, truncate(v, 60)))
		}
	}
	writeAttr("role", el.Role)
	writeAttr("type", el.Type)
	writeAttr("href", el.Href)
	writeAttr("placeholder", el.Placeholder)
	writeAttr("value", el.Value)
	writeAttr("aria-label", el.AriaLabel)

	sb.WriteByte('>')
	sb.WriteString(truncate(el.Text, 120))
	sb.WriteString(fmt.Sprintf("</%s>", el.TagName))

	if el.IsShadowHost {
		sb.WriteString(" |SHADOW|")
	}
	if el.IsScrollable {
		sb.WriteString(" |SCROLL|")
	}

	return sb.String()
}

// truncate shortens s to at most maxLen bytes, appending "..." when it
// had to cut. Callers are expected to pass maxLen >= 4 when s may exceed
// it; smaller values fall back to a hard byte cut with no ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		if maxLen < 0 {
			maxLen = 0
		}
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// ---------------------------------------------------------------------
// Enhanced tree / serialiser (spec component C + D)
// ---------------------------------------------------------------------

// AXProperties carries the subset of accessibility properties the
// interactivity classifier inspects.
type AXProperties struct {
	Focusable      bool
	Editable       bool
	Settable       bool
	Checked        bool
	Expanded       bool
	Pressed        bool
	Selected       bool
	Required       bool
	Autocomplete   bool
	KeyShortcuts   bool
	Disabled       bool
	Hidden         bool
	Role           string
}

// ComputedStyle is the minimal style subset the serialiser needs.
type ComputedStyle struct {
	BackgroundColor string
	Opacity         float64
	Cursor          string
}

// EnhancedNode is one node of the collected snapshot: DOM shape cross-linked
// with accessibility, layout and paint-order data by backend-node-id.
type EnhancedNode struct {
	BackendNodeID int64
	Parent        *EnhancedNode
	Children      []*EnhancedNode

	Tag        string
	NodeType   int
	Attributes map[string]string
	Text       string

	AX    AXProperties
	Style ComputedStyle

	Bounds     *BoundingBox
	PaintOrder int
	HasPaint   bool

	Scrollable bool
	ShadowHost bool
	ShadowRoot *EnhancedNode
}

// AccessibilityTree is a thin standalone projection of the accessibility
// tree, independent of the layout-bearing EnhancedNode forest, for callers
// that only need roles/names (e.g. the Locator Resolver's sanity checks).
type AccessibilityTree struct {
	Root *AXNode
}

// AXNode is one node of the accessibility tree.
type AXNode struct {
	Role     string
	Name     string
	Children []*AXNode
}

// rawNode is the shape returned by the page-side collection script.
type rawNode struct {
	BackendNodeID int64             `json:"backendNodeId"`
	ParentID      int64             `json:"parentId"`
	Tag           string            `json:"tag"`
	NodeType      int               `json:"nodeType"`
	Attrs         map[string]string `json:"attrs"`
	Text          string            `json:"text"`
	Role          string            `json:"role"`
	AXName        string            `json:"axName"`
	Focusable     bool              `json:"focusable"`
	Editable      bool              `json:"editable"`
	Checked       bool              `json:"checked"`
	Expanded      bool              `json:"expanded"`
	Pressed       bool              `json:"pressed"`
	Selected      bool              `json:"selected"`
	Required      bool              `json:"required"`
	Autocomplete  bool              `json:"autocomplete"`
	KeyShortcuts  bool              `json:"keyShortcuts"`
	Disabled      bool              `json:"disabled"`
	Hidden        bool              `json:"hidden"`
	HasBounds     bool              `json:"hasBounds"`
	X             float64           `json:"x"`
	Y             float64           `json:"y"`
	Width         float64           `json:"width"`
	Height        float64           `json:"height"`
	PaintOrder    int               `json:"paintOrder"`
	HasPaint      bool              `json:"hasPaint"`
	Opacity       float64           `json:"opacity"`
	BgColor       string            `json:"bgColor"`
	Cursor        string            `json:"cursor"`
	Scrollable    bool              `json:"scrollable"`
	ShadowHost    bool              `json:"shadowHost"`
}

// collectScript walks the live DOM (including open shadow roots) and
// returns a flat JSON array of rawNode records. It never throws: any
// per-node failure is caught and the node is skipped.
const collectScript = `() => {
	const out = [];
	let nextId = 1;
	const ids = new WeakMap();
	function idFor(n) {
		if (!ids.has(n)) ids.set(n, nextId++);
		return ids.get(n);
	}
	function walk(node, parentId) {
		try {
			if (!node) return;
			const isElement = node.nodeType === 1;
			const id = idFor(node);
			if (isElement) {
				const rect = node.getBoundingClientRect();
				const style = window.getComputedStyle(node);
				const attrs = {};
				for (const a of node.attributes || []) attrs[a.name] = a.value;
				out.push({
					backendNodeId: id,
					parentId: parentId || 0,
					tag: node.tagName.toLowerCase(),
					nodeType: 1,
					attrs: attrs,
					text: (node.innerText || node.textContent || '').trim().slice(0, 500),
					role: node.getAttribute('role') || '',
					axName: node.getAttribute('aria-label') || '',
					focusable: node.tabIndex >= 0,
					editable: !!node.isContentEditable,
					checked: !!node.checked,
					expanded: node.getAttribute('aria-expanded') === 'true',
					pressed: node.getAttribute('aria-pressed') === 'true',
					selected: !!node.selected || node.getAttribute('aria-selected') === 'true',
					required: !!node.required,
					autocomplete: !!node.getAttribute('autocomplete'),
					keyShortcuts: !!node.getAttribute('aria-keyshortcuts'),
					disabled: !!node.disabled || node.getAttribute('aria-disabled') === 'true',
					hidden: node.hidden || node.getAttribute('aria-hidden') === 'true',
					hasBounds: rect.width > 0 || rect.height > 0,
					x: rect.left, y: rect.top, width: rect.width, height: rect.height,
					paintOrder: id,
					hasPaint: rect.width > 0 && rect.height > 0,
					opacity: parseFloat(style.opacity || '1'),
					bgColor: style.backgroundColor || '',
					cursor: style.cursor || '',
					scrollable: node.scrollHeight > node.clientHeight + 4 || node.scrollWidth > node.clientWidth + 4,
					shadowHost: !!node.shadowRoot,
				});
			}
			const kids = node.childNodes ? Array.from(node.childNodes) : [];
			for (const kid of kids) walk(kid, isElement ? id : parentId);
			if (isElement && node.shadowRoot) {
				const kids2 = Array.from(node.shadowRoot.childNodes || []);
				for (const kid of kids2) walk(kid, id);
			}
		} catch (e) {
			// drop this node only
		}
	}
	walk(document.documentElement, 0);
	return JSON.stringify(out);
}`

// ExtractElementMap collects the current page's DOM/accessibility/layout
// snapshot and runs it through the interactive-element serialiser,
// returning the resulting selector map.
func ExtractElementMap(ctx context.Context, page *rod.Page) (*ElementMap, error) {
	root, err := buildEnhancedTree(page)
	if err != nil {
		return nil, fmt.Errorf("failed to build enhanced tree: %w", err)
	}

	result := Serialise(root, SerialiseOptions{
		EnableBboxFiltering:  true,
		ContainmentThreshold: 0.99,
		PaintOrderFiltering:  true,
	})

	em := NewElementMap()
	em.PageTitle = pageTitle(page)
	em.PageURL = pageURL(page)
	for _, el := range result.Elements {
		em.Add(el)
	}
	return em, nil
}

func pageTitle(page *rod.Page) string {
	info, err := page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.Title
}

func pageURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// ExtractAccessibilityTree collects a standalone accessibility tree.
func ExtractAccessibilityTree(ctx context.Context, page *rod.Page) (*AccessibilityTree, error) {
	root, err := buildEnhancedTree(page)
	if err != nil {
		return nil, fmt.Errorf("failed to build accessibility tree: %w", err)
	}
	return &AccessibilityTree{Root: toAXNode(root)}, nil
}

func toAXNode(n *EnhancedNode) *AXNode {
	if n == nil {
		return nil
	}
	ax := &AXNode{Role: n.AX.Role, Name: n.Text}
	for _, c := range n.Children {
		ax.Children = append(ax.Children, toAXNode(c))
	}
	return ax
}

func buildEnhancedTree(page *rod.Page) (*EnhancedNode, error) {
	raw, err := page.Eval(collectScript)
	if err != nil {
		return nil, fmt.Errorf("failed to collect DOM snapshot: %w", err)
	}

	var nodes []rawNode
	if err := raw.Value.Unmarshal(&nodes); err != nil {
		return nil, fmt.Errorf("failed to decode DOM snapshot: %w", err)
	}

	byID := make(map[int64]*EnhancedNode, len(nodes)+1)
	root := &EnhancedNode{BackendNodeID: 0, Tag: "root", Attributes: map[string]string{}}
	byID[0] = root

	for _, rn := range nodes {
		n := &EnhancedNode{
			BackendNodeID: rn.BackendNodeID,
			Tag:           rn.Tag,
			NodeType:      rn.NodeType,
			Attributes:    rn.Attrs,
			Text:          rn.Text,
			Scrollable:    rn.Scrollable,
			ShadowHost:    rn.ShadowHost,
			PaintOrder:    rn.PaintOrder,
			HasPaint:      rn.HasPaint,
			AX: AXProperties{
				Focusable:    rn.Focusable,
				Editable:     rn.Editable,
				Settable:     rn.Editable,
				Checked:      rn.Checked,
				Expanded:     rn.Expanded,
				Pressed:      rn.Pressed,
				Selected:     rn.Selected,
				Required:     rn.Required,
				Autocomplete: rn.Autocomplete,
				KeyShortcuts: rn.KeyShortcuts,
				Disabled:     rn.Disabled,
				Hidden:       rn.Hidden,
				Role:         rn.Role,
			},
			Style: ComputedStyle{
				BackgroundColor: rn.BgColor,
				Opacity:         rn.Opacity,
				Cursor:          rn.Cursor,
			},
		}
		if rn.HasBounds {
			n.Bounds = &BoundingBox{X: rn.X, Y: rn.Y, Width: rn.Width, Height: rn.Height}
		}
		if n.AX.Role == "" {
			n.AX.Role = "" // leave empty; classification uses tag as fallback
		}
		if rn.AXName != "" {
			n.Text = rn.AXName
		}
		byID[rn.BackendNodeID] = n
	}

	for _, rn := range nodes {
		child := byID[rn.BackendNodeID]
		parent := byID[rn.ParentID]
		if parent == nil {
			parent = root
		}
		child.Parent = parent
		parent.Children = append(parent.Children, child)
	}

	return root, nil
}

// ---------------------------------------------------------------------
// Serialiser (spec §4.D)
// ---------------------------------------------------------------------

var prunedTags = map[string]bool{
	"style": true, "script": true, "head": true, "meta": true, "link": true, "title": true,
	"path": true, "rect": true, "g": true, "circle": true, "ellipse": true, "line": true,
	"polyline": true, "polygon": true, "use": true, "defs": true, "clippath": true,
	"mask": true, "pattern": true, "image": true, "text": true, "tspan": true,
}

var interactiveTags = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true, "a": true,
	"details": true, "summary": true, "option": true, "optgroup": true,
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "menuitem": true, "option": true, "radio": true,
	"checkbox": true, "tab": true, "textbox": true, "combobox": true, "slider": true,
	"spinbutton": true, "search": true, "searchbox": true,
}

var searchIndicators = []string{"search", "magnify", "glass", "lookup", "find", "query", "searchbox"}

var propagatingAncestors = map[string]bool{
	"a": true, "button": true,
}

// SimplifiedNode is the serialiser's output projection of one EnhancedNode.
type SimplifiedNode struct {
	Source   *EnhancedNode
	Children []*SimplifiedNode

	IsInteractive      bool
	IsNew              bool
	IgnoredByPaintOrder bool
	ExcludedByParent   bool
	ShouldDisplay      bool

	Index int // 0 means unassigned
}

// SelectorMap maps an assigned small integer to the underlying node,
// valid for the lifetime of one snapshot only.
type SelectorMap map[int]*EnhancedNode

// SerialiseOptions configures one serialisation pass.
type SerialiseOptions struct {
	PreviousMap          SelectorMap
	EnableBboxFiltering  bool
	ContainmentThreshold float64
	PaintOrderFiltering  bool
}

// SerialiseResult is everything one call to Serialise produces.
type SerialiseResult struct {
	Root     *SimplifiedNode
	Elements []*Element
	Map      SelectorMap
	Listing  string
	Timing   map[string]time.Duration
}

// Serialise runs the full interactive-element serialisation algorithm
// (spec §4.D) over an enhanced tree rooted at root.
func Serialise(root *EnhancedNode, opts SerialiseOptions) SerialiseResult {
	if opts.ContainmentThreshold == 0 {
		opts.ContainmentThreshold = 0.99
	}
	timing := map[string]time.Duration{}

	t0 := time.Now()
	pruned := prune(root)
	timing["prune"] = time.Since(t0)

	t2 := time.Now()
	simplified := fold(pruned)
	timing["fold"] = time.Since(t2)
	if simplified == nil {
		return SerialiseResult{Map: SelectorMap{}, Timing: timing}
	}

	t3 := time.Now()
	if opts.PaintOrderFiltering {
		applyPaintOrderOcclusion(simplified)
	}
	timing["paintOrder"] = time.Since(t3)

	t4 := time.Now()
	if opts.EnableBboxFiltering {
		applyContainmentFilter(simplified, opts.ContainmentThreshold, nil)
	}
	timing["containment"] = time.Since(t4)

	t5 := time.Now()
	selMap := SelectorMap{}
	next := 1
	var elements []*Element
	assignIndices(simplified, &next, selMap, opts.PreviousMap, 0, &elements)
	timing["index"] = time.Since(t5)

	t6 := time.Now()
	listing := renderListing(simplified)
	timing["listing"] = time.Since(t6)

	return SerialiseResult{
		Root:     simplified,
		Elements: elements,
		Map:      selMap,
		Listing:  listing,
		Timing:   timing,
	}
}

// prune discards static/SVG noise nodes and recurses into shadow roots,
// returning a copy of the tree shape with those nodes removed.
func prune(n *EnhancedNode) *EnhancedNode {
	if n == nil {
		return nil
	}
	if n.Tag != "root" && prunedTags[n.Tag] {
		return nil
	}
	out := &EnhancedNode{
		BackendNodeID: n.BackendNodeID,
		Tag:           n.Tag,
		NodeType:      n.NodeType,
		Attributes:    n.Attributes,
		Text:          n.Text,
		AX:            n.AX,
		Style:         n.Style,
		Bounds:        n.Bounds,
		PaintOrder:    n.PaintOrder,
		HasPaint:      n.HasPaint,
		Scrollable:    n.Scrollable,
		ShadowHost:    n.ShadowHost,
	}
	for _, c := range n.Children {
		if pc := prune(c); pc != nil {
			pc.Parent = out
			out.Children = append(out.Children, pc)
		}
	}
	return out
}

func hasClassOrID(attrs map[string]string, needles []string) bool {
	fields := []string{attrs["class"], attrs["id"]}
	for k, v := range attrs {
		if strings.HasPrefix(k, "data-") {
			fields = append(fields, v)
		}
	}
	joined := strings.ToLower(strings.Join(fields, " "))
	for _, needle := range needles {
		if strings.Contains(joined, needle) {
			return true
		}
	}
	return false
}

func isInteractiveNode(n *EnhancedNode) bool {
	if n.Tag == "html" || n.Tag == "body" {
		return false
	}
	if n.AX.Disabled || n.AX.Hidden {
		return false
	}
	if n.Tag == "iframe" && n.Bounds != nil && n.Bounds.Width > 100 && n.Bounds.Height > 100 {
		return true
	}
	if hasClassOrID(n.Attributes, searchIndicators) {
		return true
	}
	if n.AX.Focusable || n.AX.Editable || n.AX.Settable || n.AX.Checked || n.AX.Expanded ||
		n.AX.Pressed || n.AX.Selected || n.AX.Required || n.AX.Autocomplete || n.AX.KeyShortcuts {
		return true
	}
	if interactiveTags[n.Tag] {
		return true
	}
	for _, attr := range []string{"onclick", "onmousedown", "onmouseup", "onkeydown", "onkeyup", "tabindex"} {
		if _, ok := n.Attributes[attr]; ok {
			return true
		}
	}
	if interactiveRoles[strings.ToLower(n.AX.Role)] {
		return true
	}
	if n.Bounds != nil {
		w, h := n.Bounds.Width, n.Bounds.Height
		if w >= 10 && w <= 50 && h >= 10 && h <= 50 {
			_, hasClass := n.Attributes["class"]
			_, hasRole := n.Attributes["role"]
			_, hasOnclick := n.Attributes["onclick"]
			_, hasDataAction := n.Attributes["data-action"]
			_, hasAriaLabel := n.Attributes["aria-label"]
			if hasClass || hasRole || hasOnclick || hasDataAction || hasAriaLabel {
				return true
			}
		}
	}
	if strings.EqualFold(n.Style.Cursor, "pointer") {
		return true
	}
	return false
}

// fold builds the SimplifiedNode tree, recursively dropping subtrees with
// no interactive node anywhere inside them.
func fold(n *EnhancedNode) *SimplifiedNode {
	if n == nil {
		return nil
	}
	self := isInteractiveNode(n)
	sn := &SimplifiedNode{Source: n, IsInteractive: self}

	hasInteractiveDescendant := self
	for _, c := range n.Children {
		if fc := fold(c); fc != nil {
			sn.Children = append(sn.Children, fc)
			hasInteractiveDescendant = true
		}
	}
	if n.ShadowRoot != nil {
		if fc := fold(n.ShadowRoot); fc != nil {
			sn.Children = append(sn.Children, fc)
			hasInteractiveDescendant = true
		}
	}

	if !hasInteractiveDescendant && n.Tag != "root" {
		return nil
	}
	sn.ShouldDisplay = true
	return sn
}

// applyPaintOrderOcclusion walks nodes from highest to lowest paint order,
// maintaining a disjoint union of already-painted rectangles, marking any
// fully-contained node as ignoredByPaintOrder.
func applyPaintOrderOcclusion(root *SimplifiedNode) {
	var all []*SimplifiedNode
	var collect func(n *SimplifiedNode)
	collect = func(n *SimplifiedNode) {
		if n == nil {
			return
		}
		all = append(all, n)
		for _, c := range n.Children {
			collect(c)
		}
	}
	collect(root)

	sort.SliceStable(all, func(i, j int) bool {
		pi, pj := all[i].Source.PaintOrder, all[j].Source.PaintOrder
		if pi != pj {
			return pi > pj
		}
		return i < j // ties: document order (stable sort keeps insertion order)
	})

	var union []BoundingBox
	for _, n := range all {
		b := n.Source.Bounds
		if b == nil || b.area() == 0 {
			continue
		}
		if fullyContained(*b, union) {
			n.IgnoredByPaintOrder = true
		}
		if n.Source.Style.Opacity >= 0.8 && !strings.EqualFold(n.Source.Style.BackgroundColor, "transparent") && n.Source.Style.BackgroundColor != "rgba(0, 0, 0, 0)" {
			union = append(union, *b)
		}
	}
}

func fullyContained(b BoundingBox, union []BoundingBox) bool {
	if len(union) == 0 {
		return false
	}
	for _, u := range union {
		if b.containedIn(u, 0.999999) {
			return true
		}
	}
	return false
}

// applyContainmentFilter marks descendants as excludedByParent when they
// sit (almost) entirely inside a propagating ancestor's bounds, unless
// the descendant is itself a form control or carries onclick/aria-label.
func applyContainmentFilter(n *SimplifiedNode, threshold float64, ancestorBounds *BoundingBox) {
	if n == nil {
		return
	}

	if ancestorBounds != nil && n.Source.Bounds != nil {
		if !isExemptFromContainment(n.Source) && n.Source.Bounds.containedIn(*ancestorBounds, threshold) {
			n.ExcludedByParent = true
		}
	}

	nextAncestor := ancestorBounds
	if propagatingAncestors[n.Source.Tag] || isPropagatingRoleElement(n.Source) {
		if n.Source.Bounds != nil {
			nextAncestor = n.Source.Bounds
		}
	}

	for _, c := range n.Children {
		applyContainmentFilter(c, threshold, nextAncestor)
	}
}

func isPropagatingRoleElement(n *EnhancedNode) bool {
	role := strings.ToLower(n.AX.Role)
	switch n.Tag {
	case "div", "span", "input":
		return role == "button" || role == "combobox"
	}
	return false
}

func isExemptFromContainment(n *EnhancedNode) bool {
	switch n.Tag {
	case "input", "select", "textarea", "button":
		return true
	}
	if _, ok := n.Attributes["onclick"]; ok {
		return true
	}
	if _, ok := n.Attributes["aria-label"]; ok {
		return true
	}
	return false
}

// assignIndices walks in document order, assigning the next integer
// (starting at 1) to every retained, non-occluded, non-excluded
// interactive node, and appends a flattened Element for it.
func assignIndices(n *SimplifiedNode, next *int, selMap SelectorMap, prevMap SelectorMap, depth int, out *[]*Element) {
	if n == nil {
		return
	}

	retained := n.IsInteractive && !n.IgnoredByPaintOrder && !n.ExcludedByParent
	if retained {
		if prevMap != nil {
			found := false
			for _, pn := range prevMap {
				if pn.BackendNodeID == n.Source.BackendNodeID {
					found = true
					break
				}
			}
			n.IsNew = !found
		}

		n.Index = *next
		selMap[*next] = n.Source
		*out = append(*out, toFlatElement(n, depth))
		*next++
	}

	for _, c := range n.Children {
		assignIndices(c, next, selMap, prevMap, depth+1, out)
	}
}

func toFlatElement(n *SimplifiedNode, depth int) *Element {
	src := n.Source
	el := &Element{
		Index:         n.Index,
		TagName:       src.Tag,
		Role:          src.AX.Role,
		Name:          src.Attributes["name"],
		Text:          src.Text,
		Type:          src.Attributes["type"],
		Href:          src.Attributes["href"],
		Placeholder:   src.Attributes["placeholder"],
		Value:         src.Attributes["value"],
		AriaLabel:     src.Attributes["aria-label"],
		IsInteractive: n.IsInteractive && !n.IgnoredByPaintOrder && !n.ExcludedByParent,
		IsVisible:     src.Bounds != nil && src.Bounds.area() > 0,
		BackendNodeID: src.BackendNodeID,
		IsNew:         n.IsNew,
		IsShadowHost:  src.ShadowHost,
		IsScrollable:  src.Scrollable,
		Depth:         depth,
	}
	if src.Bounds != nil {
		el.BoundingBox = *src.Bounds
	}
	return el
}

// renderListing produces the compact textual representation described in
// spec §4.D step 7: one line per displayable node, indented by depth.
func renderListing(root *SimplifiedNode) string {
	var sb strings.Builder
	var walk func(n *SimplifiedNode, depth int)
	walk = func(n *SimplifiedNode, depth int) {
		if n == nil || !n.ShouldDisplay {
			return
		}
		if n.Source.Tag != "root" {
			el := toFlatElement(n, depth)
			if n.Index > 0 {
				sb.WriteString(formatElementLine(el))
			} else {
				sb.WriteString(strings.Repeat("  ", depth))
				sb.WriteString(fmt.Sprintf("<%s>%s</%s>", el.TagName, truncate(el.Text, 80), el.TagName))
			}
			sb.WriteByte('\n')
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(root, -1)
	return sb.String()
}
