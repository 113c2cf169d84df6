package agent

import (
	"fmt"
	"strings"

	"github.com/anxuanzi/bua-go/dom"
)

// MessageRole labels each composed message with the conversational role the
// composer tracks; Render writes it as a "[role]" header. Nothing in this
// package maps it onto genai.Content roles.
type MessageRole string

const (
	RoleSystem MessageRole = "system"
	RoleUser   MessageRole = "user"
	RoleState  MessageRole = "state"
)

// Message is one entry in the composed conversation.
type Message struct {
	Role    MessageRole
	Content string
}

// StateInput is everything the composer needs to render the single
// replaceable "current browser state" message (spec §4.H).
type StateInput struct {
	PreviousEvaluation string // empty if this is the first step
	URL                string
	Title              string
	Elements           *dom.ElementMap
	ViewportWidth      int
	ViewportHeight     int
	ScrollX            float64
	ScrollY            float64
}

// ComposerConfig bounds the composed conversation's size.
type ComposerConfig struct {
	// ListingCharLimit caps the serialised element listing embedded in the
	// state message. Default 40000 per spec §4.H.
	ListingCharLimit int

	// KeepFirst is how many messages at the start of the conversation are
	// never trimmed (system prompt, task message). Those two are held outside
	// history, so trimming does not read this value.
	KeepFirst int

	// KeepLast is how many of the most recent history messages are kept
	// verbatim; older history entries are dropped once history grows past
	// KeepLast.
	KeepLast int
}

// DefaultComposerConfig returns spec §4.H's defaults.
func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{
		ListingCharLimit: 40000,
		KeepFirst:        2,
		KeepLast:         10,
	}
}

// Composer holds the ordered conversation with the model: a system prompt,
// a task message, a single replaceable state message, and the observation
// history accumulated between them. It never appends a second state
// message — each step replaces the prior one (spec §4.H).
type Composer struct {
	cfg ComposerConfig

	system  Message
	task    Message
	state   *Message // nil until the first state is composed
	history []Message
}

// NewComposer creates a Composer with systemPrompt and task as the two
// messages history trimming always preserves.
func NewComposer(cfg ComposerConfig, systemPrompt, task string) *Composer {
	if cfg.ListingCharLimit <= 0 {
		cfg.ListingCharLimit = 40000
	}
	if cfg.KeepFirst <= 0 {
		cfg.KeepFirst = 2
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = 10
	}
	return &Composer{
		cfg:    cfg,
		system: Message{Role: RoleSystem, Content: systemPrompt},
		task:   Message{Role: RoleUser, Content: task},
	}
}

// SetState replaces the current browser state message in place.
func (c *Composer) SetState(in StateInput) {
	c.state = &Message{Role: RoleState, Content: renderState(in, c.cfg.ListingCharLimit)}
}

// AddObservation appends an action's outcome to history, then trims.
func (c *Composer) AddObservation(text string) {
	c.history = append(c.history, Message{Role: RoleUser, Content: text})
	c.trim()
}

// trim keeps only the most recent KeepLast history entries once history
// grows past that bound (spec §4.H: "keep first two messages and last N" —
// the system prompt and task message are the "first two" and are never
// part of history, so trimming history alone satisfies that rule).
func (c *Composer) trim() {
	if len(c.history) <= c.cfg.KeepLast {
		return
	}
	c.history = append([]Message{}, c.history[len(c.history)-c.cfg.KeepLast:]...)
}

// Messages renders the full ordered conversation to send to the model.
func (c *Composer) Messages() []Message {
	msgs := make([]Message, 0, 3+len(c.history))
	msgs = append(msgs, c.system, c.task)
	msgs = append(msgs, c.history...)
	if c.state != nil {
		msgs = append(msgs, *c.state)
	}
	return msgs
}

// Render flattens Messages into a single prompt string, used by callers
// that invoke the model directly rather than through the ADK runner's
// multi-turn session.
func (c *Composer) Render() string {
	var sb strings.Builder
	for _, m := range c.Messages() {
		sb.WriteString(fmt.Sprintf("[%s]\n%s\n\n", m.Role, m.Content))
	}
	return sb.String()
}

func renderState(in StateInput, limit int) string {
	var sb strings.Builder

	if in.PreviousEvaluation != "" {
		sb.WriteString("Previous step evaluation:\n")
		sb.WriteString(in.PreviousEvaluation)
		sb.WriteString("\n\n")
	}

	sb.WriteString(fmt.Sprintf("Current URL: %s\n", in.URL))
	sb.WriteString(fmt.Sprintf("Title: %s\n", in.Title))

	if in.Elements != nil {
		stats := computeStats(in.Elements)
		sb.WriteString(fmt.Sprintf(
			"Page statistics: %d interactive elements (%d links, %d inputs, %d buttons, %d scroll containers)\n",
			stats.interactive, stats.links, stats.inputs, stats.buttons, stats.scrollContainers,
		))
	}

	sb.WriteString(fmt.Sprintf("Viewport: %dx%d, scroll: (%.0f, %.0f)\n\n", in.ViewportWidth, in.ViewportHeight, in.ScrollX, in.ScrollY))

	sb.WriteString("Interactive elements:\n")
	if in.Elements != nil {
		sb.WriteString(truncateListing(in.Elements.ToTokenString(), limit))
	} else {
		sb.WriteString("(none)")
	}

	return sb.String()
}

// truncateListing caps listing at limit characters, appending an explicit
// marker when it had to cut (spec §4.H: "explicit truncated marker").
func truncateListing(listing string, limit int) string {
	if limit <= 0 || len(listing) <= limit {
		return listing
	}
	return listing[:limit] + "\n... [truncated, listing exceeded character limit]"
}

type pageStats struct {
	interactive      int
	links            int
	inputs           int
	buttons          int
	scrollContainers int
}

func computeStats(elements *dom.ElementMap) pageStats {
	stats := pageStats{interactive: elements.Count()}
	for _, el := range elements.InteractiveElements() {
		switch strings.ToLower(el.TagName) {
		case "a":
			stats.links++
		case "input", "textarea", "select":
			stats.inputs++
		case "button":
			stats.buttons++
		}
		if el.IsScrollable {
			stats.scrollContainers++
		}
	}
	return stats
}
