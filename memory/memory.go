// Package memory holds the agent's short-term (per-task) observation
// window and its cross-task long-term memory, matching spec §3's
// BrowserStateSummary / Agent Loop ownership split: the short-term window
// is scoped to one task, long-term entries survive across tasks and are
// optionally persisted to disk.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Action records the action taken alongside an Observation, mirroring the
// shape of an executed spec §3 Action without depending on the registry
// package (memory must stay a leaf dependency).
type Action struct {
	Type      string
	Target    string
	Value     string
	Reasoning string
}

// Observation is one step's short-term memory record: the resulting page
// state plus what the agent did and why.
type Observation struct {
	URL            string
	Title          string
	Action         *Action
	Result         string
	ScreenshotPath string
	ElementCount   int
	Timestamp      time.Time
}

// LongTermEntry is a durable lesson the agent has learned — a successful
// or failed interaction pattern tied to a site — independent of any one
// task's short-term window.
type LongTermEntry struct {
	Key         string
	Type        string // "success", "failure", "pattern"
	Content     string
	Site        string
	AccessCount int
	CreatedAt   time.Time
	AccessedAt  time.Time
}

// Config configures a Manager.
type Config struct {
	// ShortTermLimit bounds how many Observations are kept; older entries
	// are compacted (dropped) once exceeded. Defaults to 10.
	ShortTermLimit int
	// StorageDir, when set, is where Save/Load persist long-term memory
	// as memory.json.
	StorageDir string
}

// Stats is a point-in-time snapshot of Manager contents.
type Stats struct {
	ShortTermCount int
	ShortTermLimit int
	LongTermCount  int
	TaskPrompt     string
}

// persistedState is the on-disk shape written by Save / read by Load.
type persistedState struct {
	LongTerm map[string]*LongTermEntry `json:"longTerm"`
}

// Manager holds one agent run's short-term observation window and its
// long-term memory table. Safe for concurrent use.
type Manager struct {
	config Config

	mu          sync.RWMutex
	taskPrompt  string
	observations []*Observation
	longTerm    map[string]*LongTermEntry
}

// NewManager constructs a Manager, defaulting ShortTermLimit to 10.
func NewManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	if c.ShortTermLimit <= 0 {
		c.ShortTermLimit = 10
	}
	return &Manager{
		config:   c,
		longTerm: make(map[string]*LongTermEntry),
	}
}

// StartTask resets the short-term window for a new task and records its
// prompt for GetTaskContext.
func (m *Manager) StartTask(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskPrompt = prompt
	m.observations = nil
}

// GetTaskContext returns the current task prompt, or "" if StartTask has
// not been called.
func (m *Manager) GetTaskContext() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.taskPrompt
}

// AddObservation appends obs to the short-term window, stamping Timestamp
// if unset, then compacts down to ShortTermLimit by dropping the oldest.
func (m *Manager) AddObservation(obs *Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now()
	}
	m.observations = append(m.observations, obs)

	if len(m.observations) > m.config.ShortTermLimit {
		excess := len(m.observations) - m.config.ShortTermLimit
		m.observations = m.observations[excess:]
	}
}

// GetRecentObservations returns the n most recent observations in
// chronological order, or all of them when n <= 0.
func (m *Manager) GetRecentObservations(n int) []*Observation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || n >= len(m.observations) {
		out := make([]*Observation, len(m.observations))
		copy(out, m.observations)
		return out
	}
	start := len(m.observations) - n
	out := make([]*Observation, n)
	copy(out, m.observations[start:])
	return out
}

// AddLongTermMemory inserts or overwrites the entry at entry.Key, stamping
// CreatedAt on first insertion.
func (m *Manager) AddLongTermMemory(entry *LongTermEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.longTerm[entry.Key]; ok {
		entry.CreatedAt = existing.CreatedAt
		entry.AccessCount = existing.AccessCount
		entry.AccessedAt = existing.AccessedAt
	} else if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.longTerm[entry.Key] = entry
}

// GetLongTermMemory looks up key, bumping its access counter and
// timestamp on a hit.
func (m *Manager) GetLongTermMemory(key string) (*LongTermEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.longTerm[key]
	if !ok {
		return nil, false
	}
	entry.AccessCount++
	entry.AccessedAt = time.Now()
	return entry, true
}

// RecordSuccess records a successful interaction pattern for site/action
// under a generated key.
func (m *Manager) RecordSuccess(site, action, detail string) {
	m.AddLongTermMemory(&LongTermEntry{
		Key:     fmt.Sprintf("success:%s:%s:%d", site, action, time.Now().UnixNano()),
		Type:    "success",
		Content: detail,
		Site:    site,
	})
}

// RecordFailure records a failed interaction pattern for site/action under
// a generated key.
func (m *Manager) RecordFailure(site, action, detail string) {
	m.AddLongTermMemory(&LongTermEntry{
		Key:     fmt.Sprintf("failure:%s:%s:%d", site, action, time.Now().UnixNano()),
		Type:    "failure",
		Content: detail,
		Site:    site,
	})
}

// SearchLongTermMemory returns entries whose Content or Key match query,
// optionally restricted to site. Matching is keyword-based via
// containsKeywords; an empty query never matches.
func (m *Manager) SearchLongTermMemory(query, site string) []*LongTermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*LongTermEntry
	for _, entry := range m.longTerm {
		if site != "" && entry.Site != site {
			continue
		}
		if containsKeywords(entry.Content, query) || containsKeywords(entry.Key, query) {
			out = append(out, entry)
		}
	}
	return out
}

// containsKeywords is a placeholder relevance check: a production build
// would tokenize and score, but today it reports a candidate match
// whenever both text and query are non-empty.
func containsKeywords(text, query string) bool {
	return text != "" && query != "" && strings.TrimSpace(query) != ""
}

// Clear resets both the short-term window and the long-term table.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = nil
	m.taskPrompt = ""
	m.longTerm = make(map[string]*LongTermEntry)
}

// ClearShortTerm resets only the short-term observation window, leaving
// long-term memory and the task prompt intact.
func (m *Manager) ClearShortTerm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = nil
}

// Stats returns a snapshot of the manager's current contents.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		ShortTermCount: len(m.observations),
		ShortTermLimit: m.config.ShortTermLimit,
		LongTermCount:  len(m.longTerm),
		TaskPrompt:     m.taskPrompt,
	}
}

// Save persists the long-term memory table to StorageDir/memory.json.
// The short-term window is intentionally not persisted: it is scoped to
// one task's lifetime (spec §3 ownership).
func (m *Manager) Save(ctx context.Context) error {
	m.mu.RLock()
	state := persistedState{LongTerm: make(map[string]*LongTermEntry, len(m.longTerm))}
	for k, v := range m.longTerm {
		state.LongTerm[k] = v
	}
	dir := m.config.StorageDir
	m.mu.RUnlock()

	if dir == "" {
		return fmt.Errorf("memory: no storage directory configured")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: failed to marshal state: %w", err)
	}

	path := filepath.Join(dir, "memory.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("memory: failed to write %s: %w", path, err)
	}
	return nil
}

// Load reads long-term memory from StorageDir/memory.json, merging into
// the current table. A missing file is not an error.
func (m *Manager) Load(ctx context.Context) error {
	if m.config.StorageDir == "" {
		return fmt.Errorf("memory: no storage directory configured")
	}

	path := filepath.Join(m.config.StorageDir, "memory.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("memory: failed to read %s: %w", path, err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("memory: failed to decode %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range state.LongTerm {
		m.longTerm[k] = v
	}
	return nil
}
