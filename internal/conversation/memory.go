// Package conversation keeps a short, per-identity history of the exchange
// with a lead so the classifier does not ask again for data it already has.
//
// History is process-local and is lost on restart.
package conversation

import (
	"strings"
	"sync"
)

// DefaultMaxTurns is the bound used when NewMemory receives a non-positive value.
const DefaultMaxTurns = 20

// NoContext is rendered when an identity has no prior turns.
const NoContext = "No prior conversation history."

const contextHeader = "Context collected from the user (do not ask again for data already given):"

// Role of the speaker of a turn
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one immutable message in a conversation log
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Memory is a bounded FIFO log of turns per identity key.
// It is safe for concurrent use.
type Memory struct {
	maxTurns int

	mu   sync.Mutex
	logs map[string][]Turn
}

// NewMemory creates a memory holding at most maxTurns turns per key
func NewMemory(maxTurns int) *Memory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Memory{
		maxTurns: maxTurns,
		logs:     make(map[string][]Turn),
	}
}

// MaxTurns returns the per-key bound
func (m *Memory) MaxTurns() int {
	return m.maxTurns
}

// Append stores a turn for key. Empty keys or contents are ignored; unknown
// roles are recorded as user turns.
func (m *Memory) Append(key string, role Role, content string) {
	key = cleanKey(key)
	content = strings.TrimSpace(content)
	if key == "" || content == "" {
		return
	}
	if role != RoleAgent {
		role = RoleUser
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.logs[key], Turn{Role: role, Content: content})
	if overflow := len(turns) - m.maxTurns; overflow > 0 {
		// copy into a fresh slice so evicted turns are not pinned by the backing array
		kept := make([]Turn, m.maxTurns)
		copy(kept, turns[overflow:])
		turns = kept
	}
	m.logs[key] = turns
}

// Get returns a copy of the turns stored for key, oldest first
func (m *Memory) Get(key string) []Turn {
	key = cleanKey(key)
	if key == "" {
		return []Turn{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.logs[key]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear drops the whole log for key
func (m *Memory) Clear(key string) {
	key = cleanKey(key)
	if key == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.logs, key)
}

// Render returns the transcript for key formatted for prompt injection
func (m *Memory) Render(key string) string {
	return FormatTurns(m.Get(key))
}

// FormatTurns renders turns as a plain-text transcript
func FormatTurns(turns []Turn) string {
	if len(turns) == 0 {
		return NoContext
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	for _, t := range turns {
		speaker := "User"
		if t.Role == RoleAgent {
			speaker = "Agent"
		}
		b.WriteString("\n")
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}

// ResolveKey picks the first non-empty identifier, in the order given, as
// the identity key. Web chat and messaging channels can share context by
// sending the same session id, phone or email.
func ResolveKey(identifiers ...string) string {
	for _, id := range identifiers {
		if cleaned := cleanKey(id); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

func cleanKey(key string) string {
	return strings.TrimSpace(key)
}
