// Package index keeps the local directory of conversations: ids, titles
// and activity times, stored as a single JSON file.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// FileName is the index file inside the data directory.
const FileName = "conversations.json"

// DefaultTitle names a conversation until its first message is known.
const DefaultTitle = "New Chat"

const maxTitleLength = 80

// Conversation is one entry of the directory.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Index manages the conversations.json file. It is safe for concurrent use.
type Index struct {
	mu      sync.Mutex
	path    string
	now     func() time.Time
	Entries map[string]Conversation `json:"entries"` // keyed by id
}

// Load reads the index from dataDir, creating an empty one if it doesn't
// exist.
func Load(dataDir string) (*Index, error) {
	idx := &Index{
		path:    filepath.Join(dataDir, FileName),
		now:     time.Now,
		Entries: make(map[string]Conversation),
	}

	data, err := os.ReadFile(idx.path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	if err := json.Unmarshal(data, &idx.Entries); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]Conversation)
	}
	return idx, nil
}

// Path returns the index file path.
func (idx *Index) Path() string { return idx.path }

// Save writes the index to disk.
func (idx *Index) Save() error {
	idx.mu.Lock()
	data, err := json.MarshalIndent(idx.Entries, "", "  ")
	idx.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return os.WriteFile(idx.path, data, 0o644)
}

// Ensure adds id if it is not indexed yet. An empty title means
// DefaultTitle. It reports whether an entry was created.
func (idx *Index) Ensure(id, title string) bool {
	if id == "" {
		return false
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.Entries[id]; ok {
		return false
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	now := idx.now()
	idx.Entries[id] = Conversation{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}
	return true
}

// SetTitle derives a title from the first user message. Only a
// conversation still carrying DefaultTitle is renamed.
func (idx *Index) SetTitle(id, message string) bool {
	title := DeriveTitle(message)
	if title == "" {
		return false
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	c, ok := idx.Entries[id]
	if !ok || c.Title != DefaultTitle {
		return false
	}
	c.Title = title
	idx.Entries[id] = c
	return true
}

// Touch records activity on id.
func (idx *Index) Touch(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if c, ok := idx.Entries[id]; ok {
		c.UpdatedAt = idx.now()
		idx.Entries[id] = c
	}
}

// Get returns the entry for id.
func (idx *Index) Get(id string) (Conversation, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	c, ok := idx.Entries[id]
	return c, ok
}

// List returns all conversations, most recently updated first.
func (idx *Index) List() []Conversation {
	idx.mu.Lock()
	out := make([]Conversation, 0, len(idx.Entries))
	for _, c := range idx.Entries {
		out = append(out, c)
	}
	idx.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DeriveTitle is the trimmed message cut to 80 characters.
func DeriveTitle(message string) string {
	title := strings.TrimSpace(message)
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = strings.TrimSpace(string([]rune(title)[:maxTitleLength]))
	}
	return title
}
