package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrStreamActive is returned when a conversation already has a stream in
// progress.
var ErrStreamActive = errors.New("stream already active for conversation")

// DefaultStaleAfter is how old a lock file must be before it is treated as
// left behind by a crashed process.
const DefaultStaleAfter = 30 * time.Minute

// Manager allows at most one active stream per conversation. Within a
// process it tracks ids in memory; with a lock directory it also holds an
// exclusive lock file so separate processes see each other.
type Manager struct {
	mu         sync.Mutex
	active     map[string]bool
	lockDir    string
	staleAfter time.Duration
	now        func() time.Time
}

// NewManager returns a manager. An empty lockDir keeps locking in-process.
func NewManager(lockDir string) *Manager {
	return &Manager{
		active:     make(map[string]bool),
		lockDir:    lockDir,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// Acquire marks conversationID as streaming. The returned release func must
// be called when the stream ends; calling it more than once is harmless.
// A new conversation with no id yet is never contended.
func (m *Manager) Acquire(conversationID string) (func(), error) {
	if conversationID == "" {
		return func() {}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active[conversationID] {
		return nil, fmt.Errorf("acquire %s: %w", conversationID, ErrStreamActive)
	}

	lockPath := ""
	if m.lockDir != "" {
		var err error
		lockPath, err = m.lockFile(conversationID)
		if err != nil {
			return nil, err
		}
	}

	m.active[conversationID] = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.active, conversationID)
			m.mu.Unlock()
			if lockPath != "" {
				_ = os.Remove(lockPath)
			}
		})
	}
	return release, nil
}

// Active reports whether conversationID is streaming in this process.
func (m *Manager) Active(conversationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[conversationID]
}

func (m *Manager) lockFile(conversationID string) (string, error) {
	if err := os.MkdirAll(m.lockDir, 0o755); err != nil {
		return "", fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(m.lockDir, filepath.Base(conversationID)+".lock")

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("acquire stream lock: %w", err)
		}

		info, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			continue
		}
		if statErr != nil || m.now().Sub(info.ModTime()) < m.staleAfter {
			return "", fmt.Errorf("acquire %s: %w", conversationID, ErrStreamActive)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove stale lock: %w", err)
		}
	}
	return "", fmt.Errorf("acquire %s: %w", conversationID, ErrStreamActive)
}
