// Package session manages the lifecycle of orchestrator sessions: creation
// with memory recall, lookup for resume calls, persistence after each
// mutation, and end-of-session cleanup. Live sessions are held in process;
// the store (when configured) makes them resumable across restarts.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/YalmanchiliTejas/Product-manager/internal/cache"
	"github.com/YalmanchiliTejas/Product-manager/internal/memory"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/store"
)

// Manager owns the live session registry.
type Manager struct {
	store  store.Store    // optional
	cache  *cache.Service // optional
	memory *memory.Hooks  // optional

	mu   sync.RWMutex
	live map[string]*models.Session
}

// NewManager creates a session manager. Every dependency may be nil.
func NewManager(s store.Store, c *cache.Service, mem *memory.Hooks) *Manager {
	return &Manager{
		store:  s,
		cache:  c,
		memory: mem,
		live:   make(map[string]*models.Session),
	}
}

// Create starts a new session over the given source documents, recalls past
// memory relevant to the project, and persists the initial state.
func (m *Manager) Create(ctx context.Context, projectID, userID string, docs []models.SourceDocument) (*models.Session, error) {
	sess := models.NewSession(projectID, userID, docs)

	if m.memory != nil {
		sess.RecalledMemories = m.memory.Recall(ctx, sess.ProjectID, "", 10)
	}

	m.mu.Lock()
	m.live[sess.ID] = sess
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.CreateSession(ctx, sess); err != nil {
			slog.Warn("persist new session", "session_id", sess.ID, "error", err)
		}
	}
	return sess, nil
}

// Get returns a live session, falling back to the store for sessions from a
// previous process.
func (m *Manager) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	sess, ok := m.live[id]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	if m.store == nil {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.live[id] = sess
	m.mu.Unlock()
	return sess, nil
}

// List returns stored sessions for the project, newest first. Without a
// store it lists the live registry.
func (m *Manager) List(ctx context.Context, projectID string, limit int) ([]*models.Session, error) {
	if m.store != nil {
		return m.store.ListSessions(ctx, projectID, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Session
	for _, sess := range m.live {
		if projectID != "" && sess.ProjectID != projectID {
			continue
		}
		out = append(out, sess)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Save persists the session's current state. Called after every orchestrator
// mutation so an interrupt can be resumed from another process.
func (m *Manager) Save(ctx context.Context, sess *models.Session) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// End closes a session: flushes extracted memory to the store, evicts the
// session's tool-result cache entries, stamps the end time, and persists the
// final state. Ending an already-ended session is a no-op.
func (m *Manager) End(ctx context.Context, id string) (*models.Session, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.EndedAt != nil {
		return sess, nil
	}

	if m.memory != nil {
		if err := m.memory.Flush(ctx); err != nil {
			slog.Warn("flush session memory", "session_id", id, "error", err)
		}
	}
	if m.cache != nil {
		m.cache.EvictSession(id)
	}

	now := time.Now().UTC()
	sess.EndedAt = &now
	sess.Append(models.RoleAssistant, "Session ended. Extracted memory has been saved for future sessions.")

	if err := m.Save(ctx, sess); err != nil {
		slog.Warn("persist ended session", "session_id", id, "error", err)
	}

	m.mu.Lock()
	delete(m.live, id)
	m.mu.Unlock()
	return sess, nil
}
