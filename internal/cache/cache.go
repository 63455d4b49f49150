// Package cache provides the short-lived result caches shared by the loop
// engine and the sub-agents: a session-scoped tool-result cache and a
// content-keyed response cache for single-shot reasoning calls. All state
// is held in lock-protected in-process maps; an optional durable backing
// store persists the response cache and degrades silently to always-miss
// when unreachable.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
)

// Backing is the optional durable layer behind the response cache.
// Implementations must tolerate concurrent use; errors are treated as misses.
type Backing interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	TokensSaved int64 `json:"tokens_saved"`
}

// Service is the process-wide cache coordinator. Construct one per process
// and inject it; never share state through package-level variables.
type Service struct {
	mu          sync.Mutex
	toolResults map[string]string
	responses   map[string]string
	backing     Backing
	stats       Stats
}

// New creates a cache service. backing may be nil.
func New(backing Backing) *Service {
	return &Service{
		toolResults: make(map[string]string),
		responses:   make(map[string]string),
		backing:     backing,
	}
}

// Hash returns the hex sha256 of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ArgsHash returns an order-independent hash of a tool argument map.
// encoding/json marshals map keys in sorted order at every nesting level,
// so permuted but semantically identical maps produce the same key.
func ArgsHash(args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		return Hash("unhashable")
	}
	return Hash(string(data))
}

func toolKey(tool string, args map[string]any, sessionID string) string {
	return strings.Join([]string{tool, ArgsHash(args), sessionID}, "|")
}

// GetToolResult returns a cached tool result for (tool, args, session).
func (s *Service) GetToolResult(tool string, args map[string]any, sessionID string) (string, bool) {
	key := toolKey(tool, args, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.toolResults[key]
	if ok {
		s.stats.Hits++
	} else {
		s.stats.Misses++
	}
	return v, ok
}

// PutToolResult stores a tool result. Tool results are session-scoped and
// never persisted.
func (s *Service) PutToolResult(tool string, args map[string]any, sessionID, result string) {
	key := toolKey(tool, args, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolResults[key] = result
}

// EvictSession removes every tool result cached for the given session.
func (s *Service) EvictSession(sessionID string) {
	suffix := "|" + sessionID
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.toolResults {
		if strings.HasSuffix(k, suffix) {
			delete(s.toolResults, k)
		}
	}
}

// GetResponse returns a cached reasoning response for the given prompt key.
// Misses in the in-process layer fall through to the backing store; backing
// errors count as misses.
func (s *Service) GetResponse(ctx context.Context, promptKey string) (string, bool) {
	h := Hash(promptKey)

	s.mu.Lock()
	if v, ok := s.responses[h]; ok {
		s.stats.Hits++
		s.mu.Unlock()
		return v, true
	}
	backing := s.backing
	s.mu.Unlock()

	if backing != nil {
		if v, ok, err := backing.Get(ctx, h); err == nil && ok {
			s.mu.Lock()
			s.responses[h] = v
			s.stats.Hits++
			s.mu.Unlock()
			return v, true
		}
	}

	s.mu.Lock()
	s.stats.Misses++
	s.mu.Unlock()
	return "", false
}

// PutResponse stores a reasoning response in the in-process layer and,
// best-effort, in the backing store.
func (s *Service) PutResponse(ctx context.Context, promptKey, response string) {
	h := Hash(promptKey)
	s.mu.Lock()
	s.responses[h] = response
	backing := s.backing
	s.mu.Unlock()

	if backing != nil {
		_ = backing.Put(ctx, h, response)
	}
}

// AddTokensSaved credits tokens avoided by a cache hit.
func (s *Service) AddTokensSaved(n int64) {
	s.mu.Lock()
	s.stats.TokensSaved += n
	s.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
