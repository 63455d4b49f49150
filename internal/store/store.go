package store

import (
	"context"

	"github.com/YalmanchiliTejas/Product-manager/internal/models"
)

// Store defines the persistence interface for pma.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, sess *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, projectID string, limit int) ([]*models.Session, error)
	UpdateSession(ctx context.Context, sess *models.Session) error
	DeleteSession(ctx context.Context, id string) error

	// Memory items
	SaveMemoryItems(ctx context.Context, items []*models.MemoryItem) error
	ListMemoryItems(ctx context.Context, projectID string, limit int) ([]*models.MemoryItem, error)

	// Response cache
	GetCachedResponse(ctx context.Context, key string) (value string, ok bool, err error)
	PutCachedResponse(ctx context.Context, key, value string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// CacheBacking adapts a Store to the cache service's durable layer.
type CacheBacking struct {
	store Store
}

// NewCacheBacking wraps a store for use behind the response cache.
func NewCacheBacking(s Store) *CacheBacking {
	return &CacheBacking{store: s}
}

func (b *CacheBacking) Get(ctx context.Context, key string) (string, bool, error) {
	return b.store.GetCachedResponse(ctx, key)
}

func (b *CacheBacking) Put(ctx context.Context, key, value string) error {
	return b.store.PutCachedResponse(ctx, key, value)
}
