package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/YalmanchiliTejas/Product-manager/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Sessions ---

// sessionColumns is the JSON-heavy column list shared by every session query.
const sessionColumns = `id, project_id, user_id, question, market_context, phase,
	documents, tasks, messages, research, document, tickets, recalled_memories,
	created_at, updated_at, ended_at`

func marshalJSON(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		sess.ID = newULID()
	}
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ProjectID, sess.UserID, sess.Question, sess.MarketContext, string(sess.Phase),
		marshalJSON(sess.Documents), marshalJSON(sess.Tasks), marshalJSON(sess.Messages),
		marshalJSON(sess.Research), marshalJSON(sess.Document), marshalJSON(sess.Tickets),
		marshalJSON(sess.RecalledMemories),
		sess.CreatedAt, sess.UpdatedAt, sess.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, projectID string, limit int) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []any
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET project_id=?, user_id=?, question=?, market_context=?, phase=?,
		documents=?, tasks=?, messages=?, research=?, document=?, tickets=?, recalled_memories=?,
		updated_at=?, ended_at=? WHERE id=?`,
		sess.ProjectID, sess.UserID, sess.Question, sess.MarketContext, string(sess.Phase),
		marshalJSON(sess.Documents), marshalJSON(sess.Tasks), marshalJSON(sess.Messages),
		marshalJSON(sess.Research), marshalJSON(sess.Document), marshalJSON(sess.Tickets),
		marshalJSON(sess.RecalledMemories),
		sess.UpdatedAt, sess.EndedAt, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session not found: %s", sess.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	sess := &models.Session{}
	var phase string
	var documents, tasks, messages, research, document, tickets, memories string
	var endedAt sql.NullTime

	err := row.Scan(&sess.ID, &sess.ProjectID, &sess.UserID, &sess.Question, &sess.MarketContext, &phase,
		&documents, &tasks, &messages, &research, &document, &tickets, &memories,
		&sess.CreatedAt, &sess.UpdatedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	sess.Phase = models.Phase(phase)
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	_ = json.Unmarshal([]byte(documents), &sess.Documents)
	_ = json.Unmarshal([]byte(tasks), &sess.Tasks)
	_ = json.Unmarshal([]byte(messages), &sess.Messages)
	_ = json.Unmarshal([]byte(research), &sess.Research)
	_ = json.Unmarshal([]byte(document), &sess.Document)
	_ = json.Unmarshal([]byte(tickets), &sess.Tickets)
	_ = json.Unmarshal([]byte(memories), &sess.RecalledMemories)
	return sess, nil
}

// --- Memory items ---

func (s *SQLiteStore) SaveMemoryItems(ctx context.Context, items []*models.MemoryItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		if item.ID == "" {
			item.ID = newULID()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO memory_items (id, project_id, type, title, content, confidence, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.ProjectID, string(item.Type), item.Title, item.Content,
			string(item.Confidence), item.Source, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("save memory item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMemoryItems(ctx context.Context, projectID string, limit int) ([]*models.MemoryItem, error) {
	query := `SELECT id, project_id, type, title, content, confidence, source, created_at FROM memory_items`
	var args []any
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memory items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*models.MemoryItem
	for rows.Next() {
		item := &models.MemoryItem{}
		var itemType, confidence string
		if err := rows.Scan(&item.ID, &item.ProjectID, &itemType, &item.Title,
			&item.Content, &confidence, &item.Source, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory item: %w", err)
		}
		item.Type = models.MemoryType(itemType)
		item.Confidence = models.Confidence(confidence)
		items = append(items, item)
	}
	return items, rows.Err()
}

// --- Response cache ---

func (s *SQLiteStore) GetCachedResponse(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM response_cache WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cached response: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) PutCachedResponse(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO response_cache (key, value, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, created_at=excluded.created_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put cached response: %w", err)
	}
	return nil
}
