// Package chatlog records every exchanged message per session.
package chatlog

import (
	"context"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

const (
	// DefaultSessionLimit caps session listings.
	DefaultSessionLimit = 20

	titleMaxRunes = 30
)

// Entry is one logged message.
type Entry struct {
	SessionID string         `json:"session_id"`
	Role      assistant.Role `json:"role"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session summarizes one logged conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SQLiteLog is an append-only conversation log in a local SQLite database.
type SQLiteLog struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteLog opens (or creates) the database at dbPath and applies pending migrations.
func NewSQLiteLog(dbPath string) (*SQLiteLog, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open failed: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	l := &SQLiteLog{db: db, now: time.Now}
	if err := l.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runMigrations failed: %w", err)
	}

	return l, nil
}

// Close closes the underlying database.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func (l *SQLiteLog) runMigrations() error {
	current := 0

	var tables int
	err := l.db.Get(&tables, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tables > 0 {
		if err := l.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := l.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Append logs one message of sessionID.
func (l *SQLiteLog) Append(ctx context.Context, sessionID string, role assistant.Role, content string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO chat_entries (session_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		sessionID, string(role), content, l.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("db.ExecContext failed: %w", err)
	}

	return nil
}

type entryRow struct {
	SessionID string `db:"session_id"`
	Role      string `db:"role"`
	Content   string `db:"content"`
	CreatedAt int64  `db:"created_at"`
}

// Last returns up to n most recent messages of sessionID, oldest first.
func (l *SQLiteLog) Last(ctx context.Context, sessionID string, n int) ([]Entry, error) {
	var rows []entryRow
	err := l.db.SelectContext(ctx, &rows, `
		SELECT session_id, role, content, created_at
		FROM chat_entries
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("db.SelectContext failed: %w", err)
	}

	slices.Reverse(rows)

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			SessionID: r.SessionID,
			Role:      assistant.Role(r.Role),
			Content:   r.Content,
			CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		})
	}

	return entries, nil
}

type sessionRow struct {
	SessionID string `db:"session_id"`
	Messages  int    `db:"messages"`
	StartedAt int64  `db:"started_at"`
	UpdatedAt int64  `db:"updated_at"`
	FirstUser string `db:"first_user"`
}

// Sessions lists up to limit sessions, most recently active first.
// A non-positive limit means DefaultSessionLimit.
func (l *SQLiteLog) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}

	var rows []sessionRow
	err := l.db.SelectContext(ctx, &rows, `
		SELECT
			e.session_id AS session_id,
			COUNT(*) AS messages,
			MIN(e.created_at) AS started_at,
			MAX(e.created_at) AS updated_at,
			COALESCE((
				SELECT f.content FROM chat_entries f
				WHERE f.session_id = e.session_id AND f.role = 'user'
				ORDER BY f.id
				LIMIT 1
			), '') AS first_user
		FROM chat_entries e
		GROUP BY e.session_id
		ORDER BY MAX(e.id) DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("db.SelectContext failed: %w", err)
	}

	sessions := make([]Session, 0, len(rows))
	for _, r := range rows {
		started := time.UnixMilli(r.StartedAt).UTC()
		sessions = append(sessions, Session{
			ID:        r.SessionID,
			Title:     title(r.FirstUser, started),
			Messages:  r.Messages,
			StartedAt: started,
			UpdatedAt: time.UnixMilli(r.UpdatedAt).UTC(),
		})
	}

	return sessions, nil
}

// title is the first user message cut to titleMaxRunes runes, or a timestamp label.
func title(firstUser string, started time.Time) string {
	if firstUser == "" {
		return "Chat - " + started.Format("2006-01-02 15:04:05")
	}
	if utf8.RuneCountInString(firstUser) <= titleMaxRunes {
		return firstUser
	}
	return string([]rune(firstUser)[:titleMaxRunes]) + "..."
}
