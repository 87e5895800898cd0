package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Exchange is one persisted prompt/reply pair. IDs are assigned by the
// store on insert, strictly increasing, and never reused.
type Exchange struct {
	ID          int64
	Context     string
	UserInput   string
	BotResponse string
}

// ErrNotFound is returned by Get when no exchange has the given id.
var ErrNotFound = errors.New("exchange not found")

// Error indicates the persistence medium was unreachable or unwritable.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store is a SQLite-backed append-only log of exchanges.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the conversation database at the given path,
// ensuring that the parent directory exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &Error{Op: "open", Err: fmt.Errorf("create db directory %s: %w", dir, err)}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, &Error{Op: "open", Err: fmt.Errorf("open db at %s: %w", path, err)}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &Error{Op: "open", Err: fmt.Errorf("ping db at %s: %w", path, err)}
	}

	return &Store{db: db}, nil
}

// Init creates the conversations table. Safe to call on every start.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY,
			context TEXT,
			user_input TEXT,
			bot_response TEXT
		)
	`)
	if err != nil {
		return &Error{Op: "init", Err: err}
	}
	return nil
}

// Record appends an exchange and returns its assigned id. Once Record
// returns, the exchange is durably retrievable by that id.
func (s *Store) Record(ctx context.Context, contextLabel, userInput, botResponse string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (context, user_input, bot_response) VALUES (?, ?, ?)`,
		contextLabel, userInput, botResponse,
	)
	if err != nil {
		return 0, &Error{Op: "record", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &Error{Op: "record", Err: fmt.Errorf("get exchange id: %w", err)}
	}
	return id, nil
}

// Get returns the exchange with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Exchange, error) {
	var ex Exchange
	err := s.db.QueryRowContext(ctx,
		`SELECT id, context, user_input, bot_response FROM conversations WHERE id = ?`, id,
	).Scan(&ex.ID, &ex.Context, &ex.UserInput, &ex.BotResponse)
	if err == sql.ErrNoRows {
		return Exchange{}, ErrNotFound
	}
	if err != nil {
		return Exchange{}, &Error{Op: "get", Err: err}
	}
	return ex, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
