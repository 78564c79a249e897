package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/share"
	"github.com/michaelbrown/playground/internal/storage"
	"github.com/michaelbrown/playground/internal/testcase"

	_ "modernc.org/sqlite"
)

// Fixed width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const shareColumns = `id, title, language, token, code, test_cases, created_at`

// SQLiteStore implements storage.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateShare(ctx context.Context, sh *storage.Share) error {
	token, err := share.Encode(sh.State)
	if err != nil {
		return fmt.Errorf("encoding share: %w", err)
	}
	cases, err := json.Marshal(sh.State.TestCases)
	if err != nil {
		return fmt.Errorf("marshaling test cases: %w", err)
	}
	sh.Token = token
	sh.Language = sh.State.Language
	sh.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shares (`+shareColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sh.ID, sh.Title, string(sh.Language), sh.Token, sh.State.Code, string(cases),
		sh.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting share: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetShare(ctx context.Context, id string) (*storage.Share, error) {
	// Try exact match first, then prefix match
	sh, err := scanShare(s.db.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM shares WHERE id = ?`, id))
	if err == nil {
		return sh, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("querying share: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+shareColumns+` FROM shares WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("querying share: %w", err)
	}
	defer rows.Close()

	var matches []*storage.Share
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrAmbiguous, id)
	}
}

func (s *SQLiteStore) ListShares(ctx context.Context, opts storage.ShareListOptions) ([]storage.Share, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + shareColumns + ` FROM shares`
	var args []any

	if opts.Language != "" {
		query += ` WHERE language = ?`
		args = append(args, string(opts.Language))
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	defer rows.Close()

	var shares []storage.Share
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, *sh)
	}
	return shares, rows.Err()
}

func (s *SQLiteStore) DeleteShare(ctx context.Context, id string) error {
	// Resolve prefix first
	sh, err := s.GetShare(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM shares WHERE id = ?`, sh.ID)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scanner interface to work with both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanShare(s scanner) (*storage.Share, error) {
	var (
		sh        storage.Share
		language  string
		cases     string
		createdAt string
	)
	err := s.Scan(&sh.ID, &sh.Title, &language, &sh.Token, &sh.State.Code, &cases, &createdAt)
	if err != nil {
		return nil, err
	}
	sh.Language = piston.Language(language)
	sh.State.Language = sh.Language
	if err := json.Unmarshal([]byte(cases), &sh.State.TestCases); err != nil {
		return nil, fmt.Errorf("unmarshaling test cases of %s: %w", sh.ID, err)
	}
	if sh.State.TestCases == nil {
		sh.State.TestCases = []testcase.Case{}
	}
	sh.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &sh, nil
}
