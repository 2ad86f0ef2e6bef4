package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for the transfer history index
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// RecordTransfer inserts a completed transfer attempt and sets its ID
func (s *Store) RecordTransfer(t *Transfer) error {
	const query = `
		INSERT INTO transfers (
			file, local_path, target_type, target_spec, size, sha256,
			start_time, end_time, duration_s, exit_code, user, host
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		t.File, t.LocalPath, t.TargetType, t.TargetSpec, t.Size, t.SHA256,
		t.StartTime, t.EndTime, t.DurationS, t.ExitCode, t.User, t.Host,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	t.ID = id
	return nil
}

// ListTransfers returns transfers matching opts, most recent first
func (s *Store) ListTransfers(opts ListOptions) ([]Transfer, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, file, local_path, target_type, target_spec, size, sha256,
		       start_time, end_time, duration_s, exit_code, user, host
		FROM transfers
		WHERE 1=1
	`
	var args []any

	if opts.File != "" {
		query += " AND file = ?"
		args = append(args, opts.File)
	}
	if opts.FailedOnly {
		query += " AND exit_code != 0"
	}
	query += " ORDER BY start_time DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(
			&t.ID, &t.File, &t.LocalPath, &t.TargetType, &t.TargetSpec,
			&t.Size, &t.SHA256, &t.StartTime, &t.EndTime, &t.DurationS,
			&t.ExitCode, &t.User, &t.Host,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}

	return transfers, nil
}
