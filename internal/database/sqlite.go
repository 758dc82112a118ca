package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRunStore stores runs in a SQLite database file, or in memory with
// the ":memory:" connection string.
type SQLiteRunStore struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteRunStore(connectionString string) (*SQLiteRunStore, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway and every pooled connection to an
	// in-memory database would see its own empty database.
	db.SetMaxOpenConns(1)

	return &SQLiteRunStore{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteRunStore) CreateSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		item_count INTEGER NOT NULL DEFAULT 0,
		exported_count INTEGER NOT NULL DEFAULT 0,
		skipped_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS exported_files (
		run_id TEXT NOT NULL,
		path TEXT NOT NULL
	)`)
	return err
}

func (s *SQLiteRunStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteRunStore) Healthy() bool {
	// SQLite creates the database file on first connect, so reachable
	// means usable here.
	return s.db.Ping() == nil
}

func (s *SQLiteRunStore) CreateRun(source string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO runs (id, source, status, created_at) VALUES (?, ?, ?, ?)",
		id, source, StatusPending, time.Now().UnixNano())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteRunStore) SetStatus(id, status, message string) error {
	_, err := s.db.Exec("UPDATE runs SET status = ?, message = ? WHERE id = ?", status, message, id)
	return err
}

func (s *SQLiteRunStore) SetCounts(id string, items, exported, skipped, failed int) error {
	_, err := s.db.Exec(
		"UPDATE runs SET item_count = ?, exported_count = ?, skipped_count = ?, failed_count = ? WHERE id = ?",
		items, exported, skipped, failed, id)
	return err
}

func (s *SQLiteRunStore) AddExportedFiles(id string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if _, err := tx.Exec("INSERT INTO exported_files (run_id, path) VALUES (?, ?)", id, path); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteRunStore) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT id, source, status, message, created_at,
		item_count, exported_count, skipped_count, failed_count
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	files, err := s.exportedFiles(id)
	if err != nil {
		return nil, err
	}
	run.ExportedFiles = files
	return run, nil
}

func (s *SQLiteRunStore) GetAllRuns() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT id, source, status, message, created_at,
		item_count, exported_count, skipped_count, failed_count
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachExportedFiles(runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *SQLiteRunStore) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM exported_files WHERE run_id = ?", id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt int64
	err := row.Scan(&run.ID, &run.Source, &run.Status, &run.Message, &createdAt,
		&run.ItemCount, &run.ExportedCount, &run.SkippedCount, &run.FailedCount)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, createdAt)
	return &run, nil
}

func (s *SQLiteRunStore) exportedFiles(id string) ([]string, error) {
	rows, err := s.db.Query("SELECT path FROM exported_files WHERE run_id = ? ORDER BY rowid", id)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

func (s *SQLiteRunStore) attachExportedFiles(runs []*Run) error {
	if len(runs) == 0 {
		return nil
	}

	rows, err := s.db.Query("SELECT run_id, path FROM exported_files ORDER BY rowid")
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()

	paths := make(map[string][]string)
	for rows.Next() {
		var runID, path string
		if err := rows.Scan(&runID, &path); err != nil {
			return err
		}
		paths[runID] = append(paths[runID], path)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, run := range runs {
		run.ExportedFiles = paths[run.ID]
	}
	return nil
}
