package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// Evaluations may be archived from several workers at once.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	params, err := json.Marshal(rec.Parameters)
	if err != nil {
		return err
	}
	objs, err := json.Marshal(rec.Objectives)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO evaluations (eval_key, parameters, objectives, constraint_value, status, error, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(eval_key) DO UPDATE SET
			parameters = excluded.parameters,
			objectives = excluded.objectives,
			constraint_value = excluded.constraint_value,
			status = excluded.status,
			error = excluded.error,
			duration_ns = excluded.duration_ns,
			created_at = excluded.created_at
	`, rec.Key, string(params), string(objs), rec.Constraint, rec.Status, rec.Error, int64(rec.Duration), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

const selectColumns = `SELECT eval_key, parameters, objectives, constraint_value, status, error, duration_ns, created_at FROM evaluations`

func (s *SQLiteStore) Get(ctx context.Context, key string) (Record, error) {
	db, err := s.getDB()
	if err != nil {
		return Record{}, err
	}

	rec, err := scanRecord(db.QueryRowContext(ctx, selectColumns+` WHERE eval_key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectColumns+` ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec            Record
		params, objs   string
		durationNanos  int64
		createdAtValue string
	)
	if err := row.Scan(&rec.Key, &params, &objs, &rec.Constraint, &rec.Status, &rec.Error, &durationNanos, &createdAtValue); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(params), &rec.Parameters); err != nil {
		return Record{}, fmt.Errorf("decode parameters of %s: %w", rec.Key, err)
	}
	if err := json.Unmarshal([]byte(objs), &rec.Objectives); err != nil {
		return Record{}, fmt.Errorf("decode objectives of %s: %w", rec.Key, err)
	}
	rec.Duration = time.Duration(durationNanos)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtValue)
	if err != nil {
		return Record{}, fmt.Errorf("decode timestamp of %s: %w", rec.Key, err)
	}
	rec.CreatedAt = createdAt
	return rec, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS evaluations (
			eval_key TEXT PRIMARY KEY,
			parameters TEXT NOT NULL,
			objectives TEXT NOT NULL,
			constraint_value REAL NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);
	`)
	return err
}
