// Package archive keeps a ledger of every candidate evaluation of a run.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("evaluation not found")

// Record is one evaluation outcome.
type Record struct {
	Key        string        `json:"key"`
	Parameters []float64     `json:"parameters"`
	Objectives []float64     `json:"objectives"`
	Constraint float64       `json:"constraint"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Store persists records. Put for an existing key replaces the record but
// keeps its original insertion position.
type Store interface {
	Init(ctx context.Context) error
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, key string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// NewStore returns the backend named by kind: "", "memory" or "sqlite".
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported archive backend: %s", kind)
	}
}
