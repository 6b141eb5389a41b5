// Package memory is an in-process TransactionMirror used when no
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"flowfinance/internal/sheets"
)

var _ sheets.TransactionMirror = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	rows   []sheets.Row
	writes int
}

func New() *Store {
	return &Store{}
}

// Replace stores a copy of rows.
func (s *Store) Replace(_ context.Context, rows []sheets.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = slices.Clone(rows)
	s.writes++
	return nil
}

// Rows returns the last mirrored rows.
func (s *Store) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows)
}

// Writes returns how many times the mirror was replaced.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
