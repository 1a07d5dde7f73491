package store

import (
	"context"
	"fmt"

	"github.com/roach88/qrewrite/internal/uid"
)

// Posting lists the documents holding one field value.
type Posting struct {
	Field string   `yaml:"field" json:"field"`
	Value string   `yaml:"value" json:"value"`
	IDs   []string `yaml:"ids" json:"ids"`
}

// Put records that each id holds field=value.
// Uses INSERT OR IGNORE for idempotency - duplicate rows are silently ignored.
func (s *Store) Put(ctx context.Context, field, value string, ids ...uid.ID) error {
	return s.Load(ctx, []Posting{{Field: field, Value: value, IDs: uid.New(ids...).Strings()}})
}

// Load records every posting in a single transaction.
func (s *Store) Load(ctx context.Context, postings []Posting) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load postings: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO postings (field, value, uid) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("load postings: %w", err)
	}
	defer stmt.Close()

	for _, p := range postings {
		if p.Field == "" {
			return fmt.Errorf("load postings: posting for value %q has no field", p.Value)
		}
		for _, id := range p.IDs {
			if _, err := stmt.ExecContext(ctx, p.Field, p.Value, id); err != nil {
				return fmt.Errorf("load postings: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load postings: %w", err)
	}
	return nil
}

// Count returns the number of stored (field, value, uid) rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count postings: %w", err)
	}
	return n, nil
}
