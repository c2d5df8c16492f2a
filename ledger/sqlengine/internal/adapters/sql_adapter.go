package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBAdapter for sql.DB.
type SQLAdapter struct {
	stdQuerier
	db *sql.DB
}

// NewSQLAdapter creates a new SQL adapter.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{stdQuerier: stdQuerier{q: db}, db: db}
}

func (s *SQLAdapter) Reader(_ bool) Querier {
	return s.stdQuerier
}

func (s *SQLAdapter) BeginTx(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &stdTx{stdQuerier: stdQuerier{q: tx}, tx: tx}, nil
}
