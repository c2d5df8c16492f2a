package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	stdQuerier
	db *sqlx.DB
}

// NewSQLXAdapter creates a new SQLX adapter.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{stdQuerier: stdQuerier{q: db}, db: db}
}

func (s *SQLXAdapter) Reader(_ bool) Querier {
	return s.stdQuerier
}

// BeginTx starts a sqlx.Tx and exposes its embedded sql.Tx.
func (s *SQLXAdapter) BeginTx(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &stdTx{stdQuerier: stdQuerier{q: tx}, tx: tx.Tx}, nil
}
