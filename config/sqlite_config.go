package config

import (
	"context"
	"database/sql"
	"errors"
	"net/url"

	_ "modernc.org/sqlite" // sqlite driver
)

const sqliteDriverName = "sqlite"

// SQLiteDSN builds a modernc.org/sqlite DSN for path with foreign keys and a busy timeout enabled.
func SQLiteDSN(path string) string {
	query := url.Values{}
	query.Add("_pragma", "foreign_keys(1)")
	query.Add("_pragma", "busy_timeout(5000)")
	query.Add("_pragma", "journal_mode(WAL)")

	return path + "?" + query.Encode()
}

// SQLiteDB opens the SQLite database at path.
func SQLiteDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, SQLiteDSN(path))
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close() // the ping error is the one to report
		return nil, errors.Join(ErrDatabaseUnreachable, pingErr)
	}

	return db, nil
}
