package sqlengine

import (
	"context"
	"errors"
	"fmt"
)

type tableNames struct {
	prefix  string
	items   string
	members string
	loans   string
	rules   string
}

func newTableNames(prefix string) tableNames {
	return tableNames{
		prefix:  prefix,
		items:   prefix + "items",
		members: prefix + "members",
		loans:   prefix + "loans",
		rules:   prefix + "borrowing_rules",
	}
}

// ddl returns the schema statements. They are valid for PostgreSQL and SQLite alike.
func (t tableNames) ddl() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			available BOOLEAN NOT NULL,
			borrowable BOOLEAN NOT NULL
		)`, t.items),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			blocked BOOLEAN NOT NULL,
			active BOOLEAN NOT NULL
		)`, t.members),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			member_id TEXT NOT NULL REFERENCES %s (id),
			item_id TEXT NOT NULL REFERENCES %s (id),
			borrowed_at BIGINT NOT NULL,
			due_at BIGINT NOT NULL,
			returned_at BIGINT NULL
		)`, t.loans, t.members, t.items),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %sloans_one_open_per_item ON %s (item_id) WHERE returned_at IS NULL`, t.prefix, t.loans),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %sloans_member_id ON %s (member_id)`, t.prefix, t.loans),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %sloans_due_at_open ON %s (due_at) WHERE returned_at IS NULL`, t.prefix, t.loans),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			max_concurrent_loans INTEGER NOT NULL CHECK (max_concurrent_loans > 0),
			active BOOLEAN NOT NULL
		)`, t.rules),
	}
}

// Migrate creates the ledger tables and indexes if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, statement := range s.tables.ddl() {
		if _, err := s.db.Exec(ctx, statement); err != nil {
			s.logError(ctx, logMsgMigrationFailed, err, logAttrQuery, statement)
			return errors.Join(ErrMigrationFailed, err)
		}
	}

	s.logOperation(ctx, logMsgMigrated, logAttrTablePrefix, s.tables.prefix)

	return nil
}
