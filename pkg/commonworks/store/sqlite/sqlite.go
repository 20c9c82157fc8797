package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/cognicore/commonworks/pkg/commonworks/store/sqlstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS agreements (
	id TEXT PRIMARY KEY,
	submitter_id TEXT NOT NULL,
	number TEXT NOT NULL,
	body TEXT NOT NULL,
	UNIQUE(submitter_id, number)
);

CREATE TABLE IF NOT EXISTS agreement_parties (
	agreement_id TEXT NOT NULL,
	party_submitter_id TEXT NOT NULL,
	party_key TEXT NOT NULL,
	party_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY(agreement_id, party_submitter_id, party_key),
	FOREIGN KEY(agreement_id) REFERENCES agreements(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_agreement_parties_party
	ON agreement_parties(party_submitter_id, party_key);

CREATE TABLE IF NOT EXISTS interested_parties (
	id TEXT PRIMARY KEY,
	submitter_id TEXT NOT NULL,
	party_id TEXT NOT NULL,
	body TEXT NOT NULL,
	UNIQUE(submitter_id, party_id)
);

CREATE TABLE IF NOT EXISTS party_participations (
	party_id TEXT NOT NULL,
	agreement_submitter_id TEXT NOT NULL,
	agreement_number TEXT NOT NULL,
	seq INTEGER NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY(party_id, agreement_submitter_id, agreement_number),
	FOREIGN KEY(party_id) REFERENCES interested_parties(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS works (
	id TEXT PRIMARY KEY,
	submitter_id TEXT NOT NULL,
	work_number TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	UNIQUE(submitter_id, work_number)
);

CREATE INDEX IF NOT EXISTS idx_works_title ON works(title);
`

// Dialect is the SQLite flavour of the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	Schema:            schema,
	IsUniqueViolation: isUniqueViolation,
}

// Open opens a SQLite database with WAL mode enabled.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the pragmas below in force for every statement
	// and serialises writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	st, err := sqlstore.Open(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
