// Package postgres is the PostgreSQL backend of the shared SQL store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/store/sqlstore"
)

// Natural-key columns use the C collation so lists sort bytewise, the same
// order the other backends produce.
const schema = `
CREATE TABLE IF NOT EXISTS agreements (
	id TEXT PRIMARY KEY,
	submitter_id TEXT COLLATE "C" NOT NULL,
	number TEXT COLLATE "C" NOT NULL,
	body JSONB NOT NULL,
	UNIQUE(submitter_id, number)
);

CREATE TABLE IF NOT EXISTS agreement_parties (
	agreement_id TEXT NOT NULL REFERENCES agreements(id) ON DELETE CASCADE,
	party_submitter_id TEXT NOT NULL,
	party_key TEXT NOT NULL,
	party_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY(agreement_id, party_submitter_id, party_key)
);

CREATE INDEX IF NOT EXISTS idx_agreement_parties_party
	ON agreement_parties(party_submitter_id, party_key);

CREATE TABLE IF NOT EXISTS interested_parties (
	id TEXT PRIMARY KEY,
	submitter_id TEXT COLLATE "C" NOT NULL,
	party_id TEXT COLLATE "C" NOT NULL,
	body JSONB NOT NULL,
	UNIQUE(submitter_id, party_id)
);

CREATE TABLE IF NOT EXISTS party_participations (
	party_id TEXT NOT NULL REFERENCES interested_parties(id) ON DELETE CASCADE,
	agreement_submitter_id TEXT NOT NULL,
	agreement_number TEXT NOT NULL,
	seq INTEGER NOT NULL,
	body JSONB NOT NULL,
	PRIMARY KEY(party_id, agreement_submitter_id, agreement_number)
);

CREATE TABLE IF NOT EXISTS works (
	id TEXT PRIMARY KEY,
	submitter_id TEXT COLLATE "C" NOT NULL,
	work_number TEXT COLLATE "C" NOT NULL,
	title TEXT NOT NULL,
	body JSONB NOT NULL,
	UNIQUE(submitter_id, work_number)
);
`

const uniqueViolation = pq.ErrorCode("23505")

// Dialect is the PostgreSQL flavour of the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	Schema:            schema,
	Placeholder:       sqlstore.Dollar,
	IsUniqueViolation: isUniqueViolation,
}

// Open connects to dsn and prepares the schema.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", internalerr.ErrInvalidConfig)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	st, err := sqlstore.Open(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
