// Package sqlstore implements store.Store over database/sql. The SQL
// backends differ only in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
)

var _ store.Store = (*Store)(nil)

// Dialect carries what differs between SQL engines.
type Dialect struct {
	Name   string
	Schema string
	// Placeholder renders the n-th (1-based) bind parameter. Nil keeps "?".
	Placeholder func(n int) string
	// IsUniqueViolation reports a unique or primary key conflict.
	IsUniqueViolation func(error) bool
}

// Dollar renders $1, $2, ...
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Rebind rewrites the "?" placeholders of query for the dialect.
func (d Dialect) Rebind(query string) string {
	if d.Placeholder == nil {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is a database/sql backed store.Store.
type Store struct {
	db *sql.DB
	d  Dialect
}

// Open creates the schema on db and returns a store owning db.
func Open(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, d.Schema); err != nil {
		return nil, fmt.Errorf("%s schema: %w", d.Name, err)
	}
	return &Store{db: db, d: d}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for tests and migrations.
func (s *Store) DB() *sql.DB { return s.db }

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

var dropStatements = map[store.Kind][]string{
	store.KindAgreements: {"DELETE FROM agreement_parties", "DELETE FROM agreements"},
	store.KindParties:    {"DELETE FROM party_participations", "DELETE FROM interested_parties"},
	store.KindWorks:      {"DELETE FROM works"},
}

var countStatements = map[store.Kind]string{
	store.KindAgreements: "SELECT COUNT(*) FROM agreements",
	store.KindParties:    "SELECT COUNT(*) FROM interested_parties",
	store.KindWorks:      "SELECT COUNT(*) FROM works",
}

// Drop empties one collection together with its link rows.
func (s *Store) Drop(ctx context.Context, kind store.Kind) error {
	stmts, ok := dropStatements[kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", internalerr.ErrInvalidInput, kind)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("drop %s: %w", kind, err)
			}
		}
		return nil
	})
}

// Count returns the size of one collection.
func (s *Store) Count(ctx context.Context, kind store.Kind) (int, error) {
	stmt, ok := countStatements[kind]
	if !ok {
		return 0, fmt.Errorf("%w: unknown kind %q", internalerr.ErrInvalidInput, kind)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

// FindAgreement looks an agreement up by natural key.
func (s *Store) FindAgreement(ctx context.Context, key model.AgreementKey) (model.Agreement, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		s.d.Rebind(`SELECT body FROM agreements WHERE submitter_id = ? AND number = ?`),
		key.SubmitterID, key.Number,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Agreement{}, false, nil
	}
	if err != nil {
		return model.Agreement{}, false, fmt.Errorf("find agreement %s: %w", key, err)
	}
	var a model.Agreement
	if err := json.Unmarshal(body, &a); err != nil {
		return model.Agreement{}, false, fmt.Errorf("decode agreement %s: %w", key, err)
	}
	return a, true, nil
}

// FindParty looks an interested party up by natural key.
func (s *Store) FindParty(ctx context.Context, key model.PartyKey) (model.InterestedParty, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		s.d.Rebind(`SELECT body FROM interested_parties WHERE submitter_id = ? AND party_id = ?`),
		key.SubmitterID, key.PartyID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InterestedParty{}, false, nil
	}
	if err != nil {
		return model.InterestedParty{}, false, fmt.Errorf("find party %s: %w", key, err)
	}
	var p model.InterestedParty
	if err := json.Unmarshal(body, &p); err != nil {
		return model.InterestedParty{}, false, fmt.Errorf("decode party %s: %w", key, err)
	}
	if p.Participations, err = s.participations(ctx, s.db, p.ID); err != nil {
		return model.InterestedParty{}, false, err
	}
	return p, true, nil
}

// FindWork looks a work up by natural key.
func (s *Store) FindWork(ctx context.Context, key model.WorkKey) (model.Work, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		s.d.Rebind(`SELECT body FROM works WHERE submitter_id = ? AND work_number = ?`),
		key.SubmitterID, key.WorkNumber,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Work{}, false, nil
	}
	if err != nil {
		return model.Work{}, false, fmt.Errorf("find work %s: %w", key, err)
	}
	var w model.Work
	if err := json.Unmarshal(body, &w); err != nil {
		return model.Work{}, false, fmt.Errorf("decode work %s: %w", key, err)
	}
	return w, true, nil
}

// InsertAgreements writes a batch of agreements and their party index rows
// in one transaction.
func (s *Store) InsertAgreements(ctx context.Context, agreements []model.Agreement) error {
	if len(agreements) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ins, err := tx.PrepareContext(ctx, s.d.Rebind(`
INSERT INTO agreements (id, submitter_id, number, body) VALUES (?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		defer ins.Close()

		link, err := tx.PrepareContext(ctx, s.d.Rebind(`
INSERT INTO agreement_parties (agreement_id, party_submitter_id, party_key, party_id, position)
VALUES (?, ?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		defer link.Close()

		for _, a := range agreements {
			body, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("encode agreement %s: %w", a.Key, err)
			}
			if _, err := ins.ExecContext(ctx, a.ID, a.Key.SubmitterID, a.Key.Number, string(body)); err != nil {
				return s.insertErr(store.KindAgreements, a.Key, err)
			}
			for i, ref := range a.Parties {
				if _, err := link.ExecContext(ctx, a.ID, ref.Key.SubmitterID, ref.Key.PartyID, ref.ID, i); err != nil {
					return s.insertErr(store.KindAgreements, a.Key, err)
				}
			}
		}
		return nil
	})
}

// InsertParties writes a batch of parties. Participations go to their own
// table so AppendParticipations does not rewrite the party.
func (s *Store) InsertParties(ctx context.Context, parties []model.InterestedParty) error {
	if len(parties) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ins, err := tx.PrepareContext(ctx, s.d.Rebind(`
INSERT INTO interested_parties (id, submitter_id, party_id, body) VALUES (?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		defer ins.Close()

		part, err := tx.PrepareContext(ctx, s.d.Rebind(insertParticipation))
		if err != nil {
			return err
		}
		defer part.Close()

		for _, p := range parties {
			participations := p.Participations
			p.Participations = nil
			body, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode party %s: %w", p.Key, err)
			}
			if _, err := ins.ExecContext(ctx, p.ID, p.Key.SubmitterID, p.Key.PartyID, string(body)); err != nil {
				return s.insertErr(store.KindParties, p.Key, err)
			}
			for i, pt := range participations {
				if err := execParticipation(ctx, part, p.ID, i+1, pt); err != nil {
					return s.insertErr(store.KindParties, p.Key, err)
				}
			}
		}
		return nil
	})
}

// InsertWorks writes a batch of works in one transaction.
func (s *Store) InsertWorks(ctx context.Context, works []model.Work) error {
	if len(works) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ins, err := tx.PrepareContext(ctx, s.d.Rebind(`
INSERT INTO works (id, submitter_id, work_number, title, body) VALUES (?, ?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		defer ins.Close()

		for _, w := range works {
			body, err := json.Marshal(w)
			if err != nil {
				return fmt.Errorf("encode work %s: %w", w.Key, err)
			}
			if _, err := ins.ExecContext(ctx, w.ID, w.Key.SubmitterID, w.Key.WorkNumber, w.Title, string(body)); err != nil {
				return s.insertErr(store.KindWorks, w.Key, err)
			}
		}
		return nil
	})
}

// ReplaceWorks overwrites stored works by key, keeping the stored IDs.
func (s *Store) ReplaceWorks(ctx context.Context, works []model.Work) error {
	if len(works) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, w := range works {
			var id string
			err := tx.QueryRowContext(ctx,
				s.d.Rebind(`SELECT id FROM works WHERE submitter_id = ? AND work_number = ?`),
				w.Key.SubmitterID, w.Key.WorkNumber,
			).Scan(&id)
			if errors.Is(err, sql.ErrNoRows) {
				return store.NotFound(store.KindWorks, w.Key)
			}
			if err != nil {
				return fmt.Errorf("replace work %s: %w", w.Key, err)
			}
			w.ID = id
			body, err := json.Marshal(w)
			if err != nil {
				return fmt.Errorf("encode work %s: %w", w.Key, err)
			}
			if _, err := tx.ExecContext(ctx,
				s.d.Rebind(`UPDATE works SET title = ?, body = ? WHERE id = ?`),
				w.Title, string(body), id,
			); err != nil {
				return fmt.Errorf("replace work %s: %w", w.Key, err)
			}
		}
		return nil
	})
}

const insertParticipation = `
INSERT INTO party_participations (party_id, agreement_submitter_id, agreement_number, seq, body)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (party_id, agreement_submitter_id, agreement_number) DO NOTHING`

func execParticipation(ctx context.Context, stmt *sql.Stmt, partyID string, seq int, pt model.Participation) error {
	body, err := json.Marshal(pt)
	if err != nil {
		return fmt.Errorf("encode participation: %w", err)
	}
	_, err = stmt.ExecContext(ctx, partyID, pt.AgreementKey.SubmitterID, pt.AgreementKey.Number, seq, string(body))
	return err
}

// AppendParticipations adds each participation to its stored party in
// one transaction. A party that already has the agreement keeps its
// participation.
func (s *Store) AppendParticipations(ctx context.Context, appends []store.Append) error {
	if len(appends) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.d.Rebind(insertParticipation))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, ap := range appends {
			key := ap.Party
			var id string
			err := tx.QueryRowContext(ctx,
				s.d.Rebind(`SELECT id FROM interested_parties WHERE submitter_id = ? AND party_id = ?`),
				key.SubmitterID, key.PartyID,
			).Scan(&id)
			if errors.Is(err, sql.ErrNoRows) {
				return store.NotFound(store.KindParties, key)
			}
			if err != nil {
				return fmt.Errorf("append participation %s: %w", key, err)
			}

			var last int
			if err := tx.QueryRowContext(ctx,
				s.d.Rebind(`SELECT COALESCE(MAX(seq), 0) FROM party_participations WHERE party_id = ?`),
				id,
			).Scan(&last); err != nil {
				return fmt.Errorf("append participation %s: %w", key, err)
			}

			if err := execParticipation(ctx, stmt, id, last+1, ap.Participation); err != nil {
				return fmt.Errorf("append participation %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *Store) participations(ctx context.Context, q queryer, partyID string) ([]model.Participation, error) {
	rows, err := q.QueryContext(ctx,
		s.d.Rebind(`SELECT body FROM party_participations WHERE party_id = ? ORDER BY seq`),
		partyID,
	)
	if err != nil {
		return nil, fmt.Errorf("load participations: %w", err)
	}
	defer rows.Close()

	var out []model.Participation
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var pt model.Participation
		if err := json.Unmarshal(body, &pt); err != nil {
			return nil, fmt.Errorf("decode participation: %w", err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

// ListAgreements returns a page of agreements ordered by key.
func (s *Store) ListAgreements(ctx context.Context, page store.Page) ([]model.Agreement, error) {
	page = page.Normalize()
	return queryBodies[model.Agreement](ctx, s.db,
		s.d.Rebind(`SELECT body FROM agreements ORDER BY submitter_id, number LIMIT ? OFFSET ?`),
		page.Limit, page.Offset,
	)
}

// ListParties returns a page of interested parties ordered by key.
func (s *Store) ListParties(ctx context.Context, page store.Page) ([]model.InterestedParty, error) {
	page = page.Normalize()
	parties, err := queryBodies[model.InterestedParty](ctx, s.db,
		s.d.Rebind(`SELECT body FROM interested_parties ORDER BY submitter_id, party_id LIMIT ? OFFSET ?`),
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, err
	}
	for i := range parties {
		if parties[i].Participations, err = s.participations(ctx, s.db, parties[i].ID); err != nil {
			return nil, err
		}
	}
	return parties, nil
}

// ListWorks returns a page of works ordered by key.
func (s *Store) ListWorks(ctx context.Context, page store.Page) ([]model.Work, error) {
	page = page.Normalize()
	return queryBodies[model.Work](ctx, s.db,
		s.d.Rebind(`SELECT body FROM works ORDER BY submitter_id, work_number LIMIT ? OFFSET ?`),
		page.Limit, page.Offset,
	)
}

// AgreementsByParty returns the agreements that reference key.
func (s *Store) AgreementsByParty(ctx context.Context, key model.PartyKey) ([]model.Agreement, error) {
	return queryBodies[model.Agreement](ctx, s.db, s.d.Rebind(`
SELECT a.body FROM agreements a
JOIN agreement_parties ap ON ap.agreement_id = a.id
WHERE ap.party_submitter_id = ? AND ap.party_key = ?
ORDER BY a.submitter_id, a.number`),
		key.SubmitterID, key.PartyID,
	)
}

// WorksBySubmitter returns every work registered by one submitter.
func (s *Store) WorksBySubmitter(ctx context.Context, submitterID string) ([]model.Work, error) {
	return queryBodies[model.Work](ctx, s.db,
		s.d.Rebind(`SELECT body FROM works WHERE submitter_id = ? ORDER BY work_number`),
		submitterID,
	)
}

// queryBodies decodes the single JSON column of every row.
func queryBodies[T any](ctx context.Context, q queryer, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) insertErr(kind store.Kind, key fmt.Stringer, err error) error {
	if s.d.IsUniqueViolation != nil && s.d.IsUniqueViolation(err) {
		return store.Duplicate(kind, key)
	}
	return fmt.Errorf("insert %s %s: %w", kind, key, err)
}
