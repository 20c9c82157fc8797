package store

import (
	"context"
	"fmt"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
)

// Store is the persistence boundary of the ingestion pipeline.
//
// Insert* calls are all-or-nothing: a batch whose keys collide with stored
// data or with each other fails with internalerr.ErrDuplicate and writes
// nothing. Lists are ordered by natural key.
type Store interface {
	Close() error

	// Drop removes every entity of one kind.
	Drop(ctx context.Context, kind Kind) error

	// Point lookups by natural key. A miss is (zero, false, nil).
	FindAgreement(ctx context.Context, key model.AgreementKey) (model.Agreement, bool, error)
	FindParty(ctx context.Context, key model.PartyKey) (model.InterestedParty, bool, error)
	FindWork(ctx context.Context, key model.WorkKey) (model.Work, bool, error)

	// Batches
	InsertAgreements(ctx context.Context, agreements []model.Agreement) error
	InsertParties(ctx context.Context, parties []model.InterestedParty) error
	InsertWorks(ctx context.Context, works []model.Work) error
	// ReplaceWorks overwrites stored works by key, keeping their IDs.
	// Every key must exist.
	ReplaceWorks(ctx context.Context, works []model.Work) error

	// AppendParticipations adds participations to stored parties, all or
	// nothing: an unknown party fails the call before anything is written.
	// A participation for an agreement the party already has is ignored.
	AppendParticipations(ctx context.Context, appends []Append) error

	// Read side
	ListAgreements(ctx context.Context, page Page) ([]model.Agreement, error)
	ListParties(ctx context.Context, page Page) ([]model.InterestedParty, error)
	ListWorks(ctx context.Context, page Page) ([]model.Work, error)
	AgreementsByParty(ctx context.Context, key model.PartyKey) ([]model.Agreement, error)
	WorksBySubmitter(ctx context.Context, submitterID string) ([]model.Work, error)
	Count(ctx context.Context, kind Kind) (int, error)
}

// Append is one participation to record on a stored party.
type Append struct {
	Party         model.PartyKey
	Participation model.Participation
}

// Kind names an entity collection.
type Kind string

const (
	KindAgreements Kind = "agreements"
	KindParties    Kind = "interested_parties"
	KindWorks      Kind = "works"
)

// Kinds lists every collection, in the order Reset drops them.
var Kinds = []Kind{KindAgreements, KindParties, KindWorks}

// ParseKind accepts a collection name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAgreements, KindParties, KindWorks:
		return Kind(s), nil
	case "parties":
		return KindParties, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", internalerr.ErrInvalidInput, s)
}

// DefaultPageLimit applies when a page has no positive limit.
const DefaultPageLimit = 30

// Page selects a window of a list.
type Page struct {
	Offset int
	Limit  int
}

// Normalize fills in the default limit and clamps a negative offset.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Window returns the [lo, hi) bounds of p over n items.
func (p Page) Window(n int) (int, int) {
	p = p.Normalize()
	lo := p.Offset
	if lo > n {
		lo = n
	}
	hi := lo + p.Limit
	if hi > n {
		hi = n
	}
	return lo, hi
}

// Duplicate reports a key collision in the ErrDuplicate family.
func Duplicate(kind Kind, key fmt.Stringer) error {
	return fmt.Errorf("%w: %s %s", internalerr.ErrDuplicate, kind, key)
}

// NotFound reports a missing key in the ErrNotFound family.
func NotFound(kind Kind, key fmt.Stringer) error {
	return fmt.Errorf("%w: %s %s", internalerr.ErrNotFound, kind, key)
}
