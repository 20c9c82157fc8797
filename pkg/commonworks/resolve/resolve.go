// Package resolve answers "does this natural key already exist" against
// the store. Nothing is cached, so every lookup sees the batches flushed
// earlier in the run.
package resolve

import (
	"context"
	"fmt"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
)

// Resolver performs point lookups by natural key.
type Resolver struct {
	store store.Store
}

// New creates a resolver reading from st.
func New(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Agreement looks up an agreement. A miss is (zero, false, nil).
func (r *Resolver) Agreement(ctx context.Context, key model.AgreementKey) (model.Agreement, bool, error) {
	a, ok, err := r.store.FindAgreement(ctx, key)
	if err != nil {
		recordLookup("agreement", resultError)
		return model.Agreement{}, false, lookupErr("agreement", key, err)
	}
	recordLookup("agreement", hitOrMiss(ok))
	return a, ok, nil
}

// Party looks up an interested party.
func (r *Resolver) Party(ctx context.Context, key model.PartyKey) (model.InterestedParty, bool, error) {
	p, ok, err := r.store.FindParty(ctx, key)
	if err != nil {
		recordLookup("party", resultError)
		return model.InterestedParty{}, false, lookupErr("party", key, err)
	}
	recordLookup("party", hitOrMiss(ok))
	return p, ok, nil
}

// Work looks up a work.
func (r *Resolver) Work(ctx context.Context, key model.WorkKey) (model.Work, bool, error) {
	w, ok, err := r.store.FindWork(ctx, key)
	if err != nil {
		recordLookup("work", resultError)
		return model.Work{}, false, lookupErr("work", key, err)
	}
	recordLookup("work", hitOrMiss(ok))
	return w, ok, nil
}

func lookupErr(kind string, key fmt.Stringer, err error) error {
	return fmt.Errorf("%w: %s %s: %w", internalerr.ErrLookup, kind, key, err)
}

func hitOrMiss(ok bool) string {
	if ok {
		return resultHit
	}
	return resultMiss
}
