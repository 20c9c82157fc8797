package link

import (
	"context"
	"fmt"

	"github.com/cognicore/commonworks/pkg/commonworks/document"
	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
)

// Linker records both directions of an agreement/party relationship.
// References are natural keys plus IDs, never pointers.
type Linker struct {
	store store.Store
	table *Table
}

// NewLinker creates a linker that queues new parties in table and appends
// participations of stored parties through st.
func NewLinker(st store.Store, table *Table) *Linker {
	return &Linker{store: st, table: table}
}

// LinkNew links a party that exists nowhere yet and queues it for the
// party batch.
func (l *Linker) LinkNew(a *model.Agreement, party model.InterestedParty, detail document.Party) {
	p := l.table.addParty(party)
	a.AddParty(model.PartyRef{Key: p.Key, ID: p.ID})
	p.AddParticipation(model.ParticipationOf(a, detail))
}

// LinkPending links a party built earlier in the run and not yet flushed.
func (l *Linker) LinkPending(a *model.Agreement, key model.PartyKey, detail document.Party) error {
	p, ok := l.table.Party(key)
	if !ok {
		return fmt.Errorf("%w: pending party %s", internalerr.ErrNotFound, key)
	}
	a.AddParty(model.PartyRef{Key: p.Key, ID: p.ID})
	p.AddParticipation(model.ParticipationOf(a, detail))
	return nil
}

// Existing is a stored party and its listing on the agreement.
type Existing struct {
	Party  model.InterestedParty
	Detail document.Party
}

// LinkExisting links stored parties. Their participations are written at
// once, outside the group batch, in one all-or-nothing store call; on
// failure neither the store nor a is changed.
func (l *Linker) LinkExisting(ctx context.Context, a *model.Agreement, parties []Existing) error {
	if len(parties) == 0 {
		return nil
	}
	appends := make([]store.Append, len(parties))
	for i, e := range parties {
		appends[i] = store.Append{Party: e.Party.Key, Participation: model.ParticipationOf(a, e.Detail)}
	}
	if err := l.store.AppendParticipations(ctx, appends); err != nil {
		return fmt.Errorf("append participations: %w", err)
	}
	for _, e := range parties {
		a.AddParty(model.PartyRef{Key: e.Party.Key, ID: e.Party.ID})
	}
	return nil
}
