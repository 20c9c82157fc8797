// Package link wires agreements to interested parties and keeps the
// entities a run has built but not yet written.
package link

import (
	"github.com/cognicore/commonworks/pkg/commonworks/model"
)

// Table is the per-run pending-entity table. Entities sit here from
// construction until their group's batch is flushed; insertion order is
// kept so batches are deterministic.
type Table struct {
	agreements     []model.Agreement
	agreementIndex map[model.AgreementKey]int

	parties    []*model.InterestedParty
	partyIndex map[model.PartyKey]*model.InterestedParty

	works      []model.Work
	amended    []model.Work
	workIndex  map[model.WorkKey]int
	amendIndex map[model.WorkKey]int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		agreementIndex: make(map[model.AgreementKey]int),
		partyIndex:     make(map[model.PartyKey]*model.InterestedParty),
		workIndex:      make(map[model.WorkKey]int),
		amendIndex:     make(map[model.WorkKey]int),
	}
}

// HasAgreement reports a pending agreement with key.
func (t *Table) HasAgreement(key model.AgreementKey) bool {
	_, ok := t.agreementIndex[key]
	return ok
}

// AddAgreement queues a for the agreement batch. It reports false if an
// agreement with the same key is already pending.
func (t *Table) AddAgreement(a model.Agreement) bool {
	if t.HasAgreement(a.Key) {
		return false
	}
	t.agreementIndex[a.Key] = len(t.agreements)
	t.agreements = append(t.agreements, a)
	return true
}

// Party returns the pending party with key.
func (t *Table) Party(key model.PartyKey) (*model.InterestedParty, bool) {
	p, ok := t.partyIndex[key]
	return p, ok
}

func (t *Table) addParty(p model.InterestedParty) *model.InterestedParty {
	if existing, ok := t.partyIndex[p.Key]; ok {
		return existing
	}
	ptr := &p
	t.partyIndex[p.Key] = ptr
	t.parties = append(t.parties, ptr)
	return ptr
}

// HasWork reports a pending new or amended work with key.
func (t *Table) HasWork(key model.WorkKey) bool {
	if _, ok := t.workIndex[key]; ok {
		return true
	}
	_, ok := t.amendIndex[key]
	return ok
}

// AddWork queues a new work. It reports false if the key is pending.
func (t *Table) AddWork(w model.Work) bool {
	if t.HasWork(w.Key) {
		return false
	}
	t.workIndex[w.Key] = len(t.works)
	t.works = append(t.works, w)
	return true
}

// AddAmendment queues a replacement for a stored work. A later amendment
// of the same key overwrites the earlier one in place.
func (t *Table) AddAmendment(w model.Work) {
	if i, ok := t.amendIndex[w.Key]; ok {
		t.amended[i] = w
		return
	}
	t.amendIndex[w.Key] = len(t.amended)
	t.amended = append(t.amended, w)
}

// TakeParties returns the pending parties and forgets them.
func (t *Table) TakeParties() []model.InterestedParty {
	out := make([]model.InterestedParty, len(t.parties))
	for i, p := range t.parties {
		out[i] = *p
	}
	t.parties = nil
	t.partyIndex = make(map[model.PartyKey]*model.InterestedParty)
	return out
}

// TakeAgreements returns the pending agreements and forgets them.
func (t *Table) TakeAgreements() []model.Agreement {
	out := t.agreements
	t.agreements = nil
	t.agreementIndex = make(map[model.AgreementKey]int)
	return out
}

// TakeWorks returns the pending new and amended works and forgets them.
func (t *Table) TakeWorks() (inserts, replaces []model.Work) {
	inserts, replaces = t.works, t.amended
	t.works, t.amended = nil, nil
	t.workIndex = make(map[model.WorkKey]int)
	t.amendIndex = make(map[model.WorkKey]int)
	return inserts, replaces
}

// Len is the number of pending entities of every kind.
func (t *Table) Len() int {
	return len(t.agreements) + len(t.parties) + len(t.works) + len(t.amended)
}
