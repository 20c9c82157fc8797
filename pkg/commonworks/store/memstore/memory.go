package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for tests and dry runs.
type Store struct {
	mu         sync.RWMutex
	agreements map[model.AgreementKey]model.Agreement
	parties    map[model.PartyKey]model.InterestedParty
	works      map[model.WorkKey]model.Work
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		agreements: make(map[model.AgreementKey]model.Agreement),
		parties:    make(map[model.PartyKey]model.InterestedParty),
		works:      make(map[model.WorkKey]model.Work),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Drop empties one collection.
func (s *Store) Drop(ctx context.Context, kind store.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case store.KindAgreements:
		s.agreements = make(map[model.AgreementKey]model.Agreement)
	case store.KindParties:
		s.parties = make(map[model.PartyKey]model.InterestedParty)
	case store.KindWorks:
		s.works = make(map[model.WorkKey]model.Work)
	default:
		return fmt.Errorf("%w: unknown kind %q", internalerr.ErrInvalidInput, kind)
	}
	return nil
}

// FindAgreement returns the agreement stored under key.
func (s *Store) FindAgreement(ctx context.Context, key model.AgreementKey) (model.Agreement, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.agreements[key]; ok {
		return a.Clone(), true, nil
	}
	return model.Agreement{}, false, nil
}

// FindParty returns the interested party stored under key.
func (s *Store) FindParty(ctx context.Context, key model.PartyKey) (model.InterestedParty, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.parties[key]; ok {
		return p.Clone(), true, nil
	}
	return model.InterestedParty{}, false, nil
}

// FindWork returns the work stored under key.
func (s *Store) FindWork(ctx context.Context, key model.WorkKey) (model.Work, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if w, ok := s.works[key]; ok {
		return w.Clone(), true, nil
	}
	return model.Work{}, false, nil
}

// InsertAgreements adds a batch of new agreements.
func (s *Store) InsertAgreements(ctx context.Context, agreements []model.Agreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[model.AgreementKey]struct{}, len(agreements))
	for _, a := range agreements {
		if _, ok := s.agreements[a.Key]; ok {
			return store.Duplicate(store.KindAgreements, a.Key)
		}
		if _, ok := seen[a.Key]; ok {
			return store.Duplicate(store.KindAgreements, a.Key)
		}
		seen[a.Key] = struct{}{}
	}
	for _, a := range agreements {
		s.agreements[a.Key] = a.Clone()
	}
	return nil
}

// InsertParties adds a batch of new interested parties.
func (s *Store) InsertParties(ctx context.Context, parties []model.InterestedParty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[model.PartyKey]struct{}, len(parties))
	for _, p := range parties {
		if _, ok := s.parties[p.Key]; ok {
			return store.Duplicate(store.KindParties, p.Key)
		}
		if _, ok := seen[p.Key]; ok {
			return store.Duplicate(store.KindParties, p.Key)
		}
		seen[p.Key] = struct{}{}
	}
	for _, p := range parties {
		s.parties[p.Key] = p.Clone()
	}
	return nil
}

// InsertWorks adds a batch of new works.
func (s *Store) InsertWorks(ctx context.Context, works []model.Work) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[model.WorkKey]struct{}, len(works))
	for _, w := range works {
		if _, ok := s.works[w.Key]; ok {
			return store.Duplicate(store.KindWorks, w.Key)
		}
		if _, ok := seen[w.Key]; ok {
			return store.Duplicate(store.KindWorks, w.Key)
		}
		seen[w.Key] = struct{}{}
	}
	for _, w := range works {
		s.works[w.Key] = w.Clone()
	}
	return nil
}

// ReplaceWorks overwrites stored works, keeping each stored ID.
func (s *Store) ReplaceWorks(ctx context.Context, works []model.Work) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range works {
		if _, ok := s.works[w.Key]; !ok {
			return store.NotFound(store.KindWorks, w.Key)
		}
	}
	for _, w := range works {
		w = w.Clone()
		w.ID = s.works[w.Key].ID
		s.works[w.Key] = w
	}
	return nil
}

// AppendParticipations records each participation on its stored party.
// Every party is checked before any is changed.
func (s *Store) AppendParticipations(ctx context.Context, appends []store.Append) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ap := range appends {
		if _, ok := s.parties[ap.Party]; !ok {
			return store.NotFound(store.KindParties, ap.Party)
		}
	}
	for _, ap := range appends {
		party := s.parties[ap.Party].Clone()
		party.AddParticipation(ap.Participation)
		s.parties[ap.Party] = party
	}
	return nil
}

// ListAgreements returns a page of agreements ordered by key.
func (s *Store) ListAgreements(ctx context.Context, page store.Page) ([]model.Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedAgreements(func(model.Agreement) bool { return true })
	lo, hi := page.Window(len(all))
	return all[lo:hi], nil
}

// ListParties returns a page of interested parties ordered by key.
func (s *Store) ListParties(ctx context.Context, page store.Page) ([]model.InterestedParty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]model.InterestedParty, 0, len(s.parties))
	for _, p := range s.parties {
		all = append(all, p.Clone())
	}
	sort.Slice(all, func(i, j int) bool {
		return partyLess(all[i].Key, all[j].Key)
	})
	lo, hi := page.Window(len(all))
	return all[lo:hi], nil
}

// ListWorks returns a page of works ordered by key.
func (s *Store) ListWorks(ctx context.Context, page store.Page) ([]model.Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedWorks(func(model.Work) bool { return true })
	lo, hi := page.Window(len(all))
	return all[lo:hi], nil
}

// AgreementsByParty returns the agreements that reference key.
func (s *Store) AgreementsByParty(ctx context.Context, key model.PartyKey) ([]model.Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedAgreements(func(a model.Agreement) bool { return a.HasParty(key) }), nil
}

// WorksBySubmitter returns every work registered by one submitter.
func (s *Store) WorksBySubmitter(ctx context.Context, submitterID string) ([]model.Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedWorks(func(w model.Work) bool { return w.Key.SubmitterID == submitterID }), nil
}

// Count returns the size of one collection.
func (s *Store) Count(ctx context.Context, kind store.Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case store.KindAgreements:
		return len(s.agreements), nil
	case store.KindParties:
		return len(s.parties), nil
	case store.KindWorks:
		return len(s.works), nil
	}
	return 0, fmt.Errorf("%w: unknown kind %q", internalerr.ErrInvalidInput, kind)
}

func (s *Store) sortedAgreements(keep func(model.Agreement) bool) []model.Agreement {
	out := make([]model.Agreement, 0)
	for _, a := range s.agreements {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].Key, out[j].Key
		if ki.SubmitterID != kj.SubmitterID {
			return ki.SubmitterID < kj.SubmitterID
		}
		return ki.Number < kj.Number
	})
	return out
}

func (s *Store) sortedWorks(keep func(model.Work) bool) []model.Work {
	out := make([]model.Work, 0)
	for _, w := range s.works {
		if keep(w) {
			out = append(out, w.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].Key, out[j].Key
		if ki.SubmitterID != kj.SubmitterID {
			return ki.SubmitterID < kj.SubmitterID
		}
		return ki.WorkNumber < kj.WorkNumber
	})
	return out
}

func partyLess(a, b model.PartyKey) bool {
	if a.SubmitterID != b.SubmitterID {
		return a.SubmitterID < b.SubmitterID
	}
	return a.PartyID < b.PartyID
}
