// Package storetest is the conformance suite every store.Store backend runs.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
)

// Opener returns an empty store. The suite closes it.
type Opener func(t *testing.T) store.Store

// Run executes the suite against fresh stores from open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, ctx context.Context, st store.Store)
	}{
		{"FindMissing", testFindMissing},
		{"RoundTrip", testRoundTrip},
		{"DuplicateAgainstStored", testDuplicateAgainstStored},
		{"DuplicateWithinBatch", testDuplicateWithinBatch},
		{"ReplaceWorks", testReplaceWorks},
		{"AppendParticipations", testAppendParticipations},
		{"AppendParticipationsAtomic", testAppendParticipationsAtomic},
		{"Drop", testDrop},
		{"Pagination", testPagination},
		{"AgreementsByParty", testAgreementsByParty},
		{"WorksBySubmitter", testWorksBySubmitter},
		{"UnknownKind", testUnknownKind},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := open(t)
			defer st.Close()
			tc.fn(t, context.Background(), st)
		})
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Agreement builds a stored agreement fixture.
func Agreement(submitter, number, id string, parties ...model.PartyRef) model.Agreement {
	return model.Agreement{
		ID:           id,
		Key:          model.AgreementKey{SubmitterID: submitter, Number: number},
		Type:         "OS",
		StartDate:    date(2024, 1, 1),
		EndDate:      date(2030, 12, 31),
		WorksNumber:  3,
		SharesChange: true,
		Territories:  []model.Territory{{TISCode: 2136, Inclusion: "I"}, {TISCode: 724, Inclusion: "E"}},
		Parties:      parties,
	}
}

// Party builds a stored interested party fixture.
func Party(submitter, partyID, id string, participations ...model.Participation) model.InterestedParty {
	return model.InterestedParty{
		ID:             id,
		Key:            model.PartyKey{SubmitterID: submitter, PartyID: partyID},
		LastName:       "LAST " + partyID,
		IPIName:        "00014107338",
		RoleCode:       "AS",
		Participations: participations,
	}
}

// Work builds a stored work fixture.
func Work(submitter, number, id string) model.Work {
	return model.Work{
		ID:       id,
		Key:      model.WorkKey{SubmitterID: submitter, WorkNumber: number},
		Title:    "TITLE " + number,
		ISWC:     "T0345246801",
		Duration: 3*time.Minute + 30*time.Second,
		Publishers: []model.Publisher{
			{Sequence: 1, InterestedPartyID: "IP1", AgreementNumber: "AG1", Shares: model.Shares{PRSociety: "052", PRShare: 50}},
		},
		RecordingDetails: &model.RecordingDetails{FirstReleaseDate: date(1999, 5, 1), FirstAlbumTitle: "LP"},
		WorkOrigin:       &model.WorkOrigin{IntendedPurpose: "FIL", Year: 1999},
	}
}

func participation(a model.Agreement, role string) model.Participation {
	return model.Participation{
		AgreementKey: a.Key,
		AgreementID:  a.ID,
		RoleCode:     role,
		Shares:       model.Shares{PRSociety: "010", PRShare: 25, MRShare: 100},
	}
}

func testFindMissing(t *testing.T, ctx context.Context, st store.Store) {
	if _, ok, err := st.FindAgreement(ctx, model.AgreementKey{SubmitterID: "1", Number: "X"}); ok || err != nil {
		t.Fatalf("FindAgreement on empty store: ok=%v err=%v", ok, err)
	}
	if _, ok, err := st.FindParty(ctx, model.PartyKey{SubmitterID: "1", PartyID: "X"}); ok || err != nil {
		t.Fatalf("FindParty on empty store: ok=%v err=%v", ok, err)
	}
	if _, ok, err := st.FindWork(ctx, model.WorkKey{SubmitterID: "1", WorkNumber: "X"}); ok || err != nil {
		t.Fatalf("FindWork on empty store: ok=%v err=%v", ok, err)
	}
}

func testRoundTrip(t *testing.T, ctx context.Context, st store.Store) {
	p := Party("61", "IP1", "P1")
	a := Agreement("61", "AG1", "A1", model.PartyRef{Key: p.Key, ID: p.ID})
	p.Participations = []model.Participation{participation(a, "AS")}
	w := Work("61", "W1", "W1")

	mustInsert(t, st.InsertParties(ctx, []model.InterestedParty{p}))
	mustInsert(t, st.InsertAgreements(ctx, []model.Agreement{a}))
	mustInsert(t, st.InsertWorks(ctx, []model.Work{w}))

	gotA, ok, err := st.FindAgreement(ctx, a.Key)
	if err != nil || !ok {
		t.Fatalf("FindAgreement: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(gotA, a) {
		t.Errorf("agreement mismatch:\n got %+v\nwant %+v", gotA, a)
	}

	gotP, ok, err := st.FindParty(ctx, p.Key)
	if err != nil || !ok {
		t.Fatalf("FindParty: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(gotP, p) {
		t.Errorf("party mismatch:\n got %+v\nwant %+v", gotP, p)
	}

	gotW, ok, err := st.FindWork(ctx, w.Key)
	if err != nil || !ok {
		t.Fatalf("FindWork: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(gotW, w) {
		t.Errorf("work mismatch:\n got %+v\nwant %+v", gotW, w)
	}
}

func testDuplicateAgainstStored(t *testing.T, ctx context.Context, st store.Store) {
	mustInsert(t, st.InsertAgreements(ctx, []model.Agreement{Agreement("61", "AG1", "A1")}))
	mustInsert(t, st.InsertParties(ctx, []model.InterestedParty{Party("61", "IP1", "P1")}))
	mustInsert(t, st.InsertWorks(ctx, []model.Work{Work("61", "W1", "W1")}))

	err := st.InsertAgreements(ctx, []model.Agreement{Agreement("61", "AG2", "A2"), Agreement("61", "AG1", "A3")})
	wantDuplicate(t, err)
	err = st.InsertParties(ctx, []model.InterestedParty{Party("61", "IP2", "P2"), Party("61", "IP1", "P3")})
	wantDuplicate(t, err)
	err = st.InsertWorks(ctx, []model.Work{Work("61", "W2", "W2"), Work("61", "W1", "W3")})
	wantDuplicate(t, err)

	if _, ok, _ := st.FindAgreement(ctx, model.AgreementKey{SubmitterID: "61", Number: "AG2"}); ok {
		t.Error("failed agreement batch left AG2 behind")
	}
	if _, ok, _ := st.FindParty(ctx, model.PartyKey{SubmitterID: "61", PartyID: "IP2"}); ok {
		t.Error("failed party batch left IP2 behind")
	}
	if _, ok, _ := st.FindWork(ctx, model.WorkKey{SubmitterID: "61", WorkNumber: "W2"}); ok {
		t.Error("failed work batch left W2 behind")
	}
	wantCount(t, ctx, st, store.KindAgreements, 1)
	wantCount(t, ctx, st, store.KindParties, 1)
	wantCount(t, ctx, st, store.KindWorks, 1)
}

func testDuplicateWithinBatch(t *testing.T, ctx context.Context, st store.Store) {
	wantDuplicate(t, st.InsertWorks(ctx, []model.Work{Work("61", "W1", "W1"), Work("61", "W1", "W2")}))
	wantDuplicate(t, st.InsertAgreements(ctx, []model.Agreement{Agreement("61", "AG1", "A1"), Agreement("61", "AG1", "A2")}))
	wantDuplicate(t, st.InsertParties(ctx, []model.InterestedParty{Party("61", "IP1", "P1"), Party("61", "IP1", "P2")}))
	wantCount(t, ctx, st, store.KindWorks, 0)
	wantCount(t, ctx, st, store.KindAgreements, 0)
	wantCount(t, ctx, st, store.KindParties, 0)

	// The same number under another submitter is a different key.
	mustInsert(t, st.InsertWorks(ctx, []model.Work{Work("61", "W1", "W1"), Work("62", "W1", "W2")}))
	wantCount(t, ctx, st, store.KindWorks, 2)
}

func testReplaceWorks(t *testing.T, ctx context.Context, st store.Store) {
	orig := Work("61", "W1", "W1")
	mustInsert(t, st.InsertWorks(ctx, []model.Work{orig}))

	amended := Work("61", "W1", "OTHER")
	amended.Title = "AMENDED"
	amended.WorkOrigin = nil
	if err := st.ReplaceWorks(ctx, []model.Work{amended}); err != nil {
		t.Fatalf("ReplaceWorks: %v", err)
	}
	got, ok, err := st.FindWork(ctx, orig.Key)
	if err != nil || !ok {
		t.Fatalf("FindWork: ok=%v err=%v", ok, err)
	}
	if got.ID != "W1" {
		t.Errorf("replace changed the ID: got %s", got.ID)
	}
	if got.Title != "AMENDED" || got.WorkOrigin != nil {
		t.Errorf("replace did not overwrite the body: %+v", got)
	}

	again := amended
	again.Title = "SHOULD NOT LAND"
	err = st.ReplaceWorks(ctx, []model.Work{again, Work("61", "MISSING", "M")})
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _, err = st.FindWork(ctx, orig.Key)
	if err != nil {
		t.Fatalf("FindWork: %v", err)
	}
	if got.Title != "AMENDED" {
		t.Errorf("failed replace batch was partially applied: %q", got.Title)
	}
}

func testAppendParticipations(t *testing.T, ctx context.Context, st store.Store) {
	p := Party("61", "IP1", "P1")
	mustInsert(t, st.InsertParties(ctx, []model.InterestedParty{p}))

	a1 := Agreement("61", "AG1", "A1")
	a2 := Agreement("61", "AG2", "A2")
	if err := st.AppendParticipations(ctx, []store.Append{
		{Party: p.Key, Participation: participation(a1, "AS")},
		{Party: p.Key, Participation: participation(a2, "AQ")},
	}); err != nil {
		t.Fatalf("AppendParticipations: %v", err)
	}
	// Same agreement again: ignored.
	if err := st.AppendParticipations(ctx, []store.Append{{Party: p.Key, Participation: participation(a1, "XX")}}); err != nil {
		t.Fatalf("AppendParticipations: %v", err)
	}
	if err := st.AppendParticipations(ctx, nil); err != nil {
		t.Fatalf("empty AppendParticipations: %v", err)
	}

	got, _, err := st.FindParty(ctx, p.Key)
	if err != nil {
		t.Fatalf("FindParty: %v", err)
	}
	want := []model.Participation{participation(a1, "AS"), participation(a2, "AQ")}
	if !reflect.DeepEqual(got.Participations, want) {
		t.Errorf("participations:\n got %+v\nwant %+v", got.Participations, want)
	}
}

func testAppendParticipationsAtomic(t *testing.T, ctx context.Context, st store.Store) {
	p := Party("61", "IP1", "P1")
	mustInsert(t, st.InsertParties(ctx, []model.InterestedParty{p}))

	a := Agreement("61", "AG1", "A1")
	err := st.AppendParticipations(ctx, []store.Append{
		{Party: p.Key, Participation: participation(a, "AS")},
		{Party: model.PartyKey{SubmitterID: "61", PartyID: "NOPE"}, Participation: participation(a, "AQ")},
	})
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown party, got %v", err)
	}

	got, _, err := st.FindParty(ctx, p.Key)
	if err != nil {
		t.Fatalf("FindParty: %v", err)
	}
	if len(got.Participations) != 0 {
		t.Errorf("failed batch was partially applied: %+v", got.Participations)
	}
}

func testDrop(t *testing.T, ctx context.Context, st store.Store) {
	p := Party("61", "IP1", "P1")
	a := Agreement("61", "AG1", "A1", model.PartyRef{Key: p.Key, ID: p.ID})
	p.Participations = []model.Participation{participation(a, "AS")}
	mustInsert(t, st.InsertParties(ctx, []model.InterestedParty{p}))
	mustInsert(t, st.InsertAgreements(ctx, []model.Agreement{a}))
	mustInsert(t, st.InsertWorks(ctx, []model.Work{Work("61", "W1", "W1")}))

	if err := st.Drop(ctx, store.KindWorks); err != nil {
		t.Fatalf("Drop works: %v", err)
	}
	wantCount(t, ctx, st, store.KindWorks, 0)
	wantCount(t, ctx, st, store.KindAgreements, 1)
	wantCount(t, ctx, st, store.KindParties, 1)

	for _, k := range []store.Kind{store.KindAgreements, store.KindParties} {
		if err := st.Drop(ctx, k); err != nil {
			t.Fatalf("Drop %s: %v", k, err)
		}
		wantCount(t, ctx, st, k, 0)
	}

	// Dropped keys are free again.
	mustInsert(t, st.InsertParties(ctx, []model.InterestedParty{Party("61", "IP1", "P9")}))
	got, _, _ := st.FindParty(ctx, p.Key)
	if len(got.Participations) != 0 {
		t.Errorf("participations survived Drop: %+v", got.Participations)
	}
	if list, _ := st.AgreementsByParty(ctx, p.Key); len(list) != 0 {
		t.Errorf("agreement index survived Drop: %+v", list)
	}
}

func testPagination(t *testing.T, ctx context.Context, st store.Store) {
	var works []model.Work
	// insert out of order
	for i := 34; i >= 0; i-- {
		works = append(works, Work("61", fmt.Sprintf("W%02d", i), fmt.Sprintf("ID%02d", i)))
	}
	mustInsert(t, st.InsertWorks(ctx, works))

	first, err := st.ListWorks(ctx, store.Page{})
	if err != nil {
		t.Fatalf("ListWorks: %v", err)
	}
	if len(first) != store.DefaultPageLimit {
		t.Fatalf("default page: got %d works, want %d", len(first), store.DefaultPageLimit)
	}
	if first[0].Key.WorkNumber != "W00" || first[29].Key.WorkNumber != "W29" {
		t.Errorf("unexpected order: %s..%s", first[0].Key.WorkNumber, first[29].Key.WorkNumber)
	}
	rest, err := st.ListWorks(ctx, store.Page{Offset: 30, Limit: 10})
	if err != nil {
		t.Fatalf("ListWorks: %v", err)
	}
	if len(rest) != 5 || rest[0].Key.WorkNumber != "W30" {
		t.Errorf("second page: %d works", len(rest))
	}
	if empty, _ := st.ListWorks(ctx, store.Page{Offset: 100}); len(empty) != 0 {
		t.Errorf("page past the end returned %d works", len(empty))
	}

	mustInsert(t, st.InsertAgreements(ctx, []model.Agreement{
		Agreement("62", "A", "A3"), Agreement("61", "B", "A2"), Agreement("61", "A", "A1"),
	}))
	ags, err := st.ListAgreements(ctx, store.Page{Limit: 2})
	if err != nil {
		t.Fatalf("ListAgreements: %v", err)
	}
	if len(ags) != 2 || ags[0].ID != "A1" || ags[1].ID != "A2" {
		t.Errorf("agreements out of order: %+v", ags)
	}

	mustInsert(t, st.InsertParties(ctx, []model.InterestedParty{Party("61", "Z", "PZ"), Party("61", "M", "PM")}))
	ps, err := st.ListParties(ctx, store.Page{Offset: 1})
	if err != nil {
		t.Fatalf("ListParties: %v", err)
	}
	if len(ps) != 1 || ps[0].ID != "PZ" {
		t.Errorf("parties page: %+v", ps)
	}
}

func testAgreementsByParty(t *testing.T, ctx context.Context, st store.Store) {
	p1 := model.PartyRef{Key: model.PartyKey{SubmitterID: "61", PartyID: "IP1"}, ID: "P1"}
	p2 := model.PartyRef{Key: model.PartyKey{SubmitterID: "61", PartyID: "IP2"}, ID: "P2"}
	mustInsert(t, st.InsertAgreements(ctx, []model.Agreement{
		Agreement("61", "AG3", "A3", p1),
		Agreement("61", "AG2", "A2", p2),
		Agreement("61", "AG1", "A1", p1, p2),
	}))

	got, err := st.AgreementsByParty(ctx, p1.Key)
	if err != nil {
		t.Fatalf("AgreementsByParty: %v", err)
	}
	if len(got) != 2 || got[0].ID != "A1" || got[1].ID != "A3" {
		t.Errorf("unexpected agreements for IP1: %+v", got)
	}
	none, err := st.AgreementsByParty(ctx, model.PartyKey{SubmitterID: "62", PartyID: "IP1"})
	if err != nil || len(none) != 0 {
		t.Errorf("other submitter: %d agreements, err=%v", len(none), err)
	}
}

func testWorksBySubmitter(t *testing.T, ctx context.Context, st store.Store) {
	mustInsert(t, st.InsertWorks(ctx, []model.Work{
		Work("61", "W2", "I2"), Work("62", "W1", "I3"), Work("61", "W1", "I1"),
	}))
	got, err := st.WorksBySubmitter(ctx, "61")
	if err != nil {
		t.Fatalf("WorksBySubmitter: %v", err)
	}
	if len(got) != 2 || got[0].ID != "I1" || got[1].ID != "I2" {
		t.Errorf("unexpected works: %+v", got)
	}
}

func testUnknownKind(t *testing.T, ctx context.Context, st store.Store) {
	if err := st.Drop(ctx, store.Kind("cards")); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Drop: expected ErrInvalidInput, got %v", err)
	}
	if _, err := st.Count(ctx, store.Kind("cards")); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Count: expected ErrInvalidInput, got %v", err)
	}
}

func mustInsert(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func wantDuplicate(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, internalerr.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func wantCount(t *testing.T, ctx context.Context, st store.Store, kind store.Kind, want int) {
	t.Helper()
	n, err := st.Count(ctx, kind)
	if err != nil {
		t.Fatalf("Count %s: %v", kind, err)
	}
	if n != want {
		t.Errorf("Count %s = %d, want %d", kind, n, want)
	}
}
