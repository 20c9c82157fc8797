package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
	"github.com/cognicore/commonworks/pkg/commonworks/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := Open(context.Background(), filepath.Join(t.TempDir(), "commonworks.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return st
	})
}

// TestReopenKeepsData checks that a closed database comes back intact.
func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "commonworks.db")

	st, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p := storetest.Party("61", "IP1", "P1")
	a := storetest.Agreement("61", "AG1", "A1", model.PartyRef{Key: p.Key, ID: p.ID})
	if err := st.InsertParties(ctx, []model.InterestedParty{p}); err != nil {
		t.Fatalf("InsertParties: %v", err)
	}
	if err := st.InsertAgreements(ctx, []model.Agreement{a}); err != nil {
		t.Fatalf("InsertAgreements: %v", err)
	}
	if err := st.AppendParticipations(ctx, []store.Append{{
		Party:         p.Key,
		Participation: model.Participation{AgreementKey: a.Key, AgreementID: a.ID, RoleCode: "AS"},
	}}); err != nil {
		t.Fatalf("AppendParticipations: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	got, ok, err := st.FindParty(ctx, p.Key)
	if err != nil || !ok {
		t.Fatalf("FindParty after reopen: ok=%v err=%v", ok, err)
	}
	if len(got.Participations) != 1 || got.Participations[0].AgreementID != "A1" {
		t.Errorf("participations after reopen: %+v", got.Participations)
	}
	list, err := st.AgreementsByParty(ctx, p.Key)
	if err != nil || len(list) != 1 {
		t.Errorf("AgreementsByParty after reopen: %d, %v", len(list), err)
	}
}

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if n, err := st.Count(ctx, store.KindWorks); err != nil || n != 0 {
		t.Fatalf("Count on fresh database: %d, %v", n, err)
	}
}
