package memstore

import (
	"context"
	"testing"

	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
	"github.com/cognicore/commonworks/pkg/commonworks/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestFindReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	w := storetest.Work("61", "W1", "W1")
	if err := s.InsertWorks(ctx, []model.Work{w}); err != nil {
		t.Fatalf("InsertWorks: %v", err)
	}

	got, _, _ := s.FindWork(ctx, w.Key)
	got.Publishers[0].InterestedPartyID = "CHANGED"
	got.WorkOrigin.IntendedPurpose = "CHANGED"

	again, _, _ := s.FindWork(ctx, w.Key)
	if again.Publishers[0].InterestedPartyID != "IP1" || again.WorkOrigin.IntendedPurpose != "FIL" {
		t.Fatalf("caller mutation leaked into the store: %+v", again)
	}
}
