package link

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/commonworks/pkg/commonworks/document"
	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store/memstore"
	"github.com/cognicore/commonworks/pkg/commonworks/store/storetest"
)

func newAgreement(number, id string) model.Agreement {
	return model.NewAgreement(id, "61", document.Agreement{Number: number, Type: "OS"})
}

func TestLinkNewAndPendingShareOneEntity(t *testing.T) {
	table := NewTable()
	l := NewLinker(memstore.New(), table)

	a1 := newAgreement("AG1", "A1")
	a2 := newAgreement("AG2", "A2")
	detail := document.Party{ID: "IP1", LastName: "JONES", RoleCode: "AS"}
	party := model.NewParty("P1", "61", detail)

	l.LinkNew(&a1, party, detail)
	require.NoError(t, l.LinkPending(&a2, party.Key, document.Party{ID: "IP1", RoleCode: "AQ"}))

	assert.Equal(t, []model.PartyRef{{Key: party.Key, ID: "P1"}}, a1.Parties)
	assert.Equal(t, []model.PartyRef{{Key: party.Key, ID: "P1"}}, a2.Parties)

	parties := table.TakeParties()
	require.Len(t, parties, 1)
	require.Len(t, parties[0].Participations, 2)
	assert.Equal(t, a1.Key, parties[0].Participations[0].AgreementKey)
	assert.Equal(t, "A1", parties[0].Participations[0].AgreementID)
	assert.Equal(t, "AQ", parties[0].Participations[1].RoleCode)

	_, ok := table.Party(party.Key)
	assert.False(t, ok, "taken parties leave the table")
}

func TestLinkPendingUnknownParty(t *testing.T) {
	l := NewLinker(memstore.New(), NewTable())
	a := newAgreement("AG1", "A1")
	err := l.LinkPending(&a, model.PartyKey{SubmitterID: "61", PartyID: "X"}, document.Party{})
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	assert.Empty(t, a.Parties)
}

func TestLinkExistingAppendsImmediately(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	stored := storetest.Party("61", "IP1", "P1")
	require.NoError(t, st.InsertParties(ctx, []model.InterestedParty{stored}))

	table := NewTable()
	l := NewLinker(st, table)
	a := newAgreement("AG1", "A1")
	require.NoError(t, l.LinkExisting(ctx, &a, []Existing{{Party: stored, Detail: document.Party{RoleCode: "AS"}}}))

	assert.Equal(t, []model.PartyRef{{Key: stored.Key, ID: "P1"}}, a.Parties)
	assert.Zero(t, table.Len(), "existing parties are not queued")

	got, _, err := st.FindParty(ctx, stored.Key)
	require.NoError(t, err)
	require.Len(t, got.Participations, 1)
	assert.Equal(t, model.Participation{AgreementKey: a.Key, AgreementID: "A1", RoleCode: "AS"}, got.Participations[0])
}

func TestLinkExistingFailureLeavesEverythingUntouched(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	stored := storetest.Party("61", "IP1", "P1")
	require.NoError(t, st.InsertParties(ctx, []model.InterestedParty{stored}))

	l := NewLinker(st, NewTable())
	a := newAgreement("AG1", "A1")

	ghost := storetest.Party("61", "GHOST", "P9")
	err := l.LinkExisting(ctx, &a, []Existing{
		{Party: stored, Detail: document.Party{RoleCode: "AS"}},
		{Party: ghost},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrNotFound))
	assert.Empty(t, a.Parties)

	got, _, err := st.FindParty(ctx, stored.Key)
	require.NoError(t, err)
	assert.Empty(t, got.Participations, "stored party must not point at the dropped agreement")
}

func TestTableWorks(t *testing.T) {
	table := NewTable()
	w1 := storetest.Work("61", "W1", "I1")
	require.True(t, table.AddWork(w1))
	assert.False(t, table.AddWork(storetest.Work("61", "W1", "I2")))
	assert.True(t, table.HasWork(w1.Key))

	rev := storetest.Work("61", "W2", "I3")
	table.AddAmendment(rev)
	rev.Title = "SECOND AMENDMENT"
	table.AddAmendment(rev)

	inserts, replaces := table.TakeWorks()
	require.Len(t, inserts, 1)
	require.Len(t, replaces, 1)
	assert.Equal(t, "SECOND AMENDMENT", replaces[0].Title)
	assert.False(t, table.HasWork(w1.Key))
	assert.Zero(t, table.Len())
}

func TestTableAgreements(t *testing.T) {
	table := NewTable()
	assert.True(t, table.AddAgreement(newAgreement("AG1", "A1")))
	assert.False(t, table.AddAgreement(newAgreement("AG1", "A2")))
	assert.True(t, table.HasAgreement(model.AgreementKey{SubmitterID: "61", Number: "AG1"}))

	got := table.TakeAgreements()
	require.Len(t, got, 1)
	assert.Equal(t, "A1", got[0].ID)
	assert.False(t, table.HasAgreement(got[0].Key))
}
