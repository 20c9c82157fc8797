package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
	"github.com/cognicore/commonworks/pkg/commonworks/store/memstore"
	"github.com/cognicore/commonworks/pkg/commonworks/store/sqlite"
)

const submitter = "61"

type obj = map[string]any

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(st store.Store, reset bool) *Pipeline {
	opts := DefaultOptions()
	opts.Reset = reset
	opts.Logger = quietLogger()
	return NewPipeline(st, opts)
}

// eachBackend runs fn against a fresh memstore and a fresh SQLite file.
func eachBackend(t *testing.T, fn func(t *testing.T, st store.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, memstore.New()) })
	t.Run("sqlite", func(t *testing.T) {
		st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "cw.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		fn(t, st)
	})
}

// cwr assembles a wire document. groups are positional; types maps group
// type names to positions.
func cwr(t *testing.T, types map[string]int, groups ...any) []byte {
	t.Helper()
	data, err := json.Marshal(obj{
		"_header":      obj{"sender_id": submitter, "sender_name": "EXAMPLE MUSIC", "creation_date": "20240105"},
		"_group_types": types,
		"_groups":      groups,
	})
	require.NoError(t, err)
	return data
}

func group(txs ...obj) obj {
	return obj{"_rejected": false, "_transactions": txs}
}

func rejected(o obj) obj {
	o["_rejected"] = true
	return o
}

func agr(number string, parties obj, territories ...obj) obj {
	if territories == nil {
		territories = []obj{territory(2136)}
	}
	return obj{
		"_rejected":                  false,
		"submitter_agreement_number": number,
		"agreement_type":             "OS",
		"agreement_start_date":       "20240101",
		"number_of_works":            1,
		"_territories":               territories,
		"_interested_parties":        parties,
	}
}

func territory(code int) obj {
	return obj{"_rejected": false, "tis_numeric_code": code, "inclusion_exclusion_indicator": "I"}
}

func ip(id, lastName, role string, prShare float64) obj {
	return obj{
		"_rejected":           false,
		"id":                  id,
		"last_name":           lastName,
		"agreement_role_code": role,
		"pr_society":          "052",
		"pr_share":            prShare,
	}
}

func nwr(number, title string, publishers obj) obj {
	return obj{
		"_rejected":             false,
		"submitter_work_number": number,
		"title":                 title,
		"duration":              "000330",
		"_publishers":           publishers,
		"_entire_work_title":    nil,
		"_recording_details":    nil,
		"_work_origin":          nil,
	}
}

func pub(seq int, partyID, agreement string) obj {
	return obj{
		"_rejected":           false,
		"sequence":            seq,
		"interested_party_id": partyID,
		"agreement_number":    agreement,
		"pr_share":            50,
	}
}

type keySets struct {
	agreements []model.AgreementKey
	parties    []model.PartyKey
	works      []model.WorkKey
}

func collectKeys(t *testing.T, st store.Store) keySets {
	t.Helper()
	ctx := context.Background()
	page := store.Page{Limit: 10000}

	var ks keySets
	ags, err := st.ListAgreements(ctx, page)
	require.NoError(t, err)
	for _, a := range ags {
		ks.agreements = append(ks.agreements, a.Key)
	}
	ps, err := st.ListParties(ctx, page)
	require.NoError(t, err)
	for _, p := range ps {
		ks.parties = append(ks.parties, p.Key)
	}
	ws, err := st.ListWorks(ctx, page)
	require.NoError(t, err)
	for _, w := range ws {
		ks.works = append(ks.works, w.Key)
	}
	return ks
}

func agreementKey(number string) model.AgreementKey {
	return model.AgreementKey{SubmitterID: submitter, Number: number}
}

func partyKey(id string) model.PartyKey {
	return model.PartyKey{SubmitterID: submitter, PartyID: id}
}

func workKey(number string) model.WorkKey {
	return model.WorkKey{SubmitterID: submitter, WorkNumber: number}
}
