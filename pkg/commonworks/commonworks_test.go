package commonworks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
	"github.com/cognicore/commonworks/pkg/commonworks/store/memstore"
	"github.com/cognicore/commonworks/pkg/commonworks/store/sqlite"
)

const samplePath = "testdata/sample.json"

func TestLoadFileAndQuery(t *testing.T) {
	ctx := context.Background()

	engine := New(Options{Store: memstore.New(), Reset: true})
	defer engine.Close()

	report, err := engine.LoadFile(ctx, samplePath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if report.SubmitterID != "61" {
		t.Errorf("submitter = %q", report.SubmitterID)
	}
	if report.Agreements != 2 || report.Parties != 2 || report.Works != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Rejected.Transactions != 1 || report.Rejected.Territories != 1 {
		t.Errorf("unexpected rejected stats %+v", report.Rejected)
	}

	counts, err := engine.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts != (Counts{Agreements: 2, Parties: 2, Works: 2}) {
		t.Errorf("counts = %+v", counts)
	}

	ags, err := engine.AgreementsByParty(ctx, model.PartyKey{SubmitterID: "61", PartyID: "IP1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ags) != 2 {
		t.Fatalf("IP1 should be in 2 agreements, got %d", len(ags))
	}

	works, err := engine.WorksBySubmitter(ctx, "61")
	if err != nil {
		t.Fatal(err)
	}
	if len(works) != 2 || works[0].Title != "FIRST SONG" {
		t.Errorf("unexpected works %+v", works)
	}
	if works[1].WorkOrigin == nil || works[1].WorkOrigin.ProductionTitle != "THE FILM" {
		t.Errorf("work origin not kept: %+v", works[1].WorkOrigin)
	}

	parties, err := engine.Parties(ctx, store.Page{})
	if err != nil {
		t.Fatal(err)
	}
	if len(parties) != 2 {
		t.Fatalf("expected 2 parties, got %d", len(parties))
	}
	if len(parties[0].Participations) != 2 {
		t.Errorf("IP1 should participate in both agreements: %+v", parties[0].Participations)
	}
}

func TestReloadWithResetIsStable(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "cw.db"))
	if err != nil {
		t.Fatal(err)
	}

	engine := New(Options{Store: st, Reset: true})
	defer engine.Close()

	for i := 0; i < 2; i++ {
		if _, err := engine.LoadFile(ctx, samplePath); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}

	counts, err := engine.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts != (Counts{Agreements: 2, Parties: 2, Works: 2}) {
		t.Errorf("counts after reload = %+v", counts)
	}
}

func TestLoadFileMissing(t *testing.T) {
	engine := New(Options{Store: memstore.New()})
	defer engine.Close()

	if _, err := engine.LoadFile(context.Background(), "testdata/nope.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResetEmptiesStore(t *testing.T) {
	ctx := context.Background()
	engine := New(Options{Store: memstore.New()})
	defer engine.Close()

	if _, err := engine.LoadFile(ctx, samplePath); err != nil {
		t.Fatal(err)
	}
	if err := engine.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	counts, err := engine.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts != (Counts{}) {
		t.Errorf("counts after reset = %+v", counts)
	}
}
