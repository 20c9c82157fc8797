package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/cognicore/commonworks/pkg/commonworks"
	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
	"github.com/cognicore/commonworks/pkg/commonworks/store/memstore"
)

const sampleDoc = "../../pkg/commonworks/testdata/sample.json"

func loadedInspector(t *testing.T, asJSON bool) (inspector, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true

	engine := commonworks.New(commonworks.Options{Store: memstore.New(), Reset: true})
	t.Cleanup(func() { engine.Close() })
	if _, err := engine.LoadFile(context.Background(), sampleDoc); err != nil {
		t.Fatalf("load sample: %v", err)
	}

	var out bytes.Buffer
	return inspector{engine: engine, out: &out, json: asJSON}, &out
}

func TestCounts(t *testing.T) {
	in, out := loadedInspector(t, false)
	if err := in.run(context.Background(), []string{"counts"}, store.Page{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "interested_parties") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestCountsJSON(t *testing.T) {
	in, out := loadedInspector(t, true)
	if err := in.run(context.Background(), []string{"counts"}, store.Page{}); err != nil {
		t.Fatal(err)
	}
	var c commonworks.Counts
	if err := json.Unmarshal(out.Bytes(), &c); err != nil {
		t.Fatal(err)
	}
	if c != (commonworks.Counts{Agreements: 2, Parties: 2, Works: 2}) {
		t.Errorf("counts = %+v", c)
	}
}

func TestPartyAgreements(t *testing.T) {
	in, out := loadedInspector(t, false)
	if err := in.run(context.Background(), []string{"party", "61/IP2"}, store.Page{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Agreements of 61/IP2 (1)") || !strings.Contains(out.String(), "61/AG1") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestListWithPage(t *testing.T) {
	in, out := loadedInspector(t, false)
	if err := in.run(context.Background(), []string{"works"}, store.Page{Offset: 1, Limit: 5}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Works (1)") || !strings.Contains(out.String(), "SECOND SONG") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestSubmitterWorks(t *testing.T) {
	in, out := loadedInspector(t, false)
	if err := in.run(context.Background(), []string{"submitter", "61"}, store.Page{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Works of 61 (2)") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestBadInvocations(t *testing.T) {
	in, _ := loadedInspector(t, false)
	for _, args := range [][]string{
		{"bogus"},
		{"party"},
		{"party", "IP1"},
		{"submitter"},
	} {
		err := in.run(context.Background(), args, store.Page{})
		if !errors.Is(err, internalerr.ErrInvalidInput) {
			t.Errorf("%v: expected ErrInvalidInput, got %v", args, err)
		}
	}
}
