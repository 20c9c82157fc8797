package store

import (
	"errors"
	"testing"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
)

func TestPageWindow(t *testing.T) {
	cases := []struct {
		page   Page
		n      int
		lo, hi int
	}{
		{Page{}, 100, 0, 30},
		{Page{Offset: 10, Limit: 5}, 100, 10, 15},
		{Page{Offset: 98, Limit: 5}, 100, 98, 100},
		{Page{Offset: 200}, 100, 100, 100},
		{Page{Offset: -3, Limit: 2}, 100, 0, 2},
	}
	for _, tc := range cases {
		lo, hi := tc.page.Window(tc.n)
		if lo != tc.lo || hi != tc.hi {
			t.Errorf("%+v over %d: got [%d,%d), want [%d,%d)", tc.page, tc.n, lo, hi, tc.lo, tc.hi)
		}
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"agreements":         KindAgreements,
		"parties":            KindParties,
		"interested_parties": KindParties,
		"works":              KindWorks,
	} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("cards"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
