package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	q := `SELECT body FROM works WHERE submitter_id = ? AND work_number = ? LIMIT ?`

	if got := (Dialect{}).Rebind(q); got != q {
		t.Errorf("nil placeholder changed the query: %q", got)
	}

	want := `SELECT body FROM works WHERE submitter_id = $1 AND work_number = $2 LIMIT $3`
	if got := (Dialect{Placeholder: Dollar}).Rebind(q); got != want {
		t.Errorf("Rebind:\n got %q\nwant %q", got, want)
	}
}
