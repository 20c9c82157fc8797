package ingest

import (
	"time"

	"github.com/cognicore/commonworks/pkg/commonworks/document"
	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
)

// Report summarises one run.
type Report struct {
	RunID       string        `json:"run_id"`
	SubmitterID string        `json:"submitter_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`

	// Entities written by group batches.
	Agreements   int `json:"agreements"`
	Parties      int `json:"parties"`
	Works        int `json:"works"`
	AmendedWorks int `json:"amended_works"`
	// Participations appended to parties stored before their agreement.
	Participations int `json:"participations"`

	SkippedGroups []string                 `json:"skipped_groups,omitempty"`
	Rejected      document.FilterStats     `json:"rejected"`
	Diagnostics   []internalerr.Diagnostic `json:"diagnostics"`
}

// Dropped is the number of transactions dropped with a diagnostic.
func (r *Report) Dropped() int { return len(r.Diagnostics) }
