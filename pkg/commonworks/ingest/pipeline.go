// Package ingest reconciles a CWR transaction document against a store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/commonworks/pkg/commonworks/document"
	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/link"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/resolve"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
)

var (
	errDuplicateAgreement = fmt.Errorf("%w: duplicate agreement", internalerr.ErrDuplicate)
	errDuplicateWork      = fmt.Errorf("%w: duplicate work", internalerr.ErrDuplicate)
	errUnknownWork        = fmt.Errorf("%w: revised work is not registered", internalerr.ErrNotFound)
)

// Options configures a Pipeline.
type Options struct {
	// Reset drops every collection before the first group. Without it a
	// run merges into what is stored.
	Reset      bool
	GroupTypes document.GroupTypes
	Logger     *slog.Logger
}

// DefaultOptions resets the store and uses the CWR group codes.
func DefaultOptions() Options {
	return Options{Reset: true, GroupTypes: document.DefaultGroupTypes()}
}

// Pipeline orchestrates a run:
// decode → rejection filter → reset → per group resolve/build/link → batch write
type Pipeline struct {
	store    store.Store
	resolver *resolve.Resolver
	ids      *model.IDGen
	opts     Options
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline writing to st.
func NewPipeline(st store.Store, opts Options) *Pipeline {
	if opts.GroupTypes == (document.GroupTypes{}) {
		opts.GroupTypes = document.DefaultGroupTypes()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    st,
		resolver: resolve.New(st),
		ids:      model.NewIDGen(),
		opts:     opts,
		logger:   logger,
	}
}

// RunReader reads a whole document from r and runs it.
func (p *Pipeline) RunReader(ctx context.Context, r io.Reader) (*Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return p.Run(ctx, data)
}

// Run decodes data and ingests it.
func (p *Pipeline) Run(ctx context.Context, data []byte) (*Report, error) {
	raw, err := document.Decode(data)
	if err != nil {
		p.logger.Error("commonworks.ingest.structural", "err", err)
		recordRun("structural", 0)
		return nil, err
	}
	return p.Ingest(ctx, raw)
}

// Ingest runs a decoded document. Structural problems fail before the
// store is touched. A failed batch write returns a *internalerr.StoreError
// together with the report of what happened up to that point.
func (p *Pipeline) Ingest(ctx context.Context, raw *document.Raw) (*Report, error) {
	start := time.Now()
	if raw == nil {
		recordRun("structural", 0)
		return nil, &internalerr.StructuralError{Err: internalerr.ErrEmptyDocument}
	}
	if err := raw.Validate(); err != nil {
		p.logger.Error("commonworks.ingest.structural", "err", err)
		recordRun("structural", 0)
		return nil, err
	}

	doc, dropped := document.Clean(raw, p.opts.GroupTypes)
	r := p.newRun(doc, start)
	p.logger.Info("commonworks.ingest.start",
		"run_id", r.report.RunID,
		"submitter_id", r.submitter,
		"groups", len(doc.Groups),
		"reset", p.opts.Reset,
	)

	recordRejected(doc.Rejected)
	if n := doc.Rejected.Total(); n > 0 {
		p.logger.Info("commonworks.ingest.rejected_filtered", "run_id", r.report.RunID, "nodes", n,
			"groups", doc.Rejected.Groups, "transactions", doc.Rejected.Transactions)
	}
	for _, te := range dropped {
		r.drop(te)
	}

	err := p.execute(ctx, r, doc)
	r.report.Duration = time.Since(start)
	if err != nil {
		p.logger.Error("commonworks.ingest.failed", "run_id", r.report.RunID, "err", err)
		recordRun("error", r.report.Duration)
		return r.report, err
	}

	recordRun("ok", r.report.Duration)
	p.logger.Info("commonworks.ingest.complete",
		"run_id", r.report.RunID,
		"agreements", r.report.Agreements,
		"parties", r.report.Parties,
		"works", r.report.Works,
		"amended_works", r.report.AmendedWorks,
		"participations", r.report.Participations,
		"dropped", r.report.Dropped(),
		"duration_ms", r.report.Duration.Milliseconds(),
	)
	return r.report, nil
}

func (p *Pipeline) execute(ctx context.Context, r *run, doc *document.Document) error {
	if p.opts.Reset {
		if err := p.Reset(ctx); err != nil {
			return err
		}
		r.logger.Debug("commonworks.ingest.step.reset")
	}

	for _, g := range doc.Groups {
		var err error
		switch g.Kind {
		case document.KindAgreements:
			err = r.agreementGroup(ctx, g)
		case document.KindNewWorks, document.KindRevisedWorks:
			err = r.workGroup(ctx, g)
		default:
			name := g.Name
			if name == "" {
				name = fmt.Sprintf("#%d", g.Position)
			}
			r.report.SkippedGroups = append(r.report.SkippedGroups, name)
			r.logger.Debug("commonworks.ingest.group.skipped", "group", name, "position", g.Position)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Reset drops the three collections in parallel; all drops finish before
// it returns. Runs call it first when Options.Reset is set.
func (p *Pipeline) Reset(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range store.Kinds {
		kind := kind
		g.Go(func() error {
			if err := p.store.Drop(gctx, kind); err != nil {
				return &internalerr.StoreError{Kind: string(kind), Op: "drop", Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// run is the state of one Ingest call.
type run struct {
	p         *Pipeline
	submitter string
	table     *link.Table
	linker    *link.Linker
	report    *Report
	logger    *slog.Logger
}

func (p *Pipeline) newRun(doc *document.Document, start time.Time) *run {
	table := link.NewTable()
	runID := p.ids.New()
	return &run{
		p:         p,
		submitter: doc.Header.SenderID,
		table:     table,
		linker:    link.NewLinker(p.store, table),
		logger:    p.logger.With("run_id", runID),
		report: &Report{
			RunID:       runID,
			SubmitterID: doc.Header.SenderID,
			StartedAt:   start,
			Rejected:    doc.Rejected,
			Diagnostics: []internalerr.Diagnostic{},
		},
	}
}

func (r *run) drop(te *internalerr.TransactionError) {
	r.report.Diagnostics = append(r.report.Diagnostics, te.Diagnostic())
	recordTransaction(te.Group, outcomeDropped)
	r.logger.Warn("commonworks.ingest.transaction.dropped",
		"group", te.Group, "index", te.Index, "key", te.Key, "err", te.Err)
}

func (r *run) txErr(g document.Group, index int, key string, err error) *internalerr.TransactionError {
	return &internalerr.TransactionError{Group: g.Name, Index: index, Key: key, Err: err}
}

// partyPlan is how one party of an agreement will be linked.
type partyPlan struct {
	detail  document.Party
	key     model.PartyKey
	stored  *model.InterestedParty
	pending bool
}

func (r *run) agreementGroup(ctx context.Context, g document.Group) error {
	r.logger.Debug("commonworks.ingest.group.agreements", "group", g.Name, "transactions", len(g.Agreements))
	for _, da := range g.Agreements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if te := r.agreement(ctx, g, da); te != nil {
			r.drop(te)
			continue
		}
		recordTransaction(g.Name, outcomeIngested)
	}

	// Parties first: agreements reference them.
	parties := r.table.TakeParties()
	if err := r.flush(store.KindParties, "insert", len(parties), func() error {
		return r.p.store.InsertParties(ctx, parties)
	}); err != nil {
		return err
	}
	r.report.Parties += len(parties)

	agreements := r.table.TakeAgreements()
	if err := r.flush(store.KindAgreements, "insert", len(agreements), func() error {
		return r.p.store.InsertAgreements(ctx, agreements)
	}); err != nil {
		return err
	}
	r.report.Agreements += len(agreements)
	return nil
}

// agreement builds one agreement and links its parties. Nothing is queued
// or written unless every party lookup succeeded.
func (r *run) agreement(ctx context.Context, g document.Group, da document.Agreement) *internalerr.TransactionError {
	key := model.AgreementKey{SubmitterID: r.submitter, Number: da.Number}
	if r.table.HasAgreement(key) {
		return r.txErr(g, da.Index, da.Number, errDuplicateAgreement)
	}
	if _, found, err := r.p.resolver.Agreement(ctx, key); err != nil {
		return r.txErr(g, da.Index, da.Number, err)
	} else if found {
		return r.txErr(g, da.Index, da.Number, errDuplicateAgreement)
	}

	plans := make([]partyPlan, 0, len(da.Parties))
	seen := make(map[model.PartyKey]struct{}, len(da.Parties))
	for _, dp := range da.Parties {
		pk := model.PartyKey{SubmitterID: r.submitter, PartyID: dp.ID}
		if _, dup := seen[pk]; dup {
			continue
		}
		seen[pk] = struct{}{}

		plan := partyPlan{detail: dp, key: pk}
		if _, ok := r.table.Party(pk); ok {
			plan.pending = true
		} else {
			stored, found, err := r.p.resolver.Party(ctx, pk)
			if err != nil {
				return r.txErr(g, da.Index, da.Number, err)
			}
			if found {
				plan.stored = &stored
			}
		}
		plans = append(plans, plan)
	}

	a := model.NewAgreement(r.p.ids.New(), r.submitter, da)

	// Store writes first, so a failure leaves the pending table untouched.
	var existing []link.Existing
	for _, plan := range plans {
		if plan.stored != nil {
			existing = append(existing, link.Existing{Party: *plan.stored, Detail: plan.detail})
		}
	}
	if err := r.linker.LinkExisting(ctx, &a, existing); err != nil {
		return r.txErr(g, da.Index, da.Number, err)
	}
	r.report.Participations += len(existing)
	recordParticipationAppend(len(existing))

	for _, plan := range plans {
		switch {
		case plan.stored != nil:
		case plan.pending:
			if err := r.linker.LinkPending(&a, plan.key, plan.detail); err != nil {
				return r.txErr(g, da.Index, da.Number, err)
			}
		default:
			r.linker.LinkNew(&a, model.NewParty(r.p.ids.New(), r.submitter, plan.detail), plan.detail)
		}
	}

	r.table.AddAgreement(a)
	return nil
}

func (r *run) workGroup(ctx context.Context, g document.Group) error {
	r.logger.Debug("commonworks.ingest.group.works", "group", g.Name, "kind", g.Kind.String(), "transactions", len(g.Works))
	for _, dw := range g.Works {
		if err := ctx.Err(); err != nil {
			return err
		}
		if te := r.work(ctx, g, dw); te != nil {
			r.drop(te)
			continue
		}
		recordTransaction(g.Name, outcomeIngested)
	}

	inserts, replaces := r.table.TakeWorks()
	if err := r.flush(store.KindWorks, "insert", len(inserts), func() error {
		return r.p.store.InsertWorks(ctx, inserts)
	}); err != nil {
		return err
	}
	r.report.Works += len(inserts)

	if err := r.flush(store.KindWorks, "replace", len(replaces), func() error {
		return r.p.store.ReplaceWorks(ctx, replaces)
	}); err != nil {
		return err
	}
	r.report.AmendedWorks += len(replaces)
	return nil
}

// work queues a new work (new-works group) or an amendment of a stored
// one (revised-works group).
func (r *run) work(ctx context.Context, g document.Group, dw document.Work) *internalerr.TransactionError {
	key := model.WorkKey{SubmitterID: r.submitter, WorkNumber: dw.Number}
	stored, found, err := r.p.resolver.Work(ctx, key)
	if err != nil {
		return r.txErr(g, dw.Index, dw.Number, err)
	}

	if g.Kind == document.KindRevisedWorks {
		if !found {
			return r.txErr(g, dw.Index, dw.Number, errUnknownWork)
		}
		r.table.AddAmendment(model.NewWork(stored.ID, r.submitter, dw))
		return nil
	}

	if found || r.table.HasWork(key) {
		return r.txErr(g, dw.Index, dw.Number, errDuplicateWork)
	}
	r.table.AddWork(model.NewWork(r.p.ids.New(), r.submitter, dw))
	return nil
}

// flush writes one batch. Empty batches are not sent.
func (r *run) flush(kind store.Kind, op string, n int, write func() error) error {
	if n == 0 {
		return nil
	}
	err := write()
	recordBatch(string(kind), op, n, err)
	if err != nil {
		var se *internalerr.StoreError
		if !errors.As(err, &se) {
			err = &internalerr.StoreError{Kind: string(kind), Op: op, Count: n, Err: err}
		}
		r.logger.Error("commonworks.ingest.batch.failed", "kind", kind, "op", op, "count", n, "err", err)
		return err
	}
	r.logger.Debug("commonworks.ingest.batch.written", "kind", kind, "op", op, "count", n)
	return nil
}
