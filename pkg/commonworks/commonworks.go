// Package commonworks is the entry point for loading CWR documents into a
// store and reading the reconciled entities back.
package commonworks

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/cognicore/commonworks/pkg/commonworks/document"
	"github.com/cognicore/commonworks/pkg/commonworks/ingest"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
)

// Engine is the main facade: one store, one pipeline.
type Engine struct {
	store    store.Store
	pipeline *ingest.Pipeline
}

// Options configures an Engine.
type Options struct {
	Store      store.Store
	Logger     *slog.Logger
	Reset      bool
	GroupTypes document.GroupTypes
}

// New creates an Engine over opts.Store. The Engine owns the store from
// here on; Close releases it.
func New(opts Options) *Engine {
	return &Engine{
		store: opts.Store,
		pipeline: ingest.NewPipeline(opts.Store, ingest.Options{
			Reset:      opts.Reset,
			GroupTypes: opts.GroupTypes,
			Logger:     opts.Logger,
		}),
	}
}

// Close cleanly shuts down the store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store exposes the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Reset empties every collection.
func (e *Engine) Reset(ctx context.Context) error {
	return e.pipeline.Reset(ctx)
}

// Load ingests one encoded document.
func (e *Engine) Load(ctx context.Context, data []byte) (*ingest.Report, error) {
	return e.pipeline.Run(ctx, data)
}

// LoadReader ingests a document read from r.
func (e *Engine) LoadReader(ctx context.Context, r io.Reader) (*ingest.Report, error) {
	return e.pipeline.RunReader(ctx, r)
}

// LoadFile ingests the document at path.
func (e *Engine) LoadFile(ctx context.Context, path string) (*ingest.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return e.pipeline.RunReader(ctx, f)
}

// Agreements lists agreements ordered by key.
func (e *Engine) Agreements(ctx context.Context, page store.Page) ([]model.Agreement, error) {
	return e.store.ListAgreements(ctx, page)
}

// Parties lists interested parties ordered by key.
func (e *Engine) Parties(ctx context.Context, page store.Page) ([]model.InterestedParty, error) {
	return e.store.ListParties(ctx, page)
}

// Works lists works ordered by key.
func (e *Engine) Works(ctx context.Context, page store.Page) ([]model.Work, error) {
	return e.store.ListWorks(ctx, page)
}

// AgreementsByParty returns the agreements a party takes part in.
func (e *Engine) AgreementsByParty(ctx context.Context, key model.PartyKey) ([]model.Agreement, error) {
	return e.store.AgreementsByParty(ctx, key)
}

// WorksBySubmitter returns every work registered by a submitter.
func (e *Engine) WorksBySubmitter(ctx context.Context, submitterID string) ([]model.Work, error) {
	return e.store.WorksBySubmitter(ctx, submitterID)
}

// Counts is the size of each collection.
type Counts struct {
	Agreements int `json:"agreements"`
	Parties    int `json:"interested_parties"`
	Works      int `json:"works"`
}

// Counts returns the size of every collection.
func (e *Engine) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	for kind, dst := range map[store.Kind]*int{
		store.KindAgreements: &c.Agreements,
		store.KindParties:    &c.Parties,
		store.KindWorks:      &c.Works,
	} {
		n, err := e.store.Count(ctx, kind)
		if err != nil {
			return Counts{}, err
		}
		*dst = n
	}
	return c, nil
}
