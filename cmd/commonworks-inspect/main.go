package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/cognicore/commonworks/internal/ui"
	"github.com/cognicore/commonworks/pkg/commonworks"
	"github.com/cognicore/commonworks/pkg/commonworks/config"
	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
)

const usage = `Usage: commonworks-inspect [options] COMMAND [ARG]

Commands:
  counts                   Size of every collection
  agreements               List agreements
  parties                  List interested parties
  works                    List works
  party SUBMITTER/PARTY    Agreements an interested party takes part in
  submitter SUBMITTER      Works registered by a submitter

Options:
`

func main() {
	var (
		configPath = flag.StringP("config", "c", "", "YAML config file (optional)")
		dbPath     = flag.String("db", "", "SQLite database path")
		dsn        = flag.String("dsn", "", "Postgres connection string")
		offset     = flag.Int("offset", 0, "Skip this many entries")
		limit      = flag.Int("limit", store.DefaultPageLimit, "Return at most this many entries")
		jsonOut    = flag.Bool("json", false, "Print entities as JSON")
		noColor    = flag.Bool("no-color", false, "Disable colored output")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	ui.InitColors(*noColor)
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal("Failed to load configuration: ", err)
		}
	}
	switch {
	case *dbPath != "":
		cfg.Store = config.Store{Driver: config.DriverSQLite, Path: *dbPath}
	case *dsn != "":
		cfg.Store = config.Store{Driver: config.DriverPostgres, DSN: *dsn}
	}
	if cfg.Store.Driver == config.DriverMemory {
		log.Fatal("--db, --dsn or a config file with a persistent store is required")
	}

	ctx := context.Background()
	st, err := config.OpenStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal("Failed to open store: ", err)
	}
	engine := commonworks.New(commonworks.Options{Store: st})
	defer engine.Close()

	in := inspector{engine: engine, out: os.Stdout, json: *jsonOut}
	page := store.Page{Offset: *offset, Limit: *limit}
	if err := in.run(ctx, flag.Args(), page); err != nil {
		ui.Errorf(os.Stderr, "%v", err)
		engine.Close()
		os.Exit(1)
	}
}

type inspector struct {
	engine *commonworks.Engine
	out    io.Writer
	json   bool
}

func (in inspector) run(ctx context.Context, args []string, page store.Page) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "counts":
		c, err := in.engine.Counts(ctx)
		if err != nil {
			return err
		}
		if in.json {
			return in.emit(c)
		}
		ui.Header(in.out, "Collections")
		ui.Row(in.out, 20, string(store.KindAgreements), c.Agreements)
		ui.Row(in.out, 20, string(store.KindParties), c.Parties)
		ui.Row(in.out, 20, string(store.KindWorks), c.Works)
		return nil

	case "agreements":
		ags, err := in.engine.Agreements(ctx, page)
		if err != nil {
			return err
		}
		return in.agreements("Agreements", ags)

	case "parties":
		ps, err := in.engine.Parties(ctx, page)
		if err != nil {
			return err
		}
		return in.parties(ps)

	case "works":
		ws, err := in.engine.Works(ctx, page)
		if err != nil {
			return err
		}
		return in.works("Works", ws)

	case "party":
		if len(rest) != 1 {
			return fmt.Errorf("%w: party needs SUBMITTER/PARTY", internalerr.ErrInvalidInput)
		}
		key, err := parsePartyKey(rest[0])
		if err != nil {
			return err
		}
		ags, err := in.engine.AgreementsByParty(ctx, key)
		if err != nil {
			return err
		}
		return in.agreements("Agreements of "+key.String(), ags)

	case "submitter":
		if len(rest) != 1 {
			return fmt.Errorf("%w: submitter needs SUBMITTER", internalerr.ErrInvalidInput)
		}
		ws, err := in.engine.WorksBySubmitter(ctx, rest[0])
		if err != nil {
			return err
		}
		return in.works("Works of "+rest[0], ws)
	}
	return fmt.Errorf("%w: unknown command %q", internalerr.ErrInvalidInput, cmd)
}

func parsePartyKey(s string) (model.PartyKey, error) {
	sub, id, ok := strings.Cut(s, "/")
	if !ok || sub == "" || id == "" {
		return model.PartyKey{}, fmt.Errorf("%w: party key %q is not SUBMITTER/PARTY", internalerr.ErrInvalidInput, s)
	}
	return model.PartyKey{SubmitterID: sub, PartyID: id}, nil
}

func (in inspector) emit(v any) error {
	enc := json.NewEncoder(in.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (in inspector) agreements(title string, ags []model.Agreement) error {
	if in.json {
		return in.emit(ags)
	}
	ui.Header(in.out, fmt.Sprintf("%s (%d)", title, len(ags)))
	for _, a := range ags {
		fmt.Fprintf(in.out, "  %s %s %s parties=%d territories=%d\n",
			ui.Bold.Sprint(a.Key.String()), a.Type, ui.DimText(a.ID), len(a.Parties), len(a.Territories))
	}
	return nil
}

func (in inspector) parties(ps []model.InterestedParty) error {
	if in.json {
		return in.emit(ps)
	}
	ui.Header(in.out, fmt.Sprintf("Interested parties (%d)", len(ps)))
	for _, p := range ps {
		fmt.Fprintf(in.out, "  %s %s %s agreements=%d\n",
			ui.Bold.Sprint(p.Key.String()), p.LastName, ui.DimText(p.ID), len(p.Participations))
	}
	return nil
}

func (in inspector) works(title string, ws []model.Work) error {
	if in.json {
		return in.emit(ws)
	}
	ui.Header(in.out, fmt.Sprintf("%s (%d)", title, len(ws)))
	for _, w := range ws {
		fmt.Fprintf(in.out, "  %s %q %s publishers=%d\n",
			ui.Bold.Sprint(w.Key.String()), w.Title, ui.DimText(w.ID), len(w.Publishers))
	}
	return nil
}
