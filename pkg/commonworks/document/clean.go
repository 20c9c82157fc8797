package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
)

// Rejectable is any wire node that can flag itself rejected.
type Rejectable interface {
	IsRejected() bool
}

type node interface {
	Rejectable
	comparable
}

// filterMap drops absent and rejected nodes and maps the rest. Rejected
// nodes are counted; absent ones are not. The first mapping error aborts.
func filterMap[N node, T any](nodes []N, rejected *int, fn func(i int, n N) (T, error)) ([]T, error) {
	var zero N
	out := make([]T, 0, len(nodes))
	for i, n := range nodes {
		if n == zero {
			continue
		}
		if n.IsRejected() {
			*rejected++
			continue
		}
		v, err := fn(i, n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// optional applies the same rule to a single optional block.
func optional[N node, T any](n N, rejected *int, fn func(N) (T, error)) (*T, error) {
	var zero N
	if n == zero {
		return nil, nil
	}
	if n.IsRejected() {
		*rejected++
		return nil, nil
	}
	v, err := fn(n)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// sortedEntries flattens a reference-keyed mapping in key order.
func sortedEntries[N any](m map[string]N) ([]string, []N) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]N, len(keys))
	for i, k := range keys {
		vals[i] = m[k]
	}
	return keys, vals
}

// Clean runs the rejection filter over the whole tree and maps what
// survives into typed values. Transactions that are malformed or miss a
// required field are dropped and returned as errors; the rest of the
// document is unaffected.
func Clean(raw *Raw, types GroupTypes) (*Document, []*internalerr.TransactionError) {
	doc := &Document{Header: cleanHeader(raw.Header)}
	c := &cleaner{stats: &doc.Rejected}

	names := groupNames(raw.GroupTypes, len(raw.Groups))
	for pos, g := range raw.Groups {
		if g == nil {
			continue
		}
		if g.IsRejected() {
			doc.Rejected.Groups++
			continue
		}
		name := names[pos]
		group := Group{Name: name, Kind: types.kindOf(name), Position: pos}
		switch group.Kind {
		case KindAgreements:
			group.Agreements = c.agreements(name, g.Transactions)
		case KindNewWorks, KindRevisedWorks:
			group.Works = c.works(name, g.Transactions)
		}
		doc.Groups = append(doc.Groups, group)
	}
	return doc, c.dropped
}

func cleanHeader(h *RawHeader) Header {
	out := Header{
		SenderID:   h.SenderID.String(),
		SenderName: h.SenderName.String(),
		SenderType: h.SenderType.String(),
	}
	if t, err := parseDate(h.CreationDate); err == nil {
		out.CreationDate = t
	}
	return out
}

// groupNames inverts the registry into position -> name. When two names
// share a position the smaller name wins.
func groupNames(registry map[string]int, n int) []string {
	names := make([]string, n)
	for name, pos := range registry {
		if pos < 0 || pos >= n {
			continue
		}
		if names[pos] == "" || name < names[pos] {
			names[pos] = name
		}
	}
	return names
}

type cleaner struct {
	stats   *FilterStats
	dropped []*internalerr.TransactionError
}

func (c *cleaner) drop(group string, index int, key string, err error) {
	c.dropped = append(c.dropped, &internalerr.TransactionError{Group: group, Index: index, Key: key, Err: err})
}

// admit decodes the rejection flag first so a rejected transaction is
// filtered even when the rest of it would not decode.
func (c *cleaner) admit(group string, index int, msg json.RawMessage, into Rejectable) bool {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	var hdr rawTxHeader
	if err := json.Unmarshal(trimmed, &hdr); err != nil {
		c.drop(group, index, "", fmt.Errorf("malformed transaction: %w", err))
		return false
	}
	if hdr.Rejected {
		c.stats.Transactions++
		return false
	}
	if err := json.Unmarshal(trimmed, into); err != nil {
		c.drop(group, index, "", fmt.Errorf("malformed transaction: %w", err))
		return false
	}
	return true
}

func (c *cleaner) agreements(group string, txs []json.RawMessage) []Agreement {
	var out []Agreement
	for i, msg := range txs {
		var ra rawAgreement
		if !c.admit(group, i, msg, &ra) {
			continue
		}
		a, err := c.agreement(&ra)
		if err != nil {
			c.drop(group, i, ra.Number.String(), err)
			continue
		}
		a.Index = i
		out = append(out, a)
	}
	return out
}

func (c *cleaner) works(group string, txs []json.RawMessage) []Work {
	var out []Work
	for i, msg := range txs {
		var rw rawWork
		if !c.admit(group, i, msg, &rw) {
			continue
		}
		w, err := c.work(&rw)
		if err != nil {
			c.drop(group, i, rw.Number.String(), err)
			continue
		}
		w.Index = i
		out = append(out, w)
	}
	return out
}

func (c *cleaner) agreement(ra *rawAgreement) (Agreement, error) {
	if ra.Number == "" {
		return Agreement{}, internalerr.MissingField("submitter_agreement_number")
	}
	if ra.Type == "" {
		return Agreement{}, internalerr.MissingField("agreement_type")
	}
	var d dates
	a := Agreement{
		Number:                    ra.Number.String(),
		Type:                      ra.Type.String(),
		StartDate:                 d.parse("agreement_start_date", ra.StartDate),
		EndDate:                   d.parse("agreement_end_date", ra.EndDate),
		RetentionEndDate:          d.parse("retention_end_date", ra.RetentionEndDate),
		PriorRoyaltyStatus:        ra.PriorRoyaltyStatus.String(),
		PriorRoyaltyStartDate:     d.parse("prior_royalty_start_date", ra.PriorRoyaltyStartDate),
		PostTermCollectionStatus:  ra.PostTermCollectionStatus.String(),
		PostTermCollectionEndDate: d.parse("post_term_collection_end_date", ra.PostTermCollectionEndDate),
		SignatureDate:             d.parse("date_of_signature", ra.SignatureDate),
		SalesManufactureClause:    ra.SalesManufactureClause.String(),
		SharesChange:              bool(ra.SharesChange),
		AdvanceGiven:              bool(ra.AdvanceGiven),
		SocietyAssignedNumber:     ra.SocietyAssignedNumber.String(),
	}
	if d.err != nil {
		return Agreement{}, d.err
	}
	if a.StartDate.IsZero() {
		return Agreement{}, internalerr.MissingField("agreement_start_date")
	}
	n, err := parseInt(ra.WorksNumber)
	if err != nil {
		return Agreement{}, fmt.Errorf("number_of_works: %w", err)
	}
	a.WorksNumber = n

	a.Territories, err = filterMap(ra.Territories, &c.stats.Territories, func(_ int, rt *rawTerritory) (Territory, error) {
		return territory(rt)
	})
	if err != nil {
		return Agreement{}, err
	}

	refs, parties := sortedEntries(ra.Parties)
	a.Parties, err = filterMap(parties, &c.stats.Parties, func(i int, rp *rawParty) (Party, error) {
		return party(refs[i], rp)
	})
	if err != nil {
		return Agreement{}, err
	}
	return a, nil
}

func territory(rt *rawTerritory) (Territory, error) {
	code, err := parseInt(rt.TISCode)
	if err != nil {
		return Territory{}, fmt.Errorf("tis_numeric_code: %w", err)
	}
	if code == 0 {
		return Territory{}, internalerr.MissingField("tis_numeric_code")
	}
	inc := strings.ToUpper(rt.Inclusion.String())
	switch inc {
	case "":
		inc = "I"
	case "I", "E":
	default:
		return Territory{}, fmt.Errorf("%w: inclusion_exclusion_indicator %q", internalerr.ErrInvalidInput, inc)
	}
	return Territory{TISCode: code, Inclusion: inc}, nil
}

func party(ref string, rp *rawParty) (Party, error) {
	if rp.ID == "" {
		return Party{}, fmt.Errorf("interested party %s: %w", ref, internalerr.MissingField("id"))
	}
	if rp.LastName == "" {
		return Party{}, fmt.Errorf("interested party %s: %w", ref, internalerr.MissingField("last_name"))
	}
	shares, err := parseShares(rp.rawShares)
	if err != nil {
		return Party{}, fmt.Errorf("interested party %s: %w", ref, err)
	}
	return Party{
		Ref:             ref,
		ID:              rp.ID.String(),
		LastName:        rp.LastName.String(),
		WriterFirstName: rp.WriterFirstName.String(),
		IPIName:         rp.IPIName.String(),
		IPIBase:         rp.IPIBase.String(),
		RoleCode:        rp.RoleCode.String(),
		Shares:          shares,
	}, nil
}

func (c *cleaner) work(rw *rawWork) (Work, error) {
	if rw.Number == "" {
		return Work{}, internalerr.MissingField("submitter_work_number")
	}
	if rw.Title == "" {
		return Work{}, internalerr.MissingField("title")
	}
	duration, err := parseDuration(rw.Duration)
	if err != nil {
		return Work{}, err
	}
	count, err := parseInt(rw.CompositeCount)
	if err != nil {
		return Work{}, fmt.Errorf("composite_component_count: %w", err)
	}
	w := Work{
		Number:                rw.Number.String(),
		Title:                 rw.Title.String(),
		ISWC:                  rw.ISWC.String(),
		LanguageCode:          rw.LanguageCode.String(),
		Duration:              duration,
		RecordedIndicator:     rw.RecordedIndicator.String(),
		VersionType:           rw.VersionType.String(),
		DistributionCategory:  rw.DistributionCategory.String(),
		TextMusicRelationship: rw.TextMusicRelationship.String(),
		CompositeType:         rw.CompositeType.String(),
		CompositeCount:        count,
		ExcerptType:           rw.ExcerptType.String(),
		MusicArrangement:      rw.MusicArrangement.String(),
		LyricAdaptation:       rw.LyricAdaptation.String(),
		WorkType:              rw.WorkType.String(),
		GrandRights:           bool(rw.GrandRights),
		PriorityFlag:          rw.PriorityFlag.String(),
	}

	refs, pubs := sortedEntries(rw.Publishers)
	w.Publishers, err = filterMap(pubs, &c.stats.Publishers, func(i int, rp *rawPublisher) (Publisher, error) {
		return publisher(refs[i], rp)
	})
	if err != nil {
		return Work{}, err
	}
	sort.SliceStable(w.Publishers, func(i, j int) bool {
		return w.Publishers[i].Sequence < w.Publishers[j].Sequence
	})

	if w.EntireWorkTitle, err = optional(rw.EntireWorkTitle, &c.stats.Blocks, titleBlock("entire_work_title")); err != nil {
		return Work{}, err
	}
	if w.RecordingDetails, err = optional(rw.RecordingDetails, &c.stats.Blocks, recording); err != nil {
		return Work{}, err
	}
	if w.VersionOriginalTitle, err = optional(rw.VersionOriginalTitle, &c.stats.Blocks, titleBlock("version_original_title")); err != nil {
		return Work{}, err
	}
	if w.WorkOrigin, err = optional(rw.WorkOrigin, &c.stats.Blocks, workOrigin); err != nil {
		return Work{}, err
	}
	return w, nil
}

func publisher(ref string, rp *rawPublisher) (Publisher, error) {
	if rp.InterestedPartyID == "" {
		return Publisher{}, fmt.Errorf("publisher %s: %w", ref, internalerr.MissingField("interested_party_id"))
	}
	seq, err := parseInt(rp.Sequence)
	if err != nil {
		return Publisher{}, fmt.Errorf("publisher %s: sequence: %w", ref, err)
	}
	shares, err := parseShares(rp.rawShares)
	if err != nil {
		return Publisher{}, fmt.Errorf("publisher %s: %w", ref, err)
	}
	return Publisher{
		Ref:               ref,
		Sequence:          seq,
		InterestedPartyID: rp.InterestedPartyID.String(),
		AgreementNumber:   rp.AgreementNumber.String(),
		Name:              rp.Name.String(),
		Type:              rp.Type.String(),
		Shares:            shares,
	}, nil
}

func titleBlock(field string) func(*rawTitleBlock) (TitleBlock, error) {
	return func(b *rawTitleBlock) (TitleBlock, error) {
		if b.Title == "" {
			return TitleBlock{}, fmt.Errorf("%s: %w", field, internalerr.MissingField("title"))
		}
		return TitleBlock{
			Title:              b.Title.String(),
			ISWC:               b.ISWC.String(),
			LanguageCode:       b.LanguageCode.String(),
			WriterOneLastName:  b.WriterOneLastName.String(),
			WriterOneFirstName: b.WriterOneFirstName.String(),
			Source:             b.Source.String(),
		}, nil
	}
}

func recording(r *rawRecording) (RecordingDetails, error) {
	var d dates
	released := d.parse("first_release_date", r.FirstReleaseDate)
	if d.err != nil {
		return RecordingDetails{}, fmt.Errorf("recording_details: %w", d.err)
	}
	dur, err := parseDuration(r.FirstReleaseDuration)
	if err != nil {
		return RecordingDetails{}, fmt.Errorf("recording_details: %w", err)
	}
	return RecordingDetails{
		FirstReleaseDate:      released,
		FirstReleaseDuration:  dur,
		FirstAlbumTitle:       r.FirstAlbumTitle.String(),
		FirstAlbumLabel:       r.FirstAlbumLabel.String(),
		FirstReleaseCatalogID: r.FirstReleaseCatalogID.String(),
		EAN:                   r.EAN.String(),
		ISRC:                  r.ISRC.String(),
		RecordingFormat:       r.RecordingFormat.String(),
		RecordingTechnique:    r.RecordingTechnique.String(),
		MediaType:             r.MediaType.String(),
	}, nil
}

func workOrigin(o *rawWorkOrigin) (WorkOrigin, error) {
	if o.IntendedPurpose == "" {
		return WorkOrigin{}, fmt.Errorf("work_origin: %w", internalerr.MissingField("intended_purpose"))
	}
	cut, err := parseInt(o.CutNumber)
	if err != nil {
		return WorkOrigin{}, fmt.Errorf("work_origin: cut_number: %w", err)
	}
	year, err := parseInt(o.Year)
	if err != nil {
		return WorkOrigin{}, fmt.Errorf("work_origin: year_of_production: %w", err)
	}
	return WorkOrigin{
		IntendedPurpose:  o.IntendedPurpose.String(),
		ProductionTitle:  o.ProductionTitle.String(),
		CDIdentifier:     o.CDIdentifier.String(),
		CutNumber:        cut,
		LibraryName:      o.LibraryName.String(),
		BLTVR:            o.BLTVR.String(),
		ProductionNumber: o.ProductionNumber.String(),
		EpisodeTitle:     o.EpisodeTitle.String(),
		EpisodeNumber:    o.EpisodeNumber.String(),
		Year:             year,
	}, nil
}

// dates keeps the first parse error so a run of date fields reads flat.
type dates struct {
	err error
}

func (d *dates) parse(field string, v flexString) (t time.Time) {
	if d.err != nil {
		return t
	}
	t, err := parseDate(v)
	if err != nil {
		d.err = fmt.Errorf("%s: %w", field, err)
	}
	return t
}
