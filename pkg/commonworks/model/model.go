// Package model holds the persisted entities and their natural keys.
package model

import (
	"time"

	"github.com/cognicore/commonworks/pkg/commonworks/document"
)

type (
	Territory        = document.Territory
	Shares           = document.Shares
	Publisher        = document.Publisher
	TitleBlock       = document.TitleBlock
	RecordingDetails = document.RecordingDetails
	WorkOrigin       = document.WorkOrigin
)

// AgreementKey is the natural key of an agreement.
type AgreementKey struct {
	SubmitterID string `json:"submitter_id"`
	Number      string `json:"number"`
}

func (k AgreementKey) String() string { return k.SubmitterID + "/" + k.Number }

// PartyKey is the natural key of an interested party.
type PartyKey struct {
	SubmitterID string `json:"submitter_id"`
	PartyID     string `json:"party_id"`
}

func (k PartyKey) String() string { return k.SubmitterID + "/" + k.PartyID }

// WorkKey is the natural key of a work.
type WorkKey struct {
	SubmitterID string `json:"submitter_id"`
	WorkNumber  string `json:"work_number"`
}

func (k WorkKey) String() string { return k.SubmitterID + "/" + k.WorkNumber }

// PartyRef points from an agreement to an interested party.
type PartyRef struct {
	Key PartyKey `json:"key"`
	ID  string   `json:"id"`
}

// Agreement is a contract between a submitter and one or more parties.
type Agreement struct {
	ID                        string       `json:"id"`
	Key                       AgreementKey `json:"key"`
	Type                      string       `json:"type"`
	StartDate                 time.Time    `json:"start_date"`
	EndDate                   time.Time    `json:"end_date"`
	RetentionEndDate          time.Time    `json:"retention_end_date"`
	PriorRoyaltyStatus        string       `json:"prior_royalty_status,omitempty"`
	PriorRoyaltyStartDate     time.Time    `json:"prior_royalty_start_date"`
	PostTermCollectionStatus  string       `json:"post_term_collection_status,omitempty"`
	PostTermCollectionEndDate time.Time    `json:"post_term_collection_end_date"`
	SignatureDate             time.Time    `json:"signature_date"`
	WorksNumber               int          `json:"works_number"`
	SalesManufactureClause    string       `json:"sales_manufacture_clause,omitempty"`
	SharesChange              bool         `json:"shares_change"`
	AdvanceGiven              bool         `json:"advance_given"`
	SocietyAssignedNumber     string       `json:"society_assigned_number,omitempty"`
	Territories               []Territory  `json:"territories"`
	Parties                   []PartyRef   `json:"parties"`
}

// NewAgreement builds an agreement without parties from a clean transaction.
func NewAgreement(id, submitterID string, a document.Agreement) Agreement {
	return Agreement{
		ID:                        id,
		Key:                       AgreementKey{SubmitterID: submitterID, Number: a.Number},
		Type:                      a.Type,
		StartDate:                 a.StartDate,
		EndDate:                   a.EndDate,
		RetentionEndDate:          a.RetentionEndDate,
		PriorRoyaltyStatus:        a.PriorRoyaltyStatus,
		PriorRoyaltyStartDate:     a.PriorRoyaltyStartDate,
		PostTermCollectionStatus:  a.PostTermCollectionStatus,
		PostTermCollectionEndDate: a.PostTermCollectionEndDate,
		SignatureDate:             a.SignatureDate,
		WorksNumber:               a.WorksNumber,
		SalesManufactureClause:    a.SalesManufactureClause,
		SharesChange:              a.SharesChange,
		AdvanceGiven:              a.AdvanceGiven,
		SocietyAssignedNumber:     a.SocietyAssignedNumber,
		Territories:               append([]Territory(nil), a.Territories...),
	}
}

// HasParty reports whether the agreement already references key.
func (a *Agreement) HasParty(key PartyKey) bool {
	for _, p := range a.Parties {
		if p.Key == key {
			return true
		}
	}
	return false
}

// AddParty records ref unless a reference with the same key exists.
func (a *Agreement) AddParty(ref PartyRef) bool {
	if a.HasParty(ref.Key) {
		return false
	}
	a.Parties = append(a.Parties, ref)
	return true
}

// Clone returns a copy that shares no slices with a.
func (a Agreement) Clone() Agreement {
	a.Territories = append([]Territory(nil), a.Territories...)
	a.Parties = append([]PartyRef(nil), a.Parties...)
	return a
}

// Participation is a party's role and shares in one agreement.
type Participation struct {
	AgreementKey AgreementKey `json:"agreement_key"`
	AgreementID  string       `json:"agreement_id"`
	RoleCode     string       `json:"role_code,omitempty"`
	Shares
}

// ParticipationOf reads the participation detail of p in the agreement.
func ParticipationOf(agreement *Agreement, p document.Party) Participation {
	return Participation{
		AgreementKey: agreement.Key,
		AgreementID:  agreement.ID,
		RoleCode:     p.RoleCode,
		Shares:       p.Shares,
	}
}

// InterestedParty is a writer or publisher named in agreements.
type InterestedParty struct {
	ID              string          `json:"id"`
	Key             PartyKey        `json:"key"`
	LastName        string          `json:"last_name"`
	WriterFirstName string          `json:"writer_first_name,omitempty"`
	IPIName         string          `json:"ipi_name,omitempty"`
	IPIBase         string          `json:"ipi_base,omitempty"`
	RoleCode        string          `json:"role_code,omitempty"`
	Participations  []Participation `json:"participations"`
}

// NewParty builds a party with no participations.
func NewParty(id, submitterID string, p document.Party) InterestedParty {
	return InterestedParty{
		ID:              id,
		Key:             PartyKey{SubmitterID: submitterID, PartyID: p.ID},
		LastName:        p.LastName,
		WriterFirstName: p.WriterFirstName,
		IPIName:         p.IPIName,
		IPIBase:         p.IPIBase,
		RoleCode:        p.RoleCode,
	}
}

// Participation returns the participation for key, if any.
func (p *InterestedParty) Participation(key AgreementKey) (Participation, bool) {
	for _, pt := range p.Participations {
		if pt.AgreementKey == key {
			return pt, true
		}
	}
	return Participation{}, false
}

// AddParticipation keeps at most one participation per agreement. The
// first one recorded wins.
func (p *InterestedParty) AddParticipation(pt Participation) bool {
	if _, ok := p.Participation(pt.AgreementKey); ok {
		return false
	}
	p.Participations = append(p.Participations, pt)
	return true
}

func (p InterestedParty) Clone() InterestedParty {
	p.Participations = append([]Participation(nil), p.Participations...)
	return p
}

// Work is a musical work with its controlled publishers.
type Work struct {
	ID                    string            `json:"id"`
	Key                   WorkKey           `json:"key"`
	Title                 string            `json:"title"`
	ISWC                  string            `json:"iswc,omitempty"`
	LanguageCode          string            `json:"language_code,omitempty"`
	Duration              time.Duration     `json:"duration"`
	RecordedIndicator     string            `json:"recorded_indicator,omitempty"`
	VersionType           string            `json:"version_type,omitempty"`
	DistributionCategory  string            `json:"distribution_category,omitempty"`
	TextMusicRelationship string            `json:"text_music_relationship,omitempty"`
	CompositeType         string            `json:"composite_type,omitempty"`
	CompositeCount        int               `json:"composite_count,omitempty"`
	ExcerptType           string            `json:"excerpt_type,omitempty"`
	MusicArrangement      string            `json:"music_arrangement,omitempty"`
	LyricAdaptation       string            `json:"lyric_adaptation,omitempty"`
	WorkType              string            `json:"work_type,omitempty"`
	GrandRights           bool              `json:"grand_rights"`
	PriorityFlag          string            `json:"priority_flag,omitempty"`
	Publishers            []Publisher       `json:"publishers"`
	EntireWorkTitle       *TitleBlock       `json:"entire_work_title,omitempty"`
	RecordingDetails      *RecordingDetails `json:"recording_details,omitempty"`
	VersionOriginalTitle  *TitleBlock       `json:"version_original_title,omitempty"`
	WorkOrigin            *WorkOrigin       `json:"work_origin,omitempty"`
}

// NewWork builds a work from a clean transaction.
func NewWork(id, submitterID string, w document.Work) Work {
	out := Work{
		ID:                    id,
		Key:                   WorkKey{SubmitterID: submitterID, WorkNumber: w.Number},
		Title:                 w.Title,
		ISWC:                  w.ISWC,
		LanguageCode:          w.LanguageCode,
		Duration:              w.Duration,
		RecordedIndicator:     w.RecordedIndicator,
		VersionType:           w.VersionType,
		DistributionCategory:  w.DistributionCategory,
		TextMusicRelationship: w.TextMusicRelationship,
		CompositeType:         w.CompositeType,
		CompositeCount:        w.CompositeCount,
		ExcerptType:           w.ExcerptType,
		MusicArrangement:      w.MusicArrangement,
		LyricAdaptation:       w.LyricAdaptation,
		WorkType:              w.WorkType,
		GrandRights:           w.GrandRights,
		PriorityFlag:          w.PriorityFlag,
		Publishers:            append([]Publisher(nil), w.Publishers...),
		EntireWorkTitle:       w.EntireWorkTitle,
		RecordingDetails:      w.RecordingDetails,
		VersionOriginalTitle:  w.VersionOriginalTitle,
		WorkOrigin:            w.WorkOrigin,
	}
	return out.Clone()
}

// Clone returns a copy that shares no slices or blocks with w.
func (w Work) Clone() Work {
	w.Publishers = append([]Publisher(nil), w.Publishers...)
	w.EntireWorkTitle = clonePtr(w.EntireWorkTitle)
	w.RecordingDetails = clonePtr(w.RecordingDetails)
	w.VersionOriginalTitle = clonePtr(w.VersionOriginalTitle)
	w.WorkOrigin = clonePtr(w.WorkOrigin)
	return w
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
