package document

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Raw is the decoded wire document before rejection filtering.
// Transactions stay undecoded until their group type is known.
type Raw struct {
	Header     *RawHeader     `json:"_header"`
	GroupTypes map[string]int `json:"_group_types"`
	Groups     []*RawGroup    `json:"_groups"`
}

// RawHeader carries the submitter identity for every natural key.
type RawHeader struct {
	SenderID     flexString `json:"sender_id"`
	SenderName   flexString `json:"sender_name"`
	SenderType   flexString `json:"sender_type"`
	CreationDate flexString `json:"creation_date"`
}

// RawGroup is one typed batch of transactions.
type RawGroup struct {
	Rejected     bool              `json:"_rejected"`
	Transactions []json.RawMessage `json:"_transactions"`
}

func (g *RawGroup) IsRejected() bool { return g != nil && g.Rejected }

type rawTxHeader struct {
	Rejected bool `json:"_rejected"`
}

type rawAgreement struct {
	Rejected                  bool                 `json:"_rejected"`
	Number                    flexString           `json:"submitter_agreement_number"`
	Type                      flexString           `json:"agreement_type"`
	StartDate                 flexString           `json:"agreement_start_date"`
	EndDate                   flexString           `json:"agreement_end_date"`
	RetentionEndDate          flexString           `json:"retention_end_date"`
	PriorRoyaltyStatus        flexString           `json:"prior_royalty_status"`
	PriorRoyaltyStartDate     flexString           `json:"prior_royalty_start_date"`
	PostTermCollectionStatus  flexString           `json:"post_term_collection_status"`
	PostTermCollectionEndDate flexString           `json:"post_term_collection_end_date"`
	SignatureDate             flexString           `json:"date_of_signature"`
	WorksNumber               flexString           `json:"number_of_works"`
	SalesManufactureClause    flexString           `json:"sales_manufacture_clause"`
	SharesChange              flexBool             `json:"shares_change"`
	AdvanceGiven              flexBool             `json:"advance_given"`
	SocietyAssignedNumber     flexString           `json:"society_assigned_agreement_number"`
	Territories               []*rawTerritory      `json:"_territories"`
	Parties                   map[string]*rawParty `json:"_interested_parties"`
}

func (a *rawAgreement) IsRejected() bool { return a != nil && a.Rejected }

type rawTerritory struct {
	Rejected  bool       `json:"_rejected"`
	TISCode   flexString `json:"tis_numeric_code"`
	Inclusion flexString `json:"inclusion_exclusion_indicator"`
}

func (t *rawTerritory) IsRejected() bool { return t != nil && t.Rejected }

type rawShares struct {
	PRSociety flexString `json:"pr_society"`
	PRShare   flexFloat  `json:"pr_share"`
	MRSociety flexString `json:"mr_society"`
	MRShare   flexFloat  `json:"mr_share"`
	SRSociety flexString `json:"sr_society"`
	SRShare   flexFloat  `json:"sr_share"`
}

type rawParty struct {
	Rejected        bool       `json:"_rejected"`
	ID              flexString `json:"id"`
	LastName        flexString `json:"last_name"`
	WriterFirstName flexString `json:"writer_first_name"`
	IPIName         flexString `json:"ipi_name"`
	IPIBase         flexString `json:"ipi_base"`
	RoleCode        flexString `json:"agreement_role_code"`
	rawShares
}

func (p *rawParty) IsRejected() bool { return p != nil && p.Rejected }

type rawWork struct {
	Rejected              bool                     `json:"_rejected"`
	Number                flexString               `json:"submitter_work_number"`
	Title                 flexString               `json:"title"`
	ISWC                  flexString               `json:"iswc"`
	LanguageCode          flexString               `json:"language_code"`
	Duration              flexString               `json:"duration"`
	RecordedIndicator     flexString               `json:"recorded_indicator"`
	VersionType           flexString               `json:"version_type"`
	DistributionCategory  flexString               `json:"musical_work_distribution_category"`
	TextMusicRelationship flexString               `json:"text_music_relationship"`
	CompositeType         flexString               `json:"composite_type"`
	CompositeCount        flexString               `json:"composite_component_count"`
	ExcerptType           flexString               `json:"excerpt_type"`
	MusicArrangement      flexString               `json:"music_arrangement"`
	LyricAdaptation       flexString               `json:"lyric_adaptation"`
	WorkType              flexString               `json:"cwr_work_type"`
	GrandRights           flexBool                 `json:"grand_rights_indicator"`
	PriorityFlag          flexString               `json:"priority_flag"`
	Publishers            map[string]*rawPublisher `json:"_publishers"`
	EntireWorkTitle       *rawTitleBlock           `json:"_entire_work_title"`
	RecordingDetails      *rawRecording            `json:"_recording_details"`
	VersionOriginalTitle  *rawTitleBlock           `json:"_version_original_title"`
	WorkOrigin            *rawWorkOrigin           `json:"_work_origin"`
}

func (w *rawWork) IsRejected() bool { return w != nil && w.Rejected }

type rawPublisher struct {
	Rejected          bool       `json:"_rejected"`
	Sequence          flexString `json:"sequence"`
	InterestedPartyID flexString `json:"interested_party_id"`
	AgreementNumber   flexString `json:"agreement_number"`
	Name              flexString `json:"name"`
	Type              flexString `json:"type"`
	rawShares
}

func (p *rawPublisher) IsRejected() bool { return p != nil && p.Rejected }

type rawTitleBlock struct {
	Rejected           bool       `json:"_rejected"`
	Title              flexString `json:"title"`
	ISWC               flexString `json:"iswc"`
	LanguageCode       flexString `json:"language_code"`
	WriterOneLastName  flexString `json:"writer_1_last_name"`
	WriterOneFirstName flexString `json:"writer_1_first_name"`
	Source             flexString `json:"source"`
}

func (b *rawTitleBlock) IsRejected() bool { return b != nil && b.Rejected }

type rawRecording struct {
	Rejected              bool       `json:"_rejected"`
	FirstReleaseDate      flexString `json:"first_release_date"`
	FirstReleaseDuration  flexString `json:"first_release_duration"`
	FirstAlbumTitle       flexString `json:"first_album_title"`
	FirstAlbumLabel       flexString `json:"first_album_label"`
	FirstReleaseCatalogID flexString `json:"first_release_catalog_id"`
	EAN                   flexString `json:"ean"`
	ISRC                  flexString `json:"isrc"`
	RecordingFormat       flexString `json:"recording_format"`
	RecordingTechnique    flexString `json:"recording_technique"`
	MediaType             flexString `json:"media_type"`
}

func (r *rawRecording) IsRejected() bool { return r != nil && r.Rejected }

type rawWorkOrigin struct {
	Rejected         bool       `json:"_rejected"`
	IntendedPurpose  flexString `json:"intended_purpose"`
	ProductionTitle  flexString `json:"production_title"`
	CDIdentifier     flexString `json:"cd_identifier"`
	CutNumber        flexString `json:"cut_number"`
	LibraryName      flexString `json:"library"`
	BLTVR            flexString `json:"bltvr"`
	ProductionNumber flexString `json:"production_number"`
	EpisodeTitle     flexString `json:"episode_title"`
	EpisodeNumber    flexString `json:"episode_number"`
	Year             flexString `json:"year_of_production"`
}

func (o *rawWorkOrigin) IsRejected() bool { return o != nil && o.Rejected }

// flexString accepts JSON strings and numbers. CWR encoders emit numeric
// identifiers either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid number %q", s)
	}
	*f = flexFloat(v)
	return nil
}

type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.ToUpper(strings.Trim(string(b), `"`)) {
	case "TRUE", "Y", "T", "1":
		*f = true
	case "FALSE", "N", "F", "0", "", "NULL", "U":
		*f = false
	default:
		return fmt.Errorf("invalid flag %s", b)
	}
	return nil
}
