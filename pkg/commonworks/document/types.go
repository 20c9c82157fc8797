package document

import "time"

// GroupKind selects the ingestion routine for a group.
type GroupKind int

const (
	KindUnknown GroupKind = iota
	KindAgreements
	KindNewWorks
	KindRevisedWorks
)

func (k GroupKind) String() string {
	switch k {
	case KindAgreements:
		return "agreements"
	case KindNewWorks:
		return "new_works"
	case KindRevisedWorks:
		return "revised_works"
	default:
		return "unknown"
	}
}

// GroupTypes names the group-type registry entries for each routine.
type GroupTypes struct {
	Agreements   string `yaml:"agreements"`
	NewWorks     string `yaml:"new_works"`
	RevisedWorks string `yaml:"revised_works"`
}

// DefaultGroupTypes returns the CWR transaction codes.
func DefaultGroupTypes() GroupTypes {
	return GroupTypes{Agreements: "AGR", NewWorks: "NWR", RevisedWorks: "REV"}
}

func (g GroupTypes) kindOf(name string) GroupKind {
	switch name {
	case "":
		return KindUnknown
	case g.Agreements:
		return KindAgreements
	case g.NewWorks:
		return KindNewWorks
	case g.RevisedWorks:
		return KindRevisedWorks
	}
	return KindUnknown
}

// Document is a clean tree: nothing in it was flagged rejected.
type Document struct {
	Header   Header
	Groups   []Group
	Rejected FilterStats
}

// Header identifies the submitter of the document.
type Header struct {
	SenderID     string
	SenderName   string
	SenderType   string
	CreationDate time.Time
}

// Group holds the surviving transactions of one group, in document order.
// Only the slice matching Kind is populated.
type Group struct {
	Name       string
	Kind       GroupKind
	Position   int
	Agreements []Agreement
	Works      []Work
}

// Agreement is one AGR transaction.
type Agreement struct {
	Index                     int
	Number                    string
	Type                      string
	StartDate                 time.Time
	EndDate                   time.Time
	RetentionEndDate          time.Time
	PriorRoyaltyStatus        string
	PriorRoyaltyStartDate     time.Time
	PostTermCollectionStatus  string
	PostTermCollectionEndDate time.Time
	SignatureDate             time.Time
	WorksNumber               int
	SalesManufactureClause    string
	SharesChange              bool
	AdvanceGiven              bool
	SocietyAssignedNumber     string
	Territories               []Territory
	Parties                   []Party
}

// Territory is a TIS territory entry.
type Territory struct {
	TISCode   int    `json:"tis_code"`
	Inclusion string `json:"inclusion"`
}

// Shares are society affiliations with percentage shares (0-100).
type Shares struct {
	PRSociety string  `json:"pr_society,omitempty"`
	PRShare   float64 `json:"pr_share"`
	MRSociety string  `json:"mr_society,omitempty"`
	MRShare   float64 `json:"mr_share"`
	SRSociety string  `json:"sr_society,omitempty"`
	SRShare   float64 `json:"sr_share"`
}

// Party is an interested party entry inside an agreement.
// Ref is the key the entry had in the transaction's party mapping.
type Party struct {
	Ref             string
	ID              string
	LastName        string
	WriterFirstName string
	IPIName         string
	IPIBase         string
	RoleCode        string
	Shares          Shares
}

// Work is one NWR or REV transaction.
type Work struct {
	Index                 int
	Number                string
	Title                 string
	ISWC                  string
	LanguageCode          string
	Duration              time.Duration
	RecordedIndicator     string
	VersionType           string
	DistributionCategory  string
	TextMusicRelationship string
	CompositeType         string
	CompositeCount        int
	ExcerptType           string
	MusicArrangement      string
	LyricAdaptation       string
	WorkType              string
	GrandRights           bool
	PriorityFlag          string
	Publishers            []Publisher
	EntireWorkTitle       *TitleBlock
	RecordingDetails      *RecordingDetails
	VersionOriginalTitle  *TitleBlock
	WorkOrigin            *WorkOrigin
}

// Publisher is a publisher controlled by the submitter on a work.
type Publisher struct {
	Ref               string `json:"ref"`
	Sequence          int    `json:"sequence"`
	InterestedPartyID string `json:"interested_party_id"`
	AgreementNumber   string `json:"agreement_number,omitempty"`
	Name              string `json:"name,omitempty"`
	Type              string `json:"type,omitempty"`
	Shares
}

// TitleBlock is the shape shared by the entire-work-title and
// version-original-title records.
type TitleBlock struct {
	Title              string `json:"title"`
	ISWC               string `json:"iswc,omitempty"`
	LanguageCode       string `json:"language_code,omitempty"`
	WriterOneLastName  string `json:"writer_1_last_name,omitempty"`
	WriterOneFirstName string `json:"writer_1_first_name,omitempty"`
	Source             string `json:"source,omitempty"`
}

// RecordingDetails describes the first commercial release.
type RecordingDetails struct {
	FirstReleaseDate      time.Time     `json:"first_release_date"`
	FirstReleaseDuration  time.Duration `json:"first_release_duration,omitempty"`
	FirstAlbumTitle       string        `json:"first_album_title,omitempty"`
	FirstAlbumLabel       string        `json:"first_album_label,omitempty"`
	FirstReleaseCatalogID string        `json:"first_release_catalog_id,omitempty"`
	EAN                   string        `json:"ean,omitempty"`
	ISRC                  string        `json:"isrc,omitempty"`
	RecordingFormat       string        `json:"recording_format,omitempty"`
	RecordingTechnique    string        `json:"recording_technique,omitempty"`
	MediaType             string        `json:"media_type,omitempty"`
}

// WorkOrigin describes the production a work was written for.
type WorkOrigin struct {
	IntendedPurpose  string `json:"intended_purpose"`
	ProductionTitle  string `json:"production_title,omitempty"`
	CDIdentifier     string `json:"cd_identifier,omitempty"`
	CutNumber        int    `json:"cut_number,omitempty"`
	LibraryName      string `json:"library,omitempty"`
	BLTVR            string `json:"bltvr,omitempty"`
	ProductionNumber string `json:"production_number,omitempty"`
	EpisodeTitle     string `json:"episode_title,omitempty"`
	EpisodeNumber    string `json:"episode_number,omitempty"`
	Year             int    `json:"year_of_production,omitempty"`
}

// FilterStats counts nodes removed because they were flagged rejected.
// Absent optional blocks are not counted.
type FilterStats struct {
	Groups       int `json:"groups"`
	Transactions int `json:"transactions"`
	Territories  int `json:"territories"`
	Parties      int `json:"parties"`
	Publishers   int `json:"publishers"`
	Blocks       int `json:"blocks"`
}

// Total is the number of rejected nodes at any level.
func (s FilterStats) Total() int {
	return s.Groups + s.Transactions + s.Territories + s.Parties + s.Publishers + s.Blocks
}
