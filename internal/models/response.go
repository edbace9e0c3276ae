package models

import "time"

// ResponseStatus captures the lifecycle of a response document.
type ResponseStatus string

const (
	ResponseStatusDraft  ResponseStatus = "draft"
	ResponseStatusSigned ResponseStatus = "signed"
	ResponseStatusSent   ResponseStatus = "sent"
)

var responseTransitions = map[ResponseStatus][]ResponseStatus{
	ResponseStatusDraft:  {ResponseStatusSigned, ResponseStatusSent},
	ResponseStatusSigned: {ResponseStatusSent},
}

// Valid reports whether the status is a known lifecycle state.
func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponseStatusDraft, ResponseStatusSigned, ResponseStatusSent:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s ResponseStatus) CanTransitionTo(next ResponseStatus) bool {
	for _, candidate := range responseTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Finalized reports whether the response has left the draft state.
func (s ResponseStatus) Finalized() bool {
	return s == ResponseStatusSigned || s == ResponseStatusSent
}

// Response is the unit's numbered reply to exactly one request.
type Response struct {
	ID           string         `db:"id" json:"id"`
	RequestID    string         `db:"request_id" json:"requestId"`
	Number       string         `db:"number" json:"number"`
	Correlative  int            `db:"correlative" json:"correlative"`
	Year         int            `db:"year" json:"year"`
	ResponseDate time.Time      `db:"response_date" json:"responseDate"`
	AnalystID    string         `db:"analyst_id" json:"analystId"`
	ReviewerID   string         `db:"reviewer_id" json:"reviewerId"`
	Content      *string        `db:"content" json:"content,omitempty"`
	Status       ResponseStatus `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`

	Results []CrossReferenceResult `db:"-" json:"results,omitempty"`
}

// RegistrySnapshot is the copy of a flagged person's sensitive fields taken
// when the response was created. It is never refreshed from the registry.
type RegistrySnapshot struct {
	CriminalGroup     *string `db:"snapshot_criminal_group" json:"criminalGroup,omitempty"`
	CriminalStructure *string `db:"snapshot_criminal_structure" json:"criminalStructure,omitempty"`
	Observations      *string `db:"snapshot_observations" json:"observations,omitempty"`
}

// SnapshotOf copies the sensitive fields of a flagged person.
func SnapshotOf(p FlaggedPerson) RegistrySnapshot {
	return RegistrySnapshot{
		CriminalGroup:     copyString(p.CriminalGroup),
		CriminalStructure: copyString(p.CriminalStructure),
		Observations:      copyString(p.Observations),
	}
}

// Empty reports whether the snapshot holds no data.
func (s RegistrySnapshot) Empty() bool {
	return s.CriminalGroup == nil && s.CriminalStructure == nil && s.Observations == nil
}

// CrossReferenceResult records whether one requested person was in the registry.
type CrossReferenceResult struct {
	ID                string           `db:"id" json:"id"`
	ResponseID        string           `db:"response_id" json:"responseId"`
	RequestedPersonID string           `db:"requested_person_id" json:"requestedPersonId"`
	FlaggedPersonID   *string          `db:"flagged_person_id" json:"flaggedPersonId,omitempty"`
	Found             bool             `db:"found" json:"found"`
	Snapshot          RegistrySnapshot `db:"-" json:"snapshot"`
	Position          int              `db:"position" json:"-"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
}

// ResponseSummary is a list row enriched with request data.
type ResponseSummary struct {
	Response
	TrackingNumber  *string `db:"tracking_number" json:"trackingNumber,omitempty"`
	InstitutionName string  `db:"institution_name" json:"institutionName"`
	AnalystName     string  `db:"analyst_name" json:"analystName"`
	ReviewerName    string  `db:"reviewer_name" json:"reviewerName"`
}

// ResponseFilter constrains listing queries.
type ResponseFilter struct {
	Status   []ResponseStatus
	Search   string
	Page     int
	PageSize int
}

// ResolvedResult pairs a stored result with the requested person it belongs to.
type ResolvedResult struct {
	CrossReferenceResult
	Person *RequestedPerson `json:"person"`
}

// ResponseDetail is a fully hydrated response, as consumed by the letter renderer.
type ResponseDetail struct {
	Response    Response         `json:"response"`
	Request     Request          `json:"request"`
	Institution *Institution     `json:"institution"`
	Unit        *Unit            `json:"unit,omitempty"`
	Agent       *Agent           `json:"agent"`
	Position    *Position        `json:"position"`
	CrimeType   *CrimeType       `json:"crimeType,omitempty"`
	Analyst     *User            `json:"analyst"`
	Reviewer    *User            `json:"reviewer"`
	Results     []ResolvedResult `json:"results"`
}

// FlaggedPersonHit is a past match of a flagged person in a response.
type FlaggedPersonHit struct {
	ResultID        string         `db:"result_id" json:"resultId"`
	ResponseID      string         `db:"response_id" json:"responseId"`
	ResponseNumber  string         `db:"response_number" json:"responseNumber"`
	ResponseStatus  ResponseStatus `db:"response_status" json:"responseStatus"`
	InstitutionName string         `db:"institution_name" json:"institutionName"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
