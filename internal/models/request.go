package models

import "time"

// RequestStatus captures the lifecycle of an incoming request.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusAnswered   RequestStatus = "answered"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:    {RequestStatusInProgress},
	RequestStatusInProgress: {RequestStatusAnswered, RequestStatusPending},
}

// Valid reports whether the status is a known lifecycle state.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusInProgress, RequestStatusAnswered:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
// in_progress -> pending is only used when a draft response is discarded.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, candidate := range requestTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Editable reports whether the request still accepts field and person changes.
func (s RequestStatus) Editable() bool {
	return s == RequestStatusPending || s == RequestStatusInProgress
}

// Request is an inquiry received from an external institution.
type Request struct {
	ID             string        `db:"id" json:"id"`
	TrackingNumber *string       `db:"tracking_number" json:"trackingNumber,omitempty"`
	ReceivedAt     time.Time     `db:"received_at" json:"receivedAt"`
	InstitutionID  string        `db:"institution_id" json:"institutionId"`
	UnitID         *string       `db:"unit_id" json:"unitId,omitempty"`
	AgentID        string        `db:"agent_id" json:"agentId"`
	CrimeTypeID    *string       `db:"crime_type_id" json:"crimeTypeId,omitempty"`
	OffendedParty  *string       `db:"offended_party" json:"offendedParty,omitempty"`
	Observations   *string       `db:"observations" json:"observations,omitempty"`
	Status         RequestStatus `db:"status" json:"status"`
	RegisteredBy   string        `db:"registered_by" json:"registeredBy"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`

	Persons []RequestedPerson `db:"-" json:"persons,omitempty"`
}

// RequestedPerson is a person the institution asks about.
type RequestedPerson struct {
	ID         string     `db:"id" json:"id"`
	RequestID  string     `db:"request_id" json:"requestId"`
	FirstName  string     `db:"first_name" json:"firstName"`
	LastName   string     `db:"last_name" json:"lastName"`
	NationalID string     `db:"national_id" json:"nationalId"`
	BirthDate  *time.Time `db:"birth_date" json:"birthDate,omitempty"`
	Position   int        `db:"position" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name.
func (p RequestedPerson) FullName() string {
	return joinName(p.FirstName, p.LastName)
}

// RequestSummary is a list row enriched with catalog names.
type RequestSummary struct {
	Request
	InstitutionName string  `db:"institution_name" json:"institutionName"`
	UnitName        *string `db:"unit_name" json:"unitName,omitempty"`
	CrimeTypeName   *string `db:"crime_type_name" json:"crimeTypeName,omitempty"`
	PersonCount     int     `db:"person_count" json:"personCount"`
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	Status   []RequestStatus
	Search   string
	Page     int
	PageSize int
}
