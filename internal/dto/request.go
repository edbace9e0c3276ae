package dto

import "github.com/noah-isme/oficios-api/internal/models"

// RequestedPersonInput describes one person named in a request.
// ID is set when an existing person is kept during an edit.
type RequestedPersonInput struct {
	ID         string `json:"id" validate:"omitempty,uuid"`
	FirstName  string `json:"firstName" validate:"notblank,max=255"`
	LastName   string `json:"lastName" validate:"notblank,max=255"`
	NationalID string `json:"nationalId" validate:"notblank,max=20"`
	BirthDate  string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
}

// UpsertRequestRequest is the payload to file or edit a request.
type UpsertRequestRequest struct {
	TrackingNumber string                 `json:"trackingNumber" validate:"max=100"`
	ReceivedAt     string                 `json:"receivedAt" validate:"required,datetime=2006-01-02"`
	InstitutionID  string                 `json:"institutionId" validate:"required,uuid"`
	UnitID         string                 `json:"unitId" validate:"omitempty,uuid"`
	AgentID        string                 `json:"agentId" validate:"required,uuid"`
	CrimeTypeID    string                 `json:"crimeTypeId" validate:"omitempty,uuid"`
	OffendedParty  string                 `json:"offendedParty" validate:"max=255"`
	Observations   string                 `json:"observations"`
	Persons        []RequestedPersonInput `json:"persons" validate:"required,min=1,dive"`
}

// RequestQuery mirrors supported listing filters.
type RequestQuery struct {
	Status   []models.RequestStatus
	Search   string
	Page     int
	PageSize int
}
