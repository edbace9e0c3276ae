package dto

import "github.com/noah-isme/oficios-api/internal/models"

// CreateResponseRequest starts the response for a request.
type CreateResponseRequest struct {
	ReviewerID   string `json:"reviewerId" validate:"required,uuid"`
	ResponseDate string `json:"responseDate" validate:"required,datetime=2006-01-02"`
	Content      string `json:"content"`
}

// UpdateResponseRequest edits a draft response.
type UpdateResponseRequest struct {
	ReviewerID   string `json:"reviewerId" validate:"required,uuid"`
	ResponseDate string `json:"responseDate" validate:"required,datetime=2006-01-02"`
	Content      string `json:"content"`
}

// FinalizeResponseRequest moves a draft to a finalized state.
type FinalizeResponseRequest struct {
	Status models.ResponseStatus `json:"status" validate:"required"`
}

// ResponseQuery mirrors supported listing filters.
type ResponseQuery struct {
	Status   []models.ResponseStatus
	Search   string
	Page     int
	PageSize int
}
