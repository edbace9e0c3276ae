package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oficios-api/internal/dto"
	"github.com/noah-isme/oficios-api/internal/models"
	"github.com/noah-isme/oficios-api/pkg/response"
)

type crossReferenceService interface {
	Preview(ctx context.Context, req dto.PreviewRequest) ([]dto.PreviewResult, error)
	History(ctx context.Context, flaggedPersonID string) ([]models.FlaggedPersonHit, error)
}

// CrossReferenceHandler exposes registry lookups that persist nothing.
type CrossReferenceHandler struct {
	service crossReferenceService
}

// NewCrossReferenceHandler builds a new handler.
func NewCrossReferenceHandler(service crossReferenceService) *CrossReferenceHandler {
	return &CrossReferenceHandler{service: service}
}

// Preview godoc
// @Summary Check candidates against the registry
// @Tags CrossReferences
// @Accept json
// @Produce json
// @Param payload body dto.PreviewRequest true "Candidates"
// @Success 200 {object} response.Envelope
// @Router /cross-references/preview [post]
func (h *CrossReferenceHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if !bindJSON(c, &req, "invalid preview payload") {
		return
	}
	results, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// History godoc
// @Summary Recent matches of a flagged person
// @Tags CrossReferences
// @Produce json
// @Param id path string true "Flagged person ID"
// @Success 200 {object} response.Envelope
// @Router /flagged-persons/{id}/history [get]
func (h *CrossReferenceHandler) History(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	hits, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hits, nil)
}
