package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oficios-api/internal/models"
	"github.com/noah-isme/oficios-api/pkg/response"
)

type catalogService interface {
	UnitsByInstitution(ctx context.Context, institutionID string) ([]models.Unit, error)
	AgentsByUnit(ctx context.Context, unitID string) ([]models.AgentWithPosition, error)
}

// CatalogHandler serves the cascading selects of the request form.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler builds a new handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// Units godoc
// @Summary Active units of an institution
// @Tags Catalogs
// @Produce json
// @Param id path string true "Institution ID"
// @Success 200 {object} response.Envelope
// @Router /institutions/{id}/units [get]
func (h *CatalogHandler) Units(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	units, err := h.service.UnitsByInstitution(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, nil)
}

// Agents godoc
// @Summary Active agents of a unit
// @Tags Catalogs
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /units/{id}/agents [get]
func (h *CatalogHandler) Agents(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	agents, err := h.service.AgentsByUnit(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, agents, nil)
}
