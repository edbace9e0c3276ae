package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oficios-api/internal/dto"
	"github.com/noah-isme/oficios-api/internal/models"
	"github.com/noah-isme/oficios-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, req dto.UpsertRequestRequest, actorID string) (*models.Request, error)
	Get(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, query dto.RequestQuery) ([]models.RequestSummary, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpsertRequestRequest, actorID string) (*models.Request, error)
	Delete(ctx context.Context, id, actorID string) error
}

// RequestHandler exposes request lifecycle endpoints.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler builds a new handler.
func NewRequestHandler(service requestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// List godoc
// @Summary List requests
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses (pending,in_progress,answered)"
// @Param search query string false "Search by tracking number or institution"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	query := dto.RequestQuery{Search: strings.TrimSpace(c.Query("search"))}
	for _, status := range listParam(c, "status") {
		query.Status = append(query.Status, models.RequestStatus(status))
	}
	query.Page, query.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get request detail
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Create godoc
// @Summary File a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.UpsertRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.UpsertRequestRequest
	if !bindJSON(c, &req, "invalid request payload") {
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Update godoc
// @Summary Edit a request and its persons
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpsertRequestRequest true "Request payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [put]
func (h *RequestHandler) Update(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.UpsertRequestRequest
	if !bindJSON(c, &req, "invalid request payload") {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := h.service.Update(c.Request.Context(), id, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Delete godoc
// @Summary Delete an unanswered request
// @Tags Requests
// @Param id path string true "Request ID"
// @Success 204
// @Router /requests/{id} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
