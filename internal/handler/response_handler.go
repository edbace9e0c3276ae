package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oficios-api/internal/dto"
	"github.com/noah-isme/oficios-api/internal/models"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
	"github.com/noah-isme/oficios-api/pkg/response"
)

type responseService interface {
	Create(ctx context.Context, requestID string, req dto.CreateResponseRequest, analystID string) (*models.Response, error)
	Get(ctx context.Context, id string) (*models.ResponseDetail, error)
	List(ctx context.Context, query dto.ResponseQuery) ([]models.ResponseSummary, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateResponseRequest, actorID string) (*models.Response, error)
	Finalize(ctx context.Context, id string, req dto.FinalizeResponseRequest, actorID string) (*models.Response, error)
	Send(ctx context.Context, id, actorID string) (*models.Response, error)
	Delete(ctx context.Context, id, actorID string) error
}

type letterService interface {
	Render(ctx context.Context, responseID string) (string, []byte, error)
}

// ResponseHandler exposes response lifecycle and letter endpoints.
type ResponseHandler struct {
	service responseService
	letters letterService
}

// NewResponseHandler builds a new handler.
func NewResponseHandler(service responseService, letters letterService) *ResponseHandler {
	return &ResponseHandler{service: service, letters: letters}
}

// Create godoc
// @Summary Open the draft response of a pending request
// @Tags Responses
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.CreateResponseRequest true "Response payload"
// @Success 201 {object} response.Envelope
// @Router /requests/{id}/responses [post]
func (h *ResponseHandler) Create(c *gin.Context) {
	analyst, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateResponseRequest
	if !bindJSON(c, &req, "invalid response payload") {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	created, err := h.service.Create(c.Request.Context(), id, req, analyst)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List responses
// @Tags Responses
// @Produce json
// @Param status query string false "Comma separated statuses (draft,signed,sent)"
// @Param search query string false "Search by response number or tracking number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /responses [get]
func (h *ResponseHandler) List(c *gin.Context) {
	query := dto.ResponseQuery{Search: strings.TrimSpace(c.Query("search"))}
	for _, status := range listParam(c, "status") {
		query.Status = append(query.Status, models.ResponseStatus(status))
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
// @Summary Get a response with its request and results
// @Tags Responses
// @Produce json
// @Param id path string true "Response ID"
// @Success 200 {object} response.Envelope
// @Router /responses/{id} [get]
func (h *ResponseHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Edit a draft response
// @Tags Responses
// @Accept json
// @Produce json
// @Param id path string true "Response ID"
// @Param payload body dto.UpdateResponseRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Router /responses/{id} [put]
func (h *ResponseHandler) Update(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.UpdateResponseRequest
	if !bindJSON(c, &req, "invalid response payload") {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	updated, err := h.service.Update(c.Request.Context(), id, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Finalize godoc
// @Summary Sign or send a draft response
// @Tags Responses
// @Accept json
// @Produce json
// @Param id path string true "Response ID"
// @Param payload body dto.FinalizeResponseRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /responses/{id}/finalize [post]
func (h *ResponseHandler) Finalize(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.FinalizeResponseRequest
	if !bindJSON(c, &req, "invalid finalize payload") {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	finalized, err := h.service.Finalize(c.Request.Context(), id, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, finalized, nil)
}

// Send godoc
// @Summary Mark a signed response as sent
// @Tags Responses
// @Produce json
// @Param id path string true "Response ID"
// @Success 200 {object} response.Envelope
// @Router /responses/{id}/send [post]
func (h *ResponseHandler) Send(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	sent, err := h.service.Send(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sent, nil)
}

// Delete godoc
// @Summary Discard a draft response
// @Tags Responses
// @Param id path string true "Response ID"
// @Success 204
// @Router /responses/{id} [delete]
func (h *ResponseHandler) Delete(c *gin.Context) {
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

// Letter godoc
// @Summary Render the response letter
// @Tags Responses
// @Produce application/pdf
// @Param id path string true "Response ID"
// @Success 200 {file} binary
// @Router /responses/{id}/pdf [get]
func (h *ResponseHandler) Letter(c *gin.Context) {
	if h.letters == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "letter renderer not configured"))
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	filename, data, err := h.letters.Render(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.PDF(c, filename, data)
}
