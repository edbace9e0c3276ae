package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/oficios-api/internal/dto"
	"github.com/noah-isme/oficios-api/internal/models"
	"github.com/noah-isme/oficios-api/internal/repository"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

// ResponseService manages numbered responses and their request linkage.
type ResponseService struct {
	uow       UnitOfWork
	reads     Stores
	crossref  *CrossReferenceService
	allocator *SequenceAllocator
	validator *validator.Validate
	logger    *zap.Logger
	cache     cacheInvalidator
	metrics   lifecycleRecorder
	now       func() time.Time
}

// ResponseServiceParams groups constructor dependencies.
type ResponseServiceParams struct {
	UnitOfWork   UnitOfWork
	Reads        Stores
	CrossRef     *CrossReferenceService
	NumberPrefix string
	Validator    *validator.Validate
	Logger       *zap.Logger
	Cache        cacheInvalidator
	Metrics      lifecycleRecorder
	Clock        func() time.Time
}

// NewResponseService constructs the service.
func NewResponseService(params ResponseServiceParams) *ResponseService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	crossref := params.CrossRef
	if crossref == nil {
		crossref = NewCrossReferenceService(params.Reads.Registry, validate, logger)
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ResponseService{
		uow:       params.UnitOfWork,
		reads:     params.Reads,
		crossref:  crossref,
		allocator: NewSequenceAllocator(params.NumberPrefix),
		validator: validate,
		logger:    logger,
		cache:     params.Cache,
		metrics:   params.Metrics,
		now:       clock,
	}
}

// Create opens the draft response of a pending request. Allocation of the
// correlative, the response row, one cross-reference result per requested
// person and the request's move to in_progress commit together or not at all.
func (s *ResponseService) Create(ctx context.Context, requestID string, req dto.CreateResponseRequest, analystID string) (*models.Response, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid response payload")
	}
	if analystID == "" {
		return nil, appErrors.WithField("analystId", "is required")
	}
	responseDate, err := parseDate(req.ResponseDate, "responseDate")
	if err != nil {
		return nil, err
	}

	var created models.Response
	err = s.run(ctx, "response_create", func(ctx context.Context, stores Stores) error {
		request, err := stores.Requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return storeError(err, "request not found", "failed to load request")
		}
		if request.Status != models.RequestStatusPending {
			return appErrors.Clone(appErrors.ErrConflict, "request already has a response")
		}
		if _, err := stores.Responses.GetByRequestID(ctx, requestID); err == nil {
			return appErrors.Clone(appErrors.ErrConflict, "request already has a response")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return storeError(err, "", "failed to load response")
		}
		if err := checkUser(ctx, stores.Catalog, analystID, "analystId"); err != nil {
			return err
		}
		if err := checkUser(ctx, stores.Catalog, req.ReviewerID, "reviewerId"); err != nil {
			return err
		}
		persons, err := stores.Requests.ListPersons(ctx, requestID)
		if err != nil {
			return storeError(err, "", "failed to load requested persons")
		}
		if len(persons) == 0 {
			return appErrors.Clone(appErrors.ErrInvalidState, "request has no requested persons")
		}

		year := s.now().Year()
		correlative, err := s.allocator.Next(ctx, stores.Sequences, year)
		if err != nil {
			return err
		}
		created = models.Response{
			RequestID:    requestID,
			Number:       s.allocator.Number(correlative, year),
			Correlative:  correlative,
			Year:         year,
			ResponseDate: responseDate,
			AnalystID:    analystID,
			ReviewerID:   req.ReviewerID,
			Content:      optionalString(req.Content),
			Status:       models.ResponseStatusDraft,
		}
		if err := stores.Responses.Create(ctx, &created); err != nil {
			return responseWriteError(err)
		}

		results, err := s.crossref.Resolve(ctx, stores.Registry, persons)
		if err != nil {
			return err
		}
		for i := range results {
			results[i].ResponseID = created.ID
		}
		if err := stores.Responses.InsertResults(ctx, results); err != nil {
			return appErrors.Persistence(err, "failed to store cross reference results")
		}
		created.Results = results

		if err := stores.Requests.UpdateStatus(ctx, requestID, models.RequestStatusPending, models.RequestStatusInProgress); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrConflict, "request already has a response")
			}
			return appErrors.Persistence(err, "failed to update request status")
		}
		if err := writeAudit(ctx, stores.Audit, analystID, models.AuditActionCorrelativeAllocated, "response", created.ID, map[string]interface{}{
			"year":        year,
			"correlative": correlative,
			"number":      created.Number,
		}); err != nil {
			return err
		}
		return writeAudit(ctx, stores.Audit, analystID, models.AuditActionResponseCreate, "response", created.ID, map[string]interface{}{
			"requestId": requestID,
			"persons":   len(results),
			"found":     countFound(results),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("response created",
		zap.String("response_id", created.ID),
		zap.String("request_id", requestID),
		zap.String("number", created.Number),
		zap.Int("correlative", created.Correlative),
		zap.Int("found", countFound(created.Results)),
	)
	s.afterWrite(ctx, string(models.ResponseStatusDraft))
	return &created, nil
}

// Get returns a response hydrated with its request, catalog relations and
// results. Missing relations are left nil.
func (s *ResponseService) Get(ctx context.Context, id string) (*models.ResponseDetail, error) {
	return loadDetail(ctx, s.reads, id)
}

// List returns responses that match the query.
func (s *ResponseService) List(ctx context.Context, query dto.ResponseQuery) ([]models.ResponseSummary, *models.Pagination, error) {
	for _, status := range query.Status {
		if !status.Valid() {
			return nil, nil, appErrors.WithField("status", "is not a response status")
		}
	}
	items, total, err := s.reads.Responses.List(ctx, models.ResponseFilter{
		Status:   query.Status,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, nil, storeError(err, "", "failed to list responses")
	}
	if items == nil {
		items = []models.ResponseSummary{}
	}
	return items, pagination(query.Page, query.PageSize, total), nil
}

// Update edits the date, reviewer and content of a draft.
func (s *ResponseService) Update(ctx context.Context, id string, req dto.UpdateResponseRequest, actorID string) (*models.Response, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid response payload")
	}
	responseDate, err := parseDate(req.ResponseDate, "responseDate")
	if err != nil {
		return nil, err
	}

	var updated *models.Response
	err = s.run(ctx, "response_update", func(ctx context.Context, stores Stores) error {
		response, err := stores.Responses.GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "response not found", "failed to load response")
		}
		if response.Status != models.ResponseStatusDraft {
			return appErrors.Clone(appErrors.ErrInvalidState, "only draft responses can be edited")
		}
		if err := checkUser(ctx, stores.Catalog, req.ReviewerID, "reviewerId"); err != nil {
			return err
		}
		response.ResponseDate = responseDate
		response.ReviewerID = req.ReviewerID
		response.Content = optionalString(req.Content)
		if err := stores.Responses.Update(ctx, response); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInvalidState, "only draft responses can be edited")
			}
			return appErrors.Persistence(err, "failed to update response")
		}
		updated = response
		return writeAudit(ctx, stores.Audit, actorID, models.AuditActionResponseUpdate, "response", id, map[string]interface{}{
			"reviewerId": req.ReviewerID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("response updated", zap.String("response_id", id))
	s.afterWrite(ctx, "")
	return updated, nil
}

// Finalize signs or sends a draft and marks its request answered.
func (s *ResponseService) Finalize(ctx context.Context, id string, req dto.FinalizeResponseRequest, actorID string) (*models.Response, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid finalize payload")
	}
	target := req.Status
	if !target.Valid() {
		return nil, appErrors.WithField("status", "must be one of [signed sent]")
	}
	if !target.Finalized() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "target status must be signed or sent")
	}

	var finalized *models.Response
	err := s.run(ctx, "response_finalize", func(ctx context.Context, stores Stores) error {
		response, err := stores.Responses.GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "response not found", "failed to load response")
		}
		if response.Status != models.ResponseStatusDraft || !response.Status.CanTransitionTo(target) {
			return appErrors.Clone(appErrors.ErrInvalidState, "only draft responses can be finalized")
		}
		if err := stores.Responses.UpdateStatus(ctx, id, models.ResponseStatusDraft, target); err != nil {
			return transitionError(err, "only draft responses can be finalized", "failed to update response status")
		}
		if err := stores.Requests.UpdateStatus(ctx, response.RequestID, models.RequestStatusInProgress, models.RequestStatusAnswered); err != nil {
			return transitionError(err, "request is not in progress", "failed to update request status")
		}
		response.Status = target
		finalized = response
		return writeAudit(ctx, stores.Audit, actorID, models.AuditActionResponseFinalize, "response", id, map[string]interface{}{
			"status":    target,
			"requestId": response.RequestID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("response finalized",
		zap.String("response_id", id),
		zap.String("number", finalized.Number),
		zap.String("status", string(target)),
	)
	s.afterWrite(ctx, string(target))
	return finalized, nil
}

// Send records that a signed response was delivered.
func (s *ResponseService) Send(ctx context.Context, id, actorID string) (*models.Response, error) {
	var sent *models.Response
	err := s.run(ctx, "response_send", func(ctx context.Context, stores Stores) error {
		response, err := stores.Responses.GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "response not found", "failed to load response")
		}
		if response.Status != models.ResponseStatusSigned {
			return appErrors.Clone(appErrors.ErrInvalidState, "only signed responses can be sent")
		}
		if err := stores.Responses.UpdateStatus(ctx, id, models.ResponseStatusSigned, models.ResponseStatusSent); err != nil {
			return transitionError(err, "only signed responses can be sent", "failed to update response status")
		}
		response.Status = models.ResponseStatusSent
		sent = response
		return writeAudit(ctx, stores.Audit, actorID, models.AuditActionResponseSend, "response", id, map[string]interface{}{
			"status": models.ResponseStatusSent,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("response sent", zap.String("response_id", id), zap.String("number", sent.Number))
	s.afterWrite(ctx, string(models.ResponseStatusSent))
	return sent, nil
}

// Delete discards a draft and returns its request to pending. The
// correlative it consumed is not reused.
func (s *ResponseService) Delete(ctx context.Context, id, actorID string) error {
	err := s.run(ctx, "response_delete", func(ctx context.Context, stores Stores) error {
		response, err := stores.Responses.GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "response not found", "failed to load response")
		}
		if response.Status != models.ResponseStatusDraft {
			return appErrors.Clone(appErrors.ErrInvalidState, "only draft responses can be deleted")
		}
		if err := stores.Responses.DeleteResults(ctx, id); err != nil {
			return appErrors.Persistence(err, "failed to remove cross reference results")
		}
		if err := stores.Responses.Delete(ctx, id); err != nil {
			return transitionError(err, "only draft responses can be deleted", "failed to remove response")
		}
		if err := stores.Requests.UpdateStatus(ctx, response.RequestID, models.RequestStatusInProgress, models.RequestStatusPending); err != nil {
			return transitionError(err, "request is not in progress", "failed to update request status")
		}
		return writeAudit(ctx, stores.Audit, actorID, models.AuditActionResponseDelete, "response", id, map[string]interface{}{
			"number":    response.Number,
			"requestId": response.RequestID,
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("response deleted", zap.String("response_id", id))
	s.afterWrite(ctx, "")
	return nil
}

func (s *ResponseService) run(ctx context.Context, operation string, fn func(ctx context.Context, stores Stores) error) error {
	start := time.Now()
	err := s.uow.RunInTx(ctx, fn)
	if s.metrics != nil {
		s.metrics.ObserveUnitOfWork(operation, time.Since(start))
	}
	if err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintResponseRequest) {
			err = appErrors.Clone(appErrors.ErrConflict, "request already has a response")
		} else {
			err = storeError(err, "", "transaction failed")
		}
		if s.metrics != nil {
			s.metrics.RecordFailure(operation, appErrors.FromError(err).Code)
		}
		s.logger.Debug("response operation failed", zap.String("operation", operation), zap.Error(err))
		return err
	}
	return nil
}

func (s *ResponseService) afterWrite(ctx context.Context, status string) {
	if s.metrics != nil && status != "" {
		s.metrics.RecordTransition("response", status)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// loadDetail hydrates a response from the given stores.
func loadDetail(ctx context.Context, stores Stores, id string) (*models.ResponseDetail, error) {
	response, err := stores.Responses.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "response not found", "failed to load response")
	}
	request, err := stores.Requests.GetByID(ctx, response.RequestID)
	if err != nil {
		return nil, storeError(err, "request not found", "failed to load request")
	}
	persons, err := stores.Requests.ListPersons(ctx, request.ID)
	if err != nil {
		return nil, storeError(err, "", "failed to load requested persons")
	}
	request.Persons = persons
	results, err := stores.Responses.ListResults(ctx, id)
	if err != nil {
		return nil, storeError(err, "", "failed to load cross reference results")
	}
	response.Results = results

	detail := &models.ResponseDetail{Response: *response, Request: *request}
	catalog := stores.Catalog
	if detail.Institution, err = optional(catalog.InstitutionByID(ctx, request.InstitutionID)); err != nil {
		return nil, err
	}
	if request.UnitID != nil {
		if detail.Unit, err = optional(catalog.UnitByID(ctx, *request.UnitID)); err != nil {
			return nil, err
		}
	}
	if detail.Agent, err = optional(catalog.AgentByID(ctx, request.AgentID)); err != nil {
		return nil, err
	}
	if detail.Agent != nil {
		if detail.Position, err = optional(catalog.PositionByID(ctx, detail.Agent.PositionID)); err != nil {
			return nil, err
		}
	}
	if request.CrimeTypeID != nil {
		if detail.CrimeType, err = optional(catalog.CrimeTypeByID(ctx, *request.CrimeTypeID)); err != nil {
			return nil, err
		}
	}
	if detail.Analyst, err = optional(catalog.UserByID(ctx, response.AnalystID)); err != nil {
		return nil, err
	}
	if detail.Reviewer, err = optional(catalog.UserByID(ctx, response.ReviewerID)); err != nil {
		return nil, err
	}

	byID := make(map[string]*models.RequestedPerson, len(persons))
	for i := range persons {
		byID[persons[i].ID] = &persons[i]
	}
	detail.Results = make([]models.ResolvedResult, len(results))
	for i, result := range results {
		detail.Results[i] = models.ResolvedResult{CrossReferenceResult: result, Person: byID[result.RequestedPersonID]}
	}
	sort.SliceStable(detail.Results, func(i, j int) bool {
		a, b := detail.Results[i].Person, detail.Results[j].Person
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Position < b.Position
	})
	return detail, nil
}

func optional[T any](value *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Persistence(err, "failed to load response relations")
	}
	return value, nil
}

func checkUser(ctx context.Context, catalog CatalogStore, id, field string) error {
	if _, err := catalog.UserByID(ctx, id); err != nil {
		return referenceError(err, field)
	}
	return nil
}

func responseWriteError(err error) error {
	if repository.IsUniqueViolation(err, repository.ConstraintResponseRequest) {
		return appErrors.Clone(appErrors.ErrConflict, "request already has a response")
	}
	if repository.IsUniqueViolation(err, repository.ConstraintResponseNumber) || repository.IsUniqueViolation(err, repository.ConstraintResponseYearIndex) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "response number already allocated")
	}
	return appErrors.Persistence(err, "failed to store response")
}

func transitionError(err error, invalid, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrInvalidState, invalid)
	}
	return appErrors.Persistence(err, message)
}

func countFound(results []models.CrossReferenceResult) int {
	found := 0
	for _, r := range results {
		if r.Found {
			found++
		}
	}
	return found
}
