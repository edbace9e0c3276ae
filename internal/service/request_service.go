package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/oficios-api/internal/dto"
	"github.com/noah-isme/oficios-api/internal/models"
	"github.com/noah-isme/oficios-api/internal/repository"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

// RequestService manages the lifecycle of incoming requests.
type RequestService struct {
	uow       UnitOfWork
	reads     Stores
	crossref  *CrossReferenceService
	validator *validator.Validate
	logger    *zap.Logger
	cache     cacheInvalidator
	metrics   lifecycleRecorder
}

// RequestServiceParams groups constructor dependencies.
type RequestServiceParams struct {
	UnitOfWork UnitOfWork
	Reads      Stores
	CrossRef   *CrossReferenceService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Cache      cacheInvalidator
	Metrics    lifecycleRecorder
}

// NewRequestService constructs the service.
func NewRequestService(params RequestServiceParams) *RequestService {
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
	return &RequestService{
		uow:       params.UnitOfWork,
		reads:     params.Reads,
		crossref:  crossref,
		validator: validate,
		logger:    logger,
		cache:     params.Cache,
		metrics:   params.Metrics,
	}
}

// requestInput is a validated, parsed upsert payload.
type requestInput struct {
	fields  models.Request
	persons []personInput
}

type personInput struct {
	id     string
	person models.RequestedPerson
}

func (s *RequestService) parse(req dto.UpsertRequestRequest) (*requestInput, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid request payload")
	}
	receivedAt, err := parseDate(req.ReceivedAt, "receivedAt")
	if err != nil {
		return nil, err
	}
	input := &requestInput{
		fields: models.Request{
			TrackingNumber: optionalString(req.TrackingNumber),
			ReceivedAt:     receivedAt,
			InstitutionID:  req.InstitutionID,
			UnitID:         optionalString(req.UnitID),
			AgentID:        req.AgentID,
			CrimeTypeID:    optionalString(req.CrimeTypeID),
			OffendedParty:  optionalString(req.OffendedParty),
			Observations:   optionalString(req.Observations),
		},
		persons: make([]personInput, len(req.Persons)),
	}
	seen := make(map[string]struct{}, len(req.Persons))
	for i, p := range req.Persons {
		birthDate, err := parseOptionalDate(p.BirthDate, fmt.Sprintf("persons[%d].birthDate", i))
		if err != nil {
			return nil, err
		}
		if p.ID != "" {
			if _, dup := seen[p.ID]; dup {
				return nil, appErrors.WithField(fmt.Sprintf("persons[%d].id", i), "is duplicated")
			}
			seen[p.ID] = struct{}{}
		}
		input.persons[i] = personInput{
			id: p.ID,
			person: models.RequestedPerson{
				FirstName:  strings.TrimSpace(p.FirstName),
				LastName:   strings.TrimSpace(p.LastName),
				NationalID: strings.TrimSpace(p.NationalID),
				BirthDate:  birthDate,
				Position:   i,
			},
		}
	}
	return input, nil
}

// Create files a new pending request with its persons.
func (s *RequestService) Create(ctx context.Context, req dto.UpsertRequestRequest, actorID string) (*models.Request, error) {
	input, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	request := input.fields
	request.Status = models.RequestStatusPending
	request.RegisteredBy = actorID

	err = s.run(ctx, "request_create", func(ctx context.Context, stores Stores) error {
		if err := checkUser(ctx, stores.Catalog, actorID, "registeredBy"); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, stores.Catalog, &request); err != nil {
			return err
		}
		if err := stores.Requests.Create(ctx, &request); err != nil {
			return requestWriteError(err)
		}
		persons := make([]models.RequestedPerson, len(input.persons))
		for i, p := range input.persons {
			persons[i] = p.person
			persons[i].RequestID = request.ID
		}
		if err := stores.Requests.InsertPersons(ctx, persons); err != nil {
			return appErrors.Persistence(err, "failed to store requested persons")
		}
		request.Persons = persons
		return writeAudit(ctx, stores.Audit, actorID, models.AuditActionRequestCreate, "request", request.ID, map[string]interface{}{
			"persons": len(persons),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("request created", zap.String("request_id", request.ID), zap.Int("persons", len(request.Persons)))
	s.afterWrite(ctx, "request", string(request.Status))
	return &request, nil
}

// Get returns a request with its persons.
func (s *RequestService) Get(ctx context.Context, id string) (*models.Request, error) {
	request, err := s.reads.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "request not found", "failed to load request")
	}
	persons, err := s.reads.Requests.ListPersons(ctx, id)
	if err != nil {
		return nil, storeError(err, "", "failed to load requested persons")
	}
	request.Persons = persons
	return request, nil
}

// List returns requests that match the query.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery) ([]models.RequestSummary, *models.Pagination, error) {
	for _, status := range query.Status {
		if !status.Valid() {
			return nil, nil, appErrors.WithField("status", "is not a request status")
		}
	}
	items, total, err := s.reads.Requests.List(ctx, models.RequestFilter{
		Status:   query.Status,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, nil, storeError(err, "", "failed to list requests")
	}
	if items == nil {
		items = []models.RequestSummary{}
	}
	return items, pagination(query.Page, query.PageSize, total), nil
}

// Update edits a request that has not been answered and synchronises its
// persons: listed ids are kept, unlisted ones removed, entries without id
// added. While a draft response exists, removed persons lose their results
// and added persons are cross-referenced in the same transaction.
func (s *RequestService) Update(ctx context.Context, id string, req dto.UpsertRequestRequest, actorID string) (*models.Request, error) {
	input, err := s.parse(req)
	if err != nil {
		return nil, err
	}

	var updated *models.Request
	err = s.run(ctx, "request_update", func(ctx context.Context, stores Stores) error {
		current, err := stores.Requests.GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "request not found", "failed to load request")
		}
		if !current.Status.Editable() {
			return appErrors.Clone(appErrors.ErrInvalidState, "answered requests cannot be edited")
		}

		next := input.fields
		next.ID = current.ID
		next.Status = current.Status
		next.RegisteredBy = current.RegisteredBy
		next.CreatedAt = current.CreatedAt
		if err := s.checkReferences(ctx, stores.Catalog, &next); err != nil {
			return err
		}
		if err := stores.Requests.Update(ctx, &next); err != nil {
			return requestWriteError(err)
		}

		persons, err := s.syncPersons(ctx, stores, current, input.persons)
		if err != nil {
			return err
		}
		next.Persons = persons
		updated = &next
		return writeAudit(ctx, stores.Audit, actorID, models.AuditActionRequestUpdate, "request", id, map[string]interface{}{
			"persons": len(persons),
			"status":  next.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("request updated", zap.String("request_id", id), zap.Int("persons", len(updated.Persons)))
	s.afterWrite(ctx, "", "")
	return updated, nil
}

func (s *RequestService) syncPersons(ctx context.Context, stores Stores, request *models.Request, inputs []personInput) ([]models.RequestedPerson, error) {
	existing, err := stores.Requests.ListPersons(ctx, request.ID)
	if err != nil {
		return nil, storeError(err, "", "failed to load requested persons")
	}
	byID := make(map[string]models.RequestedPerson, len(existing))
	for _, p := range existing {
		byID[p.ID] = p
	}

	var draft *models.Response
	if request.Status == models.RequestStatusInProgress {
		draft, err = stores.Responses.GetByRequestID(ctx, request.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, storeError(err, "", "failed to load response")
		}
	}

	kept := make(map[string]struct{}, len(inputs))
	final := make([]models.RequestedPerson, len(inputs))
	added := make([]models.RequestedPerson, 0, len(inputs))
	for i, in := range inputs {
		person := in.person
		person.RequestID = request.ID
		if in.id == "" {
			added = append(added, person)
			final[i] = person
			continue
		}
		prev, ok := byID[in.id]
		if !ok {
			return nil, appErrors.WithField(fmt.Sprintf("persons[%d].id", i), "does not belong to this request")
		}
		if draft != nil && prev.NationalID != person.NationalID {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "national id of a cross-referenced person cannot change while the response is a draft")
		}
		person.ID = prev.ID
		person.CreatedAt = prev.CreatedAt
		kept[prev.ID] = struct{}{}
		final[i] = person
	}

	removed := make([]string, 0)
	for _, p := range existing {
		if _, ok := kept[p.ID]; !ok {
			removed = append(removed, p.ID)
		}
	}
	if draft != nil {
		if err := stores.Responses.DeleteResultsForPersons(ctx, removed); err != nil {
			return nil, appErrors.Persistence(err, "failed to remove cross reference results")
		}
	}
	if err := stores.Requests.DeletePersons(ctx, request.ID, removed); err != nil {
		return nil, appErrors.Persistence(err, "failed to remove requested persons")
	}
	for i := range final {
		if final[i].ID == "" {
			continue
		}
		if err := stores.Requests.UpdatePerson(ctx, &final[i]); err != nil {
			return nil, storeError(err, "requested person not found", "failed to update requested person")
		}
	}
	if len(added) > 0 {
		if err := stores.Requests.InsertPersons(ctx, added); err != nil {
			return nil, appErrors.Persistence(err, "failed to store requested persons")
		}
		j := 0
		for i := range final {
			if final[i].ID == "" {
				final[i] = added[j]
				j++
			}
		}
		if draft != nil {
			results, err := s.crossref.Resolve(ctx, stores.Registry, added)
			if err != nil {
				return nil, err
			}
			for i := range results {
				results[i].ResponseID = draft.ID
			}
			if err := stores.Responses.InsertResults(ctx, results); err != nil {
				return nil, appErrors.Persistence(err, "failed to store cross reference results")
			}
		}
	}
	return final, nil
}

// Delete removes a request that has not been answered, together with its
// persons and, when in progress, its draft response.
func (s *RequestService) Delete(ctx context.Context, id, actorID string) error {
	err := s.run(ctx, "request_delete", func(ctx context.Context, stores Stores) error {
		request, err := stores.Requests.GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "request not found", "failed to load request")
		}
		if request.Status == models.RequestStatusAnswered {
			return appErrors.Clone(appErrors.ErrInvalidState, "answered requests cannot be deleted")
		}
		if request.Status == models.RequestStatusInProgress {
			response, err := stores.Responses.GetByRequestID(ctx, id)
			switch {
			case errors.Is(err, sql.ErrNoRows):
			case err != nil:
				return storeError(err, "", "failed to load response")
			case response.Status != models.ResponseStatusDraft:
				return appErrors.Clone(appErrors.ErrInvalidState, "request has a finalized response")
			default:
				if err := stores.Responses.DeleteResults(ctx, response.ID); err != nil {
					return appErrors.Persistence(err, "failed to remove cross reference results")
				}
				if err := stores.Responses.Delete(ctx, response.ID); err != nil {
					return storeError(err, "response not found", "failed to remove response")
				}
			}
		}
		if err := stores.Requests.DeleteAllPersons(ctx, id); err != nil {
			return appErrors.Persistence(err, "failed to remove requested persons")
		}
		if err := stores.Requests.Delete(ctx, id); err != nil {
			return storeError(err, "request not found", "failed to remove request")
		}
		return writeAudit(ctx, stores.Audit, actorID, models.AuditActionRequestDelete, "request", id, map[string]interface{}{
			"status": request.Status,
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("request deleted", zap.String("request_id", id))
	s.afterWrite(ctx, "", "")
	return nil
}

func (s *RequestService) checkReferences(ctx context.Context, catalog CatalogStore, request *models.Request) error {
	if _, err := catalog.InstitutionByID(ctx, request.InstitutionID); err != nil {
		return referenceError(err, "institutionId")
	}
	if request.UnitID != nil {
		unit, err := catalog.UnitByID(ctx, *request.UnitID)
		if err != nil {
			return referenceError(err, "unitId")
		}
		if unit.InstitutionID != request.InstitutionID {
			return appErrors.WithField("unitId", "does not belong to the institution")
		}
	}
	if _, err := catalog.AgentByID(ctx, request.AgentID); err != nil {
		return referenceError(err, "agentId")
	}
	if request.CrimeTypeID != nil {
		if _, err := catalog.CrimeTypeByID(ctx, *request.CrimeTypeID); err != nil {
			return referenceError(err, "crimeTypeId")
		}
	}
	return nil
}

func (s *RequestService) run(ctx context.Context, operation string, fn func(ctx context.Context, stores Stores) error) error {
	start := time.Now()
	err := s.uow.RunInTx(ctx, fn)
	if s.metrics != nil {
		s.metrics.ObserveUnitOfWork(operation, time.Since(start))
	}
	if err != nil {
		err = storeError(err, "", "transaction failed")
		if s.metrics != nil {
			s.metrics.RecordFailure(operation, appErrors.FromError(err).Code)
		}
		return err
	}
	return nil
}

func (s *RequestService) afterWrite(ctx context.Context, entity, status string) {
	if s.metrics != nil && entity != "" {
		s.metrics.RecordTransition(entity, status)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func requestWriteError(err error) error {
	if repository.IsUniqueViolation(err, repository.ConstraintRequestTracking) {
		return appErrors.Clone(appErrors.ErrConflict, "tracking number already registered")
	}
	return storeError(err, "request not found", "failed to store request")
}

func referenceError(err error, field string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.WithField(field, "does not exist")
	}
	if repository.IsInvalidInput(err) {
		return appErrors.WithField(field, "must be a valid id")
	}
	return appErrors.Persistence(err, "failed to load "+field)
}

func writeAudit(ctx context.Context, audit AuditStore, actorID, action, resource, resourceID string, values map[string]interface{}) error {
	if audit == nil {
		return nil
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode audit payload")
	}
	entry := models.NewAuditLog(action, resource, actorID, resourceID)
	entry.NewValues = payload
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		return appErrors.Persistence(err, "failed to write audit log")
	}
	return nil
}
