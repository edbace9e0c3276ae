package service

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/oficios-api/internal/models"
	"github.com/noah-isme/oficios-api/internal/repository"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

// RequestStore persists requests and requested persons.
type RequestStore interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	GetForUpdate(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestSummary, int, error)
	Update(ctx context.Context, request *models.Request) error
	UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) error
	Delete(ctx context.Context, id string) error
	ListPersons(ctx context.Context, requestID string) ([]models.RequestedPerson, error)
	InsertPersons(ctx context.Context, persons []models.RequestedPerson) error
	UpdatePerson(ctx context.Context, person *models.RequestedPerson) error
	DeletePersons(ctx context.Context, requestID string, ids []string) error
	DeleteAllPersons(ctx context.Context, requestID string) error
}

// ResponseStore persists responses and their cross-reference results.
type ResponseStore interface {
	Create(ctx context.Context, response *models.Response) error
	GetByID(ctx context.Context, id string) (*models.Response, error)
	GetForUpdate(ctx context.Context, id string) (*models.Response, error)
	GetByRequestID(ctx context.Context, requestID string) (*models.Response, error)
	List(ctx context.Context, filter models.ResponseFilter) ([]models.ResponseSummary, int, error)
	Update(ctx context.Context, response *models.Response) error
	UpdateStatus(ctx context.Context, id string, from, to models.ResponseStatus) error
	Delete(ctx context.Context, id string) error
	InsertResults(ctx context.Context, results []models.CrossReferenceResult) error
	ListResults(ctx context.Context, responseID string) ([]models.CrossReferenceResult, error)
	DeleteResults(ctx context.Context, responseID string) error
	DeleteResultsForPersons(ctx context.Context, personIDs []string) error
}

// RegistryStore reads the flagged persons registry.
type RegistryStore interface {
	FindByNationalIDs(ctx context.Context, ids []string) ([]models.FlaggedPerson, error)
	GetByID(ctx context.Context, id string) (*models.FlaggedPerson, error)
	History(ctx context.Context, flaggedPersonID string, limit int) ([]models.FlaggedPersonHit, error)
}

// SequenceStore hands out per-year correlatives.
type SequenceStore interface {
	Next(ctx context.Context, year int) (int, error)
	Current(ctx context.Context, year int) (int, error)
}

// CatalogStore reads reference data.
type CatalogStore interface {
	InstitutionByID(ctx context.Context, id string) (*models.Institution, error)
	UnitByID(ctx context.Context, id string) (*models.Unit, error)
	AgentByID(ctx context.Context, id string) (*models.Agent, error)
	PositionByID(ctx context.Context, id string) (*models.Position, error)
	CrimeTypeByID(ctx context.Context, id string) (*models.CrimeType, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	UnitsByInstitution(ctx context.Context, institutionID string) ([]models.Unit, error)
	AgentsByUnit(ctx context.Context, unitID string) ([]models.AgentWithPosition, error)
}

// AuditStore appends audit trail records.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Stores groups the stores that share one connection or transaction.
type Stores struct {
	Requests  RequestStore
	Responses ResponseStore
	Registry  RegistryStore
	Sequences SequenceStore
	Catalog   CatalogStore
	Audit     AuditStore
}

// UnitOfWork runs fn with stores bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// cacheInvalidator drops cached dashboard payloads after lifecycle writes.
type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// lifecycleRecorder counts lifecycle transitions and failures.
type lifecycleRecorder interface {
	RecordTransition(entity, status string)
	RecordFailure(operation, code string)
	ObserveUnitOfWork(operation string, duration time.Duration)
}

const dateLayout = "2006-01-02"

// NewValidator returns a validator reporting JSON field names and
// supporting the notblank tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// storeError maps a store failure onto the error taxonomy. Errors that
// already carry a kind pass through.
func storeError(err error, notFound, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if notFound != "" && (errors.Is(err, sql.ErrNoRows) || repository.IsInvalidInput(err)) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Persistence(err, message)
}

func optionalString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseDate(raw, field string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.WithField(field, "must be a date in YYYY-MM-DD format")
	}
	return parsed, nil
}

func parseOptionalDate(raw, field string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parsed, err := parseDate(raw, field)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func pagination(page, pageSize, total int) *models.Pagination {
	return models.NewPagination(page, pageSize, total)
}
