package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/oficios-api/internal/models"
)

// RequestRepository persists requests and their requested persons.
type RequestRepository struct {
	db Queryer
}

// NewRequestRepository constructs the repository on a pool or a transaction.
func NewRequestRepository(db Queryer) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, tracking_number, received_at, institution_id, unit_id, agent_id, crime_type_id,
       offended_party, observations, status, registered_by, created_at, updated_at`

const personColumns = `id, request_id, first_name, last_name, national_id, birth_date, position, created_at, updated_at`

// Create inserts a new request row. Persons are inserted separately.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	const query = `INSERT INTO requests
	(id, tracking_number, received_at, institution_id, unit_id, agent_id, crime_type_id, offended_party, observations, status, registered_by, created_at, updated_at)
	VALUES (:id, :tracking_number, :received_at, :institution_id, :unit_id, :agent_id, :crime_type_id, :offended_party, :observations, :status, :registered_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", translate(err))
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetForUpdate fetches a request and locks its row until the transaction ends.
func (r *RequestRepository) GetForUpdate(ctx context.Context, id string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1 FOR UPDATE`
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter (latest first) and the total count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestSummary, int, error) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 2)
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			statuses[i] = string(status)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("r.status = ANY($%d)", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(r.tracking_number ILIKE $%d OR i.name ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM requests r JOIN institutions i ON i.id = r.institution_id` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := `SELECT r.id, r.tracking_number, r.received_at, r.institution_id, r.unit_id, r.agent_id, r.crime_type_id,
       r.offended_party, r.observations, r.status, r.registered_by, r.created_at, r.updated_at,
       i.name AS institution_name, u.name AS unit_name, c.name AS crime_type_name,
       (SELECT COUNT(*) FROM requested_persons p WHERE p.request_id = r.id) AS person_count
FROM requests r
JOIN institutions i ON i.id = r.institution_id
LEFT JOIN units u ON u.id = r.unit_id
LEFT JOIN crime_types c ON c.id = r.crime_type_id` + where +
		fmt.Sprintf(" ORDER BY r.created_at DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var items []models.RequestSummary
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	return items, total, nil
}

// Update persists editable request columns.
func (r *RequestRepository) Update(ctx context.Context, request *models.Request) error {
	request.UpdatedAt = time.Now().UTC()
	const query = `UPDATE requests SET tracking_number = :tracking_number, received_at = :received_at,
	institution_id = :institution_id, unit_id = :unit_id, agent_id = :agent_id, crime_type_id = :crime_type_id,
	offended_party = :offended_party, observations = :observations, updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, request)
	if err != nil {
		return fmt.Errorf("update request: %w", translate(err))
	}
	return expectRows(result, "update request")
}

// UpdateStatus moves a request from one status to another. It returns
// sql.ErrNoRows when the request is not currently in from.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) error {
	const query = `UPDATE requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return expectRows(result, "update request status")
}

// Delete removes the request row. Dependent rows must be removed first.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return expectRows(result, "delete request")
}

// ListPersons returns the persons of a request in the order they were filed.
func (r *RequestRepository) ListPersons(ctx context.Context, requestID string) ([]models.RequestedPerson, error) {
	query := `SELECT ` + personColumns + ` FROM requested_persons WHERE request_id = $1 ORDER BY position ASC, created_at ASC`
	var persons []models.RequestedPerson
	if err := r.db.SelectContext(ctx, &persons, query, requestID); err != nil {
		return nil, fmt.Errorf("list requested persons: %w", err)
	}
	return persons, nil
}

// InsertPersons adds persons to a request.
func (r *RequestRepository) InsertPersons(ctx context.Context, persons []models.RequestedPerson) error {
	const query = `INSERT INTO requested_persons (id, request_id, first_name, last_name, national_id, birth_date, position, created_at, updated_at)
	VALUES (:id, :request_id, :first_name, :last_name, :national_id, :birth_date, :position, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range persons {
		if persons[i].ID == "" {
			persons[i].ID = uuid.NewString()
		}
		persons[i].CreatedAt = now
		persons[i].UpdatedAt = now
		if _, err := r.db.NamedExecContext(ctx, query, persons[i]); err != nil {
			return fmt.Errorf("insert requested person: %w", err)
		}
	}
	return nil
}

// UpdatePerson persists a person's editable fields.
func (r *RequestRepository) UpdatePerson(ctx context.Context, person *models.RequestedPerson) error {
	person.UpdatedAt = time.Now().UTC()
	const query = `UPDATE requested_persons SET first_name = :first_name, last_name = :last_name,
	national_id = :national_id, birth_date = :birth_date, position = :position, updated_at = :updated_at
	WHERE id = :id AND request_id = :request_id`
	result, err := r.db.NamedExecContext(ctx, query, person)
	if err != nil {
		return fmt.Errorf("update requested person: %w", err)
	}
	return expectRows(result, "update requested person")
}

// DeletePersons removes the listed persons of a request.
func (r *RequestRepository) DeletePersons(ctx context.Context, requestID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `DELETE FROM requested_persons WHERE request_id = $1 AND id = ANY($2)`
	if _, err := r.db.ExecContext(ctx, query, requestID, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete requested persons: %w", err)
	}
	return nil
}

// DeleteAllPersons removes every person of a request.
func (r *RequestRepository) DeleteAllPersons(ctx context.Context, requestID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM requested_persons WHERE request_id = $1`, requestID); err != nil {
		return fmt.Errorf("delete request persons: %w", err)
	}
	return nil
}

func expectRows(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
