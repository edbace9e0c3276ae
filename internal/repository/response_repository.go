package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/oficios-api/internal/models"
)

// ResponseRepository persists responses and their cross-reference results.
type ResponseRepository struct {
	db Queryer
}

// NewResponseRepository constructs the repository on a pool or a transaction.
func NewResponseRepository(db Queryer) *ResponseRepository {
	return &ResponseRepository{db: db}
}

const responseColumns = `id, request_id, number, correlative, year, response_date, analyst_id, reviewer_id,
       content, status, created_at, updated_at`

// resultRow flattens CrossReferenceResult so the snapshot maps onto its own columns.
type resultRow struct {
	ID                string    `db:"id"`
	ResponseID        string    `db:"response_id"`
	RequestedPersonID string    `db:"requested_person_id"`
	FlaggedPersonID   *string   `db:"flagged_person_id"`
	Found             bool      `db:"found"`
	CriminalGroup     *string   `db:"snapshot_criminal_group"`
	CriminalStructure *string   `db:"snapshot_criminal_structure"`
	Observations      *string   `db:"snapshot_observations"`
	Position          int       `db:"position"`
	CreatedAt         time.Time `db:"created_at"`
}

func rowFromResult(r models.CrossReferenceResult) resultRow {
	return resultRow{
		ID:                r.ID,
		ResponseID:        r.ResponseID,
		RequestedPersonID: r.RequestedPersonID,
		FlaggedPersonID:   r.FlaggedPersonID,
		Found:             r.Found,
		CriminalGroup:     r.Snapshot.CriminalGroup,
		CriminalStructure: r.Snapshot.CriminalStructure,
		Observations:      r.Snapshot.Observations,
		Position:          r.Position,
		CreatedAt:         r.CreatedAt,
	}
}

func (row resultRow) toModel() models.CrossReferenceResult {
	return models.CrossReferenceResult{
		ID:                row.ID,
		ResponseID:        row.ResponseID,
		RequestedPersonID: row.RequestedPersonID,
		FlaggedPersonID:   row.FlaggedPersonID,
		Found:             row.Found,
		Snapshot: models.RegistrySnapshot{
			CriminalGroup:     row.CriminalGroup,
			CriminalStructure: row.CriminalStructure,
			Observations:      row.Observations,
		},
		Position:  row.Position,
		CreatedAt: row.CreatedAt,
	}
}

// Create inserts a response row.
func (r *ResponseRepository) Create(ctx context.Context, response *models.Response) error {
	if response.ID == "" {
		response.ID = uuid.NewString()
	}
	if response.Status == "" {
		response.Status = models.ResponseStatusDraft
	}
	now := time.Now().UTC()
	response.CreatedAt = now
	response.UpdatedAt = now
	const query = `INSERT INTO responses
	(id, request_id, number, correlative, year, response_date, analyst_id, reviewer_id, content, status, created_at, updated_at)
	VALUES (:id, :request_id, :number, :correlative, :year, :response_date, :analyst_id, :reviewer_id, :content, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, response); err != nil {
		return fmt.Errorf("create response: %w", translate(err))
	}
	return nil
}

// GetByID fetches a response by identifier.
func (r *ResponseRepository) GetByID(ctx context.Context, id string) (*models.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM responses WHERE id = $1`
	var response models.Response
	if err := r.db.GetContext(ctx, &response, query, id); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetForUpdate fetches a response and locks its row until the transaction ends.
func (r *ResponseRepository) GetForUpdate(ctx context.Context, id string) (*models.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM responses WHERE id = $1 FOR UPDATE`
	var response models.Response
	if err := r.db.GetContext(ctx, &response, query, id); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetByRequestID fetches the response that answers a request.
func (r *ResponseRepository) GetByRequestID(ctx context.Context, requestID string) (*models.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM responses WHERE request_id = $1`
	var response models.Response
	if err := r.db.GetContext(ctx, &response, query, requestID); err != nil {
		return nil, err
	}
	return &response, nil
}

// List returns responses matching the filter (latest first) and the total count.
func (r *ResponseRepository) List(ctx context.Context, filter models.ResponseFilter) ([]models.ResponseSummary, int, error) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 2)
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			statuses[i] = string(status)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("s.status = ANY($%d)", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(s.number ILIKE $%d OR q.tracking_number ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM responses s JOIN requests q ON q.id = s.request_id` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count responses: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := `SELECT s.id, s.request_id, s.number, s.correlative, s.year, s.response_date, s.analyst_id, s.reviewer_id,
       s.content, s.status, s.created_at, s.updated_at,
       q.tracking_number, i.name AS institution_name, a.name AS analyst_name, v.name AS reviewer_name
FROM responses s
JOIN requests q ON q.id = s.request_id
JOIN institutions i ON i.id = q.institution_id
JOIN users a ON a.id = s.analyst_id
JOIN users v ON v.id = s.reviewer_id` + where +
		fmt.Sprintf(" ORDER BY s.created_at DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var items []models.ResponseSummary
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list responses: %w", err)
	}
	return items, total, nil
}

// Update persists the editable fields of a draft response. It returns
// sql.ErrNoRows when the response is missing or no longer a draft.
func (r *ResponseRepository) Update(ctx context.Context, response *models.Response) error {
	response.UpdatedAt = time.Now().UTC()
	const query = `UPDATE responses SET response_date = :response_date, reviewer_id = :reviewer_id,
	content = :content, updated_at = :updated_at
	WHERE id = :id AND status = 'draft'`
	result, err := r.db.NamedExecContext(ctx, query, response)
	if err != nil {
		return fmt.Errorf("update response: %w", err)
	}
	return expectRows(result, "update response")
}

// UpdateStatus moves a response from one status to another. It returns
// sql.ErrNoRows when the response is not currently in from.
func (r *ResponseRepository) UpdateStatus(ctx context.Context, id string, from, to models.ResponseStatus) error {
	const query = `UPDATE responses SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update response status: %w", err)
	}
	return expectRows(result, "update response status")
}

// Delete removes a draft response row. Results must be removed first.
func (r *ResponseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM responses WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	return expectRows(result, "delete response")
}

// InsertResults stores cross-reference results for a response.
func (r *ResponseRepository) InsertResults(ctx context.Context, results []models.CrossReferenceResult) error {
	const query = `INSERT INTO cross_reference_results
	(id, response_id, requested_person_id, flagged_person_id, found, snapshot_criminal_group, snapshot_criminal_structure, snapshot_observations, position, created_at)
	VALUES (:id, :response_id, :requested_person_id, :flagged_person_id, :found, :snapshot_criminal_group, :snapshot_criminal_structure, :snapshot_observations, :position, :created_at)`
	now := time.Now().UTC()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		results[i].CreatedAt = now
		if _, err := r.db.NamedExecContext(ctx, query, rowFromResult(results[i])); err != nil {
			return fmt.Errorf("insert cross reference result: %w", translate(err))
		}
	}
	return nil
}

// ListResults returns the stored results of a response in input order.
func (r *ResponseRepository) ListResults(ctx context.Context, responseID string) ([]models.CrossReferenceResult, error) {
	const query = `SELECT id, response_id, requested_person_id, flagged_person_id, found,
       snapshot_criminal_group, snapshot_criminal_structure, snapshot_observations, position, created_at
FROM cross_reference_results WHERE response_id = $1 ORDER BY position ASC, created_at ASC`
	var rows []resultRow
	if err := r.db.SelectContext(ctx, &rows, query, responseID); err != nil {
		return nil, fmt.Errorf("list cross reference results: %w", err)
	}
	results := make([]models.CrossReferenceResult, len(rows))
	for i, row := range rows {
		results[i] = row.toModel()
	}
	return results, nil
}

// DeleteResults removes every result of a response.
func (r *ResponseRepository) DeleteResults(ctx context.Context, responseID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cross_reference_results WHERE response_id = $1`, responseID); err != nil {
		return fmt.Errorf("delete cross reference results: %w", err)
	}
	return nil
}

// DeleteResultsForPersons removes the results computed for the listed persons.
func (r *ResponseRepository) DeleteResultsForPersons(ctx context.Context, personIDs []string) error {
	if len(personIDs) == 0 {
		return nil
	}
	const query = `DELETE FROM cross_reference_results WHERE requested_person_id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(personIDs)); err != nil {
		return fmt.Errorf("delete person results: %w", err)
	}
	return nil
}
