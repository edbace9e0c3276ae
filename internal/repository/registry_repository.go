package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/noah-isme/oficios-api/internal/models"
)

// RegistryRepository reads the flagged persons registry.
type RegistryRepository struct {
	db Queryer
}

// NewRegistryRepository constructs the repository on a pool or a transaction.
func NewRegistryRepository(db Queryer) *RegistryRepository {
	return &RegistryRepository{db: db}
}

const flaggedColumns = `id, first_name, last_name, national_id, birth_date, criminal_group, criminal_structure,
       observations, photo_ref, active, created_at, updated_at`

// FindByNationalIDs returns every registry entry whose national ID equals one
// of ids. Matching is exact and case-sensitive; the active flag is ignored.
func (r *RegistryRepository) FindByNationalIDs(ctx context.Context, ids []string) ([]models.FlaggedPerson, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + flaggedColumns + ` FROM flagged_persons WHERE national_id = ANY($1)`
	var persons []models.FlaggedPerson
	if err := r.db.SelectContext(ctx, &persons, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("lookup flagged persons: %w", err)
	}
	return persons, nil
}

// GetByID fetches a registry entry.
func (r *RegistryRepository) GetByID(ctx context.Context, id string) (*models.FlaggedPerson, error) {
	query := `SELECT ` + flaggedColumns + ` FROM flagged_persons WHERE id = $1`
	var person models.FlaggedPerson
	if err := r.db.GetContext(ctx, &person, query, id); err != nil {
		return nil, err
	}
	return &person, nil
}

// History lists the most recent matches of a flagged person.
func (r *RegistryRepository) History(ctx context.Context, flaggedPersonID string, limit int) ([]models.FlaggedPersonHit, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT c.id AS result_id, s.id AS response_id, s.number AS response_number, s.status AS response_status,
       i.name AS institution_name, c.created_at
FROM cross_reference_results c
JOIN responses s ON s.id = c.response_id
JOIN requests q ON q.id = s.request_id
JOIN institutions i ON i.id = q.institution_id
WHERE c.flagged_person_id = $1 AND c.found
ORDER BY c.created_at DESC
LIMIT $2`
	var hits []models.FlaggedPersonHit
	if err := r.db.SelectContext(ctx, &hits, query, flaggedPersonID, limit); err != nil {
		return nil, fmt.Errorf("flagged person history: %w", err)
	}
	return hits, nil
}
