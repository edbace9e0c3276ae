package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/oficios-api/internal/models"
)

// CatalogRepository reads reference data. Catalogs are maintained elsewhere.
type CatalogRepository struct {
	db Queryer
}

// NewCatalogRepository constructs the repository on a pool or a transaction.
func NewCatalogRepository(db Queryer) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) InstitutionByID(ctx context.Context, id string) (*models.Institution, error) {
	var item models.Institution
	if err := r.db.GetContext(ctx, &item, `SELECT id, name, active, created_at FROM institutions WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CatalogRepository) UnitByID(ctx context.Context, id string) (*models.Unit, error) {
	var item models.Unit
	if err := r.db.GetContext(ctx, &item, `SELECT id, institution_id, name, active, created_at FROM units WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CatalogRepository) AgentByID(ctx context.Context, id string) (*models.Agent, error) {
	var item models.Agent
	const query = `SELECT id, first_name, last_name, position_id, unit_id, active, created_at FROM agents WHERE id = $1`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CatalogRepository) PositionByID(ctx context.Context, id string) (*models.Position, error) {
	var item models.Position
	const query = `SELECT id, name, hierarchy_level, active, created_at FROM positions WHERE id = $1`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CatalogRepository) CrimeTypeByID(ctx context.Context, id string) (*models.CrimeType, error) {
	var item models.CrimeType
	if err := r.db.GetContext(ctx, &item, `SELECT id, name, active, created_at FROM crime_types WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CatalogRepository) UserByID(ctx context.Context, id string) (*models.User, error) {
	var item models.User
	if err := r.db.GetContext(ctx, &item, `SELECT id, name, email, active, created_at FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// UnitsByInstitution lists the active units of an institution ordered by name.
func (r *CatalogRepository) UnitsByInstitution(ctx context.Context, institutionID string) ([]models.Unit, error) {
	const query = `SELECT id, institution_id, name, active, created_at FROM units
WHERE institution_id = $1 AND active ORDER BY name ASC`
	var items []models.Unit
	if err := r.db.SelectContext(ctx, &items, query, institutionID); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return items, nil
}

// AgentsByUnit lists the active agents of a unit with their position name.
func (r *CatalogRepository) AgentsByUnit(ctx context.Context, unitID string) ([]models.AgentWithPosition, error) {
	const query = `SELECT a.id, a.first_name, a.last_name, a.position_id, a.unit_id, a.active, a.created_at,
       p.name AS position_name
FROM agents a
JOIN positions p ON p.id = a.position_id
WHERE a.unit_id = $1 AND a.active
ORDER BY a.first_name ASC, a.last_name ASC`
	var items []models.AgentWithPosition
	if err := r.db.SelectContext(ctx, &items, query, unitID); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return items, nil
}
