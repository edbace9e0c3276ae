package service

import (
	"context"

	"github.com/noah-isme/oficios-api/internal/models"
)

// CatalogService serves the cascading lookups used when filing a request.
type CatalogService struct {
	catalog CatalogStore
}

// NewCatalogService constructs the service.
func NewCatalogService(catalog CatalogStore) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// UnitsByInstitution lists the active units of an institution.
func (s *CatalogService) UnitsByInstitution(ctx context.Context, institutionID string) ([]models.Unit, error) {
	if _, err := s.catalog.InstitutionByID(ctx, institutionID); err != nil {
		return nil, storeError(err, "institution not found", "failed to load institution")
	}
	units, err := s.catalog.UnitsByInstitution(ctx, institutionID)
	if err != nil {
		return nil, storeError(err, "", "failed to list units")
	}
	if units == nil {
		units = []models.Unit{}
	}
	return units, nil
}

// AgentsByUnit lists the active agents of a unit with their positions.
func (s *CatalogService) AgentsByUnit(ctx context.Context, unitID string) ([]models.AgentWithPosition, error) {
	if _, err := s.catalog.UnitByID(ctx, unitID); err != nil {
		return nil, storeError(err, "unit not found", "failed to load unit")
	}
	agents, err := s.catalog.AgentsByUnit(ctx, unitID)
	if err != nil {
		return nil, storeError(err, "", "failed to list agents")
	}
	if agents == nil {
		agents = []models.AgentWithPosition{}
	}
	return agents, nil
}
