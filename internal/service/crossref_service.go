package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/oficios-api/internal/dto"
	"github.com/noah-isme/oficios-api/internal/models"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

// CrossReferenceService matches requested persons against the registry.
type CrossReferenceService struct {
	registry  RegistryStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCrossReferenceService constructs the engine. registry serves previews
// and history lookups; Resolve takes the store of the caller's transaction.
func NewCrossReferenceService(registry RegistryStore, validate *validator.Validate, logger *zap.Logger) *CrossReferenceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrossReferenceService{registry: registry, validator: validate, logger: logger}
}

// Resolve produces one result per person, in input order. A match copies the
// registry's sensitive fields into the result snapshot. Lookup failures abort
// the whole resolution rather than reporting persons as not found.
func (s *CrossReferenceService) Resolve(ctx context.Context, registry RegistryStore, persons []models.RequestedPerson) ([]models.CrossReferenceResult, error) {
	if len(persons) == 0 {
		return []models.CrossReferenceResult{}, nil
	}
	index, err := s.lookup(ctx, registry, nationalIDsOf(persons))
	if err != nil {
		return nil, err
	}

	results := make([]models.CrossReferenceResult, len(persons))
	for i, person := range persons {
		result := models.CrossReferenceResult{
			RequestedPersonID: person.ID,
			Position:          person.Position,
		}
		if match, ok := index[person.NationalID]; ok {
			id := match.ID
			result.FlaggedPersonID = &id
			result.Found = true
			result.Snapshot = models.SnapshotOf(match)
		}
		results[i] = result
	}
	return results, nil
}

// Preview checks candidates against the registry without persisting anything.
func (s *CrossReferenceService) Preview(ctx context.Context, req dto.PreviewRequest) ([]dto.PreviewResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid preview payload")
	}
	ids := make([]string, len(req.Candidates))
	for i, candidate := range req.Candidates {
		ids[i] = strings.TrimSpace(candidate.NationalID)
	}
	index, err := s.lookup(ctx, s.registry, ids)
	if err != nil {
		return nil, err
	}

	results := make([]dto.PreviewResult, len(req.Candidates))
	for i, candidate := range req.Candidates {
		result := dto.PreviewResult{
			ID:         candidate.ID,
			NationalID: ids[i],
			FirstName:  strings.TrimSpace(candidate.FirstName),
			LastName:   strings.TrimSpace(candidate.LastName),
		}
		if match, ok := index[ids[i]]; ok {
			snapshot := models.SnapshotOf(match)
			result.Found = true
			result.CriminalGroup = snapshot.CriminalGroup
			result.CriminalStructure = snapshot.CriminalStructure
			result.Observations = snapshot.Observations
		}
		results[i] = result
	}
	return results, nil
}

// History lists the ten most recent matches of a flagged person.
func (s *CrossReferenceService) History(ctx context.Context, flaggedPersonID string) ([]models.FlaggedPersonHit, error) {
	if _, err := s.registry.GetByID(ctx, flaggedPersonID); err != nil {
		return nil, storeError(err, "flagged person not found", "failed to load flagged person")
	}
	hits, err := s.registry.History(ctx, flaggedPersonID, 10)
	if err != nil {
		return nil, storeError(err, "", "failed to load flagged person history")
	}
	if hits == nil {
		hits = []models.FlaggedPersonHit{}
	}
	return hits, nil
}

func (s *CrossReferenceService) lookup(ctx context.Context, registry RegistryStore, ids []string) (map[string]models.FlaggedPerson, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	matches, err := registry.FindByNationalIDs(ctx, unique)
	if err != nil {
		s.logger.Error("registry lookup failed", zap.Int("candidates", len(unique)), zap.Error(err))
		return nil, appErrors.Persistence(err, "registry lookup failed")
	}
	index := make(map[string]models.FlaggedPerson, len(matches))
	for _, match := range matches {
		index[match.NationalID] = match
	}
	return index, nil
}

func nationalIDsOf(persons []models.RequestedPerson) []string {
	ids := make([]string, len(persons))
	for i, person := range persons {
		ids[i] = person.NationalID
	}
	return ids
}
