package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/oficios-api/internal/models"
	"github.com/noah-isme/oficios-api/internal/repository"
)

// memState is the full contents of the fake database.
type memState struct {
	requests    map[string]models.Request
	persons     map[string]models.RequestedPerson
	responses   map[string]models.Response
	results     map[string]models.CrossReferenceResult
	sequences   map[int]int
	registry    map[string]models.FlaggedPerson
	users       map[string]models.User
	institution map[string]models.Institution
	units       map[string]models.Unit
	agents      map[string]models.Agent
	positions   map[string]models.Position
	crimeTypes  map[string]models.CrimeType
	audits      []models.AuditLog
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		requests:    cloneMap(s.requests),
		persons:     cloneMap(s.persons),
		responses:   cloneMap(s.responses),
		results:     cloneMap(s.results),
		sequences:   cloneMap(s.sequences),
		registry:    cloneMap(s.registry),
		users:       cloneMap(s.users),
		institution: cloneMap(s.institution),
		units:       cloneMap(s.units),
		agents:      cloneMap(s.agents),
		positions:   cloneMap(s.positions),
		crimeTypes:  cloneMap(s.crimeTypes),
		audits:      append([]models.AuditLog(nil), s.audits...),
	}
}

// memDB is a transactional in-memory store. Transactions are serialized and
// run on a copy of the state that replaces it only on commit.
type memDB struct {
	mu    sync.Mutex
	state *memState
	// fail makes the named store operation return the error.
	fail map[string]error
	// commitErr is returned at commit time, after fn succeeded.
	commitErr error
	commits   int
}

func newMemDB() *memDB {
	return &memDB{
		state: &memState{
			requests:    map[string]models.Request{},
			persons:     map[string]models.RequestedPerson{},
			responses:   map[string]models.Response{},
			results:     map[string]models.CrossReferenceResult{},
			sequences:   map[int]int{},
			registry:    map[string]models.FlaggedPerson{},
			users:       map[string]models.User{},
			institution: map[string]models.Institution{},
			units:       map[string]models.Unit{},
			agents:      map[string]models.Agent{},
			positions:   map[string]models.Position{},
			crimeTypes:  map[string]models.CrimeType{},
		},
		fail: map[string]error{},
	}
}

func (db *memDB) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := db.state.clone()
	if err := fn(ctx, db.storesFor(work)); err != nil {
		return err
	}
	if db.commitErr != nil {
		return db.commitErr
	}
	db.state = work
	db.commits++
	return nil
}

// reads returns stores that read the committed state.
func (db *memDB) reads() Stores {
	return db.storesFor(nil)
}

func (db *memDB) storesFor(state *memState) Stores {
	v := &memView{db: db, tx: state}
	return Stores{
		Requests:  (*memRequests)(v),
		Responses: (*memResponses)(v),
		Registry:  (*memRegistry)(v),
		Sequences: (*memSequences)(v),
		Catalog:   (*memCatalog)(v),
		Audit:     (*memAudit)(v),
	}
}

// snapshot returns a copy of the committed state.
func (db *memDB) snapshot() *memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

func (db *memDB) seed(fn func(s *memState)) {
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(db.state)
}

type memView struct {
	db *memDB
	tx *memState
}

// with runs fn against the transaction state, or the committed state under lock.
func (v *memView) with(op string, fn func(s *memState) error) error {
	if err := v.db.fail[op]; err != nil {
		return err
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	return fn(v.db.state)
}

type memRequests memView

func (r *memRequests) view() *memView { return (*memView)(r) }

func (r *memRequests) Create(ctx context.Context, request *models.Request) error {
	return r.view().with("requests.Create", func(s *memState) error {
		if request.TrackingNumber != nil {
			for _, existing := range s.requests {
				if existing.TrackingNumber != nil && *existing.TrackingNumber == *request.TrackingNumber {
					return &repository.UniqueViolationError{Constraint: repository.ConstraintRequestTracking}
				}
			}
		}
		if request.ID == "" {
			request.ID = uuid.NewString()
		}
		request.CreatedAt = time.Now()
		request.UpdatedAt = request.CreatedAt
		stored := *request
		stored.Persons = nil
		s.requests[request.ID] = stored
		return nil
	})
}

func (r *memRequests) GetByID(ctx context.Context, id string) (*models.Request, error) {
	var out *models.Request
	err := r.view().with("requests.GetByID", func(s *memState) error {
		request, ok := s.requests[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = &request
		return nil
	})
	return out, err
}

func (r *memRequests) GetForUpdate(ctx context.Context, id string) (*models.Request, error) {
	return r.GetByID(ctx, id)
}

func (r *memRequests) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestSummary, int, error) {
	var out []models.RequestSummary
	err := r.view().with("requests.List", func(s *memState) error {
		for _, request := range s.requests {
			if len(filter.Status) > 0 && !containsStatus(filter.Status, request.Status) {
				continue
			}
			if filter.Search != "" && (request.TrackingNumber == nil || !strings.Contains(*request.TrackingNumber, filter.Search)) {
				continue
			}
			out = append(out, models.RequestSummary{Request: request, InstitutionName: s.institution[request.InstitutionID].Name})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if filter.PageSize > 0 && len(out) > filter.PageSize {
		out = out[:filter.PageSize]
	}
	return out, total, err
}

func containsStatus[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (r *memRequests) Update(ctx context.Context, request *models.Request) error {
	return r.view().with("requests.Update", func(s *memState) error {
		if _, ok := s.requests[request.ID]; !ok {
			return sql.ErrNoRows
		}
		if request.TrackingNumber != nil {
			for id, existing := range s.requests {
				if id != request.ID && existing.TrackingNumber != nil && *existing.TrackingNumber == *request.TrackingNumber {
					return &repository.UniqueViolationError{Constraint: repository.ConstraintRequestTracking}
				}
			}
		}
		stored := *request
		stored.Persons = nil
		s.requests[request.ID] = stored
		return nil
	})
}

func (r *memRequests) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) error {
	return r.view().with("requests.UpdateStatus", func(s *memState) error {
		request, ok := s.requests[id]
		if !ok || request.Status != from {
			return sql.ErrNoRows
		}
		request.Status = to
		s.requests[id] = request
		return nil
	})
}

func (r *memRequests) Delete(ctx context.Context, id string) error {
	return r.view().with("requests.Delete", func(s *memState) error {
		if _, ok := s.requests[id]; !ok {
			return sql.ErrNoRows
		}
		delete(s.requests, id)
		return nil
	})
}

func (r *memRequests) ListPersons(ctx context.Context, requestID string) ([]models.RequestedPerson, error) {
	var out []models.RequestedPerson
	err := r.view().with("requests.ListPersons", func(s *memState) error {
		for _, p := range s.persons {
			if p.RequestID == requestID {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, err
}

func (r *memRequests) InsertPersons(ctx context.Context, persons []models.RequestedPerson) error {
	return r.view().with("requests.InsertPersons", func(s *memState) error {
		for i := range persons {
			if persons[i].ID == "" {
				persons[i].ID = uuid.NewString()
			}
			s.persons[persons[i].ID] = persons[i]
		}
		return nil
	})
}

func (r *memRequests) UpdatePerson(ctx context.Context, person *models.RequestedPerson) error {
	return r.view().with("requests.UpdatePerson", func(s *memState) error {
		existing, ok := s.persons[person.ID]
		if !ok || existing.RequestID != person.RequestID {
			return sql.ErrNoRows
		}
		s.persons[person.ID] = *person
		return nil
	})
}

func (r *memRequests) DeletePersons(ctx context.Context, requestID string, ids []string) error {
	return r.view().with("requests.DeletePersons", func(s *memState) error {
		for _, id := range ids {
			if p, ok := s.persons[id]; ok && p.RequestID == requestID {
				delete(s.persons, id)
			}
		}
		return nil
	})
}

func (r *memRequests) DeleteAllPersons(ctx context.Context, requestID string) error {
	return r.view().with("requests.DeleteAllPersons", func(s *memState) error {
		for id, p := range s.persons {
			if p.RequestID == requestID {
				delete(s.persons, id)
			}
		}
		return nil
	})
}

type memResponses memView

func (r *memResponses) view() *memView { return (*memView)(r) }

func (r *memResponses) Create(ctx context.Context, response *models.Response) error {
	return r.view().with("responses.Create", func(s *memState) error {
		for _, existing := range s.responses {
			if existing.RequestID == response.RequestID {
				return &repository.UniqueViolationError{Constraint: repository.ConstraintResponseRequest}
			}
			if existing.Number == response.Number {
				return &repository.UniqueViolationError{Constraint: repository.ConstraintResponseNumber}
			}
			if existing.Year == response.Year && existing.Correlative == response.Correlative {
				return &repository.UniqueViolationError{Constraint: repository.ConstraintResponseYearIndex}
			}
		}
		if response.ID == "" {
			response.ID = uuid.NewString()
		}
		response.CreatedAt = time.Now()
		response.UpdatedAt = response.CreatedAt
		stored := *response
		stored.Results = nil
		s.responses[response.ID] = stored
		return nil
	})
}

func (r *memResponses) GetByID(ctx context.Context, id string) (*models.Response, error) {
	var out *models.Response
	err := r.view().with("responses.GetByID", func(s *memState) error {
		response, ok := s.responses[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = &response
		return nil
	})
	return out, err
}

func (r *memResponses) GetForUpdate(ctx context.Context, id string) (*models.Response, error) {
	return r.GetByID(ctx, id)
}

func (r *memResponses) GetByRequestID(ctx context.Context, requestID string) (*models.Response, error) {
	var out *models.Response
	err := r.view().with("responses.GetByRequestID", func(s *memState) error {
		for _, response := range s.responses {
			if response.RequestID == requestID {
				found := response
				out = &found
				return nil
			}
		}
		return sql.ErrNoRows
	})
	return out, err
}

func (r *memResponses) List(ctx context.Context, filter models.ResponseFilter) ([]models.ResponseSummary, int, error) {
	var out []models.ResponseSummary
	err := r.view().with("responses.List", func(s *memState) error {
		for _, response := range s.responses {
			if len(filter.Status) > 0 && !containsStatus(filter.Status, response.Status) {
				continue
			}
			if filter.Search != "" && !strings.Contains(response.Number, filter.Search) {
				continue
			}
			out = append(out, models.ResponseSummary{Response: response})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Correlative > out[j].Correlative })
	total := len(out)
	if filter.PageSize > 0 && len(out) > filter.PageSize {
		out = out[:filter.PageSize]
	}
	return out, total, err
}

func (r *memResponses) Update(ctx context.Context, response *models.Response) error {
	return r.view().with("responses.Update", func(s *memState) error {
		existing, ok := s.responses[response.ID]
		if !ok || existing.Status != models.ResponseStatusDraft {
			return sql.ErrNoRows
		}
		stored := *response
		stored.Results = nil
		s.responses[response.ID] = stored
		return nil
	})
}

func (r *memResponses) UpdateStatus(ctx context.Context, id string, from, to models.ResponseStatus) error {
	return r.view().with("responses.UpdateStatus", func(s *memState) error {
		response, ok := s.responses[id]
		if !ok || response.Status != from {
			return sql.ErrNoRows
		}
		response.Status = to
		s.responses[id] = response
		return nil
	})
}

func (r *memResponses) Delete(ctx context.Context, id string) error {
	return r.view().with("responses.Delete", func(s *memState) error {
		response, ok := s.responses[id]
		if !ok || response.Status != models.ResponseStatusDraft {
			return sql.ErrNoRows
		}
		delete(s.responses, id)
		return nil
	})
}

func (r *memResponses) InsertResults(ctx context.Context, results []models.CrossReferenceResult) error {
	return r.view().with("responses.InsertResults", func(s *memState) error {
		for i := range results {
			if results[i].ID == "" {
				results[i].ID = uuid.NewString()
			}
			s.results[results[i].ID] = results[i]
		}
		return nil
	})
}

func (r *memResponses) ListResults(ctx context.Context, responseID string) ([]models.CrossReferenceResult, error) {
	var out []models.CrossReferenceResult
	err := r.view().with("responses.ListResults", func(s *memState) error {
		for _, result := range s.results {
			if result.ResponseID == responseID {
				out = append(out, result)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, err
}

func (r *memResponses) DeleteResults(ctx context.Context, responseID string) error {
	return r.view().with("responses.DeleteResults", func(s *memState) error {
		for id, result := range s.results {
			if result.ResponseID == responseID {
				delete(s.results, id)
			}
		}
		return nil
	})
}

func (r *memResponses) DeleteResultsForPersons(ctx context.Context, personIDs []string) error {
	return r.view().with("responses.DeleteResultsForPersons", func(s *memState) error {
		for id, result := range s.results {
			if containsStatus(personIDs, result.RequestedPersonID) {
				delete(s.results, id)
			}
		}
		return nil
	})
}

type memRegistry memView

func (r *memRegistry) view() *memView { return (*memView)(r) }

func (r *memRegistry) FindByNationalIDs(ctx context.Context, ids []string) ([]models.FlaggedPerson, error) {
	var out []models.FlaggedPerson
	err := r.view().with("registry.FindByNationalIDs", func(s *memState) error {
		for _, id := range ids {
			if person, ok := s.registry[id]; ok {
				out = append(out, person)
			}
		}
		return nil
	})
	return out, err
}

func (r *memRegistry) GetByID(ctx context.Context, id string) (*models.FlaggedPerson, error) {
	var out *models.FlaggedPerson
	err := r.view().with("registry.GetByID", func(s *memState) error {
		for _, person := range s.registry {
			if person.ID == id {
				found := person
				out = &found
				return nil
			}
		}
		return sql.ErrNoRows
	})
	return out, err
}

func (r *memRegistry) History(ctx context.Context, flaggedPersonID string, limit int) ([]models.FlaggedPersonHit, error) {
	var out []models.FlaggedPersonHit
	err := r.view().with("registry.History", func(s *memState) error {
		for _, result := range s.results {
			if result.Found && result.FlaggedPersonID != nil && *result.FlaggedPersonID == flaggedPersonID {
				out = append(out, models.FlaggedPersonHit{ResultID: result.ID, ResponseID: result.ResponseID, ResponseNumber: s.responses[result.ResponseID].Number})
			}
		}
		return nil
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type memSequences memView

func (r *memSequences) view() *memView { return (*memView)(r) }

func (r *memSequences) Next(ctx context.Context, year int) (int, error) {
	var value int
	err := r.view().with("sequences.Next", func(s *memState) error {
		s.sequences[year]++
		value = s.sequences[year]
		return nil
	})
	return value, err
}

func (r *memSequences) Current(ctx context.Context, year int) (int, error) {
	var value int
	err := r.view().with("sequences.Current", func(s *memState) error {
		value = s.sequences[year]
		return nil
	})
	return value, err
}

type memCatalog memView

func (r *memCatalog) view() *memView { return (*memView)(r) }

func lookup[V any](v *memView, op string, pick func(s *memState) (V, bool)) (*V, error) {
	var out *V
	err := v.with(op, func(s *memState) error {
		item, ok := pick(s)
		if !ok {
			return sql.ErrNoRows
		}
		out = &item
		return nil
	})
	return out, err
}

func (r *memCatalog) InstitutionByID(ctx context.Context, id string) (*models.Institution, error) {
	return lookup(r.view(), "catalog.InstitutionByID", func(s *memState) (models.Institution, bool) { v, ok := s.institution[id]; return v, ok })
}

func (r *memCatalog) UnitByID(ctx context.Context, id string) (*models.Unit, error) {
	return lookup(r.view(), "catalog.UnitByID", func(s *memState) (models.Unit, bool) { v, ok := s.units[id]; return v, ok })
}

func (r *memCatalog) AgentByID(ctx context.Context, id string) (*models.Agent, error) {
	return lookup(r.view(), "catalog.AgentByID", func(s *memState) (models.Agent, bool) { v, ok := s.agents[id]; return v, ok })
}

func (r *memCatalog) PositionByID(ctx context.Context, id string) (*models.Position, error) {
	return lookup(r.view(), "catalog.PositionByID", func(s *memState) (models.Position, bool) { v, ok := s.positions[id]; return v, ok })
}

func (r *memCatalog) CrimeTypeByID(ctx context.Context, id string) (*models.CrimeType, error) {
	return lookup(r.view(), "catalog.CrimeTypeByID", func(s *memState) (models.CrimeType, bool) { v, ok := s.crimeTypes[id]; return v, ok })
}

func (r *memCatalog) UserByID(ctx context.Context, id string) (*models.User, error) {
	return lookup(r.view(), "catalog.UserByID", func(s *memState) (models.User, bool) { v, ok := s.users[id]; return v, ok })
}

func (r *memCatalog) UnitsByInstitution(ctx context.Context, institutionID string) ([]models.Unit, error) {
	var out []models.Unit
	err := r.view().with("catalog.UnitsByInstitution", func(s *memState) error {
		for _, unit := range s.units {
			if unit.InstitutionID == institutionID && unit.Active {
				out = append(out, unit)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *memCatalog) AgentsByUnit(ctx context.Context, unitID string) ([]models.AgentWithPosition, error) {
	var out []models.AgentWithPosition
	err := r.view().with("catalog.AgentsByUnit", func(s *memState) error {
		for _, agent := range s.agents {
			if agent.UnitID == unitID && agent.Active {
				out = append(out, models.AgentWithPosition{Agent: agent, PositionName: s.positions[agent.PositionID].Name})
			}
		}
		return nil
	})
	return out, err
}

type memAudit memView

func (r *memAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return (*memView)(r).with("audit.CreateAuditLog", func(s *memState) error {
		if log.ID == "" {
			log.ID = uuid.NewString()
		}
		s.audits = append(s.audits, *log)
		return nil
	})
}

// fixture seeds catalogs, users and a registry with two flagged persons.
type fixture struct {
	db          *memDB
	institution string
	unit        string
	agent       string
	analyst     string
	reviewer    string
}

func strPtr(v string) *string { return &v }

// Catalog ids seeded by newFixture.
const (
	fixtureInstitutionID = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1b01"
	fixtureUnitID        = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1b02"
	fixtureAgentID       = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1b03"
	fixtureAnalystID     = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1b04"
	fixtureReviewerID    = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1b05"
	fixturePositionID    = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1b06"
	fixtureCrimeTypeID   = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1b07"
	fixtureFlaggedID     = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1b08"
	fixtureInactiveID    = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1b09"
	fixtureMissingID     = "5b1f0c2a-3d4e-4f5a-8b6c-7d8e9f0a1bff"
)

func newFixture() *fixture {
	f := &fixture{
		db:          newMemDB(),
		institution: fixtureInstitutionID,
		unit:        fixtureUnitID,
		agent:       fixtureAgentID,
		analyst:     fixtureAnalystID,
		reviewer:    fixtureReviewerID,
	}
	f.db.seed(func(s *memState) {
		s.institution[f.institution] = models.Institution{ID: f.institution, Name: "Ministerio Público", Active: true}
		s.units[f.unit] = models.Unit{ID: f.unit, InstitutionID: f.institution, Name: "Fiscalía Regional", Active: true}
		s.positions[fixturePositionID] = models.Position{ID: fixturePositionID, Name: "Fiscal Auxiliar", Active: true}
		s.agents[f.agent] = models.Agent{ID: f.agent, FirstName: "Carlos", LastName: "Reyes", PositionID: fixturePositionID, UnitID: f.unit, Active: true}
		s.crimeTypes[fixtureCrimeTypeID] = models.CrimeType{ID: fixtureCrimeTypeID, Name: "Extorsión", Active: true}
		s.users[f.analyst] = models.User{ID: f.analyst, Name: "Ana Analista", Active: true}
		s.users[f.reviewer] = models.User{ID: f.reviewer, Name: "Luis Jefe", Active: true}
		s.registry["0801199900001"] = models.FlaggedPerson{
			ID: fixtureFlaggedID, FirstName: "Juan", LastName: "Perez", NationalID: "0801199900001",
			CriminalGroup: strPtr("MS-13"), CriminalStructure: strPtr("Clica Los Locos"), Observations: strPtr("Tatuajes visibles"), Active: true,
		}
		s.registry["0501198800002"] = models.FlaggedPerson{
			ID: fixtureInactiveID, FirstName: "Pedro", LastName: "Lopez", NationalID: "0501198800002",
			CriminalGroup: strPtr("Barrio 18"), Active: false,
		}
	})
	return f
}

// addRequest seeds a request with persons carrying the given national ids.
func (f *fixture) addRequest(status models.RequestStatus, nationalIDs ...string) string {
	id := uuid.NewString()
	f.db.seed(func(s *memState) {
		s.requests[id] = models.Request{
			ID: id, ReceivedAt: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), InstitutionID: f.institution,
			AgentID: f.agent, Status: status, RegisteredBy: f.analyst, CreatedAt: time.Now(),
		}
		for i, nid := range nationalIDs {
			pid := uuid.NewString()
			s.persons[pid] = models.RequestedPerson{
				ID: pid, RequestID: id, FirstName: fmt.Sprintf("Persona%d", i), LastName: "Solicitada", NationalID: nid, Position: i,
			}
		}
	})
	return id
}

func (f *fixture) resultsFor(responseID string) []models.CrossReferenceResult {
	state := f.db.snapshot()
	var out []models.CrossReferenceResult
	for _, r := range state.results {
		if r.ResponseID == responseID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
