package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/oficios-api/internal/dto"
	"github.com/noah-isme/oficios-api/internal/models"
	"github.com/noah-isme/oficios-api/internal/repository"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

type invalidatorStub struct {
	mu    sync.Mutex
	calls int
}

func (s *invalidatorStub) Invalidate(context.Context) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

type recorderStub struct {
	mu          sync.Mutex
	transitions []string
	failures    []string
}

func (r *recorderStub) RecordTransition(entity, status string) {
	r.mu.Lock()
	r.transitions = append(r.transitions, entity+":"+status)
	r.mu.Unlock()
}

func (r *recorderStub) RecordFailure(operation, code string) {
	r.mu.Lock()
	r.failures = append(r.failures, operation+":"+code)
	r.mu.Unlock()
}

func (r *recorderStub) ObserveUnitOfWork(string, time.Duration) {}

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, 5, 5, 10, 0, 0, 0, time.UTC) }
}

func newResponseService(f *fixture, clock func() time.Time) (*ResponseService, *invalidatorStub, *recorderStub) {
	cache := &invalidatorStub{}
	metrics := &recorderStub{}
	svc := NewResponseService(ResponseServiceParams{
		UnitOfWork:   f.db,
		Reads:        f.db.reads(),
		NumberPrefix: "RE",
		Logger:       zap.NewNop(),
		Cache:        cache,
		Metrics:      metrics,
		Clock:        clock,
	})
	return svc, cache, metrics
}

func (f *fixture) createResponse(t *testing.T, svc *ResponseService, requestID string) *models.Response {
	t.Helper()
	response, err := svc.Create(context.Background(), requestID, dto.CreateResponseRequest{
		ReviewerID:   f.reviewer,
		ResponseDate: "2024-05-05",
	}, f.analyst)
	require.NoError(t, err)
	return response
}

func TestResponseServiceCreateAllocatesSequentialNumbers(t *testing.T) {
	f := newFixture()
	svc, cache, metrics := newResponseService(f, fixedClock(2024))

	first := f.createResponse(t, svc, f.addRequest(models.RequestStatusPending, "0801199900001"))
	second := f.createResponse(t, svc, f.addRequest(models.RequestStatusPending, "9999999999999"))

	assert.Equal(t, "RE-1-2024", first.Number)
	assert.Equal(t, 1, first.Correlative)
	assert.Equal(t, 2024, first.Year)
	assert.Equal(t, "RE-2-2024", second.Number)
	assert.Equal(t, models.ResponseStatusDraft, second.Status)
	assert.Equal(t, 2, cache.calls)
	assert.Equal(t, []string{"response:draft", "response:draft"}, metrics.transitions)
}

func TestResponseServiceCreateRestartsNumberingPerYear(t *testing.T) {
	f := newFixture()
	svc2024, _, _ := newResponseService(f, fixedClock(2024))
	svc2025, _, _ := newResponseService(f, fixedClock(2025))

	f.createResponse(t, svc2024, f.addRequest(models.RequestStatusPending, "1"))
	f.createResponse(t, svc2024, f.addRequest(models.RequestStatusPending, "2"))
	next := f.createResponse(t, svc2025, f.addRequest(models.RequestStatusPending, "3"))

	assert.Equal(t, "RE-1-2025", next.Number)
	assert.Equal(t, 2, f.db.snapshot().sequences[2024])
}

func TestResponseServiceCreateStoresResultsAndMovesRequest(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "0801199900001", "1111111111111", "0501198800002")

	response := f.createResponse(t, svc, requestID)

	results := f.resultsFor(response.ID)
	require.Len(t, results, 3)
	assert.True(t, results[0].Found)
	require.NotNil(t, results[0].FlaggedPersonID)
	assert.Equal(t, fixtureFlaggedID, *results[0].FlaggedPersonID)
	assert.Equal(t, "MS-13", *results[0].Snapshot.CriminalGroup)
	assert.Equal(t, "Clica Los Locos", *results[0].Snapshot.CriminalStructure)
	assert.False(t, results[1].Found)
	assert.Nil(t, results[1].FlaggedPersonID)
	assert.True(t, results[1].Snapshot.Empty())
	// inactive registry entries still match
	assert.True(t, results[2].Found)

	state := f.db.snapshot()
	assert.Equal(t, models.RequestStatusInProgress, state.requests[requestID].Status)
	actions := make([]string, len(state.audits))
	for i, entry := range state.audits {
		actions[i] = entry.Action
	}
	assert.Equal(t, []string{models.AuditActionCorrelativeAllocated, models.AuditActionResponseCreate}, actions)
}

func TestResponseServiceCreateRejectsSecondResponse(t *testing.T) {
	f := newFixture()
	svc, _, metrics := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "1")
	f.createResponse(t, svc, requestID)

	_, err := svc.Create(context.Background(), requestID, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-06"}, f.analyst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, 1, f.db.snapshot().sequences[2024])
	assert.Contains(t, metrics.failures, "response_create:CONFLICT")
}

func TestResponseServiceCreateReusedCorrelativeConflicts(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "1")
	f.db.seed(func(s *memState) {
		s.responses["imported"] = models.Response{ID: "imported", RequestID: "legacy", Number: "LEGACY-1", Correlative: 1, Year: 2024}
	})

	_, err := svc.Create(context.Background(), requestID, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-05"}, f.analyst)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "response number already allocated", appErr.Message)
	assert.Equal(t, models.RequestStatusPending, f.db.snapshot().requests[requestID].Status)
}

func TestResponseServiceCreateConcurrentSameRequest(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "0801199900001")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), requestID, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-05"}, f.analyst)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, appErrors.ErrConflict), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
	state := f.db.snapshot()
	assert.Len(t, state.responses, 1)
	assert.Equal(t, 1, state.sequences[2024])
}

func TestResponseServiceCreateConcurrentDistinctRequests(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))

	const workers = 10
	ids := make([]string, workers)
	for i := range ids {
		ids[i] = f.addRequest(models.RequestStatusPending, "1")
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), id, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-05"}, f.analyst)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	seen := map[int]bool{}
	for _, response := range f.db.snapshot().responses {
		assert.False(t, seen[response.Correlative], "duplicate correlative %d", response.Correlative)
		seen[response.Correlative] = true
	}
	for i := 1; i <= workers; i++ {
		assert.True(t, seen[i], "missing correlative %d", i)
	}
}

func TestResponseServiceCreateRollsBackOnResultFailure(t *testing.T) {
	f := newFixture()
	svc, cache, _ := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "0801199900001")
	f.db.fail["responses.InsertResults"] = errors.New("disk full")

	_, err := svc.Create(context.Background(), requestID, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-05"}, f.analyst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPersistence))

	state := f.db.snapshot()
	assert.Empty(t, state.responses)
	assert.Empty(t, state.results)
	assert.Empty(t, state.audits)
	assert.Equal(t, 0, state.sequences[2024])
	assert.Equal(t, models.RequestStatusPending, state.requests[requestID].Status)
	assert.Zero(t, cache.calls)
}

func TestResponseServiceCreateRegistryFailureIsNotAMiss(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "0801199900001")
	f.db.fail["registry.FindByNationalIDs"] = errors.New("connection reset")

	_, err := svc.Create(context.Background(), requestID, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-05"}, f.analyst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPersistence))
	assert.Empty(t, f.db.snapshot().responses)
}

func TestResponseServiceCreateCommitConflict(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "1")
	f.db.commitErr = &repository.UniqueViolationError{Constraint: repository.ConstraintResponseRequest}

	_, err := svc.Create(context.Background(), requestID, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-05"}, f.analyst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestResponseServiceCreateValidation(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	pending := f.addRequest(models.RequestStatusPending, "1")
	empty := f.addRequest(models.RequestStatusPending)

	cases := []struct {
		name      string
		requestID string
		req       dto.CreateResponseRequest
		analyst   string
		kind      *appErrors.Error
	}{
		{"missing reviewer", pending, dto.CreateResponseRequest{ResponseDate: "2024-05-05"}, f.analyst, appErrors.ErrValidation},
		{"bad date", pending, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "05/05/2024"}, f.analyst, appErrors.ErrValidation},
		{"unknown reviewer", pending, dto.CreateResponseRequest{ReviewerID: fixtureMissingID, ResponseDate: "2024-05-05"}, f.analyst, appErrors.ErrValidation},
		{"malformed reviewer", pending, dto.CreateResponseRequest{ReviewerID: "nobody", ResponseDate: "2024-05-05"}, f.analyst, appErrors.ErrValidation},
		{"unknown analyst", pending, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-05"}, "ghost", appErrors.ErrValidation},
		{"missing request", "missing", dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-05"}, f.analyst, appErrors.ErrNotFound},
		{"no persons", empty, dto.CreateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-05"}, f.analyst, appErrors.ErrInvalidState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.requestID, tc.req, tc.analyst)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
	assert.Equal(t, 0, f.db.snapshot().sequences[2024])
}

func TestResponseServiceSnapshotSurvivesRegistryEdits(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	response := f.createResponse(t, svc, f.addRequest(models.RequestStatusPending, "0801199900001"))

	f.db.seed(func(s *memState) {
		entry := s.registry["0801199900001"]
		entry.CriminalGroup = strPtr("Barrio 18")
		entry.Observations = nil
		s.registry["0801199900001"] = entry
	})

	detail, err := svc.Get(context.Background(), response.ID)
	require.NoError(t, err)
	require.Len(t, detail.Results, 1)
	assert.Equal(t, "MS-13", *detail.Results[0].Snapshot.CriminalGroup)
	assert.Equal(t, "Tatuajes visibles", *detail.Results[0].Snapshot.Observations)
}

func TestResponseServiceGetHydratesDetail(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "1111111111111", "0801199900001")
	response := f.createResponse(t, svc, requestID)

	detail, err := svc.Get(context.Background(), response.ID)
	require.NoError(t, err)
	assert.Equal(t, "RE-1-2024", detail.Response.Number)
	require.NotNil(t, detail.Institution)
	assert.Equal(t, "Ministerio Público", detail.Institution.Name)
	require.NotNil(t, detail.Agent)
	require.NotNil(t, detail.Position)
	assert.Equal(t, "Fiscal Auxiliar", detail.Position.Name)
	assert.Nil(t, detail.Unit)
	assert.Nil(t, detail.CrimeType)
	require.NotNil(t, detail.Reviewer)
	assert.Equal(t, "Luis Jefe", detail.Reviewer.Name)
	require.Len(t, detail.Results, 2)
	assert.Equal(t, "Persona0", detail.Results[0].Person.FirstName)
	assert.False(t, detail.Results[0].Found)
	assert.True(t, detail.Results[1].Found)

	_, err = svc.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestResponseServiceFinalize(t *testing.T) {
	f := newFixture()
	svc, _, metrics := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "1")
	response := f.createResponse(t, svc, requestID)

	finalized, err := svc.Finalize(context.Background(), response.ID, dto.FinalizeResponseRequest{Status: models.ResponseStatusSigned}, f.reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseStatusSigned, finalized.Status)
	state := f.db.snapshot()
	assert.Equal(t, models.RequestStatusAnswered, state.requests[requestID].Status)
	assert.Contains(t, metrics.transitions, "response:signed")

	_, err = svc.Finalize(context.Background(), response.ID, dto.FinalizeResponseRequest{Status: models.ResponseStatusSent}, f.reviewer)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
}

func TestResponseServiceFinalizeRejectsBadTargets(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	response := f.createResponse(t, svc, f.addRequest(models.RequestStatusPending, "1"))

	_, err := svc.Finalize(context.Background(), response.ID, dto.FinalizeResponseRequest{}, f.reviewer)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.Finalize(context.Background(), response.ID, dto.FinalizeResponseRequest{Status: "archived"}, f.reviewer)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.Finalize(context.Background(), response.ID, dto.FinalizeResponseRequest{Status: models.ResponseStatusDraft}, f.reviewer)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	_, err = svc.Finalize(context.Background(), "missing", dto.FinalizeResponseRequest{Status: models.ResponseStatusSent}, f.reviewer)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestResponseServiceFinalizeRollsBackWhenRequestMoved(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "1")
	response := f.createResponse(t, svc, requestID)
	f.db.seed(func(s *memState) {
		request := s.requests[requestID]
		request.Status = models.RequestStatusPending
		s.requests[requestID] = request
	})

	_, err := svc.Finalize(context.Background(), response.ID, dto.FinalizeResponseRequest{Status: models.ResponseStatusSent}, f.reviewer)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	assert.Equal(t, models.ResponseStatusDraft, f.db.snapshot().responses[response.ID].Status)
}

func TestResponseServiceSend(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	response := f.createResponse(t, svc, f.addRequest(models.RequestStatusPending, "1"))

	_, err := svc.Send(context.Background(), response.ID, f.reviewer)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	_, err = svc.Finalize(context.Background(), response.ID, dto.FinalizeResponseRequest{Status: models.ResponseStatusSigned}, f.reviewer)
	require.NoError(t, err)
	sent, err := svc.Send(context.Background(), response.ID, f.reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseStatusSent, sent.Status)

	state := f.db.snapshot()
	assert.Equal(t, models.AuditActionResponseSend, state.audits[len(state.audits)-1].Action)
}

func TestResponseServiceUpdate(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	response := f.createResponse(t, svc, f.addRequest(models.RequestStatusPending, "1"))

	updated, err := svc.Update(context.Background(), response.ID, dto.UpdateResponseRequest{
		ReviewerID:   f.analyst,
		ResponseDate: "2024-05-07",
		Content:      "  Sin novedad  ",
	}, f.analyst)
	require.NoError(t, err)
	assert.Equal(t, f.analyst, updated.ReviewerID)
	assert.Equal(t, "Sin novedad", *updated.Content)
	assert.Equal(t, "RE-1-2024", updated.Number)

	_, err = svc.Finalize(context.Background(), response.ID, dto.FinalizeResponseRequest{Status: models.ResponseStatusSent}, f.reviewer)
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), response.ID, dto.UpdateResponseRequest{ReviewerID: f.reviewer, ResponseDate: "2024-05-07"}, f.analyst)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
}

func TestResponseServiceDeleteDraft(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	requestID := f.addRequest(models.RequestStatusPending, "0801199900001")
	response := f.createResponse(t, svc, requestID)

	require.NoError(t, svc.Delete(context.Background(), response.ID, f.analyst))

	state := f.db.snapshot()
	assert.Empty(t, state.responses)
	assert.Empty(t, state.results)
	assert.Equal(t, models.RequestStatusPending, state.requests[requestID].Status)

	// the correlative is consumed even though the draft is gone
	again := f.createResponse(t, svc, requestID)
	assert.Equal(t, "RE-2-2024", again.Number)
}

func TestResponseServiceDeleteFinalizedFails(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	response := f.createResponse(t, svc, f.addRequest(models.RequestStatusPending, "1"))
	_, err := svc.Finalize(context.Background(), response.ID, dto.FinalizeResponseRequest{Status: models.ResponseStatusSigned}, f.reviewer)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), response.ID, f.analyst)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	assert.Len(t, f.resultsFor(response.ID), 1)

	err = svc.Delete(context.Background(), "missing", f.analyst)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestResponseServiceList(t *testing.T) {
	f := newFixture()
	svc, _, _ := newResponseService(f, fixedClock(2024))
	f.createResponse(t, svc, f.addRequest(models.RequestStatusPending, "1"))
	f.createResponse(t, svc, f.addRequest(models.RequestStatusPending, "2"))

	items, page, err := svc.List(context.Background(), dto.ResponseQuery{Status: []models.ResponseStatus{models.ResponseStatusDraft}, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "RE-2-2024", items[0].Number)

	_, _, err = svc.List(context.Background(), dto.ResponseQuery{Status: []models.ResponseStatus{"bogus"}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
