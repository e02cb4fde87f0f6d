package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"care-match/internal/domain"
	"care-match/internal/service"
)

type fakeRecommender struct {
	lastPatient string
	lastLimit   int
	results     []domain.CompatibilityResult
	err         error
}

func (f *fakeRecommender) Recommend(_ context.Context, patientID string, limit int) ([]domain.CompatibilityResult, error) {
	f.lastPatient, f.lastLimit = patientID, limit
	return f.results, f.err
}

type fakeMatches struct {
	lastReason string
	rec        domain.MatchRecord
	views      []domain.MatchView
	entries    []domain.MatchHistoryEntry
	err        error
}

func (f *fakeMatches) Create(_ context.Context, patientID, caregiverID string) (domain.MatchRecord, error) {
	if f.err != nil {
		return domain.MatchRecord{}, f.err
	}
	rec := f.rec
	rec.PatientID, rec.CaregiverID = patientID, caregiverID
	return rec, nil
}

func (f *fakeMatches) Cancel(_ context.Context, matchID, reason string) (domain.MatchRecord, error) {
	f.lastReason = reason
	return f.rec, f.err
}

func (f *fakeMatches) Complete(_ context.Context, matchID, reason string) (domain.MatchRecord, error) {
	f.lastReason = reason
	return f.rec, f.err
}

func (f *fakeMatches) History(context.Context, string) ([]domain.MatchView, error) {
	return f.views, f.err
}

func (f *fakeMatches) Entries(context.Context, string) ([]domain.MatchHistoryEntry, error) {
	return f.entries, f.err
}

type fakeEvaluator struct {
	start, end time.Time
	err        error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, start, end time.Time) (domain.PerformanceSummary, error) {
	f.start, f.end = start, end
	if f.err != nil {
		return domain.PerformanceSummary{}, f.err
	}
	return domain.PerformanceSummary{Start: start, End: end, Count: 3, MeanScore: 80, Rating: domain.RatingGood}, nil
}

type fakeQuestionnaire struct {
	answers []int
	err     error
}

func (f *fakeQuestionnaire) Questions() []service.QuestionnaireItem {
	return []service.QuestionnaireItem{{Dimension: domain.DimensionEmpathy, Text: "q"}}
}

func (f *fakeQuestionnaire) SubmitAnswers(_ context.Context, ownerType, ownerID string, answers []int) (domain.PersonalityProfile, error) {
	f.answers = answers
	if f.err != nil {
		return domain.PersonalityProfile{}, f.err
	}
	return domain.PersonalityProfile{OwnerType: domain.OwnerType(ownerType), OwnerID: ownerID, Empathy: 50}, nil
}

type testDeps struct {
	ranking *fakeRecommender
	matches *fakeMatches
	eval    *fakeEvaluator
	quest   *fakeQuestionnaire
}

func setupRouter() (*gin.Engine, *testDeps) {
	gin.SetMode(gin.TestMode)
	deps := &testDeps{
		ranking: &fakeRecommender{},
		matches: &fakeMatches{rec: domain.MatchRecord{ID: "m1", Status: domain.MatchActive}},
		eval:    &fakeEvaluator{},
		quest:   &fakeQuestionnaire{},
	}
	logger := zap.NewNop()
	r := NewRouter(logger,
		NewMatchHandler(logger, deps.ranking, deps.matches),
		NewEvaluationHandler(logger, deps.eval),
		NewProfileHandler(logger, deps.quest),
	)
	return r, deps
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter()
	rec := performRequest(r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRecommendations(t *testing.T) {
	r, deps := setupRouter()
	deps.ranking.results = []domain.CompatibilityResult{{PatientID: "p1", CaregiverID: "c1", Score: 88, Grade: domain.GradeA}}

	rec := performRequest(r, http.MethodGet, "/patients/p1/recommendations?limit=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if deps.ranking.lastPatient != "p1" || deps.ranking.lastLimit != 3 {
		t.Fatalf("unexpected call %s/%d", deps.ranking.lastPatient, deps.ranking.lastLimit)
	}
	body := decodeBody(t, rec)
	if list, ok := body["recommendations"].([]any); !ok || len(list) != 1 {
		t.Fatalf("expected one recommendation, got %v", body["recommendations"])
	}

	rec = performRequest(r, http.MethodGet, "/patients/p1/recommendations", nil)
	if rec.Code != http.StatusOK || deps.ranking.lastLimit != 0 {
		t.Fatalf("expected default limit passthrough, got %d/%d", rec.Code, deps.ranking.lastLimit)
	}

	rec = performRequest(r, http.MethodGet, "/patients/p1/recommendations?limit=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	for _, raw := range []string{"0", "-2", ""} {
		deps.ranking.lastLimit = 99
		rec = performRequest(r, http.MethodGet, "/patients/p1/recommendations?limit="+raw, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("limit=%q: expected status 400, got %d", raw, rec.Code)
		}
		if code := decodeBody(t, rec)["code"]; code != string(domain.CodeInvalidInput) {
			t.Fatalf("limit=%q: expected INVALID_INPUT, got %v", raw, code)
		}
		if deps.ranking.lastLimit != 99 {
			t.Fatalf("limit=%q: recommender must not be called", raw)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrPatientNotFound, http.StatusNotFound},
		{domain.ErrProfileMissing, http.StatusNotFound},
		{domain.NewError(domain.CodeInvalidInput, "limit out of range"), http.StatusBadRequest},
		{domain.ErrInvalidProfile, http.StatusBadRequest},
		{domain.ErrNoEligibleCandidates, http.StatusUnprocessableEntity},
		{domain.ErrModelUnavailable, http.StatusServiceUnavailable},
		{domain.ErrTimeout, http.StatusGatewayTimeout},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r, deps := setupRouter()
		deps.ranking.err = tc.err
		rec := performRequest(r, http.MethodGet, "/patients/p1/recommendations", nil)
		if rec.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, rec.Code)
		}
		body := decodeBody(t, rec)
		if body["code"] != string(domain.CodeOf(tc.err)) {
			t.Fatalf("%v: expected code %s, got %v", tc.err, domain.CodeOf(tc.err), body["code"])
		}
	}

	r, deps := setupRouter()
	deps.ranking.err = domain.WrapError(domain.CodeInternal, "storage failure", errors.New("secret dsn host=db"))
	body := decodeBody(t, performRequest(r, http.MethodGet, "/patients/p1/recommendations", nil))
	if body["error"] != "storage failure" {
		t.Fatalf("internal details must not leak, got %v", body["error"])
	}
}

func TestCreateMatch(t *testing.T) {
	r, deps := setupRouter()
	rec := performRequest(r, http.MethodPost, "/matches", map[string]string{"patient_id": "p1", "caregiver_id": "c1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}

	rec = performRequest(r, http.MethodPost, "/matches", map[string]string{"patient_id": "p1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing caregiver, got %d", rec.Code)
	}

	deps.matches.err = domain.ErrDuplicateActiveMatch
	rec = performRequest(r, http.MethodPost, "/matches", map[string]string{"patient_id": "p1", "caregiver_id": "c1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
}

func TestMatchTransitions(t *testing.T) {
	r, deps := setupRouter()
	rec := performRequest(r, http.MethodPost, "/matches/m1/cancel", map[string]string{"reason": "moved away"})
	if rec.Code != http.StatusOK || deps.matches.lastReason != "moved away" {
		t.Fatalf("expected cancel with reason, got %d/%q", rec.Code, deps.matches.lastReason)
	}

	rec = performRequest(r, http.MethodPost, "/matches/m1/complete", nil)
	if rec.Code != http.StatusOK || deps.matches.lastReason != "" {
		t.Fatalf("expected complete without body, got %d/%q", rec.Code, deps.matches.lastReason)
	}

	deps.matches.err = domain.ErrAlreadyTerminal
	rec = performRequest(r, http.MethodPost, "/matches/m1/cancel", map[string]string{"reason": "again"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	deps.matches.err = domain.ErrMatchNotFound
	rec = performRequest(r, http.MethodGet, "/matches/missing/history", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestPatientMatches(t *testing.T) {
	r, deps := setupRouter()
	deps.matches.views = []domain.MatchView{{MatchRecord: domain.MatchRecord{ID: "m1"}}}
	rec := performRequest(r, http.MethodGet, "/patients/p1/matches", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if list, ok := decodeBody(t, rec)["matches"].([]any); !ok || len(list) != 1 {
		t.Fatalf("expected one match in body")
	}
}

func TestEvaluate(t *testing.T) {
	r, deps := setupRouter()
	rec := performRequest(r, http.MethodGet, "/evaluations?start=2026-01-01&end=2026-01-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	wantEnd := time.Date(2026, 1, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	if !deps.eval.end.Equal(wantEnd) {
		t.Fatalf("expected end of day, got %v", deps.eval.end)
	}

	rec = performRequest(r, http.MethodGet, "/evaluations?start=2026-01-01T00:00:00Z&end=2026-01-02T00:00:00Z", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for RFC3339, got %d", rec.Code)
	}

	rec = performRequest(r, http.MethodGet, "/evaluations?start=yesterday&end=2026-01-02", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	deps.eval.err = domain.NewError(domain.CodeInvalidInput, "start must not be after end")
	rec = performRequest(r, http.MethodGet, "/evaluations?start=2026-02-01&end=2026-01-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestSubmitAnswers(t *testing.T) {
	r, deps := setupRouter()
	answers := make([]int, 20)
	for i := range answers {
		answers[i] = 3
	}
	rec := performRequest(r, http.MethodPut, "/profiles/patient/p1/answers", map[string]any{"answers": answers})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if len(deps.quest.answers) != 20 {
		t.Fatalf("expected answers forwarded, got %d", len(deps.quest.answers))
	}

	rec = performRequest(r, http.MethodPut, "/profiles/patient/p1/answers", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without answers, got %d", rec.Code)
	}

	rec = performRequest(r, http.MethodGet, "/profiles/questions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
