package plans

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/mihaigidu/FitGenius/internal/ai"
	"github.com/mihaigidu/FitGenius/internal/auth"
	"github.com/mihaigidu/FitGenius/internal/export"
	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/storage/memory"
)

func newTestMux(c *Controller) *http.ServeMux {
	h := NewHandler(c)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/plans/generate", h.HandleGenerate)
	mux.HandleFunc("GET /v1/plans/current", h.HandleCurrent)
	mux.HandleFunc("DELETE /v1/plans/current", h.HandleClear)
	mux.HandleFunc("GET /v1/plans/today", h.HandleToday)
	mux.HandleFunc("GET /v1/plans/export.xlsx", h.HandleWorkbook)
	return mux
}

func doRequest(mux http.Handler, method, path, owner string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if owner != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), owner))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error.Code
}

func TestHandleGenerateAndCurrent(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatJSON)
	mux := newTestMux(c)

	rr := doRequest(mux, http.MethodPost, "/v1/plans/generate", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var started View
	json.NewDecoder(rr.Body).Decode(&started)
	if started.State != StateLoading || started.StartedAt == nil {
		t.Fatalf("unexpected generate response %+v", started)
	}

	c.Wait(context.Background())

	rr = doRequest(mux, http.MethodGet, "/v1/plans/current", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var view View
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if view.State != StateReady || view.Plan == nil || view.Plan.Workout == nil {
		t.Fatalf("expected ready json plan, got %+v", view)
	}
	if view.Plan.Workout.Week[0].Day != "Lunes" {
		t.Errorf("expected Lunes first, got %q", view.Plan.Workout.Week[0].Day)
	}
}

func TestHandleGenerateConflict(t *testing.T) {
	provider := &scriptedProvider{
		results: []fakeResult{{text: mockText(t, plan.FormatJSON)}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c := newTestController(t, provider, memory.NewPlansMemoryStorage(), plan.FormatJSON)
	mux := newTestMux(c)

	if rr := doRequest(mux, http.MethodPost, "/v1/plans/generate", "email:ana@example.com"); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	<-provider.started

	rr := doRequest(mux, http.MethodPost, "/v1/plans/generate", "email:ana@example.com")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "generation_in_progress" {
		t.Errorf("unexpected code %q", code)
	}

	// Another account is not blocked.
	if rr := doRequest(mux, http.MethodPost, "/v1/plans/generate", "email:luis@example.com"); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for second account, got %d", rr.Code)
	}

	rr = doRequest(mux, http.MethodDelete, "/v1/plans/current", "email:ana@example.com")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected clear to conflict while loading, got %d", rr.Code)
	}

	close(provider.gate)
	c.Wait(context.Background())
}

func TestHandleTodayWithoutPlan(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatJSON)
	mux := newTestMux(c)

	rr := doRequest(mux, http.MethodGet, "/v1/plans/today", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "no_plan" {
		t.Errorf("unexpected code %q", code)
	}

	rr = doRequest(mux, http.MethodGet, "/v1/plans/current", "")
	var view View
	json.NewDecoder(rr.Body).Decode(&view)
	if view.State != StateIdle {
		t.Errorf("expected idle, got %s", view.State)
	}
}

func TestHandleToday(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatJSON)
	mux := newTestMux(c)
	doRequest(mux, http.MethodPost, "/v1/plans/generate", "")
	c.Wait(context.Background())

	rr := doRequest(mux, http.MethodGet, "/v1/plans/today", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var today TodayView
	json.NewDecoder(rr.Body).Decode(&today)
	if today.Date != "2024-01-01" || today.Weekday != "Lunes" {
		t.Fatalf("unexpected today %+v", today)
	}
	if today.Workout == nil || len(today.Workout.Exercises) != 4 {
		t.Fatalf("expected Monday workout with 4 exercises, got %+v", today.Workout)
	}
	if today.HighlightMeal != 0 {
		t.Errorf("expected breakfast highlighted, got %d", today.HighlightMeal)
	}
}

func TestHandleClear(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatJSON)
	mux := newTestMux(c)
	doRequest(mux, http.MethodPost, "/v1/plans/generate", "")
	c.Wait(context.Background())

	if rr := doRequest(mux, http.MethodDelete, "/v1/plans/current", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := doRequest(mux, http.MethodGet, "/v1/plans/today", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after clear, got %d", rr.Code)
	}
}

func TestHandleWorkbook(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatJSON)
	mux := newTestMux(c)
	doRequest(mux, http.MethodPost, "/v1/plans/generate", "")
	c.Wait(context.Background())

	rr := doRequest(mux, http.MethodGet, "/v1/plans/export.xlsx", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != "attachment; filename="+workbookFilename {
		t.Errorf("unexpected content disposition %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != export.SheetWorkout || sheets[1] != export.SheetNutrition {
		t.Fatalf("unexpected sheets %v", sheets)
	}
}

func TestHandleWorkbookProse(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatProse)
	mux := newTestMux(c)
	doRequest(mux, http.MethodPost, "/v1/plans/generate", "")
	c.Wait(context.Background())

	rr := doRequest(mux, http.MethodGet, "/v1/plans/export.xlsx", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "plan_not_exportable" {
		t.Errorf("unexpected code %q", code)
	}
}

func TestHandleWorkbookWithoutPlan(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatJSON)
	mux := newTestMux(c)

	if rr := doRequest(mux, http.MethodGet, "/v1/plans/export.xlsx", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
