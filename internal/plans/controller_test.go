package plans

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mihaigidu/FitGenius/internal/ai"
	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/storage"
	"github.com/mihaigidu/FitGenius/internal/storage/memory"
)

// Monday.
var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type staticProfiles struct{}

func (staticProfiles) Load(ctx context.Context, ownerUserID string) (*storage.Profile, error) {
	return &storage.Profile{OwnerUserID: ownerUserID, Name: "Ana", Age: 30, WeightKg: 60, HeightCm: 165, Goal: "Mantener Forma"}, nil
}

type fakeResult struct {
	text string
	err  error
}

// scriptedProvider replays results in order; the last one repeats. A non-nil gate blocks
// every call until it is closed.
type scriptedProvider struct {
	mu       sync.Mutex
	results  []fakeResult
	calls    int
	inFlight int
	maxSeen  int
	gate     chan struct{}
	started  chan struct{}
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResult, error) {
	p.mu.Lock()
	idx := p.calls
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	res := p.results[idx]
	p.calls++
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	gate, started := p.gate, p.started
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ai.CompletionResult{}, &ai.TransportError{Err: ctx.Err()}
		}
	}
	if res.err != nil {
		return ai.CompletionResult{}, res.err
	}
	return ai.CompletionResult{Text: res.text, Model: "scripted"}, nil
}

func mockText(t *testing.T, format plan.Format) string {
	t.Helper()
	res, err := ai.NewMockProvider().Complete(context.Background(), ai.CompletionRequest{Format: string(format)})
	if err != nil {
		t.Fatal(err)
	}
	return res.Text
}

func newTestController(t *testing.T, provider ai.Provider, store storage.PlansStorage, format plan.Format) *Controller {
	t.Helper()
	c, err := NewController(provider, staticProfiles{}, store, Options{
		Format:        format,
		Timeout:       5 * time.Second,
		MaxConcurrent: 2,
		CacheSize:     8,
		Location:      time.UTC,
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return testNow }
	return c
}

func generateAndWait(t *testing.T, c *Controller, owner string) View {
	t.Helper()
	ctx := context.Background()
	view, err := c.Generate(ctx, owner)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if view.State != StateLoading {
		t.Fatalf("expected loading, got %s", view.State)
	}
	if err := c.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	current, err := c.Current(ctx, owner)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	return current
}

func TestGenerateJSONPlan(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatJSON)

	view := generateAndWait(t, c, "u1")
	if view.State != StateReady || view.Plan == nil {
		t.Fatalf("expected ready plan, got %+v", view)
	}
	if view.Plan.Workout == nil || len(view.Plan.Workout.Week) != 7 {
		t.Fatal("expected 7 workout days")
	}

	want := []int{4, 3, 0, 4, 3, 2, 0}
	for i, day := range view.Plan.Workout.Week {
		if len(day.Exercises) != want[i] {
			t.Errorf("day %d: expected %d exercises, got %d", i, want[i], len(day.Exercises))
		}
	}
	if !view.Plan.Exportable {
		t.Error("json plan should be exportable")
	}
}

func TestGenerateProsePlan(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatProse)

	view := generateAndWait(t, c, "u1")
	if view.State != StateReady {
		t.Fatalf("expected ready, got %s", view.State)
	}
	if len(view.Plan.RoutineDays) != 7 || len(view.Plan.DietDays) != 7 {
		t.Fatalf("expected 7+7 days, got %d+%d", len(view.Plan.RoutineDays), len(view.Plan.DietDays))
	}
	if view.Plan.RoutineDays[0].Title != "Día 1: Pecho y Tríceps" {
		t.Errorf("unexpected first title %q", view.Plan.RoutineDays[0].Title)
	}
	if view.Plan.Exportable {
		t.Error("prose plan must not be exportable")
	}

	if _, _, _, err := c.Exportable(context.Background(), "u1"); err != ErrNotExportable {
		t.Fatalf("expected ErrNotExportable, got %v", err)
	}
}

func TestGenerateWhileLoadingConflicts(t *testing.T) {
	provider := &scriptedProvider{
		results: []fakeResult{{text: mockText(t, plan.FormatJSON)}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c := newTestController(t, provider, memory.NewPlansMemoryStorage(), plan.FormatJSON)
	ctx := context.Background()

	if _, err := c.Generate(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	<-provider.started

	if _, err := c.Generate(ctx, "u1"); err != ErrGenerationInProgress {
		t.Fatalf("expected ErrGenerationInProgress, got %v", err)
	}
	if err := c.Clear(ctx, "u1"); err != ErrGenerationInProgress {
		t.Fatalf("expected clear to be refused while loading, got %v", err)
	}
	if _, err := c.Today(ctx, "u1"); err != ErrGenerationInProgress {
		t.Fatalf("expected today to report loading, got %v", err)
	}

	view, _ := c.Current(ctx, "u1")
	if view.State != StateLoading || view.StartedAt == nil {
		t.Fatalf("expected loading view, got %+v", view)
	}

	close(provider.gate)
	c.Wait(ctx)

	view, _ = c.Current(ctx, "u1")
	if view.State != StateReady {
		t.Fatalf("expected ready after release, got %s", view.State)
	}
	if provider.calls != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", provider.calls)
	}
}

func TestFailedGenerationIsRetryable(t *testing.T) {
	provider := &scriptedProvider{results: []fakeResult{
		{err: &ai.UpstreamError{Status: 500, Message: "rate limited"}},
		{text: mockText(t, plan.FormatJSON)},
	}}
	c := newTestController(t, provider, memory.NewPlansMemoryStorage(), plan.FormatJSON)

	view := generateAndWait(t, c, "u1")
	if view.State != StateFailed || view.Error == nil {
		t.Fatalf("expected failed state, got %+v", view)
	}
	if view.Error.Code != "upstream_error" || !strings.Contains(view.Error.Message, "rate limited") {
		t.Errorf("unexpected failure %+v", view.Error)
	}
	if !view.Error.Retryable {
		t.Error("failures must be retryable")
	}

	view = generateAndWait(t, c, "u1")
	if view.State != StateReady {
		t.Fatalf("expected retry to succeed, got %s", view.State)
	}
}

func TestFailureHidesPreviousPlan(t *testing.T) {
	store := memory.NewPlansMemoryStorage()
	provider := &scriptedProvider{results: []fakeResult{
		{text: mockText(t, plan.FormatJSON)},
		{err: ai.ErrNoChoices},
	}}
	c := newTestController(t, provider, store, plan.FormatJSON)

	if view := generateAndWait(t, c, "u1"); view.State != StateReady {
		t.Fatalf("expected first generation ready, got %s", view.State)
	}

	view := generateAndWait(t, c, "u1")
	if view.State != StateFailed || view.Plan != nil {
		t.Fatalf("expected failed without plan, got %+v", view)
	}
	if view.Error.Code != "empty_response" || view.Error.Message != "no response generated" {
		t.Errorf("unexpected failure %+v", view.Error)
	}
	if _, err := store.GetLatestPlan(context.Background(), "u1"); err != storage.ErrNotFound {
		t.Fatalf("previous plan should be gone, got %v", err)
	}
	if _, err := c.Today(context.Background(), "u1"); err != ErrNoPlan {
		t.Fatalf("expected ErrNoPlan, got %v", err)
	}
}

func TestParseFailureMessage(t *testing.T) {
	provider := &scriptedProvider{results: []fakeResult{{text: `{"rutina": {"semana": [` + "\n" + `Lo siento, no puedo.`}}}
	c := newTestController(t, provider, memory.NewPlansMemoryStorage(), plan.FormatJSON)

	view := generateAndWait(t, c, "u1")
	if view.State != StateFailed {
		t.Fatalf("expected failed, got %s", view.State)
	}
	if view.Error.Code != "parse_error" || view.Error.Message != msgParse {
		t.Fatalf("unexpected failure %+v", view.Error)
	}
	if strings.Contains(view.Error.Message, "rutina") {
		t.Error("raw text leaked into the user message")
	}
}

func TestEmptyWeekIsParseFailure(t *testing.T) {
	provider := &scriptedProvider{results: []fakeResult{{text: `{"rutina":{"semana":[]},"dieta":{"semana":[]}}`}}}
	c := newTestController(t, provider, memory.NewPlansMemoryStorage(), plan.FormatJSON)

	view := generateAndWait(t, c, "u1")
	if view.State != StateFailed {
		t.Fatalf("expected failed, got %s", view.State)
	}
	if view.Error.Code != "parse_error" || !view.Error.Retryable {
		t.Fatalf("unexpected failure %+v", view.Error)
	}
	if _, err := c.Today(context.Background(), "u1"); err != ErrNoPlan {
		t.Fatalf("expected ErrNoPlan, got %v", err)
	}
}

func TestNetworkFailureMessage(t *testing.T) {
	provider := &scriptedProvider{results: []fakeResult{{err: &ai.TransportError{Err: context.DeadlineExceeded}}}}
	c := newTestController(t, provider, memory.NewPlansMemoryStorage(), plan.FormatJSON)

	view := generateAndWait(t, c, "u1")
	if view.Error == nil || view.Error.Code != "connection_error" || view.Error.Message != msgTimeout {
		t.Fatalf("unexpected failure %+v", view.Error)
	}
}

func TestTodayStructured(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatJSON)
	generateAndWait(t, c, "u1")

	// Wednesday evening: rest day, dinner.
	c.now = func() time.Time { return time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC) }

	today, err := c.Today(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if today.Weekday != "Miércoles" || today.RoutineIndex != 2 || today.DietIndex != 2 {
		t.Fatalf("unexpected today %+v", today)
	}
	if today.Workout == nil || !today.Workout.IsRestDay() {
		t.Fatal("expected Wednesday rest day")
	}
	if today.MealWindow != plan.MealDinner || today.HighlightMeal != 3 {
		t.Fatalf("expected dinner highlight at 3, got %s/%d", today.MealWindow, today.HighlightMeal)
	}
	if today.RoutineDay != nil || today.DietDay != nil {
		t.Error("structured plans must not fill prose days")
	}
}

func TestTodayProse(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatProse)
	generateAndWait(t, c, "u1")

	today, err := c.Today(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if today.RoutineDay == nil || !strings.HasPrefix(today.RoutineDay.Title, "Día 1") {
		t.Fatalf("expected Día 1 on Monday, got %+v", today.RoutineDay)
	}
	if today.DietDay == nil || !strings.HasPrefix(today.DietDay.Title, "Lunes") {
		t.Fatalf("expected Lunes diet, got %+v", today.DietDay)
	}
	if today.MealWindow != plan.MealBreakfast || today.HighlightLine != 0 {
		t.Fatalf("expected breakfast on line 0, got %s/%d", today.MealWindow, today.HighlightLine)
	}
}

func TestClearReturnsToIdle(t *testing.T) {
	c := newTestController(t, ai.NewMockProvider(), memory.NewPlansMemoryStorage(), plan.FormatJSON)
	generateAndWait(t, c, "u1")

	if err := c.Clear(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	view, _ := c.Current(context.Background(), "u1")
	if view.State != StateIdle {
		t.Fatalf("expected idle, got %s", view.State)
	}
}

func TestStoredPlanSurvivesRestart(t *testing.T) {
	store := memory.NewPlansMemoryStorage()
	first := newTestController(t, ai.NewMockProvider(), store, plan.FormatJSON)
	generateAndWait(t, first, "u1")

	second := newTestController(t, ai.NewMockProvider(), store, plan.FormatJSON)
	view, err := second.Current(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if view.State != StateReady || view.Plan.Workout == nil {
		t.Fatalf("expected stored plan to be parsed again, got %+v", view)
	}
}

func TestUpstreamConcurrencyBound(t *testing.T) {
	provider := &scriptedProvider{results: []fakeResult{{text: mockText(t, plan.FormatJSON)}}}
	c, err := NewController(provider, staticProfiles{}, memory.NewPlansMemoryStorage(), Options{
		Format:        plan.FormatJSON,
		Timeout:       5 * time.Second,
		MaxConcurrent: 1,
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for _, owner := range []string{"a", "b", "c", "d"} {
		if _, err := c.Generate(ctx, owner); err != nil {
			t.Fatal(err)
		}
	}
	c.Wait(ctx)

	if provider.maxSeen != 1 {
		t.Fatalf("expected at most one upstream call at a time, saw %d", provider.maxSeen)
	}
	for _, owner := range []string{"a", "b", "c", "d"} {
		if view, _ := c.Current(ctx, owner); view.State != StateReady {
			t.Errorf("%s: expected ready, got %s", owner, view.State)
		}
	}
}
