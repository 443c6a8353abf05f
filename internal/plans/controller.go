// Package plans owns plan generation for each account: the request to the completion
// backend, the parsed result and the state the client polls.
package plans

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/mihaigidu/FitGenius/internal/ai"
	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/prompt"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

var (
	ErrGenerationInProgress = errors.New("generation already in progress")
	ErrNoPlan               = errors.New("no plan generated yet")
	ErrNotExportable        = errors.New("plan has no structured data to export")
)

const rawLogLimit = 2000

// ProfileLoader returns the profile a generation is built from.
type ProfileLoader interface {
	Load(ctx context.Context, ownerUserID string) (*storage.Profile, error)
}

type Options struct {
	Format        plan.Format
	Timeout       time.Duration // whole budget of one generation, queueing included
	MaxConcurrent int           // upstream calls in flight across all accounts
	CacheSize     int
	Location      *time.Location // calendar used by the today view
}

// session is the in-memory state of one account. Plans themselves live in storage.
type session struct {
	state     State
	startedAt time.Time
	failure   *Failure
}

// Controller runs at most one generation per account and bounds upstream concurrency.
type Controller struct {
	provider ai.Provider
	profiles ProfileLoader
	store    storage.PlansStorage
	opts     Options
	sem      *semaphore.Weighted
	cache    *lru.Cache[uuid.UUID, *plan.Plan]
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

func NewController(provider ai.Provider, profiles ProfileLoader, store storage.PlansStorage, opts Options, logger zerolog.Logger) (*Controller, error) {
	if opts.Format == "" {
		opts.Format = plan.FormatJSON
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	cache, err := lru.New[uuid.UUID, *plan.Plan](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("plan cache: %w", err)
	}

	return &Controller{
		provider: provider,
		profiles: profiles,
		store:    store,
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		cache:    cache,
		logger:   logger.With().Str("component", "plans").Logger(),
		now:      time.Now,
		sessions: make(map[string]*session),
	}, nil
}

// Generate starts a generation in the background and returns the loading view.
// The previous plan is dropped up front, so a failure leaves no stale plan behind.
func (c *Controller) Generate(ctx context.Context, ownerUserID string) (View, error) {
	profile, err := c.profiles.Load(ctx, ownerUserID)
	if err != nil {
		return View{}, fmt.Errorf("load profile: %w", err)
	}

	c.mu.Lock()
	s := c.sessionLocked(ownerUserID)
	if s.state == StateLoading {
		c.mu.Unlock()
		return View{}, ErrGenerationInProgress
	}
	started := c.now().UTC()
	s.state, s.startedAt, s.failure = StateLoading, started, nil
	c.mu.Unlock()

	if err := c.dropPlan(ctx, ownerUserID); err != nil {
		c.finish(ownerUserID, StateFailed, describeFailure(err))
		return View{}, err
	}

	c.wg.Add(1)
	go c.run(context.WithoutCancel(ctx), ownerUserID, *profile)

	return View{State: StateLoading, StartedAt: &started}, nil
}

func (c *Controller) run(ctx context.Context, ownerUserID string, profile storage.Profile) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	logger := c.logger.With().Str("owner", ownerUserID).Str("provider", c.provider.Name()).Logger()
	begin := time.Now()

	record, parsed, err := c.generate(ctx, ownerUserID, profile, logger)
	if err != nil {
		failure := describeFailure(err)
		logger.Warn().Err(err).Str("kind", failure.Kind).Dur("elapsed", time.Since(begin)).Msg("plan generation failed")
		c.finish(ownerUserID, StateFailed, failure)
		return
	}

	c.cache.Add(record.ID, parsed)
	logger.Info().Str("plan_id", record.ID.String()).Str("format", record.Format).
		Dur("elapsed", time.Since(begin)).Msg("plan generated")
	c.finish(ownerUserID, StateReady, nil)
}

func (c *Controller) generate(ctx context.Context, ownerUserID string, profile storage.Profile, logger zerolog.Logger) (*storage.PlanRecord, *plan.Plan, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("wait for completion slot: %w", err)
	}
	defer c.sem.Release(1)

	format := c.opts.Format
	res, err := c.provider.Complete(ctx, ai.CompletionRequest{
		System: prompt.SystemMessage(format),
		Prompt: prompt.Build(profile, c.now().In(c.opts.Location), format),
		Format: string(format),
	})
	if err != nil {
		return nil, nil, err
	}

	parsed, err := plan.Parse(format, res.Text)
	if err != nil {
		logger.Warn().Err(err).Str("raw", truncate(res.Text, rawLogLimit)).Msg("plan text not understood")
		return nil, nil, err
	}

	record := &storage.PlanRecord{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Format:      string(format),
		RawText:     res.Text,
		RoutineText: parsed.Response.Routine,
		DietText:    parsed.Response.Diet,
		Model:       res.Model,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.store.SavePlan(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("save plan: %w", err)
	}
	return record, parsed, nil
}

func (c *Controller) finish(ownerUserID string, state State, failure *Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionLocked(ownerUserID)
	s.state, s.failure = state, failure
}

// Current returns the state and, when ready, the parsed plan.
func (c *Controller) Current(ctx context.Context, ownerUserID string) (View, error) {
	c.mu.Lock()
	s, ok := c.sessions[ownerUserID]
	var snapshot session
	if ok {
		snapshot = *s
	}
	c.mu.Unlock()

	switch {
	case ok && snapshot.state == StateLoading:
		started := snapshot.startedAt
		return View{State: StateLoading, StartedAt: &started}, nil
	case ok && snapshot.state == StateFailed:
		return View{State: StateFailed, Error: snapshot.failure}, nil
	}

	record, parsed, err := c.latest(ctx, ownerUserID)
	if errors.Is(err, ErrNoPlan) {
		return View{State: StateIdle}, nil
	}
	if err != nil {
		return View{}, err
	}
	return View{State: StateReady, Plan: toPlanView(record, parsed)}, nil
}

// Clear deletes the plan and returns the account to idle.
func (c *Controller) Clear(ctx context.Context, ownerUserID string) error {
	c.mu.Lock()
	if s, ok := c.sessions[ownerUserID]; ok && s.state == StateLoading {
		c.mu.Unlock()
		return ErrGenerationInProgress
	}
	delete(c.sessions, ownerUserID)
	c.mu.Unlock()

	return c.dropPlan(ctx, ownerUserID)
}

// Today picks today's routine and diet entries in the configured time zone.
func (c *Controller) Today(ctx context.Context, ownerUserID string) (TodayView, error) {
	if err := c.ensureReady(ownerUserID); err != nil {
		return TodayView{}, err
	}
	_, parsed, err := c.latest(ctx, ownerUserID)
	if err != nil {
		return TodayView{}, err
	}

	now := c.now().In(c.opts.Location)
	window := plan.MealWindowAt(now.Hour())
	view := TodayView{
		Date:          now.Format("2006-01-02"),
		Weekday:       plan.WeekdayNames[plan.WeekdayIndex(now)],
		MealWindow:    window,
		RoutineIndex:  plan.TodayIndex(parsed.RoutineLabels(), now),
		DietIndex:     plan.TodayIndex(parsed.DietLabels(), now),
		HighlightLine: -1,
		HighlightMeal: -1,
	}

	if parsed.Workout != nil && view.RoutineIndex >= 0 {
		day := parsed.Workout.Week[view.RoutineIndex]
		view.Workout = &day
	} else if view.RoutineIndex >= 0 {
		day := parsed.RoutineDays[view.RoutineIndex]
		view.RoutineDay = &day
	}

	if parsed.Nutrition != nil && view.DietIndex >= 0 {
		day := parsed.Nutrition.Week[view.DietIndex]
		view.Nutrition = &day
		view.HighlightMeal = plan.MatchMeal(day.Meals, window)
	} else if view.DietIndex >= 0 {
		day := parsed.DietDays[view.DietIndex]
		view.DietDay = &day
		view.HighlightLine = plan.HighlightMeal(day.Content, window)
	}
	return view, nil
}

// Exportable returns the structured plan for the workbook exporter.
func (c *Controller) Exportable(ctx context.Context, ownerUserID string) (uuid.UUID, *plan.WeeklyWorkout, *plan.WeeklyNutrition, error) {
	if err := c.ensureReady(ownerUserID); err != nil {
		return uuid.Nil, nil, nil, err
	}
	record, parsed, err := c.latest(ctx, ownerUserID)
	if err != nil {
		return uuid.Nil, nil, nil, err
	}
	if parsed.Workout == nil && parsed.Nutrition == nil {
		return uuid.Nil, nil, nil, ErrNotExportable
	}
	return record.ID, parsed.Workout, parsed.Nutrition, nil
}

// Wait blocks until background generations finish or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensureReady hides the stored plan while a generation is running or after it failed.
func (c *Controller) ensureReady(ownerUserID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[ownerUserID]; ok {
		switch s.state {
		case StateLoading:
			return ErrGenerationInProgress
		case StateFailed:
			return ErrNoPlan
		}
	}
	return nil
}

// latest loads the stored plan, parsing it again on a cache miss.
func (c *Controller) latest(ctx context.Context, ownerUserID string) (*storage.PlanRecord, *plan.Plan, error) {
	record, err := c.store.GetLatestPlan(ctx, ownerUserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNoPlan
		}
		return nil, nil, fmt.Errorf("get plan: %w", err)
	}

	if parsed, ok := c.cache.Get(record.ID); ok {
		return record, parsed, nil
	}

	parsed, err := plan.Parse(plan.ParseFormat(record.Format), record.RawText)
	if err != nil {
		return nil, nil, fmt.Errorf("reparse stored plan %s: %w", record.ID, err)
	}
	c.cache.Add(record.ID, parsed)
	return record, parsed, nil
}

func (c *Controller) dropPlan(ctx context.Context, ownerUserID string) error {
	record, err := c.store.GetLatestPlan(ctx, ownerUserID)
	if err == nil {
		c.cache.Remove(record.ID)
	}
	if err := c.store.DeletePlans(ctx, ownerUserID); err != nil {
		return fmt.Errorf("delete plans: %w", err)
	}
	return nil
}

func (c *Controller) sessionLocked(ownerUserID string) *session {
	s, ok := c.sessions[ownerUserID]
	if !ok {
		s = &session{state: StateIdle}
		c.sessions[ownerUserID] = s
	}
	return s
}

func toPlanView(record *storage.PlanRecord, parsed *plan.Plan) *PlanView {
	return &PlanView{
		ID:          record.ID,
		Format:      parsed.Format,
		Model:       record.Model,
		CreatedAt:   record.CreatedAt,
		RoutineDays: parsed.RoutineDays,
		DietDays:    parsed.DietDays,
		Workout:     parsed.Workout,
		Nutrition:   parsed.Nutrition,
		Exportable:  parsed.Workout != nil || parsed.Nutrition != nil,
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "…"
}
