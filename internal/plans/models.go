package plans

import (
	"time"

	"github.com/google/uuid"

	"github.com/mihaigidu/FitGenius/internal/plan"
)

// State is the generation state of one account.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Failure is the user-facing description of a failed generation.
type Failure struct {
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// View is the response of GET /v1/plans/current.
type View struct {
	State     State      `json:"state"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Error     *Failure   `json:"error,omitempty"`
	Plan      *PlanView  `json:"plan,omitempty"`
}

// PlanView carries one parsed plan. Prose plans fill the day lists, JSON plans the weekly structures.
type PlanView struct {
	ID          uuid.UUID             `json:"id"`
	Format      plan.Format           `json:"format"`
	Model       string                `json:"model,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	RoutineDays []plan.DayPlan        `json:"routine_days,omitempty"`
	DietDays    []plan.DayPlan        `json:"diet_days,omitempty"`
	Workout     *plan.WeeklyWorkout   `json:"workout,omitempty"`
	Nutrition   *plan.WeeklyNutrition `json:"nutrition,omitempty"`
	Exportable  bool                  `json:"exportable"`
}

// TodayView is the entry for the current weekday plus the meal to highlight.
type TodayView struct {
	Date         string               `json:"date"`
	Weekday      string               `json:"weekday"`
	MealWindow   plan.MealWindow      `json:"meal_window,omitempty"`
	RoutineIndex int                  `json:"routine_index"`
	DietIndex    int                  `json:"diet_index"`
	RoutineDay   *plan.DayPlan        `json:"routine_day,omitempty"`
	DietDay      *plan.DayPlan        `json:"diet_day,omitempty"`
	Workout      *plan.DailyWorkout   `json:"workout,omitempty"`
	Nutrition    *plan.DailyNutrition `json:"nutrition,omitempty"`
	// HighlightLine is the diet content line of the current meal (prose plans), -1 when none.
	HighlightLine int `json:"highlight_line"`
	// HighlightMeal is the index into Nutrition.Meals of the current meal, -1 when none.
	HighlightMeal int `json:"highlight_meal"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
