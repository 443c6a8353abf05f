package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/mihaigidu/FitGenius/internal/storage"
)

const dateLayout = "2006-01-02"

// ProfileDTO is the API view of a profile.
type ProfileDTO struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	MenstrualPhase    string    `json:"menstrual_phase,omitempty"`
	CurrentPhase      string    `json:"current_phase,omitempty"`
	LastPeriodDate    string    `json:"last_period_date,omitempty"`
	CycleLength       int       `json:"cycle_length,omitempty"`
	Age               int       `json:"age,omitempty"`
	WeightKg          float64   `json:"weight_kg,omitempty"`
	HeightCm          float64   `json:"height_cm,omitempty"`
	Goal              string    `json:"goal,omitempty"`
	ActivityLevel     string    `json:"activity_level,omitempty"`
	TrainingDays      int       `json:"training_days,omitempty"`
	TrainingLocation  string    `json:"training_location,omitempty"`
	FavoriteExercises []string  `json:"favorite_exercises"`
	Allergies         string    `json:"allergies,omitempty"`
	FoodPreferences   string    `json:"food_preferences,omitempty"`
	Complete          bool      `json:"complete"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProfileRequest replaces every editable field (PUT). Email is not replaceable here.
type ProfileRequest struct {
	Name              string   `json:"name"`
	Gender            string   `json:"gender"`
	MenstrualPhase    string   `json:"menstrual_phase"`
	LastPeriodDate    string   `json:"last_period_date"`
	CycleLength       int      `json:"cycle_length"`
	Age               int      `json:"age"`
	WeightKg          float64  `json:"weight_kg"`
	HeightCm          float64  `json:"height_cm"`
	Goal              string   `json:"goal"`
	ActivityLevel     string   `json:"activity_level"`
	TrainingDays      int      `json:"training_days"`
	TrainingLocation  string   `json:"training_location"`
	FavoriteExercises []string `json:"favorite_exercises"`
	Allergies         string   `json:"allergies"`
	FoodPreferences   string   `json:"food_preferences"`
}

// PatchRequest updates only the fields present. An empty last_period_date clears it.
type PatchRequest struct {
	Name              *string   `json:"name"`
	Email             *string   `json:"email"`
	Gender            *string   `json:"gender"`
	MenstrualPhase    *string   `json:"menstrual_phase"`
	LastPeriodDate    *string   `json:"last_period_date"`
	CycleLength       *int      `json:"cycle_length"`
	Age               *int      `json:"age"`
	WeightKg          *float64  `json:"weight_kg"`
	HeightCm          *float64  `json:"height_cm"`
	Goal              *string   `json:"goal"`
	ActivityLevel     *string   `json:"activity_level"`
	TrainingDays      *int      `json:"training_days"`
	TrainingLocation  *string   `json:"training_location"`
	FavoriteExercises *[]string `json:"favorite_exercises"`
	Allergies         *string   `json:"allergies"`
	FoodPreferences   *string   `json:"food_preferences"`
}

// PromptResponse previews the instruction a generation would send.
type PromptResponse struct {
	Format string `json:"format"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
}

// GoalOption is a goal with its short description as shown in the form.
type GoalOption struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

type OptionsResponse struct {
	Genders           []string     `json:"genders"`
	Goals             []GoalOption `json:"goals"`
	ActivityLevels    []string     `json:"activity_levels"`
	TrainingLocations []string     `json:"training_locations"`
	FavoriteExercises []string     `json:"favorite_exercises"`
	MenstrualPhases   []string     `json:"menstrual_phases"`
	DefaultCycleDays  int          `json:"default_cycle_length"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toDTO(p *storage.Profile, now time.Time) ProfileDTO {
	dto := ProfileDTO{
		ID:                p.ID,
		Name:              p.Name,
		Email:             p.Email,
		Gender:            p.Gender,
		MenstrualPhase:    p.MenstrualPhase,
		CycleLength:       p.CycleLength,
		Age:               p.Age,
		WeightKg:          p.WeightKg,
		HeightCm:          p.HeightCm,
		Goal:              p.Goal,
		ActivityLevel:     p.ActivityLevel,
		TrainingDays:      p.TrainingDays,
		TrainingLocation:  p.TrainingLocation,
		FavoriteExercises: p.FavoriteExercises,
		Allergies:         p.Allergies,
		FoodPreferences:   p.FoodPreferences,
		Complete:          IsComplete(p),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if dto.FavoriteExercises == nil {
		dto.FavoriteExercises = []string{}
	}
	if p.LastPeriodDate != nil {
		dto.LastPeriodDate = p.LastPeriodDate.Format(dateLayout)
	}
	if phase, ok := currentPhase(p, now); ok {
		dto.CurrentPhase = string(phase)
	}
	return dto
}
