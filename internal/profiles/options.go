package profiles

import (
	"strings"

	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/prompt"
)

var (
	genders = []string{"Hombre", "Mujer"}

	goals = []GoalOption{
		{Value: "Perder Peso", Description: "Quemar grasa y reducir medidas"},
		{Value: "Ganar Masa Muscular", Description: "Aumentar músculo y fuerza"},
		{Value: "Mantener Forma", Description: "Tonificar y mantenerse activo"},
		{Value: "Mejorar Resistencia", Description: "Aumentar capacidad cardiovascular"},
	}

	activityLevels    = []string{"Sedentario", "Moderado", "Activo", "Muy activo"}
	trainingLocations = []string{"En casa", "Gimnasio"}
	favoriteExercises = []string{"Correr", "Nadar", "Ciclismo", "Pesas", "Yoga", "Pilates", "CrossFit"}
)

// Options returns the vocabularies the profile form offers.
func Options() OptionsResponse {
	phases := make([]string, 0, 4)
	for _, p := range prompt.Phases() {
		phases = append(phases, string(p))
	}
	return OptionsResponse{
		Genders:           genders,
		Goals:             goals,
		ActivityLevels:    activityLevels,
		TrainingLocations: trainingLocations,
		FavoriteExercises: favoriteExercises,
		MenstrualPhases:   phases,
		DefaultCycleDays:  prompt.DefaultCycleLength,
	}
}

// canonical maps value onto a known option ignoring case and accents.
// Unknown values are returned trimmed with known=false.
func canonical(value string, options []string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", true
	}
	key := plan.FoldUpper(value)
	for _, opt := range options {
		if plan.FoldUpper(opt) == key {
			return opt, true
		}
	}
	return value, false
}

func goalValues() []string {
	out := make([]string, len(goals))
	for i, g := range goals {
		out[i] = g.Value
	}
	return out
}
