package prompt

import (
	"time"

	"github.com/mihaigidu/FitGenius/internal/plan"
)

// Phase is a menstrual cycle phase, named as it appears in the prompt.
type Phase string

const (
	PhaseMenstruation Phase = "Menstruación"
	PhaseFollicular   Phase = "Fase Folicular"
	PhaseOvulation    Phase = "Ovulación"
	PhaseLuteal       Phase = "Fase Lútea"
)

// DefaultCycleLength is used when the profile has no cycle length.
const DefaultCycleLength = 28

var phaseAdvice = map[Phase]string{
	PhaseMenstruation: "reducir la intensidad, enfocarse en movilidad y recuperación",
	PhaseFollicular:   "aumentar la intensidad, ideal para entrenamientos de fuerza",
	PhaseOvulation:    "pico de energía, perfecto para entrenamientos de alta intensidad y RPs",
	PhaseLuteal:       "moderar la intensidad, enfocarse en ejercicios de tempo y resistencia",
}

// Advice returns the training adjustment for the phase.
func (p Phase) Advice() string {
	if a, ok := phaseAdvice[p]; ok {
		return a
	}
	return "ajustar según sensaciones"
}

// Phases lists the phases in cycle order.
func Phases() []Phase {
	return []Phase{PhaseMenstruation, PhaseFollicular, PhaseOvulation, PhaseLuteal}
}

// ParsePhase accepts a phase label (any case, with or without accents) or its English key.
func ParsePhase(s string) (Phase, bool) {
	key := fold(s)
	if key == "" {
		return "", false
	}
	for _, p := range Phases() {
		if key == fold(string(p)) {
			return p, true
		}
	}
	switch key {
	case "MENSTRUATION":
		return PhaseMenstruation, true
	case "FOLLICULAR":
		return PhaseFollicular, true
	case "OVULATION":
		return PhaseOvulation, true
	case "LUTEAL":
		return PhaseLuteal, true
	}
	return "", false
}

// MenstrualPhase computes the phase for now from the first day of the last period.
// Day of cycle is (days since lastPeriod) mod cycleLength: 0-4 menstruation, 5-11 follicular,
// 12-15 ovulation, otherwise luteal. A lastPeriod after now yields no phase.
func MenstrualPhase(lastPeriod time.Time, cycleLength int, now time.Time) (Phase, bool) {
	if cycleLength <= 0 {
		cycleLength = DefaultCycleLength
	}

	days := int(dateOnly(now).Sub(dateOnly(lastPeriod)).Hours() / 24)
	if days < 0 {
		return "", false
	}

	switch day := days % cycleLength; {
	case day <= 4:
		return PhaseMenstruation, true
	case day <= 11:
		return PhaseFollicular, true
	case day <= 15:
		return PhaseOvulation, true
	default:
		return PhaseLuteal, true
	}
}

// dateOnly keeps the calendar date of t in its own location.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func fold(s string) string {
	return plan.FoldUpper(s)
}
