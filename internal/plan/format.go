// Package plan turns completion output into day-by-day routine and diet records.
//
// Two output contracts exist. FormatJSON asks the model for one JSON object with the keys
// "rutina" and "dieta"; FormatProse asks for free text with day headers and a delimiter line.
// The prompt package builds its contract text from the constants below, so both sides of the
// contract live in one place.
package plan

import (
	"errors"
	"strings"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatProse Format = "prose"
)

// ParseFormat maps a config value onto a Format, defaulting to JSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatProse)) {
		return FormatProse
	}
	return FormatJSON
}

const (
	// DietDelimiter is the literal line that separates the routine from the diet in prose output.
	DietDelimiter = "===DIETA==="
	// DietFallbackHeading starts the diet section when the delimiter is missing.
	DietFallbackHeading = "PLAN DE DIETA"
	// DayHeaderPrefix starts numbered routine day headers ("Día 1: Pecho").
	DayHeaderPrefix = "Día"
	// DaysPerWeek is the number of day entries the model is asked for.
	DaysPerWeek = 7
)

// WeekdayNames lists the Spanish weekday labels starting on Monday.
var WeekdayNames = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

// JSON keys of the structured contract.
const (
	KeyRoutine = "rutina"
	KeyDiet    = "dieta"
	KeyWeek    = "semana"
)

var (
	// ErrNoDays means neither section yielded a day.
	ErrNoDays = errors.New("no recognizable day headers")
	// ErrNoJSONObject means the text holds no {...} object at all.
	ErrNoJSONObject = errors.New("no JSON object in response")
)

// IsParseError reports whether err came from interpreting the plan text.
func IsParseError(err error) bool {
	if err == nil {
		return false
	}
	var decodeErr *DecodeError
	return errors.Is(err, ErrNoDays) || errors.Is(err, ErrNoJSONObject) || errors.As(err, &decodeErr)
}
