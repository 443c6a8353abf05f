package plan

import (
	"fmt"
	"strings"
)

// Plan is the interpreted result of one generation. Prose plans fill the Days slices,
// JSON plans fill Workout and Nutrition.
type Plan struct {
	Format      Format
	Response    Response
	RoutineDays []DayPlan
	DietDays    []DayPlan
	Workout     *WeeklyWorkout
	Nutrition   *WeeklyNutrition
}

// RoutineLabels returns the day labels of the routine in order.
func (p *Plan) RoutineLabels() []string {
	if p.Workout != nil {
		labels := make([]string, len(p.Workout.Week))
		for i, d := range p.Workout.Week {
			labels[i] = d.Day
		}
		return labels
	}
	return titles(p.RoutineDays)
}

// DietLabels returns the day labels of the diet in order.
func (p *Plan) DietLabels() []string {
	if p.Nutrition != nil {
		labels := make([]string, len(p.Nutrition.Week))
		for i, d := range p.Nutrition.Week {
			labels[i] = d.Day
		}
		return labels
	}
	return titles(p.DietDays)
}

func titles(days []DayPlan) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Title
	}
	return out
}

// Parse interprets text with the one strategy that matches format.
func Parse(format Format, text string) (*Plan, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("parse %s plan: %w", format, ErrNoDays)
	}

	switch format {
	case FormatProse:
		resp := SplitSections(text)
		p := &Plan{
			Format:      FormatProse,
			Response:    resp,
			RoutineDays: ParseDays(resp.Routine),
			DietDays:    ParseDays(resp.Diet),
		}
		if len(p.RoutineDays) == 0 && len(p.DietDays) == 0 {
			return nil, fmt.Errorf("parse prose plan: %w", ErrNoDays)
		}
		return p, nil

	default:
		sp, err := DecodeStructured(text)
		if err != nil {
			return nil, fmt.Errorf("parse json plan: %w", err)
		}
		if len(sp.Workout.Week) == 0 && len(sp.Nutrition.Week) == 0 {
			return nil, fmt.Errorf("parse json plan: %w", ErrNoDays)
		}
		return &Plan{
			Format:    FormatJSON,
			Response:  Response{Routine: string(sp.RoutineRaw), Diet: string(sp.DietRaw)},
			Workout:   &sp.Workout,
			Nutrition: &sp.Nutrition,
		}, nil
	}
}
