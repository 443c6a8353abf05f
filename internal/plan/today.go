package plan

import (
	"strconv"
	"strings"
	"time"
)

// WeekdayIndex maps t onto 0..6 starting on Monday.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// TodayIndex picks the entry for now's weekday. Labels are trusted first (a weekday name or
// "Día N"), then the position in the list, then the first entry. Returns -1 for an empty list.
func TodayIndex(labels []string, now time.Time) int {
	if len(labels) == 0 {
		return -1
	}
	today := WeekdayIndex(now)
	todayName := FoldUpper(WeekdayNames[today])

	for i, label := range labels {
		key := FoldUpper(stripEmphasis(label))
		if strings.HasPrefix(key, todayName) {
			return i
		}
		if m := numberedDayHeader.FindStringSubmatch(key); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n-1 == today {
				return i
			}
		}
	}

	if today < len(labels) {
		return today
	}
	return 0
}

type MealWindow string

const (
	MealNone      MealWindow = ""
	MealBreakfast MealWindow = "breakfast"
	MealLunch     MealWindow = "lunch"
	MealSnack     MealWindow = "snack"
	MealDinner    MealWindow = "dinner"
)

var mealKeywords = map[MealWindow][]string{
	MealBreakfast: {"DESAYUNO"},
	MealLunch:     {"ALMUERZO", "COMIDA"},
	MealSnack:     {"MERIENDA", "SNACK", "TENTEMPIE"},
	MealDinner:    {"CENA"},
}

// MealWindowAt buckets an hour of day: breakfast 5-10, lunch 11-14, snack 15-18, dinner 19-22.
func MealWindowAt(hour int) MealWindow {
	switch {
	case hour >= 5 && hour <= 10:
		return MealBreakfast
	case hour >= 11 && hour <= 14:
		return MealLunch
	case hour >= 15 && hour <= 18:
		return MealSnack
	case hour >= 19 && hour <= 22:
		return MealDinner
	default:
		return MealNone
	}
}

// HighlightMeal returns the index of the first content line starting with the window's meal, or -1.
func HighlightMeal(content string, w MealWindow) int {
	if w == MealNone {
		return -1
	}
	for i, line := range splitLines(content) {
		if matchesMeal(line, w) {
			return i
		}
	}
	return -1
}

// MatchMeal returns the index of the first meal whose name starts with a window keyword, or -1.
func MatchMeal(meals []Meal, w MealWindow) int {
	if w == MealNone {
		return -1
	}
	for i, m := range meals {
		if matchesMeal(m.Name, w) {
			return i
		}
	}
	return -1
}

func matchesMeal(text string, w MealWindow) bool {
	label := strings.TrimLeft(stripEmphasis(text), "-• ")
	key := FoldUpper(label)
	for _, kw := range mealKeywords[w] {
		if strings.HasPrefix(key, kw) {
			return true
		}
	}
	return false
}
