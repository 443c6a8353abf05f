package plan

import (
	"regexp"
	"strings"
)

// Response holds the routine and diet text blobs of one generation.
type Response struct {
	Routine string `json:"routine"`
	Diet    string `json:"diet"`
}

// DayPlan is one day of a prose plan: the header line and the text under it.
type DayPlan struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

var numberedDayHeader = regexp.MustCompile(`^DIA\s*([1-7])(?:\D|$)`)

// SplitSections separates routine from diet. The delimiter line wins, then the fallback
// heading; otherwise everything is routine and the diet is empty.
func SplitSections(text string) Response {
	lines := splitLines(text)

	for i, line := range lines {
		if strings.EqualFold(stripEmphasis(line), DietDelimiter) {
			return Response{
				Routine: strings.TrimSpace(strings.Join(lines[:i], "\n")),
				Diet:    strings.TrimSpace(strings.Join(lines[i+1:], "\n")),
			}
		}
	}

	for i, line := range lines {
		if strings.Contains(strings.ToUpper(line), DietFallbackHeading) {
			return Response{
				Routine: strings.TrimSpace(strings.Join(lines[:i], "\n")),
				Diet:    strings.TrimSpace(strings.Join(lines[i:], "\n")),
			}
		}
	}

	return Response{Routine: strings.TrimSpace(text)}
}

// ParseDays segments a section into day entries in order of appearance.
// Text before the first header is dropped. No header yields an empty slice.
func ParseDays(section string) []DayPlan {
	days := make([]DayPlan, 0, DaysPerWeek)

	var current *DayPlan
	var body []string
	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		days = append(days, *current)
	}

	for _, line := range splitLines(section) {
		if title, ok := dayHeader(line); ok {
			flush()
			current = &DayPlan{Title: title}
			body = body[:0]
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return days
}

// dayHeader returns the cleaned header text when the line starts a new day.
func dayHeader(line string) (string, bool) {
	title := stripEmphasis(line)
	if title == "" {
		return "", false
	}

	key := FoldUpper(title)
	for _, name := range WeekdayNames {
		if strings.HasPrefix(key, FoldUpper(name)) {
			return title, true
		}
	}
	if numberedDayHeader.MatchString(key) {
		return title, true
	}
	return "", false
}

var emphasisMarks = strings.NewReplacer("*", "", "_", "")

// stripEmphasis drops markdown emphasis anywhere in the line and heading marks at its ends.
func stripEmphasis(line string) string {
	line = emphasisMarks.Replace(line)
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "#"))
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
