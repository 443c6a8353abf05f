package plan

import (
	"os"
	"strings"
	"testing"
)

func TestParseDaysNumberedHeaders(t *testing.T) {
	days := ParseDays("Día 1: Pecho\nSerie A\nDía 2: Espalda\nSerie B")
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d (%+v)", len(days), days)
	}
	want := []DayPlan{
		{Title: "Día 1: Pecho", Content: "Serie A"},
		{Title: "Día 2: Espalda", Content: "Serie B"},
	}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("day %d: expected %+v, got %+v", i, want[i], days[i])
		}
	}
}

func TestParseDaysNoHeaders(t *testing.T) {
	days := ParseDays("Hoy entrena fuerte.\nMañana descansa.")
	if days == nil || len(days) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", days)
	}
	if got := ParseDays(""); len(got) != 0 {
		t.Fatalf("expected no days for empty text, got %d", len(got))
	}
}

func TestParseDaysStripsEmphasisAndAccents(t *testing.T) {
	text := "Intro que se ignora\n**MIÉRCOLES: Pierna**\n\n- Sentadilla\n\n### miercoles tarde\nCardio\n__Día 7__\n"
	days := ParseDays(text)
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d (%+v)", len(days), days)
	}
	if days[0].Title != "MIÉRCOLES: Pierna" || days[0].Content != "- Sentadilla" {
		t.Fatalf("unexpected first day: %+v", days[0])
	}
	if days[1].Title != "miercoles tarde" || days[1].Content != "Cardio" {
		t.Fatalf("unexpected second day: %+v", days[1])
	}
	if days[2].Title != "Día 7" || days[2].Content != "" {
		t.Fatalf("unexpected third day: %+v", days[2])
	}
}

func TestParseDaysIgnoresOutOfRangeNumbers(t *testing.T) {
	days := ParseDays("Día 8: Extra\ntexto\nDia 10 algo\nDía 1\nok")
	if len(days) != 1 || days[0].Title != "Día 1" || days[0].Content != "ok" {
		t.Fatalf("unexpected days: %+v", days)
	}
}

func TestSplitSectionsDelimiter(t *testing.T) {
	resp := SplitSections("ROUTINE TEXT\n===DIETA===\nDIET TEXT")
	if resp.Routine != "ROUTINE TEXT" {
		t.Fatalf("unexpected routine %q", resp.Routine)
	}
	if resp.Diet != "DIET TEXT" {
		t.Fatalf("unexpected diet %q", resp.Diet)
	}
}

func TestSplitSectionsDelimiterCaseInsensitive(t *testing.T) {
	resp := SplitSections("A\r\n  ===dieta===  \r\nB")
	if resp.Routine != "A" || resp.Diet != "B" {
		t.Fatalf("unexpected split: %+v", resp)
	}
}

func TestSplitSectionsFallbackHeading(t *testing.T) {
	resp := SplitSections("Rutina\nDía 1: Pecho\n## Plan de Dieta Semanal\nLunes: 2000 kcal")
	if resp.Routine != "Rutina\nDía 1: Pecho" {
		t.Fatalf("unexpected routine %q", resp.Routine)
	}
	if !strings.HasPrefix(resp.Diet, "## Plan de Dieta Semanal") {
		t.Fatalf("expected diet to start at the fallback heading, got %q", resp.Diet)
	}
}

func TestSplitSectionsWithoutDelimiter(t *testing.T) {
	resp := SplitSections("  solo rutina \n")
	if resp.Routine != "solo rutina" || resp.Diet != "" {
		t.Fatalf("unexpected split: %+v", resp)
	}
}

func TestParseProseFixture(t *testing.T) {
	data, err := os.ReadFile("testdata/week_plan.txt")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	p, err := Parse(FormatProse, string(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.RoutineDays) != 7 || len(p.DietDays) != 7 {
		t.Fatalf("expected 7+7 days, got %d+%d", len(p.RoutineDays), len(p.DietDays))
	}
	if p.RoutineDays[0].Title != "Día 1: Pecho y Tríceps" {
		t.Fatalf("unexpected first routine title %q", p.RoutineDays[0].Title)
	}
	if p.DietDays[2].Title != "Miércoles: ~2050 kcal" {
		t.Fatalf("unexpected third diet title %q", p.DietDays[2].Title)
	}
	if lines := strings.Split(p.DietDays[0].Content, "\n"); len(lines) != 4 {
		t.Fatalf("expected 4 meal lines on Monday, got %d", len(lines))
	}
}

func TestParseProseWithoutHeadersFails(t *testing.T) {
	_, err := Parse(FormatProse, "Lo siento, no puedo ayudar con eso.")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsParseError(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestParseDaysStripsInnerEmphasis(t *testing.T) {
	days := ParseDays("**Lunes**: 2250 kcal\nAvena\n_Martes_ - *descarga*\nPaseo")
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d (%+v)", len(days), days)
	}
	if days[0].Title != "Lunes: 2250 kcal" || days[0].Content != "Avena" {
		t.Fatalf("unexpected first day: %+v", days[0])
	}
	if days[1].Title != "Martes - descarga" {
		t.Fatalf("unexpected second day: %+v", days[1])
	}
}
