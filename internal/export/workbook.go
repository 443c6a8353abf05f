// Package export renders structured plans as an xlsx workbook.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mihaigidu/FitGenius/internal/plan"
)

const (
	SheetWorkout   = "Rutina de Entrenamiento"
	SheetNutrition = "Plan Nutricional"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	Extension   = "xlsx"

	RestLabel = "Descanso"
)

var ErrNothingToExport = errors.New("nothing to export")

var (
	workoutHeaders   = []string{"Día", "Nombre Rutina", "Ejercicio", "Series", "Repeticiones", "Descanso", "Observaciones"}
	workoutWidths    = []float64{14, 30, 30, 10, 16, 12, 40}
	nutritionHeaders = []string{"Día", "Comida", "Hora", "Alimentos", "Calorías", "Macros (P/C/G)"}
	nutritionWidths  = []float64{14, 16, 10, 50, 12, 30}
)

// WriteWorkbook writes one sheet per non-empty input. Both empty yields ErrNothingToExport.
func WriteWorkbook(w io.Writer, workout *plan.WeeklyWorkout, nutrition *plan.WeeklyNutrition) error {
	hasWorkout := workout != nil && len(workout.Week) > 0
	hasNutrition := nutrition != nil && len(nutrition.Week) > 0
	if !hasWorkout && !hasNutrition {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	// The default sheet is renamed instead of deleted so the workbook is never empty.
	first := f.GetSheetName(0)
	named := false
	addSheet := func(name string) error {
		if !named {
			named = true
			return f.SetSheetName(first, name)
		}
		_, err := f.NewSheet(name)
		return err
	}

	if hasWorkout {
		if err := addSheet(SheetWorkout); err != nil {
			return fmt.Errorf("add workout sheet: %w", err)
		}
		if err := writeWorkoutSheet(f, st, workout); err != nil {
			return fmt.Errorf("write workout sheet: %w", err)
		}
	}
	if hasNutrition {
		if err := addSheet(SheetNutrition); err != nil {
			return fmt.Errorf("add nutrition sheet: %w", err)
		}
		if err := writeNutritionSheet(f, st, nutrition); err != nil {
			return fmt.Errorf("write nutrition sheet: %w", err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	header int
	day    int
	cell   int
	rest   int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	var st styles
	var err error

	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1B5E20"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}

	st.day, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return st, fmt.Errorf("day style: %w", err)
	}

	st.cell, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return st, fmt.Errorf("cell style: %w", err)
	}

	st.rest, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: "555555"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return st, fmt.Errorf("rest style: %w", err)
	}
	return st, nil
}

func writeHeader(f *excelize.File, sheet string, st styles, headers []string, widths []float64) error {
	for i, h := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, col+"1", h); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetCellStyle(sheet, "A1", last+"1", st.header)
}

func writeWorkoutSheet(f *excelize.File, st styles, workout *plan.WeeklyWorkout) error {
	const sheet = SheetWorkout
	if err := writeHeader(f, sheet, st, workoutHeaders, workoutWidths); err != nil {
		return err
	}

	row := 2
	for _, day := range workout.Week {
		if day.IsRestDay() {
			if err := setRow(f, sheet, row, day.Day, RestLabel); err != nil {
				return err
			}
			if err := f.MergeCell(sheet, cell("B", row), cell("G", row)); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell("A", row), cell("A", row), st.day); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell("B", row), cell("G", row), st.rest); err != nil {
				return err
			}
			row++
			continue
		}

		start := row
		for _, ex := range day.Exercises {
			if err := setRow(f, sheet, row, day.Day, day.Name, ex.Name, ex.Series, ex.Reps, ex.Rest, ex.Observations); err != nil {
				return err
			}
			row++
		}
		end := row - 1

		if end > start {
			if err := f.MergeCell(sheet, cell("A", start), cell("A", end)); err != nil {
				return err
			}
			if err := f.MergeCell(sheet, cell("B", start), cell("B", end)); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(sheet, cell("A", start), cell("B", end), st.day); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell("C", start), cell("G", end), st.cell); err != nil {
			return err
		}
	}
	return nil
}

func writeNutritionSheet(f *excelize.File, st styles, nutrition *plan.WeeklyNutrition) error {
	const sheet = SheetNutrition
	if err := writeHeader(f, sheet, st, nutritionHeaders, nutritionWidths); err != nil {
		return err
	}

	row := 2
	for _, day := range nutrition.Week {
		start := row
		if len(day.Meals) == 0 {
			if err := setRow(f, sheet, row, day.Day); err != nil {
				return err
			}
			row++
		}
		for _, meal := range day.Meals {
			if err := setRow(f, sheet, row, day.Day, meal.Name, meal.Time, foodsText(meal.Foods), meal.Calories, macrosText(meal.Macros)); err != nil {
				return err
			}
			row++
		}
		end := row - 1

		if end > start {
			if err := f.MergeCell(sheet, cell("A", start), cell("A", end)); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(sheet, cell("A", start), cell("A", end), st.day); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell("B", start), cell("F", end), st.cell); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes values left to right starting at column A.
func setRow(f *excelize.File, sheet string, row int, values ...string) error {
	for i, v := range values {
		name, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, name, v); err != nil {
			return err
		}
	}
	return nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func foodsText(foods []string) string {
	lines := make([]string, 0, len(foods))
	for _, food := range foods {
		if s := strings.TrimSpace(food); s != "" {
			lines = append(lines, "- "+s)
		}
	}
	return strings.Join(lines, "\n")
}

func macrosText(m plan.Macros) string {
	return fmt.Sprintf("P: %s, C: %s, G: %s", m.Protein, m.Carbs, m.Fats)
}
