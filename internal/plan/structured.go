package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type WeeklyWorkout struct {
	Week []DailyWorkout `json:"week"`
}

type DailyWorkout struct {
	Day         string     `json:"day"`
	Name        string     `json:"name"`
	Duration    string     `json:"duration"`
	Description string     `json:"description"`
	Exercises   []Exercise `json:"exercises"`
}

// IsRestDay reports a day without exercises.
func (d DailyWorkout) IsRestDay() bool { return len(d.Exercises) == 0 }

type Exercise struct {
	Name         string `json:"name"`
	Series       string `json:"series"`
	Reps         string `json:"reps"`
	Rest         string `json:"rest"`
	Observations string `json:"observations,omitempty"`
}

type WeeklyNutrition struct {
	Week []DailyNutrition `json:"week"`
}

type DailyNutrition struct {
	Day     string       `json:"day"`
	Summary DailySummary `json:"summary"`
	Meals   []Meal       `json:"meals"`
}

type DailySummary struct {
	TotalCalories string `json:"total_calories"`
	Protein       string `json:"protein"`
	Carbs         string `json:"carbs"`
	Fats          string `json:"fats"`
	Extra         string `json:"extra"`
}

type Meal struct {
	Name     string   `json:"name"`
	Time     string   `json:"time"`
	Calories string   `json:"calories"`
	Foods    []string `json:"foods"`
	Macros   Macros   `json:"macros"`
}

type Macros struct {
	Protein string `json:"protein"`
	Carbs   string `json:"carbs"`
	Fats    string `json:"fats"`
}

// StructuredPlan is a fully decoded JSON-contract response.
type StructuredPlan struct {
	Workout    WeeklyWorkout
	Nutrition  WeeklyNutrition
	RoutineRaw json.RawMessage
	DietRaw    json.RawMessage
}

// DecodeError points at the first key that is missing or malformed.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode plan at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("decode plan: missing required key %s", e.Path)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func missing(path string) error { return &DecodeError{Path: path} }

// ExtractJSON cuts the text from the first '{' to the last '}'.
// Models often wrap the object in prose or code fences.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", ErrNoJSONObject
	}
	return text[start : end+1], nil
}

// DecodeStructured decodes a whole JSON-contract response. Any missing required key fails
// the decode; there are no partial results.
func DecodeStructured(text string) (*StructuredPlan, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var root struct {
		Rutina json.RawMessage `json:"rutina"`
		Dieta  json.RawMessage `json:"dieta"`
	}
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return nil, &DecodeError{Path: "$", Err: err}
	}
	if isNull(root.Rutina) {
		return nil, missing(KeyRoutine)
	}
	if isNull(root.Dieta) {
		return nil, missing(KeyDiet)
	}

	workout, err := decodeWorkout(root.Rutina, KeyRoutine)
	if err != nil {
		return nil, err
	}
	nutrition, err := decodeNutrition(root.Dieta, KeyDiet)
	if err != nil {
		return nil, err
	}

	return &StructuredPlan{
		Workout:    *workout,
		Nutrition:  *nutrition,
		RoutineRaw: root.Rutina,
		DietRaw:    root.Dieta,
	}, nil
}

// DecodeWorkout decodes a standalone {"semana":[...]} routine object.
func DecodeWorkout(data []byte) (*WeeklyWorkout, error) {
	return decodeWorkout(data, "$")
}

// DecodeNutrition decodes a standalone {"semana":[...]} diet object.
func DecodeNutrition(data []byte) (*WeeklyNutrition, error) {
	return decodeNutrition(data, "$")
}

type wireRoutine struct {
	Semana *[]wireWorkoutDay `json:"semana"`
}

type wireWorkoutDay struct {
	Dia         *flexString     `json:"dia"`
	Nombre      *flexString     `json:"nombre"`
	Duracion    *flexString     `json:"duracion"`
	Descripcion *flexString     `json:"descripcion"`
	Ejercicios  *[]wireExercise `json:"ejercicios"`
}

type wireExercise struct {
	Nombre        *flexString `json:"nombre"`
	Series        *flexString `json:"series"`
	Repeticiones  *flexString `json:"repeticiones"`
	Descanso      *flexString `json:"descanso"`
	Observaciones *flexString `json:"observaciones"`
}

type wireDiet struct {
	Semana *[]wireDietDay `json:"semana"`
}

type wireDietDay struct {
	Dia        *flexString  `json:"dia"`
	ResumenDia *wireSummary `json:"resumen_dia"`
	Comidas    *[]wireMeal  `json:"comidas"`
}

type wireSummary struct {
	CaloriasTotales *flexString `json:"calorias_totales"`
	Proteinas       *flexString `json:"proteinas"`
	Carbohidratos   *flexString `json:"carbohidratos"`
	Grasas          *flexString `json:"grasas"`
	Extra           *flexString `json:"extra"`
}

type wireMeal struct {
	Nombre    *flexString   `json:"nombre"`
	Hora      *flexString   `json:"hora"`
	Calorias  *flexString   `json:"calorias"`
	Alimentos *[]flexString `json:"alimentos"`
	Macros    *wireMacros   `json:"macros"`
}

type wireMacros struct {
	Proteinas     *flexString `json:"proteinas"`
	Carbohidratos *flexString `json:"carbohidratos"`
	Grasas        *flexString `json:"grasas"`
}

func decodeWorkout(data []byte, path string) (*WeeklyWorkout, error) {
	var w wireRoutine
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if w.Semana == nil {
		return nil, missing(path + "." + KeyWeek)
	}

	out := &WeeklyWorkout{Week: make([]DailyWorkout, 0, len(*w.Semana))}
	for i, d := range *w.Semana {
		dayPath := fmt.Sprintf("%s.%s[%d]", path, KeyWeek, i)
		r := fieldReader{path: dayPath}
		day := DailyWorkout{
			Day:         r.required("dia", d.Dia),
			Name:        r.required("nombre", d.Nombre),
			Duration:    r.required("duracion", d.Duracion),
			Description: r.required("descripcion", d.Descripcion),
		}
		if r.err != nil {
			return nil, r.err
		}
		if d.Ejercicios == nil {
			return nil, missing(dayPath + ".ejercicios")
		}

		day.Exercises = make([]Exercise, 0, len(*d.Ejercicios))
		for j, e := range *d.Ejercicios {
			er := fieldReader{path: fmt.Sprintf("%s.ejercicios[%d]", dayPath, j)}
			ex := Exercise{
				Name:         er.required("nombre", e.Nombre),
				Series:       er.required("series", e.Series),
				Reps:         er.required("repeticiones", e.Repeticiones),
				Rest:         er.required("descanso", e.Descanso),
				Observations: e.Observaciones.String(),
			}
			if er.err != nil {
				return nil, er.err
			}
			day.Exercises = append(day.Exercises, ex)
		}
		out.Week = append(out.Week, day)
	}
	return out, nil
}

func decodeNutrition(data []byte, path string) (*WeeklyNutrition, error) {
	var w wireDiet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if w.Semana == nil {
		return nil, missing(path + "." + KeyWeek)
	}

	out := &WeeklyNutrition{Week: make([]DailyNutrition, 0, len(*w.Semana))}
	for i, d := range *w.Semana {
		dayPath := fmt.Sprintf("%s.%s[%d]", path, KeyWeek, i)
		r := fieldReader{path: dayPath}
		day := DailyNutrition{Day: r.required("dia", d.Dia)}
		if r.err != nil {
			return nil, r.err
		}

		if d.ResumenDia == nil {
			return nil, missing(dayPath + ".resumen_dia")
		}
		sr := fieldReader{path: dayPath + ".resumen_dia"}
		day.Summary = DailySummary{
			TotalCalories: sr.required("calorias_totales", d.ResumenDia.CaloriasTotales),
			Protein:       sr.required("proteinas", d.ResumenDia.Proteinas),
			Carbs:         sr.required("carbohidratos", d.ResumenDia.Carbohidratos),
			Fats:          sr.required("grasas", d.ResumenDia.Grasas),
			Extra:         sr.required("extra", d.ResumenDia.Extra),
		}
		if sr.err != nil {
			return nil, sr.err
		}

		if d.Comidas == nil {
			return nil, missing(dayPath + ".comidas")
		}
		day.Meals = make([]Meal, 0, len(*d.Comidas))
		for j, m := range *d.Comidas {
			mealPath := fmt.Sprintf("%s.comidas[%d]", dayPath, j)
			mr := fieldReader{path: mealPath}
			meal := Meal{
				Name:     mr.required("nombre", m.Nombre),
				Time:     mr.required("hora", m.Hora),
				Calories: mr.required("calorias", m.Calorias),
			}
			if mr.err != nil {
				return nil, mr.err
			}
			if m.Alimentos == nil {
				return nil, missing(mealPath + ".alimentos")
			}
			meal.Foods = make([]string, 0, len(*m.Alimentos))
			for _, f := range *m.Alimentos {
				meal.Foods = append(meal.Foods, f.String())
			}
			if m.Macros == nil {
				return nil, missing(mealPath + ".macros")
			}
			xr := fieldReader{path: mealPath + ".macros"}
			meal.Macros = Macros{
				Protein: xr.required("proteinas", m.Macros.Proteinas),
				Carbs:   xr.required("carbohidratos", m.Macros.Carbohidratos),
				Fats:    xr.required("grasas", m.Macros.Grasas),
			}
			if xr.err != nil {
				return nil, xr.err
			}
			day.Meals = append(day.Meals, meal)
		}
		out.Week = append(out.Week, day)
	}
	return out, nil
}

// fieldReader collects the first missing key of an object.
type fieldReader struct {
	path string
	err  error
}

func (r *fieldReader) required(key string, v *flexString) string {
	if v == nil {
		if r.err == nil {
			r.err = missing(r.path + "." + key)
		}
		return ""
	}
	return v.String()
}

// flexString accepts JSON strings, numbers and booleans. Models are not consistent about
// quoting numeric fields such as "series": 4.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = flexString(strconv.FormatBool(b))
	case 'n':
		return fmt.Errorf("unexpected null")
	case '{', '[':
		return fmt.Errorf("expected scalar, got %s", string(data[:1]))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = flexString(n.String())
	}
	return nil
}

func (f *flexString) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
