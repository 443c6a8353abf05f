// Package prompt renders a profile into the instruction sent to the completion model.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

const persona = "Eres un experto entrenador personal y nutricionista de alto nivel."

// SystemMessage returns the persona message for the chosen output contract.
func SystemMessage(format plan.Format) string {
	if format == plan.FormatProse {
		return persona + " Generas planes de transformación 100% personalizados en texto con el formato exacto que se te indica."
	}
	return persona + " Generas planes de transformación 100% personalizados en formato JSON estricto."
}

// IsFemale reports whether cycle tracking applies to the profile.
func IsFemale(gender string) bool {
	switch fold(gender) {
	case "MUJER", "FEMENINO", "FEMALE":
		return true
	}
	return false
}

// CurrentPhase resolves the phase for a profile: computed from the last period date when
// present, otherwise the phase the user picked. Only female profiles have a phase.
func CurrentPhase(p storage.Profile, now time.Time) (Phase, bool) {
	if !IsFemale(p.Gender) {
		return "", false
	}
	if p.LastPeriodDate != nil {
		return MenstrualPhase(*p.LastPeriodDate, p.CycleLength, now)
	}
	return ParsePhase(p.MenstrualPhase)
}

// Build renders the user prompt. Lines for missing fields are left out entirely.
func Build(p storage.Profile, now time.Time, format plan.Format) string {
	var b strings.Builder

	b.WriteString(persona)
	b.WriteString(" Tu misión es diseñar un plan de transformación integral para el usuario, optimizado para sus objetivos específicos.\n\n")

	b.WriteString("**PERFIL DEL USUARIO:**\n")
	writeProfile(&b, p, now)

	b.WriteString("\n**TU FILOSOFÍA:**\n")
	b.WriteString("- **Motivación**: Incluye mensajes cortos pero poderosos en las descripciones para mantener al usuario motivado.\n")
	b.WriteString("- **Ciencia**: Basa tus recomendaciones en principios científicos de hipertrofia, pérdida de grasa o rendimiento según corresponda.\n")
	b.WriteString("- **Variedad**: EVITA LA MONOTONÍA. La dieta debe ser variada y deliciosa. El entrenamiento debe ser desafiante pero realizable.\n\n")

	if format == plan.FormatProse {
		writeProseContract(&b)
	} else {
		writeJSONContract(&b)
	}

	b.WriteString("\nGenera el plan ahora.")
	return b.String()
}

func writeProfile(b *strings.Builder, p storage.Profile, now time.Time) {
	line := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		fmt.Fprintf(b, "- %s: %s\n", label, value)
	}

	line("Género", p.Gender)
	if p.Age > 0 {
		line("Edad", strconv.Itoa(p.Age)+" años")
	}
	if p.WeightKg > 0 {
		line("Peso", formatNumber(p.WeightKg)+" kg")
	}
	if p.HeightCm > 0 {
		line("Altura", formatNumber(p.HeightCm)+" cm")
	}
	line("Objetivo", p.Goal)
	line("Nivel de Actividad", p.ActivityLevel)
	if p.TrainingDays > 0 {
		line("Días de entrenamiento", strconv.Itoa(p.TrainingDays))
	}
	line("Lugar de entrenamiento", p.TrainingLocation)

	if phase, ok := CurrentPhase(p, now); ok {
		line("Fase menstrual actual", fmt.Sprintf("%s (Adaptar intensidad: %s)", phase, phase.Advice()))
	}

	line("Ejercicios favoritos", strings.Join(nonBlank(p.FavoriteExercises), ", "))
	line("Alergias (excluir de la dieta)", p.Allergies)
	line("Preferencias alimentarias", p.FoodPreferences)
}

func writeJSONContract(b *strings.Builder) {
	b.WriteString("**INSTRUCCIONES DE FORMATO OBLIGATORIO (CRÍTICO):**\n")
	b.WriteString("Tu respuesta DEBE ser ÚNICAMENTE un objeto JSON válido. NO incluyas texto introductorio, ni conclusiones, ni bloques de código markdown. SOLO EL JSON PURO.\n\n")
	b.WriteString("El JSON debe tener esta estructura exacta:\n")
	fmt.Fprintf(b, "{\n  %q: { ... },\n  %q: { ... }\n}\n\n", plan.KeyRoutine, plan.KeyDiet)

	fmt.Fprintf(b, "**1. Detalles de la Rutina (%q):**\n", plan.KeyRoutine)
	fmt.Fprintf(b, "- Clave %q: Lista de %d objetos (%s a %s).\n", plan.KeyWeek, plan.DaysPerWeek, plan.WeekdayNames[0], plan.WeekdayNames[6])
	b.WriteString("- Días de entrenamiento: Detalla ejercicios, series, repeticiones y descansos.\n")
	b.WriteString("- Días de descanso: \"ejercicios\": [], \"descripcion\": \"Día de recuperación activa/descanso total\".\n")
	b.WriteString("- Todos los valores son texto entre comillas.\n")
	b.WriteString("- Estructura de referencia:\n")
	b.WriteString(workoutExample)

	fmt.Fprintf(b, "\n**2. Detalles de la Dieta (%q):**\n", plan.KeyDiet)
	fmt.Fprintf(b, "- Clave %q: Lista de %d objetos (%s a %s).\n", plan.KeyWeek, plan.DaysPerWeek, plan.WeekdayNames[0], plan.WeekdayNames[6])
	b.WriteString("- **IMPORTANTE**: Genera menús diferentes para cada día.\n")
	b.WriteString("- Estructura de referencia:\n")
	b.WriteString(nutritionExample)
}

func writeProseContract(b *strings.Builder) {
	b.WriteString("**INSTRUCCIONES DE FORMATO OBLIGATORIO (CRÍTICO):**\n")
	b.WriteString("Responde en texto plano, sin tablas, con dos secciones en este orden.\n\n")

	b.WriteString("**1. Rutina:**\n")
	fmt.Fprintf(b, "- Cada día empieza en su propia línea con \"%s N: <nombre de la sesión>\", con N de 1 a %d.\n", plan.DayHeaderPrefix, plan.DaysPerWeek)
	b.WriteString("- Debajo, un ejercicio por línea con series, repeticiones y descanso.\n")
	b.WriteString("- Los días de descanso también llevan su línea de día.\n\n")

	fmt.Fprintf(b, "**2. Separador:** una línea que contenga exactamente %s\n\n", plan.DietDelimiter)

	b.WriteString("**3. Dieta:**\n")
	fmt.Fprintf(b, "- Cada día empieza en su propia línea con el nombre del día (%s) seguido de \": \" y las calorías aproximadas.\n",
		strings.Join(plan.WeekdayNames, ", "))
	b.WriteString("- Debajo, una comida por línea empezando por Desayuno, Almuerzo, Merienda o Cena, con la hora y los alimentos.\n")
	b.WriteString("- **IMPORTANTE**: Genera menús diferentes para cada día.\n")
	fmt.Fprintf(b, "- No escribas nada después del último día ni repitas la línea %s.\n", plan.DietDelimiter)
}

const workoutExample = `{
  "semana": [
    {
      "dia": "Lunes",
      "nombre": "Hipertrofia - Tren Superior",
      "duracion": "45",
      "descripcion": "Rutina de hipertrofia para tren superior, enfocada en pecho y tríceps.",
      "ejercicios": [
        { "nombre": "Press de Banca", "series": "4", "repeticiones": "8-12", "descanso": "90s" },
        { "nombre": "Flexiones", "series": "3", "repeticiones": "Al fallo", "descanso": "60s" }
      ]
    }
  ]
}
`

const nutritionExample = `{
  "semana": [
    {
      "dia": "Lunes",
      "resumen_dia": {
        "calorias_totales": "2180",
        "proteinas": "105",
        "carbohidratos": "160",
        "grasas": "55",
        "extra": "Mantén la hidratación durante todo el día, bebe al menos 2.5 litros de agua."
      },
      "comidas": [
        {
          "nombre": "Desayuno",
          "hora": "08:00",
          "calorias": "545",
          "alimentos": ["3 huevos revueltos", "2 rebanadas de pan integral", "1 plátano", "Café o té"],
          "macros": { "proteinas": "25g", "carbohidratos": "45g", "grasas": "12g" }
        }
      ]
    }
  ]
}
`

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
