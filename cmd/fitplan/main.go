// Command fitplan generates one weekly plan from a profile file and prints it.
//
//	go run ./cmd/fitplan -profile profile.json [-format prose] [-xlsx plan.xlsx]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"github.com/mihaigidu/FitGenius/internal/ai"
	"github.com/mihaigidu/FitGenius/internal/config"
	"github.com/mihaigidu/FitGenius/internal/export"
	"github.com/mihaigidu/FitGenius/internal/logging"
	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/plans"
	"github.com/mihaigidu/FitGenius/internal/profiles"
	"github.com/mihaigidu/FitGenius/internal/storage/memory"
)

const cliOwner = "cli"

func main() {
	profilePath := flag.String("profile", "", "profile JSON file (same fields as PATCH /v1/profile)")
	formatFlag := flag.String("format", "", "plan format: json or prose (default PLAN_FORMAT)")
	xlsxPath := flag.String("xlsx", "", "write the structured plan to this .xlsx file")
	showPrompt := flag.Bool("prompt", false, "print the prompt and exit without calling the model")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Setup(cfg.Env, cfg.LogLevel)

	format := plan.ParseFormat(cfg.PlanFormat)
	if *formatFlag != "" {
		format = plan.ParseFormat(*formatFlag)
	}

	ctx := context.Background()
	store := memory.New()
	profileService := profiles.NewService(store, format, logger)

	if *profilePath != "" {
		req, err := readProfile(*profilePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("read profile")
		}
		if _, err := profileService.Patch(ctx, cliOwner, req); err != nil {
			logger.Fatal().Err(err).Msg("invalid profile")
		}
	}

	if *showPrompt {
		preview, err := profileService.Prompt(ctx, cliOwner)
		if err != nil {
			logger.Fatal().Err(err).Msg("build prompt")
		}
		fmt.Println(preview.System)
		fmt.Println()
		fmt.Println(preview.Prompt)
		return
	}

	provider, err := ai.NewProvider(ctx, cfg.AI, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai provider")
	}

	controller, err := plans.NewController(provider, profileService, store.GetPlansStorage(), plans.Options{
		Format:        format,
		Timeout:       time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		MaxConcurrent: 1,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("plans controller")
	}

	if _, err := controller.Generate(ctx, cliOwner); err != nil {
		logger.Fatal().Err(err).Msg("start generation")
	}
	fmt.Fprintf(os.Stderr, "Generando plan con %s...\n", provider.Name())
	controller.Wait(ctx)

	view, err := controller.Current(ctx, cliOwner)
	if err != nil {
		logger.Fatal().Err(err).Msg("read plan")
	}
	if view.State == plans.StateFailed {
		fmt.Fprintf(os.Stderr, "%s (%s)\n", view.Error.Message, view.Error.Code)
		os.Exit(1)
	}

	printPlan(view.Plan)

	if *xlsxPath != "" {
		if err := writeWorkbook(ctx, controller, *xlsxPath); err != nil {
			logger.Fatal().Err(err).Msg("export workbook")
		}
		fmt.Fprintf(os.Stderr, "Plan exportado a %s\n", *xlsxPath)
	}
}

func readProfile(path string) (profiles.PatchRequest, error) {
	var req profiles.PatchRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode %s: %w", path, err)
	}
	return req, nil
}

func printPlan(p *plans.PlanView) {
	if p.Workout != nil {
		fmt.Println("== RUTINA ==")
		for _, day := range p.Workout.Week {
			fmt.Printf("\n%s: %s\n", day.Day, day.Name)
			if day.IsRestDay() {
				fmt.Println("  " + export.RestLabel)
				continue
			}
			for _, ex := range day.Exercises {
				fmt.Printf("  - %s: %s x %s, descanso %s\n", ex.Name, ex.Series, ex.Reps, ex.Rest)
			}
		}
	}
	if p.Nutrition != nil {
		fmt.Println("\n== DIETA ==")
		for _, day := range p.Nutrition.Week {
			fmt.Printf("\n%s\n", day.Day)
			for _, meal := range day.Meals {
				fmt.Printf("  %s (%s): %s\n", meal.Name, meal.Time, strings.Join(meal.Foods, ", "))
			}
		}
	}

	printDays("RUTINA", p.RoutineDays)
	printDays("DIETA", p.DietDays)
}

func printDays(title string, days []plan.DayPlan) {
	if len(days) == 0 {
		return
	}
	fmt.Printf("== %s ==\n", title)
	for _, d := range days {
		fmt.Printf("\n%s\n%s\n", d.Title, d.Content)
	}
	fmt.Println()
}

func writeWorkbook(ctx context.Context, controller *plans.Controller, path string) error {
	_, workout, nutrition, err := controller.Exportable(ctx, cliOwner)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteWorkbook(f, workout, nutrition); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
